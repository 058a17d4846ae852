package procfixture

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment overrides applied on top of the config file
const (
	EnvAddr             = "PROCFIXTURE_ADDR"
	EnvExitCode         = "PROCFIXTURE_EXIT_CODE"
	EnvStressWorkers    = "PROCFIXTURE_STRESS_WORKERS"
	EnvStressIterations = "PROCFIXTURE_STRESS_ITERATIONS"
	EnvShutdownTimeout  = "PROCFIXTURE_SHUTDOWN_TIMEOUT"
)

// Config sizes the faults and the HTTP server.
type Config struct {
	// Addr is the host:port the server listens on
	Addr string `yaml:"addr" validate:"required,hostname_port"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
	// ExitCode is the status passed to the exit function by the terminate fault
	ExitCode int `yaml:"exit_code" validate:"gte=0,lte=255"`
	// Stress configures the stress fan-out
	Stress StressConfig `yaml:"stress"`
	// Memory configures the memincrease allocations
	Memory MemoryConfig `yaml:"memory"`
}

// StressConfig sizes the stress fault.
type StressConfig struct {
	// Workers is the number of OS-thread workers started per request
	Workers int `yaml:"workers" validate:"gte=1,lte=10000"`
	// Iterations is the raise/recover loop count of each worker
	Iterations int `yaml:"iterations" validate:"gte=1"`
}

// MemoryConfig sizes the memincrease fault.
type MemoryConfig struct {
	SmallCount  int `yaml:"small_count" validate:"gte=0"`
	SmallSize   int `yaml:"small_size" validate:"gte=0"`
	Collections int `yaml:"collections" validate:"gte=0"`
	LargeCount  int `yaml:"large_count" validate:"gte=0"`
	LargeSize   int `yaml:"large_size" validate:"gte=0"`
	PinnedCount int `yaml:"pinned_count" validate:"gte=0"`
}

// DefaultConfig returns the sizes used by the reference test service
func DefaultConfig() Config {
	return Config{
		Addr:            DefaultAddr,
		ShutdownTimeout: DefaultShutdownTimeout,
		ExitCode:        DefaultExitCode,
		Stress: StressConfig{
			Workers:    DefaultStressWorkers,
			Iterations: DefaultStressIterations,
		},
		Memory: MemoryConfig{
			SmallCount:  DefaultSmallObjectCount,
			SmallSize:   DefaultSmallObjectSize,
			Collections: DefaultPromotionCollections,
			LargeCount:  DefaultLargeObjectCount,
			LargeSize:   DefaultLargeObjectSize,
			PinnedCount: DefaultPinnedObjectCount,
		},
	}
}

// LoadConfig reads an optional YAML file over the defaults, then applies
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvAddr)); v != "" {
		c.Addr = v
	}
	ints := []struct {
		key string
		dst *int
	}{
		{EnvExitCode, &c.ExitCode},
		{EnvStressWorkers, &c.Stress.Workers},
		{EnvStressIterations, &c.Stress.Iterations},
	}
	for _, e := range ints {
		raw := strings.TrimSpace(getenv(e.key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, e.key, raw, err)
		}
		*e.dst = n
	}
	if raw := strings.TrimSpace(getenv(EnvShutdownTimeout)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvShutdownTimeout, raw, err)
		}
		c.ShutdownTimeout = d
	}
	return nil
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field and reports all failures at once
func (c Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, "; "))
}
