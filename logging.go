package procfixture

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Logging environment variables
const (
	EnvLogLevel   = "PROCFIXTURE_LOG_LEVEL"
	EnvLogNoColor = "PROCFIXTURE_LOG_NOCOLOR"
	EnvLogJSON    = "PROCFIXTURE_LOG_JSON"
)

// LogProfile selects the logging defaults
type LogProfile int

const (
	// ProfileRuntime logs at info with timestamps
	ProfileRuntime LogProfile = iota
	// ProfileTest logs at debug without timestamps
	ProfileTest
)

var (
	loggerOnce sync.Once
	logger     zerolog.Logger
)

// Logger returns the process logger, configuring the runtime profile on first use
func Logger() zerolog.Logger {
	ConfigureLogging(ProfileRuntime, os.Stderr)
	return logger
}

// ConfigureLogging sets the process logger once; later calls are no-ops
func ConfigureLogging(profile LogProfile, out io.Writer) {
	loggerOnce.Do(func() {
		logger = NewLogger(profile, out, os.Getenv)
	})
}

// NewLogger builds a logger for a profile with environment overrides applied
func NewLogger(profile LogProfile, out io.Writer, getenv func(string) string) zerolog.Logger {
	level := zerolog.InfoLevel
	timestamp := true
	if profile == ProfileTest {
		level = zerolog.DebugLevel
		timestamp = false
	}
	if lvl, ok := parseLevel(getenv(EnvLogLevel)); ok {
		level = lvl
	}

	noColor, _ := parseBool(getenv(EnvLogNoColor))
	asJSON, ok := parseBool(getenv(EnvLogJSON))
	if !ok {
		f, isFile := out.(*os.File)
		asJSON = !isFile || !isatty.IsTerminal(f.Fd())
	}

	w := out
	if !asJSON {
		w = zerolog.ConsoleWriter{Out: out, NoColor: noColor, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(w).Level(level).With()
	if timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
