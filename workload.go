package procfixture

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/axondata/go-procfixture/internal/unix"
)

// Mode selects the state a monitored test application holds
type Mode string

// Workload modes
const (
	// ModeSleep idles
	ModeSleep Mode = "sleep"
	// ModeBurn spins one CPU
	ModeBurn Mode = "burn"
	// ModeFileCount holds many open file handles
	ModeFileCount Mode = "fc"
	// ModeThreadCount holds many parked OS threads
	ModeThreadCount Mode = "tc"
	// ModeMemory allocates and locks memory in several patterns
	ModeMemory Mode = "mem"
)

// Modes returns every workload mode
func Modes() []Mode {
	return []Mode{ModeSleep, ModeBurn, ModeFileCount, ModeThreadCount, ModeMemory}
}

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// WorkloadOptions sizes the workload modes
type WorkloadOptions struct {
	// FileCount is the number of handles opened by ModeFileCount
	FileCount int
	// ThreadCount is the number of threads parked by ModeThreadCount
	ThreadCount int
	// MemDelay is the pause before ModeMemory starts allocating, so a monitor
	// can attach first
	MemDelay time.Duration
	// MemRounds is the number of rounds of the four allocation patterns
	MemRounds int
	// MemSize is the base allocation size of each pattern
	MemSize int
	// File is opened repeatedly by ModeFileCount; defaults to the executable
	File string
	// Logger receives progress messages
	Logger zerolog.Logger
	// Ready is called once the mode has reached its steady state
	Ready func(WorkloadStats)
}

// WorkloadStats describes the steady state a workload reached
type WorkloadStats struct {
	Mode        Mode
	Files       int
	Threads     int
	Allocations int
	Bytes       int
	Locked      int
}

// DefaultWorkloadOptions returns the sizes used by the reference test application
func DefaultWorkloadOptions() WorkloadOptions {
	return WorkloadOptions{
		FileCount:   500,
		ThreadCount: 100,
		MemDelay:    10 * time.Second,
		MemRounds:   1000,
		MemSize:     10000,
		Logger:      zerolog.Nop(),
	}
}

// RunWorkload puts the process in the state selected by mode and holds it
// until ctx is done. Resources are released when it returns.
func RunWorkload(ctx context.Context, mode Mode, opts WorkloadOptions) error {
	switch mode {
	case ModeSleep:
		opts.ready(WorkloadStats{Mode: mode})
		<-ctx.Done()
		return nil
	case ModeBurn:
		return burn(ctx, opts)
	case ModeFileCount:
		return holdFiles(ctx, opts)
	case ModeThreadCount:
		return holdThreads(ctx, opts)
	case ModeMemory:
		return holdMemory(ctx, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, string(mode))
	}
}

func (o WorkloadOptions) ready(stats WorkloadStats) {
	o.Logger.Info().
		Str("mode", string(stats.Mode)).
		Int("files", stats.Files).
		Int("threads", stats.Threads).
		Int("allocations", stats.Allocations).
		Int("bytes", stats.Bytes).
		Msg("workload ready")
	if o.Ready != nil {
		o.Ready(stats)
	}
}

func burn(ctx context.Context, opts WorkloadOptions) error {
	opts.ready(WorkloadStats{Mode: ModeBurn, Threads: 1})
	done := ctx.Done()
	for {
		select {
		case <-done:
			return nil
		default:
		}
		// spin without yielding between checks
		for n := 0; n < 1<<20; n++ {
		}
	}
}

func holdFiles(ctx context.Context, opts WorkloadOptions) error {
	name := opts.File
	if name == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolving executable: %w", err)
		}
		name = exe
	}

	files := make([]*os.File, 0, opts.FileCount)
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	for n := 0; n < opts.FileCount; n++ {
		f, err := os.Open(name)
		if err != nil {
			return &OpError{Path: name, Err: fmt.Errorf("opening handle %d: %w", n, err)}
		}
		files = append(files, f)
	}

	opts.ready(WorkloadStats{Mode: ModeFileCount, Files: len(files)})
	<-ctx.Done()
	return nil
}

func holdThreads(ctx context.Context, opts WorkloadOptions) error {
	started := make(chan struct{}, opts.ThreadCount)
	released := make(chan struct{})
	for n := 0; n < opts.ThreadCount; n++ {
		go func() {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			started <- struct{}{}
			<-released
		}()
	}
	for n := 0; n < opts.ThreadCount; n++ {
		<-started
	}

	opts.ready(WorkloadStats{Mode: ModeThreadCount, Threads: opts.ThreadCount})
	<-ctx.Done()
	close(released)
	return nil
}

// holdMemory runs the four allocation patterns of the memory mode: a filled
// and locked buffer, a zeroed and locked buffer, a buffer grown to twice its
// size then filled and locked, and an unlocked array of ten doubled buffers.
func holdMemory(ctx context.Context, opts WorkloadOptions) error {
	select {
	case <-time.After(opts.MemDelay):
	case <-ctx.Done():
		return nil
	}

	size := opts.MemSize
	var held [][]byte
	var locked [][]byte
	defer func() {
		for _, b := range locked {
			_ = unix.Unlock(b)
		}
	}()

	lock := func(b []byte) {
		if unix.Supported && unix.Lock(b) == nil {
			locked = append(locked, b)
		}
	}

	stats := WorkloadStats{Mode: ModeMemory}
	for round := 0; round < opts.MemRounds; round++ {
		if ctx.Err() != nil {
			return nil
		}

		filled := make([]byte, size)
		fill(filled)
		lock(filled)

		zeroed := make([]byte, size)
		lock(zeroed)

		grown := append(make([]byte, size), make([]byte, size)...)
		fill(grown)
		lock(grown)

		array := make([]byte, 10*2*size)

		held = append(held, filled, zeroed, grown, array)
		stats.Allocations += 4
		stats.Bytes += len(filled) + len(zeroed) + len(grown) + len(array)
	}
	stats.Locked = len(locked)

	opts.ready(stats)
	<-ctx.Done()
	runtime.KeepAlive(held)
	return nil
}

func fill(b []byte) {
	for i := range b {
		b[i] = 'a'
	}
}
