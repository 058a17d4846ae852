package procfixture

import (
	"context"
	"os"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/axondata/go-procfixture/internal/unix"
)

// Injector implements the behaviour behind each fault route. Faults that
// raise do so by panicking with a typed error, so the error escapes the
// handler exactly as an unhandled error would.
type Injector struct {
	// Config sizes the faults
	Config Config

	metrics *Metrics
	log     zerolog.Logger
	exit    func(int)
}

// InjectorOption configures an Injector
type InjectorOption func(*Injector)

// WithMetrics records fault activity on m
func WithMetrics(m *Metrics) InjectorOption {
	return func(i *Injector) {
		i.metrics = m
	}
}

// WithLogger sets the logger used for fault activity
func WithLogger(l zerolog.Logger) InjectorOption {
	return func(i *Injector) {
		i.log = l
	}
}

// WithExitFunc replaces os.Exit for the terminate fault
func WithExitFunc(fn func(int)) InjectorOption {
	return func(i *Injector) {
		i.exit = fn
	}
}

// NewInjector creates an Injector for cfg
func NewInjector(cfg Config, opts ...InjectorOption) *Injector {
	i := &Injector{
		Config: cfg,
		log:    zerolog.Nop(),
		exit:   os.Exit,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Handler returns the handler for a fault, or nil for FaultUnknown
func (i *Injector) Handler(f Fault) HandlerFunc {
	switch f {
	case FaultThrowInvalidOperation:
		return i.ThrowInvalidOperation
	case FaultFullGC:
		return i.FullGC
	case FaultMemIncrease:
		return func(ctx context.Context) { i.MemIncrease(ctx) }
	case FaultThrowAndCatch:
		return i.ThrowAndCatch
	case FaultThrowArgument:
		return i.ThrowArgument
	case FaultTerminate:
		return i.Terminate
	case FaultStress:
		return i.Stress
	default:
		return nil
	}
}

// ThrowInvalidOperation raises an unhandled InvalidOperationError
func (i *Injector) ThrowInvalidOperation(ctx context.Context) {
	panic(&InvalidOperationError{Fault: FaultThrowInvalidOperation})
}

// ThrowArgument raises an unhandled ArgumentError
func (i *Injector) ThrowArgument(ctx context.Context) {
	panic(&ArgumentError{Fault: FaultThrowArgument})
}

// ThrowAndCatch raises an InvalidOperationError, swallows it, then raises a
// fresh one that escapes.
func (i *Injector) ThrowAndCatch(ctx context.Context) {
	i.catch(func() {
		panic(&InvalidOperationError{Fault: FaultThrowAndCatch})
	})
	panic(&InvalidOperationError{Fault: FaultThrowAndCatch})
}

// FullGC runs a blocking full collection
func (i *Injector) FullGC(ctx context.Context) {
	runtime.GC()
}

// Terminate exits the process with the configured code. Nothing is written
// to the response first.
func (i *Injector) Terminate(ctx context.Context) {
	i.log.Warn().Err(ExitError{Code: i.Config.ExitCode}).Msg("terminate requested")
	i.exit(i.Config.ExitCode)
}

// catch runs fn and recovers an error it raises.
func (i *Injector) catch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err, _ := r.(error)
			i.metrics.RecordRaised(err, true)
		}
	}()
	fn()
}

// MemReport describes the allocations made by MemIncrease.
type MemReport struct {
	SmallBytes  int
	LargeBytes  int
	PinnedBytes int
	// Locked is the number of pinned buffers whose pages were locked
	Locked      int
	Collections int
}

// Total returns the number of bytes allocated
func (r MemReport) Total() int {
	return r.SmallBytes + r.LargeBytes + r.PinnedBytes
}

// MemIncrease allocates three populations and keeps them alive until it
// returns: small buffers retained across several full collections, large
// buffers each followed by a collection, and pinned buffers whose pages are
// locked in memory. Buffers over 32KiB bypass the size-classed spans and are
// allocated as dedicated large-object spans by the Go allocator.
func (i *Injector) MemIncrease(ctx context.Context) MemReport {
	mc := i.Config.Memory
	var report MemReport

	small := make([][]byte, 0, mc.SmallCount)
	for n := 0; n < mc.SmallCount; n++ {
		small = append(small, make([]byte, mc.SmallSize))
		report.SmallBytes += mc.SmallSize
	}
	for n := 0; n < mc.Collections; n++ {
		runtime.GC()
		report.Collections++
	}

	large := make([][]byte, 0, mc.LargeCount)
	for n := 0; n < mc.LargeCount; n++ {
		large = append(large, make([]byte, mc.LargeSize))
		report.LargeBytes += mc.LargeSize
		runtime.GC()
		report.Collections++
	}

	pinned := make([][]byte, 0, mc.PinnedCount)
	var locked [][]byte
	defer func() {
		for _, b := range locked {
			_ = unix.Unlock(b)
		}
	}()
	for n := 0; n < mc.PinnedCount; n++ {
		b := make([]byte, mc.LargeSize)
		pinned = append(pinned, b)
		report.PinnedBytes += mc.LargeSize
		if unix.Supported {
			if err := unix.Lock(b); err != nil {
				// usually RLIMIT_MEMLOCK; the buffer is still retained
				i.log.Debug().Err(err).Int("size", len(b)).Msg("mlock failed")
			} else {
				locked = append(locked, b)
				report.Locked++
			}
		}
		runtime.GC()
		report.Collections++
	}

	i.metrics.addAllocated(report.Total())
	i.log.Debug().
		Int("small_bytes", report.SmallBytes).
		Int("large_bytes", report.LargeBytes).
		Int("pinned_bytes", report.PinnedBytes).
		Int("locked", report.Locked).
		Msg("memory increased")

	runtime.KeepAlive(small)
	runtime.KeepAlive(large)
	runtime.KeepAlive(pinned)
	return report
}

// Stress starts the configured number of workers and returns without waiting
// for them. Each worker owns an OS thread for its lifetime and raises and
// recovers an InvalidOperationError on every iteration. Workers share no
// state and cannot be cancelled.
func (i *Injector) Stress(ctx context.Context) {
	workers := i.Config.Stress.Workers
	iterations := i.Config.Stress.Iterations
	i.metrics.addWorkers(workers)
	for n := 0; n < workers; n++ {
		go i.stressWorker(iterations)
	}
	i.log.Debug().Int("workers", workers).Int("iterations", iterations).Msg("stress started")
}

func (i *Injector) stressWorker(iterations int) {
	// never unlocked: the thread is retired when the goroutine exits
	runtime.LockOSThread()
	defer i.metrics.addWorkers(-1)
	for n := 0; n < iterations; n++ {
		i.catch(func() {
			panic(&InvalidOperationError{Fault: FaultStress})
		})
	}
}
