//go:build linux || darwin

package procfixture

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/axondata/go-procfixture/internal/unix"
)

// highestCaughtSignal is the last signal number CatchSignals subscribes to
const highestCaughtSignal = 23

// CatchableSignals returns signals 1 through 23, without the two that
// cannot be caught and without SIGURG. The Go runtime sends SIGURG to its
// own threads to preempt goroutines, so a subscription would report it
// whether or not anyone forwarded it.
func CatchableSignals() []os.Signal {
	sigs := make([]os.Signal, 0, highestCaughtSignal)
	for n := 1; n <= highestCaughtSignal; n++ {
		sig := syscall.Signal(n)
		if sig == syscall.SIGKILL || sig == syscall.SIGSTOP || sig == syscall.SIGURG {
			continue
		}
		sigs = append(sigs, sig)
	}
	return sigs
}

// CatchSignals writes "Caught signal: N" to w for every catchable signal
// delivered to the process, so a monitor that intercepts signals can be
// checked for forwarding them. SIGINT calls exit(-1). It returns when ctx is
// done.
func CatchSignals(ctx context.Context, w io.Writer, exit func(int), logger zerolog.Logger) error {
	ch := make(chan os.Signal, 32)
	signal.Notify(ch, CatchableSignals()...)
	defer signal.Stop(ch)
	return handleSignals(ctx, ch, w, exit, logger)
}

func handleSignals(ctx context.Context, ch <-chan os.Signal, w io.Writer, exit func(int), logger zerolog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-ch:
			s, ok := sig.(syscall.Signal)
			if !ok {
				continue
			}
			logger.Debug().Int("signal", int(s)).Str("name", unix.SignalName(s)).Msg("signal received")
			if s == syscall.SIGINT {
				exit(-1)
				return nil
			}
			if _, err := fmt.Fprintf(w, "Caught signal: %d\n", int(s)); err != nil {
				return err
			}
		}
	}
}
