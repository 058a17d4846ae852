package procfixture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axondata/go-procfixture/internal/unix"
)

// runUntilReady runs a workload, cancels it once it reports ready and
// returns the reported stats.
func runUntilReady(t *testing.T, mode Mode, opts WorkloadOptions) WorkloadStats {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	statsCh := make(chan WorkloadStats, 1)
	opts.Ready = func(s WorkloadStats) {
		statsCh <- s
		cancel()
	}

	require.NoError(t, RunWorkload(ctx, mode, opts))
	select {
	case s := <-statsCh:
		return s
	default:
		t.Fatalf("%s never became ready", mode)
		return WorkloadStats{}
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes() {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMode(" MEM ")
	require.NoError(t, err)
	assert.Equal(t, ModeMemory, got)

	_, err = ParseMode("disk")
	require.ErrorIs(t, err, ErrUnknownMode)
}

func TestRunWorkloadUnknownMode(t *testing.T) {
	err := RunWorkload(context.Background(), Mode("disk"), DefaultWorkloadOptions())
	require.ErrorIs(t, err, ErrUnknownMode)
}

func TestWorkloadSleep(t *testing.T) {
	s := runUntilReady(t, ModeSleep, DefaultWorkloadOptions())
	assert.Equal(t, ModeSleep, s.Mode)
}

func TestWorkloadBurn(t *testing.T) {
	s := runUntilReady(t, ModeBurn, DefaultWorkloadOptions())
	assert.Equal(t, 1, s.Threads)
}

func TestWorkloadFileCount(t *testing.T) {
	file := filepath.Join(t.TempDir(), "held")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	opts := DefaultWorkloadOptions()
	opts.FileCount = 20
	opts.File = file
	s := runUntilReady(t, ModeFileCount, opts)
	assert.Equal(t, 20, s.Files)
}

func TestWorkloadFileCountMissingFile(t *testing.T) {
	opts := DefaultWorkloadOptions()
	opts.FileCount = 2
	opts.File = filepath.Join(t.TempDir(), "missing")

	err := RunWorkload(context.Background(), ModeFileCount, opts)
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWorkloadThreadCount(t *testing.T) {
	opts := DefaultWorkloadOptions()
	opts.ThreadCount = 8
	s := runUntilReady(t, ModeThreadCount, opts)
	assert.Equal(t, 8, s.Threads)
}

func TestWorkloadMemory(t *testing.T) {
	opts := DefaultWorkloadOptions()
	opts.MemDelay = 0
	opts.MemRounds = 3
	opts.MemSize = 100

	s := runUntilReady(t, ModeMemory, opts)
	assert.Equal(t, 12, s.Allocations)
	// filled, zeroed, doubled and an array of ten doubled buffers per round
	assert.Equal(t, 3*(100+100+200+2000), s.Bytes)
	if unix.Supported {
		assert.LessOrEqual(t, s.Locked, 9)
	} else {
		assert.Zero(t, s.Locked)
	}
}

func TestWorkloadMemoryCancelledDuringDelay(t *testing.T) {
	opts := DefaultWorkloadOptions()
	opts.MemDelay = time.Hour
	called := false
	opts.Ready = func(WorkloadStats) { called = true }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, RunWorkload(ctx, ModeMemory, opts))
	assert.False(t, called)
}
