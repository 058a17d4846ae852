package procfixture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchDumps(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, stop, err := WatchDumps(ctx, dir, "testwebapi_*", 50*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = stop() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))
	dump := filepath.Join(dir, "testwebapi_exception_2024-01-01_00:00:00.1234")
	require.NoError(t, os.WriteFile(dump, []byte("core"), 0o644))

	select {
	case ev := <-events:
		require.NoError(t, ev.Err)
		assert.Equal(t, dump, ev.Path)
		assert.Equal(t, int64(4), ev.Size)
	case <-ctx.Done():
		t.Fatal("timed out waiting for dump event")
	}

	// further writes to a reported dump are not reported again
	require.NoError(t, os.WriteFile(dump, []byte("core core"), 0o644))
	select {
	case ev := <-events:
		t.Fatalf("unexpected event for %s", ev.Path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchDumpsDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, stop, err := WatchDumps(ctx, dir, "*.core", 150*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = stop() }()

	path := filepath.Join(dir, "app.core")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := f.Write([]byte("chunk"))
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	select {
	case ev := <-events:
		require.NoError(t, ev.Err)
		assert.Equal(t, int64(25), ev.Size)
	case <-ctx.Done():
		t.Fatal("timed out waiting for dump event")
	}
}

func TestWatchDumpsStopClosesChannel(t *testing.T) {
	events, stop, err := WatchDumps(context.Background(), t.TempDir(), "*", 0)
	require.NoError(t, err)
	require.NoError(t, stop())

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after stop")
	}
}

func TestWatchDumpsErrors(t *testing.T) {
	_, _, err := WatchDumps(context.Background(), t.TempDir(), "[", 0)
	require.Error(t, err)

	_, _, err = WatchDumps(context.Background(), filepath.Join(t.TempDir(), "missing"), "*", 0)
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
}

func TestWaitForDumpExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "core.dir"), 0o755))
	existing := filepath.Join(dir, "core.1234")
	require.NoError(t, os.WriteFile(existing, []byte("dump"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev, err := WaitForDump(ctx, dir, "core.*")
	require.NoError(t, err)
	assert.Equal(t, existing, ev.Path)
}

func TestWaitForDumpNew(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	path := filepath.Join(dir, "core.5678")
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = os.WriteFile(path, []byte("dump"), 0o644)
	}()

	ev, err := WaitForDump(ctx, dir, "core.*")
	require.NoError(t, err)
	assert.Equal(t, path, ev.Path)
}

func TestWaitForDumpTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := WaitForDump(ctx, t.TempDir(), "core.*")
	require.Error(t, err)
}

func TestWatchDumpsIgnoresExistingFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "app.core")
	require.NoError(t, os.WriteFile(existing, []byte("first"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, stop, err := WatchDumps(ctx, dir, "*.core", 50*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = stop() }()

	f, err := os.OpenFile(existing, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write([]byte(" more"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case ev := <-events:
		t.Fatalf("unexpected event for %s", ev.Path)
	case <-time.After(300 * time.Millisecond):
	}

	// a dump created after the watch started is still reported
	fresh := filepath.Join(dir, "new.core")
	require.NoError(t, os.WriteFile(fresh, []byte("dump"), 0o644))
	select {
	case ev := <-events:
		require.NoError(t, ev.Err)
		assert.Equal(t, fresh, ev.Path)
	case <-ctx.Done():
		t.Fatal("timed out waiting for dump event")
	}
}
