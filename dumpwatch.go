package procfixture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// DefaultDumpDebounce is how long a dump file must stay quiet before it is
// reported, so a dump still being written is reported once.
const DefaultDumpDebounce = 250 * time.Millisecond

// DumpEvent reports a dump file that appeared in a watched directory
type DumpEvent struct {
	Path    string
	Size    int64
	ModTime time.Time
	Err     error
}

// StopFunc stops a watch and waits for its goroutines to exit
type StopFunc func() error

// WatchDumps reports every file created in dir whose base name matches the
// glob pattern, once it has stopped changing for debounce. Files present
// before the call are not reported. The channel is closed after stop is
// called or ctx is done.
func WatchDumps(ctx context.Context, dir, pattern string, debounce time.Duration) (<-chan DumpEvent, StopFunc, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, nil, &OpError{Path: pattern, Err: err}
	}
	if debounce <= 0 {
		debounce = DefaultDumpDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, &OpError{Path: dir, Err: err}
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, nil, &OpError{Path: dir, Err: err}
	}

	ch := make(chan DumpEvent, 16)
	ready := make(chan string)
	timers := make(map[string]*time.Timer)
	seen := make(map[string]bool)

	sctx := stopper.WithContext(ctx)

	sctx.Defer(func() {
		for _, t := range timers {
			t.Stop()
		}
		_ = watcher.Close()
		close(ch)
	})

	stop := func() error {
		sctx.Stop(100 * time.Millisecond)
		return sctx.Wait()
	}

	send := func(sctx *stopper.Context, ev DumpEvent) bool {
		select {
		case ch <- ev:
			return true
		case <-sctx.Stopping():
			return false
		}
	}

	sctx.Go(func(sctx *stopper.Context) error {
		for {
			select {
			case <-sctx.Stopping():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if match, _ := filepath.Match(pattern, filepath.Base(event.Name)); !match {
					continue
				}
				path := event.Name
				if seen[path] {
					continue
				}
				// writes only extend a dump whose creation was observed
				if t, ok := timers[path]; ok {
					if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
						t.Reset(debounce)
					}
					continue
				}
				if !event.Has(fsnotify.Create) {
					continue
				}
				timers[path] = time.AfterFunc(debounce, func() {
					select {
					case ready <- path:
					case <-sctx.Stopping():
					}
				})

			case path := <-ready:
				delete(timers, path)
				if seen[path] {
					// a timer reset after it fired
					continue
				}
				info, err := os.Stat(path)
				if err != nil {
					// removed before it settled
					continue
				}
				seen[path] = true
				if !send(sctx, DumpEvent{Path: path, Size: info.Size(), ModTime: info.ModTime()}) {
					return nil
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil && !send(sctx, DumpEvent{Err: err}) {
					return nil
				}
			}
		}
	})

	return ch, stop, nil
}

// WaitForDump returns the first dump matching pattern in dir, including one
// that already exists when it is called.
func WaitForDump(ctx context.Context, dir, pattern string) (DumpEvent, error) {
	events, stop, err := WatchDumps(ctx, dir, pattern, DefaultDumpDebounce)
	if err != nil {
		return DumpEvent{}, err
	}
	defer func() { _ = stop() }()

	// the watch is armed first so a dump landing between the glob and the
	// watch is not missed
	existing, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return DumpEvent{}, &OpError{Path: pattern, Err: err}
	}
	sort.Strings(existing)
	for _, path := range existing {
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return DumpEvent{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
		}
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return DumpEvent{}, fmt.Errorf("watching %s: watch closed", dir)
			}
			if ev.Err != nil {
				return DumpEvent{}, &OpError{Path: dir, Err: ev.Err}
			}
			return ev, nil
		case <-ctx.Done():
			return DumpEvent{}, ctx.Err()
		}
	}
}
