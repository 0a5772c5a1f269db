package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/datahub-cli/internal/parser"
)

// DefaultDebounce lets writers finish a file before it is handled.
const DefaultDebounce = 500 * time.Millisecond

// Handler processes one settled file.
type Handler func(ctx context.Context, path string) error

// Watcher monitors a drop directory and hands new spreadsheets to a Handler.
type Watcher struct {
	dir      string
	handle   Handler
	debounce time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

// New returns a watcher for dir. A non-positive debounce uses DefaultDebounce.
func New(dir string, handle Handler, debounce time.Duration, log zerolog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{dir: dir, handle: handle, debounce: debounce, log: log, timers: map[string]*time.Timer{}}
}

// Run watches until ctx is cancelled. Pending files are dropped on exit, but
// a handler already running is waited for.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.mu.Lock()
	w.closed = false
	w.mu.Unlock()
	w.log.Info().Str("dir", w.dir).Msg("watching for uploads")
	defer w.wg.Wait()
	defer w.cancelPending()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 && parser.Supported(evt.Name) {
				w.schedule(ctx, evt.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// Backfill handles files already present in the directory, in name order.
func (w *Watcher) Backfill(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && parser.Supported(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, n := range names {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.process(ctx, filepath.Join(w.dir, n))
	}
	return nil
}

// schedule restarts the quiet period for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, path)
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		// renamed away or removed before it settled
		return
	}
	if err := w.handle(ctx, path); err != nil {
		w.log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("upload skipped")
		return
	}
	w.log.Info().Str("file", filepath.Base(path)).Msg("upload processed")
}
