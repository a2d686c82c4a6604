// Package watcher reports edits made to the persisted blobs by other
// programs (a text editor, a sync client, a restored backup).
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before it is reported.
const DefaultDebounce = 200 * time.Millisecond

// ChangeFunc is called with the base name of a changed file, once per burst
// of events.
type ChangeFunc func(name string)

// Watcher watches the top level of a directory.
type Watcher struct {
	dir      string
	names    map[string]struct{}
	debounce time.Duration
	logger   *slog.Logger
}

// New creates a watcher on dir that reports only the given file names.
func New(dir string, names []string, logger *slog.Logger) *Watcher {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return &Watcher{dir: dir, names: set, debounce: DefaultDebounce, logger: logger}
}

// SetDebounce overrides DefaultDebounce.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Run processes file events until ctx is cancelled. Writes, creates and
// renames onto a watched name restart that name's quiet period; onChange is
// called from Run's goroutine when it elapses.
func (w *Watcher) Run(ctx context.Context, onChange ChangeFunc) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info("watcher: started", slog.String("dir", w.dir))

	pending := make(map[string]time.Time)
	var timer *time.Timer
	var timerC <-chan time.Time

	schedule := func() {
		if len(pending) == 0 {
			return
		}
		var next time.Time
		for _, due := range pending {
			if next.IsZero() || due.Before(next) {
				next = due
			}
		}
		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}
		if timer == nil {
			timer = time.NewTimer(wait)
			timerC = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-timerC:
			now := time.Now()
			for name, due := range pending {
				if !due.After(now) {
					delete(pending, name)
					w.logger.Debug("watcher: changed", slog.String("file", name))
					onChange(name)
				}
			}
			schedule()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if _, watched := w.names[name]; !watched {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			pending[name] = time.Now().Add(w.debounce)
			schedule()

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
