// Package backup takes scheduled snapshots of the data directory.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/starford/glamcal/internal/storage"
)

// Dir is the data-root sub-directory holding snapshots.
const Dir = "backups"

// DefaultSchedule runs a snapshot every night at 03:00.
const DefaultSchedule = "0 3 * * *"

// DefaultKeep is the number of snapshots retained when none is configured.
const DefaultKeep = 14

const snapshotLayout = "20060102T150405"

// Backups copies the top-level blobs of a storage.Provider into timestamped
// snapshot directories and prunes old ones.
type Backups struct {
	files  storage.Provider
	keep   int
	now    func() time.Time
	logger *slog.Logger
}

// Option configures Backups.
type Option func(*Backups)

// WithKeep sets how many snapshots survive pruning. n <= 0 selects
// DefaultKeep.
func WithKeep(n int) Option {
	return func(b *Backups) {
		if n > 0 {
			b.keep = n
		}
	}
}

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Backups) { b.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backups) { b.logger = l }
}

// New creates a Backups over files.
func New(files storage.Provider, opts ...Option) *Backups {
	b := &Backups{files: files, keep: DefaultKeep, now: time.Now, logger: slog.Default()}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Snapshot copies every top-level .json file into backups/<timestamp>/ and
// prunes old snapshots. It returns the snapshot directory.
func (b *Backups) Snapshot(ctx context.Context) (string, error) {
	entries, err := b.files.List("")
	if err != nil {
		return "", fmt.Errorf("backup: list: %w", err)
	}
	dir := path.Join(Dir, b.now().UTC().Format(snapshotLayout))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		data, err := b.files.Read(e.Path)
		if err != nil {
			return "", fmt.Errorf("backup: read %s: %w", e.Path, err)
		}
		if err := b.files.Write(path.Join(dir, path.Base(e.Path)), data); err != nil {
			return "", fmt.Errorf("backup: write %s: %w", e.Path, err)
		}
	}
	b.logger.Info("backup snapshot written", "dir", dir, "files", len(entries))

	if _, err := b.Prune(); err != nil {
		return dir, err
	}
	return dir, nil
}

// Prune deletes all but the newest keep snapshots and returns the names of
// the removed ones.
func (b *Backups) Prune() ([]string, error) {
	names, err := b.Snapshots()
	if err != nil {
		return nil, err
	}
	if len(names) <= b.keep {
		return nil, nil
	}
	stale := names[:len(names)-b.keep]
	for _, name := range stale {
		if err := b.files.DeleteAll(path.Join(Dir, name)); err != nil {
			return nil, fmt.Errorf("backup: prune %s: %w", name, err)
		}
	}
	b.logger.Info("backup snapshots pruned", "removed", len(stale))
	return stale, nil
}

// Snapshots lists snapshot names, oldest first.
func (b *Backups) Snapshots() ([]string, error) {
	names, err := b.files.Dirs(Dir)
	if err != nil {
		return nil, fmt.Errorf("backup: list snapshots: %w", err)
	}
	return names, nil
}

// ValidateSchedule reports whether spec is a valid five-field cron
// expression (or descriptor such as @daily).
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("backup: schedule %q: %w", spec, err)
	}
	return nil
}

// Run takes a snapshot on every tick of schedule until ctx is done.
// Snapshot failures are logged and do not stop the scheduler.
func (b *Backups) Run(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := b.Snapshot(ctx); err != nil {
			b.logger.Error("backup snapshot failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("backup: schedule %q: %w", schedule, err)
	}
	b.logger.Info("backup scheduler started", "schedule", schedule, "keep", b.keep)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	b.logger.Info("backup scheduler stopped")
	return nil
}
