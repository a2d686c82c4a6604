package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/starford/glamcal/internal/ics"
	"github.com/starford/glamcal/internal/index"
	"github.com/starford/glamcal/internal/persist"
	"github.com/starford/glamcal/internal/scheduling"
	"github.com/starford/glamcal/internal/seed"
	"github.com/starford/glamcal/internal/storage"
	"github.com/starford/glamcal/internal/store"
	"github.com/starford/glamcal/internal/watcher"
)

// core is the state shared by every entry point: the data directory, the
// persistence adapter, the search index and the scheduling service.
type core struct {
	cfg     *Config
	logger  *slog.Logger
	files   *storage.FS
	adapter *persist.Adapter
	db      *index.DB // nil when opened without an index
	svc     *scheduling.Service
}

// openCore loads the persisted state under cfg.Data.Path and builds the
// scheduling service. withIndex opens the SQLite search index.
func openCore(ctx context.Context, cfg *Config, logger *slog.Logger, withIndex bool, opts ...scheduling.Option) (*core, error) {
	if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	files, err := storage.NewFS(cfg.Data.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	popts := []persist.Option{persist.WithLogger(logger)}
	if cfg.Data.SeedFile != "" {
		catalog, err := seed.Load(cfg.Data.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("load seed: %w", err)
		}
		popts = append(popts, persist.WithSeed(catalog))
	}
	adapter := persist.New(files, popts...)

	appts := adapter.LoadAppointments(ctx)
	services := adapter.LoadServices(ctx)
	settings := adapter.LoadSettings(ctx)

	c := &core{cfg: cfg, logger: logger, files: files, adapter: adapter}

	sopts := []scheduling.Option{
		scheduling.WithConfig(cfg.Scheduling.Scheduling()),
		scheduling.WithLogger(logger),
	}
	if withIndex {
		db, err := index.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		c.db = db
		sopts = append(sopts, scheduling.WithIndex(db))
	}

	c.svc = scheduling.New(
		store.NewAppointments(appts, adapter),
		store.NewServices(services, adapter),
		settings,
		adapter,
		append(sopts, opts...)...,
	)

	if err := c.svc.SyncIndex(); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	if day, err := c.svc.InitSelection(); err != nil {
		logger.Warn("no open day found for initial selection", slog.String("error", err.Error()))
	} else {
		logger.Debug("initial selection", slog.String("date", day.String()))
	}

	logger.Info("Data loaded",
		slog.Int("appointments", len(appts)),
		slog.Int("services", len(services)),
		slog.Int("closed_ranges", len(settings.ClosedDays.CustomRanges)))

	return c, nil
}

// Close releases the search index.
func (c *core) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// watch reloads blobs edited by other programs until ctx is cancelled.
func (c *core) watch(ctx context.Context) error {
	names := make([]string, len(persist.Keys))
	for i, k := range persist.Keys {
		names[i] = k.File()
	}
	w := watcher.New(c.cfg.Data.Path, names, c.logger)
	return w.Run(ctx, func(name string) {
		c.reload(ctx, name)
	})
}

// reload applies an external edit of the named file. Files the adapter
// itself wrote last are ignored; unreadable ones keep the current state.
func (c *core) reload(ctx context.Context, name string) {
	key, ok := persist.KeyForFile(name)
	if !ok {
		return
	}
	changed, err := c.adapter.Changed(key)
	if err != nil {
		c.logger.Warn("reload: check failed", slog.String("key", string(key)), slog.String("error", err.Error()))
		return
	}
	if !changed {
		return
	}

	switch key {
	case persist.KeyAppointments:
		list, err := c.adapter.ReadAppointments(ctx)
		if err != nil {
			c.reloadFailed(key, err)
			return
		}
		c.svc.ReloadAppointments(list)
	case persist.KeyServices:
		list, err := c.adapter.ReadServices(ctx)
		if err != nil {
			c.reloadFailed(key, err)
			return
		}
		c.svc.ReloadServices(list)
	case persist.KeySettings:
		st, err := c.adapter.ReadSettings(ctx)
		if err != nil {
			c.reloadFailed(key, err)
			return
		}
		c.svc.ReloadSettings(st)
	}
}

func (c *core) reloadFailed(key persist.Key, err error) {
	c.logger.Warn("reload: keeping current state",
		slog.String("key", string(key)),
		slog.Bool("corrupt", persist.IsCorrupt(err)),
		slog.String("error", err.Error()))
}

// exportOptions builds the ICS settings from the config.
func (c *core) exportOptions() (ics.ExportOptions, error) {
	loc, err := c.cfg.ICS.Location()
	if err != nil {
		return ics.ExportOptions{}, fmt.Errorf("ics timezone: %w", err)
	}
	return ics.ExportOptions{
		Location:     loc,
		ProductID:    c.cfg.ICS.ProductID,
		CalendarName: "GlamCal",
	}, nil
}

// ExportICS writes the appointments and closed days as an iCalendar feed.
func ExportICS(ctx context.Context, w io.Writer, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := openCore(ctx, app.config, app.logger, false)
	if err != nil {
		return err
	}
	defer c.Close()

	eopts, err := c.exportOptions()
	if err != nil {
		return err
	}
	eopts.Now = time.Now()
	settings := c.svc.Settings()
	if err := ics.Export(w, c.svc.Appointments(), settings.ClosedDays, eopts); err != nil {
		return fmt.Errorf("export ics: %w", err)
	}
	return nil
}

var errNoConfig = errors.New("config is required")
