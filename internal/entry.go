// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/glamcal/internal/api"
	"github.com/starford/glamcal/internal/auth"
	"github.com/starford/glamcal/internal/backup"
	"github.com/starford/glamcal/internal/ics"
	"github.com/starford/glamcal/internal/mcpserver"
	"github.com/starford/glamcal/internal/scheduling"
	"github.com/starford/glamcal/internal/sse"
)

// calendarThrottle is the minimum gap between calendar.updated events.
const calendarThrottle = 2 * time.Second

type bootstrap struct {
	config  *Config
	version string
	logger  *slog.Logger
}

func newApplication(opts []Option) (*bootstrap, error) {
	app := &application{version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, errNoConfig
	}

	out := app.logOutput
	if out == nil {
		out = os.Stdout
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)

	return &bootstrap{config: app.config, version: app.version, logger: logger}, nil
}

// Run starts the HTTP server, the file watcher and the backup scheduler and
// blocks until a shutdown signal or a fatal error.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_path", cfg.Data.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", string(cfg.Auth.Mode)),
		slog.Bool("backup_enabled", cfg.Backup.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	checker, err := cfg.Auth.Checker()
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	// SSE broker.
	broker := sse.NewBroker(calendarThrottle)
	defer broker.Close()

	c, err := openCore(ctx, cfg, logger, true, scheduling.WithListener(broker.Listener()))
	if err != nil {
		return err
	}
	defer c.Close()

	exportOpts, err := c.exportOptions()
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newRouter(c, checker, broker, exportOpts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gCtx)
	defer cancel()

	// Start file watcher; external edits reload state and reach SSE clients
	// through the scheduling listener.
	g.Go(func() error {
		if err := c.watch(runCtx); err != nil {
			logger.Warn("file watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start scheduled backups.
	if cfg.Backup.Enabled {
		g.Go(func() error {
			b := backup.New(c.files, backup.WithKeep(cfg.Backup.Keep), backup.WithLogger(logger))
			if err := b.Run(runCtx, cfg.Backup.Schedule); err != nil {
				return fmt.Errorf("backup scheduler: %w", err)
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// newRouter builds the root chi router: middleware, health endpoints and the
// API under /api.
func newRouter(c *core, checker *auth.Checker, events http.Handler, export ics.ExportOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := c.files.List(""); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(c.svc, checker, events, export))

	return r
}

// RunMCP serves the scheduling tools over stdio until the client disconnects.
// External edits are picked up by the file watcher meanwhile.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	c, err := openCore(ctx, app.config, app.logger, true)
	if err != nil {
		return err
	}
	defer c.Close()

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, cancel := context.WithCancel(gCtx)
	defer cancel()

	g.Go(func() error {
		if err := c.watch(watchCtx); err != nil {
			app.logger.Warn("file watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		defer cancel()
		app.logger.Info("MCP server starting on stdio", slog.String("version", app.version))
		if err := mcpserver.New(c.svc, app.version).ServeStdio(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
