// Package testutil provides shared test helpers for setting up data
// directories, databases and scheduling services.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/index"
	"github.com/starford/glamcal/internal/models"
	"github.com/starford/glamcal/internal/persist"
	"github.com/starford/glamcal/internal/scheduling"
	"github.com/starford/glamcal/internal/storage"
	"github.com/starford/glamcal/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "glamcal-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDataDir creates a temporary data directory with a storage.Provider.
func TestDataDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, files
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Clock returns a clock fixed at 09:00 local time on day.
func Clock(day string) func() time.Time {
	t := datekey.MustParse(day).Time(time.Local).Add(9 * time.Hour)
	return func() time.Time { return t }
}

// Env is a scheduling service persisted to a temporary data directory.
type Env struct {
	Dir     string
	Files   *storage.FS
	Adapter *persist.Adapter
	Service *scheduling.Service
}

// TestService builds a scheduling service whose clock reads today, backed by
// the default catalog and settings, the given appointments and a temporary
// data directory.
func TestService(t *testing.T, today string, appts []models.Appointment, opts ...scheduling.Option) *Env {
	t.Helper()
	dir, files := TestDataDir(t)
	clock := Clock(today)
	adapter := persist.New(files, persist.WithLogger(Logger()), persist.WithClock(clock))

	svc := scheduling.New(
		store.NewAppointments(appts, adapter),
		store.NewServices(persist.DefaultServices(), adapter),
		persist.DefaultSettings(),
		adapter,
		append([]scheduling.Option{scheduling.WithClock(clock), scheduling.WithLogger(Logger())}, opts...)...,
	)
	return &Env{Dir: dir, Files: files, Adapter: adapter, Service: svc}
}
