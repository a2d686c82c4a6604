// Package scheduling implements the booking workflow on top of the
// appointment store, the service catalog and the closure rules: saving
// (create or edit), deleting, follow-up projection, the current date
// selection, month and day views, and settings edits.
//
// A Service owns all mutable application state. It is safe for concurrent
// use; operations are serialized.
package scheduling

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/glamcal/internal/closure"
	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/index"
	"github.com/starford/glamcal/internal/models"
	"github.com/starford/glamcal/internal/store"
)

// SettingsSaver persists the settings blob.
type SettingsSaver interface {
	SaveSettings(ctx context.Context, s models.Settings) error
}

// Config holds the tunables of the booking workflow.
type Config struct {
	// FollowUpDays is the distance of a follow-up from its source appointment.
	FollowUpDays int
	// MaxSearchDays bounds the skip-forward over closed days.
	MaxSearchDays int
}

// DefaultConfig returns the default tunables.
func DefaultConfig() Config {
	return Config{FollowUpDays: 28, MaxSearchDays: closure.DefaultMaxSearchDays}
}

// Service is the application state plus the operations on it.
type Service struct {
	mu sync.Mutex

	appts         *store.Appointments
	services      *store.Services
	settings      models.Settings
	settingsSaver SettingsSaver

	selected    datekey.Key
	initialized bool

	index    index.AppointmentIndex
	listener Listener
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConfig overrides DefaultConfig. Zero fields keep their defaults.
func WithConfig(c Config) Option {
	return func(s *Service) {
		if c.FollowUpDays > 0 {
			s.cfg.FollowUpDays = c.FollowUpDays
		}
		if c.MaxSearchDays > 0 {
			s.cfg.MaxSearchDays = c.MaxSearchDays
		}
	}
}

// WithIndex attaches the search index. Without one, search falls back to a
// scan of the in-memory collection.
func WithIndex(idx index.AppointmentIndex) Option {
	return func(s *Service) { s.index = idx }
}

// WithListener registers the change listener.
func WithListener(l Listener) Option {
	return func(s *Service) { s.listener = l }
}

// WithClock overrides the clock that defines "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service over the given stores and settings. The selection
// starts at today; call InitSelection to move it off a closed day.
func New(appts *store.Appointments, services *store.Services, settings models.Settings, saver SettingsSaver, opts ...Option) *Service {
	s := &Service{
		appts:         appts,
		services:      services,
		settings:      settings.Clone(),
		settingsSaver: saver,
		cfg:           DefaultConfig(),
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.selected = s.today()
	return s
}

// Config returns the effective tunables.
func (s *Service) Config() Config { return s.cfg }

func (s *Service) today() datekey.Key {
	return datekey.FromTime(s.now())
}

func (s *Service) emit(e Event) {
	if s.listener != nil {
		s.listener(e)
	}
}

func (s *Service) indexUpsert(a models.Appointment) {
	if s.index == nil {
		return
	}
	if err := s.index.UpsertAppointment(a); err != nil {
		s.logger.Warn("scheduling: index upsert failed", "id", a.ID, "error", err)
	}
}

func (s *Service) indexDelete(id string) {
	if s.index == nil {
		return
	}
	if err := s.index.DeleteAppointment(id); err != nil {
		s.logger.Warn("scheduling: index delete failed", "id", id, "error", err)
	}
}
