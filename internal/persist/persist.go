// Package persist loads and saves the three GlamCal blobs (appointments,
// settings, services) as JSON files through a storage.Provider.
//
// Loading never fails: a missing blob yields the defaults and an unreadable
// one is moved to corrupt/ before the defaults take its place.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/glamcal/internal/checksum"
	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/models"
	"github.com/starford/glamcal/internal/seed"
	"github.com/starford/glamcal/internal/storage"
)

// ErrCorrupt marks persisted data that could not be decoded.
var ErrCorrupt = errors.New("corrupt data")

// Key names a persisted blob.
type Key string

// Blob keys.
const (
	KeyAppointments Key = "appointments"
	KeySettings     Key = "settings"
	KeyServices     Key = "services"
)

// Keys lists every blob key.
var Keys = []Key{KeyAppointments, KeySettings, KeyServices}

// File returns the file name of the blob.
func (k Key) File() string { return string(k) + ".json" }

// KeyForFile maps a file name back to its blob key.
func KeyForFile(name string) (Key, bool) {
	for _, k := range Keys {
		if k.File() == name {
			return k, true
		}
	}
	return "", false
}

// CorruptDir is where unreadable blobs are moved.
const CorruptDir = "corrupt"

// Adapter reads and writes blobs.
type Adapter struct {
	files  storage.Provider
	logger *slog.Logger
	now    func() time.Time
	seed   *seed.Catalog

	mu   sync.Mutex
	sums map[Key]string // checksum of the last content read or written
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithClock overrides the clock used for default dates and quarantine names.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// WithSeed makes the seed catalog override the default services and closures.
func WithSeed(c *seed.Catalog) Option {
	return func(a *Adapter) { a.seed = c }
}

// New creates an adapter over files.
func New(files storage.Provider, opts ...Option) *Adapter {
	a := &Adapter{
		files:  files,
		logger: slog.Default(),
		now:    time.Now,
		sums:   make(map[Key]string),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ---------------------------------------------------------------------------
// Strict reads
// ---------------------------------------------------------------------------

// ReadAppointments reads and decodes the stored appointments. A missing file
// yields an error matching fs.ErrNotExist, undecodable content one matching
// ErrCorrupt.
func (a *Adapter) ReadAppointments(ctx context.Context) ([]models.Appointment, error) {
	raw, err := a.read(ctx, KeyAppointments)
	if err != nil {
		return nil, err
	}
	list, notes, err := DecodeAppointments(raw)
	if err != nil {
		return nil, err
	}
	a.logNotes(KeyAppointments, notes)
	a.remember(KeyAppointments, raw)
	return list, nil
}

// ReadServices reads and decodes the stored service catalog.
func (a *Adapter) ReadServices(ctx context.Context) ([]models.Service, error) {
	raw, err := a.read(ctx, KeyServices)
	if err != nil {
		return nil, err
	}
	list, notes, err := DecodeServices(raw)
	if err != nil {
		return nil, err
	}
	a.logNotes(KeyServices, notes)
	a.remember(KeyServices, raw)
	return list, nil
}

// ReadSettings reads, migrates and normalizes the stored settings.
func (a *Adapter) ReadSettings(ctx context.Context) (models.Settings, error) {
	raw, err := a.read(ctx, KeySettings)
	if err != nil {
		return models.Settings{}, err
	}
	s, notes, err := DecodeSettings(raw)
	if err != nil {
		return models.Settings{}, err
	}
	a.logNotes(KeySettings, notes)
	a.remember(KeySettings, raw)
	return s, nil
}

// ---------------------------------------------------------------------------
// Lenient loads
// ---------------------------------------------------------------------------

// LoadAppointments returns the stored appointments, or the sample bookings
// when there are none or they cannot be read.
func (a *Adapter) LoadAppointments(ctx context.Context) []models.Appointment {
	list, err := a.ReadAppointments(ctx)
	if err == nil {
		return list
	}
	list = DefaultAppointments(datekey.FromTime(a.now()))
	a.fallback(ctx, KeyAppointments, err, list)
	return list
}

// LoadServices returns the stored catalog or the default one.
func (a *Adapter) LoadServices(ctx context.Context) []models.Service {
	list, err := a.ReadServices(ctx)
	if err == nil {
		return list
	}
	list = a.DefaultServices()
	a.fallback(ctx, KeyServices, err, list)
	return list
}

// LoadSettings returns the stored settings or the default ones.
func (a *Adapter) LoadSettings(ctx context.Context) models.Settings {
	s, err := a.ReadSettings(ctx)
	if err == nil {
		return s
	}
	s = a.DefaultSettings()
	a.fallback(ctx, KeySettings, err, s)
	return s
}

// DefaultServices returns the seed catalog's services when configured,
// otherwise the built-in catalog.
func (a *Adapter) DefaultServices() []models.Service {
	if a.seed != nil && len(a.seed.Services) > 0 {
		out := make([]models.Service, len(a.seed.Services))
		copy(out, a.seed.Services)
		return out
	}
	return DefaultServices()
}

// DefaultSettings returns the default settings with the seed catalog's
// closures applied.
func (a *Adapter) DefaultSettings() models.Settings {
	s := DefaultSettings()
	if a.seed != nil && a.seed.ClosedDays != nil {
		s.ClosedDays = a.seed.ClosedDays.Clone()
	}
	return s
}

// fallback quarantines a corrupt blob and writes the defaults in its place.
func (a *Adapter) fallback(ctx context.Context, key Key, cause error, def any) {
	switch {
	case errors.Is(cause, fs.ErrNotExist):
		a.logger.Info("persist: no stored data, using defaults", "key", key)
	case IsCorrupt(cause):
		dest, err := a.quarantine(key)
		if err != nil {
			a.logger.Error("persist: quarantine failed", "key", key, "error", err)
		} else {
			a.logger.Warn("persist: corrupt data moved aside, using defaults", "key", key, "moved_to", dest, "error", cause)
		}
	default:
		a.logger.Error("persist: read failed, using defaults", "key", key, "error", cause)
		return
	}
	if err := a.save(ctx, key, def); err != nil {
		a.logger.Error("persist: write defaults", "key", key, "error", err)
	}
}

func (a *Adapter) quarantine(key Key) (string, error) {
	dest := fmt.Sprintf("%s/%s-%s.json", CorruptDir, key, a.now().UTC().Format("20060102T150405"))
	if err := a.files.Move(key.File(), dest); err != nil {
		return "", err
	}
	return dest, nil
}

// ---------------------------------------------------------------------------
// Saves
// ---------------------------------------------------------------------------

// SaveAppointments writes the whole appointment collection.
func (a *Adapter) SaveAppointments(ctx context.Context, list []models.Appointment) error {
	if list == nil {
		list = []models.Appointment{}
	}
	return a.save(ctx, KeyAppointments, list)
}

// SaveServices writes the whole service catalog.
func (a *Adapter) SaveServices(ctx context.Context, list []models.Service) error {
	if list == nil {
		list = []models.Service{}
	}
	return a.save(ctx, KeyServices, list)
}

// SaveSettings writes the settings.
func (a *Adapter) SaveSettings(ctx context.Context, s models.Settings) error {
	if s.ClosedDays.CustomRanges == nil {
		s.ClosedDays.CustomRanges = []models.ClosedDateRange{}
	}
	return a.save(ctx, KeySettings, s)
}

func (a *Adapter) save(ctx context.Context, key Key, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: encode %s: %w", key, err)
	}
	data = append(data, '\n')
	if err := a.files.Write(key.File(), data); err != nil {
		return fmt.Errorf("persist: write %s: %w", key, err)
	}
	a.remember(key, data)
	return nil
}

// ---------------------------------------------------------------------------
// Change detection
// ---------------------------------------------------------------------------

// Changed reports whether the stored blob differs from what the adapter last
// read or wrote. A blob that no longer exists counts as unchanged.
func (a *Adapter) Changed(key Key) (bool, error) {
	raw, err := a.files.Read(key.File())
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sums[key] != checksum.Sum(raw), nil
}

func (a *Adapter) read(ctx context.Context, key Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := a.files.Read(key.File())
	if err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	return raw, nil
}

func (a *Adapter) remember(key Key, data []byte) {
	sum := checksum.Sum(data)
	a.mu.Lock()
	a.sums[key] = sum
	a.mu.Unlock()
}

func (a *Adapter) logNotes(key Key, notes []string) {
	for _, n := range notes {
		a.logger.Warn("persist: normalized stored data", "key", key, "note", n)
	}
}
