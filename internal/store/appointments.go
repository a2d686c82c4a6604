// Package store holds the in-memory appointment collection and service
// catalog. Every mutation is persisted through a saver before it becomes
// visible.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/glamcal/internal/apperr"
	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/models"
)

// AppointmentSaver persists the whole appointment collection.
type AppointmentSaver interface {
	SaveAppointments(ctx context.Context, list []models.Appointment) error
}

// Appointments is the appointment collection.
type Appointments struct {
	mu    sync.RWMutex
	items []models.Appointment
	saver AppointmentSaver
	newID func() string
}

// AppointmentsOption configures an Appointments store.
type AppointmentsOption func(*Appointments)

// WithIDFunc overrides the id generator.
func WithIDFunc(fn func() string) AppointmentsOption {
	return func(a *Appointments) { a.newID = fn }
}

// NewAppointments creates a store holding a copy of initial. saver may be
// nil for a purely in-memory store.
func NewAppointments(initial []models.Appointment, saver AppointmentSaver, opts ...AppointmentsOption) *Appointments {
	a := &Appointments{
		items: clone(initial),
		saver: saver,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Add stores data under a fresh id and returns the new appointment.
func (a *Appointments) Add(ctx context.Context, data models.AppointmentData) (models.Appointment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	appt := data.WithID(a.newID())
	next := make([]models.Appointment, len(a.items), len(a.items)+1)
	copy(next, a.items)
	next = append(next, appt)
	if err := a.commit(ctx, next); err != nil {
		return models.Appointment{}, err
	}
	return appt, nil
}

// Update replaces every field of the appointment with the given id except
// the id itself.
func (a *Appointments) Update(ctx context.Context, id string, data models.AppointmentData) (models.Appointment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := a.indexOf(id)
	if i < 0 {
		return models.Appointment{}, fmt.Errorf("store: update appointment %s: %w", id, apperr.ErrNotFound)
	}
	appt := data.WithID(id)
	next := clone(a.items)
	next[i] = appt
	if err := a.commit(ctx, next); err != nil {
		return models.Appointment{}, err
	}
	return appt, nil
}

// Remove deletes the appointment with the given id. An unknown id is a
// no-op that reports false and does not persist anything.
func (a *Appointments) Remove(ctx context.Context, id string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := a.indexOf(id)
	if i < 0 {
		return false, nil
	}
	next := make([]models.Appointment, 0, len(a.items)-1)
	next = append(next, a.items[:i]...)
	next = append(next, a.items[i+1:]...)
	if err := a.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the appointment with the given id.
func (a *Appointments) Get(id string) (models.Appointment, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if i := a.indexOf(id); i >= 0 {
		return a.items[i], true
	}
	return models.Appointment{}, false
}

// All returns a copy of the collection in insertion order.
func (a *Appointments) All() []models.Appointment {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return clone(a.items)
}

// Len returns the number of stored appointments.
func (a *Appointments) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// CountByDate returns the number of appointments per date, computed from the
// current collection.
func (a *Appointments) CountByDate() map[datekey.Key]int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	counts := make(map[datekey.Key]int)
	for _, appt := range a.items {
		counts[appt.Date]++
	}
	return counts
}

// ListForDate returns the appointments on day ordered by time. Equal times
// keep insertion order.
func (a *Appointments) ListForDate(day datekey.Key) []models.Appointment {
	a.mu.RLock()
	var out []models.Appointment
	for _, appt := range a.items {
		if appt.Date == day {
			out = append(out, appt)
		}
	}
	a.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// Replace swaps the whole collection without persisting it. Used after the
// backing file changed on disk.
func (a *Appointments) Replace(list []models.Appointment) {
	a.mu.Lock()
	a.items = clone(list)
	a.mu.Unlock()
}

// commit persists next and installs it. Callers hold mu.
func (a *Appointments) commit(ctx context.Context, next []models.Appointment) error {
	if a.saver != nil {
		if err := a.saver.SaveAppointments(ctx, next); err != nil {
			return fmt.Errorf("store: save appointments: %w", err)
		}
	}
	a.items = next
	return nil
}

func (a *Appointments) indexOf(id string) int {
	for i, appt := range a.items {
		if appt.ID == id {
			return i
		}
	}
	return -1
}

func clone[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
