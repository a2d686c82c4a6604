package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/glamcal/internal/apperr"
	"github.com/starford/glamcal/internal/models"
)

// ServiceSaver persists the whole service catalog.
type ServiceSaver interface {
	SaveServices(ctx context.Context, list []models.Service) error
}

// Services is the service catalog. Appointments copy a service's name and
// duration, so removing a service never touches existing bookings.
type Services struct {
	mu    sync.RWMutex
	items []models.Service
	saver ServiceSaver
	newID func() string
}

// NewServices creates a catalog holding a copy of initial.
func NewServices(initial []models.Service, saver ServiceSaver) *Services {
	return &Services{items: clone(initial), saver: saver, newID: uuid.NewString}
}

// Add appends a new service.
func (s *Services) Add(ctx context.Context, name string, duration int) (models.Service, error) {
	svc := models.Service{Name: strings.TrimSpace(name), Duration: duration}
	err := validation.ValidateStruct(&svc,
		validation.Field(&svc.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&svc.Duration, validation.Required, validation.Min(1), validation.Max(24*60)),
	)
	if err != nil {
		return models.Service{}, apperr.Validation(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	svc.ID = s.newID()
	next := make([]models.Service, len(s.items), len(s.items)+1)
	copy(next, s.items)
	next = append(next, svc)
	if err := s.commit(ctx, next); err != nil {
		return models.Service{}, err
	}
	return svc, nil
}

// Remove deletes a service by id. Unknown ids are a no-op.
func (s *Services) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	next := make([]models.Service, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Find returns the service with the given id.
func (s *Services) Find(id string) (models.Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true
	}
	return models.Service{}, false
}

// FindByName returns the first service whose name equals name.
func (s *Services) FindByName(name string) (models.Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, svc := range s.items {
		if svc.Name == name {
			return svc, true
		}
	}
	return models.Service{}, false
}

// All returns a copy of the catalog.
func (s *Services) All() []models.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.items)
}

// Replace swaps the catalog without persisting it.
func (s *Services) Replace(list []models.Service) {
	s.mu.Lock()
	s.items = clone(list)
	s.mu.Unlock()
}

func (s *Services) commit(ctx context.Context, next []models.Service) error {
	if s.saver != nil {
		if err := s.saver.SaveServices(ctx, next); err != nil {
			return fmt.Errorf("store: save services: %w", err)
		}
	}
	s.items = next
	return nil
}

func (s *Services) indexOf(id string) int {
	for i, svc := range s.items {
		if svc.ID == id {
			return i
		}
	}
	return -1
}
