package scheduling

import (
	"context"
	"sort"
	"strings"

	"github.com/starford/glamcal/internal/index"
	"github.com/starford/glamcal/internal/models"
)

// Services returns the service catalog.
func (s *Service) Services() []models.Service {
	return s.services.All()
}

// AddService adds a catalog entry.
func (s *Service) AddService(ctx context.Context, name string, duration int) (models.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, err := s.services.Add(ctx, name, duration)
	if err != nil {
		return models.Service{}, err
	}
	s.emit(Event{Kind: EventServicesUpdated, ID: svc.ID})
	return svc, nil
}

// RemoveService removes a catalog entry. Existing appointments keep their
// service name and duration. Unknown ids are not an error.
func (s *Service) RemoveService(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed, err := s.services.Remove(ctx, id)
	if err != nil || !removed {
		return removed, err
	}
	s.emit(Event{Kind: EventServicesUpdated, ID: id})
	return true, nil
}

// Search finds appointments by client name or service.
func (s *Service) Search(query string, limit int) ([]index.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []index.SearchResult{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	if s.index != nil {
		return s.index.Search(query, limit)
	}
	q := strings.ToLower(query)
	var out []index.SearchResult
	for _, a := range newestFirst(s.appts.All()) {
		if strings.Contains(strings.ToLower(a.ClientName), q) || strings.Contains(strings.ToLower(a.Service), q) {
			out = append(out, index.SearchResult{Appointment: a, Snippet: a.ClientName + " · " + a.Service})
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// ClientHistory lists a client's appointments, newest first.
func (s *Service) ClientHistory(name string) ([]models.Appointment, error) {
	name = strings.TrimSpace(name)
	if s.index != nil {
		return s.index.ClientHistory(name)
	}
	var out []models.Appointment
	for _, a := range newestFirst(s.appts.All()) {
		if strings.EqualFold(a.ClientName, name) {
			out = append(out, a)
		}
	}
	return out, nil
}

func newestFirst(list []models.Appointment) []models.Appointment {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date > list[j].Date
		}
		return list[i].Time > list[j].Time
	})
	return list
}

// ---------------------------------------------------------------------------
// Reload after external edits
// ---------------------------------------------------------------------------

// ReloadAppointments replaces the appointment collection with list without
// writing it back, and resyncs the search index.
func (s *Service) ReloadAppointments(list []models.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appts.Replace(list)
	if s.index != nil {
		if err := index.Sync(s.index, list, s.logger); err != nil {
			s.logger.Warn("scheduling: index resync failed", "error", err)
		}
	}
	s.emit(Event{Kind: EventAppointmentsReloaded})
	s.logger.Info("appointments reloaded", "count", len(list))
}

// ReloadServices replaces the catalog without writing it back.
func (s *Service) ReloadServices(list []models.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services.Replace(list)
	s.emit(Event{Kind: EventServicesUpdated})
	s.logger.Info("services reloaded", "count", len(list))
}

// ReloadSettings replaces the settings without writing them back.
func (s *Service) ReloadSettings(st models.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = st.Clone()
	s.emit(Event{Kind: EventSettingsUpdated})
	s.logger.Info("settings reloaded")
}

// SyncIndex brings the search index up to date with the collection.
func (s *Service) SyncIndex() error {
	if s.index == nil {
		return nil
	}
	return index.Sync(s.index, s.appts.All(), s.logger)
}
