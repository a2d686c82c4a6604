package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/glamcal/internal/apperr"
	"github.com/starford/glamcal/internal/closure"
	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/models"
)

// TimeLayout is the HH:mm layout of appointment times.
const TimeLayout = "15:04"

// Form is the booking form input. Date is only used when creating; when it
// is empty the current selection is used.
type Form struct {
	Date       datekey.Key `json:"date,omitempty"`
	Time       string      `json:"time"`
	ClientName string      `json:"clientName"`
	ServiceID  string      `json:"serviceId"`
}

// Draft is a prefilled booking form. An empty ID means saving it creates a
// new appointment. Discarding a draft has no effect on stored data.
type Draft struct {
	ID         string      `json:"id"`
	Date       datekey.Key `json:"date"`
	Time       string      `json:"time"`
	ClientName string      `json:"clientName"`
	ServiceID  string      `json:"serviceId"`
	Service    string      `json:"service"`
	Duration   int         `json:"duration"`
}

// Form converts the draft into a form ready to Save.
func (d Draft) Form() Form {
	return Form{Date: d.Date, Time: d.Time, ClientName: d.ClientName, ServiceID: d.ServiceID}
}

// Save creates an appointment (editID == "") or edits the appointment with
// id editID.
//
// An edit keeps the stored appointment's date: neither form.Date nor the
// current selection can move it. A create uses form.Date, falling back to the
// current selection, and is rejected with apperr.ErrClosed on a closed day.
// A create with an explicit date also selects that date.
func (s *Service) Save(ctx context.Context, form Form, editID string) (models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	form.ClientName = strings.TrimSpace(form.ClientName)
	form.ServiceID = strings.TrimSpace(form.ServiceID)
	err := validation.ValidateStruct(&form,
		validation.Field(&form.ClientName, validation.Required, validation.Length(1, 200)),
		validation.Field(&form.Time, validation.Required, validation.By(validTime)),
		validation.Field(&form.ServiceID, validation.Required),
		validation.Field(&form.Date, validation.By(validDate)),
	)
	if err != nil {
		return models.Appointment{}, apperr.Validation(err)
	}
	svc, ok := s.services.Find(form.ServiceID)
	if !ok {
		return models.Appointment{}, apperr.Invalid("serviceId", "unknown service")
	}
	data := models.AppointmentData{
		Time:       form.Time,
		ClientName: form.ClientName,
		Service:    svc.Name,
		Duration:   svc.Duration,
	}

	if editID != "" {
		orig, ok := s.appts.Get(editID)
		if !ok {
			return models.Appointment{}, fmt.Errorf("scheduling: edit %s: %w", editID, apperr.ErrNotFound)
		}
		data.Date = orig.Date
		appt, err := s.appts.Update(ctx, editID, data)
		if err != nil {
			return models.Appointment{}, err
		}
		s.indexUpsert(appt)
		s.emit(Event{Kind: EventAppointmentUpdated, ID: appt.ID, Date: appt.Date})
		s.logger.Info("appointment updated", "id", appt.ID, "date", appt.Date)
		return appt, nil
	}

	data.Date = form.Date
	if data.Date == "" {
		data.Date = s.selected
	}
	if closure.IsClosed(data.Date, s.settings.ClosedDays) {
		return models.Appointment{}, fmt.Errorf("scheduling: create on %s: %w", data.Date, apperr.ErrClosed)
	}
	appt, err := s.appts.Add(ctx, data)
	if err != nil {
		return models.Appointment{}, err
	}
	if form.Date != "" && form.Date != s.selected {
		s.selected = form.Date
		s.emit(Event{Kind: EventSelectionChanged, Date: s.selected})
	}
	s.indexUpsert(appt)
	s.emit(Event{Kind: EventAppointmentCreated, ID: appt.ID, Date: appt.Date})
	s.logger.Info("appointment created", "id", appt.ID, "date", appt.Date)
	return appt, nil
}

// Delete removes an appointment. Unknown ids are not an error; removed
// reports whether anything was deleted.
func (s *Service) Delete(ctx context.Context, id string) (removed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, _ := s.appts.Get(id)
	removed, err = s.appts.Remove(ctx, id)
	if err != nil || !removed {
		return removed, err
	}
	s.indexDelete(id)
	s.emit(Event{Kind: EventAppointmentDeleted, ID: id, Date: appt.Date})
	s.logger.Info("appointment deleted", "id", id, "date", appt.Date)
	return true, nil
}

// Get returns one appointment.
func (s *Service) Get(id string) (models.Appointment, error) {
	appt, ok := s.appts.Get(id)
	if !ok {
		return models.Appointment{}, fmt.Errorf("scheduling: appointment %s: %w", id, apperr.ErrNotFound)
	}
	return appt, nil
}

// Appointments returns every appointment in insertion order.
func (s *Service) Appointments() []models.Appointment {
	return s.appts.All()
}

// EditDraft returns the edit form of an appointment. The catalog entry is
// matched by name; when the service no longer exists the first catalog
// entry is preselected.
func (s *Service) EditDraft(id string) (Draft, error) {
	appt, ok := s.appts.Get(id)
	if !ok {
		return Draft{}, fmt.Errorf("scheduling: draft %s: %w", id, apperr.ErrNotFound)
	}
	return s.draftFrom(appt), nil
}

// FollowUp projects a follow-up booking for the appointment with the given
// id: FollowUpDays later, moved forward past closed days. The returned draft
// has no id so saving it creates a new appointment. The projected date
// becomes the current selection.
func (s *Service) FollowUp(id string) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.appts.Get(id)
	if !ok {
		return Draft{}, fmt.Errorf("scheduling: follow-up %s: %w", id, apperr.ErrNotFound)
	}
	candidate := src.Date.AddDays(s.cfg.FollowUpDays)
	date, err := closure.NextOpen(candidate, s.settings.ClosedDays, s.cfg.MaxSearchDays)
	if err != nil {
		return Draft{}, fmt.Errorf("scheduling: follow-up %s: %w", id, err)
	}
	d := s.draftFrom(src)
	d.ID = ""
	d.Date = date
	if s.selected != date {
		s.selected = date
		s.emit(Event{Kind: EventSelectionChanged, Date: date})
	}
	return d, nil
}

func (s *Service) draftFrom(a models.Appointment) Draft {
	d := Draft{
		ID:         a.ID,
		Date:       a.Date,
		Time:       a.Time,
		ClientName: a.ClientName,
		Service:    a.Service,
		Duration:   a.Duration,
	}
	if svc, ok := s.services.FindByName(a.Service); ok {
		d.ServiceID = svc.ID
	} else if all := s.services.All(); len(all) > 0 {
		d.ServiceID = all[0].ID
	}
	return d
}

// ---------------------------------------------------------------------------
// Selection
// ---------------------------------------------------------------------------

// InitSelection moves the selection from today to the first open day. Only
// the first call has an effect; later calls return the established
// selection.
func (s *Service) InitSelection() (datekey.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return s.selected, nil
	}
	s.initialized = true
	date, err := closure.NextOpen(s.today(), s.settings.ClosedDays, s.cfg.MaxSearchDays)
	if err != nil {
		s.logger.Warn("scheduling: no open day ahead, selection stays on today", "error", err)
		return s.selected, err
	}
	s.selected = date
	return date, nil
}

// Selected returns the current selection.
func (s *Service) Selected() datekey.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Select changes the selection. Closed days cannot be selected.
func (s *Service) Select(day datekey.Key) error {
	if !day.Valid() {
		return apperr.Invalid("date", "must be a date in YYYY-MM-DD format")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if closure.IsClosed(day, s.settings.ClosedDays) {
		return fmt.Errorf("scheduling: select %s: %w", day, apperr.ErrClosed)
	}
	if s.selected != day {
		s.selected = day
		s.emit(Event{Kind: EventSelectionChanged, Date: day})
	}
	return nil
}

// CheckDate reports whether day is closed and the first open day from it.
// When no open day is found within the search bound, err matches
// apperr.ErrSearchExhausted and closed is still valid.
func (s *Service) CheckDate(day datekey.Key) (closed bool, nextOpen datekey.Key, err error) {
	if !day.Valid() {
		return false, "", apperr.Invalid("date", "must be a date in YYYY-MM-DD format")
	}
	s.mu.Lock()
	cfg := s.settings.ClosedDays.Clone()
	s.mu.Unlock()
	next, err := closure.NextOpen(day, cfg, s.cfg.MaxSearchDays)
	return closure.IsClosed(day, cfg), next, err
}

func validTime(value any) error {
	v, _ := value.(string)
	if v == "" {
		return nil
	}
	t, err := time.Parse(TimeLayout, v)
	if err != nil || t.Format(TimeLayout) != v {
		return errors.New("must be a time in HH:mm format")
	}
	return nil
}

func validDate(value any) error {
	k, _ := value.(datekey.Key)
	if k == "" || k.Valid() {
		return nil
	}
	return errors.New("must be a date in YYYY-MM-DD format")
}
