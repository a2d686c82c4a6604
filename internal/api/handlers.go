package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/glamcal/internal/apperr"
	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/ics"
	"github.com/starford/glamcal/internal/scheduling"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *scheduling.Service
	export ics.ExportOptions
}

// NewHandler creates a new Handler.
func NewHandler(svc *scheduling.Service, export ics.ExportOptions) *Handler {
	return &Handler{svc: svc, export: export}
}

// pathParam returns a URL parameter with percent-escapes decoded.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func dateParam(r *http.Request, name string) (datekey.Key, error) {
	day, err := datekey.Parse(pathParam(r, name))
	if err != nil {
		return "", apperr.Invalid(name, "must be a date in YYYY-MM-DD format")
	}
	return day, nil
}

// Month handles GET /api/calendar/{year}/{month}.
//
//	@Summary		Month grid with closures and booking density
//	@Tags			calendar
//	@Produce		json
//	@Param			year	path		int	true	"Year"
//	@Param			month	path		int	true	"Month (1-12)"
//	@Success		200		{object}	scheduling.MonthView
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/calendar/{year}/{month} [get]
func (h *Handler) Month(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, "month view", apperr.Invalid("year", "must be a number"))
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, "month view", apperr.Invalid("month", "must be a number"))
		return
	}
	view, err := h.svc.Month(year, time.Month(month))
	if err != nil {
		writeError(w, "month view", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Day handles GET /api/days/{date}.
//
//	@Summary		Appointments of one day, ordered by time
//	@Tags			calendar
//	@Produce		json
//	@Param			date	path		string	true	"Date (YYYY-MM-DD)"
//	@Success		200		{object}	scheduling.DayView
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/days/{date} [get]
func (h *Handler) Day(w http.ResponseWriter, r *http.Request) {
	day, err := dateParam(r, "date")
	if err != nil {
		writeError(w, "day view", err)
		return
	}
	view, err := h.svc.Day(day)
	if err != nil {
		writeError(w, "day view", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetSelection handles GET /api/selection.
func (h *Handler) GetSelection(w http.ResponseWriter, _ *http.Request) {
	h.writeSelection(w, h.svc.Selected())
}

// Select handles PUT /api/selection.
//
//	@Summary		Select a date; closed dates are rejected
//	@Tags			calendar
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SelectionRequest	true	"Date to select"
//	@Success		200		{object}	SelectionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/selection [put]
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Select(req.Date); err != nil {
		writeError(w, "select", err)
		return
	}
	h.writeSelection(w, req.Date)
}

func (h *Handler) writeSelection(w http.ResponseWriter, day datekey.Key) {
	closed, next, err := h.svc.CheckDate(day)
	resp := SelectionResponse{Date: day, Closed: closed}
	if err == nil && next != day {
		resp.NextOpen = next
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateAppointment handles POST /api/appointments.
//
//	@Summary		Book an appointment on the given or selected date
//	@Tags			appointments
//	@Accept			json
//	@Produce		json
//	@Param			body	body		scheduling.Form	true	"Booking form"
//	@Success		201		{object}	models.Appointment
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/appointments [post]
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var form scheduling.Form
	if !decodeJSON(w, r, &form) {
		return
	}
	appt, err := h.svc.Save(r.Context(), form, "")
	if err != nil {
		writeError(w, "create appointment", err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// GetAppointment handles GET /api/appointments/{id}.
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// UpdateAppointment handles PUT /api/appointments/{id}. The stored date is
// kept; a date in the body is ignored.
//
//	@Summary		Edit an appointment
//	@Tags			appointments
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Appointment id"
//	@Param			body	body		scheduling.Form	true	"Booking form"
//	@Success		200		{object}	models.Appointment
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/appointments/{id} [put]
func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	var form scheduling.Form
	if !decodeJSON(w, r, &form) {
		return
	}
	appt, err := h.svc.Save(r.Context(), form, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "update appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// DeleteAppointment handles DELETE /api/appointments/{id}. Deleting an
// unknown id succeeds.
func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete appointment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EditDraft handles GET /api/appointments/{id}/draft.
func (h *Handler) EditDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := h.svc.EditDraft(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "edit draft", err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// FollowUp handles POST /api/appointments/{id}/follow-up. The returned draft
// is not saved; POST it to /appointments to book it.
//
//	@Summary		Project a follow-up booking past closed days
//	@Tags			appointments
//	@Produce		json
//	@Param			id	path		string	true	"Source appointment id"
//	@Success		200	{object}	scheduling.Draft
//	@Failure		404	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/appointments/{id}/follow-up [post]
func (h *Handler) FollowUp(w http.ResponseWriter, r *http.Request) {
	draft, err := h.svc.FollowUp(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "follow-up", err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func trimmedQuery(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}
