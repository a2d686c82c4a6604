package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/glamcal/internal/ics"
	"github.com/starford/glamcal/internal/index"
	"github.com/starford/glamcal/internal/models"
)

// ListServices handles GET /api/services.
func (h *Handler) ListServices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ServiceListResponse{Services: h.svc.Services()})
}

// AddService handles POST /api/services.
//
//	@Summary		Add a catalog entry
//	@Tags			services
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ServiceRequest	true	"Service"
//	@Success		201		{object}	models.Service
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/services [post]
func (h *Handler) AddService(w http.ResponseWriter, r *http.Request) {
	var req ServiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	svc, err := h.svc.AddService(r.Context(), req.Name, req.Duration)
	if err != nil {
		writeError(w, "add service", err)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

// RemoveService handles DELETE /api/services/{id}. Existing appointments
// keep their service snapshot.
func (h *Handler) RemoveService(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.RemoveService(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "remove service", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Search appointments by client or service
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := trimmedQuery(r, "q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ClientHistory handles GET /api/clients/{name}/history.
func (h *Handler) ClientHistory(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ClientHistory(pathParam(r, "name"))
	if err != nil {
		writeError(w, "client history", err)
		return
	}
	if list == nil {
		list = []models.Appointment{}
	}
	writeJSON(w, http.StatusOK, AppointmentListResponse{Appointments: list})
}

// ExportICS handles GET /api/calendar.ics.
//
//	@Summary		Appointments and closures as an iCalendar feed
//	@Tags			calendar
//	@Produce		text/calendar
//	@Success		200
//	@Security		BearerAuth
//	@Router			/calendar.ics [get]
func (h *Handler) ExportICS(w http.ResponseWriter, _ *http.Request) {
	opts := h.export
	opts.Now = time.Now()
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="glamcal.ics"`)
	err := ics.Export(w, h.svc.Appointments(), h.svc.Settings().ClosedDays, opts)
	if err != nil {
		writeError(w, "export ics", err)
	}
}
