package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/glamcal/internal/auth"
	"github.com/starford/glamcal/internal/ics"
	"github.com/starford/glamcal/internal/scheduling"
)

// NewRouter creates a chi router with all API routes mounted.
// checker enforces Bearer auth on every route; nil disables it.
// events, if non-nil, is mounted at GET /events inside the auth group.
// export configures GET /calendar.ics and the ICS import window.
func NewRouter(svc *scheduling.Service, checker *auth.Checker, events http.Handler, export ics.ExportOptions) chi.Router {
	h := NewHandler(svc, export)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(checker))

	// Calendar views.
	r.Get("/calendar/{year}/{month}", h.Month)
	r.Get("/days/{date}", h.Day)
	r.Get("/selection", h.GetSelection)
	r.Put("/selection", h.Select)

	// Appointments.
	r.Post("/appointments", h.CreateAppointment)
	r.Get("/appointments/{id}", h.GetAppointment)
	r.Put("/appointments/{id}", h.UpdateAppointment)
	r.Delete("/appointments/{id}", h.DeleteAppointment)
	r.Get("/appointments/{id}/draft", h.EditDraft)
	r.Post("/appointments/{id}/follow-up", h.FollowUp)

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
	r.Put("/settings/closed-days/sundays", h.SetSundays)
	r.Post("/settings/closed-days/ranges", h.AddClosure)
	r.Delete("/settings/closed-days/ranges/{index}", h.RemoveClosure)
	r.Post("/settings/closed-days/import", h.ImportClosures)
	r.Post("/settings/logo", h.UploadLogo)
	r.Delete("/settings/logo", h.ClearLogo)

	// Service catalog.
	r.Get("/services", h.ListServices)
	r.Post("/services", h.AddService)
	r.Delete("/services/{id}", h.RemoveService)

	// Search.
	r.Get("/search", h.Search)
	r.Get("/clients/{name}/history", h.ClientHistory)

	// Calendar export.
	r.Get("/calendar.ics", h.ExportICS)

	// SSE endpoint (protected by same auth middleware).
	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
