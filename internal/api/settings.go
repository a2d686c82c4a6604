package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/glamcal/internal/apperr"
	"github.com/starford/glamcal/internal/checksum"
	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/ics"
	"github.com/starford/glamcal/internal/logo"
	"github.com/starford/glamcal/internal/models"
)

const (
	maxICSBytes     = 5 << 20
	maxUploadBytes  = logo.MaxBytes + 64<<10 // multipart overhead
	importWindowLen = 366
)

// GetSettings handles GET /api/settings. The ETag header carries the
// checksum to send back in If-Match.
//
//	@Summary		Owner settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	models.Settings
//	@Header			200	{string}	ETag	"Settings checksum"
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	st, sum := h.svc.SettingsVersion()
	w.Header().Set("ETag", checksum.ETag(sum))
	writeJSON(w, http.StatusOK, st)
}

// UpdateSettings handles PUT /api/settings.
//
//	@Summary		Replace settings with optimistic concurrency
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			If-Match	header	string			false	"ETag from GET /settings"
//	@Param			body		body	models.Settings	true	"New settings"
//	@Success		200		{object}	models.Settings
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.Settings
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.svc.UpdateSettings(r.Context(), req, r.Header.Get("If-Match")); err != nil {
		writeError(w, "update settings", err)
		return
	}
	h.GetSettings(w, r)
}

// SetSundays handles PUT /api/settings/closed-days/sundays.
func (h *Handler) SetSundays(w http.ResponseWriter, r *http.Request) {
	var req SundaysRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.svc.SetCloseOnSundays(r.Context(), req.Closed); err != nil {
		writeError(w, "set sundays", err)
		return
	}
	h.GetSettings(w, r)
}

// AddClosure handles POST /api/settings/closed-days/ranges.
func (h *Handler) AddClosure(w http.ResponseWriter, r *http.Request) {
	var req models.ClosedDateRange
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.svc.AddClosure(r.Context(), req)
	if err != nil {
		writeError(w, "add closure", err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// RemoveClosure handles DELETE /api/settings/closed-days/ranges/{index}.
// index is the position in the sorted range list.
func (h *Handler) RemoveClosure(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, "remove closure", apperr.Invalid("index", "must be a number"))
		return
	}
	if _, err := h.svc.RemoveClosure(r.Context(), idx); err != nil {
		writeError(w, "remove closure", err)
		return
	}
	h.GetSettings(w, r)
}

// ImportClosures handles POST /api/settings/closed-days/import. The body is
// an iCalendar feed; every event inside the from..to window (query
// parameters, default today plus one year) becomes a closed range.
//
//	@Summary		Import closures from an ICS feed
//	@Tags			settings
//	@Accept			text/calendar
//	@Produce		json
//	@Param			from	query		string	false	"Window start (YYYY-MM-DD)"
//	@Param			to		query		string	false	"Window end (YYYY-MM-DD)"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/closed-days/import [post]
func (h *Handler) ImportClosures(w http.ResponseWriter, r *http.Request) {
	win, err := h.importWindow(r)
	if err != nil {
		writeError(w, "import closures", err)
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxICSBytes)
	ranges, err := ics.ImportClosures(body, win)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid iCalendar body"))
		return
	}
	added, err := h.svc.ImportClosures(r.Context(), ranges)
	if err != nil {
		writeError(w, "import closures", err)
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Found: len(ranges), Added: added})
}

func (h *Handler) importWindow(r *http.Request) (ics.Window, error) {
	loc := h.export.Location
	if loc == nil {
		loc = time.Local
	}
	today := datekey.FromTime(time.Now().In(loc))
	win := ics.Window{From: today, To: today.AddDays(importWindowLen)}
	if v := trimmedQuery(r, "from"); v != "" {
		k, err := datekey.Parse(v)
		if err != nil {
			return win, apperr.Invalid("from", "must be a date in YYYY-MM-DD format")
		}
		win.From = k
	}
	if v := trimmedQuery(r, "to"); v != "" {
		k, err := datekey.Parse(v)
		if err != nil {
			return win, apperr.Invalid("to", "must be a date in YYYY-MM-DD format")
		}
		win.To = k
	}
	if win.From.After(win.To) {
		return win, apperr.Invalid("to", "must not be before from")
	}
	if win.To.After(win.From.AddDays(ics.MaxWindowDays)) {
		return win, apperr.Invalid("to", fmt.Sprintf("must be at most %d days after from", ics.MaxWindowDays))
	}
	return win, nil
}

// UploadLogo handles POST /api/settings/logo (multipart/form-data, field
// "file"). The image is stored inline as a data URI.
//
//	@Summary		Upload the salon logo
//	@Tags			settings
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"png, jpeg, gif, webp or svg, max 2 MB"
//	@Success		200		{object}	models.Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/logo [post]
func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, logo.MaxBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	uri, err := logo.Encode(data, header.Header.Get("Content-Type"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if _, err := h.svc.SetLogo(r.Context(), uri); err != nil {
		writeError(w, "set logo", err)
		return
	}
	h.GetSettings(w, r)
}

// ClearLogo handles DELETE /api/settings/logo.
func (h *Handler) ClearLogo(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.ClearLogo(r.Context()); err != nil {
		writeError(w, "clear logo", err)
		return
	}
	h.GetSettings(w, r)
}
