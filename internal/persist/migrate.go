package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/glamcal/internal/closure"
	"github.com/starford/glamcal/internal/models"
)

// MigrateSettings upgrades a settings document to the current shape:
//
//   - closedDays.customDates (single days) becomes closedDays.customRanges
//     with start == end, replacing any ranges already present;
//   - a missing customRanges becomes an empty list;
//   - a missing closedDays becomes the default closure rules.
//
// Unknown fields are preserved. Applying it to its own output is a no-op.
func MigrateSettings(raw []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: settings: %v", ErrCorrupt, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: settings: not an object", ErrCorrupt)
	}

	cd, ok := doc["closedDays"].(map[string]any)
	if !ok {
		def := DefaultClosedDays()
		doc["closedDays"] = map[string]any{
			"closeOnSundays": def.CloseOnSundays,
			"customRanges":   []any{},
		}
		return json.Marshal(doc)
	}

	if legacy, present := cd["customDates"]; present {
		if dates, ok := legacy.([]any); ok {
			ranges := make([]any, 0, len(dates))
			for _, d := range dates {
				ranges = append(ranges, map[string]any{"start": d, "end": d})
			}
			cd["customRanges"] = ranges
		}
		delete(cd, "customDates")
	}
	if r, ok := cd["customRanges"]; !ok || r == nil {
		cd["customRanges"] = []any{}
	}
	return json.Marshal(doc)
}

type rawSettings struct {
	Theme      string  `json:"theme"`
	Font       string  `json:"font"`
	Logo       *string `json:"logo"`
	ClosedDays struct {
		CloseOnSundays bool              `json:"closeOnSundays"`
		CustomRanges   []json.RawMessage `json:"customRanges"`
	} `json:"closedDays"`
}

// DecodeSettings migrates and decodes a settings document, then normalizes
// it: unknown theme or font fall back to the defaults, a logo that is not an
// image data URI is dropped, malformed ranges are dropped and the remaining
// ranges are sorted by start. notes describes every correction made.
func DecodeSettings(raw []byte) (s models.Settings, notes []string, err error) {
	migrated, err := MigrateSettings(raw)
	if err != nil {
		return models.Settings{}, nil, err
	}
	var in rawSettings
	if err := json.Unmarshal(migrated, &in); err != nil {
		return models.Settings{}, nil, fmt.Errorf("%w: settings: %v", ErrCorrupt, err)
	}

	def := DefaultSettings()
	s.Theme = models.Theme(in.Theme)
	if !slices.Contains(models.Themes, s.Theme) {
		notes = append(notes, fmt.Sprintf("unknown theme %q, using %q", in.Theme, def.Theme))
		s.Theme = def.Theme
	}
	s.Font = models.Font(in.Font)
	if !slices.Contains(models.Fonts, s.Font) {
		notes = append(notes, fmt.Sprintf("unknown font %q, using %q", in.Font, def.Font))
		s.Font = def.Font
	}
	if in.Logo != nil {
		if strings.HasPrefix(*in.Logo, "data:image/") {
			s.Logo = in.Logo
		} else {
			notes = append(notes, "logo is not an image data URI, dropped")
		}
	}

	s.ClosedDays.CloseOnSundays = in.ClosedDays.CloseOnSundays
	s.ClosedDays.CustomRanges = make([]models.ClosedDateRange, 0, len(in.ClosedDays.CustomRanges))
	for i, msg := range in.ClosedDays.CustomRanges {
		var r models.ClosedDateRange
		if err := json.Unmarshal(msg, &r); err != nil {
			notes = append(notes, fmt.Sprintf("closed range %d unreadable, dropped", i))
			continue
		}
		if err := closure.ValidateRange(r); err != nil {
			notes = append(notes, fmt.Sprintf("closed range %d (%s..%s) invalid, dropped", i, r.Start, r.End))
			continue
		}
		s.ClosedDays.CustomRanges = append(s.ClosedDays.CustomRanges, r)
	}
	closure.SortRanges(s.ClosedDays.CustomRanges)
	return s, notes, nil
}

// DecodeAppointments decodes the appointment collection. Entries without an
// id, with a malformed date or a duplicate id are dropped and reported.
func DecodeAppointments(raw []byte) ([]models.Appointment, []string, error) {
	var in []models.Appointment
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, nil, fmt.Errorf("%w: appointments: %v", ErrCorrupt, err)
	}
	var notes []string
	seen := make(map[string]bool, len(in))
	out := make([]models.Appointment, 0, len(in))
	for i, a := range in {
		switch {
		case a.ID == "":
			notes = append(notes, fmt.Sprintf("appointment %d has no id, dropped", i))
		case seen[a.ID]:
			notes = append(notes, fmt.Sprintf("duplicate appointment id %q, dropped", a.ID))
		case !a.Date.Valid():
			notes = append(notes, fmt.Sprintf("appointment %q has invalid date %q, dropped", a.ID, a.Date))
		default:
			seen[a.ID] = true
			out = append(out, a)
		}
	}
	return out, notes, nil
}

// DecodeServices decodes the service catalog. Entries without an id or
// name, or with a duplicate id, are dropped and reported.
func DecodeServices(raw []byte) ([]models.Service, []string, error) {
	var in []models.Service
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, nil, fmt.Errorf("%w: services: %v", ErrCorrupt, err)
	}
	var notes []string
	seen := make(map[string]bool, len(in))
	out := make([]models.Service, 0, len(in))
	for i, s := range in {
		switch {
		case s.ID == "" || strings.TrimSpace(s.Name) == "":
			notes = append(notes, fmt.Sprintf("service %d incomplete, dropped", i))
		case seen[s.ID]:
			notes = append(notes, fmt.Sprintf("duplicate service id %q, dropped", s.ID))
		default:
			seen[s.ID] = true
			out = append(out, s)
		}
	}
	return out, notes, nil
}

// IsCorrupt reports whether err came from undecodable persisted data.
func IsCorrupt(err error) bool { return errors.Is(err, ErrCorrupt) }
