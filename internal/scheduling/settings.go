package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/glamcal/internal/apperr"
	"github.com/starford/glamcal/internal/checksum"
	"github.com/starford/glamcal/internal/closure"
	"github.com/starford/glamcal/internal/models"
)

// MaxLogoBytes caps the size of a logo data URI.
const MaxLogoBytes = 3 << 20

// Settings returns a copy of the current settings.
func (s *Service) Settings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Clone()
}

// SettingsChecksum identifies the current settings for optimistic
// concurrency (HTTP ETag / If-Match).
func (s *Service) SettingsChecksum() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return settingsSum(s.settings)
}

// SettingsVersion returns the settings together with their checksum, read
// under one lock.
func (s *Service) SettingsVersion() (models.Settings, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Clone(), settingsSum(s.settings)
}

func settingsSum(st models.Settings) string {
	data, _ := json.Marshal(st)
	return checksum.Sum(data)
}

// UpdateSettings replaces the settings. A non-empty ifMatch must match the
// current SettingsChecksum, otherwise apperr.ErrConflict is returned.
func (s *Service) UpdateSettings(ctx context.Context, next models.Settings, ifMatch string) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ifMatch != "" && !checksum.MatchETag(ifMatch, settingsSum(s.settings)) {
		return models.Settings{}, fmt.Errorf("scheduling: settings changed since read: %w", apperr.ErrConflict)
	}
	next = next.Clone()
	if err := validateSettings(&next); err != nil {
		return models.Settings{}, err
	}
	if err := s.commitSettings(ctx, next); err != nil {
		return models.Settings{}, err
	}
	return next.Clone(), nil
}

// SetCloseOnSundays toggles the weekly Sunday closure.
func (s *Service) SetCloseOnSundays(ctx context.Context, closed bool) (models.Settings, error) {
	return s.editSettings(ctx, func(st *models.Settings) error {
		st.ClosedDays.CloseOnSundays = closed
		return nil
	})
}

// AddClosure adds a closed date range.
func (s *Service) AddClosure(ctx context.Context, r models.ClosedDateRange) (models.Settings, error) {
	return s.editSettings(ctx, func(st *models.Settings) error {
		cd, err := closure.AddRange(st.ClosedDays, r)
		if err != nil {
			return err
		}
		st.ClosedDays = cd
		return nil
	})
}

// RemoveClosure removes the closed range at index (display order).
func (s *Service) RemoveClosure(ctx context.Context, index int) (models.Settings, error) {
	return s.editSettings(ctx, func(st *models.Settings) error {
		cd, err := closure.RemoveRange(st.ClosedDays, index)
		if err != nil {
			return err
		}
		st.ClosedDays = cd
		return nil
	})
}

// ImportClosures adds every range not already present. Invalid ranges are
// skipped. It returns the number of ranges added.
func (s *Service) ImportClosures(ctx context.Context, ranges []models.ClosedDateRange) (int, error) {
	added := 0
	_, err := s.editSettings(ctx, func(st *models.Settings) error {
		have := make(map[models.ClosedDateRange]bool, len(st.ClosedDays.CustomRanges))
		for _, r := range st.ClosedDays.CustomRanges {
			have[r] = true
		}
		for _, r := range ranges {
			if have[r] || closure.ValidateRange(r) != nil {
				continue
			}
			have[r] = true
			st.ClosedDays.CustomRanges = append(st.ClosedDays.CustomRanges, r)
			added++
		}
		if added == 0 {
			return errNoChange
		}
		closure.SortRanges(st.ClosedDays.CustomRanges)
		return nil
	})
	if errors.Is(err, errNoChange) {
		return 0, nil
	}
	return added, err
}

// SetLogo stores an image data URI as the logo.
func (s *Service) SetLogo(ctx context.Context, dataURI string) (models.Settings, error) {
	if err := validateLogo(dataURI); err != nil {
		return models.Settings{}, apperr.Invalid("logo", err.Error())
	}
	return s.editSettings(ctx, func(st *models.Settings) error {
		st.Logo = &dataURI
		return nil
	})
}

// ClearLogo removes the logo.
func (s *Service) ClearLogo(ctx context.Context) (models.Settings, error) {
	return s.editSettings(ctx, func(st *models.Settings) error {
		st.Logo = nil
		return nil
	})
}

var errNoChange = errors.New("no change")

func (s *Service) editSettings(ctx context.Context, fn func(*models.Settings) error) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.settings.Clone()
	if err := fn(&next); err != nil {
		return models.Settings{}, err
	}
	if err := s.commitSettings(ctx, next); err != nil {
		return models.Settings{}, err
	}
	return next.Clone(), nil
}

// commitSettings persists next and installs it. Callers hold mu.
func (s *Service) commitSettings(ctx context.Context, next models.Settings) error {
	if s.settingsSaver != nil {
		if err := s.settingsSaver.SaveSettings(ctx, next); err != nil {
			return fmt.Errorf("scheduling: save settings: %w", err)
		}
	}
	s.settings = next
	s.emit(Event{Kind: EventSettingsUpdated})
	s.logger.Info("settings updated", "theme", next.Theme, "ranges", len(next.ClosedDays.CustomRanges))
	return nil
}

func validateSettings(st *models.Settings) error {
	themes := make([]any, len(models.Themes))
	for i, t := range models.Themes {
		themes[i] = t
	}
	fonts := make([]any, len(models.Fonts))
	for i, f := range models.Fonts {
		fonts[i] = f
	}
	err := validation.ValidateStruct(st,
		validation.Field(&st.Theme, validation.Required, validation.In(themes...)),
		validation.Field(&st.Font, validation.Required, validation.In(fonts...)),
		validation.Field(&st.Logo, validation.By(func(v any) error {
			p, _ := v.(*string)
			if p == nil {
				return nil
			}
			return validateLogo(*p)
		})),
	)
	if err != nil {
		return apperr.Validation(err)
	}
	if st.ClosedDays.CustomRanges == nil {
		st.ClosedDays.CustomRanges = []models.ClosedDateRange{}
	}
	for i, r := range st.ClosedDays.CustomRanges {
		if err := closure.ValidateRange(r); err != nil {
			return apperr.Invalid(fmt.Sprintf("closedDays.customRanges[%d]", i), err.Error())
		}
	}
	closure.SortRanges(st.ClosedDays.CustomRanges)
	return nil
}

func validateLogo(uri string) error {
	if !strings.HasPrefix(uri, "data:image/") || !strings.Contains(uri, ",") {
		return errors.New("must be an image data URI")
	}
	if len(uri) > MaxLogoBytes {
		return fmt.Errorf("must be at most %d bytes", MaxLogoBytes)
	}
	return nil
}
