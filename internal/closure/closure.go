// Package closure decides whether the business is open on a given date.
package closure

import (
	"errors"
	"fmt"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/glamcal/internal/apperr"
	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/models"
)

// DefaultMaxSearchDays bounds NextOpen when no explicit limit is given.
const DefaultMaxSearchDays = 366

// IsClosed reports whether day is closed under cfg. It is a pure function of
// its inputs.
func IsClosed(day datekey.Key, cfg models.ClosedDaysConfig) bool {
	if cfg.CloseOnSundays && day.Weekday() == time.Sunday {
		return true
	}
	for _, r := range cfg.CustomRanges {
		if day.Between(r.Start, r.End) {
			return true
		}
	}
	return false
}

// NextOpen returns from when it is open, otherwise the first open day after
// it. At most maxDays days are skipped; beyond that ErrSearchExhausted is
// returned. maxDays <= 0 selects DefaultMaxSearchDays.
func NextOpen(from datekey.Key, cfg models.ClosedDaysConfig, maxDays int) (datekey.Key, error) {
	if maxDays <= 0 {
		maxDays = DefaultMaxSearchDays
	}
	day := from
	for skipped := 0; skipped <= maxDays; skipped++ {
		if !IsClosed(day, cfg) {
			return day, nil
		}
		day = day.AddDays(1)
	}
	return "", fmt.Errorf("closure: from %s: %w (%d days)", from, apperr.ErrSearchExhausted, maxDays)
}

// ValidateRange checks that both bounds are valid keys and start <= end.
func ValidateRange(r models.ClosedDateRange) error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Start, validation.Required, validation.By(validKey)),
		validation.Field(&r.End, validation.Required, validation.By(validKey)),
	)
	if err != nil {
		return apperr.Validation(err)
	}
	if r.Start.After(r.End) {
		return apperr.Invalid("end", "must not be before start")
	}
	return nil
}

// AddRange validates r and returns a copy of cfg with r added, ranges sorted
// by start. Overlapping or duplicate ranges are kept as given.
func AddRange(cfg models.ClosedDaysConfig, r models.ClosedDateRange) (models.ClosedDaysConfig, error) {
	if err := ValidateRange(r); err != nil {
		return cfg, err
	}
	out := cfg.Clone()
	out.CustomRanges = append(out.CustomRanges, r)
	SortRanges(out.CustomRanges)
	return out, nil
}

// RemoveRange returns a copy of cfg without the range at index (display
// order).
func RemoveRange(cfg models.ClosedDaysConfig, index int) (models.ClosedDaysConfig, error) {
	if index < 0 || index >= len(cfg.CustomRanges) {
		return cfg, fmt.Errorf("closure: range %d: %w", index, apperr.ErrNotFound)
	}
	out := cfg.Clone()
	out.CustomRanges = append(out.CustomRanges[:index], out.CustomRanges[index+1:]...)
	return out, nil
}

// SortRanges orders ranges by start, keeping the relative order of equal
// starts.
func SortRanges(ranges []models.ClosedDateRange) {
	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].Start.Before(ranges[j].Start)
	})
}

func validKey(value any) error {
	k, _ := value.(datekey.Key)
	if k == "" {
		return nil
	}
	if !k.Valid() {
		return errors.New("must be a date in YYYY-MM-DD format")
	}
	return nil
}
