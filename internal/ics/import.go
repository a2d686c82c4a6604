package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/models"
)

// MaxOccurrences caps the expansion of a single recurring event.
const MaxOccurrences = 1000

// maxSteps caps the occurrences generated per recurring event, including
// those that end before the window.
const maxSteps = 100 * MaxOccurrences

// MaxWindowDays is the widest import window accepted.
const MaxWindowDays = 3 * 366

// Window limits an import to events that touch [From, To]. Recurring events
// are only expanded inside it. A zero Window keeps every non-recurring event
// and skips recurring ones.
type Window struct {
	From datekey.Key
	To   datekey.Key
}

func (w Window) zero() bool { return w.From == "" && w.To == "" }

// Validate checks that both bounds are valid keys, From <= To and the span
// is at most MaxWindowDays.
func (w Window) Validate() error {
	if !w.From.Valid() || !w.To.Valid() || w.From.After(w.To) {
		return fmt.Errorf("ics: invalid window %s..%s", w.From, w.To)
	}
	if daysBetween(w.From, w.To) > MaxWindowDays {
		return fmt.Errorf("ics: window %s..%s exceeds %d days", w.From, w.To, MaxWindowDays)
	}
	return nil
}

func (w Window) overlaps(r models.ClosedDateRange) bool {
	if w.zero() {
		return true
	}
	return r.Start <= w.To && r.End >= w.From
}

// ImportClosures reads an iCalendar feed and returns one closed range per
// event (per occurrence for recurring events), in feed order. Events whose
// dates cannot be read are skipped.
func ImportClosures(r io.Reader, win Window) ([]models.ClosedDateRange, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("ics: parse: %w", err)
	}
	if !win.zero() {
		if err := win.Validate(); err != nil {
			return nil, err
		}
	}

	var out []models.ClosedDateRange
	for _, ev := range cal.Events() {
		span, err := eventSpan(ev)
		if err != nil {
			continue
		}
		rule := ev.GetProperty(ical.ComponentPropertyRrule)
		if rule == nil || rule.Value == "" {
			if win.overlaps(span) {
				out = append(out, span)
			}
			continue
		}
		if win.zero() {
			continue
		}
		occ, err := expand(rule.Value, span, win)
		if err != nil {
			continue
		}
		out = append(out, occ...)
	}
	return out, nil
}

// eventSpan returns the inclusive days covered by an event.
func eventSpan(ev *ical.VEvent) (models.ClosedDateRange, error) {
	startProp := ev.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return models.ClosedDateRange{}, errors.New("missing DTSTART")
	}
	if isDate(startProp) {
		start, err := parseDate(startProp.Value)
		if err != nil {
			return models.ClosedDateRange{}, err
		}
		end := start
		if endProp := ev.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
			if excl, err := parseDate(endProp.Value); err == nil && excl.After(start) {
				end = excl.AddDays(-1)
			}
		}
		return models.ClosedDateRange{Start: start, End: end}, nil
	}

	startAt, err := ev.GetStartAt()
	if err != nil {
		return models.ClosedDateRange{}, err
	}
	start := datekey.FromTime(startAt)
	end := start
	if endAt, err := ev.GetEndAt(); err == nil && endAt.After(startAt) {
		end = datekey.FromTime(endAt.Add(-time.Nanosecond))
	}
	return models.ClosedDateRange{Start: start, End: end}, nil
}

// expand returns one range per occurrence of rule inside win. Each
// occurrence keeps the length of the first one.
func expand(rule string, first models.ClosedDateRange, win Window) ([]models.ClosedDateRange, error) {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, err
	}
	r.DTStart(first.Start.Time(time.UTC))
	length := daysBetween(first.Start, first.End)

	// Occurrences that start before the window may still reach into it.
	from := win.From.AddDays(-length).Time(time.UTC)
	to := win.To.Time(time.UTC)
	var out []models.ClosedDateRange
	next := r.Iterator()
	for steps := 0; steps < maxSteps && len(out) < MaxOccurrences; steps++ {
		t, ok := next()
		if !ok || t.After(to) {
			break
		}
		if t.Before(from) {
			continue
		}
		start := datekey.FromTime(t)
		out = append(out, models.ClosedDateRange{Start: start, End: start.AddDays(length)})
	}
	return out, nil
}

func daysBetween(a, b datekey.Key) int {
	return int(b.Time(time.UTC).Sub(a.Time(time.UTC)).Hours() / 24)
}

func isDate(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func parseDate(v string) (datekey.Key, error) {
	t, err := time.Parse("20060102", strings.TrimSpace(v))
	if err != nil {
		return "", err
	}
	return datekey.FromTime(t), nil
}
