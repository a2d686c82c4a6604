// Package ics converts between GlamCal data and iCalendar (RFC 5545):
// exporting bookings and closures as a subscribable feed, and importing
// holiday feeds as closed date ranges.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/models"
)

// ExportOptions controls Export.
type ExportOptions struct {
	// Location is the wall-clock zone of appointment times. Nil means Local.
	Location *time.Location
	// ProductID is written to PRODID.
	ProductID string
	// CalendarName is written to X-WR-CALNAME.
	CalendarName string
	// Now stamps every event (DTSTAMP) and anchors the weekly Sunday
	// closure. Zero means time.Now.
	Now time.Time
}

const uidDomain = "glamcal"

// SundayRule is the recurrence of the weekly Sunday closure.
func SundayRule() string {
	opt := rrule.ROption{Freq: rrule.WEEKLY, Byweekday: []rrule.Weekday{rrule.SU}}
	return opt.RRuleString()
}

// Export writes a VCALENDAR with one timed event per appointment, one
// all-day event per closed range and, when Sundays are closed, a weekly
// all-day closure event.
func Export(w io.Writer, appts []models.Appointment, closed models.ClosedDaysConfig, opts ExportOptions) error {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	if opts.ProductID != "" {
		cal.SetProductId(opts.ProductID)
	}
	if opts.CalendarName != "" {
		cal.SetXWRCalName(opts.CalendarName)
	}
	cal.SetXWRTimezone(loc.String())

	for _, a := range appts {
		start, err := wallClock(a.Date, a.Time, loc)
		if err != nil {
			return fmt.Errorf("ics: appointment %s: %w", a.ID, err)
		}
		ev := cal.AddEvent(a.ID + "@" + uidDomain)
		ev.SetDtStampTime(now)
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(time.Duration(a.Duration) * time.Minute))
		ev.SetSummary(a.ClientName + " · " + a.Service)
		ev.SetDescription(fmt.Sprintf("%s, %d min", a.Service, a.Duration))
	}

	for _, r := range closed.CustomRanges {
		ev := cal.AddEvent(fmt.Sprintf("closed-%s-%s@%s", r.Start, r.End, uidDomain))
		ev.SetDtStampTime(now)
		ev.SetAllDayStartAt(r.Start.Time(time.UTC))
		ev.SetAllDayEndAt(r.End.AddDays(1).Time(time.UTC)) // DTEND is exclusive
		ev.SetSummary("Closed")
		ev.SetTimeTransparency(ical.TransparencyTransparent)
	}

	if closed.CloseOnSundays {
		first := datekey.FromTime(now.In(loc))
		first = first.AddDays(-int(first.Weekday())) // Sunday on or before today
		ev := cal.AddEvent("closed-sundays@" + uidDomain)
		ev.SetDtStampTime(now)
		ev.SetAllDayStartAt(first.Time(time.UTC))
		ev.SetAllDayEndAt(first.AddDays(1).Time(time.UTC))
		ev.AddRrule(SundayRule())
		ev.SetSummary("Closed (Sundays)")
		ev.SetTimeTransparency(ical.TransparencyTransparent)
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("ics: write: %w", err)
	}
	return nil
}

// wallClock combines a date key and an HH:mm time in loc.
func wallClock(day datekey.Key, hhmm string, loc *time.Location) (time.Time, error) {
	if !day.Valid() {
		return time.Time{}, fmt.Errorf("invalid date %q", day)
	}
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", hhmm)
	}
	y, m, d := day.Split()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc), nil
}
