package scheduling

import (
	"time"

	"github.com/starford/glamcal/internal/apperr"
	"github.com/starford/glamcal/internal/closure"
	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/models"
)

// Density tiers of a calendar cell.
const (
	DensityNone   = 0 // no appointments
	DensityLight  = 1 // 1-2
	DensityMedium = 2 // 3-4
	DensityHeavy  = 3 // more than 4
)

// Density maps an appointment count to its tier.
func Density(count int) int {
	switch {
	case count <= 0:
		return DensityNone
	case count <= 2:
		return DensityLight
	case count <= 4:
		return DensityMedium
	default:
		return DensityHeavy
	}
}

// DayCell is one day of the month grid.
type DayCell struct {
	Date     datekey.Key `json:"date"`
	Day      int         `json:"day"`
	Closed   bool        `json:"closed"`
	Count    int         `json:"count"`
	Density  int         `json:"density"`
	Today    bool        `json:"today"`
	Selected bool        `json:"selected"`
}

// MonthView is the calendar grid of one month. LeadingBlanks is the number
// of empty cells before the 1st in a Sunday-first week.
type MonthView struct {
	Year          int       `json:"year"`
	Month         int       `json:"month"`
	LeadingBlanks int       `json:"leadingBlanks"`
	Days          []DayCell `json:"days"`
}

// DayView lists a day's appointments by time. A closed day still lists the
// appointments booked on it.
type DayView struct {
	Date         datekey.Key          `json:"date"`
	Closed       bool                 `json:"closed"`
	Appointments []models.Appointment `json:"appointments"`
}

// Month builds the grid for the given month (1-12).
func (s *Service) Month(year int, month time.Month) (MonthView, error) {
	if month < time.January || month > time.December {
		return MonthView{}, apperr.Invalid("month", "must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return MonthView{}, apperr.Invalid("year", "must be between 1 and 9999")
	}

	s.mu.Lock()
	cfg := s.settings.ClosedDays.Clone()
	selected := s.selected
	s.mu.Unlock()

	counts := s.appts.CountByDate()
	today := s.today()
	n := datekey.DaysInMonth(year, month)
	view := MonthView{
		Year:          year,
		Month:         int(month),
		LeadingBlanks: int(datekey.FirstWeekdayOfMonth(year, month)),
		Days:          make([]DayCell, 0, n),
	}
	for d := 1; d <= n; d++ {
		key := datekey.New(year, month, d)
		count := counts[key]
		view.Days = append(view.Days, DayCell{
			Date:     key,
			Day:      d,
			Closed:   closure.IsClosed(key, cfg),
			Count:    count,
			Density:  Density(count),
			Today:    key == today,
			Selected: key == selected,
		})
	}
	return view, nil
}

// Day lists the appointments of one day.
func (s *Service) Day(day datekey.Key) (DayView, error) {
	if !day.Valid() {
		return DayView{}, apperr.Invalid("date", "must be a date in YYYY-MM-DD format")
	}
	s.mu.Lock()
	closed := closure.IsClosed(day, s.settings.ClosedDays)
	s.mu.Unlock()
	appts := s.appts.ListForDate(day)
	if appts == nil {
		appts = []models.Appointment{}
	}
	return DayView{Date: day, Closed: closed, Appointments: appts}, nil
}
