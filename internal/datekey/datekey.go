// Package datekey provides the canonical YYYY-MM-DD calendar date key used for
// every date comparison and for storage.
//
// Keys are plain strings, so lexicographic order equals chronological order
// and no epoch conversion (or timezone drift) is ever involved. That holds
// for four-digit years only: keys are limited to Min..Max and date
// arithmetic saturates at those bounds.
package datekey

import (
	"fmt"
	"time"
)

// Layout is the time layout of a Key.
const Layout = "2006-01-02"

// Key is a calendar date in YYYY-MM-DD form.
type Key string

// Bounds of the representable dates.
const (
	Min Key = "0001-01-01"
	Max Key = "9999-12-31"
)

var (
	minTime = civil(1, time.January, 1)
	maxTime = civil(9999, time.December, 31)
)

// New builds a key from civil date fields. Out-of-range values are normalized
// the way time.Date does (e.g. day 0 is the last day of the previous month).
// Dates outside Min..Max are clamped to the nearest bound.
func New(year int, month time.Month, day int) Key {
	t := civil(year, month, day)
	switch {
	case t.Before(minTime):
		return Min
	case t.After(maxTime):
		return Max
	}
	return Key(t.Format(Layout))
}

// FromTime returns the key of t's wall-clock date in t's own location.
func FromTime(t time.Time) Key {
	return New(t.Year(), t.Month(), t.Day())
}

// Parse validates s and returns it as a Key. Only the exact zero-padded
// YYYY-MM-DD form is accepted.
func Parse(s string) (Key, error) {
	t, err := time.Parse(Layout, s)
	if err != nil || t.Format(Layout) != s {
		return "", fmt.Errorf("datekey: invalid date %q, want YYYY-MM-DD", s)
	}
	if t.Before(minTime) {
		return "", fmt.Errorf("datekey: date %q is before %s", s, Min)
	}
	return Key(s), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// Valid reports whether k is a well-formed date key.
func (k Key) Valid() bool {
	_, err := Parse(string(k))
	return err == nil
}

// String implements fmt.Stringer.
func (k Key) String() string { return string(k) }

// Split returns the civil date fields of k. Invalid keys yield zeros.
func (k Key) Split() (year int, month time.Month, day int) {
	t, err := time.Parse(Layout, string(k))
	if err != nil {
		return 0, 0, 0
	}
	return t.Year(), t.Month(), t.Day()
}

// Time returns midnight of k in loc.
func (k Key) Time(loc *time.Location) time.Time {
	y, m, d := k.Split()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// AddDays returns the key n days after k (before, for negative n).
func (k Key) AddDays(n int) Key {
	y, m, d := k.Split()
	return New(y, m, d+n)
}

// Weekday returns the day of the week of k.
func (k Key) Weekday() time.Weekday {
	y, m, d := k.Split()
	return civil(y, m, d).Weekday()
}

// Compare returns -1, 0 or +1 depending on whether k is before, equal to or
// after o.
func (k Key) Compare(o Key) int {
	switch {
	case k < o:
		return -1
	case k > o:
		return 1
	default:
		return 0
	}
}

// Before reports whether k is strictly before o.
func (k Key) Before(o Key) bool { return k < o }

// After reports whether k is strictly after o.
func (k Key) After(o Key) bool { return k > o }

// Between reports whether start <= k <= end.
func (k Key) Between(start, end Key) bool {
	return start <= k && k <= end
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return civil(year, month+1, 0).Day()
}

// FirstWeekdayOfMonth returns the weekday of the 1st of the month (Sunday = 0).
func FirstWeekdayOfMonth(year int, month time.Month) time.Weekday {
	return civil(year, month, 1).Weekday()
}

// civil anchors a date at UTC midnight so that arithmetic never crosses a
// daylight-saving transition.
func civil(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
