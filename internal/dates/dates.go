// Package dates works with calendar days in the YYYY-MM-DD form journals are keyed by.
//
// Days are compared as strings, never as timestamps: "today" is computed in the
// user's location once and every comparison afterwards is lexical, which keeps
// entries written near midnight on the day the user saw on their clock.
package dates

import (
	"errors"
	"time"
)

// Layout is the only accepted day format.
const Layout = "2006-01-02"

var ErrInvalidDay = errors.New("invalid date; expected YYYY-MM-DD")

// Today returns the calendar day of now in loc. A nil loc means time.Local.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(Layout)
}

// Parse validates day and returns it as midnight UTC.
func Parse(day string) (time.Time, error) {
	t, err := time.Parse(Layout, day)
	if err != nil || t.Format(Layout) != day {
		return time.Time{}, ErrInvalidDay
	}
	return t, nil
}

func Valid(day string) bool {
	_, err := Parse(day)
	return err == nil
}

// After reports whether day a is later than day b. Both must be valid days.
func After(a, b string) bool { return a > b }

// AddDays shifts day by n calendar days. Invalid input yields "".
func AddDays(day string, n int) string {
	t, err := Parse(day)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, n).Format(Layout)
}

// DaysBetween returns b - a in whole days.
func DaysBetween(a, b string) (int, error) {
	ta, err := Parse(a)
	if err != nil {
		return 0, err
	}
	tb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

func Weekday(day string) (time.Weekday, error) {
	t, err := Parse(day)
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}

// WeekStart returns the Monday on or before day.
func WeekStart(day string) string {
	t, err := Parse(day)
	if err != nil {
		return ""
	}
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format(Layout)
}

// FromTime formats the date part of t as seen in UTC, which is how DATE columns scan.
func FromTime(t time.Time) string {
	return t.UTC().Format(Layout)
}
