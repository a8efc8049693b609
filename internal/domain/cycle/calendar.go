// Package cycle defines the 7-day cycle boundaries of the screen-time
// economy and the reset protocol that starts each new cycle.
package cycle

import (
	"fmt"
	"time"
)

// DefaultAnchor is the weekday a cycle starts on. The family week runs
// Friday 00:00 through Thursday 23:59:59.
const DefaultAnchor = time.Friday

// Marker records when a family's last cycle reset happened.
type Marker struct {
	CycleID   string    `json:"cycleId"`
	LastReset time.Time `json:"lastResetTimestamp"`
}

// Calendar resolves wall-clock instants to cycle windows and calendar days
// in a fixed timezone. The zero value is not usable; construct with
// NewCalendar.
type Calendar struct {
	loc    *time.Location
	anchor time.Weekday
}

// NewCalendar returns a calendar anchored on the given weekday. A nil
// location means local time.
func NewCalendar(loc *time.Location, anchor time.Weekday) Calendar {
	if loc == nil {
		loc = time.Local
	}
	return Calendar{loc: loc, anchor: anchor}
}

// WeekStart returns the instant the cycle containing t began: the most
// recent anchor weekday at 00:00.
func (c Calendar) WeekStart(t time.Time) time.Time {
	tl := t.In(c.loc)
	back := (int(tl.Weekday()) - int(c.anchor) + 7) % 7
	d := tl.AddDate(0, 0, -back)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, c.loc)
}

// WeekID returns a stable identifier for the cycle containing t. Two
// instants map to the same id iff they fall in the same 7-day window.
func (c Calendar) WeekID(t time.Time) string {
	year, week := c.WeekStart(t).ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// SameWeek reports whether a and b fall in the same cycle window.
func (c Calendar) SameWeek(a, b time.Time) bool {
	return c.WeekStart(a).Equal(c.WeekStart(b))
}

// SameDay reports whether a and b fall on the same calendar day.
func (c Calendar) SameDay(a, b time.Time) bool {
	al, bl := a.In(c.loc), b.In(c.loc)
	return al.Year() == bl.Year() && al.Month() == bl.Month() && al.Day() == bl.Day()
}

// DayKey returns the lowercase weekday key for t, matching the weekly plan
// day keys.
func (c Calendar) DayKey(t time.Time) string {
	switch t.In(c.loc).Weekday() {
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	case time.Sunday:
		return "sunday"
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	default:
		return "thursday"
	}
}
