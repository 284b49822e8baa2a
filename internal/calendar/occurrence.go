// Package calendar lays out month grids and decides on which calendar days
// a dashboard event takes place.
package calendar

import (
	"strconv"
	"strings"
	"time"

	"churchconnect/internal/model"
)

const dateLayout = "2006-01-02"

// DateKey renders the calendar date of t as YYYY-MM-DD, using t's own
// year/month/day rather than its UTC instant, so a local midnight never
// slides into the previous day.
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// Matcher decides event occurrence. The zero value never evaluates
// recurrence rules.
type Matcher struct {
	// ExpandRecurring enables RRULE evaluation for recurring events that
	// carry a machine-readable RRule. Free-text RecurrencePattern is never
	// evaluated.
	ExpandRecurring bool
}

// Occurs reports whether ev takes place on date using the default matcher.
func Occurs(ev model.Event, date time.Time) bool {
	return Matcher{}.Occurs(ev, date)
}

// Occurs reports whether ev takes place on the calendar day of date.
// Missing or malformed data yields false.
func (m Matcher) Occurs(ev model.Event, date time.Time) bool {
	key := DateKey(date)

	switch ev.DateType {
	case model.DateSingle:
		if len(ev.Dates) == 0 {
			return false
		}
		return strings.TrimSpace(ev.Dates[0]) == key
	case model.DateMultiple:
		for _, d := range ev.Dates {
			if strings.TrimSpace(d) == key {
				return true
			}
		}
		return false
	case model.DateRecurring:
		if !m.ExpandRecurring || ev.RRule == "" {
			return false
		}
		return occursByRule(ev, date)
	default:
		// ongoing or unknown
		return false
	}
}

// EventsOn returns the subsequence of events occurring on date, preserving
// input order.
func (m Matcher) EventsOn(events []model.Event, date time.Time) []model.Event {
	var out []model.Event
	for _, ev := range events {
		if m.Occurs(ev, date) {
			out = append(out, ev)
		}
	}
	return out
}

// DaysInMonth uses day 0 of the following month, which normalizes to the
// last day of the requested one.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsToday reports whether t falls on the same calendar day as now.
func IsToday(t, now time.Time) bool {
	return DateKey(t.In(now.Location())) == DateKey(now)
}

// IsThisWeek reports whether t falls in the Sunday-start week containing
// now, Sunday through Saturday inclusive.
func IsThisWeek(t, now time.Time) bool {
	loc := now.Location()
	start := time.Date(now.Year(), now.Month(), now.Day()-int(now.Weekday()), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 7)
	t = t.In(loc)
	return !t.Before(start) && t.Before(end)
}

// FormatEventDates renders a short human description of when ev happens.
func FormatEventDates(ev model.Event) string {
	switch ev.DateType {
	case model.DateRecurring:
		return ev.RecurrencePattern
	case model.DateOngoing:
		return "Ongoing"
	}
	switch {
	case len(ev.Dates) == 1:
		d, err := time.Parse(dateLayout, strings.TrimSpace(ev.Dates[0]))
		if err != nil {
			return ev.Dates[0]
		}
		return d.Format("Jan 2, 2006")
	case len(ev.Dates) > 1:
		return "Multiple dates (" + strconv.Itoa(len(ev.Dates)) + ")"
	}
	return "No date set"
}
