package calendar

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"churchconnect/internal/model"
)

// occursByRule evaluates ev.RRule for the calendar day of date.
//
// The rule is anchored at the event's first listed date when there is one,
// otherwise at Jan 1 of the target year. An unparsable rule never matches.
func occursByRule(ev model.Event, date time.Time) bool {
	loc := date.Location()
	r, err := ParseRule(ev.RRule, anchorFor(ev, date.Year(), loc))
	if err != nil {
		return false
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return len(r.Between(dayStart, dayEnd, true)) > 0
}

// ParseRule parses an RFC 5545 RRULE (with or without the "RRULE:" prefix)
// and pins its DTSTART to dtstart unless the rule carries its own.
func ParseRule(ruleStr string, dtstart time.Time) (*rrule.RRule, error) {
	ruleStr = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ruleStr), "RRULE:"))

	opt, err := rrule.StrToROption(ruleStr)
	if err != nil {
		return nil, err
	}
	if opt.Dtstart.IsZero() {
		opt.Dtstart = dtstart
	}
	return rrule.NewRRule(*opt)
}

func anchorFor(ev model.Event, year int, loc *time.Location) time.Time {
	if len(ev.Dates) > 0 {
		if t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(ev.Dates[0]), loc); err == nil {
			return t
		}
	}
	return time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
}

// OccurrencesBetween lists the days in [from, to] on which ev occurs,
// walking the range one calendar day at a time.
func (m Matcher) OccurrencesBetween(ev model.Event, from, to time.Time) []time.Time {
	var out []time.Time
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for !day.After(to) {
		if m.Occurs(ev, day) {
			out = append(out, day)
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}
