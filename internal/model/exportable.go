package model

import (
	"fmt"
	"strings"
	"time"
)

// ExportableEvent is the shape consumed by the ICS serializer and the
// calendar-service link builders. It is distinct from Event: it carries
// concrete instants instead of date strings.
type ExportableEvent struct {
	ID          string
	Title       string
	Description string
	Location    string

	StartDate time.Time
	EndDate   time.Time
	AllDay    bool

	// Created / LastModified default to the serialization time when zero.
	Created      time.Time
	LastModified time.Time
}

const dateLayout = "2006-01-02"

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM", "3:04 pm", "3:04pm"}

// ToExportable converts a domain event into one exportable instance per
// concrete date. Recurring and ongoing events have no concrete dates and
// yield nothing. Date strings that do not parse are skipped.
//
// When both StartTime and EndTime parse as clock times the instances are
// timed in loc; otherwise they are all-day, ending the following day.
func ToExportable(ev Event, loc *time.Location) []ExportableEvent {
	if loc == nil {
		loc = time.Local
	}
	if ev.DateType != DateSingle && ev.DateType != DateMultiple {
		return nil
	}

	dates := ev.Dates
	if ev.DateType == DateSingle && len(dates) > 1 {
		dates = dates[:1]
	}

	startClock, okStart := parseClock(ev.StartTime)
	endClock, okEnd := parseClock(ev.EndTime)
	timed := okStart && okEnd

	out := make([]ExportableEvent, 0, len(dates))
	for _, ds := range dates {
		day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(ds), loc)
		if err != nil {
			continue
		}

		x := ExportableEvent{
			ID:           string(ev.ID),
			Title:        ev.Name,
			Description:  ev.Description,
			Location:     ev.Location,
			Created:      ev.CreatedAt,
			LastModified: ev.UpdatedAt,
		}
		if len(dates) > 1 {
			x.ID = fmt.Sprintf("%s-%d", ev.ID, len(out)+1)
		}

		if timed {
			x.StartDate = atClock(day, startClock)
			x.EndDate = atClock(day, endClock)
			if x.EndDate.Before(x.StartDate) {
				// Ends after midnight.
				x.EndDate = x.EndDate.AddDate(0, 0, 1)
			}
		} else {
			x.AllDay = true
			x.StartDate = day
			x.EndDate = day.AddDate(0, 0, 1)
		}
		out = append(out, x)
	}
	return out
}

func parseClock(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func atClock(day, clock time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, day.Location())
}
