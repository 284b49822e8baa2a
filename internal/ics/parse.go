package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "churchconnect/internal/log"
	"churchconnect/internal/model"
)

// ParsedEvent is a VEVENT read from an imported calendar.
type ParsedEvent struct {
	Source Source

	UID         string
	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule string
}

// ParseICS parses an ICS payload into ParsedEvents.
//
//   - TZID handling is left to golang-ical.
//   - All-day is detected from VALUE=DATE or a value without a time part.
//   - TEXT values are unescaped.
//
// A VEVENT that cannot be read is logged and skipped.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent
	out.Source = src

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = UnescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = UnescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = UnescapeText(p.Value)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	if out.AllDay {
		start, err := ve.GetAllDayStartAt()
		if err != nil {
			return out, err
		}
		out.Start = start
		if end, err := ve.GetAllDayEndAt(); err == nil {
			out.End = end
		} else {
			out.End = start.AddDate(0, 0, 1)
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, err
		}
		out.Start = start
		if end, err := ve.GetEndAt(); err == nil {
			out.End = end
		} else {
			out.End = start
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}
	return out, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// ToEvent maps an imported VEVENT onto a dashboard event, reading wall
// clock values in loc.
//
//   - RRULE present: recurring, with the rule kept for optional expansion.
//   - all-day over one day: single; over several days: multiple.
//   - timed: single on the start day with HH:MM start/end times.
func (p ParsedEvent) ToEvent(loc *time.Location) model.Event {
	if loc == nil {
		loc = time.Local
	}
	ev := model.Event{
		ID:              model.ID(p.UID),
		Name:            p.Summary,
		Location:        p.Location,
		Description:     p.Description,
		Status:          model.StatusActive,
		Capacity:        50,
		Volunteers:      []model.ID{},
		CustomQuestions: []model.CustomQuestion{},
	}

	start := p.Start
	if !p.AllDay {
		start = start.In(loc)
	}
	startDay := start.Format(dateLayoutISO)

	switch {
	case p.RawRRule != "":
		ev.DateType = model.DateRecurring
		ev.RRule = p.RawRRule
		ev.RecurrencePattern = p.RawRRule
		ev.Dates = []string{startDay}
	case p.AllDay:
		ev.Dates = []string{startDay}
		for d := start.AddDate(0, 0, 1); d.Before(p.End); d = d.AddDate(0, 0, 1) {
			ev.Dates = append(ev.Dates, d.Format(dateLayoutISO))
		}
		ev.DateType = model.DateSingle
		if len(ev.Dates) > 1 {
			ev.DateType = model.DateMultiple
		}
	default:
		ev.DateType = model.DateSingle
		ev.Dates = []string{startDay}
		ev.StartTime = start.Format("15:04")
		ev.EndTime = p.End.In(loc).Format("15:04")
	}

	if !p.AllDay && p.RawRRule != "" {
		ev.StartTime = start.Format("15:04")
		ev.EndTime = p.End.In(loc).Format("15:04")
	}
	return ev
}

const dateLayoutISO = "2006-01-02"
