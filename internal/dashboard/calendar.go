package dashboard

import (
	"time"

	"churchconnect/internal/calendar"
	"churchconnect/internal/ics"
	"churchconnect/internal/model"
	"churchconnect/internal/store"
)

// MonthView is a month grid plus registrant/volunteer counts for every
// event on it.
type MonthView struct {
	Grid  calendar.Grid
	Stats map[model.ID]calendar.EventStats
}

// MonthView builds the grid for year/month from the current events.
func (s *Service) MonthView(year int, month time.Month) MonthView {
	var mv MonthView
	s.Store.View(func(d *store.Data) {
		mv.Grid = s.Matcher.BuildMonth(year, month, d.Events)
		mv.Stats = calendar.StatsFor(d.Events, d.Attendees)
	})
	return mv
}

// Export is a downloadable calendar document.
type Export struct {
	Filename string
	Content  string
}

// ExportEvent renders one event. An event with several dates becomes one
// VEVENT per date.
func (s *Service) ExportEvent(id model.ID) (Export, error) {
	ev, err := s.GetEvent(id)
	if err != nil {
		return Export{}, err
	}
	xs := model.ToExportable(ev, s.loc())
	var content string
	switch len(xs) {
	case 0:
		return Export{}, ErrNotExportable
	case 1:
		content, err = s.Serializer.Event(xs[0])
	default:
		content, err = s.Serializer.Bulk(xs)
	}
	if err != nil {
		return Export{}, err
	}
	return Export{Filename: ics.Filename(ev.Name), Content: content}, nil
}

// ExportAll renders every dated event into one calendar.
func (s *Service) ExportAll() (Export, error) {
	var xs []model.ExportableEvent
	s.Store.View(func(d *store.Data) {
		for _, ev := range d.Events {
			xs = append(xs, model.ToExportable(ev, s.loc())...)
		}
	})
	content, err := s.Serializer.Bulk(xs)
	if err != nil {
		return Export{}, err
	}
	return Export{Filename: ics.BulkFilename(s.now()), Content: content}, nil
}

// InstanceLinks are the calendar-service links for one dated instance.
type InstanceLinks struct {
	ID    string    `json:"id"`
	Date  string    `json:"date"`
	Links ics.Links `json:"links"`
}

// Links builds add-to-calendar links for every dated instance of an event.
func (s *Service) Links(id model.ID) ([]InstanceLinks, error) {
	ev, err := s.GetEvent(id)
	if err != nil {
		return nil, err
	}
	xs := model.ToExportable(ev, s.loc())
	if len(xs) == 0 {
		return nil, ErrNotExportable
	}
	out := make([]InstanceLinks, 0, len(xs))
	for _, x := range xs {
		l, err := s.LinkBuilder.All(x)
		if err != nil {
			return nil, err
		}
		out = append(out, InstanceLinks{ID: x.ID, Date: calendar.DateKey(x.StartDate), Links: l})
	}
	return out, nil
}

// Link builds a single-service link for the event's first dated instance.
func (s *Service) Link(id model.ID, service ics.Service) (string, error) {
	ev, err := s.GetEvent(id)
	if err != nil {
		return "", err
	}
	xs := model.ToExportable(ev, s.loc())
	if len(xs) == 0 {
		return "", ErrNotExportable
	}
	return s.LinkBuilder.Build(xs[0], service)
}
