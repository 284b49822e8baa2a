package ics

import (
	"encoding/base64"
	"errors"
	"net/url"

	"churchconnect/internal/model"
)

// Service names a calendar web service a link can target.
type Service string

const (
	Google  Service = "google"
	Outlook Service = "outlook"
	Apple   Service = "apple"
)

var ErrUnknownService = errors.New("ics: unknown calendar service")

const (
	googleBase  = "https://calendar.google.com/calendar/render"
	outlookBase = "https://outlook.live.com/calendar/0/deeplink/compose"

	layoutOutlook = "2006-01-02T15:04:05Z"
)

// LinkBuilder produces "add to calendar" links for external services.
type LinkBuilder struct {
	Serializer *Serializer
	// TimeZone is the IANA zone name passed to Google as ctz.
	TimeZone string
}

// Links bundles every link plus the raw ICS for one event.
type Links struct {
	Google  string `json:"google"`
	Outlook string `json:"outlook"`
	Apple   string `json:"apple"`
	ICS     string `json:"ics"`
}

// Build dispatches to the builder for service.
func (b *LinkBuilder) Build(ev model.ExportableEvent, service Service) (string, error) {
	switch service {
	case Google:
		return b.Google(ev)
	case Outlook:
		return b.Outlook(ev)
	case Apple:
		return b.Apple(ev)
	default:
		return "", ErrUnknownService
	}
}

// Google builds a calendar.google.com template link. dates is start/end in
// compact UTC form regardless of AllDay.
func (b *LinkBuilder) Google(ev model.ExportableEvent) (string, error) {
	if err := checkDates(ev); err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("action", "TEMPLATE")
	params.Set("text", ev.Title)
	params.Set("dates", formatTimestamp(ev.StartDate)+"/"+formatTimestamp(ev.EndDate))
	params.Set("details", ev.Description)
	params.Set("location", ev.Location)
	if b.TimeZone != "" {
		params.Set("ctz", b.TimeZone)
	}
	return googleBase + "?" + params.Encode(), nil
}

// Outlook builds an outlook.live.com compose deep link.
func (b *LinkBuilder) Outlook(ev model.ExportableEvent) (string, error) {
	if err := checkDates(ev); err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("path", "/calendar/action/compose")
	params.Set("rru", "addevent")
	params.Set("subject", ev.Title)
	params.Set("startdt", ev.StartDate.UTC().Format(layoutOutlook))
	params.Set("enddt", ev.EndDate.UTC().Format(layoutOutlook))
	params.Set("body", ev.Description)
	params.Set("location", ev.Location)
	return outlookBase + "?" + params.Encode(), nil
}

// Apple has no web deep link; the event is serialized and returned as a
// self-contained data URI that browsers download as an .ics file.
func (b *LinkBuilder) Apple(ev model.ExportableEvent) (string, error) {
	s := b.Serializer
	if s == nil {
		s = NewSerializer(nil)
	}
	content, err := s.Event(ev)
	if err != nil {
		return "", err
	}
	return "data:" + ContentType + ";base64," + base64.StdEncoding.EncodeToString([]byte(content)), nil
}

// All builds every link and the ICS body for ev.
func (b *LinkBuilder) All(ev model.ExportableEvent) (Links, error) {
	var (
		out Links
		err error
	)
	if out.Google, err = b.Google(ev); err != nil {
		return Links{}, err
	}
	if out.Outlook, err = b.Outlook(ev); err != nil {
		return Links{}, err
	}
	if out.Apple, err = b.Apple(ev); err != nil {
		return Links{}, err
	}
	s := b.Serializer
	if s == nil {
		s = NewSerializer(nil)
	}
	if out.ICS, err = s.Event(ev); err != nil {
		return Links{}, err
	}
	return out, nil
}
