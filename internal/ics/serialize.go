// Package ics writes RFC 5545 calendar documents and calendar-service deep
// links for dashboard events, and reads ICS feeds back in for import.
package ics

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"churchconnect/internal/clock"
	"churchconnect/internal/model"
)

const (
	// ContentType is the MIME type for downloaded .ics files.
	ContentType = "text/calendar;charset=utf-8"

	DefaultProdID = "-//ChurchConnect//Event Manager//EN"
	DefaultDomain = "churchconnect.com"

	crlf = "\r\n"

	layoutDate    = "20060102"
	layoutUTCTime = "20060102T150405Z"
)

// SerializationError reports an event whose start or end cannot be turned
// into a date value.
type SerializationError struct {
	Field string
	Value string
	Err   error
}

func (e *SerializationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("ics: invalid %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("ics: invalid %s: %v", e.Field, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

var errMissingDate = errors.New("date is missing")

// Serializer renders Exportable Events as iCalendar text.
type Serializer struct {
	ProdID string
	// Domain is the right-hand side of generated UIDs.
	Domain string
	Clock  clock.Clock
}

// NewSerializer returns a Serializer with default PRODID and UID domain.
func NewSerializer(c clock.Clock) *Serializer {
	if c == nil {
		c = clock.NewSystem()
	}
	return &Serializer{
		ProdID: DefaultProdID,
		Domain: DefaultDomain,
		Clock:  c,
	}
}

// Event renders a calendar document holding a single event.
func (s *Serializer) Event(ev model.ExportableEvent) (string, error) {
	block, err := s.vevent(ev, false)
	if err != nil {
		return "", err
	}
	lines := append(s.header(), block...)
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, crlf), nil
}

// Bulk renders one calendar document with a VEVENT per event. UIDs carry a
// random suffix so events sharing an id never collide.
func (s *Serializer) Bulk(evs []model.ExportableEvent) (string, error) {
	lines := s.header()
	for _, ev := range evs {
		block, err := s.vevent(ev, true)
		if err != nil {
			return "", err
		}
		lines = append(lines, block...)
	}
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, crlf), nil
}

func (s *Serializer) header() []string {
	prodID := s.ProdID
	if prodID == "" {
		prodID = DefaultProdID
	}
	return []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}
}

func (s *Serializer) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Serializer) vevent(ev model.ExportableEvent, bulk bool) ([]string, error) {
	if err := checkDates(ev); err != nil {
		return nil, err
	}

	now := s.now()
	created := ev.Created
	if created.IsZero() {
		created = now
	}
	modified := ev.LastModified
	if modified.IsZero() {
		modified = now
	}

	return []string{
		"BEGIN:VEVENT",
		"UID:" + s.uid(ev.ID, now, bulk),
		"DTSTAMP:" + formatTimestamp(now),
		"DTSTART" + formatEventDate(ev.StartDate, ev.AllDay),
		"DTEND" + formatEventDate(ev.EndDate, ev.AllDay),
		"SUMMARY:" + EscapeText(ev.Title),
		"DESCRIPTION:" + EscapeText(ev.Description),
		"LOCATION:" + EscapeText(ev.Location),
		"STATUS:CONFIRMED",
		"SEQUENCE:0",
		"CREATED:" + formatTimestamp(created),
		"LAST-MODIFIED:" + formatTimestamp(modified),
		"END:VEVENT",
	}, nil
}

func checkDates(ev model.ExportableEvent) error {
	if ev.StartDate.IsZero() {
		return &SerializationError{Field: "startDate", Err: errMissingDate}
	}
	if ev.EndDate.IsZero() {
		return &SerializationError{Field: "endDate", Err: errMissingDate}
	}
	return nil
}

func (s *Serializer) uid(id string, now time.Time, bulk bool) string {
	domain := s.Domain
	if domain == "" {
		domain = DefaultDomain
	}
	uid := fmt.Sprintf("%s-%d", id, now.UnixNano())
	if bulk {
		uid += "-" + randomSuffix()
	}
	return uid + "@" + domain
}

// randomSuffix returns 9 lower-case base-36 characters.
func randomSuffix() string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	b := uuid.New()
	out := make([]byte, 9)
	for i := range out {
		out[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(out)
}

// formatEventDate renders the DTSTART/DTEND suffix (parameters + value).
// All-day values use the calendar date of t as given; timed values are
// converted to UTC.
func formatEventDate(t time.Time, allDay bool) string {
	if allDay {
		return ";VALUE=DATE:" + t.Format(layoutDate)
	}
	return ":" + formatTimestamp(t)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(layoutUTCTime)
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	`;`, `\;`,
	`,`, `\,`,
	"\n", `\n`,
	"\r", `\r`,
)

// EscapeText escapes a TEXT property value: backslash, semicolon and comma
// gain a backslash; newline and carriage return become \n and \r.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// UnescapeText reverses EscapeText. \N is accepted as a newline as well.
func UnescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Filename derives a download name from an event title.
func Filename(title string) string {
	return strings.ToLower(nonAlnum.ReplaceAllString(title, "_")) + ".ics"
}

// BulkFilename is the download name for a full export made at now.
func BulkFilename(now time.Time) string {
	return "churchconnect_events_" + now.UTC().Format("2006-01-02") + ".ics"
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses caller-supplied start/end values. Values without
// a zone are read in loc.
func ParseTimestamp(field, value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, &SerializationError{Field: field, Err: errMissingDate}
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, v, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, &SerializationError{Field: field, Value: value, Err: lastErr}
}
