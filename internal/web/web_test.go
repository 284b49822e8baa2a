package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churchconnect/internal/clock"
	"churchconnect/internal/config"
	"churchconnect/internal/dashboard"
	"churchconnect/internal/mail"
	"churchconnect/internal/model"
	"churchconnect/internal/store"
)

type stubSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *stubSender) Send(_ context.Context, msg mail.Message) (mail.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return mail.Receipt{}, s.err
	}
	s.sent = append(s.sent, msg)
	return mail.Receipt{MessageID: "stub", Provider: "stub"}, nil
}

func newTestServer(t *testing.T, auth *config.BasicAuthConfig) (http.Handler, *stubSender) {
	t.Helper()
	b, err := store.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	st := store.New(b)
	require.NoError(t, st.Load(context.Background()))

	sender := &stubSender{}
	svc := dashboard.New(st, sender, clock.NewFixed(time.Date(2025, 8, 14, 18, 0, 0, 0, time.UTC)))
	svc.Location = time.UTC

	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.BasicAuth = auth
	return NewServer(cfg, svc).Handler(), sender
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndBasicAuth(t *testing.T) {
	h, _ := newTestServer(t, &config.BasicAuthConfig{Username: "admin", Password: "secret"})

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/events", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCalendar(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/api/calendar?year=2025&month=8", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cal := decode[calendarResponse](t, rec)
	assert.Equal(t, "August 2025", cal.Title)
	assert.Equal(t, 5, cal.Leading)
	assert.Len(t, cal.Days, 31)
	assert.Equal(t, []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}, cal.Weekdays)

	day := cal.Days[14]
	assert.Equal(t, "2025-08-15", day.Date)
	require.Len(t, day.Events, 1)
	assert.Equal(t, "Youth Summer Retreat", day.Events[0].Name)
	assert.Equal(t, 4, day.Events[0].Registrants)
	assert.Equal(t, 2, day.Events[0].Volunteers)
	assert.Empty(t, cal.Days[25].Events, "recurring events are not expanded by default")

	rec = do(t, h, http.MethodGet, "/api/calendar?year=2025&month=13", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventLifecycle(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/events", `{"name":"Potluck","dates":["2025-09-07"],"capacity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[model.Event](t, rec)
	assert.Equal(t, "Potluck", ev.Name)

	rec = do(t, h, http.MethodGet, "/api/events/"+string(ev.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/events/"+string(ev.ID)+"/status", `{"status":"closed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusClosed, decode[model.Event](t, rec).Status)

	rec = do(t, h, http.MethodPut, "/api/events/"+string(ev.ID)+"/status", `{"status":"paused"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/events/"+string(ev.ID)+"/volunteers/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []model.ID{"3"}, decode[model.Event](t, rec).Volunteers)

	rec = do(t, h, http.MethodDelete, "/api/events/"+string(ev.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/events/"+string(ev.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errResp](t, rec).Code)
}

func TestCreateEventValidation(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/events", `{"name":"","capacity":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	er := decode[errResp](t, rec)
	assert.Equal(t, "validation_failed", er.Code)
	assert.Contains(t, er.Fields, "name")
	assert.Contains(t, er.Fields, "capacity")

	rec = do(t, h, http.MethodPost, "/api/events", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterCapacity(t *testing.T) {
	h, sender := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/events", `{"name":"Small Group","dates":["2025-09-07"],"capacity":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	ev := decode[model.Event](t, rec)

	rec = do(t, h, http.MethodPost, "/api/events/"+string(ev.ID)+"/register",
		`{"primaryName":"Ann Lee","email":"ann@example.com","groupMembers":[{"name":"Bo Lee","relationship":"Spouse"}]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/events/"+string(ev.ID)+"/register",
		`{"primaryName":"Ann Lee","email":"ann@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[dashboard.Registration](t, rec)
	assert.Equal(t, 1, reg.PartySize)
	assert.Len(t, sender.sent, 1)
}

func TestEventICSDownload(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/api/events/1/ics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar;charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "youth_summer_retreat.ics")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "BEGIN:VCALENDAR\r\n"))

	rec = do(t, h, http.MethodGet, "/api/events/2/ics", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/events/export.ics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))
}

func TestEventLinksAndQR(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/api/events/1/links", "")
	require.Equal(t, http.StatusOK, rec.Code)
	links := decode[[]dashboard.InstanceLinks](t, rec)
	require.Len(t, links, 1)
	assert.True(t, strings.HasPrefix(links[0].Links.Google, "https://calendar.google.com/calendar/render?"))
	assert.True(t, strings.HasPrefix(links[0].Links.Apple, "data:text/calendar"))

	rec = do(t, h, http.MethodGet, "/api/events/1/qr.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = do(t, h, http.MethodGet, "/api/events/1/qr.png?service=fax", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportRawEvents(t *testing.T) {
	h, _ := newTestServer(t, nil)

	body := `{"id":"7","title":"Board Meeting","location":"Room 2","startDate":"2025-09-01T19:00:00Z","endDate":"2025-09-01T20:00:00Z"}`
	rec := do(t, h, http.MethodPost, "/api/export/ics", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "DTSTART:20250901T190000Z\r\n")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "board_meeting.ics")

	rec = do(t, h, http.MethodPost, "/api/export/ics", `[`+body+`,`+body+`]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))

	rec = do(t, h, http.MethodPost, "/api/export/ics", `{"title":"Bad","startDate":"someday","endDate":"2025-09-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/export/links?service=outlook", body)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]string](t, rec)
	assert.True(t, strings.HasPrefix(got["url"], "https://outlook.live.com/calendar/0/deeplink/compose?"))

	rec = do(t, h, http.MethodPost, "/api/export/links?service=bogus", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/export/links", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"google"`)
}

func TestImport(t *testing.T) {
	h, _ := newTestServer(t, nil)

	feed := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//Test//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:vbs@example.org\r\nDTSTAMP:20250801T000000Z\r\n" +
		"DTSTART;VALUE=DATE:20250915\r\nDTEND;VALUE=DATE:20250916\r\nSUMMARY:Bible School\r\nEND:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	rec := do(t, h, http.MethodPost, "/api/import", feed)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	evs := decode[[]model.Event](t, rec)
	require.Len(t, evs, 1)
	assert.Equal(t, "Bible School", evs[0].Name)
	assert.Equal(t, []string{"2025-09-15"}, evs[0].Dates)

	rec = do(t, h, http.MethodPost, "/api/import", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPeopleEndpoints(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/api/volunteers?search=chen", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Volunteer](t, rec), 1)

	rec = do(t, h, http.MethodPost, "/api/volunteers", `{"name":"Pat Doe","email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/volunteers", `{"name":"Pat Doe","email":"pat@example.com","role":"Ushers"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/attendees?eventId=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Attendee](t, rec), 2)

	rec = do(t, h, http.MethodPost, "/api/attendees/1/checkin?member=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	a := decode[model.Attendee](t, rec)
	assert.True(t, a.GroupMembers[0].CheckedIn)
	assert.False(t, a.CheckedIn)

	rec = do(t, h, http.MethodPost, "/api/attendees/1/checkin?member=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/attendees/1/checkin?member=9", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/attendees/404/checkin", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessaging(t *testing.T) {
	h, sender := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/messages",
		`{"recipients":"event-volunteers","eventId":"1","subject":"Setup for {eventName}","message":"Hi {name}"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decode[model.Communication](t, rec)
	assert.Equal(t, 2, c.RecipientCount)
	assert.Len(t, sender.sent, 2)

	rec = do(t, h, http.MethodGet, "/api/communications", "")
	comms := decode[[]model.Communication](t, rec)
	require.NotEmpty(t, comms)
	assert.Equal(t, c.ID, comms[0].ID)

	rec = do(t, h, http.MethodPost, "/api/messages",
		`{"recipients":"event-volunteers","eventId":"3","subject":"x","message":"y"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/events/3/reminders", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	sender.err = errors.New("quota exceeded")
	rec = do(t, h, http.MethodPost, "/api/events/1/reminders", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestFinanceEndpoints(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/api/finance/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	fin := decode[financeResponse](t, rec)
	assert.Equal(t, 225.0, fin.Totals.EventPayments)
	assert.Equal(t, 750.0, fin.Totals.Donations)

	rec = do(t, h, http.MethodPost, "/api/payments/1/refund", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.PaymentRefunded, decode[model.Payment](t, rec).Status)

	rec = do(t, h, http.MethodGet, "/api/payments?status=refunded", "")
	assert.Len(t, decode[[]model.Payment](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/api/donations?campaign=Youth%20Ministry", "")
	assert.Len(t, decode[[]model.Donation](t, rec), 1)

	rec = do(t, h, http.MethodPost, "/api/donations/99/thank-you", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/reports/payments.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Event,Attendee,Amount,Status,Date\n"))

	rec = do(t, h, http.MethodGet, "/api/reports/donations.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "donations-report.csv")
}
