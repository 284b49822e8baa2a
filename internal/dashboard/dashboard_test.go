package dashboard

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churchconnect/internal/calendar"
	"churchconnect/internal/clock"
	"churchconnect/internal/ics"
	"churchconnect/internal/mail"
	"churchconnect/internal/model"
	"churchconnect/internal/store"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []mail.Message
	fail map[string]bool
}

func (f *fakeSender) Send(_ context.Context, msg mail.Message) (mail.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[msg.To] {
		return mail.Receipt{}, errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, msg)
	return mail.Receipt{MessageID: "fake", Provider: "fake"}, nil
}

func (f *fakeSender) to() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		out = append(out, m.To)
	}
	return out
}

var testNow = time.Date(2025, 8, 14, 18, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *fakeSender) {
	t.Helper()
	b, err := store.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	st := store.New(b)
	require.NoError(t, st.Load(context.Background()))

	sender := &fakeSender{}
	s := New(st, sender, clock.NewFixed(testNow))
	s.Location = time.UTC
	return s, sender
}

func intPtr(v int) *int             { return &v }
func floatPtr(v float64) *float64   { return &v }
func ctx() context.Context          { return context.Background() }
func ids(evs []model.Event) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, string(ev.ID))
	}
	return out
}

func TestValidateEvent(t *testing.T) {
	err := ValidateEvent(EventInput{Capacity: intPtr(0), RegistrationFee: floatPtr(-1)})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{
		"name":            "Event name is required",
		"capacity":        "Capacity must be at least 1",
		"registrationFee": "Fee cannot be negative",
		"date":            "Date is required",
	}, verr.Fields)

	assert.NoError(t, ValidateEvent(EventInput{Name: "Food Drive", DateType: model.DateRecurring}))
}

func TestValidateContacts(t *testing.T) {
	var verr *ValidationError
	require.True(t, errors.As(ValidateVolunteer(VolunteerInput{Email: "not-an-email"}), &verr))
	assert.Equal(t, "Name is required", verr.Fields["name"])
	assert.Equal(t, "Please enter a valid email address", verr.Fields["email"])

	require.True(t, errors.As(ValidateAttendee(AttendeeInput{}), &verr))
	assert.Equal(t, "Name is required", verr.Fields["primaryName"])
	assert.Equal(t, "Email is required", verr.Fields["email"])

	assert.NoError(t, ValidateAttendee(AttendeeInput{PrimaryName: "Ann", Email: "ann@church.org"}))
}

func TestCreateEventDefaultsAndPersists(t *testing.T) {
	s, _ := newTestService(t)
	ev, err := s.CreateEvent(ctx(), EventInput{Name: "  Picnic ", Dates: []string{"2025-08-20", "", " "}})
	require.NoError(t, err)
	assert.Equal(t, "Picnic", ev.Name)
	assert.Equal(t, model.DateSingle, ev.DateType)
	assert.Equal(t, []string{"2025-08-20"}, ev.Dates)
	assert.Equal(t, 50, ev.Capacity)
	assert.Equal(t, model.StatusActive, ev.Status)
	assert.NotEmpty(t, ev.ID)

	got, err := s.GetEvent(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.Name, got.Name)

	_, err = s.CreateEvent(ctx(), EventInput{})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestApplyTemplate(t *testing.T) {
	in, err := ApplyTemplate(EventInput{Location: "Hall"}, "dinner")
	require.NoError(t, err)
	assert.Equal(t, "Community Dinner", in.Name)
	assert.Equal(t, "dinner", in.EventType)
	assert.Equal(t, "Hall", in.Location)
	require.Len(t, in.CustomQuestions, 2)

	_, err = ApplyTemplate(EventInput{}, "bbq")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestStatusAndDelete(t *testing.T) {
	s, _ := newTestService(t)

	ev, err := s.SetEventStatus(ctx(), "1", model.StatusArchived)
	require.NoError(t, err)
	assert.Equal(t, model.StatusArchived, ev.Status)

	_, err = s.SetEventStatus(ctx(), "1", "paused")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = s.SetEventStatus(ctx(), "404", model.StatusClosed)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteEvent(ctx(), "1"))
	_, err = s.GetEvent("1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, s.ListAttendees(AttendeeFilter{EventID: "1"}))
	assert.Len(t, s.ListAttendees(AttendeeFilter{}), 1)
}

func TestToggleVolunteerAssignment(t *testing.T) {
	s, _ := newTestService(t)
	ev, err := s.ToggleVolunteerAssignment(ctx(), "1", "2")
	require.NoError(t, err)
	assert.Equal(t, []model.ID{"1"}, ev.Volunteers)

	ev, err = s.ToggleVolunteerAssignment(ctx(), "1", "2")
	require.NoError(t, err)
	assert.Equal(t, []model.ID{"1", "2"}, ev.Volunteers)

	_, err = s.ToggleVolunteerAssignment(ctx(), "1", "99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterAttendee(t *testing.T) {
	s, sender := newTestService(t)

	reg, err := s.RegisterAttendee(ctx(), "1", AttendeeInput{
		PrimaryName:  "Ann Lee",
		Email:        "ann@church.org",
		GroupMembers: []model.GroupMember{{Name: "Ben Lee", Relationship: "Child", CheckedIn: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, reg.PartySize)
	assert.Equal(t, 150.0, reg.AmountDue)
	assert.Equal(t, model.PaymentPending, reg.Attendee.PaymentStatus)
	assert.Equal(t, "2025-08-14", reg.Attendee.RegistrationDate)
	assert.False(t, reg.Attendee.GroupMembers[0].CheckedIn)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ann@church.org", sender.sent[0].To)
	assert.Equal(t, "Registration Confirmed - Youth Summer Retreat", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "Fee: $75")
	assert.Contains(t, sender.sent[0].Body, "Date: Aug 15, 2025")

	free, err := s.RegisterAttendee(ctx(), "3", AttendeeInput{PrimaryName: "Cy", Email: "cy@church.org"})
	require.NoError(t, err)
	assert.Equal(t, "free", free.Attendee.PaymentStatus)
}

func TestRegisterAttendeeCapacity(t *testing.T) {
	s, _ := newTestService(t)
	ev, err := s.CreateEvent(ctx(), EventInput{Name: "Small group", Dates: []string{"2025-09-01"}, Capacity: intPtr(3)})
	require.NoError(t, err)

	_, err = s.RegisterAttendee(ctx(), ev.ID, AttendeeInput{PrimaryName: "A", Email: "a@b.co", GroupMembers: []model.GroupMember{{Name: "B"}}})
	require.NoError(t, err)

	_, err = s.RegisterAttendee(ctx(), ev.ID, AttendeeInput{PrimaryName: "C", Email: "c@b.co", GroupMembers: []model.GroupMember{{Name: "D"}}})
	require.ErrorIs(t, err, ErrCapacityExceeded)
	var cerr *CapacityError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 1, cerr.Remaining)

	_, err = s.RegisterAttendee(ctx(), ev.ID, AttendeeInput{PrimaryName: "C", Email: "c@b.co"})
	assert.NoError(t, err)
}

func TestRegistrationSurvivesMailFailure(t *testing.T) {
	s, sender := newTestService(t)
	sender.fail = map[string]bool{"ann@church.org": true}
	_, err := s.RegisterAttendee(ctx(), "1", AttendeeInput{PrimaryName: "Ann", Email: "ann@church.org"})
	assert.NoError(t, err)
}

func TestToggleCheckIn(t *testing.T) {
	s, _ := newTestService(t)
	a, err := s.ToggleCheckIn(ctx(), "1", nil)
	require.NoError(t, err)
	assert.True(t, a.CheckedIn)

	idx := 1
	a, err = s.ToggleCheckIn(ctx(), "1", &idx)
	require.NoError(t, err)
	assert.False(t, a.GroupMembers[0].CheckedIn)
	assert.True(t, a.GroupMembers[1].CheckedIn)

	bad := 5
	_, err = s.ToggleCheckIn(ctx(), "1", &bad)
	assert.ErrorIs(t, err, ErrInvalidMember)
}

func TestUpdateAttendeeKeepsEventLink(t *testing.T) {
	s, _ := newTestService(t)
	a, err := s.UpdateAttendee(ctx(), model.Attendee{ID: "2", EventID: "3", PrimaryName: "Mary J.", Email: "mary@email.com"})
	require.NoError(t, err)
	assert.Equal(t, model.ID("1"), a.EventID)
	assert.Equal(t, "2025-08-02", a.RegistrationDate)

	_, err = s.UpdateAttendee(ctx(), model.Attendee{ID: "2", PrimaryName: "Mary", Email: "bad"})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestSendMessageToEventAttendees(t *testing.T) {
	s, sender := newTestService(t)
	before := len(s.ListCommunications())

	c, err := s.SendMessage(ctx(), MessageInput{
		Recipients: EventAttendees,
		EventID:    "1",
		Subject:    "{eventName} update",
		Message:    "Hi {name}, see you at {eventLocation} {unknown}",
	})
	require.NoError(t, err)
	assert.Equal(t, "Youth Summer Retreat Attendees", c.Recipients)
	assert.Equal(t, 2, c.RecipientCount)
	assert.Equal(t, "announcement", c.Type)
	assert.Equal(t, "2025-08-14", c.SentDate)

	assert.ElementsMatch(t, []string{"john@email.com", "mary@email.com"}, sender.to())
	for _, m := range sender.sent {
		assert.Equal(t, "Youth Summer Retreat update", m.Subject)
		assert.Contains(t, m.Body, "see you at Camp Pine Ridge {unknown}")
	}

	comms := s.ListCommunications()
	require.Len(t, comms, before+1)
	assert.Equal(t, c.ID, comms[0].ID)
}

func TestSendMessageFallbackAddress(t *testing.T) {
	s, sender := newTestService(t)
	require.NoError(t, s.Store.Update(func(d *store.Data) error {
		d.Attendees = []model.Attendee{{ID: "9", EventID: "2", PrimaryName: "Robert  Wilson"}}
		return nil
	}))
	_, err := s.SendMessage(ctx(), MessageInput{Recipients: AllAttendees, Subject: "s", Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, []string{"robert.wilson@example.com"}, sender.to())
}

func TestSendMessageErrors(t *testing.T) {
	s, sender := newTestService(t)
	before := len(s.ListCommunications())

	_, err := s.SendMessage(ctx(), MessageInput{Recipients: AllVolunteers})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = s.SendMessage(ctx(), MessageInput{Recipients: EventVolunteers, EventID: "3", Subject: "s", Message: "m"})
	assert.ErrorIs(t, err, ErrNoRecipients)

	sender.fail = map[string]bool{"mike@email.com": true}
	_, err = s.SendMessage(ctx(), MessageInput{Recipients: AllVolunteers, Subject: "s", Message: "m"})
	assert.Error(t, err)
	assert.Len(t, s.ListCommunications(), before)
}

func TestVolunteerReminders(t *testing.T) {
	s, sender := newTestService(t)
	c, err := s.SendVolunteerReminders(ctx(), "1")
	require.NoError(t, err)
	assert.Equal(t, "System", c.SentBy)
	assert.Equal(t, "Volunteer Reminder - Youth Summer Retreat", c.Subject)
	assert.ElementsMatch(t, []string{"sarah@email.com", "mike@email.com"}, sender.to())

	_, err = s.SendVolunteerReminders(ctx(), "3")
	assert.ErrorIs(t, err, ErrNoVolunteers)
}

func TestVolunteerRemindersForDate(t *testing.T) {
	s, sender := newTestService(t)
	comms, err := s.VolunteerRemindersFor(ctx(), time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, comms, 1)
	assert.Len(t, sender.sent, 2)

	// The food drive only shows up once recurrence is expanded.
	s.Matcher = calendar.Matcher{ExpandRecurring: true}
	comms, err = s.VolunteerRemindersFor(ctx(), time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, comms, 1)
	assert.Equal(t, "Community Food Drive Volunteers", comms[0].Recipients)

	s.Notifications.VolunteerReminders = false
	comms, err = s.VolunteerRemindersFor(ctx(), time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, comms)
}

func TestFinance(t *testing.T) {
	s, _ := newTestService(t)
	sum := s.Totals()
	assert.Equal(t, 225.0, sum.EventPayments)
	assert.Equal(t, 750.0, sum.Donations)
	assert.Equal(t, 975.0, sum.TotalRevenue)
	assert.Equal(t, 2, sum.ActiveDonors)

	top := s.TopDonors()
	require.Len(t, top, 2)
	assert.Equal(t, DonorTotal{Name: "Anonymous Donor", Total: 500}, top[0])

	act := s.RecentActivity()
	require.Len(t, act, 4)
	assert.Equal(t, "2025-01-16", act[0].Date)
	assert.Equal(t, "Payment for Youth Summer Retreat", act[0].Description)
	assert.Equal(t, "Donation to Building Fund", act[3].Description)

	p, err := s.RefundPayment(ctx(), "1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, p.Status)
	assert.Len(t, s.ListPayments(PaymentFilter{Status: model.PaymentRefunded}), 1)

	_, err = s.RefundPayment(ctx(), "77")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDonations(t *testing.T) {
	s, sender := newTestService(t)
	dn, err := s.RecordDonation(ctx(), DonationInput{DonorName: "Grace", Email: "grace@church.org", Amount: 40})
	require.NoError(t, err)
	assert.Equal(t, "2025-08-14", dn.Date)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Body, "donation of $40 to General Fund")

	_, err = s.RecordDonation(ctx(), DonationInput{Amount: -1})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	r, err := s.SendDonationThankYou(ctx(), "2")
	require.NoError(t, err)
	assert.Equal(t, "fake", r.MessageID)
	assert.Equal(t, "michael.brown@example.com", sender.sent[1].To)
	assert.Contains(t, sender.sent[1].Body, "$250 to Youth Ministry")

	assert.Len(t, s.ListDonations(DonationFilter{Search: "youth"}), 1)
	assert.Len(t, s.ListDonations(DonationFilter{Campaign: "Building Fund"}), 1)
}

func TestFilters(t *testing.T) {
	s, _ := newTestService(t)
	assert.Equal(t, []string{"2"}, ids(s.ListEvents(EventFilter{Search: "HALL"})))
	assert.Equal(t, []string{"3"}, ids(s.ListEvents(EventFilter{Status: model.StatusClosed})))
	assert.Len(t, s.ListEvents(EventFilter{Status: "all"}), 3)

	assert.Len(t, s.ListVolunteers("setup"), 1)
	assert.Len(t, s.ListVolunteers(""), 3)
	assert.Len(t, s.ListAttendees(AttendeeFilter{Search: "@EMAIL.com"}), 3)
	assert.Len(t, s.ListPayments(PaymentFilter{Search: "sarah"}), 1)
}

func TestReports(t *testing.T) {
	s, _ := newTestService(t)
	require.NoError(t, s.Store.Update(func(d *store.Data) error {
		d.Donations = append(d.Donations, model.Donation{DonorName: "Smith, Jo", Amount: 12.5, Date: "2025-02-01"})
		return nil
	}))

	var buf bytes.Buffer
	require.NoError(t, s.PaymentsCSV(&buf))
	assert.Equal(t, "Event,Attendee,Amount,Status,Date\n"+
		"Youth Summer Retreat,John Smith,150,completed,2025-01-15\n"+
		"Youth Summer Retreat,Sarah Johnson,75,completed,2025-01-16\n", buf.String())

	buf.Reset()
	require.NoError(t, s.DonationsCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Donor,Campaign,Amount,Date", lines[0])
	assert.Equal(t, `"Smith, Jo",General,12.5,2025-02-01`, lines[3])
}

func TestMonthView(t *testing.T) {
	s, _ := newTestService(t)
	mv := s.MonthView(2025, time.August)
	assert.Equal(t, 5, mv.Grid.Leading())
	cell, ok := mv.Grid.Cell(15)
	require.True(t, ok)
	require.Len(t, cell.Events, 1)
	assert.Equal(t, model.ID("1"), cell.Events[0].ID)
	assert.Equal(t, calendar.EventStats{Registrants: 4, Volunteers: 2}, mv.Stats["1"])
}

func TestExport(t *testing.T) {
	s, _ := newTestService(t)

	x, err := s.ExportEvent("1")
	require.NoError(t, err)
	assert.Equal(t, "youth_summer_retreat.ics", x.Filename)
	assert.Contains(t, x.Content, "DTSTART;VALUE=DATE:20250815")

	_, err = s.ExportEvent("2")
	assert.ErrorIs(t, err, ErrNotExportable)

	all, err := s.ExportAll()
	require.NoError(t, err)
	assert.Equal(t, "churchconnect_events_2025-08-14.ics", all.Filename)
	assert.Equal(t, 2, strings.Count(all.Content, "BEGIN:VEVENT"))

	links, err := s.Links("1")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "2025-08-15", links[0].Date)
	assert.Contains(t, links[0].Links.Google, "text=Youth+Summer+Retreat")

	link, err := s.Link("3", ics.Outlook)
	require.NoError(t, err)
	assert.Contains(t, link, "subject=Easter+Celebration")
}

func TestImportEvents(t *testing.T) {
	s, _ := newTestService(t)
	got, err := s.ImportEvents(ctx(), []model.Event{
		{ID: "1", Name: "Clash", DateType: model.DateSingle, Dates: []string{"2025-09-09"}},
		{Name: "No id", DateType: model.DateSingle, Dates: []string{"2025-09-10"}},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEqual(t, model.ID("1"), got[0].ID)
	assert.NotEmpty(t, got[1].ID)
	assert.Equal(t, model.StatusActive, got[1].Status)
	assert.Len(t, s.ListEvents(EventFilter{}), 5)
}

func TestConcurrentCommandsAllPersist(t *testing.T) {
	b, err := store.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	st := store.New(b)
	require.NoError(t, st.Load(ctx()))
	s := New(st, &fakeSender{}, clock.NewFixed(testNow))
	s.Notifications.DonationThankYou = false

	const n = 16
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.AddVolunteer(ctx(), VolunteerInput{Name: "Helper", Email: "helper@example.com"})
			assert.NoError(t, err, i)
		}()
		go func() {
			defer wg.Done()
			_, err := s.RecordDonation(ctx(), DonationInput{DonorName: "Giver", Amount: 10})
			assert.NoError(t, err, i)
		}()
	}
	wg.Wait()

	reloaded := store.New(b)
	require.NoError(t, reloaded.Load(ctx()))
	reloaded.View(func(d *store.Data) {
		assert.Len(t, d.Volunteers, 3+n)
		assert.Len(t, d.Donations, 2+n)
	})
}

type failingBackend struct{ store.Backend }

func (failingBackend) Put(context.Context, string, []byte) error { return errors.New("disk full") }

func TestPersistenceErrorsReachCaller(t *testing.T) {
	b, err := store.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	st := store.New(failingBackend{b})
	require.NoError(t, st.Load(ctx()))
	s := New(st, &fakeSender{}, clock.NewFixed(testNow))

	v, err := s.AddVolunteer(ctx(), VolunteerInput{Name: "Helper", Email: "helper@example.com"})
	assert.ErrorContains(t, err, "disk full")
	assert.NotEmpty(t, v.ID)

	_, err = s.CreateEvent(ctx(), EventInput{Name: "Picnic", Dates: []string{"2025-08-20"}})
	assert.ErrorContains(t, err, "disk full")

	_, err = s.ImportEvents(ctx(), []model.Event{{Name: "Imported", Dates: []string{"2025-09-01"}}})
	assert.ErrorContains(t, err, "disk full")

	_, err = s.SendMessage(ctx(), MessageInput{Recipients: AllVolunteers, Subject: "Hi", Message: "Hello"})
	assert.ErrorContains(t, err, "disk full")

	// The in-memory change is kept.
	assert.Len(t, s.ListVolunteers(""), 4)
}
