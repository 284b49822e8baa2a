package dashboard

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	appLog "churchconnect/internal/log"
	"churchconnect/internal/mail"
	"churchconnect/internal/message"
	"churchconnect/internal/model"
	"churchconnect/internal/store"
)

// Recipient groups for SendMessage.
const (
	AllVolunteers   = "all-volunteers"
	AllAttendees    = "all-attendees"
	EventVolunteers = "event-volunteers"
	EventAttendees  = "event-attendees"
)

// MessageInput is the compose form.
type MessageInput struct {
	Type       string   `json:"type"`
	Recipients string   `json:"recipients"`
	EventID    model.ID `json:"eventId"`
	Subject    string   `json:"subject"`
	Message    string   `json:"message"`
	SendVia    string   `json:"sendVia"`
}

type recipient struct {
	Name  string
	Email string
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// fallbackEmail invents an address for a registrant without one.
func fallbackEmail(name string) string {
	return whitespaceRE.ReplaceAllString(strings.ToLower(name), ".") + "@example.com"
}

func (s *Service) resolveRecipients(in MessageInput) ([]recipient, string, *model.Event) {
	var (
		out   []recipient
		desc  string
		event *model.Event
	)
	s.Store.View(func(d *store.Data) {
		if in.EventID != "" {
			if i := indexEvent(d.Events, in.EventID); i >= 0 {
				ev := d.Events[i]
				event = &ev
			}
		}
		switch in.Recipients {
		case AllVolunteers:
			desc = "All Volunteers"
			for _, v := range d.Volunteers {
				out = append(out, recipient{Name: v.Name, Email: v.Email})
			}
		case AllAttendees:
			desc = "All Attendees"
			for _, a := range d.Attendees {
				out = append(out, attendeeRecipient(a))
			}
		case EventVolunteers:
			if event == nil {
				return
			}
			desc = event.Name + " Volunteers"
			for _, v := range d.Volunteers {
				if event.HasVolunteer(v.ID) {
					out = append(out, recipient{Name: v.Name, Email: v.Email})
				}
			}
		case EventAttendees:
			if event == nil {
				return
			}
			desc = event.Name + " Attendees"
			for _, a := range d.Attendees {
				if a.EventID == event.ID {
					out = append(out, attendeeRecipient(a))
				}
			}
		}
	})
	return out, desc, event
}

func attendeeRecipient(a model.Attendee) recipient {
	r := recipient{Name: a.PrimaryName, Email: a.Email}
	if r.Email == "" {
		r.Email = fallbackEmail(a.PrimaryName)
	}
	if r.Name == "" {
		r.Name = "Valued Member"
	}
	return r
}

// SendMessage renders the message for every recipient in the selected
// group and sends them concurrently. The communication is recorded only
// if every send succeeds.
func (s *Service) SendMessage(ctx context.Context, in MessageInput) (model.Communication, error) {
	f := fieldErrors{}
	if strings.TrimSpace(in.Subject) == "" {
		f["subject"] = "Subject is required"
	}
	if strings.TrimSpace(in.Message) == "" {
		f["message"] = "Message is required"
	}
	if err := f.err(); err != nil {
		return model.Communication{}, err
	}

	recipients, desc, event := s.resolveRecipients(in)
	if len(recipients) == 0 {
		return model.Communication{}, ErrNoRecipients
	}

	base := message.Vars{}
	if event != nil {
		base = message.EventVars(*event)
	}
	msgs := make([]mail.Message, 0, len(recipients))
	for _, r := range recipients {
		vars := base.With(message.KeyName, r.Name)
		msgs = append(msgs, mail.Message{
			To:      r.Email,
			From:    s.From,
			Subject: message.Render(in.Subject, vars),
			Body:    message.Render(in.Message, vars),
		})
	}
	if err := s.sendAll(ctx, msgs); err != nil {
		return model.Communication{}, err
	}

	typ := in.Type
	if typ == "" {
		typ = "announcement"
	}
	via := in.SendVia
	if via == "" {
		via = "email"
	}
	c := model.Communication{
		ID:             model.ID(uuid.NewString()),
		Type:           typ,
		Subject:        in.Subject,
		Message:        in.Message,
		Recipients:     desc,
		SentDate:       s.today(),
		SentBy:         "Admin",
		RecipientCount: len(recipients),
		SendVia:        via,
		Status:         "sent",
	}
	return c, s.record(ctx, c)
}

// sendAll sends msgs with bounded concurrency and returns the first error.
func (s *Service) sendAll(ctx context.Context, msgs []mail.Message) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for _, m := range msgs {
		g.Go(func() error {
			if _, err := s.Mail.Send(gctx, m); err != nil {
				return fmt.Errorf("%w: send to %s: %w", ErrSendFailed, m.To, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		appLog.Error("message send failed", err, "recipients", len(msgs))
		return err
	}
	appLog.Info("messages sent", "recipients", len(msgs))
	return nil
}

// record prepends c to the communication history and persists.
func (s *Service) record(ctx context.Context, c model.Communication) error {
	return s.commit(ctx, func(d *store.Data) error {
		d.Communications = append([]model.Communication{c}, d.Communications...)
		return nil
	})
}

// ListCommunications returns the history, newest first.
func (s *Service) ListCommunications() []model.Communication {
	var out []model.Communication
	s.Store.View(func(d *store.Data) {
		out = append(out, d.Communications...)
	})
	return out
}

// SendVolunteerReminders mails the volunteer-reminder template to every
// volunteer assigned to the event.
func (s *Service) SendVolunteerReminders(ctx context.Context, eventID model.ID) (model.Communication, error) {
	ev, err := s.GetEvent(eventID)
	if err != nil {
		return model.Communication{}, err
	}
	var vols []model.Volunteer
	s.Store.View(func(d *store.Data) {
		for _, v := range d.Volunteers {
			if ev.HasVolunteer(v.ID) {
				vols = append(vols, v)
			}
		}
	})
	if len(vols) == 0 {
		return model.Communication{}, ErrNoVolunteers
	}

	tpl, _ := message.Lookup(message.VolunteerReminder)
	base := message.EventVars(ev)
	msgs := make([]mail.Message, 0, len(vols))
	for _, v := range vols {
		subject, body := tpl.Render(base.With(message.KeyName, v.Name))
		msgs = append(msgs, mail.Message{To: v.Email, From: s.From, Subject: subject, Body: body})
	}
	if err := s.sendAll(ctx, msgs); err != nil {
		return model.Communication{}, err
	}

	c := model.Communication{
		ID:             model.ID(uuid.NewString()),
		Type:           "reminder",
		Subject:        "Volunteer Reminder - " + ev.Name,
		Message:        fmt.Sprintf("Automated reminder sent to %d volunteers for %s", len(vols), ev.Name),
		Recipients:     ev.Name + " Volunteers",
		SentDate:       s.today(),
		SentBy:         "System",
		RecipientCount: len(vols),
		SendVia:        "email",
		Status:         "sent",
	}
	return c, s.record(ctx, c)
}

// VolunteerRemindersFor sends reminders for every active event occurring
// on date. Events without volunteers are skipped. Nothing is sent when
// volunteer reminders are switched off.
func (s *Service) VolunteerRemindersFor(ctx context.Context, date time.Time) ([]model.Communication, error) {
	if !s.Notifications.VolunteerReminders {
		return nil, nil
	}
	var due []model.ID
	s.Store.View(func(d *store.Data) {
		for _, ev := range s.Matcher.EventsOn(d.Events, date) {
			if ev.Status == model.StatusActive && len(ev.Volunteers) > 0 {
				due = append(due, ev.ID)
			}
		}
	})

	var (
		out  []model.Communication
		errs []error
	)
	for _, id := range due {
		c, err := s.SendVolunteerReminders(ctx, id)
		switch {
		case errors.Is(err, ErrNoVolunteers):
		case err != nil:
			errs = append(errs, fmt.Errorf("event %s: %w", id, err))
		default:
			out = append(out, c)
		}
	}
	return out, errors.Join(errs...)
}
