package dashboard

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	appLog "churchconnect/internal/log"
	"churchconnect/internal/mail"
	"churchconnect/internal/message"
	"churchconnect/internal/model"
	"churchconnect/internal/store"
)

// VolunteerInput is the add-volunteer form.
type VolunteerInput struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Role          string `json:"role"`
	SecurityLevel string `json:"securityLevel"`
}

// AddVolunteer validates in and appends a new volunteer.
func (s *Service) AddVolunteer(ctx context.Context, in VolunteerInput) (model.Volunteer, error) {
	if err := ValidateVolunteer(in); err != nil {
		return model.Volunteer{}, err
	}
	v := model.Volunteer{
		ID:            model.ID(uuid.NewString()),
		Name:          strings.TrimSpace(in.Name),
		Email:         strings.TrimSpace(in.Email),
		Phone:         in.Phone,
		Role:          in.Role,
		SecurityLevel: in.SecurityLevel,
	}
	if v.Role == "" {
		v.Role = "Volunteer"
	}
	if v.SecurityLevel == "" {
		v.SecurityLevel = "volunteer"
	}
	err := s.commit(ctx, func(d *store.Data) error {
		d.Volunteers = append(d.Volunteers, v)
		return nil
	})
	return v, err
}

// ListVolunteers returns volunteers whose name, email or role contains
// search.
func (s *Service) ListVolunteers(search string) []model.Volunteer {
	var out []model.Volunteer
	s.Store.View(func(d *store.Data) {
		out = FilterVolunteers(d.Volunteers, search)
	})
	return out
}

// AttendeeInput is the registration form.
type AttendeeInput struct {
	PrimaryName     string              `json:"primaryName"`
	Email           string              `json:"email"`
	Phone           string              `json:"phone"`
	GroupMembers    []model.GroupMember `json:"groupMembers"`
	CustomResponses map[string]string   `json:"customResponses"`
}

// Registration is the result of RegisterAttendee.
type Registration struct {
	Attendee model.Attendee `json:"attendee"`
	// PartySize counts the primary registrant and group members.
	PartySize int `json:"partySize"`
	// AmountDue is the fee times the party size.
	AmountDue float64 `json:"amountDue"`
}

// RegisterAttendee adds a registration if the whole party fits in the
// remaining capacity. A confirmation email is sent when enabled; a failed
// send is logged and does not fail the registration.
func (s *Service) RegisterAttendee(ctx context.Context, eventID model.ID, in AttendeeInput) (Registration, error) {
	if err := ValidateAttendee(in); err != nil {
		return Registration{}, err
	}

	members := make([]model.GroupMember, 0, len(in.GroupMembers))
	for _, m := range in.GroupMembers {
		if strings.TrimSpace(m.Name) == "" {
			continue
		}
		m.CheckedIn = false
		members = append(members, m)
	}
	responses := in.CustomResponses
	if responses == nil {
		responses = map[string]string{}
	}

	var (
		ev  model.Event
		reg Registration
	)
	err := s.commit(ctx, func(d *store.Data) error {
		i := indexEvent(d.Events, eventID)
		if i < 0 {
			return notFound("event", eventID)
		}
		ev = d.Events[i]

		registered := 0
		for _, a := range d.Attendees {
			if a.EventID == eventID {
				registered += a.PartySize()
			}
		}
		party := 1 + len(members)
		if registered+party > ev.Capacity {
			return &CapacityError{Capacity: ev.Capacity, Remaining: max(ev.Capacity-registered, 0)}
		}

		status := "free"
		if ev.RegistrationFee > 0 {
			status = model.PaymentPending
		}
		a := model.Attendee{
			ID:               model.ID(uuid.NewString()),
			EventID:          eventID,
			PrimaryName:      strings.TrimSpace(in.PrimaryName),
			Email:            strings.TrimSpace(in.Email),
			Phone:            in.Phone,
			RegistrationDate: s.today(),
			PaymentStatus:    status,
			GroupMembers:     members,
			CustomResponses:  responses,
		}
		d.Attendees = append(d.Attendees, a)
		reg = Registration{Attendee: a, PartySize: party, AmountDue: ev.RegistrationFee * float64(party)}
		return nil
	})
	if err != nil {
		return reg, err
	}

	if s.Notifications.RegistrationConfirmation {
		s.sendRegistrationConfirmation(ctx, ev, reg.Attendee)
	}
	return reg, nil
}

func (s *Service) sendRegistrationConfirmation(ctx context.Context, ev model.Event, a model.Attendee) {
	tpl, _ := message.Lookup(message.RegistrationConfirmation)
	subject, body := tpl.Render(message.EventVars(ev).With(message.KeyName, a.PrimaryName))
	_, err := s.Mail.Send(ctx, mail.Message{To: a.Email, From: s.From, Subject: subject, Body: body})
	if err != nil {
		appLog.Error("registration confirmation failed", err, "event", ev.ID, "attendee", a.ID)
		return
	}
	appLog.Info("registration confirmation sent", "event", ev.ID, "attendee", a.ID)
}

// ListAttendees returns registrations matching f.
func (s *Service) ListAttendees(f AttendeeFilter) []model.Attendee {
	var out []model.Attendee
	s.Store.View(func(d *store.Data) {
		out = FilterAttendees(d.Attendees, f)
	})
	return out
}

// UpdateAttendee replaces a stored registration. The event link and
// registration date are kept from the stored copy.
func (s *Service) UpdateAttendee(ctx context.Context, a model.Attendee) (model.Attendee, error) {
	if err := ValidateAttendee(AttendeeInput{PrimaryName: a.PrimaryName, Email: a.Email}); err != nil {
		return model.Attendee{}, err
	}
	var out model.Attendee
	err := s.commit(ctx, func(d *store.Data) error {
		i := indexAttendee(d.Attendees, a.ID)
		if i < 0 {
			return notFound("attendee", a.ID)
		}
		old := d.Attendees[i]
		a.EventID = old.EventID
		a.RegistrationDate = old.RegistrationDate
		if a.GroupMembers == nil {
			a.GroupMembers = []model.GroupMember{}
		}
		if a.CustomResponses == nil {
			a.CustomResponses = map[string]string{}
		}
		d.Attendees[i] = a
		out = a
		return nil
	})
	return out, err
}

var ErrInvalidMember = errors.New("group member index out of range")

// ToggleCheckIn flips the check-in flag of the primary registrant, or of
// the group member at *member when member is non-nil.
func (s *Service) ToggleCheckIn(ctx context.Context, attendeeID model.ID, member *int) (model.Attendee, error) {
	var out model.Attendee
	err := s.commit(ctx, func(d *store.Data) error {
		i := indexAttendee(d.Attendees, attendeeID)
		if i < 0 {
			return notFound("attendee", attendeeID)
		}
		a := &d.Attendees[i]
		if member == nil {
			a.CheckedIn = !a.CheckedIn
		} else {
			if *member < 0 || *member >= len(a.GroupMembers) {
				return ErrInvalidMember
			}
			members := append([]model.GroupMember(nil), a.GroupMembers...)
			members[*member].CheckedIn = !members[*member].CheckedIn
			a.GroupMembers = members
		}
		out = *a
		return nil
	})
	return out, err
}
