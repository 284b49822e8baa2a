package dashboard

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"churchconnect/internal/model"
	"churchconnect/internal/store"
)

// EventInput is the create-event form. Nil numeric fields are unset.
type EventInput struct {
	Name              string                 `json:"name"`
	DateType          model.DateType         `json:"dateType"`
	Dates             []string               `json:"dates"`
	RecurrencePattern string                 `json:"recurrencePattern"`
	RRule             string                 `json:"rrule"`
	Location          string                 `json:"location"`
	StartTime         string                 `json:"startTime"`
	EndTime           string                 `json:"endTime"`
	Description       string                 `json:"description"`
	Capacity          *int                   `json:"capacity"`
	RegistrationFee   *float64               `json:"registrationFee"`
	DonationGoal      *float64               `json:"donationGoal"`
	EventType         string                 `json:"eventType"`
	CustomQuestions   []model.CustomQuestion `json:"customQuestions"`
}

func (in EventInput) dateType() model.DateType {
	if in.DateType == "" {
		return model.DateSingle
	}
	return in.DateType
}

type eventTemplate struct {
	Name            string
	EventType       string
	CustomQuestions []model.CustomQuestion
}

var eventTemplates = map[string]eventTemplate{
	"dinner": {
		Name:      "Community Dinner",
		EventType: "dinner",
		CustomQuestions: []model.CustomQuestion{
			{ID: "dietary", Question: "Dietary restrictions?", Type: "text"},
			{ID: "childcare", Question: "Childcare needed?", Type: "yes/no", Required: true},
		},
	},
	"feast": {
		Name:      "Feast Celebration",
		EventType: "feast",
		CustomQuestions: []model.CustomQuestion{
			{ID: "attending", Question: "Number of family members attending?", Type: "number", Required: true},
			{ID: "bringing", Question: "What dish will you bring?", Type: "text"},
		},
	},
	"retreat": {
		Name:      "Spiritual Retreat",
		EventType: "retreat",
		CustomQuestions: []model.CustomQuestion{
			{ID: "roommate", Question: "Roommate preference?", Type: "text"},
			{ID: "transport", Question: "Need transportation?", Type: "yes/no", Required: true},
		},
	},
	"service": {
		Name:      "Worship Service",
		EventType: "service",
		CustomQuestions: []model.CustomQuestion{
			{ID: "childcare", Question: "Children attending?", Type: "yes/no"},
		},
	},
}

// ApplyTemplate prefills in with the named event template's name, type and
// questions.
func ApplyTemplate(in EventInput, key string) (EventInput, error) {
	tpl, ok := eventTemplates[key]
	if !ok {
		return in, ErrUnknownTemplate
	}
	in.Name = tpl.Name
	in.EventType = tpl.EventType
	in.CustomQuestions = append([]model.CustomQuestion(nil), tpl.CustomQuestions...)
	return in, nil
}

// CreateEvent validates in and appends a new active event.
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (model.Event, error) {
	if err := ValidateEvent(in); err != nil {
		return model.Event{}, err
	}

	now := s.now()
	ev := model.Event{
		ID:                model.ID(uuid.NewString()),
		Name:              strings.TrimSpace(in.Name),
		DateType:          in.dateType(),
		Dates:             nonEmpty(in.Dates),
		RecurrencePattern: in.RecurrencePattern,
		RRule:             in.RRule,
		Location:          in.Location,
		StartTime:         in.StartTime,
		EndTime:           in.EndTime,
		Description:       in.Description,
		Capacity:          50,
		Volunteers:        []model.ID{},
		Status:            model.StatusActive,
		EventType:         in.EventType,
		CustomQuestions:   questions(in.CustomQuestions),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.Capacity != nil {
		ev.Capacity = *in.Capacity
	}
	if in.RegistrationFee != nil {
		ev.RegistrationFee = *in.RegistrationFee
	}
	if in.DonationGoal != nil {
		ev.DonationGoal = *in.DonationGoal
	}

	err := s.commit(ctx, func(d *store.Data) error {
		d.Events = append(d.Events, ev)
		return nil
	})
	return ev, err
}

func nonEmpty(dates []string) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func questions(qs []model.CustomQuestion) []model.CustomQuestion {
	out := make([]model.CustomQuestion, 0, len(qs))
	for _, q := range qs {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		if q.ID == "" {
			q.ID = model.ID(uuid.NewString())
		}
		if q.Type == "" {
			q.Type = "text"
		}
		out = append(out, q)
	}
	return out
}

// GetEvent returns the event with id.
func (s *Service) GetEvent(id model.ID) (model.Event, error) {
	var (
		ev    model.Event
		found bool
	)
	s.Store.View(func(d *store.Data) {
		if i := indexEvent(d.Events, id); i >= 0 {
			ev, found = d.Events[i], true
		}
	})
	if !found {
		return model.Event{}, notFound("event", id)
	}
	return ev, nil
}

// ListEvents returns the events matching f in stored order.
func (s *Service) ListEvents(f EventFilter) []model.Event {
	var out []model.Event
	s.Store.View(func(d *store.Data) {
		out = FilterEvents(d.Events, f)
	})
	return out
}

// SetEventStatus moves an event between active, closed and archived.
func (s *Service) SetEventStatus(ctx context.Context, id model.ID, status string) (model.Event, error) {
	switch status {
	case model.StatusActive, model.StatusClosed, model.StatusArchived:
	default:
		return model.Event{}, ErrInvalidStatus
	}

	var ev model.Event
	err := s.commit(ctx, func(d *store.Data) error {
		i := indexEvent(d.Events, id)
		if i < 0 {
			return notFound("event", id)
		}
		d.Events[i].Status = status
		d.Events[i].UpdatedAt = s.now()
		ev = d.Events[i]
		return nil
	})
	return ev, err
}

// DeleteEvent removes an event together with its registrations.
func (s *Service) DeleteEvent(ctx context.Context, id model.ID) error {
	return s.commit(ctx, func(d *store.Data) error {
		i := indexEvent(d.Events, id)
		if i < 0 {
			return notFound("event", id)
		}
		d.Events = append(d.Events[:i:i], d.Events[i+1:]...)

		kept := d.Attendees[:0:0]
		for _, a := range d.Attendees {
			if a.EventID != id {
				kept = append(kept, a)
			}
		}
		d.Attendees = kept
		return nil
	})
}

// ToggleVolunteerAssignment assigns the volunteer to the event, or removes
// them if already assigned.
func (s *Service) ToggleVolunteerAssignment(ctx context.Context, eventID, volunteerID model.ID) (model.Event, error) {
	var ev model.Event
	err := s.commit(ctx, func(d *store.Data) error {
		i := indexEvent(d.Events, eventID)
		if i < 0 {
			return notFound("event", eventID)
		}
		if indexVolunteer(d.Volunteers, volunteerID) < 0 {
			return notFound("volunteer", volunteerID)
		}
		e := &d.Events[i]
		if e.HasVolunteer(volunteerID) {
			next := make([]model.ID, 0, len(e.Volunteers))
			for _, v := range e.Volunteers {
				if v != volunteerID {
					next = append(next, v)
				}
			}
			e.Volunteers = next
		} else {
			e.Volunteers = append(e.Volunteers, volunteerID)
		}
		e.UpdatedAt = s.now()
		ev = *e
		return nil
	})
	return ev, err
}

// ImportEvents appends externally sourced events. Events whose id is empty
// or already taken get a fresh one.
func (s *Service) ImportEvents(ctx context.Context, evs []model.Event) ([]model.Event, error) {
	out := make([]model.Event, 0, len(evs))
	if len(evs) == 0 {
		return out, nil
	}
	now := s.now()
	err := s.commit(ctx, func(d *store.Data) error {
		for _, ev := range evs {
			if ev.ID == "" || indexEvent(d.Events, ev.ID) >= 0 {
				ev.ID = model.ID(uuid.NewString())
			}
			if ev.Status == "" {
				ev.Status = model.StatusActive
			}
			if ev.Volunteers == nil {
				ev.Volunteers = []model.ID{}
			}
			if ev.CustomQuestions == nil {
				ev.CustomQuestions = []model.CustomQuestion{}
			}
			ev.CreatedAt, ev.UpdatedAt = now, now
			d.Events = append(d.Events, ev)
			out = append(out, ev)
		}
		return nil
	})
	return out, err
}

func indexEvent(evs []model.Event, id model.ID) int {
	for i := range evs {
		if evs[i].ID == id {
			return i
		}
	}
	return -1
}

func indexVolunteer(vs []model.Volunteer, id model.ID) int {
	for i := range vs {
		if vs[i].ID == id {
			return i
		}
	}
	return -1
}

func indexAttendee(as []model.Attendee, id model.ID) int {
	for i := range as {
		if as[i].ID == id {
			return i
		}
	}
	return -1
}
