package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ID is an opaque record identifier. Records written by older dashboards
// carry numeric ids, so both JSON numbers and strings are accepted.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("model: id must be string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// DateType selects which occurrence rule applies to an Event.
type DateType string

const (
	DateSingle    DateType = "single"
	DateMultiple  DateType = "multiple"
	DateRecurring DateType = "recurring"
	DateOngoing   DateType = "ongoing"
)

// Event status values.
const (
	StatusActive   = "active"
	StatusClosed   = "closed"
	StatusArchived = "archived"
)

// CustomQuestion is an extra registration question attached to an event.
type CustomQuestion struct {
	ID       ID       `json:"id"`
	Question string   `json:"question"`
	Type     string   `json:"type"` // text, yes/no, number, select
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// Event is the domain event as shown on the calendar grid and managed by
// the dashboard.
type Event struct {
	ID       ID       `json:"id"`
	Name     string   `json:"name"`
	DateType DateType `json:"dateType"`
	// Dates holds YYYY-MM-DD strings; only meaningful for single/multiple.
	Dates []string `json:"dates"`
	// RecurrencePattern is descriptive text ("4th Tuesday of each month").
	// It is displayed, never evaluated.
	RecurrencePattern string `json:"recurrencePattern,omitempty"`
	// RRule is an optional RFC 5545 rule. Only consulted when recurrence
	// expansion is switched on in the calendar matcher.
	RRule string `json:"rrule,omitempty"`

	Location    string `json:"location,omitempty"`
	StartTime   string `json:"startTime,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
	Description string `json:"description,omitempty"`

	Capacity        int              `json:"capacity"`
	RegistrationFee float64          `json:"registrationFee"`
	DonationGoal    float64          `json:"donationGoal"`
	Donations       float64          `json:"donations"`
	Volunteers      []ID             `json:"volunteers"`
	Status          string           `json:"status"`
	EventType       string           `json:"eventType,omitempty"`
	CustomQuestions []CustomQuestion `json:"customQuestions"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// HasVolunteer reports whether the volunteer is assigned to the event.
func (e Event) HasVolunteer(id ID) bool {
	for _, v := range e.Volunteers {
		if v == id {
			return true
		}
	}
	return false
}

type Volunteer struct {
	ID            ID     `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	Role          string `json:"role"`
	SecurityLevel string `json:"securityLevel"`
}

type GroupMember struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	CheckedIn    bool   `json:"checkedIn"`
}

// Attendee is a registration: a primary contact plus optional group members.
type Attendee struct {
	ID               ID                `json:"id"`
	EventID          ID                `json:"eventId"`
	PrimaryName      string            `json:"primaryName"`
	Email            string            `json:"email"`
	Phone            string            `json:"phone,omitempty"`
	RegistrationDate string            `json:"registrationDate"`
	CheckedIn        bool              `json:"checkedIn"`
	PaymentStatus    string            `json:"paymentStatus"`
	GroupMembers     []GroupMember     `json:"groupMembers"`
	CustomResponses  map[string]string `json:"customResponses"`
}

// PartySize counts the primary registrant plus group members.
func (a Attendee) PartySize() int {
	return 1 + len(a.GroupMembers)
}

type Communication struct {
	ID             ID     `json:"id"`
	Type           string `json:"type"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
	Recipients     string `json:"recipients"`
	SentDate       string `json:"sentDate"`
	SentBy         string `json:"sentBy"`
	RecipientCount int    `json:"recipientCount"`
	SendVia        string `json:"sendVia,omitempty"`
	Status         string `json:"status,omitempty"`
}

// Payment status values.
const (
	PaymentCompleted = "completed"
	PaymentPending   = "pending"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

type Payment struct {
	ID            ID      `json:"id"`
	EventID       ID      `json:"eventId"`
	EventName     string  `json:"eventName"`
	AttendeeID    ID      `json:"attendeeId"`
	AttendeeName  string  `json:"attendeeName"`
	AttendeeCount int     `json:"attendeeCount"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
	Status        string  `json:"status"`
	Date          string  `json:"date"`
	TransactionID string  `json:"transactionId"`
}

type Donation struct {
	ID            ID      `json:"id"`
	DonorName     string  `json:"donorName"`
	Email         string  `json:"email,omitempty"`
	Amount        float64 `json:"amount"`
	Campaign      string  `json:"campaign,omitempty"`
	PaymentMethod string  `json:"paymentMethod"`
	Recurring     bool    `json:"recurring"`
	Anonymous     bool    `json:"anonymous"`
	Message       string  `json:"message,omitempty"`
	Date          string  `json:"date"`
	TransactionID string  `json:"transactionId"`
}
