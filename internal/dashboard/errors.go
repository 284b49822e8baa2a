package dashboard

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"churchconnect/internal/model"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrCapacityExceeded = errors.New("event is at capacity")
	ErrNoRecipients     = errors.New("no recipients found for the selected criteria")
	ErrNoVolunteers     = errors.New("no volunteers assigned to this event")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrNotExportable    = errors.New("event has no concrete dates to export")
	ErrUnknownTemplate  = errors.New("unknown template")
	ErrSendFailed       = errors.New("mail delivery failed")
)

// CapacityError reports how many spots were left when a registration did
// not fit.
type CapacityError struct {
	Capacity  int
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("sorry, this event only has %d spots left", e.Remaining)
}

func (e *CapacityError) Is(target error) bool { return target == ErrCapacityExceeded }

// ValidationError carries one message per invalid form field.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return "please fix the following errors: " + strings.Join(msgs, "; ")
}

func notFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, ErrNotFound)
}

var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type fieldErrors map[string]string

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

func validateContact(f fieldErrors, nameKey, name, email string) {
	if strings.TrimSpace(name) == "" {
		f[nameKey] = "Name is required"
	}
	if strings.TrimSpace(email) == "" {
		f["email"] = "Email is required"
	}
	if email != "" && !emailRE.MatchString(email) {
		f["email"] = "Please enter a valid email address"
	}
}

// ValidateEvent checks an event form.
func ValidateEvent(in EventInput) error {
	f := fieldErrors{}
	if strings.TrimSpace(in.Name) == "" {
		f["name"] = "Event name is required"
	}
	if in.Capacity != nil && *in.Capacity < 1 {
		f["capacity"] = "Capacity must be at least 1"
	}
	if in.RegistrationFee != nil && *in.RegistrationFee < 0 {
		f["registrationFee"] = "Fee cannot be negative"
	}
	if in.dateType() == model.DateSingle && (len(in.Dates) == 0 || strings.TrimSpace(in.Dates[0]) == "") {
		f["date"] = "Date is required"
	}
	return f.err()
}

// ValidateVolunteer checks a volunteer form.
func ValidateVolunteer(in VolunteerInput) error {
	f := fieldErrors{}
	validateContact(f, "name", in.Name, in.Email)
	return f.err()
}

// ValidateAttendee checks a registration form.
func ValidateAttendee(in AttendeeInput) error {
	f := fieldErrors{}
	validateContact(f, "primaryName", in.PrimaryName, in.Email)
	return f.err()
}
