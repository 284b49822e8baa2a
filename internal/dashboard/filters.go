package dashboard

import (
	"strings"

	"churchconnect/internal/model"
)

// EventFilter selects events by name/location substring and status.
// Empty Status or "all" matches every status.
type EventFilter struct {
	Search string
	Status string
}

// AttendeeFilter selects registrations by name/email substring and,
// optionally, event.
type AttendeeFilter struct {
	Search  string
	EventID model.ID
}

// PaymentFilter selects payments by event/attendee substring and status.
type PaymentFilter struct {
	Search string
	Status string
}

// DonationFilter selects donations by donor/campaign substring and exact
// campaign.
type DonationFilter struct {
	Search   string
	Campaign string
}

func contains(field, search string) bool {
	return strings.Contains(strings.ToLower(field), search)
}

func matchesAll(v string) bool { return v == "" || v == "all" }

func FilterEvents(evs []model.Event, f EventFilter) []model.Event {
	q := strings.ToLower(f.Search)
	out := make([]model.Event, 0, len(evs))
	for _, ev := range evs {
		if !(contains(ev.Name, q) || contains(ev.Location, q)) {
			continue
		}
		if !matchesAll(f.Status) && ev.Status != f.Status {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func FilterVolunteers(vs []model.Volunteer, search string) []model.Volunteer {
	q := strings.ToLower(search)
	out := make([]model.Volunteer, 0, len(vs))
	for _, v := range vs {
		if contains(v.Name, q) || contains(v.Email, q) || contains(v.Role, q) {
			out = append(out, v)
		}
	}
	return out
}

func FilterAttendees(as []model.Attendee, f AttendeeFilter) []model.Attendee {
	q := strings.ToLower(f.Search)
	out := make([]model.Attendee, 0, len(as))
	for _, a := range as {
		if f.EventID != "" && a.EventID != f.EventID {
			continue
		}
		if contains(a.PrimaryName, q) || contains(a.Email, q) {
			out = append(out, a)
		}
	}
	return out
}

func FilterPayments(ps []model.Payment, f PaymentFilter) []model.Payment {
	q := strings.ToLower(f.Search)
	out := make([]model.Payment, 0, len(ps))
	for _, p := range ps {
		if !(contains(p.EventName, q) || contains(p.AttendeeName, q)) {
			continue
		}
		if !matchesAll(f.Status) && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	return out
}

func FilterDonations(ds []model.Donation, f DonationFilter) []model.Donation {
	q := strings.ToLower(f.Search)
	out := make([]model.Donation, 0, len(ds))
	for _, d := range ds {
		if !(contains(d.DonorName, q) || (d.Campaign != "" && contains(d.Campaign, q))) {
			continue
		}
		if !matchesAll(f.Campaign) && d.Campaign != f.Campaign {
			continue
		}
		out = append(out, d)
	}
	return out
}
