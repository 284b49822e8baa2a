package message

// Template is a subject/body pair with placeholders.
type Template struct {
	Key     string `json:"key"`
	Subject string `json:"subject"`
	Body    string `json:"message"`
}

// Render renders both subject and body.
func (t Template) Render(vars Vars) (subject, body string) {
	return Render(t.Subject, vars), Render(t.Body, vars)
}

const (
	RegistrationConfirmation = "registration-confirmation"
	VolunteerReminder        = "volunteer-reminder"
	EventUpdate              = "event-update"
	DonationThankYou         = "donation-thank-you"
)

const footer = "\n\n---\nThis is an automated message from ChurchConnect Event Manager."

var templates = map[string]Template{
	RegistrationConfirmation: {
		Key:     RegistrationConfirmation,
		Subject: "Registration Confirmed - {eventName}",
		Body: "Dear {name},\n\n" +
			"Thank you for registering for {eventName}!\n\n" +
			"Event Details:\n" +
			"📅 Date: {eventDate}\n" +
			"📍 Location: {eventLocation}\n" +
			"💰 Fee: {eventFee}\n\n" +
			"We look forward to seeing you there!\n\n" +
			"Best regards,\nChurch Connect Team" + footer,
	},
	VolunteerReminder: {
		Key:     VolunteerReminder,
		Subject: "Volunteer Reminder - {eventName}",
		Body: "Dear {name},\n\n" +
			"This is a friendly reminder that you're scheduled to volunteer for {eventName} tomorrow.\n\n" +
			"Event Details:\n" +
			"📅 Date: {eventDate}\n" +
			"📍 Location: {eventLocation}\n" +
			"⏰ Please arrive 30 minutes early\n\n" +
			"Thank you for your service to our community!\n\n" +
			"Blessings,\nChurch Connect Team" + footer,
	},
	EventUpdate: {
		Key:     EventUpdate,
		Subject: "Important Update - {eventName}",
		Body: "Dear {name},\n\n" +
			"We have an important update regarding {eventName}:\n\n" +
			"{updateMessage}\n\n" +
			"If you have any questions, please don't hesitate to contact us.\n\n" +
			"Best regards,\nChurch Connect Team" + footer,
	},
	DonationThankYou: {
		Key:     DonationThankYou,
		Subject: "Thank You for Your Donation",
		Body: "Dear {name},\n\n" +
			"Thank you for your generous donation of {amount} to {eventName}.\n\n" +
			"Your support helps us continue our mission and serve our community.\n\n" +
			"We are truly grateful for your generosity.\n\n" +
			"Blessings,\nChurch Connect Team" + footer,
	},
}

// Lookup returns the built-in template for key.
func Lookup(key string) (Template, bool) {
	t, ok := templates[key]
	return t, ok
}

// Templates returns every built-in template, ordered by key.
func Templates() []Template {
	return []Template{
		templates[DonationThankYou],
		templates[EventUpdate],
		templates[RegistrationConfirmation],
		templates[VolunteerReminder],
	}
}
