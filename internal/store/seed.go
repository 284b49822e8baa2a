package store

import "churchconnect/internal/model"

// DefaultData returns the sample collections a fresh install starts with.
// Each call returns new slices.
func DefaultData() Data {
	return Data{
		Events: []model.Event{
			{
				ID:              "1",
				Name:            "Youth Summer Retreat",
				DateType:        model.DateSingle,
				Dates:           []string{"2025-08-15"},
				Location:        "Camp Pine Ridge",
				Capacity:        60,
				RegistrationFee: 75,
				DonationGoal:    3000,
				Donations:       2850,
				Volunteers:      []model.ID{"1", "2"},
				Status:          model.StatusActive,
				EventType:       "retreat",
				CustomQuestions: []model.CustomQuestion{
					{ID: "roommate", Question: "Roommate preference?", Type: "text"},
					{ID: "transport", Question: "Need transportation?", Type: "yes/no", Required: true},
				},
			},
			{
				ID:                "2",
				Name:              "Community Food Drive",
				DateType:          model.DateRecurring,
				Dates:             []string{},
				RecurrencePattern: "4th Tuesday of each month",
				RRule:             "FREQ=MONTHLY;BYDAY=4TU",
				Location:          "Church Fellowship Hall",
				Capacity:          50,
				DonationGoal:      2000,
				Donations:         1200,
				Volunteers:        []model.ID{"3"},
				Status:            model.StatusActive,
				EventType:         "service",
				CustomQuestions: []model.CustomQuestion{
					{ID: "shifts", Question: "Preferred shift?", Type: "select", Options: []string{"Morning", "Afternoon", "Evening"}, Required: true},
				},
			},
			{
				ID:              "3",
				Name:            "Easter Celebration",
				DateType:        model.DateSingle,
				Dates:           []string{"2025-04-20"},
				Location:        "Main Sanctuary",
				Capacity:        200,
				DonationGoal:    5000,
				Donations:       3200,
				Volunteers:      []model.ID{},
				Status:          model.StatusClosed,
				EventType:       "service",
				CustomQuestions: []model.CustomQuestion{},
			},
		},
		Volunteers: []model.Volunteer{
			{ID: "1", Name: "Sarah Johnson", Email: "sarah@email.com", Phone: "555-0123", Role: "Event Coordinator", SecurityLevel: "admin"},
			{ID: "2", Name: "Mike Chen", Email: "mike@email.com", Phone: "555-0124", Role: "Setup Team", SecurityLevel: "volunteer"},
			{ID: "3", Name: "Lisa Brown", Email: "lisa@email.com", Phone: "555-0125", Role: "Registration", SecurityLevel: "volunteer"},
		},
		Attendees: []model.Attendee{
			{
				ID: "1", EventID: "1", PrimaryName: "John Smith", Email: "john@email.com", Phone: "555-1001",
				RegistrationDate: "2025-08-01", PaymentStatus: "paid",
				GroupMembers: []model.GroupMember{
					{Name: "Jane Smith", Relationship: "Spouse"},
					{Name: "Tim Smith", Relationship: "Child"},
				},
				CustomResponses: map[string]string{"roommate": "No preference", "transport": "yes"},
			},
			{
				ID: "2", EventID: "1", PrimaryName: "Mary Johnson", Email: "mary@email.com", Phone: "555-1002",
				RegistrationDate: "2025-08-02", CheckedIn: true, PaymentStatus: "paid",
				GroupMembers:    []model.GroupMember{},
				CustomResponses: map[string]string{"roommate": "Lisa Brown", "transport": "no"},
			},
			{
				ID: "3", EventID: "2", PrimaryName: "Robert Wilson", Email: "robert@email.com", Phone: "555-1003",
				RegistrationDate: "2025-08-03", PaymentStatus: "free",
				GroupMembers: []model.GroupMember{
					{Name: "Emily Wilson", Relationship: "Spouse"},
				},
				CustomResponses: map[string]string{"shifts": "Morning"},
			},
		},
		Communications: []model.Communication{
			{
				ID: "1", Type: "announcement", Subject: "Youth Retreat Registration Open",
				Message:    "Registration is now open for our Youth Summer Retreat! Sign up today.",
				Recipients: "All Volunteers", SentDate: "2025-08-01", SentBy: "Admin", RecipientCount: 3,
			},
			{
				ID: "2", Type: "reminder", Subject: "Food Drive Tomorrow",
				Message:    "Don't forget about our monthly food drive tomorrow. Please arrive 30 minutes early.",
				Recipients: "Food Drive Volunteers", SentDate: "2025-08-05", SentBy: "Admin", RecipientCount: 1,
			},
		},
		Payments: []model.Payment{
			{
				ID: "1", EventID: "1", EventName: "Youth Summer Retreat", AttendeeID: "1", AttendeeName: "John Smith",
				AttendeeCount: 2, Amount: 150, PaymentMethod: "Credit Card", Status: model.PaymentCompleted,
				Date: "2025-01-15", TransactionID: "txn_123456789",
			},
			{
				ID: "2", EventID: "1", EventName: "Youth Summer Retreat", AttendeeID: "2", AttendeeName: "Sarah Johnson",
				AttendeeCount: 1, Amount: 75, PaymentMethod: "PayPal", Status: model.PaymentCompleted,
				Date: "2025-01-16", TransactionID: "txn_123456790",
			},
		},
		Donations: []model.Donation{
			{
				ID: "1", DonorName: "Anonymous Donor", Amount: 500, Campaign: "Building Fund", PaymentMethod: "Credit Card",
				Anonymous: true, Message: "In memory of our beloved community", Date: "2025-01-10", TransactionID: "don_123456789",
			},
			{
				ID: "2", DonorName: "Michael Brown", Amount: 250, Campaign: "Youth Ministry", PaymentMethod: "Bank Transfer",
				Recurring: true, Message: "Supporting our youth programs", Date: "2025-01-12", TransactionID: "don_123456790",
			},
		},
	}
}
