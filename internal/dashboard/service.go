// Package dashboard implements the event-manager commands: events,
// volunteers, registrations, messaging, finance and calendar export.
//
// Every mutating command validates its input, changes the collections
// under the store's write lock and then persists them. A persistence error
// is returned to the caller; the in-memory change is kept.
package dashboard

import (
	"context"
	"time"

	"churchconnect/internal/calendar"
	"churchconnect/internal/clock"
	"churchconnect/internal/config"
	"churchconnect/internal/ics"
	"churchconnect/internal/mail"
	"churchconnect/internal/store"
)

// Service wires the dashboard commands to storage, mail and calendar
// export.
type Service struct {
	Store         *store.Store
	Mail          mail.Sender
	Clock         clock.Clock
	Notifications config.NotificationsConfig
	Serializer    *ics.Serializer
	LinkBuilder   *ics.LinkBuilder
	Matcher       calendar.Matcher

	// Location is used for "today" and for exporting dates. Defaults to
	// time.Local.
	Location *time.Location
	// From is the sender address on outgoing mail.
	From string
	// SendConcurrency bounds parallel mail sends. Defaults to 4.
	SendConcurrency int
}

// New returns a Service with defaults for every optional field.
func New(st *store.Store, sender mail.Sender, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if sender == nil {
		sender = mail.LogSender{}
	}
	ser := ics.NewSerializer(clk)
	return &Service{
		Store:         st,
		Mail:          sender,
		Clock:         clk,
		Notifications: config.DefaultConfig().Notifications,
		Serializer:    ser,
		LinkBuilder:   &ics.LinkBuilder{Serializer: ser},
		Location:      time.Local,
		From:          "church@example.com",
	}
}

func (s *Service) now() time.Time {
	return s.Clock.Now().In(s.loc())
}

func (s *Service) loc() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func (s *Service) today() string {
	return calendar.DateKey(s.now())
}

// commit applies fn under the store's write lock and persists the result
// before any other command can save.
func (s *Service) commit(ctx context.Context, fn func(d *store.Data) error) error {
	return s.Store.UpdateAndSave(ctx, fn)
}

func (s *Service) concurrency() int {
	if s.SendConcurrency <= 0 {
		return 4
	}
	return s.SendConcurrency
}
