// Package scheduler runs the periodic volunteer-reminder job.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"churchconnect/internal/clock"
	appLog "churchconnect/internal/log"
	"churchconnect/internal/model"
)

// Reminder sends volunteer reminders for events on a given day.
type Reminder interface {
	VolunteerRemindersFor(ctx context.Context, date time.Time) ([]model.Communication, error)
}

// Scheduler fires the reminder job on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	reminder Reminder
	clock    clock.Clock
	loc      *time.Location
	stopped  chan struct{}
}

// New parses spec (standard 5-field cron) in loc.
func New(spec string, loc *time.Location, reminder Reminder, clk clock.Clock) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		reminder: reminder,
		clock:    clk,
		loc:      loc,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("scheduler: invalid cron %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce sends reminders for tomorrow's events. Errors are logged.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.clock.Now().In(s.loc)
	tomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, s.loc)

	appLog.Info("volunteer reminder job start", "date", tomorrow.Format("2006-01-02"))
	comms, err := s.reminder.VolunteerRemindersFor(ctx, tomorrow)
	if err != nil {
		appLog.Error("volunteer reminder job failed", err, "date", tomorrow.Format("2006-01-02"), "sent_events", len(comms))
		return
	}
	appLog.Info("volunteer reminder job done", "sent_events", len(comms))
}

// Start runs the scheduler until ctx is cancelled. Call Wait before exiting
// so a running job can finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.stopped = make(chan struct{})
	s.cron.Start()
	go func() {
		defer close(s.stopped)
		<-ctx.Done()
		<-s.cron.Stop().Done()
		appLog.Info("scheduler stopped")
	}()
}

// Wait blocks until the scheduler has stopped and no job is running. It
// returns at once if Start was never called.
func (s *Scheduler) Wait() {
	if s.stopped == nil {
		return
	}
	<-s.stopped
}

// Next returns the next scheduled run, zero if not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
