// Package scheduler provides the recurring triggers for AshaSetu.
//
// It wraps cron so the call and message batches fire on their configured
// schedules in the program's clinic timezone.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultTimezone is the timezone the outreach schedules are written in.
const DefaultTimezone = "Asia/Kolkata"

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
	loc  *time.Location
}

// NewScheduler creates and starts a cron scheduler in the given timezone.
// An empty timezone falls back to DefaultTimezone, and an unknown one to UTC.
func NewScheduler(timezone string) *Scheduler {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		slog.Warn("Unknown timezone, scheduling in UTC", "timezone", timezone, "error", err)
		loc = time.UTC
	}

	// Standard 5-field cron parser (min, hour, dom, month, dow) with panic recovery.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c, loc: loc}
}

// Location returns the timezone jobs are scheduled in.
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// AddJob schedules a named task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(name, expr string, task func(now time.Time)) error {
	_, err := s.cron.AddFunc(expr, func() {
		slog.Info("Scheduled job firing", "job", name)
		task(time.Now().In(s.loc))
	})
	if err != nil {
		return err
	}
	slog.Info("Scheduled job registered", "job", name, "cron", expr, "timezone", s.loc.String())
	return nil
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
