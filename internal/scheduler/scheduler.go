// Package scheduler drives the night-mode controller with one tick at
// the top of every hour.
package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
)

// Ticker receives the hourly tick. Implemented by night.Controller.
type Ticker interface {
	Tick(now time.Time)
}

// Scheduler manages the recurring tick job.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ticker    Ticker
	loc       *time.Location
}

// New creates a new scheduler instance ticking in the given timezone.
func New(loc *time.Location, ticker Ticker) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		ticker:    ticker,
		loc:       loc,
	}
}

// Start begins ticking in the background.
func (s *Scheduler) Start() error {
	// Top of every hour; the controller compares the hour against the
	// configured boundaries itself.
	if _, err := s.scheduler.Cron("0 * * * *").Do(func() {
		s.ticker.Tick(time.Now().In(s.loc))
	}); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
