/**
 * @description
 * Cron scheduler setup for scheduled jobs.
 */

package app

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  *ExpirySweeper
	schedule string
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(sweeper *ExpirySweeper, schedule string) *Scheduler {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Scheduler{
		cron:     c,
		sweeper:  sweeper,
		schedule: schedule,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddJob(s.schedule, s.sweeper); err != nil {
		log.Printf("level=error component=scheduler msg=\"failed to schedule expiry sweep\" schedule=%q err=%v", s.schedule, err)
	} else {
		log.Printf("level=info component=scheduler msg=\"scheduled expiry sweep\" schedule=%q", s.schedule)
	}
	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
