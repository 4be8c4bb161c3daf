package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler drives the batch runners on cron schedules. Runners keep their
// own overlap guards, so a schedule firing during a startup catch-up is
// harmless.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

func NewScheduler(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for in-flight jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a runner on a cron schedule (six-field, with seconds).
// The runner's own summary logging covers the happy path; only scheduling
// failures surface here.
func (s *Scheduler) AddJob(schedule, name string, run func(context.Context) error) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := run(context.Background()); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("Job failed")
		}
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("schedule", schedule).Str("job", name).Msg("Job registered")
	return nil
}
