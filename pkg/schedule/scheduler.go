// Package schedule provides scheduled reconciliation sweeps using
// robfig/cron.
package schedule

import (
	"context"

	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled reconciliation sweep. Implementations pick up new
// statement and receipt files and run a pass over them.
type Job func(ctx context.Context)

// Scheduler manages background scheduled sweeps using robfig/cron.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler creates a new sweep scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	// Standard 5-field cron format, seconds disabled.
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:   c,
		logger: logger,
	}
}

// Add registers a job on the given cron schedule.
func (s *Scheduler) Add(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		job(context.Background())
	})
	return err
}

// Start begins scheduled sweeps.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("sweep scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
}

// Stop gracefully stops all scheduled sweeps.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("sweep scheduler stopping")
	return s.cron.Stop()
}
