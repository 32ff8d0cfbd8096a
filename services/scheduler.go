package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs background jobs on cron specs. A job still running when
// its next tick fires is skipped.
type Scheduler struct {
	cronEngine *cron.Cron
	timeout    time.Duration
}

func NewScheduler(jobTimeout time.Duration) *Scheduler {
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}
	cronLogger := cron.PrintfLogger(logger)
	return &Scheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		timeout: jobTimeout,
	}
}

// AddJob registers fn under spec, e.g. "@every 1m" or "*/5 * * * *".
func (s *Scheduler) AddJob(name, spec string, fn func(ctx context.Context) error) error {
	_, err := s.cronEngine.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		started := time.Now()
		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("job", name).Error("scheduled job failed")
			return
		}
		logger.WithField("job", name).WithField("took", time.Since(started).String()).Debug("scheduled job finished")
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	logger.Info("starting background scheduler")
	s.cronEngine.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	logger.Info("stopping background scheduler")
	<-s.cronEngine.Stop().Done()
}
