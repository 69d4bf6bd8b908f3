package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tolga/reserva/internal/clock"
	"github.com/tolga/reserva/internal/model"
	"github.com/tolga/reserva/internal/repository"
)

// jobRunRetention bounds the durable job-run history.
const jobRunRetention = 30 * 24 * time.Hour

// JobFunc is one scheduled task. The returned detail map is persisted with
// the job run.
type JobFunc func(ctx context.Context) (map[string]any, error)

// Scheduler drives the lifecycle jobs on cron schedules. Overlapping ticks
// of the same job are dropped, not queued.
type Scheduler struct {
	cron   *cron.Cron
	runs   *repository.JobRunRepository
	clk    clock.Clock
	logger zerolog.Logger
}

// New creates a scheduler in the given location. Jobs are registered with
// Register before Start.
func New(loc *time.Location, runs *repository.JobRunRepository, clk clock.Clock, logger zerolog.Logger) *Scheduler {
	log := logger.With().Str("component", "scheduler").Logger()
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(cron.DiscardLogger),
		),
	)
	return &Scheduler{cron: c, runs: runs, clk: clk, logger: log}
}

// Register schedules a job. Every tick is bracketed by a durable job-run
// record carrying the outcome.
func (s *Scheduler) Register(spec, name string, fn JobFunc) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.runOnce(name, fn)
	})
	return err
}

// RegisterDefaults wires the five lifecycle jobs on their standard schedules.
func (s *Scheduler) RegisterDefaults(jobs *Jobs) error {
	specs := []struct {
		spec string
		name string
		fn   JobFunc
	}{
		{"*/5 * * * *", JobAdvanceStatuses, jobs.AdvanceStatuses},
		{"0 * * * *", JobAutoApprove, jobs.AutoApprove},
		{"30 * * * *", JobSendReminders, jobs.SendReminders},
		{"0 23 * * *", JobDetectNoShows, jobs.DetectNoShows},
		{"0 3 * * 0", JobArchiveOld, jobs.ArchiveOld},
	}
	for _, j := range specs {
		if err := s.Register(j.spec, j.name, j.fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) runOnce(name string, fn JobFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	started := s.clk.Now()
	run, err := s.runs.Begin(ctx, name, started)
	if err != nil {
		s.logger.Error().Err(err).Str("job", name).Msg("could not record job start")
		return
	}

	detail, err := fn(ctx)
	finished := s.clk.Now()
	status := model.JobRunSuccess
	if err != nil {
		status = model.JobRunFailure
		if detail == nil {
			detail = map[string]any{}
		}
		detail["error"] = err.Error()
		s.logger.Error().Err(err).Str("job", name).Msg("job failed")
	} else {
		s.logger.Info().
			Str("job", name).
			Dur("took", finished.Sub(started)).
			Interface("detail", detail).
			Msg("job completed")
	}
	if err := s.runs.Finish(ctx, run, status, detail, finished); err != nil {
		s.logger.Error().Err(err).Str("job", name).Msg("could not record job outcome")
	}

	if _, err := s.runs.PruneOlderThan(ctx, finished.Add(-jobRunRetention)); err != nil {
		s.logger.Warn().Err(err).Msg("could not prune job history")
	}
}

// RunNow executes one job immediately, outside the cron schedule. Used for
// catch-up at startup and in tests.
func (s *Scheduler) RunNow(name string, fn JobFunc) {
	s.runOnce(name, fn)
}

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("scheduler stopped")
}
