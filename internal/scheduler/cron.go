package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Runner triggers Scheduler ticks on a fixed cron cadence
type Runner struct {
	cron      *gocron.Scheduler
	scheduler *Scheduler
	logger    *zap.Logger
	ctx       context.Context
}

// NewRunner schedules scheduler.Tick on spec (standard 5-field cron, UTC).
// Overlapping runs are skipped.
func NewRunner(scheduler *Scheduler, spec string, runOnStart bool, logger *zap.Logger) (*Runner, error) {
	r := &Runner{
		cron:      gocron.NewScheduler(time.UTC),
		scheduler: scheduler,
		logger:    logger,
		ctx:       context.Background(),
	}
	r.cron.SingletonModeAll()

	job := r.cron.Cron(spec)
	if runOnStart {
		job = job.StartImmediately()
	}
	if _, err := job.Do(r.run); err != nil {
		return nil, fmt.Errorf("failed to schedule refresh job %q: %w", spec, err)
	}
	return r, nil
}

// Start begins firing ticks in the background. ctx is passed to every tick.
func (r *Runner) Start(ctx context.Context) {
	r.ctx = ctx
	r.cron.StartAsync()
	r.logger.Info("Refresh scheduler started")
}

// Stop halts the cron and waits for a running tick to finish
func (r *Runner) Stop() {
	r.cron.Stop()
	r.logger.Info("Refresh scheduler stopped")
}

func (r *Runner) run() {
	if _, err := r.scheduler.Tick(r.ctx); err != nil {
		if errors.Is(err, ErrTickInProgress) {
			r.logger.Debug("Skipping cron tick, previous tick still running")
			return
		}
		r.logger.Error("Scheduler tick failed", zap.Error(err))
	}
}
