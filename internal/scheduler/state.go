package scheduler

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/trogers1052/quote-refresh-service/internal/models"
	"go.uber.org/zap"
)

// loadState never fails: a missing or unreadable state starts fresh
func (s *Scheduler) loadState(ctx context.Context) *models.RunState {
	state, err := s.store.LoadRunState(ctx, models.RunStateID)
	if err != nil {
		s.logger.Warn("Failed to load run state, starting fresh", zap.Error(err))
		return models.NewRunState()
	}
	if state == nil {
		return models.NewRunState()
	}
	if state.ID == "" {
		state.ID = models.RunStateID
	}
	return state
}

func (s *Scheduler) saveState(ctx context.Context, state *models.RunState) {
	if err := s.store.SaveRunState(ctx, state); err != nil {
		s.logger.Error("Failed to save run state", zap.Error(err))
	}
}

// expireLimit clears an API limit whose reset time has passed
func (s *Scheduler) expireLimit(state *models.RunState, now time.Time) bool {
	if !state.APILimitHit || now.Unix() < state.APILimitResetTime {
		return false
	}

	s.logger.Info("API limit reset time passed, resuming refreshes",
		zap.String("reset", humanizeUnix(state.APILimitResetTime)))
	state.APILimitHit = false
	state.APILimitResetTime = 0
	return true
}

func (s *Scheduler) markRateLimited(ctx context.Context, state *models.RunState, report *TickReport, err error) {
	resetAt := NextUTCMidnight(s.now())

	state.APILimitHit = true
	state.APILimitResetTime = resetAt.Unix()
	report.RateLimited = true

	s.logger.Warn("API limit reached, pausing refreshes until reset",
		zap.Error(err),
		zap.Time("reset_at", resetAt),
		zap.String("resets", humanize.Time(resetAt)))

	if err := s.events.PublishAPILimitHit(ctx, resetAt); err != nil {
		s.logger.Warn("Failed to publish API limit event", zap.Error(err))
	}
}

func humanizeUnix(sec int64) string {
	return humanize.Time(time.Unix(sec, 0))
}
