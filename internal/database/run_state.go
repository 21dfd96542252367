package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trogers1052/quote-refresh-service/internal/models"
)

// LoadRunState returns the persisted scheduler state, or nil if none was saved yet
func (db *DB) LoadRunState(ctx context.Context, id string) (*models.RunState, error) {
	query := `
		SELECT id, last_run_time, api_limit_hit, api_limit_reset_time, previous_ticker_count
		FROM scheduler_state
		WHERE id = $1
	`
	s := &models.RunState{}
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.LastRunTime, &s.APILimitHit, &s.APILimitResetTime, &s.PreviousTickerCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run state: %w", err)
	}
	return s, nil
}

// SaveRunState upserts the scheduler state
func (db *DB) SaveRunState(ctx context.Context, s *models.RunState) error {
	query := `
		INSERT INTO scheduler_state (id, last_run_time, api_limit_hit, api_limit_reset_time, previous_ticker_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			last_run_time = EXCLUDED.last_run_time,
			api_limit_hit = EXCLUDED.api_limit_hit,
			api_limit_reset_time = EXCLUDED.api_limit_reset_time,
			previous_ticker_count = EXCLUDED.previous_ticker_count,
			updated_at = NOW()
	`
	_, err := db.conn.ExecContext(ctx, query,
		s.ID, s.LastRunTime, s.APILimitHit, s.APILimitResetTime, s.PreviousTickerCount,
	)
	if err != nil {
		return fmt.Errorf("failed to save run state: %w", err)
	}
	return nil
}
