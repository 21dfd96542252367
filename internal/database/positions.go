package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/trogers1052/quote-refresh-service/internal/models"
)

// CreatePosition inserts a new position
func (db *DB) CreatePosition(ctx context.Context, p *models.Position) error {
	tickers, err := marshalTickers(p.Tickers)
	if err != nil {
		return err
	}

	query := `INSERT INTO positions (user_id, name, tickers) VALUES ($1, $2, $3)`
	if _, err := db.conn.ExecContext(ctx, query, p.UserID, p.Name, tickers); err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	return nil
}

// GetAllPositions returns the positions of every user
func (db *DB) GetAllPositions(ctx context.Context) ([]models.Position, error) {
	query := `SELECT name, user_id, tickers FROM positions ORDER BY user_id, name`
	return db.queryPositions(ctx, query)
}

// GetPositionsByUser returns the positions owned by userID
func (db *DB) GetPositionsByUser(ctx context.Context, userID string) ([]models.Position, error) {
	query := `SELECT name, user_id, tickers FROM positions WHERE user_id = $1 ORDER BY name`
	return db.queryPositions(ctx, query, userID)
}

// UpdatePosition replaces the tickers of the named position
func (db *DB) UpdatePosition(ctx context.Context, name, userID string, tickers []models.PositionTicker) (*models.Position, error) {
	data, err := marshalTickers(tickers)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE positions SET tickers = $1, updated_at = NOW()
		WHERE user_id = $2 AND name = $3
		RETURNING name, user_id, tickers
	`
	p, err := scanPosition(db.conn.QueryRowContext(ctx, query, data, userID, name))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("position %q not found for user %s", name, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update position: %w", err)
	}
	return p, nil
}

func (db *DB) queryPositions(ctx context.Context, query string, args ...any) ([]models.Position, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	defer rows.Close()

	var positions []models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, *p)
	}
	return positions, rows.Err()
}

func scanPosition(row rowScanner) (*models.Position, error) {
	p := &models.Position{}
	var raw []byte
	if err := row.Scan(&p.Name, &p.UserID, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &p.Tickers); err != nil {
		return nil, fmt.Errorf("failed to decode position tickers: %w", err)
	}
	return p, nil
}
