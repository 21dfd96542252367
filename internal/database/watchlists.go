package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/trogers1052/quote-refresh-service/internal/models"
)

// CreateWatchlist inserts a new watchlist
func (db *DB) CreateWatchlist(ctx context.Context, w *models.Watchlist) error {
	tickers, err := marshalTickers(w.Tickers)
	if err != nil {
		return err
	}

	query := `INSERT INTO watchlists (user_id, name, tickers) VALUES ($1, $2, $3)`
	if _, err := db.conn.ExecContext(ctx, query, w.UserID, w.Name, tickers); err != nil {
		return fmt.Errorf("failed to create watchlist: %w", err)
	}
	return nil
}

// GetAllWatchlists returns the watchlists of every user
func (db *DB) GetAllWatchlists(ctx context.Context) ([]models.Watchlist, error) {
	query := `SELECT name, user_id, tickers FROM watchlists ORDER BY user_id, name`
	return db.queryWatchlists(ctx, query)
}

// GetWatchlistsByUser returns the watchlists owned by userID
func (db *DB) GetWatchlistsByUser(ctx context.Context, userID string) ([]models.Watchlist, error) {
	query := `SELECT name, user_id, tickers FROM watchlists WHERE user_id = $1 ORDER BY name`
	return db.queryWatchlists(ctx, query, userID)
}

// UpdateWatchlist replaces the tickers of the named watchlist
func (db *DB) UpdateWatchlist(ctx context.Context, name, userID string, tickers []models.AlertTicker) (*models.Watchlist, error) {
	data, err := marshalTickers(tickers)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE watchlists SET tickers = $1, updated_at = NOW()
		WHERE user_id = $2 AND name = $3
		RETURNING name, user_id, tickers
	`
	w, err := scanWatchlist(db.conn.QueryRowContext(ctx, query, data, userID, name))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("watchlist %q not found for user %s", name, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update watchlist: %w", err)
	}
	return w, nil
}

func (db *DB) queryWatchlists(ctx context.Context, query string, args ...any) ([]models.Watchlist, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlists: %w", err)
	}
	defer rows.Close()

	var watchlists []models.Watchlist
	for rows.Next() {
		w, err := scanWatchlist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watchlist: %w", err)
		}
		watchlists = append(watchlists, *w)
	}
	return watchlists, rows.Err()
}

func scanWatchlist(row rowScanner) (*models.Watchlist, error) {
	w := &models.Watchlist{}
	var raw []byte
	if err := row.Scan(&w.Name, &w.UserID, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &w.Tickers); err != nil {
		return nil, fmt.Errorf("failed to decode watchlist tickers: %w", err)
	}
	return w, nil
}

func marshalTickers(tickers any) ([]byte, error) {
	data, err := json.Marshal(tickers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tickers: %w", err)
	}
	if string(data) == "null" {
		data = []byte("[]")
	}
	return data, nil
}
