package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/trogers1052/quote-refresh-service/internal/models"
)

const quoteColumns = `symbol, name, price, changes_percentage, change, day_low, day_high,
	year_high, year_low, market_cap, price_avg_50, price_avg_200, exchange, volume,
	avg_volume, open, previous_close, eps, pe, earnings_announcement, shares_outstanding,
	quote_timestamp, stored_timestamp`

const insertQuoteSQL = `
	INSERT INTO latest_stock_quotes (` + quoteColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		$18, $19, $20, $21, $22, $23)`

// BulkReplaceQuotes deletes the cached rows for the given quotes' symbols and
// inserts the new snapshots in one transaction. Rows for other symbols are untouched.
func (db *DB) BulkReplaceQuotes(ctx context.Context, quotes []models.QuoteSnapshot) error {
	if len(quotes) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	symbols := make([]string, 0, len(quotes))
	for _, q := range quotes {
		symbols = append(symbols, q.Symbol)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM latest_stock_quotes WHERE symbol = ANY($1)`, pq.Array(symbols)); err != nil {
		return fmt.Errorf("failed to delete quotes: %w", err)
	}

	if err := insertQuotes(ctx, tx, insertQuoteSQL, quotes); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// AddBulkQuotes inserts snapshots for symbols that are not cached yet
func (db *DB) AddBulkQuotes(ctx context.Context, quotes []models.QuoteSnapshot) error {
	if len(quotes) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertQuotes(ctx, tx, insertQuoteSQL+` ON CONFLICT (symbol) DO NOTHING`, quotes); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertQuotes(ctx context.Context, tx *sql.Tx, query string, quotes []models.QuoteSnapshot) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, q := range quotes {
		_, err := stmt.ExecContext(ctx,
			q.Symbol, q.Name, q.Price, q.ChangesPercentage, q.Change, q.DayLow, q.DayHigh,
			q.YearHigh, q.YearLow, q.MarketCap, q.PriceAvg50, q.PriceAvg200, q.Exchange, q.Volume,
			q.AvgVolume, q.Open, q.PreviousClose, q.EPS, q.PE, q.EarningsAnnouncement,
			q.SharesOutstanding, q.Timestamp, q.StoredTimestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert quote for %s: %w", q.Symbol, err)
		}
	}
	return nil
}

// GetQuote returns the cached snapshot for symbol, or nil if none is cached
func (db *DB) GetQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	query := `SELECT ` + quoteColumns + ` FROM latest_stock_quotes WHERE symbol = $1`

	q, err := scanQuote(db.conn.QueryRowContext(ctx, query, symbol))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return q, nil
}

// GetQuotes returns the cached snapshots for the given symbols. Missing symbols are omitted.
func (db *DB) GetQuotes(ctx context.Context, symbols []string) ([]models.QuoteSnapshot, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	query := `SELECT ` + quoteColumns + ` FROM latest_stock_quotes WHERE symbol = ANY($1) ORDER BY symbol`

	rows, err := db.conn.QueryContext(ctx, query, pq.Array(symbols))
	if err != nil {
		return nil, fmt.Errorf("failed to get quotes: %w", err)
	}
	defer rows.Close()

	var quotes []models.QuoteSnapshot
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, *q)
	}
	return quotes, rows.Err()
}

// CountQuotes returns the number of cached snapshots
func (db *DB) CountQuotes(ctx context.Context) (int64, error) {
	var count int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM latest_stock_quotes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count quotes: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (*models.QuoteSnapshot, error) {
	q := &models.QuoteSnapshot{}
	err := row.Scan(
		&q.Symbol, &q.Name, &q.Price, &q.ChangesPercentage, &q.Change, &q.DayLow, &q.DayHigh,
		&q.YearHigh, &q.YearLow, &q.MarketCap, &q.PriceAvg50, &q.PriceAvg200, &q.Exchange, &q.Volume,
		&q.AvgVolume, &q.Open, &q.PreviousClose, &q.EPS, &q.PE, &q.EarningsAnnouncement,
		&q.SharesOutstanding, &q.Timestamp, &q.StoredTimestamp,
	)
	if err != nil {
		return nil, err
	}
	return q, nil
}
