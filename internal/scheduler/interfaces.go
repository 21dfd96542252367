package scheduler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/quote-refresh-service/internal/models"
)

// QuoteClient fetches quotes from the market data provider
type QuoteClient interface {
	FetchQuotes(ctx context.Context, symbols []string) ([]models.QuoteSnapshot, error)
	FetchExchangeSymbols(ctx context.Context, exchanges ...string) ([]models.QuoteSnapshot, error)
}

// QuoteStore is the cache of latest quotes
type QuoteStore interface {
	BulkReplaceQuotes(ctx context.Context, quotes []models.QuoteSnapshot) error
	AddBulkQuotes(ctx context.Context, quotes []models.QuoteSnapshot) error
	GetQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error)
	GetQuotes(ctx context.Context, symbols []string) ([]models.QuoteSnapshot, error)
	CountQuotes(ctx context.Context) (int64, error)
}

// SubscriptionSource provides the watchlists and positions of all users
type SubscriptionSource interface {
	GetAllWatchlists(ctx context.Context) ([]models.Watchlist, error)
	GetWatchlistsByUser(ctx context.Context, userID string) ([]models.Watchlist, error)
	UpdateWatchlist(ctx context.Context, name, userID string, tickers []models.AlertTicker) (*models.Watchlist, error)
	GetAllPositions(ctx context.Context) ([]models.Position, error)
	GetPositionsByUser(ctx context.Context, userID string) ([]models.Position, error)
	UpdatePosition(ctx context.Context, name, userID string, tickers []models.PositionTicker) (*models.Position, error)
}

// UserDirectory lists the users that may receive alerts
type UserDirectory interface {
	GetAllUsers(ctx context.Context) ([]models.User, error)
}

// RunStateStore persists the scheduler state between ticks and restarts.
// LoadRunState returns nil, nil when nothing has been saved yet.
type RunStateStore interface {
	LoadRunState(ctx context.Context, id string) (*models.RunState, error)
	SaveRunState(ctx context.Context, state *models.RunState) error
}

// Notifier delivers alert emails
type Notifier interface {
	SendAlertEmail(ctx context.Context, to, symbol string, current, target decimal.Decimal) error
	SendSellAlertEmail(ctx context.Context, to, symbol string, current, target decimal.Decimal) error
}

// EventPublisher announces scheduler activity to other services
type EventPublisher interface {
	PublishQuotesRefreshed(ctx context.Context, symbols []string) error
	PublishQuotesPopulated(ctx context.Context, count int) error
	PublishAPILimitHit(ctx context.Context, resetAt time.Time) error
	PublishAlertTriggered(ctx context.Context, userID, symbol string, price, target decimal.Decimal) error
	PublishSellAlertTriggered(ctx context.Context, userID, symbol string, price, target decimal.Decimal) error
}

type noopPublisher struct{}

func (noopPublisher) PublishQuotesRefreshed(context.Context, []string) error { return nil }
func (noopPublisher) PublishQuotesPopulated(context.Context, int) error      { return nil }
func (noopPublisher) PublishAPILimitHit(context.Context, time.Time) error    { return nil }
func (noopPublisher) PublishAlertTriggered(context.Context, string, string, decimal.Decimal, decimal.Decimal) error {
	return nil
}
func (noopPublisher) PublishSellAlertTriggered(context.Context, string, string, decimal.Decimal, decimal.Decimal) error {
	return nil
}
