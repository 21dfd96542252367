package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteSnapshot is the latest cached quote for a symbol. The JSON tags
// follow the provider payload so quotes decode straight off the wire.
type QuoteSnapshot struct {
	Symbol               string          `json:"symbol"`
	Name                 string          `json:"name"`
	Price                decimal.Decimal `json:"price"`
	ChangesPercentage    decimal.Decimal `json:"changesPercentage"`
	Change               decimal.Decimal `json:"change"`
	DayLow               decimal.Decimal `json:"dayLow"`
	DayHigh              decimal.Decimal `json:"dayHigh"`
	YearHigh             decimal.Decimal `json:"yearHigh"`
	YearLow              decimal.Decimal `json:"yearLow"`
	MarketCap            int64           `json:"marketCap"`
	PriceAvg50           decimal.Decimal `json:"priceAvg50"`
	PriceAvg200          decimal.Decimal `json:"priceAvg200"`
	Exchange             string          `json:"exchange"`
	Volume               int64           `json:"volume"`
	AvgVolume            int64           `json:"avgVolume"`
	Open                 decimal.Decimal `json:"open"`
	PreviousClose        decimal.Decimal `json:"previousClose"`
	EPS                  decimal.Decimal `json:"eps"`
	PE                   decimal.Decimal `json:"pe"`
	EarningsAnnouncement string          `json:"earningsAnnouncement,omitempty"`
	SharesOutstanding    int64           `json:"sharesOutstanding"`
	Timestamp            int64           `json:"timestamp"`
	StoredTimestamp      int64           `json:"storedTimestamp"`
}

// Event type constants
const (
	EventQuotesRefreshed    = "QUOTES_REFRESHED"
	EventQuotesPopulated    = "QUOTES_POPULATED"
	EventAPILimitHit        = "API_LIMIT_HIT"
	EventAlertTriggered     = "ALERT_TRIGGERED"
	EventSellAlertTriggered = "SELL_ALERT_TRIGGERED"
	EventAlertRearmed       = "ALERT_REARMED"
)

// SchedulerEvent represents a Kafka event emitted by the refresh scheduler
type SchedulerEvent struct {
	ID           string           `json:"id"`
	EventType    string           `json:"event_type"`
	Symbol       string           `json:"symbol,omitempty"`
	Symbols      []string         `json:"symbols,omitempty"`
	UserID       string           `json:"user_id,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Target       *decimal.Decimal `json:"target,omitempty"`
	Count        int              `json:"count,omitempty"`
	LimitResetAt *time.Time       `json:"limit_reset_at,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}
