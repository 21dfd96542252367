package models

import "github.com/shopspring/decimal"

// List type constants used by re-arm events
const (
	ListTypeWatchlist = "watchlist"
	ListTypePosition  = "position"
)

// Watchlist is a named list of alert tickers owned by one user
type Watchlist struct {
	Name    string        `json:"name"`
	UserID  string        `json:"user_id"`
	Tickers []AlertTicker `json:"tickers"`
}

// AlertTicker fires once when the cached price equals AlertPrice.
// Notified stays set until something outside the scheduler clears it.
type AlertTicker struct {
	Symbol     string          `json:"symbol"`
	AlertPrice decimal.Decimal `json:"alert_price"`
	Threshold  decimal.Decimal `json:"threshold"`
	Notified   bool            `json:"notified"`
}

// AlertRearmEvent is published by the watchlist service when a user edits
// an alert or sell target and the ticker should be able to fire again.
type AlertRearmEvent struct {
	EventType string `json:"event_type"`
	UserID    string `json:"user_id"`
	ListType  string `json:"list_type"`
	ListName  string `json:"list_name"`
	Symbol    string `json:"symbol"`
}
