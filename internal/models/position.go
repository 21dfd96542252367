package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a named group of purchased stocks owned by one user
type Position struct {
	Name    string           `json:"name"`
	UserID  string           `json:"user_id"`
	Tickers []PositionTicker `json:"tickers"`
}

// PositionTicker represents a single holding with an optional sell target
type PositionTicker struct {
	Symbol          string          `json:"symbol"`
	Quantity        decimal.Decimal `json:"quantity"`
	PurchasePrice   decimal.Decimal `json:"purchase_price"`
	PurchaseDate    *time.Time      `json:"purchase_date,omitempty"`
	TargetSellPrice decimal.Decimal `json:"target_sell_price"`
	Notified        bool            `json:"notified"`
}
