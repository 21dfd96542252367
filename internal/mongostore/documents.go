package mongostore

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/quote-refresh-service/internal/models"
)

// Prices are stored as BSON doubles, matching the documents other services write

type quoteDocument struct {
	Symbol               string  `bson:"symbol"`
	Name                 string  `bson:"name"`
	Price                float64 `bson:"price"`
	ChangesPercentage    float64 `bson:"changesPercentage"`
	Change               float64 `bson:"change"`
	DayLow               float64 `bson:"dayLow"`
	DayHigh              float64 `bson:"dayHigh"`
	YearHigh             float64 `bson:"yearHigh"`
	YearLow              float64 `bson:"yearLow"`
	MarketCap            int64   `bson:"marketCap"`
	PriceAvg50           float64 `bson:"priceAvg50"`
	PriceAvg200          float64 `bson:"priceAvg200"`
	Exchange             string  `bson:"exchange"`
	Volume               int64   `bson:"volume"`
	AvgVolume            int64   `bson:"avgVolume"`
	Open                 float64 `bson:"open"`
	PreviousClose        float64 `bson:"previousClose"`
	EPS                  float64 `bson:"eps"`
	PE                   float64 `bson:"pe"`
	EarningsAnnouncement string  `bson:"earningsAnnouncement,omitempty"`
	SharesOutstanding    int64   `bson:"sharesOutstanding"`
	Timestamp            int64   `bson:"timestamp"`
	StoredTimestamp      int64   `bson:"storedTimestamp"`
}

func toQuoteDocument(q models.QuoteSnapshot) quoteDocument {
	return quoteDocument{
		Symbol:               q.Symbol,
		Name:                 q.Name,
		Price:                q.Price.InexactFloat64(),
		ChangesPercentage:    q.ChangesPercentage.InexactFloat64(),
		Change:               q.Change.InexactFloat64(),
		DayLow:               q.DayLow.InexactFloat64(),
		DayHigh:              q.DayHigh.InexactFloat64(),
		YearHigh:             q.YearHigh.InexactFloat64(),
		YearLow:              q.YearLow.InexactFloat64(),
		MarketCap:            q.MarketCap,
		PriceAvg50:           q.PriceAvg50.InexactFloat64(),
		PriceAvg200:          q.PriceAvg200.InexactFloat64(),
		Exchange:             q.Exchange,
		Volume:               q.Volume,
		AvgVolume:            q.AvgVolume,
		Open:                 q.Open.InexactFloat64(),
		PreviousClose:        q.PreviousClose.InexactFloat64(),
		EPS:                  q.EPS.InexactFloat64(),
		PE:                   q.PE.InexactFloat64(),
		EarningsAnnouncement: q.EarningsAnnouncement,
		SharesOutstanding:    q.SharesOutstanding,
		Timestamp:            q.Timestamp,
		StoredTimestamp:      q.StoredTimestamp,
	}
}

func (d quoteDocument) model() models.QuoteSnapshot {
	return models.QuoteSnapshot{
		Symbol:               d.Symbol,
		Name:                 d.Name,
		Price:                decimal.NewFromFloat(d.Price),
		ChangesPercentage:    decimal.NewFromFloat(d.ChangesPercentage),
		Change:               decimal.NewFromFloat(d.Change),
		DayLow:               decimal.NewFromFloat(d.DayLow),
		DayHigh:              decimal.NewFromFloat(d.DayHigh),
		YearHigh:             decimal.NewFromFloat(d.YearHigh),
		YearLow:              decimal.NewFromFloat(d.YearLow),
		MarketCap:            d.MarketCap,
		PriceAvg50:           decimal.NewFromFloat(d.PriceAvg50),
		PriceAvg200:          decimal.NewFromFloat(d.PriceAvg200),
		Exchange:             d.Exchange,
		Volume:               d.Volume,
		AvgVolume:            d.AvgVolume,
		Open:                 decimal.NewFromFloat(d.Open),
		PreviousClose:        decimal.NewFromFloat(d.PreviousClose),
		EPS:                  decimal.NewFromFloat(d.EPS),
		PE:                   decimal.NewFromFloat(d.PE),
		EarningsAnnouncement: d.EarningsAnnouncement,
		SharesOutstanding:    d.SharesOutstanding,
		Timestamp:            d.Timestamp,
		StoredTimestamp:      d.StoredTimestamp,
	}
}

type watchlistDocument struct {
	Name    string              `bson:"watchlistName"`
	UserID  string              `bson:"userID"`
	Tickers []alertTickerRecord `bson:"tickers"`
}

type alertTickerRecord struct {
	Symbol     string  `bson:"symbol"`
	AlertPrice float64 `bson:"alertPrice"`
	Threshold  float64 `bson:"threshold"`
	Notified   bool    `bson:"notified"`
}

func toAlertTickerRecords(tickers []models.AlertTicker) []alertTickerRecord {
	records := make([]alertTickerRecord, 0, len(tickers))
	for _, t := range tickers {
		records = append(records, alertTickerRecord{
			Symbol:     t.Symbol,
			AlertPrice: t.AlertPrice.InexactFloat64(),
			Threshold:  t.Threshold.InexactFloat64(),
			Notified:   t.Notified,
		})
	}
	return records
}

func (d watchlistDocument) model() models.Watchlist {
	w := models.Watchlist{
		Name:    d.Name,
		UserID:  d.UserID,
		Tickers: make([]models.AlertTicker, 0, len(d.Tickers)),
	}
	for _, t := range d.Tickers {
		w.Tickers = append(w.Tickers, models.AlertTicker{
			Symbol:     t.Symbol,
			AlertPrice: decimal.NewFromFloat(t.AlertPrice),
			Threshold:  decimal.NewFromFloat(t.Threshold),
			Notified:   t.Notified,
		})
	}
	return w
}

type positionDocument struct {
	Name    string                 `bson:"positionName"`
	UserID  string                 `bson:"userID"`
	Tickers []positionTickerRecord `bson:"tickers"`
}

type positionTickerRecord struct {
	Symbol          string     `bson:"symbol"`
	Quantity        float64    `bson:"quantity"`
	PurchasePrice   float64    `bson:"purchasePrice"`
	PurchaseDate    *time.Time `bson:"purchaseDate,omitempty"`
	TargetSellPrice float64    `bson:"targetSellPrice"`
	Notified        bool       `bson:"notified"`
}

func toPositionTickerRecords(tickers []models.PositionTicker) []positionTickerRecord {
	records := make([]positionTickerRecord, 0, len(tickers))
	for _, t := range tickers {
		records = append(records, positionTickerRecord{
			Symbol:          t.Symbol,
			Quantity:        t.Quantity.InexactFloat64(),
			PurchasePrice:   t.PurchasePrice.InexactFloat64(),
			PurchaseDate:    t.PurchaseDate,
			TargetSellPrice: t.TargetSellPrice.InexactFloat64(),
			Notified:        t.Notified,
		})
	}
	return records
}

func (d positionDocument) model() models.Position {
	p := models.Position{
		Name:    d.Name,
		UserID:  d.UserID,
		Tickers: make([]models.PositionTicker, 0, len(d.Tickers)),
	}
	for _, t := range d.Tickers {
		p.Tickers = append(p.Tickers, models.PositionTicker{
			Symbol:          t.Symbol,
			Quantity:        decimal.NewFromFloat(t.Quantity),
			PurchasePrice:   decimal.NewFromFloat(t.PurchasePrice),
			PurchaseDate:    t.PurchaseDate,
			TargetSellPrice: decimal.NewFromFloat(t.TargetSellPrice),
			Notified:        t.Notified,
		})
	}
	return p
}

type userDocument struct {
	AuthID               string `bson:"authID"`
	Email                string `bson:"email"`
	FirstName            string `bson:"firstName,omitempty"`
	LastName             string `bson:"lastName,omitempty"`
	NotificationsEnabled bool   `bson:"notificationsEnabled"`
}

type runStateDocument struct {
	ID                  string `bson:"_id"`
	LastRunTime         int64  `bson:"lastRunTime"`
	APILimitHit         bool   `bson:"apiLimitHit"`
	APILimitResetTime   int64  `bson:"apiLimitResetTime"`
	PreviousTickerCount int    `bson:"previousTickerCount"`
}
