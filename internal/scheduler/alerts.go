package scheduler

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/quote-refresh-service/internal/metrics"
	"github.com/trogers1052/quote-refresh-service/internal/models"
	"go.uber.org/zap"
)

// scanAlerts checks every enabled user's subscriptions against cached
// prices. A failure for one user is logged and the next user is processed.
func (s *Scheduler) scanAlerts(ctx context.Context, report *TickReport) {
	users, err := s.users.GetAllUsers(ctx)
	if err != nil {
		s.logger.Error("Failed to load users for alert scan", zap.Error(err))
		return
	}

	for _, user := range users {
		if ctx.Err() != nil {
			return
		}
		if !user.CanReceiveAlerts() {
			continue
		}
		if err := s.scanUser(ctx, user, report); err != nil {
			s.logger.Error("Alert scan failed for user", zap.String("user_id", user.AuthID), zap.Error(err))
		}
	}
}

func (s *Scheduler) scanUser(ctx context.Context, user models.User, report *TickReport) error {
	watchlists, err := s.subs.GetWatchlistsByUser(ctx, user.AuthID)
	if err != nil {
		return fmt.Errorf("failed to load watchlists: %w", err)
	}
	for i := range watchlists {
		s.scanWatchlist(ctx, user, &watchlists[i], report)
	}

	positions, err := s.subs.GetPositionsByUser(ctx, user.AuthID)
	if err != nil {
		return fmt.Errorf("failed to load positions: %w", err)
	}
	for i := range positions {
		s.scanPosition(ctx, user, &positions[i], report)
	}
	return nil
}

// scanWatchlist fires each un-notified ticker whose cached price equals its
// alert price exactly, then persists the watchlist if any flag changed.
func (s *Scheduler) scanWatchlist(ctx context.Context, user models.User, w *models.Watchlist, report *TickReport) {
	symbols := make([]string, len(w.Tickers))
	for i, t := range w.Tickers {
		symbols[i] = t.Symbol
	}
	prices, err := s.cachedPrices(ctx, symbols)
	if err != nil {
		s.logger.Error("Failed to read cached prices", zap.String("watchlist", w.Name), zap.Error(err))
		return
	}

	changed := false
	for i := range w.Tickers {
		t := &w.Tickers[i]
		if t.Notified || t.AlertPrice.IsZero() {
			continue
		}
		price, ok := prices[t.Symbol]
		if !ok || !price.Equal(t.AlertPrice) {
			continue
		}

		t.Notified = true
		changed = true
		report.AlertsTriggered++

		err := s.notifier.SendAlertEmail(ctx, user.Email, t.Symbol, price, t.AlertPrice)
		metrics.RecordAlert("alert", err)
		if err != nil {
			s.logger.Error("Failed to send alert email",
				zap.String("user_id", user.AuthID), zap.String("symbol", t.Symbol), zap.Error(err))
		}
		if err := s.events.PublishAlertTriggered(ctx, user.AuthID, t.Symbol, price, t.AlertPrice); err != nil {
			s.logger.Warn("Failed to publish alert event", zap.Error(err))
		}
	}

	if !changed {
		return
	}
	if _, err := s.subs.UpdateWatchlist(ctx, w.Name, w.UserID, w.Tickers); err != nil {
		s.logger.Error("Failed to persist watchlist",
			zap.String("user_id", w.UserID), zap.String("watchlist", w.Name), zap.Error(err))
	}
}

// scanPosition is scanWatchlist for sell targets
func (s *Scheduler) scanPosition(ctx context.Context, user models.User, p *models.Position, report *TickReport) {
	symbols := make([]string, len(p.Tickers))
	for i, t := range p.Tickers {
		symbols[i] = t.Symbol
	}
	prices, err := s.cachedPrices(ctx, symbols)
	if err != nil {
		s.logger.Error("Failed to read cached prices", zap.String("position", p.Name), zap.Error(err))
		return
	}

	changed := false
	for i := range p.Tickers {
		t := &p.Tickers[i]
		if t.Notified || t.TargetSellPrice.IsZero() {
			continue
		}
		price, ok := prices[t.Symbol]
		if !ok || !price.Equal(t.TargetSellPrice) {
			continue
		}

		t.Notified = true
		changed = true
		report.SellAlertsTriggered++

		err := s.notifier.SendSellAlertEmail(ctx, user.Email, t.Symbol, price, t.TargetSellPrice)
		metrics.RecordAlert("sell", err)
		if err != nil {
			s.logger.Error("Failed to send sell alert email",
				zap.String("user_id", user.AuthID), zap.String("symbol", t.Symbol), zap.Error(err))
		}
		if err := s.events.PublishSellAlertTriggered(ctx, user.AuthID, t.Symbol, price, t.TargetSellPrice); err != nil {
			s.logger.Warn("Failed to publish sell alert event", zap.Error(err))
		}
	}

	if !changed {
		return
	}
	if _, err := s.subs.UpdatePosition(ctx, p.Name, p.UserID, p.Tickers); err != nil {
		s.logger.Error("Failed to persist position",
			zap.String("user_id", p.UserID), zap.String("position", p.Name), zap.Error(err))
	}
}

func (s *Scheduler) cachedPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(symbols))
	if len(symbols) == 0 {
		return prices, nil
	}

	quotes, err := s.quotes.GetQuotes(ctx, symbols)
	if err != nil {
		return nil, err
	}
	for _, q := range quotes {
		prices[q.Symbol] = q.Price
	}
	return prices, nil
}
