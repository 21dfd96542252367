package scheduler

import (
	"context"
	"sort"
	"strings"

	"github.com/trogers1052/quote-refresh-service/internal/fmp"
	"github.com/trogers1052/quote-refresh-service/internal/metrics"
	"github.com/trogers1052/quote-refresh-service/internal/models"
	"go.uber.org/zap"
)

// trackedTickers returns the sorted, de-duplicated symbols across every
// watchlist and position of every user
func (s *Scheduler) trackedTickers(ctx context.Context) ([]string, error) {
	watchlists, err := s.subs.GetAllWatchlists(ctx)
	if err != nil {
		return nil, err
	}
	positions, err := s.subs.GetAllPositions(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	add := func(symbol string) {
		symbol = strings.TrimSpace(symbol)
		if symbol != "" {
			seen[symbol] = struct{}{}
		}
	}
	for _, w := range watchlists {
		for _, t := range w.Tickers {
			add(t.Symbol)
		}
	}
	for _, p := range positions {
		for _, t := range p.Tickers {
			add(t.Symbol)
		}
	}

	tickers := make([]string, 0, len(seen))
	for symbol := range seen {
		tickers = append(tickers, symbol)
	}
	sort.Strings(tickers)
	return tickers, nil
}

// refresh fetches tickers serially in batches. A rate limit aborts the
// remaining batches; everything fetched before it is still written.
func (s *Scheduler) refresh(ctx context.Context, tickers []string, state *models.RunState, report *TickReport) {
	report.Action = ActionRefresh

	var fetched []models.QuoteSnapshot
	for _, batch := range chunk(tickers, s.batchSize) {
		if ctx.Err() != nil {
			s.logger.Warn("Refresh cancelled", zap.Error(ctx.Err()))
			break
		}

		quotes, err := s.client.FetchQuotes(ctx, batch)
		if err != nil {
			if fmp.IsRateLimit(err) {
				metrics.RecordQuoteFetch("quote", err, true)
				s.markRateLimited(ctx, state, report, err)
				break
			}
			metrics.RecordQuoteFetch("quote", err, false)
			report.Failed += len(batch)
			s.logger.Warn("Failed to fetch quotes, skipping", zap.Strings("symbols", batch), zap.Error(err))
			continue
		}
		metrics.RecordQuoteFetch("quote", nil, false)

		if len(quotes) == 0 {
			report.Failed += len(batch)
			s.logger.Warn("Provider returned no quotes", zap.Strings("symbols", batch))
			continue
		}
		fetched = append(fetched, quotes...)
	}

	report.Fetched = len(fetched)
	if len(fetched) == 0 {
		return
	}

	if err := s.quotes.BulkReplaceQuotes(ctx, fetched); err != nil {
		s.logger.Error("Failed to store refreshed quotes", zap.Int("count", len(fetched)), zap.Error(err))
		return
	}

	symbols := make([]string, len(fetched))
	for i, q := range fetched {
		symbols[i] = q.Symbol
	}
	if err := s.events.PublishQuotesRefreshed(ctx, symbols); err != nil {
		s.logger.Warn("Failed to publish quotes refreshed event", zap.Error(err))
	}
}

// populate fills an empty cache by enumerating whole exchanges instead of
// fetching tracked symbols one by one. It reports whether any listing was
// stored.
func (s *Scheduler) populate(ctx context.Context, state *models.RunState, report *TickReport) bool {
	report.Action = ActionPopulate
	report.Reason = "quote cache empty"

	var collected []models.QuoteSnapshot
	for _, exchange := range s.exchanges {
		if ctx.Err() != nil {
			break
		}

		quotes, err := s.client.FetchExchangeSymbols(ctx, exchange)
		collected = append(collected, quotes...)
		if err != nil {
			if fmp.IsRateLimit(err) {
				metrics.RecordQuoteFetch("symbol", err, true)
				s.markRateLimited(ctx, state, report, err)
				break
			}
			metrics.RecordQuoteFetch("symbol", err, false)
			report.Failed++
			s.logger.Warn("Failed to enumerate exchange", zap.String("exchange", exchange), zap.Error(err))
			continue
		}
		metrics.RecordQuoteFetch("symbol", nil, false)
	}

	report.Fetched = len(collected)
	if len(collected) == 0 {
		return false
	}

	if err := s.quotes.AddBulkQuotes(ctx, collected); err != nil {
		s.logger.Error("Failed to store exchange listings", zap.Int("count", len(collected)), zap.Error(err))
		report.Fetched = 0
		return false
	}

	s.logger.Info("Populated quote cache from exchange listings", zap.Int("count", len(collected)))
	if err := s.events.PublishQuotesPopulated(ctx, len(collected)); err != nil {
		s.logger.Warn("Failed to publish quotes populated event", zap.Error(err))
	}
	return true
}

func chunk(symbols []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(symbols); start += size {
		end := min(start+size, len(symbols))
		batches = append(batches, symbols[start:end])
	}
	return batches
}
