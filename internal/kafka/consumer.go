package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/quote-refresh-service/internal/models"
	"go.uber.org/zap"
)

// SubscriptionRepository is the part of the subscription store the re-arm consumer needs
type SubscriptionRepository interface {
	GetWatchlistsByUser(ctx context.Context, userID string) ([]models.Watchlist, error)
	UpdateWatchlist(ctx context.Context, name, userID string, tickers []models.AlertTicker) (*models.Watchlist, error)
	GetPositionsByUser(ctx context.Context, userID string) ([]models.Position, error)
	UpdatePosition(ctx context.Context, name, userID string, tickers []models.PositionTicker) (*models.Position, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// RearmConsumer clears the notified flag of a ticker when the watchlist
// service reports that the user edited its alert or sell target.
type RearmConsumer struct {
	reader messageReader
	repo   SubscriptionRepository
	logger *zap.Logger
}

// NewRearmConsumer creates a new Kafka consumer for alert edit events
func NewRearmConsumer(brokers []string, topic, groupID string, repo SubscriptionRepository, logger *zap.Logger) *RearmConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &RearmConsumer{
		reader: reader,
		repo:   repo,
		logger: logger,
	}
}

// Start consumes messages until ctx is cancelled
func (c *RearmConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer", zap.String("topic", c.reader.Config().Topic))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				c.logger.Warn("Error reading message", zap.Error(err))
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Error("Error processing message",
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
			}
		}
	}
}

func (c *RearmConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.AlertRearmEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal rearm event: %w", err)
	}

	if event.EventType != models.EventAlertRearmed {
		c.logger.Debug("Ignoring event type", zap.String("event_type", event.EventType))
		return nil
	}
	if event.UserID == "" || event.ListName == "" || event.Symbol == "" {
		return fmt.Errorf("incomplete rearm event: %+v", event)
	}

	switch strings.ToLower(event.ListType) {
	case models.ListTypeWatchlist:
		return c.rearmWatchlist(ctx, event)
	case models.ListTypePosition:
		return c.rearmPosition(ctx, event)
	default:
		return fmt.Errorf("unknown list type %q", event.ListType)
	}
}

func (c *RearmConsumer) rearmWatchlist(ctx context.Context, event models.AlertRearmEvent) error {
	watchlists, err := c.repo.GetWatchlistsByUser(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("failed to load watchlists: %w", err)
	}

	for _, w := range watchlists {
		if w.Name != event.ListName {
			continue
		}

		changed := false
		for i := range w.Tickers {
			if w.Tickers[i].Symbol == event.Symbol && w.Tickers[i].Notified {
				w.Tickers[i].Notified = false
				changed = true
			}
		}
		if !changed {
			return nil
		}

		if _, err := c.repo.UpdateWatchlist(ctx, w.Name, w.UserID, w.Tickers); err != nil {
			return fmt.Errorf("failed to update watchlist: %w", err)
		}
		c.logger.Info("Re-armed watchlist alert",
			zap.String("user_id", event.UserID), zap.String("watchlist", w.Name), zap.String("symbol", event.Symbol))
		return nil
	}

	return fmt.Errorf("watchlist %q not found for user %s", event.ListName, event.UserID)
}

func (c *RearmConsumer) rearmPosition(ctx context.Context, event models.AlertRearmEvent) error {
	positions, err := c.repo.GetPositionsByUser(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("failed to load positions: %w", err)
	}

	for _, p := range positions {
		if p.Name != event.ListName {
			continue
		}

		changed := false
		for i := range p.Tickers {
			if p.Tickers[i].Symbol == event.Symbol && p.Tickers[i].Notified {
				p.Tickers[i].Notified = false
				changed = true
			}
		}
		if !changed {
			return nil
		}

		if _, err := c.repo.UpdatePosition(ctx, p.Name, p.UserID, p.Tickers); err != nil {
			return fmt.Errorf("failed to update position: %w", err)
		}
		c.logger.Info("Re-armed sell alert",
			zap.String("user_id", event.UserID), zap.String("position", p.Name), zap.String("symbol", event.Symbol))
		return nil
	}

	return fmt.Errorf("position %q not found for user %s", event.ListName, event.UserID)
}
