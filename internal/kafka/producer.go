package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/quote-refresh-service/internal/models"
)

// schedulerKey keys events that are not about a single symbol
const schedulerKey = "scheduler"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes scheduler events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishQuotesRefreshed publishes the symbols written by a refresh
func (p *Producer) PublishQuotesRefreshed(ctx context.Context, symbols []string) error {
	return p.publish(ctx, schedulerKey, models.SchedulerEvent{
		EventType: models.EventQuotesRefreshed,
		Symbols:   symbols,
		Count:     len(symbols),
	})
}

// PublishQuotesPopulated publishes the size of a cold-start population
func (p *Producer) PublishQuotesPopulated(ctx context.Context, count int) error {
	return p.publish(ctx, schedulerKey, models.SchedulerEvent{
		EventType: models.EventQuotesPopulated,
		Count:     count,
	})
}

// PublishAPILimitHit publishes that the daily provider limit was reached
func (p *Producer) PublishAPILimitHit(ctx context.Context, resetAt time.Time) error {
	return p.publish(ctx, schedulerKey, models.SchedulerEvent{
		EventType:    models.EventAPILimitHit,
		LimitResetAt: &resetAt,
	})
}

// PublishAlertTriggered publishes a watchlist alert
func (p *Producer) PublishAlertTriggered(ctx context.Context, userID, symbol string, price, target decimal.Decimal) error {
	return p.publish(ctx, symbol, models.SchedulerEvent{
		EventType: models.EventAlertTriggered,
		Symbol:    symbol,
		UserID:    userID,
		Price:     &price,
		Target:    &target,
	})
}

// PublishSellAlertTriggered publishes a position sell alert
func (p *Producer) PublishSellAlertTriggered(ctx context.Context, userID, symbol string, price, target decimal.Decimal) error {
	return p.publish(ctx, symbol, models.SchedulerEvent{
		EventType: models.EventSellAlertTriggered,
		Symbol:    symbol,
		UserID:    userID,
		Price:     &price,
		Target:    &target,
	})
}

func (p *Producer) publish(ctx context.Context, key string, event models.SchedulerEvent) error {
	event.ID = uuid.NewString()
	event.Timestamp = p.now().UTC()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
