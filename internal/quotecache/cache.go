package quotecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/quote-refresh-service/internal/config"
	"github.com/trogers1052/quote-refresh-service/internal/metrics"
	"github.com/trogers1052/quote-refresh-service/internal/models"
	"go.uber.org/zap"
)

const (
	keyPrefix = "quote:"

	// DefaultTTL is used when the configured TTL is not positive
	DefaultTTL = 10 * time.Minute
)

// Store is the durable quote store the cache sits in front of
type Store interface {
	BulkReplaceQuotes(ctx context.Context, quotes []models.QuoteSnapshot) error
	AddBulkQuotes(ctx context.Context, quotes []models.QuoteSnapshot) error
	GetQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error)
	GetQuotes(ctx context.Context, symbols []string) ([]models.QuoteSnapshot, error)
	CountQuotes(ctx context.Context) (int64, error)
}

// Cache is a Redis read-through cache over a quote Store. Writes go to the
// store first. Redis failures are logged and never fail the caller.
type Cache struct {
	store  Store
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// Connect creates a Redis client and verifies the connection
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// New wraps store with a Redis cache
func New(store Store, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:  store,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// BulkReplaceQuotes replaces the quotes in the store and refreshes their cache entries
func (c *Cache) BulkReplaceQuotes(ctx context.Context, quotes []models.QuoteSnapshot) error {
	if err := c.store.BulkReplaceQuotes(ctx, quotes); err != nil {
		return err
	}
	c.set(ctx, quotes)
	return nil
}

// AddBulkQuotes adds quotes to the store. The store may keep existing rows,
// so the affected cache entries are dropped rather than overwritten.
func (c *Cache) AddBulkQuotes(ctx context.Context, quotes []models.QuoteSnapshot) error {
	if err := c.store.AddBulkQuotes(ctx, quotes); err != nil {
		return err
	}
	c.invalidate(ctx, quotes)
	return nil
}

// GetQuote returns the quote for symbol from Redis, falling back to the store
func (c *Cache) GetQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	data, err := c.rdb.Get(ctx, key(symbol)).Bytes()
	switch {
	case err == nil:
		var q models.QuoteSnapshot
		if err := json.Unmarshal(data, &q); err == nil {
			metrics.RecordCacheLookups("hit", 1)
			return &q, nil
		}
		metrics.RecordCacheLookups("error", 1)
	case err == redis.Nil:
		metrics.RecordCacheLookups("miss", 1)
	default:
		metrics.RecordCacheLookups("error", 1)
		c.logger.Warn("Redis quote lookup failed", zap.String("symbol", symbol), zap.Error(err))
	}

	q, err := c.store.GetQuote(ctx, symbol)
	if err != nil || q == nil {
		return q, err
	}
	c.set(ctx, []models.QuoteSnapshot{*q})
	return q, nil
}

// GetQuotes returns the quotes for symbols in request order. Symbols missing
// from Redis are read from the store in one call. Unknown symbols are omitted.
func (c *Cache) GetQuotes(ctx context.Context, symbols []string) ([]models.QuoteSnapshot, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = key(s)
	}

	found := make(map[string]models.QuoteSnapshot, len(symbols))
	var misses []string

	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		metrics.RecordCacheLookups("error", len(symbols))
		c.logger.Warn("Redis quote lookup failed", zap.Int("count", len(symbols)), zap.Error(err))
		misses = symbols
	} else {
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				misses = append(misses, symbols[i])
				continue
			}
			var q models.QuoteSnapshot
			if err := json.Unmarshal([]byte(raw), &q); err != nil {
				misses = append(misses, symbols[i])
				continue
			}
			found[symbols[i]] = q
		}
		metrics.RecordCacheLookups("hit", len(found))
		metrics.RecordCacheLookups("miss", len(misses))
	}

	if len(misses) > 0 {
		loaded, err := c.store.GetQuotes(ctx, misses)
		if err != nil {
			return nil, err
		}
		for _, q := range loaded {
			found[q.Symbol] = q
		}
		c.set(ctx, loaded)
	}

	quotes := make([]models.QuoteSnapshot, 0, len(found))
	seen := make(map[string]bool, len(found))
	for _, s := range symbols {
		q, ok := found[s]
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// CountQuotes is always answered by the store
func (c *Cache) CountQuotes(ctx context.Context) (int64, error) {
	return c.store.CountQuotes(ctx)
}

func (c *Cache) set(ctx context.Context, quotes []models.QuoteSnapshot) {
	if len(quotes) == 0 {
		return
	}

	pipe := c.rdb.Pipeline()
	for _, q := range quotes {
		data, err := json.Marshal(q)
		if err != nil {
			c.logger.Warn("Failed to encode quote for cache", zap.String("symbol", q.Symbol), zap.Error(err))
			continue
		}
		pipe.Set(ctx, key(q.Symbol), data, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("Failed to cache quotes", zap.Int("count", len(quotes)), zap.Error(err))
		// entries written before this refresh must not outlive it
		c.invalidate(ctx, quotes)
	}
}

func (c *Cache) invalidate(ctx context.Context, quotes []models.QuoteSnapshot) {
	if len(quotes) == 0 {
		return
	}

	keys := make([]string, 0, len(quotes))
	for _, q := range quotes {
		keys = append(keys, key(q.Symbol))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Failed to invalidate cached quotes", zap.Int("count", len(keys)), zap.Error(err))
	}
}

func key(symbol string) string {
	return keyPrefix + symbol
}
