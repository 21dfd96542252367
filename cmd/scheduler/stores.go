package main

import (
	"context"
	"time"

	"github.com/trogers1052/quote-refresh-service/internal/api"
	"github.com/trogers1052/quote-refresh-service/internal/config"
	"github.com/trogers1052/quote-refresh-service/internal/database"
	"github.com/trogers1052/quote-refresh-service/internal/mongostore"
	"github.com/trogers1052/quote-refresh-service/internal/quotecache"
	"github.com/trogers1052/quote-refresh-service/internal/scheduler"
	"go.uber.org/zap"
)

// stores bundles the storage backends selected by configuration
type stores struct {
	quotes        scheduler.QuoteStore
	subscriptions scheduler.SubscriptionSource
	users         scheduler.UserDirectory
	runState      scheduler.RunStateStore
	checks        map[string]api.HealthCheck
	closers       []func()
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	st := &stores{checks: make(map[string]api.HealthCheck)}

	switch cfg.Storage.Driver {
	case config.DriverMongo:
		store, err := mongostore.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(context.Background())
			return nil, err
		}
		st.use(store, store, store, store)
		st.checks["mongo"] = store.Ping
		st.closers = append(st.closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = store.Close(closeCtx)
		})
		log.Info("Using MongoDB storage", zap.String("database", cfg.Mongo.Database))

	default:
		db, err := database.New(cfg.Database.ConnectionString())
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(cfg.Database.MigrationsPath); err != nil {
			db.Close()
			return nil, err
		}
		st.use(db, db, db, db)
		st.checks["postgres"] = func(context.Context) error { return db.Ping() }
		st.closers = append(st.closers, func() { db.Close() })
		log.Info("Using PostgreSQL storage", zap.String("host", cfg.Database.Host))
	}

	if cfg.Redis.Addr != "" {
		rdb, err := quotecache.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, serving quotes from storage", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			return st, nil
		}
		st.quotes = quotecache.New(st.quotes, rdb, cfg.Redis.QuoteTTL, log.Named("quotecache"))
		st.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		st.closers = append(st.closers, func() { _ = rdb.Close() })
	}

	return st, nil
}

func (st *stores) use(q scheduler.QuoteStore, s scheduler.SubscriptionSource, u scheduler.UserDirectory, r scheduler.RunStateStore) {
	st.quotes = q
	st.subscriptions = s
	st.users = u
	st.runState = r
}

func (st *stores) close() {
	for i := len(st.closers) - 1; i >= 0; i-- {
		st.closers[i]()
	}
}
