package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/trogers1052/quote-refresh-service/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	UsersCollection      = "users"
	WatchlistsCollection = "watchlists"
	PositionsCollection  = "positions"
	QuotesCollection     = "latestStockQuotes"
	RunStateCollection   = "cronstates"
)

// Store implements the scheduler's data stores on MongoDB
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens a MongoDB connection and verifies it with a ping
func Connect(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Store{client: client, db: client.Database(cfg.Database)}, nil
}

// EnsureIndexes creates the unique indexes the stores rely on
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string]mongo.IndexModel{
		QuotesCollection: {
			Keys:    bson.D{{Key: "symbol", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		WatchlistsCollection: {
			Keys:    bson.D{{Key: "userID", Value: 1}, {Key: "watchlistName", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		PositionsCollection: {
			Keys:    bson.D{{Key: "userID", Value: 1}, {Key: "positionName", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		UsersCollection: {
			Keys:    bson.D{{Key: "authID", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	for name, model := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", name, err)
		}
	}
	return nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}
