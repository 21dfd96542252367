package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/trogers1052/quote-refresh-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateWatchlist inserts a new watchlist
func (s *Store) CreateWatchlist(ctx context.Context, w *models.Watchlist) error {
	doc := watchlistDocument{Name: w.Name, UserID: w.UserID, Tickers: toAlertTickerRecords(w.Tickers)}
	if _, err := s.collection(WatchlistsCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create watchlist: %w", err)
	}
	return nil
}

// GetAllWatchlists returns the watchlists of every user
func (s *Store) GetAllWatchlists(ctx context.Context) ([]models.Watchlist, error) {
	return s.findWatchlists(ctx, bson.M{})
}

// GetWatchlistsByUser returns the watchlists owned by userID
func (s *Store) GetWatchlistsByUser(ctx context.Context, userID string) ([]models.Watchlist, error) {
	return s.findWatchlists(ctx, bson.M{"userID": userID})
}

// UpdateWatchlist replaces the tickers of the named watchlist
func (s *Store) UpdateWatchlist(ctx context.Context, name, userID string, tickers []models.AlertTicker) (*models.Watchlist, error) {
	filter := bson.M{"watchlistName": name, "userID": userID}
	update := bson.M{"$set": bson.M{"tickers": toAlertTickerRecords(tickers)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc watchlistDocument
	err := s.collection(WatchlistsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("watchlist %q not found for user %s", name, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update watchlist: %w", err)
	}

	w := doc.model()
	return &w, nil
}

func (s *Store) findWatchlists(ctx context.Context, filter bson.M) ([]models.Watchlist, error) {
	opts := options.Find().SetSort(bson.D{{Key: "userID", Value: 1}, {Key: "watchlistName", Value: 1}})
	cursor, err := s.collection(WatchlistsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlists: %w", err)
	}

	var docs []watchlistDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode watchlists: %w", err)
	}

	watchlists := make([]models.Watchlist, 0, len(docs))
	for _, d := range docs {
		watchlists = append(watchlists, d.model())
	}
	return watchlists, nil
}

// CreatePosition inserts a new position
func (s *Store) CreatePosition(ctx context.Context, p *models.Position) error {
	doc := positionDocument{Name: p.Name, UserID: p.UserID, Tickers: toPositionTickerRecords(p.Tickers)}
	if _, err := s.collection(PositionsCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	return nil
}

// GetAllPositions returns the positions of every user
func (s *Store) GetAllPositions(ctx context.Context) ([]models.Position, error) {
	return s.findPositions(ctx, bson.M{})
}

// GetPositionsByUser returns the positions owned by userID
func (s *Store) GetPositionsByUser(ctx context.Context, userID string) ([]models.Position, error) {
	return s.findPositions(ctx, bson.M{"userID": userID})
}

// UpdatePosition replaces the tickers of the named position
func (s *Store) UpdatePosition(ctx context.Context, name, userID string, tickers []models.PositionTicker) (*models.Position, error) {
	filter := bson.M{"positionName": name, "userID": userID}
	update := bson.M{"$set": bson.M{"tickers": toPositionTickerRecords(tickers)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc positionDocument
	err := s.collection(PositionsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("position %q not found for user %s", name, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update position: %w", err)
	}

	p := doc.model()
	return &p, nil
}

func (s *Store) findPositions(ctx context.Context, filter bson.M) ([]models.Position, error) {
	opts := options.Find().SetSort(bson.D{{Key: "userID", Value: 1}, {Key: "positionName", Value: 1}})
	cursor, err := s.collection(PositionsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	var docs []positionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode positions: %w", err)
	}

	positions := make([]models.Position, 0, len(docs))
	for _, d := range docs {
		positions = append(positions, d.model())
	}
	return positions, nil
}
