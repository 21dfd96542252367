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

// BulkReplaceQuotes replaces the stored document of every given symbol
func (s *Store) BulkReplaceQuotes(ctx context.Context, quotes []models.QuoteSnapshot) error {
	if len(quotes) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(quotes))
	for _, q := range quotes {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"symbol": q.Symbol}).
			SetReplacement(toQuoteDocument(q)).
			SetUpsert(true))
	}

	if _, err := s.collection(QuotesCollection).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to replace quotes: %w", err)
	}
	return nil
}

// AddBulkQuotes inserts documents for symbols that are not stored yet
func (s *Store) AddBulkQuotes(ctx context.Context, quotes []models.QuoteSnapshot) error {
	if len(quotes) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(quotes))
	for _, q := range quotes {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"symbol": q.Symbol}).
			SetUpdate(bson.M{"$setOnInsert": toQuoteDocument(q)}).
			SetUpsert(true))
	}

	if _, err := s.collection(QuotesCollection).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to add quotes: %w", err)
	}
	return nil
}

// GetQuote returns the stored quote for symbol, or nil if there is none
func (s *Store) GetQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	var doc quoteDocument
	err := s.collection(QuotesCollection).FindOne(ctx, bson.M{"symbol": symbol}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	q := doc.model()
	return &q, nil
}

// GetQuotes returns the stored quotes for symbols ordered by symbol. Missing symbols are omitted.
func (s *Store) GetQuotes(ctx context.Context, symbols []string) ([]models.QuoteSnapshot, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "symbol", Value: 1}})
	cursor, err := s.collection(QuotesCollection).Find(ctx, bson.M{"symbol": bson.M{"$in": symbols}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get quotes: %w", err)
	}

	var docs []quoteDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode quotes: %w", err)
	}

	quotes := make([]models.QuoteSnapshot, 0, len(docs))
	for _, d := range docs {
		quotes = append(quotes, d.model())
	}
	return quotes, nil
}

// CountQuotes returns the number of stored quotes
func (s *Store) CountQuotes(ctx context.Context) (int64, error) {
	count, err := s.collection(QuotesCollection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count quotes: %w", err)
	}
	return count, nil
}
