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

// LoadRunState returns the persisted scheduler state, or nil if none was saved yet
func (s *Store) LoadRunState(ctx context.Context, id string) (*models.RunState, error) {
	var doc runStateDocument
	err := s.collection(RunStateCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run state: %w", err)
	}

	return &models.RunState{
		ID:                  doc.ID,
		LastRunTime:         doc.LastRunTime,
		APILimitHit:         doc.APILimitHit,
		APILimitResetTime:   doc.APILimitResetTime,
		PreviousTickerCount: doc.PreviousTickerCount,
	}, nil
}

// SaveRunState upserts the scheduler state
func (s *Store) SaveRunState(ctx context.Context, state *models.RunState) error {
	doc := runStateDocument{
		ID:                  state.ID,
		LastRunTime:         state.LastRunTime,
		APILimitHit:         state.APILimitHit,
		APILimitResetTime:   state.APILimitResetTime,
		PreviousTickerCount: state.PreviousTickerCount,
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection(RunStateCollection).ReplaceOne(ctx, bson.M{"_id": state.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to save run state: %w", err)
	}
	return nil
}
