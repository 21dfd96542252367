package mongostore

import (
	"context"
	"fmt"

	"github.com/trogers1052/quote-refresh-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpsertUser inserts or updates a user keyed by auth ID
func (s *Store) UpsertUser(ctx context.Context, u *models.User) error {
	doc := userDocument{
		AuthID:               u.AuthID,
		Email:                u.Email,
		FirstName:            u.FirstName,
		LastName:             u.LastName,
		NotificationsEnabled: u.NotificationsEnabled,
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection(UsersCollection).ReplaceOne(ctx, bson.M{"authID": u.AuthID}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetAllUsers returns every user ordered by auth ID
func (s *Store) GetAllUsers(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "authID", Value: 1}})
	cursor, err := s.collection(UsersCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, models.User{
			AuthID:               d.AuthID,
			Email:                d.Email,
			FirstName:            d.FirstName,
			LastName:             d.LastName,
			NotificationsEnabled: d.NotificationsEnabled,
		})
	}
	return users, nil
}
