package database

import (
	"context"
	"fmt"

	"github.com/trogers1052/quote-refresh-service/internal/models"
)

// UpsertUser inserts or updates a user
func (db *DB) UpsertUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (auth_id, email, first_name, last_name, notifications_enabled)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (auth_id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			notifications_enabled = EXCLUDED.notifications_enabled
	`
	_, err := db.conn.ExecContext(ctx, query, u.AuthID, u.Email, u.FirstName, u.LastName, u.NotificationsEnabled)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetAllUsers returns every user ordered by auth ID
func (db *DB) GetAllUsers(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT auth_id, email, first_name, last_name, notifications_enabled
		FROM users
		ORDER BY auth_id
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.AuthID, &u.Email, &u.FirstName, &u.LastName, &u.NotificationsEnabled); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
