package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/seamanship/pkg/models"
	"github.com/jmoiron/sqlx"
)

// DefaultLeaderboardLimit is used when a caller asks for a non-positive limit
const DefaultLeaderboardLimit = 10

// ProfileRepository handles the points column of user profiles
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new repository instance
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// IncrementPoints adds delta to the user's points in a single statement
// evaluated by the store. Missing profiles start from zero.
func (r *ProfileRepository) IncrementPoints(ctx context.Context, userID string, delta int) error {
	var err error
	if r.db.DriverName() == DriverPostgres {
		_, err = r.db.ExecContext(ctx, "SELECT increment_user_points($1, $2)", userID, delta)
	} else {
		// SQLite has no stored procedures, the statement mirrors increment_user_points
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO profiles (user_id, points) VALUES (?, coalesce(?, 0))
			ON CONFLICT (user_id) DO UPDATE SET
				points = coalesce(profiles.points, 0) + coalesce(excluded.points, 0)
		`, userID, delta)
	}
	if err != nil {
		return fmt.Errorf("failed to increment user points: %w", err)
	}
	return nil
}

// GetPoints returns the user's points, 0 when the profile doesn't exist
func (r *ProfileRepository) GetPoints(ctx context.Context, userID string) (int64, error) {
	var points int64
	query := r.db.Rebind("SELECT coalesce(points, 0) FROM profiles WHERE user_id = ?")
	err := r.db.GetContext(ctx, &points, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get user points: %w", err)
	}
	return points, nil
}

// Leaderboard returns the top users by points
func (r *ProfileRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	entries := make([]models.LeaderboardEntry, 0, limit)
	query := r.db.Rebind(`
		SELECT user_id, coalesce(points, 0) AS points
		FROM profiles
		ORDER BY coalesce(points, 0) DESC, user_id ASC
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
