package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/seamanship/pkg/models"
	"github.com/jmoiron/sqlx"
)

const progressColumns = "user_id, topic_id, completed, score, last_accessed, answers_history"

// UserProgressRepository handles database operations for user progress
type UserProgressRepository struct {
	db *sqlx.DB
}

// NewUserProgressRepository creates a new repository instance
func NewUserProgressRepository(db *sqlx.DB) *UserProgressRepository {
	return &UserProgressRepository{db: db}
}

// ReadProgress returns progress for a specific user and topic, or nil if there is none
func (r *UserProgressRepository) ReadProgress(ctx context.Context, userID, topicID string) (*models.UserProgress, error) {
	var progress models.UserProgress
	query := r.db.Rebind("SELECT " + progressColumns + " FROM user_progress WHERE user_id = ? AND topic_id = ?")
	err := r.db.GetContext(ctx, &progress, query, userID, topicID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}
	return &progress, nil
}

// UpsertProgress creates or updates the row for (user_id, topic_id).
// answers_history is only written when the row carries one.
func (r *UserProgressRepository) UpsertProgress(ctx context.Context, progress models.UserProgress) error {
	query := `
		INSERT INTO user_progress (user_id, topic_id, completed, score, last_accessed)
		VALUES (:user_id, :topic_id, :completed, :score, :last_accessed)
		ON CONFLICT (user_id, topic_id) DO UPDATE SET
			completed = excluded.completed,
			score = excluded.score,
			last_accessed = excluded.last_accessed
	`
	if progress.AnswersHistory != nil {
		query = `
			INSERT INTO user_progress (user_id, topic_id, completed, score, last_accessed, answers_history)
			VALUES (:user_id, :topic_id, :completed, :score, :last_accessed, :answers_history)
			ON CONFLICT (user_id, topic_id) DO UPDATE SET
				completed = excluded.completed,
				score = excluded.score,
				last_accessed = excluded.last_accessed,
				answers_history = excluded.answers_history
		`
	}

	if _, err := r.db.NamedExecContext(ctx, query, progress); err != nil {
		return fmt.Errorf("failed to upsert user progress: %w", err)
	}
	return nil
}

// DeleteProgress removes the progress record of one topic
func (r *UserProgressRepository) DeleteProgress(ctx context.Context, userID, topicID string) error {
	query := r.db.Rebind("DELETE FROM user_progress WHERE user_id = ? AND topic_id = ?")
	if _, err := r.db.ExecContext(ctx, query, userID, topicID); err != nil {
		return fmt.Errorf("failed to delete user progress: %w", err)
	}
	return nil
}

// ListByUser returns every progress record of a user ordered by topic
func (r *UserProgressRepository) ListByUser(ctx context.Context, userID string) ([]models.UserProgress, error) {
	progress := make([]models.UserProgress, 0)
	query := r.db.Rebind("SELECT " + progressColumns + " FROM user_progress WHERE user_id = ? ORDER BY topic_id ASC")
	if err := r.db.SelectContext(ctx, &progress, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user progress: %w", err)
	}
	return progress, nil
}
