package progress

import (
	"context"

	"github.com/example/seamanship/pkg/models"
)

// Gateway is the narrow view of the remote store the protocol depends on.
// Handles are long lived and owned by the application bootstrap.
type Gateway interface {
	// ReadProgress returns nil and no error when the pair has no record yet.
	ReadProgress(ctx context.Context, userID, topicID string) (*models.UserProgress, error)
	// UpsertProgress inserts or updates the row keyed by (user_id, topic_id).
	// A nil AnswersHistory must leave the stored history untouched.
	UpsertProgress(ctx context.Context, row models.UserProgress) error
	// IncrementPoints adds delta to the user's points in one server-side statement.
	IncrementPoints(ctx context.Context, userID string, delta int) error
	// DeleteProgress removes exactly the (user_id, topic_id) row.
	DeleteProgress(ctx context.Context, userID, topicID string) error
}
