package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/seamanship/pkg/models"
)

// Event is a completion event fired by a theory page, quiz or practice tool.
// The zero value is a non-completing visit with score 0 and no points.
type Event struct {
	Completed      bool
	Score          int // percentage 0-100
	PointsEarned   int
	AnswersHistory models.AnswersHistory // nil leaves stored history untouched
}

// Outcome drives caller-side feedback (toasts, badges). It carries no side effects.
type Outcome struct {
	PointsAwarded     bool `json:"points_awarded"`
	CompletionAwarded bool `json:"completion_awarded"`
}

// Decision is the pure part of reconciliation.
type Decision struct {
	CompletionJustHappened bool
	Completed              bool // value to persist
	AwardPoints            bool
}

// Decide computes what an event does given the stored record (nil if none).
func Decide(existing *models.UserProgress, ev Event) Decision {
	wasAlreadyCompleted := existing != nil && existing.Completed
	justCompleted := ev.Completed && !wasAlreadyCompleted

	award := ev.PointsEarned > 0
	if ev.Completed {
		// A resubmitted completion earns nothing, whatever the caller passes.
		award = award && justCompleted
	}

	return Decision{
		CompletionJustHappened: justCompleted,
		Completed:              ev.Completed || wasAlreadyCompleted,
		AwardPoints:            award,
	}
}

// Validate checks the event and its key against the accepted input domain.
func Validate(userID, topicID string, ev Event) error {
	switch {
	case strings.TrimSpace(userID) == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidEvent)
	case strings.TrimSpace(topicID) == "":
		return fmt.Errorf("%w: topic id is required", ErrInvalidEvent)
	case ev.Score < 0 || ev.Score > 100:
		return fmt.Errorf("%w: score %d out of range 0-100", ErrInvalidEvent, ev.Score)
	case ev.PointsEarned < 0:
		return fmt.Errorf("%w: negative points %d", ErrInvalidEvent, ev.PointsEarned)
	}
	return nil
}

// Reconcile applies a completion event for (userID, topicID) through gw.
//
// Sequence: read, decide, upsert, then increment only if points are awarded.
// A failed read or upsert aborts before anything else is written. A failed
// increment is reported but the upsert is not undone.
//
// Concurrent calls for the same pair may both observe an incomplete record
// and both award points; the increment itself never loses an update.
func Reconcile(ctx context.Context, gw Gateway, userID, topicID string, ev Event) (Outcome, error) {
	return reconcile(ctx, gw, time.Now, userID, topicID, ev)
}

func reconcile(ctx context.Context, gw Gateway, now func() time.Time, userID, topicID string, ev Event) (Outcome, error) {
	if err := Validate(userID, topicID, ev); err != nil {
		return Outcome{}, err
	}

	existing, err := gw.ReadProgress(ctx, userID, topicID)
	if err != nil {
		return Outcome{}, persistenceError("read", err)
	}

	d := Decide(existing, ev)

	row := models.UserProgress{
		UserID:         userID,
		TopicID:        topicID,
		Completed:      d.Completed,
		Score:          ev.Score,
		AnswersHistory: ev.AnswersHistory,
		LastAccessed:   now().UTC(),
	}
	if err := gw.UpsertProgress(ctx, row); err != nil {
		return Outcome{}, persistenceError("upsert", err)
	}

	if d.AwardPoints {
		if err := gw.IncrementPoints(ctx, userID, ev.PointsEarned); err != nil {
			return Outcome{}, persistenceError("increment", err)
		}
	}

	return Outcome{
		PointsAwarded:     d.AwardPoints,
		CompletionAwarded: d.CompletionJustHappened,
	}, nil
}

// Delete removes the record for (userID, topicID). Points already credited
// are not refunded.
func Delete(ctx context.Context, gw Gateway, userID, topicID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(topicID) == "" {
		return fmt.Errorf("%w: user id and topic id are required", ErrInvalidEvent)
	}
	if err := gw.DeleteProgress(ctx, userID, topicID); err != nil {
		return persistenceError("delete", err)
	}
	return nil
}
