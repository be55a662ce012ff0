package progress

import (
	"context"
	"log"
	"time"

	"github.com/example/seamanship/pkg/models"
)

// Reader exposes the read-only queries the front ends need on top of Gateway.
type Reader interface {
	ListByUser(ctx context.Context, userID string) ([]models.UserProgress, error)
	GetPoints(ctx context.Context, userID string) (int64, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// Store is what a concrete backend provides.
type Store interface {
	Gateway
	Reader
}

// Service binds the protocol to an injected store handle.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a service around a long-lived store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock replaces the clock used for last_accessed.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Reconcile records a completion event. See Reconcile.
func (s *Service) Reconcile(ctx context.Context, userID, topicID string, ev Event) (Outcome, error) {
	outcome, err := reconcile(ctx, s.store, s.now, userID, topicID, ev)
	if err != nil {
		if IsPersistenceError(err) {
			log.Printf("Failed to reconcile %s/%s: %v", userID, topicID, err)
		}
		return Outcome{}, err
	}
	return outcome, nil
}

// Reset removes one topic record without touching points.
func (s *Service) Reset(ctx context.Context, userID, topicID string) error {
	return Delete(ctx, s.store, userID, topicID)
}

// Progress returns the stored record or nil.
func (s *Service) Progress(ctx context.Context, userID, topicID string) (*models.UserProgress, error) {
	rec, err := s.store.ReadProgress(ctx, userID, topicID)
	if err != nil {
		return nil, persistenceError("read", err)
	}
	return rec, nil
}

// ListProgress returns every record of a user.
func (s *Service) ListProgress(ctx context.Context, userID string) ([]models.UserProgress, error) {
	recs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, persistenceError("read", err)
	}
	return recs, nil
}

// Points returns the user's running total, 0 for unknown users.
func (s *Service) Points(ctx context.Context, userID string) (int64, error) {
	points, err := s.store.GetPoints(ctx, userID)
	if err != nil {
		return 0, persistenceError("read", err)
	}
	return points, nil
}

// Leaderboard returns the top users by points.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	entries, err := s.store.Leaderboard(ctx, limit)
	if err != nil {
		return nil, persistenceError("read", err)
	}
	return entries, nil
}
