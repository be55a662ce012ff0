// Package progresstest provides an in-memory progress store for tests.
package progresstest

import (
	"context"
	"sort"
	"sync"

	"github.com/example/seamanship/pkg/models"
)

type key struct {
	user  string
	topic string
}

// Increment records one IncrementPoints call.
type Increment struct {
	UserID string
	Delta  int
}

// Store keeps rows in memory and counts calls. Failure fields make the
// matching primitive return that error.
type Store struct {
	mu      sync.Mutex
	rows    map[key]models.UserProgress
	points  map[string]int64
	upserts []models.UserProgress
	incs    []Increment
	reads   int
	deletes int

	ReadErr      error
	UpsertErr    error
	IncrementErr error
	DeleteErr    error

	// AfterRead runs after a read returns, outside the lock. Tests use it
	// to hold concurrent reconciliations between read and upsert.
	AfterRead func(userID, topicID string)
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		rows:   make(map[key]models.UserProgress),
		points: make(map[string]int64),
	}
}

func (s *Store) ReadProgress(_ context.Context, userID, topicID string) (*models.UserProgress, error) {
	s.mu.Lock()
	s.reads++
	if s.ReadErr != nil {
		err := s.ReadErr
		s.mu.Unlock()
		return nil, err
	}
	row, ok := s.rows[key{userID, topicID}]
	hook := s.AfterRead
	s.mu.Unlock()

	if hook != nil {
		hook(userID, topicID)
	}
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *Store) UpsertProgress(_ context.Context, row models.UserProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, row)
	if s.UpsertErr != nil {
		return s.UpsertErr
	}
	k := key{row.UserID, row.TopicID}
	if row.AnswersHistory == nil {
		if prev, ok := s.rows[k]; ok {
			row.AnswersHistory = prev.AnswersHistory
		}
	}
	s.rows[k] = row
	return nil
}

func (s *Store) IncrementPoints(_ context.Context, userID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incs = append(s.incs, Increment{UserID: userID, Delta: delta})
	if s.IncrementErr != nil {
		return s.IncrementErr
	}
	s.points[userID] += int64(delta)
	return nil
}

func (s *Store) DeleteProgress(_ context.Context, userID, topicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.rows, key{userID, topicID})
	return nil
}

func (s *Store) ListByUser(_ context.Context, userID string) ([]models.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	out := make([]models.UserProgress, 0)
	for k, row := range s.rows {
		if k.user == userID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID < out[j].TopicID })
	return out, nil
}

func (s *Store) GetPoints(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return 0, s.ReadErr
	}
	return s.points[userID], nil
}

func (s *Store) Leaderboard(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	out := make([]models.LeaderboardEntry, 0, len(s.points))
	for user, points := range s.points {
		out = append(out, models.LeaderboardEntry{UserID: user, Points: points})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// Row returns the stored row for a pair.
func (s *Store) Row(userID, topicID string) (models.UserProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key{userID, topicID}]
	return row, ok
}

// Points returns the stored total without counting as a read.
func (s *Store) Points(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points[userID]
}

// SetPoints seeds a user's total.
func (s *Store) SetPoints(userID string, points int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[userID] = points
}

// Upserts returns a copy of every row passed to UpsertProgress.
func (s *Store) Upserts() []models.UserProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.UserProgress(nil), s.upserts...)
}

// Increments returns a copy of every IncrementPoints call.
func (s *Store) Increments() []Increment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Increment(nil), s.incs...)
}

// Reads returns the number of ReadProgress calls.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Deletes returns the number of DeleteProgress calls.
func (s *Store) Deletes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes
}
