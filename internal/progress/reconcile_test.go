package progress_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/example/seamanship/internal/progress"
	"github.com/example/seamanship/internal/progress/progresstest"
	"github.com/example/seamanship/pkg/models"
)

func TestDecide(t *testing.T) {
	done := &models.UserProgress{Completed: true}
	open := &models.UserProgress{Completed: false}

	cases := []struct {
		name     string
		existing *models.UserProgress
		ev       progress.Event
		want     progress.Decision
	}{
		{"fresh completion with points", nil, progress.Event{Completed: true, PointsEarned: 40},
			progress.Decision{CompletionJustHappened: true, Completed: true, AwardPoints: true}},
		{"fresh completion without points", nil, progress.Event{Completed: true},
			progress.Decision{CompletionJustHappened: true, Completed: true}},
		{"repeat completion", done, progress.Event{Completed: true, PointsEarned: 40},
			progress.Decision{Completed: true}},
		{"completing an open record", open, progress.Event{Completed: true, PointsEarned: 5},
			progress.Decision{CompletionJustHappened: true, Completed: true, AwardPoints: true}},
		{"visit keeps completion", done, progress.Event{},
			progress.Decision{Completed: true}},
		{"incremental points on visit", done, progress.Event{PointsEarned: 3},
			progress.Decision{Completed: true, AwardPoints: true}},
		{"incremental points fresh", nil, progress.Event{PointsEarned: 3},
			progress.Decision{AwardPoints: true}},
		{"plain visit", nil, progress.Event{Score: 20},
			progress.Decision{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := progress.Decide(tc.existing, tc.ev); got != tc.want {
				t.Fatalf("Decide = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := progress.Event{Completed: true, Score: 100, PointsEarned: 10}
	if err := progress.Validate("user-1", "quiz-colregs", valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := []struct {
		user, topic string
		ev          progress.Event
	}{
		{"", "quiz-colregs", valid},
		{"user-1", "  ", valid},
		{"user-1", "quiz-colregs", progress.Event{Score: 101}},
		{"user-1", "quiz-colregs", progress.Event{Score: -1}},
		{"user-1", "quiz-colregs", progress.Event{PointsEarned: -5}},
	}
	for _, tc := range bad {
		if err := progress.Validate(tc.user, tc.topic, tc.ev); !errors.Is(err, progress.ErrInvalidEvent) {
			t.Fatalf("Validate(%q, %q, %+v) = %v, want ErrInvalidEvent", tc.user, tc.topic, tc.ev, err)
		}
	}
}

func TestReconcileFreshCompletion(t *testing.T) {
	store := progresstest.NewStore()
	ctx := context.Background()

	out, err := progress.Reconcile(ctx, store, "user-1", "quiz-colregs", progress.Event{
		Completed:    true,
		Score:        80,
		PointsEarned: 40,
	})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if !out.PointsAwarded || !out.CompletionAwarded {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	upserts := store.Upserts()
	if len(upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(upserts))
	}
	row := upserts[0]
	if row.UserID != "user-1" || row.TopicID != "quiz-colregs" || !row.Completed || row.Score != 80 {
		t.Fatalf("unexpected upsert row: %+v", row)
	}
	if row.LastAccessed.IsZero() {
		t.Fatalf("last_accessed not set")
	}
	if row.AnswersHistory != nil {
		t.Fatalf("expected no answers history, got %s", row.AnswersHistory)
	}

	incs := store.Increments()
	if len(incs) != 1 || incs[0] != (progresstest.Increment{UserID: "user-1", Delta: 40}) {
		t.Fatalf("unexpected increments: %+v", incs)
	}
}

func TestReconcileIdempotentCompletion(t *testing.T) {
	store := progresstest.NewStore()
	ctx := context.Background()
	ev := progress.Event{Completed: true, Score: 90, PointsEarned: 25}

	first, err := progress.Reconcile(ctx, store, "user-1", "theory-tides", ev)
	if err != nil {
		t.Fatalf("first Reconcile failed: %v", err)
	}
	second, err := progress.Reconcile(ctx, store, "user-1", "theory-tides", ev)
	if err != nil {
		t.Fatalf("second Reconcile failed: %v", err)
	}

	if !first.PointsAwarded || !first.CompletionAwarded {
		t.Fatalf("first outcome = %+v, want both awarded", first)
	}
	if second.PointsAwarded || second.CompletionAwarded {
		t.Fatalf("second outcome = %+v, want nothing awarded", second)
	}
	if got := store.Points("user-1"); got != 25 {
		t.Fatalf("points = %d, want 25", got)
	}
	if n := len(store.Increments()); n != 1 {
		t.Fatalf("expected 1 increment, got %d", n)
	}
}

func TestReconcileScoreOverwriteKeepsCompleted(t *testing.T) {
	store := progresstest.NewStore()
	ctx := context.Background()

	if _, err := progress.Reconcile(ctx, store, "user-1", "quiz-lights", progress.Event{Completed: true, Score: 90}); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if _, err := progress.Reconcile(ctx, store, "user-1", "quiz-lights", progress.Event{Completed: false, Score: 40}); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	row, ok := store.Row("user-1", "quiz-lights")
	if !ok {
		t.Fatalf("row missing")
	}
	if !row.Completed || row.Score != 40 {
		t.Fatalf("row = %+v, want completed=true score=40", row)
	}
}

func TestReconcileOmittedHistoryPreserved(t *testing.T) {
	store := progresstest.NewStore()
	ctx := context.Background()
	history := models.AnswersHistory(`[1,0,2]`)

	if _, err := progress.Reconcile(ctx, store, "user-1", "quiz-anchoring", progress.Event{Score: 30, AnswersHistory: history}); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if _, err := progress.Reconcile(ctx, store, "user-1", "quiz-anchoring", progress.Event{Score: 70}); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	upserts := store.Upserts()
	if upserts[1].AnswersHistory != nil {
		t.Fatalf("second upsert must not carry history, got %s", upserts[1].AnswersHistory)
	}
	row, _ := store.Row("user-1", "quiz-anchoring")
	if string(row.AnswersHistory) != `[1,0,2]` || row.Score != 70 {
		t.Fatalf("row = %+v, want history kept and score 70", row)
	}
}

func TestReconcileUpsertFailureSkipsIncrement(t *testing.T) {
	store := progresstest.NewStore()
	store.UpsertErr = errors.New("permission denied")

	_, err := progress.Reconcile(context.Background(), store, "user-1", "quiz-colregs", progress.Event{Completed: true, PointsEarned: 40})
	if !progress.IsPersistenceError(err) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if !errors.Is(err, store.UpsertErr) {
		t.Fatalf("expected wrapped upsert error, got %v", err)
	}
	if n := len(store.Increments()); n != 0 {
		t.Fatalf("increment called %d times after failed upsert", n)
	}
}

func TestReconcileReadFailureWritesNothing(t *testing.T) {
	store := progresstest.NewStore()
	store.ReadErr = errors.New("network down")

	_, err := progress.Reconcile(context.Background(), store, "user-1", "quiz-colregs", progress.Event{Completed: true, PointsEarned: 40})
	var pe *progress.PersistenceError
	if !errors.As(err, &pe) || pe.Op != "read" {
		t.Fatalf("expected read PersistenceError, got %v", err)
	}
	if len(store.Upserts()) != 0 || len(store.Increments()) != 0 {
		t.Fatalf("writes happened after failed read")
	}
}

func TestReconcileIncrementFailureLeavesRow(t *testing.T) {
	store := progresstest.NewStore()
	store.IncrementErr = errors.New("timeout")
	ctx := context.Background()
	ev := progress.Event{Completed: true, Score: 100, PointsEarned: 50}

	_, err := progress.Reconcile(ctx, store, "user-1", "quiz-buoyage", ev)
	var pe *progress.PersistenceError
	if !errors.As(err, &pe) || pe.Op != "increment" {
		t.Fatalf("expected increment PersistenceError, got %v", err)
	}
	row, ok := store.Row("user-1", "quiz-buoyage")
	if !ok || !row.Completed {
		t.Fatalf("row should stay committed after failed increment: %+v", row)
	}

	// A full retry sees the topic completed and does not award the missed points.
	store.IncrementErr = nil
	out, err := progress.Reconcile(ctx, store, "user-1", "quiz-buoyage", ev)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if out.PointsAwarded || out.CompletionAwarded {
		t.Fatalf("retry outcome = %+v, want nothing awarded", out)
	}
	if got := store.Points("user-1"); got != 0 {
		t.Fatalf("points = %d, want 0", got)
	}
}

func TestReconcileInvalidEventTouchesNothing(t *testing.T) {
	store := progresstest.NewStore()

	_, err := progress.Reconcile(context.Background(), store, "", "quiz-colregs", progress.Event{Completed: true})
	if !errors.Is(err, progress.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if store.Reads() != 0 || len(store.Upserts()) != 0 {
		t.Fatalf("store was called for an invalid event")
	}
}

func TestReconcileConcurrentDistinctTopics(t *testing.T) {
	store := progresstest.NewStore()
	ctx := context.Background()

	const n = 32
	var (
		wg   sync.WaitGroup
		want int64
	)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		points := i + 1
		want += int64(points)
		wg.Add(1)
		go func(i, points int) {
			defer wg.Done()
			topic := fmt.Sprintf("topic-%d", i)
			out, err := progress.Reconcile(ctx, store, "user-1", topic, progress.Event{Completed: true, PointsEarned: points})
			if err != nil {
				errs <- err
				return
			}
			if !out.PointsAwarded {
				errs <- fmt.Errorf("%s: points not awarded", topic)
			}
		}(i, points)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	if got := store.Points("user-1"); got != want {
		t.Fatalf("points = %d, want %d", got, want)
	}
}

func TestReconcileTwoTopicsIndependent(t *testing.T) {
	store := progresstest.NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for topic, points := range map[string]int{"quiz-colregs": 10, "quiz-lights": 15} {
		wg.Add(1)
		go func(topic string, points int) {
			defer wg.Done()
			if _, err := progress.Reconcile(ctx, store, "user-1", topic, progress.Event{Completed: true, PointsEarned: points}); err != nil {
				t.Errorf("Reconcile %s failed: %v", topic, err)
			}
		}(topic, points)
	}
	wg.Wait()

	incs := store.Increments()
	if len(incs) != 2 {
		t.Fatalf("expected 2 increments, got %+v", incs)
	}
	deltas := []int{incs[0].Delta, incs[1].Delta}
	sort.Ints(deltas)
	if deltas[0] != 10 || deltas[1] != 15 {
		t.Fatalf("deltas = %v, want [10 15]", deltas)
	}
}

// Two reconciliations of the same pair that both read before either writes
// both award points. This is the accepted check-then-act window.
func TestReconcileSamePairRaceDoubleCredits(t *testing.T) {
	store := progresstest.NewStore()
	var barrier sync.WaitGroup
	barrier.Add(2)
	store.AfterRead = func(string, string) {
		barrier.Done()
		barrier.Wait()
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := progress.Reconcile(context.Background(), store, "user-1", "quiz-colregs", progress.Event{Completed: true, PointsEarned: 10}); err != nil {
				t.Errorf("Reconcile failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := store.Points("user-1"); got != 20 {
		t.Fatalf("points = %d, want 20 (both racers credited)", got)
	}
}

func TestDeleteKeepsPoints(t *testing.T) {
	store := progresstest.NewStore()
	ctx := context.Background()

	if _, err := progress.Reconcile(ctx, store, "user-1", "quiz-colregs", progress.Event{Completed: true, PointsEarned: 40}); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if _, err := progress.Reconcile(ctx, store, "user-1", "quiz-lights", progress.Event{Completed: true}); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if err := progress.Delete(ctx, store, "user-1", "quiz-colregs"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, ok := store.Row("user-1", "quiz-colregs"); ok {
		t.Fatalf("row still present after delete")
	}
	if _, ok := store.Row("user-1", "quiz-lights"); !ok {
		t.Fatalf("delete removed another topic")
	}
	if got := store.Points("user-1"); got != 40 {
		t.Fatalf("points = %d, want 40 after reset", got)
	}

	// After a reset the topic can be completed and credited again.
	out, err := progress.Reconcile(ctx, store, "user-1", "quiz-colregs", progress.Event{Completed: true, PointsEarned: 40})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if !out.PointsAwarded || store.Points("user-1") != 80 {
		t.Fatalf("expected re-award after reset, outcome %+v points %d", out, store.Points("user-1"))
	}
}

func TestDeleteFailureIsPersistenceError(t *testing.T) {
	store := progresstest.NewStore()
	store.DeleteErr = errors.New("boom")

	err := progress.Delete(context.Background(), store, "user-1", "quiz-colregs")
	if !progress.IsPersistenceError(err) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

func TestServiceUsesClock(t *testing.T) {
	store := progresstest.NewStore()
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := progress.NewService(store).WithClock(func() time.Time { return fixed })
	ctx := context.Background()

	if _, err := svc.Reconcile(ctx, "user-1", "theory-navigation", progress.Event{Completed: true, PointsEarned: 5}); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	row, _ := store.Row("user-1", "theory-navigation")
	if !row.LastAccessed.Equal(fixed) {
		t.Fatalf("last_accessed = %v, want %v", row.LastAccessed, fixed)
	}

	points, err := svc.Points(ctx, "user-1")
	if err != nil || points != 5 {
		t.Fatalf("Points = (%d, %v), want (5, nil)", points, err)
	}
	recs, err := svc.ListProgress(ctx, "user-1")
	if err != nil || len(recs) != 1 {
		t.Fatalf("ListProgress = (%+v, %v)", recs, err)
	}
	board, err := svc.Leaderboard(ctx, 10)
	if err != nil || len(board) != 1 || board[0].Rank != 1 {
		t.Fatalf("Leaderboard = (%+v, %v)", board, err)
	}
}
