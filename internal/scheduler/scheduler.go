package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/seamanship/pkg/models"
	"github.com/go-co-op/gocron"
)

// DefaultLeaderboardSize is used when the configured size is not positive
const DefaultLeaderboardSize = 10

// LeaderboardSource provides the current leaderboard
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// Reporter receives leaderboard snapshots
type Reporter interface {
	ReportLeaderboard(entries []models.LeaderboardEntry) error
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(entries []models.LeaderboardEntry) error

func (f ReporterFunc) ReportLeaderboard(entries []models.LeaderboardEntry) error {
	return f(entries)
}

// LogReporter writes snapshots to the standard logger
var LogReporter = ReporterFunc(func(entries []models.LeaderboardEntry) error {
	log.Printf("Leaderboard snapshot: %d entries", len(entries))
	for _, e := range entries {
		log.Printf("  %d. %s %d", e.Rank, e.UserID, e.Points)
	}
	return nil
})

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	source    LeaderboardSource
	reporters []Reporter
	size      int
	timeout   time.Duration
}

// New creates a new scheduler instance
func New(source LeaderboardSource, size int, reporters ...Reporter) *Scheduler {
	if size <= 0 {
		size = DefaultLeaderboardSize
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		source:    source,
		reporters: reporters,
		size:      size,
		timeout:   30 * time.Second,
	}
}

// Start begins running the leaderboard snapshot every interval
func (s *Scheduler) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid leaderboard interval %s", interval)
	}
	if _, err := s.scheduler.Every(interval).Do(s.snapshotLeaderboard); err != nil {
		return fmt.Errorf("failed to schedule leaderboard snapshot: %w", err)
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) snapshotLeaderboard() {
	if err := s.RunOnce(context.Background()); err != nil {
		log.Printf("Error taking leaderboard snapshot: %v", err)
	}
}

// RunOnce reads the leaderboard and hands it to every reporter
func (s *Scheduler) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entries, err := s.source.Leaderboard(ctx, s.size)
	if err != nil {
		return err
	}

	var firstErr error
	for _, r := range s.reporters {
		if err := r.ReportLeaderboard(entries); err != nil {
			log.Printf("Error reporting leaderboard: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
