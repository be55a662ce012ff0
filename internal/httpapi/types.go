package httpapi

import (
	"github.com/example/seamanship/internal/progress"
	"github.com/example/seamanship/pkg/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

type reconcileRequest struct {
	Completed      bool                  `json:"completed"`
	Score          int                   `json:"score"`
	PointsEarned   int                   `json:"points_earned"`
	AnswersHistory models.AnswersHistory `json:"answers_history"`
}

func (req reconcileRequest) event() progress.Event {
	return progress.Event{
		Completed:      req.Completed,
		Score:          req.Score,
		PointsEarned:   req.PointsEarned,
		AnswersHistory: req.AnswersHistory,
	}
}

type reconcileResponse struct {
	TopicID string `json:"topic_id"`
	progress.Outcome
}

type progressListResponse struct {
	UserID   string                `json:"user_id"`
	Progress []models.UserProgress `json:"progress"`
}

type pointsResponse struct {
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}

type leaderboardResponse struct {
	Entries []models.LeaderboardEntry `json:"entries"`
}
