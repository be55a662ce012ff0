package models

// Profile holds the running point total of a user
type Profile struct {
	UserID string `json:"user_id" db:"user_id"`
	Points int64  `json:"points" db:"points"`
}

// LeaderboardEntry is one ranked row of the points leaderboard
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id" db:"user_id"`
	Points int64  `json:"points" db:"points"`
}
