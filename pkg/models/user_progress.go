package models

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"time"
)

// UserProgress tracks a user's state on a single learning topic
// (theory page, quiz or practice tool). One row per (user, topic).
type UserProgress struct {
	UserID         string         `json:"user_id" db:"user_id"`
	TopicID        string         `json:"topic_id" db:"topic_id"`
	Completed      bool           `json:"completed" db:"completed"`             // Never goes back to false once set
	Score          int            `json:"score" db:"score"`                     // Percentage 0-100, last write wins
	AnswersHistory AnswersHistory `json:"answers_history" db:"answers_history"` // nil means "not given"
	LastAccessed   time.Time      `json:"last_accessed" db:"last_accessed"`
}

// AnswersHistory is an opaque JSON payload (quiz answer arrays, mini-game state).
// A nil value is treated as absent and never overwrites stored history.
type AnswersHistory []byte

// Scan implements sql.Scanner.
func (h *AnswersHistory) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*h = nil
	case []byte:
		*h = append(AnswersHistory(nil), v...)
	case string:
		*h = AnswersHistory(v)
	default:
		return fmt.Errorf("unsupported answers_history type %T", src)
	}
	return nil
}

// Value implements driver.Valuer. The payload is sent as text so that
// Postgres accepts it for a jsonb column.
func (h AnswersHistory) Value() (driver.Value, error) {
	if h == nil {
		return nil, nil
	}
	return string(h), nil
}

// MarshalJSON embeds the payload verbatim.
func (h AnswersHistory) MarshalJSON() ([]byte, error) {
	if h == nil {
		return []byte("null"), nil
	}
	return h, nil
}

// UnmarshalJSON keeps the raw payload; a JSON null leaves the history absent.
func (h *AnswersHistory) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	*h = append((*h)[:0], data...)
	return nil
}
