package domain

import "time"

// MatchRecord is a completed query persisted to the match history.
type MatchRecord struct {
	ID         string    `json:"id"          db:"id"`
	InputText  string    `json:"input_text"  db:"input_text"`
	Label      string    `json:"label"       db:"label"`
	Score      float64   `json:"score"       db:"score"`
	Model      string    `json:"model"       db:"model"`
	DurationMs int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}
