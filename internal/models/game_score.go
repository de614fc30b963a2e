package models

import (
	"time"
)

// GameScore records one completed round.
type GameScore struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"size:128;not null;index" json:"user_id"`
	GameType    string    `gorm:"size:50;not null;index" json:"game_type"`
	Score       int       `gorm:"not null" json:"score"`
	CompletedAt time.Time `gorm:"not null;index" json:"completed_at"`
	BadgeEarned *string   `gorm:"size:50" json:"badge_earned,omitempty"`
}

// TableName specifies the table name for GameScore model.
func (GameScore) TableName() string {
	return "game_scores"
}

// GameStats aggregates the completed rounds of one game.
type GameStats struct {
	GameType       string  `json:"game_type"`
	TotalPlays     int64   `json:"total_plays"`
	AverageScore   float64 `json:"average_score"`
	BestScore      int     `json:"best_score"`
	BadgesEarned   int64   `json:"badges_earned"`
	CompletionRate float64 `json:"completion_rate"` // share of plays that earned a badge
}
