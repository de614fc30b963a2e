package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aimd54/planet-heroes/internal/models"
)

// GameScoreRepository stores completed rounds.
type GameScoreRepository struct {
	db *DB
}

// NewGameScoreRepository creates a new game score repository.
func NewGameScoreRepository(db *DB) *GameScoreRepository {
	return &GameScoreRepository{db: db}
}

// Create inserts a completion record. An empty ID is generated.
func (r *GameScoreRepository) Create(score *models.GameScore) error {
	if score.ID == "" {
		score.ID = uuid.New().String()
	}
	if score.CompletedAt.IsZero() {
		score.CompletedAt = time.Now()
	}
	if err := r.db.Create(score).Error; err != nil {
		return fmt.Errorf("failed to create game score: %w", err)
	}
	return nil
}

// GetByUser returns a user's most recent completions.
func (r *GameScoreRepository) GetByUser(userID string, limit int) ([]models.GameScore, error) {
	var scores []models.GameScore
	query := r.db.Where("user_id = ?", userID).Order("completed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&scores).Error; err != nil {
		return nil, fmt.Errorf("failed to get scores for %s: %w", userID, err)
	}
	return scores, nil
}

// StatsByGame aggregates completions per game.
func (r *GameScoreRepository) StatsByGame() ([]models.GameStats, error) {
	var stats []models.GameStats
	err := r.db.Model(&models.GameScore{}).
		Select("game_type, COUNT(*) AS total_plays, AVG(score) AS average_score, " +
			"MAX(score) AS best_score, COUNT(badge_earned) AS badges_earned").
		Group("game_type").
		Order("game_type").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate game stats: %w", err)
	}

	for i := range stats {
		if stats[i].TotalPlays > 0 {
			stats[i].CompletionRate = float64(stats[i].BadgesEarned) / float64(stats[i].TotalPlays)
		}
	}
	return stats, nil
}

// CountSince counts completions after a time.
func (r *GameScoreRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	if err := r.db.Model(&models.GameScore{}).Where("completed_at > ?", since).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count game scores: %w", err)
	}
	return count, nil
}
