package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/aimd54/planet-heroes/internal/models"
	"github.com/aimd54/planet-heroes/internal/service/badges"
)

// recentRounds is how many completed rounds UserStats returns.
const recentRounds = 10

// UserStats represents a player's progress summary.
type UserStats struct {
	UserID       string             `json:"user_id"`
	Name         string             `json:"name"`
	TotalPoints  int                `json:"total_points"`
	Level        int                `json:"level"`
	Badges       []badges.Badge     `json:"badges"`
	Rank         int                `json:"rank"`
	RecentRounds []models.GameScore `json:"recent_rounds"`
	BestScores   map[string]int     `json:"best_scores"`
}

// GetUserStats returns the progress summary of a player.
func (s *Service) GetUserStats(ctx context.Context, userID string) (*UserStats, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	stats := &UserStats{
		UserID:       p.ID,
		Name:         p.DisplayName,
		TotalPoints:  p.TotalPoints,
		Level:        p.Level,
		Badges:       make([]badges.Badge, 0, len(p.Badges)),
		RecentRounds: []models.GameScore{},
		BestScores:   make(map[string]int),
	}

	for _, id := range p.Badges {
		if b, ok := badges.Lookup(badges.ID(id)); ok {
			stats.Badges = append(stats.Badges, b)
		}
	}

	if s.scores != nil {
		rounds, err := s.scores.GetByUser(userID, 0)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to get round history")
		} else {
			for _, r := range rounds {
				if best, ok := stats.BestScores[r.GameType]; !ok || r.Score > best {
					stats.BestScores[r.GameType] = r.Score
				}
			}
			if len(rounds) > recentRounds {
				rounds = rounds[:recentRounds]
			}
			stats.RecentRounds = rounds
		}
	}

	rank, err := s.GetUserRank(ctx, userID)
	switch {
	case err == nil:
		stats.Rank = rank
	case errors.Is(err, ErrNotRanked):
	default:
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to get rank")
	}

	return stats, nil
}
