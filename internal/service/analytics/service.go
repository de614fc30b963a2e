// Package analytics computes the teacher dashboard roll-ups of class progress.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/aimd54/planet-heroes/internal/config"
	"github.com/aimd54/planet-heroes/internal/metrics"
	"github.com/aimd54/planet-heroes/internal/models"
	"github.com/aimd54/planet-heroes/internal/profile"
	"github.com/aimd54/planet-heroes/internal/repository"
	"github.com/aimd54/planet-heroes/pkg/logger"
)

// ProfileRepository interface for class roster reads.
type ProfileRepository interface {
	ListByRole(ctx context.Context, role profile.Role) ([]profile.Profile, error)
}

// ScoreRepository interface for completed round aggregates.
type ScoreRepository interface {
	StatsByGame() ([]models.GameStats, error)
	CountSince(since time.Time) (int64, error)
}

// StudentSummary is one row of the class roster.
type StudentSummary struct {
	Rank        int       `json:"rank"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	TotalPoints int       `json:"total_points"`
	BadgeCount  int       `json:"badge_count"`
	Level       int       `json:"level"`
	LastActive  time.Time `json:"last_active"`
}

// Overview is the class roll-up shown on the teacher dashboard.
type Overview struct {
	TotalStudents int              `json:"total_students"`
	AverageScore  int              `json:"average_score"`
	TotalBadges   int              `json:"total_badges"`
	ActiveToday   int              `json:"active_today"`
	RoundsToday   int64            `json:"rounds_today"`
	TopStudents   []StudentSummary `json:"top_students"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

// Service computes class analytics.
type Service struct {
	profiles     ProfileRepository
	scores       ScoreRepository
	activeWindow time.Duration
	topStudents  int
	now          func() time.Time
	log          *logger.Logger
}

// NewService creates a new analytics service.
func NewService(
	profiles *profile.CachedRepository,
	scores *repository.GameScoreRepository,
	cfg *config.AnalyticsConfig,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(profiles, scores, cfg, log)
}

// NewServiceWithInterfaces creates a new analytics service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(profiles ProfileRepository, scores ScoreRepository, cfg *config.AnalyticsConfig, log *logger.Logger) *Service {
	s := &Service{
		profiles:     profiles,
		scores:       scores,
		activeWindow: 24 * time.Hour,
		topStudents:  10,
		now:          time.Now,
		log:          log,
	}
	if cfg != nil {
		if cfg.ActiveWindowHours > 0 {
			s.activeWindow = time.Duration(cfg.ActiveWindowHours) * time.Hour
		}
		if cfg.TopStudents > 0 {
			s.topStudents = cfg.TopStudents
		}
	}
	return s
}

// ClassOverview scans every student profile and rolls them up. There is no
// incremental state: each call is a full scan.
func (s *Service) ClassOverview(ctx context.Context) (*Overview, error) {
	start := time.Now()
	students, err := s.profiles.ListByRole(ctx, profile.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	now := s.now()
	overview := &Overview{
		TotalStudents: len(students),
		AverageScore:  CalculateAverageScore(students),
		TotalBadges:   CalculateTotalBadges(students),
		ActiveToday:   CountActiveSince(students, now.Add(-s.activeWindow)),
		TopStudents:   RankByPoints(students, s.topStudents),
		GeneratedAt:   now.UTC(),
	}

	if s.scores != nil {
		rounds, err := s.scores.CountSince(now.Add(-s.activeWindow))
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to count recent rounds")
		} else {
			overview.RoundsToday = rounds
		}
	}

	metrics.ObserveAnalyticsScan(time.Since(start).Seconds())
	s.log.Debug().
		Int("students", overview.TotalStudents).
		Int("active_today", overview.ActiveToday).
		Msg("Computed class overview")
	return overview, nil
}

// TopStudents returns the top-N roster, the rows of the CSV export.
func (s *Service) TopStudents(ctx context.Context) ([]StudentSummary, error) {
	students, err := s.profiles.ListByRole(ctx, profile.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return RankByPoints(students, s.topStudents), nil
}

// GameStats returns per-game play counts, average scores and badge rates
// from the relational store.
func (s *Service) GameStats(_ context.Context) ([]models.GameStats, error) {
	if s.scores == nil {
		return []models.GameStats{}, nil
	}
	stats, err := s.scores.StatsByGame()
	if err != nil {
		return nil, fmt.Errorf("failed to get game stats: %w", err)
	}
	if stats == nil {
		stats = []models.GameStats{}
	}
	return stats, nil
}
