// Package leaderboard provides the points leaderboard and player rankings.
package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/aimd54/planet-heroes/internal/config"
	"github.com/aimd54/planet-heroes/internal/metrics"
	"github.com/aimd54/planet-heroes/internal/models"
	"github.com/aimd54/planet-heroes/internal/profile"
	"github.com/aimd54/planet-heroes/internal/repository"
	"github.com/aimd54/planet-heroes/pkg/logger"
)

// ErrNotRanked is returned when a player does not appear on the leaderboard.
var ErrNotRanked = errors.New("user not found in leaderboard")

// ProfileRepository interface for profile reads.
type ProfileRepository interface {
	Get(ctx context.Context, id string) (*profile.Profile, error)
	ListByPoints(ctx context.Context, limit int, after *profile.Position) ([]profile.Profile, error)
}

// ScoreRepository interface for completed round history.
type ScoreRepository interface {
	GetByUser(userID string, limit int) ([]models.GameScore, error)
}

// Entry represents a single entry in the leaderboard.
type Entry struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Points     int    `json:"total_points"`
	BadgeCount int    `json:"badge_count"`
	Level      int    `json:"level"`
}

// Cursor addresses the page after a previous one. The zero value is the
// first page. AfterID is the last player of the previous page; without it
// every player tied on AfterPoints is skipped.
type Cursor struct {
	AfterPoints *int   `json:"after_points,omitempty"`
	AfterID     string `json:"after_id,omitempty"`
	Offset      int    `json:"offset"`
}

func (c Cursor) position() *profile.Position {
	if c.AfterPoints == nil {
		return nil
	}
	return &profile.Position{Points: *c.AfterPoints, ID: c.AfterID}
}

// Page is one page of the leaderboard. Next is nil on the last page.
type Page struct {
	Entries []Entry `json:"entries"`
	Next    *Cursor `json:"next,omitempty"`
}

// Service handles leaderboard generation and user statistics.
type Service struct {
	profiles    ProfileRepository
	scores      ScoreRepository
	pageSize    int
	maxPageSize int
	log         *logger.Logger
}

// NewService creates a new leaderboard service with concrete repository types.
func NewService(
	profiles *profile.CachedRepository,
	scores *repository.GameScoreRepository,
	cfg *config.LeaderboardConfig,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(profiles, scores, cfg, log)
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	profiles ProfileRepository,
	scores ScoreRepository,
	cfg *config.LeaderboardConfig,
	log *logger.Logger,
) *Service {
	s := &Service{profiles: profiles, scores: scores, pageSize: 20, maxPageSize: 100, log: log}
	if cfg != nil {
		if cfg.PageSize > 0 {
			s.pageSize = cfg.PageSize
		}
		if cfg.MaxPageSize > 0 {
			s.maxPageSize = cfg.MaxPageSize
		}
	}
	return s
}

// PageSize returns the default number of entries per page.
func (s *Service) PageSize() int { return s.pageSize }

// Page returns up to limit entries by total points descending. Ranks are
// positions in the listing (offset + index + 1), not recomputed globally:
// points changing between two page reads can repeat or skip a rank.
func (s *Service) Page(ctx context.Context, limit int, cur Cursor) (*Page, error) {
	if limit <= 0 {
		limit = s.pageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	if cur.Offset < 0 {
		cur.Offset = 0
	}

	profiles, err := s.profiles.ListByPoints(ctx, limit, cur.position())
	if err != nil {
		metrics.RecordLeaderboardQuery("error")
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	metrics.RecordLeaderboardQuery("ok")

	page := &Page{Entries: make([]Entry, 0, len(profiles))}
	for i, p := range profiles {
		page.Entries = append(page.Entries, Entry{
			Rank:       cur.Offset + i + 1,
			UserID:     p.ID,
			Name:       p.DisplayName,
			Email:      p.Email,
			Points:     p.TotalPoints,
			BadgeCount: len(p.Badges),
			Level:      p.Level,
		})
	}

	if len(profiles) == limit {
		last := profiles[len(profiles)-1]
		points := last.TotalPoints
		page.Next = &Cursor{AfterPoints: &points, AfterID: last.ID, Offset: cur.Offset + len(profiles)}
	}
	return page, nil
}

// Top returns the first n entries.
func (s *Service) Top(ctx context.Context, n int) ([]Entry, error) {
	page, err := s.Page(ctx, n, Cursor{})
	if err != nil {
		return nil, err
	}
	return page.Entries, nil
}

// GetUserRank walks the leaderboard until it finds userID.
func (s *Service) GetUserRank(ctx context.Context, userID string) (int, error) {
	cur := Cursor{}
	for {
		page, err := s.Page(ctx, s.maxPageSize, cur)
		if err != nil {
			return 0, err
		}
		for _, e := range page.Entries {
			if e.UserID == userID {
				return e.Rank, nil
			}
		}
		if page.Next == nil {
			return 0, ErrNotRanked
		}
		cur = *page.Next
	}
}
