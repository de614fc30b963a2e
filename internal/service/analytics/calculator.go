package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/aimd54/planet-heroes/internal/profile"
)

// CalculateAverageScore returns the mean total points, rounded half up.
// Returns 0 for an empty class.
func CalculateAverageScore(students []profile.Profile) int {
	if len(students) == 0 {
		return 0
	}
	total := 0
	for _, s := range students {
		total += s.TotalPoints
	}
	return int(math.Floor(float64(total)/float64(len(students)) + 0.5))
}

// CalculateTotalBadges counts every badge held across the class.
func CalculateTotalBadges(students []profile.Profile) int {
	total := 0
	for _, s := range students {
		total += len(s.Badges)
	}
	return total
}

// CountActiveSince counts students whose last activity is after since.
func CountActiveSince(students []profile.Profile, since time.Time) int {
	n := 0
	for _, s := range students {
		if s.LastActive.After(since) {
			n++
		}
	}
	return n
}

// RankByPoints returns students by total points descending with their rank.
// n <= 0 returns everyone.
func RankByPoints(students []profile.Profile, n int) []StudentSummary {
	sorted := make([]profile.Profile, len(students))
	copy(sorted, students)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalPoints > sorted[j].TotalPoints
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}

	out := make([]StudentSummary, 0, len(sorted))
	for i, s := range sorted {
		level := s.Level
		if level == 0 {
			level = 1
		}
		out = append(out, StudentSummary{
			Rank:        i + 1,
			UserID:      s.ID,
			Name:        s.DisplayName,
			Email:       s.Email,
			TotalPoints: s.TotalPoints,
			BadgeCount:  len(s.Badges),
			Level:       level,
			LastActive:  s.LastActive,
		})
	}
	return out
}
