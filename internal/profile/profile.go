// Package profile stores player profiles in the primary document store and
// keeps a local overlay copy for when that store cannot be reached.
package profile

import (
	"context"
	"errors"
	"net"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Role is a user's role.
type Role string

// Roles.
const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// PointsPerLevel is the number of points between two levels.
const PointsPerLevel = 250

var (
	// ErrNotFound is returned when no profile exists for an id.
	ErrNotFound = errors.New("profile not found")
	// ErrConflict is returned when creating a profile that already exists.
	ErrConflict = errors.New("profile already exists")
	// ErrUnavailable marks a failure to reach a store.
	ErrUnavailable = errors.New("profile store unavailable")
)

// Profile is a player's persistent record.
type Profile struct {
	ID          string    `firestore:"uid" json:"id"`
	Email       string    `firestore:"email" json:"email"`
	DisplayName string    `firestore:"displayName" json:"display_name"`
	PhotoURL    string    `firestore:"photoURL,omitempty" json:"photo_url,omitempty"`
	Role        Role      `firestore:"role" json:"role"`
	TotalPoints int       `firestore:"totalPoints" json:"total_points"`
	Badges      []string  `firestore:"badges" json:"badges"`
	Level       int       `firestore:"level" json:"level"`
	CreatedAt   time.Time `firestore:"createdAt" json:"created_at"`
	LastActive  time.Time `firestore:"lastActive" json:"last_active"`
}

// HasBadge reports whether the profile holds a badge.
func (p *Profile) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Badges = append([]string(nil), p.Badges...)
	return &c
}

// Default returns the profile created on first sign-in.
func Default(id, email, name string, now time.Time) *Profile {
	return &Profile{
		ID:          id,
		Email:       email,
		DisplayName: name,
		Role:        RoleStudent,
		TotalPoints: 0,
		Badges:      []string{},
		Level:       1,
		CreatedAt:   now,
		LastActive:  now,
	}
}

// LevelFor derives the level from total points.
func LevelFor(points int) int {
	if points < 0 {
		points = 0
	}
	return 1 + points/PointsPerLevel
}

// Position is a place in the points listing. ID breaks ties between equal
// totals in ascending order.
type Position struct {
	Points int
	ID     string
}

// Repository is the primary document store of profiles.
type Repository interface {
	Get(ctx context.Context, id string) (*Profile, error)
	Create(ctx context.Context, p *Profile) error
	// IncrementPoints adds delta to the total, refreshes the level and the
	// last-active time, and returns the updated profile.
	IncrementPoints(ctx context.Context, id string, delta int, at time.Time) (*Profile, error)
	Touch(ctx context.Context, id string, at time.Time) error
	// AddBadges is an atomic set union on the badge list.
	AddBadges(ctx context.Context, id string, badges ...string) error
	// ListByPoints returns up to limit profiles by total points descending,
	// ties broken by id ascending, starting strictly after the given position
	// when after is non-nil.
	ListByPoints(ctx context.Context, limit int, after *Position) ([]Profile, error)
	ListByRole(ctx context.Context, role Role) ([]Profile, error)
}

// IsUnavailable reports whether err means the store could not be reached,
// as opposed to a rejected request.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.FailedPrecondition:
		return true
	}
	return false
}
