package mocks

import (
	"context"
	"time"

	"github.com/aimd54/planet-heroes/internal/profile"
)

// MockProfileRepository is a profile.Repository whose methods can be
// overridden one by one. Methods without an override delegate to Inner.
type MockProfileRepository struct {
	Inner profile.Repository

	GetFunc             func(ctx context.Context, id string) (*profile.Profile, error)
	CreateFunc          func(ctx context.Context, p *profile.Profile) error
	IncrementPointsFunc func(ctx context.Context, id string, delta int, at time.Time) (*profile.Profile, error)
	TouchFunc           func(ctx context.Context, id string, at time.Time) error
	AddBadgesFunc       func(ctx context.Context, id string, badges ...string) error
	ListByPointsFunc    func(ctx context.Context, limit int, after *profile.Position) ([]profile.Profile, error)
	ListByRoleFunc      func(ctx context.Context, role profile.Role) ([]profile.Profile, error)
}

// NewMockProfileRepository creates a mock backed by an in-memory repository.
func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{Inner: profile.NewMemoryRepository()}
}

func (m *MockProfileRepository) Get(ctx context.Context, id string) (*profile.Profile, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return m.Inner.Get(ctx, id)
}

func (m *MockProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	return m.Inner.Create(ctx, p)
}

func (m *MockProfileRepository) IncrementPoints(ctx context.Context, id string, delta int, at time.Time) (*profile.Profile, error) {
	if m.IncrementPointsFunc != nil {
		return m.IncrementPointsFunc(ctx, id, delta, at)
	}
	return m.Inner.IncrementPoints(ctx, id, delta, at)
}

func (m *MockProfileRepository) Touch(ctx context.Context, id string, at time.Time) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, id, at)
	}
	return m.Inner.Touch(ctx, id, at)
}

func (m *MockProfileRepository) AddBadges(ctx context.Context, id string, badges ...string) error {
	if m.AddBadgesFunc != nil {
		return m.AddBadgesFunc(ctx, id, badges...)
	}
	return m.Inner.AddBadges(ctx, id, badges...)
}

func (m *MockProfileRepository) ListByPoints(ctx context.Context, limit int, after *profile.Position) ([]profile.Profile, error) {
	if m.ListByPointsFunc != nil {
		return m.ListByPointsFunc(ctx, limit, after)
	}
	return m.Inner.ListByPoints(ctx, limit, after)
}

func (m *MockProfileRepository) ListByRole(ctx context.Context, role profile.Role) ([]profile.Profile, error) {
	if m.ListByRoleFunc != nil {
		return m.ListByRoleFunc(ctx, role)
	}
	return m.Inner.ListByRole(ctx, role)
}
