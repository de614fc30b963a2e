package profile

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryRepository implements Repository in process memory. It backs local
// development and tests.
type memoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{profiles: make(map[string]*Profile)}
}

func (r *memoryRepository) Get(_ context.Context, id string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (r *memoryRepository) Create(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[p.ID]; ok {
		return ErrConflict
	}
	r.profiles[p.ID] = p.Clone()
	return nil
}

func (r *memoryRepository) IncrementPoints(_ context.Context, id string, delta int, at time.Time) (*Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.TotalPoints += delta
	p.Level = LevelFor(p.TotalPoints)
	p.LastActive = at
	return p.Clone(), nil
}

func (r *memoryRepository) Touch(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.LastActive = at
	return nil
}

func (r *memoryRepository) AddBadges(_ context.Context, id string, badges ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		return ErrNotFound
	}
	for _, b := range badges {
		if !p.HasBadge(b) {
			p.Badges = append(p.Badges, b)
		}
	}
	return nil
}

func (r *memoryRepository) ListByPoints(_ context.Context, limit int, after *Position) ([]Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		if after != nil && !after.before(p) {
			continue
		}
		all = append(all, *p.Clone())
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].TotalPoints != all[j].TotalPoints {
			return all[i].TotalPoints > all[j].TotalPoints
		}
		return all[i].ID < all[j].ID
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memoryRepository) ListByRole(_ context.Context, role Role) ([]Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Profile
	for _, p := range r.profiles {
		if p.Role == role {
			out = append(out, *p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// before reports whether p sorts strictly after pos in the listing.
func (pos *Position) before(p *Profile) bool {
	if p.TotalPoints != pos.Points {
		return p.TotalPoints < pos.Points
	}
	return p.ID > pos.ID
}
