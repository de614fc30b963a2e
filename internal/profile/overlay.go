package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aimd54/planet-heroes/internal/cache"
)

const overlayKeyPrefix = "overlay:profile:"

// Overlay is the local copy of a profile kept while the primary store is
// unreachable. Entries expire after a TTL.
type Overlay struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewOverlay creates an overlay on a cache.
func NewOverlay(c cache.Cache, ttl time.Duration) *Overlay {
	return &Overlay{cache: c, ttl: ttl}
}

func overlayKey(id string) string {
	return overlayKeyPrefix + id
}

// Get returns the overlay copy for id. The boolean is false when no copy exists.
func (o *Overlay) Get(ctx context.Context, id string) (*Profile, bool, error) {
	raw, err := o.cache.Get(ctx, overlayKey(id))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read overlay: %w", err)
	}
	if raw == "" {
		return nil, false, nil
	}
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false, fmt.Errorf("failed to decode overlay profile: %w", err)
	}
	return &p, true, nil
}

// Put stores a copy of p.
func (o *Overlay) Put(ctx context.Context, p *Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode overlay profile: %w", err)
	}
	if err := o.cache.Set(ctx, overlayKey(p.ID), string(data), o.ttl); err != nil {
		return fmt.Errorf("failed to write overlay: %w", err)
	}
	return nil
}

// Discard drops the copy for id.
func (o *Overlay) Discard(ctx context.Context, id string) error {
	if err := o.cache.Del(ctx, overlayKey(id)); err != nil {
		return fmt.Errorf("failed to discard overlay: %w", err)
	}
	return nil
}
