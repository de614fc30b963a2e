package profile

import (
	"context"
	"errors"
	"time"

	"github.com/aimd54/planet-heroes/internal/metrics"
	"github.com/aimd54/planet-heroes/pkg/logger"
)

// Source tells where a loaded profile came from.
type Source string

// Profile sources.
const (
	SourceRemote  Source = "remote"
	SourceOverlay Source = "overlay"
	SourceDefault Source = "default"
)

// CachedRepository reads and writes the primary store and falls back to the
// local overlay while the store is unavailable. Once a remote read succeeds
// the overlay copy is discarded: the remote profile always wins.
type CachedRepository struct {
	remote  Repository
	overlay *Overlay
	log     *logger.Logger
}

// NewCachedRepository wraps a primary repository. overlay may be nil, in
// which case store failures are returned as they are.
func NewCachedRepository(remote Repository, overlay *Overlay, log *logger.Logger) *CachedRepository {
	return &CachedRepository{remote: remote, overlay: overlay, log: log}
}

// Get returns the remote profile, or the overlay copy when the store is
// unavailable.
func (c *CachedRepository) Get(ctx context.Context, id string) (*Profile, error) {
	p, err := c.remote.Get(ctx, id)
	if err == nil {
		c.reconcile(ctx, id)
		return p, nil
	}
	if !IsUnavailable(err) || c.overlay == nil {
		return nil, err
	}
	if ov, ok := c.fromOverlay(ctx, id); ok {
		metrics.RecordOverlayFallback("get")
		return ov, nil
	}
	return nil, err
}

// Load resolves the profile for a signed-in user. When the store is
// unavailable and no overlay copy exists, a default profile is written to
// the overlay and returned. ErrNotFound means the caller should create it.
func (c *CachedRepository) Load(ctx context.Context, id, email, name string, now time.Time) (*Profile, Source, error) {
	p, err := c.remote.Get(ctx, id)
	switch {
	case err == nil:
		c.reconcile(ctx, id)
		return p, SourceRemote, nil
	case errors.Is(err, ErrNotFound):
		return nil, SourceRemote, ErrNotFound
	case !IsUnavailable(err) || c.overlay == nil:
		return nil, SourceRemote, err
	}

	c.log.Warn().Err(err).Str("user_id", id).Msg("Profile store unavailable, using local overlay")
	if ov, ok := c.fromOverlay(ctx, id); ok {
		metrics.RecordOverlayFallback("load")
		return ov, SourceOverlay, nil
	}

	def := Default(id, email, name, now)
	if err := c.overlay.Put(ctx, def); err != nil {
		c.log.Error().Err(err).Str("user_id", id).Msg("Failed to write default profile to overlay")
	}
	metrics.RecordOverlayFallback("default")
	return def, SourceDefault, nil
}

// Create writes a new profile. If the store is unavailable the profile is
// kept in the overlay and the store error is returned.
func (c *CachedRepository) Create(ctx context.Context, p *Profile) error {
	err := c.remote.Create(ctx, p)
	if err != nil && IsUnavailable(err) && c.overlay != nil {
		c.putOverlay(ctx, p)
	}
	return err
}

// IncrementPoints adds points remotely. While the store is unavailable the
// overlay copy, if any, is updated so the player keeps seeing progress.
func (c *CachedRepository) IncrementPoints(ctx context.Context, id string, delta int, at time.Time) (*Profile, error) {
	p, err := c.remote.IncrementPoints(ctx, id, delta, at)
	if err == nil || !IsUnavailable(err) {
		return p, err
	}
	c.updateOverlay(ctx, id, func(ov *Profile) {
		ov.TotalPoints += delta
		ov.Level = LevelFor(ov.TotalPoints)
		ov.LastActive = at
	})
	return nil, err
}

// Touch refreshes last-active remotely, mirroring into the overlay while the
// store is unavailable.
func (c *CachedRepository) Touch(ctx context.Context, id string, at time.Time) error {
	err := c.remote.Touch(ctx, id, at)
	if err != nil && IsUnavailable(err) {
		c.updateOverlay(ctx, id, func(ov *Profile) { ov.LastActive = at })
	}
	return err
}

// AddBadges adds badges remotely, mirroring into the overlay while the store
// is unavailable.
func (c *CachedRepository) AddBadges(ctx context.Context, id string, badges ...string) error {
	err := c.remote.AddBadges(ctx, id, badges...)
	if err != nil && IsUnavailable(err) {
		c.updateOverlay(ctx, id, func(ov *Profile) {
			for _, b := range badges {
				if !ov.HasBadge(b) {
					ov.Badges = append(ov.Badges, b)
				}
			}
		})
	}
	return err
}

// ListByPoints reads the primary store only.
func (c *CachedRepository) ListByPoints(ctx context.Context, limit int, after *Position) ([]Profile, error) {
	return c.remote.ListByPoints(ctx, limit, after)
}

// ListByRole reads the primary store only.
func (c *CachedRepository) ListByRole(ctx context.Context, role Role) ([]Profile, error) {
	return c.remote.ListByRole(ctx, role)
}

// Forget drops the overlay copy for id, e.g. on sign-out.
func (c *CachedRepository) Forget(ctx context.Context, id string) {
	c.reconcile(ctx, id)
}

func (c *CachedRepository) reconcile(ctx context.Context, id string) {
	if c.overlay == nil {
		return
	}
	if err := c.overlay.Discard(ctx, id); err != nil {
		c.log.Debug().Err(err).Str("user_id", id).Msg("Failed to discard overlay profile")
	}
}

func (c *CachedRepository) fromOverlay(ctx context.Context, id string) (*Profile, bool) {
	ov, ok, err := c.overlay.Get(ctx, id)
	if err != nil {
		c.log.Error().Err(err).Str("user_id", id).Msg("Failed to read overlay profile")
		return nil, false
	}
	return ov, ok
}

func (c *CachedRepository) putOverlay(ctx context.Context, p *Profile) {
	if err := c.overlay.Put(ctx, p); err != nil {
		c.log.Error().Err(err).Str("user_id", p.ID).Msg("Failed to write overlay profile")
	}
}

func (c *CachedRepository) updateOverlay(ctx context.Context, id string, mutate func(*Profile)) {
	if c.overlay == nil {
		return
	}
	ov, ok := c.fromOverlay(ctx, id)
	if !ok {
		return
	}
	mutate(ov)
	c.putOverlay(ctx, ov)
}
