package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aimd54/planet-heroes/internal/cache"
	"github.com/aimd54/planet-heroes/internal/profile"
	"github.com/aimd54/planet-heroes/pkg/logger"
	"github.com/aimd54/planet-heroes/test/mocks"
)

var errOffline = status.Error(codes.Unavailable, "the client is offline")

type fixture struct {
	remote  *mocks.MockProfileRepository
	overlay *profile.Overlay
	repo    *profile.CachedRepository
	mr      *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	remote := mocks.NewMockProfileRepository()
	overlay := profile.NewOverlay(cache.NewWithClient(client), time.Hour)
	return &fixture{
		remote:  remote,
		overlay: overlay,
		repo:    profile.NewCachedRepository(remote, overlay, logger.New("debug", "text", "stdout")),
		mr:      mr,
	}
}

func (f *fixture) goOffline() {
	f.remote.GetFunc = func(context.Context, string) (*profile.Profile, error) { return nil, errOffline }
	f.remote.CreateFunc = func(context.Context, *profile.Profile) error { return errOffline }
	f.remote.IncrementPointsFunc = func(context.Context, string, int, time.Time) (*profile.Profile, error) {
		return nil, errOffline
	}
	f.remote.TouchFunc = func(context.Context, string, time.Time) error { return errOffline }
	f.remote.AddBadgesFunc = func(context.Context, string, ...string) error { return errOffline }
}

func (f *fixture) goOnline() {
	*f.remote = mocks.MockProfileRepository{Inner: f.remote.Inner}
}

func TestOverlay_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, ok, err := f.overlay.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	p := profile.Default("u1", "ada@school.test", "Ada", time.Now().UTC())
	p.Badges = []string{"water_saver"}
	require.NoError(t, f.overlay.Put(ctx, p))
	assert.True(t, f.mr.Exists("overlay:profile:u1"))

	got, ok, err := f.overlay.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p.Badges, got.Badges)
	assert.Equal(t, p.Email, got.Email)

	require.NoError(t, f.overlay.Discard(ctx, "u1"))
	_, ok, err = f.overlay.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachedRepository_LoadOfflineWritesDefault(t *testing.T) {
	f := newFixture(t)
	f.goOffline()
	ctx := context.Background()
	now := time.Now().UTC()

	p, src, err := f.repo.Load(ctx, "u1", "ada@school.test", "Ada", now)
	require.NoError(t, err)
	assert.Equal(t, profile.SourceDefault, src)
	assert.Equal(t, profile.RoleStudent, p.Role)
	assert.True(t, f.mr.Exists("overlay:profile:u1"))

	p, src, err = f.repo.Load(ctx, "u1", "ada@school.test", "Ada", now)
	require.NoError(t, err)
	assert.Equal(t, profile.SourceOverlay, src)
	assert.Equal(t, "Ada", p.DisplayName)
}

func TestCachedRepository_OfflineWritesReachOverlay(t *testing.T) {
	f := newFixture(t)
	f.goOffline()
	ctx := context.Background()

	_, _, err := f.repo.Load(ctx, "u1", "ada@school.test", "Ada", time.Now())
	require.NoError(t, err)

	_, err = f.repo.IncrementPoints(ctx, "u1", 60, time.Now())
	assert.True(t, profile.IsUnavailable(err))
	assert.True(t, profile.IsUnavailable(f.repo.AddBadges(ctx, "u1", "waste_warrior")))

	p, err := f.repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 60, p.TotalPoints)
	assert.Equal(t, []string{"waste_warrior"}, p.Badges)
}

func TestCachedRepository_RemoteWinsOnceAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	remoteProfile := profile.Default("u1", "ada@school.test", "Ada", time.Now())
	remoteProfile.TotalPoints = 500
	require.NoError(t, f.remote.Inner.Create(ctx, remoteProfile))

	f.goOffline()
	_, err := f.repo.IncrementPoints(ctx, "u1", 10, time.Now())
	require.Error(t, err)
	_, _, err = f.repo.Load(ctx, "u1", "ada@school.test", "Ada", time.Now())
	require.NoError(t, err)
	require.True(t, f.mr.Exists("overlay:profile:u1"))

	f.goOnline()
	p, err := f.repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 500, p.TotalPoints)
	assert.False(t, f.mr.Exists("overlay:profile:u1"), "overlay must be discarded")
}

func TestCachedRepository_NotFoundIsNotAFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.repo.Load(ctx, "nobody", "", "", time.Now())
	assert.ErrorIs(t, err, profile.ErrNotFound)

	_, err = f.repo.Get(ctx, "nobody")
	assert.ErrorIs(t, err, profile.ErrNotFound)
	assert.False(t, f.mr.Exists("overlay:profile:nobody"))
}

func TestCachedRepository_CreateOfflineKeepsOverlayCopy(t *testing.T) {
	f := newFixture(t)
	f.goOffline()
	ctx := context.Background()

	err := f.repo.Create(ctx, profile.Default("u2", "bo@school.test", "Bo", time.Now()))
	assert.True(t, profile.IsUnavailable(err))
	assert.True(t, f.mr.Exists("overlay:profile:u2"))
}

func TestCachedRepository_NoOverlay(t *testing.T) {
	remote := mocks.NewMockProfileRepository()
	remote.GetFunc = func(context.Context, string) (*profile.Profile, error) { return nil, errOffline }
	repo := profile.NewCachedRepository(remote, nil, logger.Nop())

	_, _, err := repo.Load(context.Background(), "u1", "", "", time.Now())
	assert.ErrorIs(t, err, errOffline)
}

func TestCachedRepository_BrokenOverlayCacheFallsThrough(t *testing.T) {
	remote := mocks.NewMockProfileRepository()
	remote.GetFunc = func(context.Context, string) (*profile.Profile, error) { return nil, errOffline }
	mc := mocks.NewMockCache()
	mc.Err = assert.AnError
	repo := profile.NewCachedRepository(remote, profile.NewOverlay(mc, time.Hour), logger.Nop())

	_, err := repo.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, errOffline)

	p, src, err := repo.Load(context.Background(), "u1", "a@b.c", "A", time.Now())
	require.NoError(t, err)
	assert.Equal(t, profile.SourceDefault, src)
	assert.Equal(t, "u1", p.ID)
}
