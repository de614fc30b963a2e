package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aimd54/planet-heroes/internal/auth"
	"github.com/aimd54/planet-heroes/internal/cache"
	"github.com/aimd54/planet-heroes/internal/models"
	"github.com/aimd54/planet-heroes/internal/profile"
	"github.com/aimd54/planet-heroes/internal/repository"
	"github.com/aimd54/planet-heroes/pkg/logger"
	"github.com/aimd54/planet-heroes/test/mocks"
	"github.com/aimd54/planet-heroes/test/testdb"
)

var ada = auth.Identity{UserID: "u1", Email: "ada@school.test", Name: "Ada"}

type fixture struct {
	remote  *mocks.MockProfileRepository
	overlay *profile.Overlay
	users   *repository.UserRepository
	mgr     *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	remote := mocks.NewMockProfileRepository()
	overlay := profile.NewOverlay(cache.NewWithClient(client), time.Hour)
	users := repository.NewUserRepository(testdb.New(t))
	repo := profile.NewCachedRepository(remote, overlay, logger.Nop())

	mgr := NewManager(repo, users, logger.Nop())
	mgr.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return &fixture{remote: remote, overlay: overlay, users: users, mgr: mgr}
}

func TestSignIn_CreatesProfileInBothStores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.mgr.SignIn(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, profile.SourceDefault, s.Source)
	assert.Equal(t, profile.RoleStudent, s.Profile.Role)
	assert.Equal(t, 0, s.Profile.TotalPoints)
	assert.Empty(t, s.Profile.Badges)
	assert.Equal(t, 1, s.Profile.Level)

	stored, err := f.remote.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", stored.DisplayName)

	mirrored, err := f.users.GetByID("u1")
	require.NoError(t, err)
	assert.Equal(t, "ada@school.test", mirrored.Email)
	assert.Equal(t, "student", mirrored.Role)

	assert.Equal(t, 1, f.mgr.Count())
}

func TestSignIn_ExistingProfileIsTouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := profile.Default("u1", "ada@school.test", "Ada", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	old.TotalPoints = 300
	old.Badges = []string{"water_saver"}
	require.NoError(t, f.remote.Create(ctx, old))

	s, err := f.mgr.SignIn(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, profile.SourceRemote, s.Source)
	assert.Equal(t, 300, s.Profile.TotalPoints)

	stored, err := f.remote.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, f.mgr.now(), stored.LastActive)
}

func TestSignIn_OfflineFallsBackToOverlay(t *testing.T) {
	f := newFixture(t)
	offline := status.Error(codes.Unavailable, "offline")
	f.remote.GetFunc = func(context.Context, string) (*profile.Profile, error) { return nil, offline }

	s, err := f.mgr.SignIn(context.Background(), ada)
	require.NoError(t, err)
	assert.Equal(t, profile.SourceDefault, s.Source)

	ov, ok, err := f.overlay.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ada", ov.DisplayName)
}

func TestSignIn_RejectedStoreErrorFails(t *testing.T) {
	f := newFixture(t)
	f.remote.GetFunc = func(context.Context, string) (*profile.Profile, error) {
		return nil, status.Error(codes.PermissionDenied, "denied")
	}

	_, err := f.mgr.SignIn(context.Background(), ada)
	assert.Error(t, err)
	assert.Equal(t, 0, f.mgr.Count())
}

func TestSignIn_MirrorFailureIsNotFatal(t *testing.T) {
	remote := mocks.NewMockProfileRepository()
	mgr := NewManager(profile.NewCachedRepository(remote, nil, logger.Nop()), failingMirror{}, logger.Nop())

	_, err := mgr.SignIn(context.Background(), ada)
	require.NoError(t, err)
}

type failingMirror struct{}

func (failingMirror) Upsert(*models.User) error { return errors.New("postgres down") }

func TestSignOut_DiscardsOverlayAndSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mgr.SignIn(ctx, ada)
	require.NoError(t, err)
	require.NoError(t, f.overlay.Put(ctx, profile.Default("u1", "", "", time.Now())))

	f.mgr.SignOut(ctx, "u1")

	_, ok := f.mgr.Current("u1")
	assert.False(t, ok)
	_, ok, err = f.overlay.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCurrent_ReturnsCopy(t *testing.T) {
	f := newFixture(t)
	_, err := f.mgr.SignIn(context.Background(), ada)
	require.NoError(t, err)

	s, ok := f.mgr.Current("u1")
	require.True(t, ok)
	s.Profile.Badges = append(s.Profile.Badges, "tampered")

	again, _ := f.mgr.Current("u1")
	assert.Empty(t, again.Profile.Badges)
}

func TestRefreshAndRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.mgr.SignIn(ctx, ada)
	require.NoError(t, err)

	updated := s.Profile.Clone()
	updated.TotalPoints = 55
	updated.Role = profile.RoleTeacher
	f.mgr.Refresh(updated)

	got, _ := f.mgr.Current("u1")
	assert.Equal(t, 55, got.Profile.TotalPoints)

	role, err := f.mgr.Role(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "teacher", role)

	teacher := profile.Default("t9", "", "", time.Now())
	teacher.Role = profile.RoleTeacher
	require.NoError(t, f.remote.Create(ctx, teacher))
	role, err = f.mgr.Role(ctx, "t9")
	require.NoError(t, err)
	assert.Equal(t, "teacher", role)

	_, err = f.mgr.Role(ctx, "ghost")
	assert.ErrorIs(t, err, profile.ErrNotFound)
}

func TestRun_AppliesEventsAndTearsDown(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event)
	errc := make(chan error, 1)
	go func() { errc <- f.mgr.Run(ctx, events) }()

	events <- Event{Kind: SignedIn, Identity: ada}
	events <- Event{Kind: SignedIn, Identity: auth.Identity{UserID: "u2"}}
	events <- Event{Kind: SignedOut, Identity: auth.Identity{UserID: "u2"}}
	// unbuffered sends above guarantee the events were received; this one
	// guarantees the previous one was applied
	events <- Event{Kind: "bogus"}

	_, ok := f.mgr.Current("u1")
	assert.True(t, ok)
	_, ok = f.mgr.Current("u2")
	assert.False(t, ok)

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Equal(t, 0, f.mgr.Count())
}

func TestRun_ReturnsWhenEventsClosed(t *testing.T) {
	f := newFixture(t)
	events := make(chan Event)
	close(events)
	assert.NoError(t, f.mgr.Run(context.Background(), events))
}
