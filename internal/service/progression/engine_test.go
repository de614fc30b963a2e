package progression

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aimd54/planet-heroes/internal/auth"
	"github.com/aimd54/planet-heroes/internal/facts"
	"github.com/aimd54/planet-heroes/internal/game"
	"github.com/aimd54/planet-heroes/internal/metrics"
	"github.com/aimd54/planet-heroes/internal/models"
	"github.com/aimd54/planet-heroes/internal/profile"
	"github.com/aimd54/planet-heroes/internal/repository"
	"github.com/aimd54/planet-heroes/internal/service/badges"
	"github.com/aimd54/planet-heroes/internal/session"
	"github.com/aimd54/planet-heroes/pkg/logger"
	"github.com/aimd54/planet-heroes/test/mocks"
	"github.com/aimd54/planet-heroes/test/testdb"
)

var student = &auth.Identity{UserID: "u1", Email: "ada@school.test", Name: "Ada"}

type fixture struct {
	remote   *mocks.MockProfileRepository
	sessions *session.Manager
	users    *repository.UserRepository
	scores   *repository.GameScoreRepository
	engine   *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.New(t)
	remote := mocks.NewMockProfileRepository()
	cached := profile.NewCachedRepository(remote, nil, logger.Nop())
	users := repository.NewUserRepository(db)
	scores := repository.NewGameScoreRepository(db)
	sessions := session.NewManager(cached, users, logger.Nop())
	catalog := facts.Default().WithSource(rand.NewSource(1))

	return &fixture{
		remote:   remote,
		sessions: sessions,
		users:    users,
		scores:   scores,
		engine:   NewEngine(cached, sessions, users, scores, catalog, logger.Nop()),
	}
}

// signIn opens a session for the student holding the given badges.
func (f *fixture) signIn(t *testing.T, held ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.sessions.SignIn(ctx, *student)
	require.NoError(t, err)
	if len(held) > 0 {
		require.NoError(t, f.remote.AddBadges(ctx, student.UserID, held...))
		require.NoError(t, f.users.SetBadges(student.UserID, held))
	}
}

func isFact(n Notice) bool {
	if n.Kind != NoticeFact {
		return false
	}
	for _, fact := range facts.Default().All() {
		if fact.Title == n.Title {
			return true
		}
	}
	return false
}

func TestComplete_GuestPersistsNothing(t *testing.T) {
	f := newFixture(t)

	for _, typ := range game.AllTypes() {
		out, err := f.engine.Complete(context.Background(), nil, typ, 500)
		require.NoError(t, err)
		assert.True(t, out.Guest)
		assert.Empty(t, out.Earned)
		assert.True(t, isFact(out.Notice))
	}

	list, err := f.remote.ListByPoints(context.Background(), 10, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
	count, err := f.scores.CountSince(time.Time{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestComplete_RejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Complete(context.Background(), student, game.WasteSorting, -1)
	assert.ErrorIs(t, err, ErrInvalidScore)

	_, err = f.engine.Complete(context.Background(), student, game.Type("chess"), 10)
	assert.ErrorIs(t, err, game.ErrUnknownGame)
}

func TestComplete_WasteSortingAwardsBadgeOnce(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	ctx := context.Background()

	out, err := f.engine.Complete(ctx, student, game.WasteSorting, 55)
	require.NoError(t, err)
	assert.False(t, out.Guest)
	assert.Equal(t, 55, out.TotalPoints)
	assert.Equal(t, []string{"waste_warrior"}, out.Badges)
	require.Len(t, out.Earned, 1)
	assert.Equal(t, badges.WasteWarrior, out.Earned[0].ID)
	assert.Equal(t, NoticeBadge, out.Notice.Kind)

	out, err = f.engine.Complete(ctx, student, game.WasteSorting, 55)
	require.NoError(t, err)
	assert.Equal(t, 110, out.TotalPoints)
	assert.Empty(t, out.Earned)
	assert.True(t, isFact(out.Notice))

	stored, err := f.remote.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 110, stored.TotalPoints)
	assert.Equal(t, []string{"waste_warrior"}, stored.Badges)

	mirrored, err := f.users.GetByID("u1")
	require.NoError(t, err)
	assert.Equal(t, 110, mirrored.TotalPoints)
	assert.Equal(t, []string{"waste_warrior"}, mirrored.Badges)

	records, err := f.scores.GetByUser("u1", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	var withBadge int
	for _, r := range records {
		if r.BadgeEarned != nil {
			withBadge++
			assert.Equal(t, "waste_warrior", *r.BadgeEarned)
		}
	}
	assert.Equal(t, 1, withBadge)

	s, ok := f.sessions.Current("u1")
	require.True(t, ok)
	assert.Equal(t, 110, s.Profile.TotalPoints)
}

func TestComplete_ZeroScoreStillCounts(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	out, err := f.engine.Complete(context.Background(), student, game.WaterSaver, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, out.TotalPoints)
	assert.Equal(t, 1, out.Level)

	records, err := f.scores.GetByUser("u1", 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestComplete_ThirdBadgeUnlocksPlanetProtector(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "water_saver", "green_thumb")

	out, err := f.engine.Complete(context.Background(), student, game.OceanCleanup, 90)
	require.NoError(t, err)

	ids := make([]badges.ID, 0, len(out.Earned))
	for _, b := range out.Earned {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []badges.ID{badges.OceanGuardian, badges.PlanetProtector}, ids)
	assert.Contains(t, out.Notice.Title, "Planet Protector")

	stored, err := f.remote.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"water_saver", "green_thumb", "ocean_guardian", "planet_protector"}, stored.Badges)
}

func TestComplete_FifthBadgeUnlocksEcoChampion(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "water_saver", "green_thumb", "planet_protector", "ocean_guardian")

	out, err := f.engine.Complete(context.Background(), student, game.CarbonFootprint, 160)
	require.NoError(t, err)

	ids := make([]badges.ID, 0, len(out.Earned))
	for _, b := range out.Earned {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []badges.ID{badges.ClimateChampion, badges.EcoChampion}, ids)
	assert.Contains(t, out.Notice.Title, "Eco Champion")
}

func TestComplete_PrimaryFailureDoesNotBlockOtherWrites(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	metrics.ProgressionStoreFailuresTotal.Reset()

	f.remote.IncrementPointsFunc = func(context.Context, string, int, time.Time) (*profile.Profile, error) {
		return nil, errors.New("write rejected")
	}

	out, err := f.engine.Complete(context.Background(), student, game.WasteSorting, 60)
	require.NoError(t, err)
	assert.Equal(t, 60, out.TotalPoints)
	assert.Len(t, out.Earned, 1)

	stored, err := f.remote.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.TotalPoints)
	assert.Equal(t, []string{"waste_warrior"}, stored.Badges)

	mirrored, err := f.users.GetByID("u1")
	require.NoError(t, err)
	assert.Equal(t, 60, mirrored.TotalPoints)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ProgressionStoreFailuresTotal.WithLabelValues("firestore", "increment_points")))
}

func TestComplete_UnreadableProfileUsesSessionBadges(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "waste_warrior")
	// the session was opened before the badge was added remotely
	s, _ := f.sessions.Current("u1")
	s.Profile.Badges = []string{"waste_warrior"}
	f.sessions.Refresh(s.Profile)

	f.remote.GetFunc = func(context.Context, string) (*profile.Profile, error) {
		return nil, status.Error(codes.Internal, "read failed")
	}

	out, err := f.engine.Complete(context.Background(), student, game.WasteSorting, 90)
	require.NoError(t, err)
	assert.Empty(t, out.Earned)
}

type failingScores struct{}

func (failingScores) Create(*models.GameScore) error { return errors.New("insert failed") }

func TestComplete_ScoreInsertFailureIsLoggedOnly(t *testing.T) {
	remote := mocks.NewMockProfileRepository()
	require.NoError(t, remote.Create(context.Background(), profile.Default("u1", "", "", time.Now())))
	metrics.ProgressionStoreFailuresTotal.Reset()

	engine := NewEngineWithInterfaces(remote, nil, nil, failingScores{}, facts.Default(), logger.Nop())
	out, err := engine.Complete(context.Background(), student, game.PlantTree, 175)
	require.NoError(t, err)
	assert.Equal(t, 175, out.TotalPoints)
	assert.Equal(t, []string{"green_thumb"}, out.Badges)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ProgressionStoreFailuresTotal.WithLabelValues("postgres", "insert_score")))
}

func TestHandleCompletion(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	guest, ok := f.engine.HandleCompletion(context.Background(), game.Completion{Game: game.WaterSaver, Score: 30}).(Outcome)
	require.True(t, ok)
	assert.True(t, guest.Guest)

	player, ok := f.engine.HandleCompletion(context.Background(), game.Completion{UserID: "u1", Game: game.WaterSaver, Score: 30}).(Outcome)
	require.True(t, ok)
	assert.False(t, player.Guest)
	assert.Equal(t, 30, player.TotalPoints)
	require.Len(t, player.Earned, 1)
	assert.Equal(t, badges.WaterSaver, player.Earned[0].ID)

	assert.Nil(t, f.engine.HandleCompletion(context.Background(), game.Completion{UserID: "u1", Game: "chess"}))
}

func TestComplete_FirstRoundWithoutSessionSignsIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.engine.Complete(ctx, student, game.WasteSorting, 60)
	require.NoError(t, err)
	assert.Equal(t, 60, out.TotalPoints)
	require.Len(t, out.Earned, 1)

	stored, err := f.remote.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 60, stored.TotalPoints)
	assert.Equal(t, "Ada", stored.DisplayName)
	assert.Equal(t, []string{"waste_warrior"}, stored.Badges)

	s, ok := f.sessions.Current("u1")
	require.True(t, ok)
	assert.Equal(t, 60, s.Profile.TotalPoints)

	mirrored, err := f.users.GetByID("u1")
	require.NoError(t, err)
	assert.Equal(t, 60, mirrored.TotalPoints)

	count, err := f.scores.CountSince(time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestComplete_FirstRoundWithoutSessionsCreatesProfile(t *testing.T) {
	remote := mocks.NewMockProfileRepository()
	engine := NewEngineWithInterfaces(remote, nil, nil, nil, facts.Default(), logger.Nop())

	out, err := engine.Complete(context.Background(), student, game.WaterSaver, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, out.TotalPoints)

	stored, err := remote.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 40, stored.TotalPoints)
	assert.Equal(t, []string{"water_saver"}, stored.Badges)
}
