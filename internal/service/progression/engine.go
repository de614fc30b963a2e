// Package progression turns completed mini-game rounds into points, badges and
// the message shown to the player.
package progression

import (
	"context"
	"errors"
	"fmt"
	"time"

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
)

// ErrInvalidScore is returned for negative scores.
var ErrInvalidScore = errors.New("score must be a non-negative integer")

// ProfileStore is the primary store of profiles.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*profile.Profile, error)
	Create(ctx context.Context, p *profile.Profile) error
	IncrementPoints(ctx context.Context, id string, delta int, at time.Time) (*profile.Profile, error)
	AddBadges(ctx context.Context, id string, badges ...string) error
}

// SessionCache holds the profiles of signed-in players.
type SessionCache interface {
	SignIn(ctx context.Context, id auth.Identity) (*session.Session, error)
	Current(userID string) (*session.Session, bool)
	Refresh(p *profile.Profile)
}

// UserMirror is the relational copy of profiles.
type UserMirror interface {
	UpdateProgress(id string, totalPoints, level int, lastActive time.Time) error
	SetBadges(id string, badges []string) error
}

// ScoreStore records completed rounds.
type ScoreStore interface {
	Create(score *models.GameScore) error
}

// FactSource supplies eco facts.
type FactSource interface {
	Random() facts.Fact
}

// NoticeKind tells what a notice announces.
type NoticeKind string

// Notice kinds.
const (
	NoticeFact  NoticeKind = "fact"
	NoticeBadge NoticeKind = "badge"
)

// Notice is the single message shown after a round.
type Notice struct {
	Kind        NoticeKind `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
}

// Outcome is the result of a completed round.
type Outcome struct {
	Game        game.Type      `json:"game"`
	Score       int            `json:"score"`
	Guest       bool           `json:"guest"`
	TotalPoints int            `json:"total_points,omitempty"`
	Level       int            `json:"level,omitempty"`
	Badges      []string       `json:"badges,omitempty"`
	Earned      []badges.Badge `json:"earned"`
	Notice      Notice         `json:"notice"`
}

// Engine applies round completions to player progress.
type Engine struct {
	profiles ProfileStore
	sessions SessionCache
	users    UserMirror
	scores   ScoreStore
	facts    FactSource
	now      func() time.Time
	log      *logger.Logger
}

// NewEngine creates a progression engine over the concrete stores.
func NewEngine(
	profiles *profile.CachedRepository,
	sessions *session.Manager,
	users *repository.UserRepository,
	scores *repository.GameScoreRepository,
	catalog *facts.Catalog,
	log *logger.Logger,
) *Engine {
	return NewEngineWithInterfaces(profiles, sessions, users, scores, catalog, log)
}

// NewEngineWithInterfaces creates a progression engine with interface
// dependencies (useful for testing). sessions, users and scores may be nil.
func NewEngineWithInterfaces(
	profiles ProfileStore,
	sessions SessionCache,
	users UserMirror,
	scores ScoreStore,
	catalog FactSource,
	log *logger.Logger,
) *Engine {
	return &Engine{
		profiles: profiles,
		sessions: sessions,
		users:    users,
		scores:   scores,
		facts:    catalog,
		now:      time.Now,
		log:      log,
	}
}

// Complete applies one finished round. A nil identity is a guest: nothing is
// persisted and the outcome carries an eco fact. Store write failures are
// logged and counted but never returned; the writes are independent and a
// failed one does not undo the others.
func (e *Engine) Complete(ctx context.Context, id *auth.Identity, t game.Type, score int) (Outcome, error) {
	if !t.Valid() {
		return Outcome{}, fmt.Errorf("%w: %s", game.ErrUnknownGame, t)
	}
	if score < 0 {
		return Outcome{}, ErrInvalidScore
	}

	fact := e.facts.Random()
	out := Outcome{
		Game:   t,
		Score:  score,
		Earned: []badges.Badge{},
		Notice: Notice{Kind: NoticeFact, Title: fact.Title, Description: fact.Description},
	}
	if id == nil || id.UserID == "" {
		out.Guest = true
		return out, nil
	}

	uid := id.UserID
	now := e.now()
	log := e.log.With().Str("user_id", uid).Str("game", string(t)).Int("score", score).Logger()

	current := e.freshest(ctx, id)
	held := make([]badges.ID, 0, len(current.Badges))
	for _, b := range current.Badges {
		held = append(held, badges.ID(b))
	}
	decision := badges.Evaluate(t, score, held)
	earned := decision.Earned()

	updated, err := e.profiles.IncrementPoints(ctx, uid, score, now)
	if err != nil {
		e.storeFailure(err, "firestore", "increment_points", uid)
		updated = current.Clone()
		updated.TotalPoints += score
		updated.Level = profile.LevelFor(updated.TotalPoints)
		updated.LastActive = now
	}
	updated.Badges = toStrings(decision.Badges)

	if len(earned) > 0 {
		if err := e.profiles.AddBadges(ctx, uid, toStrings(earned)...); err != nil {
			e.storeFailure(err, "firestore", "add_badges", uid)
		}
	}

	if e.users != nil {
		if err := e.users.UpdateProgress(uid, updated.TotalPoints, updated.Level, now); err != nil {
			e.storeFailure(err, "postgres", "update_progress", uid)
		}
		if len(earned) > 0 {
			if err := e.users.SetBadges(uid, updated.Badges); err != nil {
				e.storeFailure(err, "postgres", "set_badges", uid)
			}
		}
	}

	if e.scores != nil {
		record := &models.GameScore{UserID: uid, GameType: string(t), Score: score, CompletedAt: now}
		if len(earned) > 0 {
			b := string(earned[0])
			record.BadgeEarned = &b
		}
		if err := e.scores.Create(record); err != nil {
			e.storeFailure(err, "postgres", "insert_score", uid)
		}
	}

	for _, b := range earned {
		entry, _ := badges.Lookup(b)
		out.Earned = append(out.Earned, entry)
		metrics.RecordBadgeAwarded(string(b), string(entry.Kind))
		log.Info().Str("badge", string(b)).Msg("Badge awarded")
	}
	if n := decision.Notice(); n != nil {
		out.Notice = Notice{Kind: NoticeBadge, Title: n.Title, Description: n.Description}
	}

	out.TotalPoints = updated.TotalPoints
	out.Level = updated.Level
	out.Badges = updated.Badges

	if e.sessions != nil {
		e.sessions.Refresh(updated)
	}
	log.Info().Int("total_points", updated.TotalPoints).Int("earned", len(earned)).Msg("Round applied to progress")
	return out, nil
}

// HandleCompletion adapts Complete to the round host. The identity is taken
// from the player's open session when there is one.
func (e *Engine) HandleCompletion(ctx context.Context, c game.Completion) any {
	var id *auth.Identity
	if c.UserID != "" {
		id = &auth.Identity{UserID: c.UserID}
		if e.sessions != nil {
			if s, ok := e.sessions.Current(c.UserID); ok {
				id = &s.Identity
			}
		}
	}
	out, err := e.Complete(ctx, id, c.Game, c.Score)
	if err != nil {
		e.log.Error().Err(err).Str("round_id", c.RoundID).Msg("Failed to apply round completion")
		return nil
	}
	return out
}

// freshest returns the most recent profile known for the player: the stored
// one, else the session copy, else an empty profile. A player with no stored
// profile is signed in first so the round lands on a real profile.
func (e *Engine) freshest(ctx context.Context, id *auth.Identity) *profile.Profile {
	uid := id.UserID
	p, err := e.profiles.Get(ctx, uid)
	if err == nil {
		return p
	}
	if errors.Is(err, profile.ErrNotFound) {
		created, cerr := e.createProfile(ctx, id)
		if cerr == nil && created != nil {
			return created
		}
		e.log.Error().Err(cerr).Str("user_id", uid).Msg("Failed to create profile for round")
	}
	e.log.Warn().Err(err).Str("user_id", uid).Msg("Failed to read profile, using session copy")
	if e.sessions != nil {
		if s, ok := e.sessions.Current(uid); ok && s.Profile != nil {
			return s.Profile
		}
	}
	return &profile.Profile{ID: uid, Role: profile.RoleStudent, Badges: []string{}, Level: 1}
}

func (e *Engine) createProfile(ctx context.Context, id *auth.Identity) (*profile.Profile, error) {
	if e.sessions != nil {
		s, err := e.sessions.SignIn(ctx, *id)
		if err != nil {
			return nil, err
		}
		e.log.Info().Str("user_id", id.UserID).Msg("Signed in on first completed round")
		return s.Profile, nil
	}
	p := profile.Default(id.UserID, id.Email, id.Name, e.now())
	if err := e.profiles.Create(ctx, p); err != nil && !errors.Is(err, profile.ErrConflict) {
		return nil, err
	}
	return p, nil
}

func (e *Engine) storeFailure(err error, store, op, uid string) {
	metrics.RecordStoreFailure(store, op)
	e.log.Error().Err(err).Str("user_id", uid).Str("store", store).Str("op", op).Msg("Progress write failed")
}

func toStrings(ids []badges.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
