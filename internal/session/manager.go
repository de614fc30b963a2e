// Package session owns the identity transitions of signed-in players and
// caches their profile for the lifetime of a session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aimd54/planet-heroes/internal/auth"
	"github.com/aimd54/planet-heroes/internal/metrics"
	"github.com/aimd54/planet-heroes/internal/models"
	"github.com/aimd54/planet-heroes/internal/profile"
	"github.com/aimd54/planet-heroes/pkg/logger"
)

// EventKind is a sign-in or sign-out transition.
type EventKind string

// Event kinds.
const (
	SignedIn  EventKind = "sign_in"
	SignedOut EventKind = "sign_out"
)

// Event is one identity transition reported by the identity provider.
type Event struct {
	Kind     EventKind
	Identity auth.Identity
}

// Session is a signed-in player.
type Session struct {
	Identity  auth.Identity    `json:"identity"`
	Profile   *profile.Profile `json:"profile"`
	Source    profile.Source   `json:"source"`
	StartedAt time.Time        `json:"started_at"`
}

// ProfileStore is the part of the cached profile repository sessions use.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*profile.Profile, error)
	Load(ctx context.Context, id, email, name string, now time.Time) (*profile.Profile, profile.Source, error)
	Create(ctx context.Context, p *profile.Profile) error
	Touch(ctx context.Context, id string, at time.Time) error
	Forget(ctx context.Context, id string)
}

// UserMirror is the relational copy of profiles.
type UserMirror interface {
	Upsert(user *models.User) error
}

// Manager is the single owner of session state.
type Manager struct {
	profiles ProfileStore
	mirror   UserMirror
	now      func() time.Time
	log      *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager. mirror may be nil.
func NewManager(profiles ProfileStore, mirror UserMirror, log *logger.Logger) *Manager {
	return &Manager{
		profiles: profiles,
		mirror:   mirror,
		now:      time.Now,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Run consumes identity transitions until ctx is done or events is closed.
// All sessions are dropped when ctx is done.
func (m *Manager) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.sessions = make(map[string]*Session)
			m.mu.Unlock()
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			var err error
			switch ev.Kind {
			case SignedIn:
				_, err = m.SignIn(ctx, ev.Identity)
			case SignedOut:
				m.SignOut(ctx, ev.Identity.UserID)
			default:
				err = fmt.Errorf("unknown session event %q", ev.Kind)
			}
			if err != nil {
				m.log.Error().Err(err).Str("user_id", ev.Identity.UserID).Msg("Failed to apply session event")
			}
		}
	}
}

// SignIn resolves the player's profile, creating it on first sign-in, and
// opens a session. Store outages degrade to the local overlay.
func (m *Manager) SignIn(ctx context.Context, id auth.Identity) (*Session, error) {
	if id.UserID == "" {
		return nil, errors.New("identity has no user id")
	}
	now := m.now()

	p, src, err := m.profiles.Load(ctx, id.UserID, id.Email, id.Name, now)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		p = profile.Default(id.UserID, id.Email, id.Name, now)
		src = profile.SourceDefault
		if err := m.profiles.Create(ctx, p); err != nil {
			if !profile.IsUnavailable(err) {
				return nil, fmt.Errorf("failed to create profile: %w", err)
			}
			m.log.Warn().Err(err).Str("user_id", id.UserID).Msg("Profile created locally only")
		} else {
			m.log.Info().Str("user_id", id.UserID).Msg("Created profile on first sign-in")
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load profile: %w", err)
	case src == profile.SourceRemote:
		if err := m.profiles.Touch(ctx, id.UserID, now); err != nil {
			m.log.Warn().Err(err).Str("user_id", id.UserID).Msg("Failed to update last active")
		}
		p.LastActive = now
	}

	m.mirrorProfile(p)

	s := &Session{Identity: id, Profile: p, Source: src, StartedAt: now}
	m.mu.Lock()
	m.sessions[id.UserID] = s
	m.mu.Unlock()

	metrics.RecordSessionTransition(string(SignedIn))
	m.log.Info().Str("user_id", id.UserID).Str("source", string(src)).Msg("Signed in")
	return cloneSession(s), nil
}

// SignOut closes the session and discards the local overlay copy.
func (m *Manager) SignOut(ctx context.Context, userID string) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()

	m.profiles.Forget(ctx, userID)
	metrics.RecordSessionTransition(string(SignedOut))
	m.log.Info().Str("user_id", userID).Msg("Signed out")
}

// Current returns the cached session of a player.
func (m *Manager) Current(userID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, false
	}
	return cloneSession(s), true
}

// Refresh replaces the cached profile of an open session.
func (m *Manager) Refresh(p *profile.Profile) {
	if p == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[p.ID]; ok {
		s.Profile = p.Clone()
	}
}

// Role returns the stored role of a player, from the session when open.
func (m *Manager) Role(ctx context.Context, userID string) (string, error) {
	if s, ok := m.Current(userID); ok && s.Profile != nil {
		return string(s.Profile.Role), nil
	}
	p, err := m.profiles.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return string(p.Role), nil
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) mirrorProfile(p *profile.Profile) {
	if m.mirror == nil {
		return
	}
	if err := m.mirror.Upsert(ToUser(p)); err != nil {
		metrics.RecordStoreFailure("postgres", "upsert_user")
		m.log.Error().Err(err).Str("user_id", p.ID).Msg("Failed to mirror profile")
	}
}

// ToUser converts a profile to its relational mirror row.
func ToUser(p *profile.Profile) *models.User {
	return &models.User{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Role:        string(p.Role),
		TotalPoints: p.TotalPoints,
		Badges:      append([]string{}, p.Badges...),
		Level:       p.Level,
		CreatedAt:   p.CreatedAt,
		LastActive:  p.LastActive,
	}
}

func cloneSession(s *Session) *Session {
	c := *s
	if s.Profile != nil {
		c.Profile = s.Profile.Clone()
	}
	return &c
}
