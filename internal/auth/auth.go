// Package auth verifies identity provider tokens and attaches the signed-in
// identity to requests.
package auth

import (
	"context"
	"fmt"

	"github.com/aimd54/planet-heroes/internal/config"
)

// Mode selects how bearer tokens are verified.
type Mode string

const (
	// ModeJWKS verifies provider-signed JWTs against a JWKS endpoint.
	ModeJWKS Mode = "jwks"
	// ModeNoop treats the bearer token as the user ID, for local development and tests.
	ModeNoop Mode = "noop"
)

// Identity is the signed-in user extracted from a token.
type Identity struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// Verifier verifies a bearer token and returns the identity it carries.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// NewVerifier constructs the verifier selected by cfg.
func NewVerifier(cfg *config.AuthConfig) (Verifier, error) {
	switch Mode(cfg.Mode) {
	case ModeJWKS:
		return newJWKSVerifier(cfg)
	case ModeNoop:
		return NoopVerifier{}, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", cfg.Mode)
	}
}

type ctxKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached to ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
