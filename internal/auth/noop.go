package auth

import (
	"context"
	"errors"
	"strings"
)

// NoopVerifier accepts any token. The token is the user ID, optionally
// followed by "|email|name".
type NoopVerifier struct{}

// Verify implements Verifier.
func (NoopVerifier) Verify(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, errors.New("token must not be empty")
	}
	parts := strings.SplitN(token, "|", 3)
	id := Identity{UserID: parts[0]}
	if len(parts) > 1 {
		id.Email = parts[1]
	}
	if len(parts) > 2 {
		id.Name = parts[2]
	}
	return id, nil
}
