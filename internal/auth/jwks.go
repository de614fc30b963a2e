package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/aimd54/planet-heroes/internal/config"
)

var errMissingSubject = errors.New("token missing subject claim")

// tokenVerifier validates provider-issued JWTs.
type tokenVerifier struct {
	keyfunc  jwt.Keyfunc
	audience string
	issuer   string
}

func newJWKSVerifier(cfg *config.AuthConfig) (Verifier, error) {
	options := keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			// refresh failures surface as verification errors on the next token
		},
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, options)
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS: %w", err)
	}
	return NewKeyfuncVerifier(jwks.Keyfunc, cfg.Audience, cfg.Issuer), nil
}

// NewKeyfuncVerifier builds a JWT verifier around an arbitrary key lookup.
func NewKeyfuncVerifier(kf jwt.Keyfunc, audience, issuer string) Verifier {
	return &tokenVerifier{keyfunc: kf, audience: audience, issuer: issuer}
}

func (v *tokenVerifier) Verify(_ context.Context, token string) (Identity, error) {
	options := []jwt.ParserOption{jwt.WithLeeway(5 * time.Second)}
	if v.audience != "" {
		options = append(options, jwt.WithAudience(v.audience))
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	t, err := jwt.Parse(token, v.keyfunc, options...)
	if err != nil {
		return Identity{}, fmt.Errorf("token verification failed: %w", err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("unexpected claims type")
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		// some providers put the uid in user_id instead
		subject, _ = claims["user_id"].(string)
	}
	if subject == "" {
		return Identity{}, errMissingSubject
	}

	id := Identity{UserID: subject}
	id.Email, _ = claims["email"].(string)
	id.Name, _ = claims["name"].(string)
	id.SessionID, _ = claims["sid"].(string)
	if exp, ok := claims["exp"].(float64); ok {
		id.ExpiresAt = int64(exp)
	}
	return id, nil
}
