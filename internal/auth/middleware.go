package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/planet-heroes/pkg/logger"
)

const identityKey = "planet-heroes:identity"

var errInvalidAuthHeader = errors.New("authorization header is malformed")

// RoleLookup resolves the stored role of a signed-in user.
type RoleLookup interface {
	Role(ctx context.Context, userID string) (string, error)
}

// Middleware attaches the identity when a bearer token is present. Requests
// without an Authorization header continue as guests; invalid tokens are
// rejected.
func Middleware(verifier Verifier, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || verifier == nil {
			c.Next()
			return
		}

		token, err := bearerToken(header)
		if err != nil {
			unauthorized(c, err.Error())
			return
		}

		id, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			log.Debug().Err(err).Msg("Rejected bearer token")
			unauthorized(c, "invalid token")
			return
		}

		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequireIdentity rejects guests.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := IdentityFrom(c); !ok {
			unauthorized(c, "sign-in required")
			return
		}
		c.Next()
	}
}

// RequireRole lets through only signed-in users whose stored role is one of roles.
func RequireRole(lookup RoleLookup, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			unauthorized(c, "sign-in required")
			return
		}
		role, err := lookup.Role(c.Request.Context(), id.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "role could not be resolved",
				"timestamp": time.Now().UTC(),
			})
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "insufficient role",
			"timestamp": time.Now().UTC(),
		})
	}
}

// IdentityFrom returns the identity attached by Middleware.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func bearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errInvalidAuthHeader
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errInvalidAuthHeader
	}
	return token, nil
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":     msg,
		"timestamp": time.Now().UTC(),
	})
}
