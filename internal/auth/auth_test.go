package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/planet-heroes/internal/config"
	"github.com/aimd54/planet-heroes/pkg/logger"
)

var testSecret = []byte("test-secret")

func hmacKeyfunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return testSecret, nil
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func TestKeyfuncVerifier(t *testing.T) {
	v := NewKeyfuncVerifier(hmacKeyfunc, "planet-heroes", "https://issuer.test")
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		claims  jwt.MapClaims
		want    Identity
		wantErr bool
	}{
		{
			name: "valid token",
			claims: jwt.MapClaims{
				"sub": "u1", "email": "ada@school.test", "name": "Ada", "sid": "s1",
				"aud": "planet-heroes", "iss": "https://issuer.test", "exp": exp,
			},
			want: Identity{UserID: "u1", Email: "ada@school.test", Name: "Ada", SessionID: "s1", ExpiresAt: exp},
		},
		{
			name: "user_id claim",
			claims: jwt.MapClaims{
				"user_id": "u2", "aud": "planet-heroes", "iss": "https://issuer.test", "exp": exp,
			},
			want: Identity{UserID: "u2", ExpiresAt: exp},
		},
		{
			name:    "wrong audience",
			claims:  jwt.MapClaims{"sub": "u1", "aud": "other", "iss": "https://issuer.test", "exp": exp},
			wantErr: true,
		},
		{
			name:    "expired",
			claims:  jwt.MapClaims{"sub": "u1", "aud": "planet-heroes", "iss": "https://issuer.test", "exp": time.Now().Add(-time.Hour).Unix()},
			wantErr: true,
		},
		{
			name:    "missing subject",
			claims:  jwt.MapClaims{"aud": "planet-heroes", "iss": "https://issuer.test", "exp": exp},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := v.Verify(context.Background(), sign(t, tt.claims))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestNoopVerifier(t *testing.T) {
	id, err := NoopVerifier{}.Verify(context.Background(), "u1|ada@school.test|Ada")
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u1", Email: "ada@school.test", Name: "Ada"}, id)

	id, err = NoopVerifier{}.Verify(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "u2", id.UserID)

	_, err = NoopVerifier{}.Verify(context.Background(), "")
	assert.Error(t, err)
}

func TestNewVerifier(t *testing.T) {
	v, err := NewVerifier(&config.AuthConfig{Mode: "noop"})
	require.NoError(t, err)
	assert.IsType(t, NoopVerifier{}, v)

	_, err = NewVerifier(&config.AuthConfig{Mode: "saml"})
	assert.Error(t, err)
}

type staticRoles map[string]string

func (s staticRoles) Role(_ context.Context, userID string) (string, error) {
	r, ok := s[userID]
	if !ok {
		return "", errors.New("unknown user")
	}
	return r, nil
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(NoopVerifier{}, logger.Nop()))
	r.GET("/whoami", func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		ctxID, _ := FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user": id.UserID, "signed_in": ok, "ctx_user": ctxID.UserID})
	})
	r.GET("/me", RequireIdentity(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/teacher", RequireRole(staticRoles{"t1": "teacher", "s1": "student"}, "teacher"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	r := newRouter()

	w := do(r, "/whoami", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"","signed_in":false,"ctx_user":""}`, w.Body.String())

	w = do(r, "/whoami", "Bearer u1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"u1","signed_in":true,"ctx_user":"u1"}`, w.Body.String())

	w = do(r, "/whoami", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/whoami", "Bearer ")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireIdentity(t *testing.T) {
	r := newRouter()
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusOK, do(r, "/me", "Bearer u1").Code)
}

func TestRequireRole(t *testing.T) {
	r := newRouter()
	assert.Equal(t, http.StatusUnauthorized, do(r, "/teacher", "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/teacher", "Bearer s1").Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/teacher", "Bearer ghost").Code)
	assert.Equal(t, http.StatusOK, do(r, "/teacher", "Bearer t1").Code)
}
