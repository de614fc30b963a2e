// Package dashboard provides the REST API of Planet Heroes: mini-game rounds,
// sessions, the leaderboard and the teacher dashboard.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/planet-heroes/internal/auth"
	"github.com/aimd54/planet-heroes/internal/game"
	"github.com/aimd54/planet-heroes/internal/models"
	"github.com/aimd54/planet-heroes/internal/profile"
	"github.com/aimd54/planet-heroes/internal/service/analytics"
	"github.com/aimd54/planet-heroes/internal/service/leaderboard"
	"github.com/aimd54/planet-heroes/internal/service/progression"
	"github.com/aimd54/planet-heroes/internal/session"
	"github.com/aimd54/planet-heroes/pkg/logger"
)

// RoundHost interface for server-hosted rounds.
type RoundHost interface {
	StartRound(userID string, t game.Type, interactive bool) (string, game.Snapshot, error)
	Input(id, userID string, in game.Input) (game.Snapshot, error)
	Snapshot(id, userID string) (game.Snapshot, error)
	Outcome(id, userID string) (any, bool, error)
	Abandon(id, userID string) error
	Watch(ctx context.Context, id, userID string) (<-chan game.Snapshot, error)
	Active() int
}

// ProgressionService interface for applying completed rounds.
type ProgressionService interface {
	Complete(ctx context.Context, id *auth.Identity, t game.Type, score int) (progression.Outcome, error)
}

// SessionService interface for identity transitions.
type SessionService interface {
	SignIn(ctx context.Context, id auth.Identity) (*session.Session, error)
	SignOut(ctx context.Context, userID string)
	Current(userID string) (*session.Session, bool)
	Count() int
}

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	PageSize() int
	Page(ctx context.Context, limit int, cur leaderboard.Cursor) (*leaderboard.Page, error)
	GetUserStats(ctx context.Context, userID string) (*leaderboard.UserStats, error)
}

// AnalyticsService interface for the teacher dashboard.
type AnalyticsService interface {
	ClassOverview(ctx context.Context) (*analytics.Overview, error)
	TopStudents(ctx context.Context) ([]analytics.StudentSummary, error)
	GameStats(ctx context.Context) ([]models.GameStats, error)
}

// HealthChecker is a dependency reported by the health endpoint.
type HealthChecker func(ctx context.Context) error

// errLoadTimeout is returned by bounded loads that outlive the loading timeout.
var errLoadTimeout = errors.New("request took too long")

// Handler handles API requests.
type Handler struct {
	host               RoundHost
	progressionService ProgressionService
	sessionService     SessionService
	leaderboardService LeaderboardService
	analyticsService   AnalyticsService
	checks             map[string]HealthChecker
	loadingTimeout     time.Duration
	log                *logger.Logger
}

// Options holds the optional parts of a Handler.
type Options struct {
	// LoadingTimeout bounds every store-backed request. Zero means 8s.
	LoadingTimeout time.Duration
	// Checks are probed by GET /health.
	Checks map[string]HealthChecker
}

// NewHandler creates a new API handler.
func NewHandler(
	host *game.Host,
	engine *progression.Engine,
	sessions *session.Manager,
	leaderboardService *leaderboard.Service,
	analyticsService *analytics.Service,
	opts Options,
	log *logger.Logger,
) *Handler {
	return NewHandlerWithInterfaces(host, engine, sessions, leaderboardService, analyticsService, opts, log)
}

// NewHandlerWithInterfaces creates a new API handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(
	host RoundHost,
	progressionService ProgressionService,
	sessionService SessionService,
	leaderboardService LeaderboardService,
	analyticsService AnalyticsService,
	opts Options,
	log *logger.Logger,
) *Handler {
	if opts.LoadingTimeout <= 0 {
		opts.LoadingTimeout = 8 * time.Second
	}
	return &Handler{
		host:               host,
		progressionService: progressionService,
		sessionService:     sessionService,
		leaderboardService: leaderboardService,
		analyticsService:   analyticsService,
		checks:             opts.Checks,
		loadingTimeout:     opts.LoadingTimeout,
		log:                log,
	}
}

// Health reports liveness and the state of each dependency.
// GET /health.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":        state,
		"dependencies":  deps,
		"active_rounds": h.host.Active(),
		"sessions":      h.sessionService.Count(),
		"generated_at":  time.Now().UTC(),
	})
}

// inFlightLimit caps work that outlives its request.
const inFlightLimit = time.Minute

// bounded runs fn and waits at most d for it. When the deadline passes first
// it returns errLoadTimeout; fn keeps running detached from the request and
// is only cut off after inFlightLimit.
func bounded[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	work, cancel := context.WithTimeout(context.WithoutCancel(ctx), inFlightLimit)

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer cancel()
		v, err := fn(work)
		done <- result{v, err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case r := <-done:
		return r.value, r.err
	case <-timer.C:
		return zero, errLoadTimeout
	case <-ctx.Done():
		return zero, errLoadTimeout
	}
}

// Helper functions

// identity returns the signed-in identity, or nil for guests.
func identity(c *gin.Context) *auth.Identity {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return nil
	}
	return &id
}

// userID returns the signed-in user id, or "" for guests.
func userID(c *gin.Context) string {
	if id := identity(c); id != nil {
		return id.UserID
	}
	return ""
}

// parseGame extracts and validates the game from the URL parameter.
func (h *Handler) parseGame(c *gin.Context) (game.Type, error) {
	return game.ParseType(c.Param("game"))
}

// parseLimit extracts and validates the limit query parameter.
func (h *Handler) parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s", limitStr)
	}
	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}
	return limit, nil
}

// parseCursor reads the after_points, after_id and offset query parameters.
func (h *Handler) parseCursor(c *gin.Context) (leaderboard.Cursor, error) {
	var cur leaderboard.Cursor
	if s := c.Query("after_points"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return cur, fmt.Errorf("invalid after_points parameter: %s", s)
		}
		cur.AfterPoints = &v
	}
	cur.AfterID = c.Query("after_id")
	if s := c.Query("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return cur, fmt.Errorf("invalid offset parameter: %s", s)
		}
		cur.Offset = v
	}
	if (cur.Offset > 0 || cur.AfterID != "") && cur.AfterPoints == nil {
		return cur, fmt.Errorf("offset and after_id require after_points")
	}
	return cur, nil
}

// roundError maps host errors to status codes.
func (h *Handler) roundError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, game.ErrRoundNotFound):
		h.errorResponse(c, http.StatusNotFound, "Round not found")
	case errors.Is(err, game.ErrNotRoundOwner):
		h.errorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrRoundFinished):
		h.errorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrUnknownGame):
		h.errorResponse(c, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Round operation failed")
		h.errorResponse(c, http.StatusInternalServerError, "Round operation failed")
	}
}

// loadFailed answers a failed store-backed request. Timeouts and store
// outages are retryable.
func (h *Handler) loadFailed(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, errLoadTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":     "Taking longer than expected",
			"retry":     true,
			"timestamp": time.Now().UTC(),
		})
	case profile.IsUnavailable(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     message,
			"retry":     true,
			"timestamp": time.Now().UTC(),
		})
	default:
		h.errorResponse(c, http.StatusInternalServerError, message)
	}
}

// signInFailed answers a failed profile load on sign-in with the reason the
// sign-in screen displays.
func (h *Handler) signInFailed(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	failure := auth.ClassifyError(err)
	switch {
	case errors.Is(err, errLoadTimeout):
		status = http.StatusGatewayTimeout
		failure = auth.Classify("network-request-failed", "")
	case profile.IsUnavailable(err):
		status = http.StatusServiceUnavailable
		failure = auth.Classify("unavailable", "")
	}
	c.JSON(status, gin.H{
		"error":     failure.Message,
		"reason":    failure.Reason,
		"retry":     status != http.StatusInternalServerError,
		"timestamp": time.Now().UTC(),
	})
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
