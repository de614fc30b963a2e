package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/planet-heroes/internal/auth"
	"github.com/aimd54/planet-heroes/internal/profile"
	"github.com/aimd54/planet-heroes/internal/service/badges"
	"github.com/aimd54/planet-heroes/internal/service/leaderboard"
	"github.com/aimd54/planet-heroes/internal/session"
)

// SignIn opens a session for the bearer identity, creating its profile on
// first sign-in.
// POST /api/v1/session.
func (h *Handler) SignIn(c *gin.Context) {
	id, _ := auth.IdentityFrom(c)
	s, err := bounded(c.Request.Context(), h.loadingTimeout, func(ctx context.Context) (*session.Session, error) {
		return h.sessionService.SignIn(ctx, id)
	})
	if err != nil {
		h.log.Error().Err(err).Str("user_id", id.UserID).Msg("Failed to sign in")
		h.signInFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":      s,
		"generated_at": time.Now().UTC(),
	})
}

// SignOut closes the caller's session.
// DELETE /api/v1/session.
func (h *Handler) SignOut(c *gin.Context) {
	h.sessionService.SignOut(c.Request.Context(), userID(c))
	c.Status(http.StatusNoContent)
}

// GetMe returns the caller's profile, opening a session when none is cached.
// GET /api/v1/me.
func (h *Handler) GetMe(c *gin.Context) {
	id, _ := auth.IdentityFrom(c)
	s, ok := h.sessionService.Current(id.UserID)
	if !ok {
		var err error
		s, err = bounded(c.Request.Context(), h.loadingTimeout, func(ctx context.Context) (*session.Session, error) {
			return h.sessionService.SignIn(ctx, id)
		})
		if err != nil {
			h.log.Error().Err(err).Str("user_id", id.UserID).Msg("Failed to load profile")
			h.signInFailed(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":      s.Profile,
		"source":       s.Source,
		"generated_at": time.Now().UTC(),
	})
}

// GetMyStats returns the caller's progress summary.
// GET /api/v1/me/stats.
func (h *Handler) GetMyStats(c *gin.Context) {
	uid := userID(c)
	stats, err := bounded(c.Request.Context(), h.loadingTimeout, func(ctx context.Context) (*leaderboard.UserStats, error) {
		return h.leaderboardService.GetUserStats(ctx, uid)
	})
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			h.errorResponse(c, http.StatusNotFound, "Profile not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", uid).Msg("Failed to get user stats")
		h.loadFailed(c, err, "Failed to retrieve user statistics")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":        stats,
		"generated_at": time.Now().UTC(),
	})
}

// GetBadgeCatalog returns every badge that can be earned.
// GET /api/v1/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	catalog := badges.Catalog()
	c.JSON(http.StatusOK, gin.H{
		"badges":       catalog,
		"total_badges": len(catalog),
		"generated_at": time.Now().UTC(),
	})
}

// GetLeaderboard returns one page of the points leaderboard.
// GET /api/v1/leaderboard?limit=20&after_points=120&after_id=u7&offset=20.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit, err := h.parseLimit(c, h.leaderboardService.PageSize())
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	cur, err := h.parseCursor(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	page, err := bounded(c.Request.Context(), h.loadingTimeout, func(ctx context.Context) (*leaderboard.Page, error) {
		return h.leaderboardService.Page(ctx, limit, cur)
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get leaderboard")
		h.loadFailed(c, err, "Failed to retrieve leaderboard")
		return
	}

	h.log.Debug().
		Int("limit", limit).
		Int("offset", cur.Offset).
		Int("entries", len(page.Entries)).
		Msg("Retrieved leaderboard page")

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   page.Entries,
		"next":          page.Next,
		"total_entries": len(page.Entries),
		"generated_at":  time.Now().UTC(),
	})
}
