package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/planet-heroes/internal/auth"
	"github.com/aimd54/planet-heroes/internal/export"
	"github.com/aimd54/planet-heroes/internal/models"
	"github.com/aimd54/planet-heroes/internal/service/analytics"
)

type classifyRequest struct {
	Code    string `json:"code" binding:"required"`
	Message string `json:"message"`
}

// GetClassOverview returns the class roll-up.
// GET /api/v1/teacher/overview.
func (h *Handler) GetClassOverview(c *gin.Context) {
	overview, err := bounded(c.Request.Context(), h.loadingTimeout, h.analyticsService.ClassOverview)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute class overview")
		h.loadFailed(c, err, "Failed to retrieve class overview")
		return
	}
	c.JSON(http.StatusOK, overview)
}

// GetGameStats returns per-game completion aggregates.
// GET /api/v1/teacher/games.
func (h *Handler) GetGameStats(c *gin.Context) {
	stats, err := bounded(c.Request.Context(), h.loadingTimeout, h.analyticsService.GameStats)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get game stats")
		h.loadFailed(c, err, "Failed to retrieve game statistics")
		return
	}
	if stats == nil {
		stats = []models.GameStats{}
	}
	c.JSON(http.StatusOK, gin.H{
		"games":        stats,
		"generated_at": time.Now().UTC(),
	})
}

// ExportClass downloads the top of the class roster as CSV.
// GET /api/v1/teacher/export.csv.
func (h *Handler) ExportClass(c *gin.Context) {
	rows, err := bounded(c.Request.Context(), h.loadingTimeout, func(ctx context.Context) ([]analytics.StudentSummary, error) {
		return h.analyticsService.TopStudents(ctx)
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load class roster")
		h.loadFailed(c, err, "Failed to export class data")
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, rows); err != nil {
		h.log.Error().Err(err).Msg("Failed to write CSV export")
		return
	}
	h.log.Info().Int("rows", len(rows)).Msg("Exported class data")
}

// ClassifyAuthError maps an identity provider failure code to the message
// shown on the sign-in screen.
// POST /api/v1/auth/errors/classify.
func (h *Handler) ClassifyAuthError(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "code is required")
		return
	}
	c.JSON(http.StatusOK, auth.Classify(req.Code, req.Message))
}
