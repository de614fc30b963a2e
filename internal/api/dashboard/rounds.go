package dashboard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/planet-heroes/internal/game"
	"github.com/aimd54/planet-heroes/internal/metrics"
	"github.com/aimd54/planet-heroes/internal/service/progression"
)

type startRoundRequest struct {
	Interactive *bool `json:"interactive"`
}

type completeRequest struct {
	Score *int `json:"score" binding:"required,min=0"`
}

// GetGames returns the mini-game catalog.
// GET /api/v1/games.
func (h *Handler) GetGames(c *gin.Context) {
	catalog := game.Catalog()
	c.JSON(http.StatusOK, gin.H{
		"games":        catalog,
		"total_games":  len(catalog),
		"generated_at": time.Now().UTC(),
	})
}

// StartRound starts a hosted round for the caller. Guests get rounds too.
// POST /api/v1/games/:game/rounds.
func (h *Handler) StartRound(c *gin.Context) {
	t, err := h.parseGame(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req startRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}
	interactive := true
	if req.Interactive != nil {
		interactive = *req.Interactive
	}

	id, snap, err := h.host.StartRound(userID(c), t, interactive)
	if err != nil {
		h.roundError(c, err)
		return
	}

	h.log.Info().
		Str("round_id", id).
		Str("game", string(t)).
		Bool("guest", userID(c) == "").
		Msg("Started round")

	c.JSON(http.StatusCreated, gin.H{
		"round_id": id,
		"round":    snap,
	})
}

// SendInput forwards a pointer event to a round.
// POST /api/v1/rounds/:id/input.
func (h *Handler) SendInput(c *gin.Context) {
	var in game.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid input: "+err.Error())
		return
	}

	id := c.Param("id")
	snap, err := h.host.Input(id, userID(c), in)
	if err != nil {
		h.roundError(c, err)
		return
	}
	h.roundResponse(c, id, snap)
}

// GetRound returns the current state of a round, with its outcome once finished.
// GET /api/v1/rounds/:id.
func (h *Handler) GetRound(c *gin.Context) {
	id := c.Param("id")
	snap, err := h.host.Snapshot(id, userID(c))
	if err != nil {
		h.roundError(c, err)
		return
	}
	h.roundResponse(c, id, snap)
}

func (h *Handler) roundResponse(c *gin.Context, id string, snap game.Snapshot) {
	body := gin.H{"round": snap}
	outcome, finished, err := h.host.Outcome(id, userID(c))
	if err == nil && finished && outcome != nil {
		body["outcome"] = outcome
	}
	c.JSON(http.StatusOK, body)
}

// AbandonRound stops a round without scoring it.
// DELETE /api/v1/rounds/:id.
func (h *Handler) AbandonRound(c *gin.Context) {
	id := c.Param("id")
	if err := h.host.Abandon(id, userID(c)); err != nil {
		h.roundError(c, err)
		return
	}
	h.log.Info().Str("round_id", id).Msg("Abandoned round")
	c.Status(http.StatusNoContent)
}

// StreamRound streams frame snapshots as server-sent events until the round
// ends or the client goes away.
// GET /api/v1/rounds/:id/stream.
func (h *Handler) StreamRound(c *gin.Context) {
	id := c.Param("id")
	uid := userID(c)
	frames, err := h.host.Watch(c.Request.Context(), id, uid)
	if err != nil {
		h.roundError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		snap, ok := <-frames
		if !ok {
			if outcome, finished, err := h.host.Outcome(id, uid); err == nil && finished {
				c.SSEvent("outcome", outcome)
			}
			return false
		}
		c.SSEvent("frame", snap)
		return true
	})
}

// CompleteRound applies a round scored on the client.
// POST /api/v1/games/:game/complete.
func (h *Handler) CompleteRound(c *gin.Context) {
	t, err := h.parseGame(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "score must be a non-negative integer")
		return
	}

	id := identity(c)
	outcome, err := bounded(c.Request.Context(), h.loadingTimeout, func(ctx context.Context) (progression.Outcome, error) {
		return h.progressionService.Complete(ctx, id, t, *req.Score)
	})
	if err != nil {
		if errors.Is(err, progression.ErrInvalidScore) {
			h.errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("game", string(t)).Msg("Failed to complete round")
		h.loadFailed(c, err, "Failed to record round")
		return
	}

	mode := "player"
	if id == nil {
		mode = "guest"
	}
	metrics.RecordGameCompleted(string(t), mode, *req.Score)

	c.JSON(http.StatusOK, gin.H{
		"outcome":      outcome,
		"generated_at": time.Now().UTC(),
	})
}
