package dashboard

import (
	"github.com/gin-gonic/gin"

	"github.com/aimd54/planet-heroes/internal/auth"
)

// RegisterRoutes mounts every API route on r. Teacher routes require the
// teacher role as resolved by roles.
func RegisterRoutes(r gin.IRouter, h *Handler, roles auth.RoleLookup) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	api.GET("/games", h.GetGames)
	api.POST("/games/:game/rounds", h.StartRound)
	api.POST("/games/:game/complete", h.CompleteRound)
	api.GET("/rounds/:id", h.GetRound)
	api.GET("/rounds/:id/stream", h.StreamRound)
	api.POST("/rounds/:id/input", h.SendInput)
	api.DELETE("/rounds/:id", h.AbandonRound)
	api.GET("/badges", h.GetBadgeCatalog)
	api.GET("/leaderboard", h.GetLeaderboard)
	api.POST("/auth/errors/classify", h.ClassifyAuthError)

	signedIn := api.Group("", auth.RequireIdentity())
	signedIn.POST("/session", h.SignIn)
	signedIn.DELETE("/session", h.SignOut)
	signedIn.GET("/me", h.GetMe)
	signedIn.GET("/me/stats", h.GetMyStats)

	teacher := api.Group("/teacher", auth.RequireRole(roles, "teacher"))
	teacher.GET("/overview", h.GetClassOverview)
	teacher.GET("/games", h.GetGameStats)
	teacher.GET("/export.csv", h.ExportClass)
}
