package server

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter wires the focus API routes
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(Logger(), gin.Recovery(), CORS())

	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		api.POST("/guides/derive", h.DeriveGuide)

		focus := api.Group("/focus")
		{
			focus.POST("/transform", h.Transform)
			focus.POST("/canvas", h.Canvas)
		}
	}

	return r
}
