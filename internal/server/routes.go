package server

import (
	"github.com/astrobio/biograph/backend/internal/server/middleware"
	"github.com/astrobio/biograph/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	api := e.Group("/api")

	api.GET("/stats", routes.GetStatsHandler)
	api.GET("/knowledge-graph", routes.GetKnowledgeGraphHandler)
	api.GET("/knowledge-graph/entity/:name", routes.GetEntityHandler)
	api.GET("/knowledge-graph/communities", routes.GetCommunitiesHandler)
	api.POST("/extract/entities", routes.PostExtractHandler)

	// Destructive operations are key-protected
	api.POST("/admin/rebuild", routes.PostRebuildHandler, middleware.RequireAPIKey)
}
