package routes

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/astrobio/biograph/backend/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// GetEntityHandler returns the co-occurrence partners of one entity. Unknown
// names return an empty list, not an error.
func GetEntityHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	name := strings.ToLower(strings.TrimSpace(c.Param("name")))
	if name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "entity name is required"})
	}

	maxConnections, _ := strconv.Atoi(c.QueryParam("max_connections"))
	relationships, err := app.Queries.EntityRelationships(c.Request().Context(), name, maxConnections)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"entity":        name,
		"relationships": relationships,
	})
}
