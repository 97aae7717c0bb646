package routes

import (
	"net/http"

	"github.com/astrobio/biograph/backend/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// GetCommunitiesHandler returns the degree-band entity buckets.
func GetCommunitiesHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	communities, err := app.Queries.Communities(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"communities": communities,
		"count":       len(communities),
	})
}
