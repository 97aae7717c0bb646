package routes

import (
	"net/http"

	"github.com/astrobio/biograph/backend/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// GetStatsHandler reports aggregate graph counts. A zero-node response tells
// the caller the graph is stale and needs a rebuild.
func GetStatsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	stats, err := app.Builder.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, stats)
}
