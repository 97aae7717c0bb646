package routes

import (
	"net/http"
	"strconv"

	"github.com/astrobio/biograph/backend/internal/server/middleware"
	"github.com/astrobio/biograph/backend/pkg/common"
	"github.com/astrobio/biograph/backend/pkg/graph"

	"github.com/labstack/echo/v4"
)

// GetKnowledgeGraphHandler returns the visualization snapshot together with
// the current top entities.
func GetKnowledgeGraphHandler(c echo.Context) error {
	type response struct {
		Graph       *graph.Snapshot `json:"graph"`
		TopEntities []common.Entity `json:"top_entities"`
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	snapshot, err := app.Queries.GraphSnapshot(ctx)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}

	limit, _ := strconv.Atoi(c.QueryParam("top"))
	topEntities, err := app.Queries.TopEntities(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, response{
		Graph:       snapshot,
		TopEntities: topEntities,
	})
}
