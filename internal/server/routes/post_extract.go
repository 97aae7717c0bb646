package routes

import (
	"net/http"

	"github.com/astrobio/biograph/backend/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// PostExtractHandler runs the pattern extractor over an arbitrary text,
// without touching the stored graph.
func PostExtractHandler(c echo.Context) error {
	type request struct {
		Text string `json:"text" validate:"required"`
	}

	var req request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
	}

	app := c.(*middleware.AppContext).App
	entities := app.Extractor.Extract(req.Text)

	return c.JSON(http.StatusOK, map[string]any{
		"entities": entities,
	})
}
