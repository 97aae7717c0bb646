package routes

import (
	"encoding/json"
	"net/http"

	"github.com/astrobio/biograph/backend/internal/queue"
	"github.com/astrobio/biograph/backend/internal/server/middleware"
	"github.com/astrobio/biograph/backend/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// PostRebuildHandler enqueues a full graph rebuild. The build itself runs on
// the worker; the handler only hands the job off and returns the correlation
// id for tracking.
func PostRebuildHandler(c echo.Context) error {
	type request struct {
		CorpusSource string `json:"corpus_source"`
	}

	app := c.(*middleware.AppContext).App

	var req request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	source := req.CorpusSource
	if source == "" {
		source = app.CorpusSource
	}
	if source == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no corpus source configured"})
	}

	correlationID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	job := queue.RebuildJob{
		CorrelationID: correlationID,
		CorpusSource:  source,
	}
	body, err := json.Marshal(job)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if err := queue.PublishFIFO(app.Queue, queue.RebuildQueue, body); err != nil {
		logger.Error("[Server] Failed to enqueue rebuild", "err", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "failed to enqueue rebuild"})
	}

	logger.Info("[Server] Rebuild enqueued", "correlation_id", correlationID, "source", source)
	return c.JSON(http.StatusAccepted, map[string]string{
		"status":         "queued",
		"correlation_id": correlationID,
	})
}
