package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/astrobio/biograph/backend/pkg/extract"
	"github.com/astrobio/biograph/backend/pkg/graph"
)

// App bundles the service objects shared by all request handlers. It is
// constructed once at startup and injected through the request context;
// nothing here is ambient global state.
type App struct {
	Builder      *graph.Builder
	Queries      *graph.QueryService
	Extractor    *extract.Extractor
	Queue        *amqp091.Channel
	CorpusSource string
	AdminAPIKey  string
}

// AppContext wraps the echo context with the application services.
type AppContext struct {
	echo.Context
	App *App
}

// AppContextMiddleware injects the shared App into every request.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app})
		}
	}
}
