package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/astrobio/biograph/backend/internal/queue"
	mid "github.com/astrobio/biograph/backend/internal/server/middleware"
	"github.com/astrobio/biograph/backend/internal/util"
	"github.com/astrobio/biograph/backend/pkg/extract"
	"github.com/astrobio/biograph/backend/pkg/graph"
	"github.com/astrobio/biograph/backend/pkg/logger"
	pgstore "github.com/astrobio/biograph/backend/pkg/store/pgx"

	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn := util.GetEnv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL must be set")
	}

	if err := Migrate(util.GetEnvString("MIGRATIONS_DIR", "file://migrations"), dsn); err != nil {
		logger.Fatal("Failed to run migrations", "err", err)
	}

	conn, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	if err := util.RetryErrWithContext(ctx, 5, conn.Ping); err != nil {
		logger.Fatal("Failed to ping database", "err", err)
	}

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}

	if err := queue.SetupQueues(ch, []string{queue.RebuildQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	graphStore := pgstore.NewGraphDBStorage(conn)
	app := &mid.App{
		Builder: graph.NewBuilder(graph.NewBuilderParams{
			Store:           graphStore,
			MinCoOccurrence: int(util.GetEnvNumeric("GRAPH_MIN_CO_OCCURRENCE", 2)),
		}),
		Queries:      graph.NewQueryService(graphStore),
		Extractor:    extract.NewExtractor(),
		Queue:        ch,
		CorpusSource: util.GetEnv("CORPUS_SOURCE"),
		AdminAPIKey:  util.GetEnv("ADMIN_API_KEY"),
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	RegisterRoutes(e)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
