package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/astrobio/biograph/backend/internal/corpus"
	"github.com/astrobio/biograph/backend/internal/queue"
	"github.com/astrobio/biograph/backend/internal/util"
	"github.com/astrobio/biograph/backend/pkg/logger"
	"github.com/astrobio/biograph/backend/pkg/logger/console"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	dsn := util.GetEnv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL must be set")
	}

	pgConn, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	if err := util.RetryErrWithContext(ctx, 5, pgConn.Ping); err != nil {
		logger.Fatal("Failed to ping database", "err", err)
	}

	loader := corpus.NewLoader(corpus.NewS3Client(ctx))

	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.RebuildQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	// An empty store heals on startup instead of waiting for a rebuild
	// request. Failure is not fatal: explicit rebuild jobs still work.
	if err := queue.EnsureGraphReady(ctx, pgConn, loader, util.GetEnv("CORPUS_SOURCE")); err != nil {
		logger.Error("Startup graph check failed", "err", err)
	}

	// One message at a time: rebuilds are serialized anyway.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.RebuildQueue,
		"rebuild_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.RebuildQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.RebuildQueue)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping worker")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed")
				return
			}

			startTime := time.Now()
			logger.Info("Received message", "queue", queue.RebuildQueue)

			err := queue.ProcessRebuildMessage(ctx, pgConn, loader, string(msg.Body))
			if err != nil {
				logger.Error("Error processing message", "queue", queue.RebuildQueue, "err", err)
				queue.HandleProcessingError(consumerCh, msg, queue.RebuildQueue)
			} else {
				if err := msg.Ack(false); err != nil {
					logger.Error("Failed to ack message", "err", err)
				}
				logger.Info("Message processed successfully",
					"queue", queue.RebuildQueue,
					"duration", time.Since(startTime).Round(time.Millisecond),
				)
			}
		}
	}
}
