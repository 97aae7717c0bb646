package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/astrobio/biograph/backend/internal/corpus"
	"github.com/astrobio/biograph/backend/internal/util"
	"github.com/astrobio/biograph/backend/pkg/common"
	"github.com/astrobio/biograph/backend/pkg/graph"
	"github.com/astrobio/biograph/backend/pkg/leaselock"
	"github.com/astrobio/biograph/backend/pkg/logger"
	pgstore "github.com/astrobio/biograph/backend/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

// buildLeaseKey serializes rebuilds across all worker processes. The build
// starts by wiping the store, so overlapping builds would destroy each other.
const buildLeaseKey = "graph_build"

// RebuildJob asks the worker to rebuild the whole graph from the corpus at
// CorpusSource (local path or s3://bucket/key).
type RebuildJob struct {
	CorrelationID string `json:"correlation_id"`
	CorpusSource  string `json:"corpus_source"`
}

func newGraphBuilder(pool *pgxpool.Pool) *graph.Builder {
	return graph.NewBuilder(graph.NewBuilderParams{
		Store:           pgstore.NewGraphDBStorage(pool),
		MinCoOccurrence: int(util.GetEnvNumeric("GRAPH_MIN_CO_OCCURRENCE", 2)),
	})
}

// EnsureGraphReady rebuilds the graph at worker startup when the store is
// empty, so a fresh deployment serves data without waiting for an admin
// rebuild request. The corpus is only loaded when a rebuild is actually
// needed. A busy lease means another worker is already building.
func EnsureGraphReady(ctx context.Context, pool *pgxpool.Pool, loader *corpus.Loader, source string) error {
	if source == "" {
		logger.Debug("[Queue] No corpus source configured, skipping startup graph check")
		return nil
	}

	builder := newGraphBuilder(pool)
	locks := leaselock.New(pool)
	err := locks.WithLease(ctx, buildLeaseKey, leaselock.Options{TTL: 30 * time.Minute}, func(ctx context.Context) error {
		return builder.EnsureReady(ctx, func(ctx context.Context) ([]common.Article, error) {
			return util.RetryWithContext(ctx, 3, func(ctx context.Context) ([]common.Article, error) {
				return loader.Load(ctx, source)
			})
		})
	})
	if errors.Is(err, leaselock.ErrBusy) {
		return nil
	}
	return err
}

// ProcessRebuildMessage loads the corpus named in the job and rebuilds the
// graph under the build lease. A busy lease means another worker is already
// rebuilding; the job is dropped as done rather than duplicated.
func ProcessRebuildMessage(
	ctx context.Context,
	pool *pgxpool.Pool,
	loader *corpus.Loader,
	body string,
) error {
	var job RebuildJob
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return fmt.Errorf("failed to decode rebuild job: %w", err)
	}
	if job.CorpusSource == "" {
		return errors.New("rebuild job has no corpus source")
	}

	logger.Info("[Queue] Rebuild job received", "correlation_id", job.CorrelationID, "source", job.CorpusSource)

	articles, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) ([]common.Article, error) {
		return loader.Load(ctx, job.CorpusSource)
	})
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	builder := newGraphBuilder(pool)
	locks := leaselock.New(pool)
	err = locks.WithLease(ctx, buildLeaseKey, leaselock.Options{TTL: 30 * time.Minute}, func(ctx context.Context) error {
		stats, err := builder.Build(ctx, articles)
		if err != nil {
			return err
		}
		logger.Info("[Queue] Rebuild completed",
			"correlation_id", job.CorrelationID,
			"nodes", stats.Nodes,
			"edges", stats.Edges,
		)
		return nil
	})
	if errors.Is(err, leaselock.ErrBusy) {
		logger.Warn("[Queue] Rebuild already running elsewhere, dropping job", "correlation_id", job.CorrelationID)
		return nil
	}
	return err
}
