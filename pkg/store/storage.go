package store

import (
	"context"

	"github.com/astrobio/biograph/backend/pkg/common"
)

// Mention is one typed entity occurrence in an article, already normalized
// by the extractor. Callers must deduplicate mentions per article before
// handing them to UpsertMentions so frequency counts stay per-article.
type Mention struct {
	Name string
	Type string
}

// GraphStorage is the narrow port to the durable property graph. It exposes
// idempotent upserts keyed on article id / entity name and the aggregate
// reads the build and query layers need; no query dialect leaks through it,
// so the graph logic can run unchanged against the in-memory store in tests
// and the PostgreSQL adapter in production.
//
// All calls are blocking and fallible; callers supply timeouts through ctx
// and decide the retry policy. Implementations must guarantee that
// concurrent upserts of the same key never create duplicates.
type GraphStorage interface {
	// Reset deletes every article, entity and edge. Destructive: only the
	// build path may call it, and only as the first phase of a full rebuild.
	Reset(ctx context.Context) error

	// UpsertArticle inserts the article or overwrites its fields, keyed on
	// the article identifier.
	UpsertArticle(ctx context.Context, article common.Article) error

	// UpsertMentions upserts the entities mentioned by one article and the
	// MENTIONS edges from the article to them. An entity's frequency is
	// incremented only when the mention edge did not already exist, so the
	// count stays one per distinct article.
	UpsertMentions(ctx context.Context, articleID string, mentions []Mention) error

	// ArticleEntities returns, per article identifier, the distinct entity
	// names it mentions.
	ArticleEntities(ctx context.Context) (map[string][]string, error)

	// ReplaceCoOccurrences replaces the complete CO_OCCURS_WITH edge set.
	// Every edge must be canonical (Source < Target).
	ReplaceCoOccurrences(ctx context.Context, edges []common.CoOccurrence) error

	// AllEntities returns every entity with its stored counts, scored or not.
	AllEntities(ctx context.Context) ([]common.Entity, error)

	// AllCoOccurrences returns the complete CO_OCCURS_WITH edge set.
	AllCoOccurrences(ctx context.Context) ([]common.CoOccurrence, error)

	// UpdateScores writes recomputed degree and importance values.
	UpdateScores(ctx context.Context, scores []common.EntityScore) error

	// Stats returns aggregate node and edge counts over the whole graph.
	Stats(ctx context.Context) (common.GraphStats, error)

	// TopEntities returns scored entities ordered by importance descending,
	// name ascending. Entities that were never scored are excluded. A limit
	// <= 0 returns all scored entities.
	TopEntities(ctx context.Context, limit int) ([]common.Entity, error)

	// EntityNeighbors returns up to limit co-occurrence partners of the named
	// entity, ordered by weight descending. An unknown name yields an empty
	// result, not an error.
	EntityNeighbors(ctx context.Context, name string, limit int) ([]common.Neighbor, error)

	// CoOccurrencesAmong returns every CO_OCCURS_WITH edge whose both
	// endpoints are in names.
	CoOccurrencesAmong(ctx context.Context, names []string) ([]common.CoOccurrence, error)
}
