package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/astrobio/biograph/backend/pkg/common"
	"github.com/astrobio/biograph/backend/pkg/extract"
	"github.com/astrobio/biograph/backend/pkg/logger"
	"github.com/astrobio/biograph/backend/pkg/store"

	"golang.org/x/sync/errgroup"
)

// ErrBuildInProgress is returned when Build is called while another build is
// still running. Builds fully reset the store first, so running two at once
// would be mutually destructive.
var ErrBuildInProgress = errors.New("graph build already in progress")

// Builder runs the full corpus-to-graph pipeline: reset the store, ingest
// articles and their entity mentions, aggregate co-occurrence edges, score
// importance. Reads go through QueryService instead.
//
// A Builder should be created using NewBuilder.
type Builder struct {
	store           store.GraphStorage
	extractor       *extract.Extractor
	scorer          *Scorer
	minCoOccurrence int
	parallelExtract int

	buildMu sync.Mutex
}

// NewBuilderParams configures a Builder.
//
// MinCoOccurrence is the minimum number of shared articles two entities need
// before a CO_OCCURS_WITH edge is created; it defaults to 2.
// ParallelExtract bounds how many articles are pattern-matched concurrently
// during ingest; it defaults to 4. Store writes are serialized regardless.
type NewBuilderParams struct {
	Store           store.GraphStorage
	MinCoOccurrence int
	ParallelExtract int
}

// NewBuilder creates a Builder over the given graph store.
func NewBuilder(params NewBuilderParams) *Builder {
	minCo := params.MinCoOccurrence
	if minCo <= 0 {
		minCo = 2
	}
	parallel := params.ParallelExtract
	if parallel <= 0 {
		parallel = 4
	}
	return &Builder{
		store:           params.Store,
		extractor:       extract.NewExtractor(),
		scorer:          NewScorer(params.Store),
		minCoOccurrence: minCo,
		parallelExtract: parallel,
	}
}

// Build rebuilds the whole graph from the article corpus and returns the
// aggregate node/edge counts read back from the store.
//
// The four phases run strictly in order: reset, ingest, relate, score. A
// malformed article record is skipped and logged; a store failure aborts the
// build and is returned to the caller, leaving the store flagged as stale
// (zero or partial nodes) rather than silently half-built. Running Build
// twice on the same corpus yields an identical graph.
func (b *Builder) Build(ctx context.Context, articles []common.Article) (common.GraphStats, error) {
	if !b.buildMu.TryLock() {
		return common.GraphStats{}, ErrBuildInProgress
	}
	defer b.buildMu.Unlock()

	logger.Info("[Graph] Building knowledge graph", "articles", len(articles))

	if err := b.store.Reset(ctx); err != nil {
		return common.GraphStats{}, fmt.Errorf("failed to reset graph store: %w", err)
	}

	if err := b.ingest(ctx, articles); err != nil {
		return common.GraphStats{}, fmt.Errorf("failed to ingest articles: %w", err)
	}

	if err := b.relate(ctx); err != nil {
		return common.GraphStats{}, fmt.Errorf("failed to build co-occurrence edges: %w", err)
	}

	if err := b.scorer.Score(ctx); err != nil {
		return common.GraphStats{}, fmt.Errorf("failed to score entities: %w", err)
	}

	stats, err := b.store.Stats(ctx)
	if err != nil {
		return common.GraphStats{}, fmt.Errorf("failed to read graph stats: %w", err)
	}

	logger.Info("[Graph] Build completed", "nodes", stats.Nodes, "edges", stats.Edges)
	return stats, nil
}

// EnsureReady builds the graph only when the store reports zero nodes. The
// corpus is fetched lazily through load, so a populated store costs a single
// stats query and no corpus read. It is idempotent and safe to call at any
// time; callers that find an empty graph use it instead of ad hoc rebuild
// branches.
func (b *Builder) EnsureReady(ctx context.Context, load func(context.Context) ([]common.Article, error)) error {
	stats, err := b.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read graph stats: %w", err)
	}
	if stats.Nodes > 0 {
		return nil
	}

	logger.Info("[Graph] Store is empty, triggering rebuild")
	articles, err := load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	_, err = b.Build(ctx, articles)
	if errors.Is(err, ErrBuildInProgress) {
		return nil
	}
	return err
}

// Stats returns the aggregate node/edge counts of the stored graph.
func (b *Builder) Stats(ctx context.Context) (common.GraphStats, error) {
	return b.store.Stats(ctx)
}

type ingestResult struct {
	article  common.Article
	mentions []store.Mention
}

// ingest upserts every usable article together with its extracted entity
// mentions. Extraction runs in parallel; store writes stay serialized so
// upsert order is deterministic.
func (b *Builder) ingest(ctx context.Context, articles []common.Article) error {
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.parallelExtract)

	results := make([]*ingestResult, len(articles))
	skipped := 0

	for idx, article := range articles {
		if !article.HasResults {
			continue
		}
		if article.ArticleID == "" {
			// Malformed record: log and keep going, one bad article must
			// not abort the corpus.
			logger.Warn("[Graph] Skipping article without identifier", "title", article.Title)
			skipped++
			continue
		}

		i, a := idx, article
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}
			text := strings.Join([]string{a.Title, a.ResultsFull, a.ResultsSummary}, " ")
			results[i] = &ingestResult{
				article:  a,
				mentions: b.articleMentions(text),
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}
	if skipped > 0 {
		logger.Warn("[Graph] Skipped malformed articles", "count", skipped)
	}

	ingested := 0
	for _, res := range results {
		if res == nil {
			continue
		}
		if err := b.store.UpsertArticle(ctx, res.article); err != nil {
			return fmt.Errorf("failed to upsert article %s: %w", res.article.ArticleID, err)
		}
		if err := b.store.UpsertMentions(ctx, res.article.ArticleID, res.mentions); err != nil {
			return fmt.Errorf("failed to upsert mentions for article %s: %w", res.article.ArticleID, err)
		}
		ingested++
	}

	logger.Info("[Graph] Articles ingested", "count", ingested)
	return nil
}

// articleMentions extracts entities from one article's text and deduplicates
// them by name across categories, so an entity's frequency is incremented at
// most once per article. The first matching category (extractor order)
// decides the entity type.
func (b *Builder) articleMentions(text string) []store.Mention {
	entities := b.extractor.Extract(text)

	seen := make(map[string]struct{})
	mentions := make([]store.Mention, 0)
	for _, category := range extract.Categories {
		for _, name := range entities[category] {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			mentions = append(mentions, store.Mention{Name: name, Type: category})
		}
	}
	return mentions
}

// relate rebuilds the CO_OCCURS_WITH edge set from scratch: every unordered
// entity pair sharing at least minCoOccurrence articles gets one canonical
// edge weighted by the shared-article count. Pairs below the threshold get
// none, which after the reset phase also removes edges whose pairs no longer
// qualify.
func (b *Builder) relate(ctx context.Context) error {
	articleEntities, err := b.store.ArticleEntities(ctx)
	if err != nil {
		return err
	}

	shared := make(map[[2]string]int)
	for _, names := range articleEntities {
		sorted := make([]string, len(names))
		copy(sorted, names)
		sort.Strings(sorted)
		for i := 0; i < len(sorted); i++ {
			for j := i + 1; j < len(sorted); j++ {
				shared[[2]string{sorted[i], sorted[j]}]++
			}
		}
	}

	edges := make([]common.CoOccurrence, 0, len(shared))
	for pair, count := range shared {
		if count < b.minCoOccurrence {
			continue
		}
		edges = append(edges, common.CoOccurrence{
			Source:            pair[0],
			Target:            pair[1],
			Weight:            float64(count),
			CoOccurrenceCount: count,
			SharedArticles:    count,
		})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})

	if err := b.store.ReplaceCoOccurrences(ctx, edges); err != nil {
		return err
	}

	logger.Info("[Graph] Co-occurrence edges built", "edges", len(edges), "min_shared", b.minCoOccurrence)
	return nil
}
