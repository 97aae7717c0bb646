package pgx

import (
	"context"
	"fmt"

	"github.com/astrobio/biograph/backend/pkg/common"
	"github.com/astrobio/biograph/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

const upsertArticleSQL = `
INSERT INTO articles (article_id, title, link, results_summary, results_full)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (article_id) DO UPDATE
SET title           = EXCLUDED.title,
    link            = EXCLUDED.link,
    results_summary = EXCLUDED.results_summary,
    results_full    = EXCLUDED.results_full;
`

// upsertMentionSQL creates the entity if needed (keeping the first stored
// type) and inserts the MENTIONS edge. Frequency is not touched here: a
// data-modifying CTE and the main query run against one snapshot, so an
// UPDATE in the same statement would not see the rows the CTEs insert.
// syncFrequencySQL recomputes it in a follow-up statement instead.
const upsertMentionSQL = `
WITH ent AS (
    INSERT INTO entities (name, type, frequency)
    VALUES ($2, $3, 0)
    ON CONFLICT (name) DO UPDATE SET type = entities.type
    RETURNING id
)
INSERT INTO mentions (article_id, entity_id)
SELECT a.id, ent.id FROM articles a, ent WHERE a.article_id = $1
ON CONFLICT DO NOTHING;
`

// syncFrequencySQL sets frequency to the stored MENTIONS edge count, which
// under per-article mention semantics is exactly the distinct-article count.
// Rewriting the value instead of incrementing keeps retried ingests exact.
const syncFrequencySQL = `
UPDATE entities e
SET frequency = (SELECT count(*) FROM mentions m WHERE m.entity_id = e.id)
WHERE e.name = ANY($1);
`

const updateScoresSQL = `
UPDATE entities e
SET degree = s.degree, importance = s.importance
FROM unnest($1::text[], $2::int[], $3::float8[]) AS s(name, degree, importance)
WHERE e.name = s.name;
`

func (s *GraphDBStorage) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		TRUNCATE mentions, co_occurrences, articles, entities RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		return fmt.Errorf("failed to reset graph tables: %w", err)
	}
	return nil
}

func (s *GraphDBStorage) UpsertArticle(ctx context.Context, article common.Article) error {
	_, err := s.conn.Exec(ctx, upsertArticleSQL,
		article.ArticleID,
		article.Title,
		article.Link,
		article.ResultsSummary,
		article.ResultsFull,
	)
	return err
}

func (s *GraphDBStorage) UpsertMentions(ctx context.Context, articleID string, mentions []store.Mention) error {
	if len(mentions) == 0 {
		return nil
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgxv5.Batch{}
	names := make([]string, 0, len(mentions))
	for _, m := range mentions {
		batch.Queue(upsertMentionSQL, articleID, m.Name, m.Type)
		names = append(names, m.Name)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert mentions: %w", err)
	}

	if _, err := tx.Exec(ctx, syncFrequencySQL, names); err != nil {
		return fmt.Errorf("failed to sync entity frequencies: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *GraphDBStorage) ReplaceCoOccurrences(ctx context.Context, edges []common.CoOccurrence) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM co_occurrences;`); err != nil {
		return fmt.Errorf("failed to clear co-occurrences: %w", err)
	}

	if len(edges) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgxv5.Identifier{"co_occurrences"},
			[]string{"source_name", "target_name", "weight", "co_occurrence_count", "shared_articles"},
			pgxv5.CopyFromSlice(len(edges), func(i int) ([]any, error) {
				e := edges[i]
				return []any{e.Source, e.Target, e.Weight, e.CoOccurrenceCount, e.SharedArticles}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to insert co-occurrences: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *GraphDBStorage) UpdateScores(ctx context.Context, scores []common.EntityScore) error {
	if len(scores) == 0 {
		return nil
	}

	names := make([]string, len(scores))
	degrees := make([]int32, len(scores))
	importances := make([]float64, len(scores))
	for i, sc := range scores {
		names[i] = sc.Name
		degrees[i] = int32(sc.Degree)
		importances[i] = sc.Importance
	}

	_, err := s.conn.Exec(ctx, updateScoresSQL, names, degrees, importances)
	if err != nil {
		return fmt.Errorf("failed to update entity scores: %w", err)
	}
	return nil
}
