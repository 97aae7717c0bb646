package pgx

import (
	"context"
	"fmt"

	"github.com/astrobio/biograph/backend/pkg/common"
)

const articleEntitiesSQL = `
SELECT a.article_id, e.name
FROM mentions m
JOIN articles a ON a.id = m.article_id
JOIN entities e ON e.id = m.entity_id
ORDER BY a.article_id, e.name;
`

const allEntitiesSQL = `
SELECT name, type, frequency, degree, importance
FROM entities
ORDER BY name;
`

const allCoOccurrencesSQL = `
SELECT source_name, target_name, weight, co_occurrence_count, shared_articles
FROM co_occurrences
ORDER BY source_name, target_name;
`

const coOccurrencesAmongSQL = `
SELECT source_name, target_name, weight, co_occurrence_count, shared_articles
FROM co_occurrences
WHERE source_name = ANY($1) AND target_name = ANY($1)
ORDER BY source_name, target_name;
`

const statsSQL = `
SELECT
    (SELECT count(*) FROM articles) + (SELECT count(*) FROM entities)       AS nodes,
    (SELECT count(*) FROM mentions) + (SELECT count(*) FROM co_occurrences) AS edges;
`

const topEntitiesSQL = `
SELECT name, type, frequency, degree, importance
FROM entities
WHERE importance IS NOT NULL
ORDER BY importance DESC, name ASC
LIMIT $1;
`

const allScoredEntitiesSQL = `
SELECT name, type, frequency, degree, importance
FROM entities
WHERE importance IS NOT NULL
ORDER BY importance DESC, name ASC;
`

const entityNeighborsSQL = `
SELECT
    CASE WHEN source_name = $1 THEN target_name ELSE source_name END AS target,
    weight, co_occurrence_count, shared_articles
FROM co_occurrences
WHERE source_name = $1 OR target_name = $1
ORDER BY weight DESC, target ASC
LIMIT $2;
`

func (s *GraphDBStorage) ArticleEntities(ctx context.Context) (map[string][]string, error) {
	rows, err := s.conn.Query(ctx, articleEntitiesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query article mentions: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var articleID, name string
		if err := rows.Scan(&articleID, &name); err != nil {
			return nil, err
		}
		out[articleID] = append(out[articleID], name)
	}
	return out, rows.Err()
}

func (s *GraphDBStorage) AllEntities(ctx context.Context) ([]common.Entity, error) {
	return s.queryEntities(ctx, allEntitiesSQL)
}

func (s *GraphDBStorage) AllCoOccurrences(ctx context.Context) ([]common.CoOccurrence, error) {
	return s.queryCoOccurrences(ctx, allCoOccurrencesSQL)
}

func (s *GraphDBStorage) CoOccurrencesAmong(ctx context.Context, names []string) ([]common.CoOccurrence, error) {
	if len(names) == 0 {
		return []common.CoOccurrence{}, nil
	}
	return s.queryCoOccurrences(ctx, coOccurrencesAmongSQL, names)
}

func (s *GraphDBStorage) Stats(ctx context.Context) (common.GraphStats, error) {
	var stats common.GraphStats
	err := s.conn.QueryRow(ctx, statsSQL).Scan(&stats.Nodes, &stats.Edges)
	if err != nil {
		return common.GraphStats{}, fmt.Errorf("failed to query graph stats: %w", err)
	}
	return stats, nil
}

func (s *GraphDBStorage) TopEntities(ctx context.Context, limit int) ([]common.Entity, error) {
	if limit <= 0 {
		return s.queryEntities(ctx, allScoredEntitiesSQL)
	}
	return s.queryEntities(ctx, topEntitiesSQL, limit)
}

func (s *GraphDBStorage) EntityNeighbors(ctx context.Context, name string, limit int) ([]common.Neighbor, error) {
	// LIMIT NULL means no limit.
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.conn.Query(ctx, entityNeighborsSQL, name, limitArg)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity neighbors: %w", err)
	}
	defer rows.Close()

	neighbors := make([]common.Neighbor, 0)
	for rows.Next() {
		var n common.Neighbor
		if err := rows.Scan(&n.Target, &n.Weight, &n.CoOccurrenceCount, &n.SharedArticles); err != nil {
			return nil, err
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}

func (s *GraphDBStorage) queryEntities(ctx context.Context, sql string, args ...any) ([]common.Entity, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	entities := make([]common.Entity, 0)
	for rows.Next() {
		var e common.Entity
		if err := rows.Scan(&e.Name, &e.Type, &e.Frequency, &e.Degree, &e.Importance); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (s *GraphDBStorage) queryCoOccurrences(ctx context.Context, sql string, args ...any) ([]common.CoOccurrence, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query co-occurrences: %w", err)
	}
	defer rows.Close()

	edges := make([]common.CoOccurrence, 0)
	for rows.Next() {
		var e common.CoOccurrence
		if err := rows.Scan(&e.Source, &e.Target, &e.Weight, &e.CoOccurrenceCount, &e.SharedArticles); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
