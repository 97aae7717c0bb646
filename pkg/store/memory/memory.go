// Package memory provides an in-memory GraphStorage used by tests and the
// standalone dev mode. It mirrors the PostgreSQL adapter's semantics
// (idempotent keyed upserts, canonical co-occurrence pairs, nullable
// importance) without any I/O.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/astrobio/biograph/backend/pkg/common"
	"github.com/astrobio/biograph/backend/pkg/store"
)

type entityRecord struct {
	entityType string
	frequency  int
	degree     int
	importance *float64
}

// GraphMemStorage implements store.GraphStorage backed by maps. Safe for
// concurrent use; reads take a shared lock so queries can run in parallel.
type GraphMemStorage struct {
	mu       sync.RWMutex
	articles map[string]common.Article
	entities map[string]*entityRecord
	mentions map[string]map[string]struct{} // article id -> entity names
	edges    map[[2]string]common.CoOccurrence
}

// NewGraphMemStorage returns an empty in-memory graph store.
func NewGraphMemStorage() *GraphMemStorage {
	s := &GraphMemStorage{}
	s.reset()
	return s
}

func (s *GraphMemStorage) reset() {
	s.articles = make(map[string]common.Article)
	s.entities = make(map[string]*entityRecord)
	s.mentions = make(map[string]map[string]struct{})
	s.edges = make(map[[2]string]common.CoOccurrence)
}

func (s *GraphMemStorage) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

func (s *GraphMemStorage) UpsertArticle(ctx context.Context, article common.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[article.ArticleID] = article
	return nil
}

func (s *GraphMemStorage) UpsertMentions(ctx context.Context, articleID string, mentions []store.Mention) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mentioned, ok := s.mentions[articleID]
	if !ok {
		mentioned = make(map[string]struct{})
		s.mentions[articleID] = mentioned
	}

	for _, m := range mentions {
		rec, ok := s.entities[m.Name]
		if !ok {
			rec = &entityRecord{entityType: m.Type}
			s.entities[m.Name] = rec
		}
		if _, ok := mentioned[m.Name]; ok {
			continue
		}
		mentioned[m.Name] = struct{}{}
		rec.frequency++
	}
	return nil
}

func (s *GraphMemStorage) ArticleEntities(ctx context.Context) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.mentions))
	for articleID, names := range s.mentions {
		list := make([]string, 0, len(names))
		for name := range names {
			list = append(list, name)
		}
		sort.Strings(list)
		out[articleID] = list
	}
	return out, nil
}

func (s *GraphMemStorage) ReplaceCoOccurrences(ctx context.Context, edges []common.CoOccurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.edges = make(map[[2]string]common.CoOccurrence, len(edges))
	for _, e := range edges {
		s.edges[[2]string{e.Source, e.Target}] = e
	}
	return nil
}

func (s *GraphMemStorage) AllEntities(ctx context.Context) ([]common.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.Entity, 0, len(s.entities))
	for name, rec := range s.entities {
		out = append(out, s.toEntity(name, rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *GraphMemStorage) AllCoOccurrences(ctx context.Context) ([]common.CoOccurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedEdges(func(common.CoOccurrence) bool { return true }), nil
}

func (s *GraphMemStorage) UpdateScores(ctx context.Context, scores []common.EntityScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range scores {
		rec, ok := s.entities[sc.Name]
		if !ok {
			continue
		}
		importance := sc.Importance
		rec.degree = sc.Degree
		rec.importance = &importance
	}
	return nil
}

func (s *GraphMemStorage) Stats(ctx context.Context) (common.GraphStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mentionCount := 0
	for _, names := range s.mentions {
		mentionCount += len(names)
	}
	return common.GraphStats{
		Nodes: len(s.articles) + len(s.entities),
		Edges: mentionCount + len(s.edges),
	}, nil
}

func (s *GraphMemStorage) TopEntities(ctx context.Context, limit int) ([]common.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]common.Entity, 0, len(s.entities))
	for name, rec := range s.entities {
		if rec.importance == nil {
			continue
		}
		scored = append(scored, s.toEntity(name, rec))
	}
	sort.Slice(scored, func(i, j int) bool {
		if *scored[i].Importance != *scored[j].Importance {
			return *scored[i].Importance > *scored[j].Importance
		}
		return scored[i].Name < scored[j].Name
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *GraphMemStorage) EntityNeighbors(ctx context.Context, name string, limit int) ([]common.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	neighbors := make([]common.Neighbor, 0)
	for pair, edge := range s.edges {
		var target string
		switch name {
		case pair[0]:
			target = pair[1]
		case pair[1]:
			target = pair[0]
		default:
			continue
		}
		neighbors = append(neighbors, common.Neighbor{
			Target:            target,
			Weight:            edge.Weight,
			CoOccurrenceCount: edge.CoOccurrenceCount,
			SharedArticles:    edge.SharedArticles,
		})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Weight != neighbors[j].Weight {
			return neighbors[i].Weight > neighbors[j].Weight
		}
		return neighbors[i].Target < neighbors[j].Target
	})
	if limit > 0 && len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

func (s *GraphMemStorage) CoOccurrencesAmong(ctx context.Context, names []string) ([]common.CoOccurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	selected := make(map[string]struct{}, len(names))
	for _, n := range names {
		selected[n] = struct{}{}
	}
	return s.sortedEdges(func(e common.CoOccurrence) bool {
		_, okS := selected[e.Source]
		_, okT := selected[e.Target]
		return okS && okT
	}), nil
}

func (s *GraphMemStorage) toEntity(name string, rec *entityRecord) common.Entity {
	e := common.Entity{
		Name:      name,
		Type:      rec.entityType,
		Frequency: rec.frequency,
		Degree:    rec.degree,
	}
	if rec.importance != nil {
		importance := *rec.importance
		e.Importance = &importance
	}
	return e
}

func (s *GraphMemStorage) sortedEdges(keep func(common.CoOccurrence) bool) []common.CoOccurrence {
	out := make([]common.CoOccurrence, 0, len(s.edges))
	for _, e := range s.edges {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}
