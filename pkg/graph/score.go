package graph

import (
	"context"
	"math"

	"github.com/astrobio/biograph/backend/pkg/common"
	"github.com/astrobio/biograph/backend/pkg/logger"
	"github.com/astrobio/biograph/backend/pkg/store"
)

// Scorer recomputes per-entity degree and importance from the stored graph.
type Scorer struct {
	store store.GraphStorage
}

// NewScorer creates a Scorer over the given graph store.
func NewScorer(s store.GraphStorage) *Scorer {
	return &Scorer{store: s}
}

// Score recomputes degree and importance for every entity and writes the
// results back to the store. Degree is the number of distinct co-occurrence
// partners; importance is frequency * ln(degree+1).
//
// Frequency alone over-weights common but isolated terms. The logarithmic
// degree factor rewards entities that bridge many concepts while damping
// very high degrees, and it pins importance to 0 for degree-0 entities no
// matter how frequent they are.
//
// Score is a full recompute every time; there is no incremental path.
func (s *Scorer) Score(ctx context.Context) error {
	entities, err := s.store.AllEntities(ctx)
	if err != nil {
		return err
	}

	edges, err := s.store.AllCoOccurrences(ctx)
	if err != nil {
		return err
	}

	// Each canonical edge contributes one partner to both endpoints.
	degrees := make(map[string]int, len(entities))
	for _, e := range edges {
		degrees[e.Source]++
		degrees[e.Target]++
	}

	scores := make([]common.EntityScore, 0, len(entities))
	for _, entity := range entities {
		degree := degrees[entity.Name]
		scores = append(scores, common.EntityScore{
			Name:       entity.Name,
			Degree:     degree,
			Importance: float64(entity.Frequency) * math.Log(float64(degree)+1),
		})
	}

	if err := s.store.UpdateScores(ctx, scores); err != nil {
		return err
	}

	logger.Info("[Graph] Importance scores updated", "entities", len(scores))
	return nil
}
