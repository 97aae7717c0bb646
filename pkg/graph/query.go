package graph

import (
	"context"

	"github.com/astrobio/biograph/backend/pkg/common"
	"github.com/astrobio/biograph/backend/pkg/store"
)

const (
	// snapshotNodeCap bounds the visualization snapshot to the
	// highest-importance entities. Edges among the selected nodes are
	// never capped.
	snapshotNodeCap = 150

	defaultTopEntities    = 20
	defaultMaxConnections = 10
)

// SnapshotNode is one visualization node. Size is a display hint derived
// from importance, never below the visible minimum.
type SnapshotNode struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Size      float64 `json:"size"`
	Frequency int     `json:"frequency"`
	Degree    int     `json:"degree"`
}

// SnapshotEdge is one visualization edge between two snapshot nodes.
type SnapshotEdge struct {
	Source            string  `json:"source"`
	Target            string  `json:"target"`
	Weight            float64 `json:"weight"`
	CoOccurrenceCount int     `json:"co_occurrence_count"`
}

// SnapshotStats summarizes a snapshot. Density is edges over the maximum
// possible undirected edge count, 0 when fewer than 2 nodes.
type SnapshotStats struct {
	TotalNodes int     `json:"total_nodes"`
	TotalEdges int     `json:"total_edges"`
	Density    float64 `json:"density"`
}

// Snapshot is a cohesive subgraph for visualization: a bounded node set plus
// the complete edge set induced on it.
type Snapshot struct {
	Nodes []SnapshotNode `json:"nodes"`
	Edges []SnapshotEdge `json:"edges"`
	Stats SnapshotStats  `json:"stats"`
}

// QueryService is the read side of the graph. All methods are side-effect
// free and safe to run concurrently with each other; queries against an
// empty or unbuilt graph return empty results, never errors.
type QueryService struct {
	store store.GraphStorage
}

// NewQueryService creates a QueryService over the given graph store.
func NewQueryService(s store.GraphStorage) *QueryService {
	return &QueryService{store: s}
}

// TopEntities returns up to n entities ordered by importance descending,
// ties broken by name so the order is stable. Entities that were never
// scored are excluded entirely. n <= 0 falls back to the default of 20.
func (q *QueryService) TopEntities(ctx context.Context, n int) ([]common.Entity, error) {
	if n <= 0 {
		n = defaultTopEntities
	}
	return q.store.TopEntities(ctx, n)
}

// EntityRelationships returns up to maxConnections co-occurrence partners of
// the named entity, ordered by weight descending. An unknown entity name
// yields an empty result.
func (q *QueryService) EntityRelationships(ctx context.Context, name string, maxConnections int) ([]common.Neighbor, error) {
	if maxConnections <= 0 {
		maxConnections = defaultMaxConnections
	}
	return q.store.EntityNeighbors(ctx, name, maxConnections)
}

// GraphSnapshot selects up to 150 highest-importance entities and returns
// them with every co-occurrence edge whose both endpoints were selected.
// The edge set is the full induced subgraph, not a top-K approximation.
func (q *QueryService) GraphSnapshot(ctx context.Context) (*Snapshot, error) {
	entities, err := q.store.TopEntities(ctx, snapshotNodeCap)
	if err != nil {
		return nil, err
	}

	nodes := make([]SnapshotNode, 0, len(entities))
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		size := 5.0
		if e.Importance != nil && *e.Importance > 0 {
			size = *e.Importance * 5
		}
		nodes = append(nodes, SnapshotNode{
			ID:        e.Name,
			Label:     e.Name,
			Size:      size,
			Frequency: e.Frequency,
			Degree:    e.Degree,
		})
		names = append(names, e.Name)
	}

	induced, err := q.store.CoOccurrencesAmong(ctx, names)
	if err != nil {
		return nil, err
	}

	edges := make([]SnapshotEdge, 0, len(induced))
	for _, e := range induced {
		edges = append(edges, SnapshotEdge{
			Source:            e.Source,
			Target:            e.Target,
			Weight:            e.Weight,
			CoOccurrenceCount: e.CoOccurrenceCount,
		})
	}

	density := 0.0
	if len(nodes) > 1 {
		density = float64(len(edges)) / (float64(len(nodes)) * float64(len(nodes)-1) / 2)
	}

	return &Snapshot{
		Nodes: nodes,
		Edges: edges,
		Stats: SnapshotStats{
			TotalNodes: len(nodes),
			TotalEdges: len(edges),
			Density:    density,
		},
	}, nil
}

// Communities groups all scored entities into buckets keyed by degree band
// and entity type ("high_degree_<type>", "medium_degree_<type>",
// "low_degree_<type>"). This is a cheap deterministic heuristic, not real
// community detection: no graph partitioning happens, the bands are fixed
// degree thresholds (>5 high, >2 medium, rest low).
func (q *QueryService) Communities(ctx context.Context) (map[string][]string, error) {
	entities, err := q.store.TopEntities(ctx, 0)
	if err != nil {
		return nil, err
	}

	communities := make(map[string][]string)
	for _, e := range entities {
		var band string
		switch {
		case e.Degree > 5:
			band = "high"
		case e.Degree > 2:
			band = "medium"
		default:
			band = "low"
		}
		key := band + "_degree_" + e.Type
		communities[key] = append(communities[key], e.Name)
	}
	return communities, nil
}
