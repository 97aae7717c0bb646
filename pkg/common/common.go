package common

// Article is one research-article record from the corpus collaborator.
// Articles are immutable once ingested; re-ingestion overwrites fields
// keyed on ArticleID and never duplicates.
//
// Only articles with HasResults set participate in graph building.
type Article struct {
	ArticleID      string `json:"article_id"`
	Title          string `json:"title"`
	Link           string `json:"link"`
	ResultsFull    string `json:"results_full"`
	ResultsSummary string `json:"results_summary"`
	HasResults     bool   `json:"has_results"`
}

// Entity is a node in the co-occurrence graph: a normalized domain concept
// (gene, organism, condition, measurement, process) extracted from article
// text. Name is the globally unique key.
//
// Frequency counts the distinct articles that mention the entity. Degree and
// Importance are derived values, fully recomputed on every scoring pass;
// Importance is nil for entities that have never been scored, and such
// entities are excluded from ranked queries.
type Entity struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Frequency  int      `json:"frequency"`
	Degree     int      `json:"degree"`
	Importance *float64 `json:"importance"`
}

// CoOccurrence is an undirected edge between two entities that are both
// mentioned in at least the configured minimum number of shared articles.
// The pair is stored canonically with Source < Target (lexicographic) so a
// reversed duplicate can never exist.
//
// Weight, CoOccurrenceCount and SharedArticles all carry the shared-article
// count; the redundant fields are kept for API compatibility with existing
// consumers.
type CoOccurrence struct {
	Source            string  `json:"source"`
	Target            string  `json:"target"`
	Weight            float64 `json:"weight"`
	CoOccurrenceCount int     `json:"co_occurrence_count"`
	SharedArticles    int     `json:"shared_articles"`
}

// Neighbor is one co-occurrence partner of a queried entity.
type Neighbor struct {
	Target            string  `json:"target"`
	Weight            float64 `json:"weight"`
	CoOccurrenceCount int     `json:"co_occurrence_count"`
	SharedArticles    int     `json:"shared_articles"`
}

// EntityScore carries a recomputed degree/importance pair for one entity.
type EntityScore struct {
	Name       string
	Degree     int
	Importance float64
}

// GraphStats are aggregate counts over the whole stored graph. Nodes counts
// Article and Entity nodes together, Edges counts MENTIONS and
// CO_OCCURS_WITH edges together. A zero-node graph signals that a rebuild
// is needed.
type GraphStats struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}
