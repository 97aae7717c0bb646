package graph

import (
	"context"
	"math"
	"testing"

	"github.com/astrobio/biograph/backend/pkg/common"
	"github.com/astrobio/biograph/backend/pkg/store"
	"github.com/astrobio/biograph/backend/pkg/store/memory"
)

func TestScoreDegreeAndImportance(t *testing.T) {
	ctx := context.Background()
	s := memory.NewGraphMemStorage()

	// bone appears in 3 articles and connects to 2 partners; mice and
	// radiation each connect to bone only.
	mentionSets := map[string][]store.Mention{
		"A1": {{Name: "bone", Type: "genes_proteins"}, {Name: "mice", Type: "organisms"}},
		"A2": {{Name: "bone", Type: "genes_proteins"}, {Name: "mice", Type: "organisms"}},
		"A3": {{Name: "bone", Type: "genes_proteins"}, {Name: "radiation", Type: "conditions"}},
	}
	for articleID, mentions := range mentionSets {
		if err := s.UpsertMentions(ctx, articleID, mentions); err != nil {
			t.Fatalf("UpsertMentions(%s) error = %v", articleID, err)
		}
	}
	err := s.ReplaceCoOccurrences(ctx, []common.CoOccurrence{
		{Source: "bone", Target: "mice", Weight: 2, CoOccurrenceCount: 2, SharedArticles: 2},
		{Source: "bone", Target: "radiation", Weight: 1, CoOccurrenceCount: 1, SharedArticles: 1},
	})
	if err != nil {
		t.Fatalf("ReplaceCoOccurrences() error = %v", err)
	}

	if err := NewScorer(s).Score(ctx); err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	entities, err := s.AllEntities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name           string
		wantDegree     int
		wantImportance float64
	}{
		{"bone", 2, 3 * math.Log(3)},
		{"mice", 1, 2 * math.Log(2)},
		{"radiation", 1, 1 * math.Log(2)},
	}
	for _, tc := range cases {
		e := entityByName(t, entities, tc.name)
		if e.Degree != tc.wantDegree {
			t.Errorf("degree(%s) = %d, want %d", tc.name, e.Degree, tc.wantDegree)
		}
		if e.Importance == nil {
			t.Errorf("importance(%s) = nil, want %v", tc.name, tc.wantImportance)
			continue
		}
		if math.Abs(*e.Importance-tc.wantImportance) > 1e-9 {
			t.Errorf("importance(%s) = %v, want %v", tc.name, *e.Importance, tc.wantImportance)
		}
	}
}

func TestScoreIsolatedEntityIsZero(t *testing.T) {
	ctx := context.Background()
	s := memory.NewGraphMemStorage()

	err := s.UpsertMentions(ctx, "A1", []store.Mention{{Name: "hypoxia", Type: "conditions"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := NewScorer(s).Score(ctx); err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	entities, err := s.AllEntities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	e := entityByName(t, entities, "hypoxia")
	if e.Degree != 0 {
		t.Errorf("degree = %d, want 0", e.Degree)
	}
	// frequency * ln(0 + 1) = 0: isolated entities are scored, not skipped.
	if e.Importance == nil || *e.Importance != 0 {
		t.Errorf("importance = %v, want 0", e.Importance)
	}
}
