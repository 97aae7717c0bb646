package graph

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/astrobio/biograph/backend/pkg/common"
	"github.com/astrobio/biograph/backend/pkg/store"
	"github.com/astrobio/biograph/backend/pkg/store/memory"
)

// triangleCorpus is the canonical three-article example: every entity pair
// shares exactly one article.
func triangleCorpus() []common.Article {
	return []common.Article{
		{ArticleID: "A1", ResultsFull: "mice microgravity", HasResults: true},
		{ArticleID: "A2", ResultsFull: "mice bone", HasResults: true},
		{ArticleID: "A3", ResultsFull: "microgravity bone", HasResults: true},
	}
}

func entityByName(t *testing.T, entities []common.Entity, name string) common.Entity {
	t.Helper()
	for _, e := range entities {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("entity %q not found in %v", name, entities)
	return common.Entity{}
}

func TestBuildDefaultThresholdCreatesNoEdges(t *testing.T) {
	ctx := context.Background()
	s := memory.NewGraphMemStorage()
	b := NewBuilder(NewBuilderParams{Store: s})

	stats, err := b.Build(ctx, triangleCorpus())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// 3 articles + 3 entities, 6 mention edges, no co-occurrences: every
	// pair shares only one article, below the default threshold of 2.
	if stats.Nodes != 6 || stats.Edges != 6 {
		t.Fatalf("stats = %+v, want 6 nodes, 6 edges", stats)
	}

	edges, err := s.AllCoOccurrences(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 0 {
		t.Fatalf("expected no co-occurrence edges, got %v", edges)
	}

	entities, err := s.AllEntities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entities) != 3 {
		t.Fatalf("expected 3 entities, got %v", entities)
	}
	for _, name := range []string{"mice", "microgravity", "bone"} {
		e := entityByName(t, entities, name)
		if e.Frequency != 2 {
			t.Errorf("frequency(%s) = %d, want 2", name, e.Frequency)
		}
		if e.Degree != 0 {
			t.Errorf("degree(%s) = %d, want 0", name, e.Degree)
		}
		if e.Importance == nil || *e.Importance != 0 {
			t.Errorf("importance(%s) = %v, want 0", name, e.Importance)
		}
	}
}

func TestBuildThresholdOneCreatesTriangle(t *testing.T) {
	ctx := context.Background()
	s := memory.NewGraphMemStorage()
	b := NewBuilder(NewBuilderParams{Store: s, MinCoOccurrence: 1})

	stats, err := b.Build(ctx, triangleCorpus())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if stats.Nodes != 6 || stats.Edges != 9 {
		t.Fatalf("stats = %+v, want 6 nodes, 9 edges", stats)
	}

	edges, err := s.AllCoOccurrences(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []common.CoOccurrence{
		{Source: "bone", Target: "mice", Weight: 1, CoOccurrenceCount: 1, SharedArticles: 1},
		{Source: "bone", Target: "microgravity", Weight: 1, CoOccurrenceCount: 1, SharedArticles: 1},
		{Source: "mice", Target: "microgravity", Weight: 1, CoOccurrenceCount: 1, SharedArticles: 1},
	}
	if !reflect.DeepEqual(edges, want) {
		t.Fatalf("edges = %v, want %v", edges, want)
	}

	entities, err := s.AllEntities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	wantImportance := 2 * math.Log(3)
	for _, name := range []string{"mice", "microgravity", "bone"} {
		e := entityByName(t, entities, name)
		if e.Degree != 2 {
			t.Errorf("degree(%s) = %d, want 2", name, e.Degree)
		}
		if e.Importance == nil || math.Abs(*e.Importance-wantImportance) > 1e-9 {
			t.Errorf("importance(%s) = %v, want %v", name, e.Importance, wantImportance)
		}
	}
}

func TestBuildFrequencyIsPerArticle(t *testing.T) {
	ctx := context.Background()
	s := memory.NewGraphMemStorage()
	b := NewBuilder(NewBuilderParams{Store: s})

	// "mice" appears five times across title, results and summary of the
	// same article: frequency must still be 1.
	articles := []common.Article{
		{
			ArticleID:      "A1",
			Title:          "mice mice",
			ResultsFull:    "mice mice",
			ResultsSummary: "mice",
			HasResults:     true,
		},
	}
	if _, err := b.Build(ctx, articles); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	entities, err := s.AllEntities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	e := entityByName(t, entities, "mice")
	if e.Frequency != 1 {
		t.Fatalf("frequency(mice) = %d, want 1", e.Frequency)
	}
}

func TestBuildSkipsUnusableArticles(t *testing.T) {
	ctx := context.Background()
	s := memory.NewGraphMemStorage()
	b := NewBuilder(NewBuilderParams{Store: s})

	articles := []common.Article{
		{ArticleID: "A1", ResultsFull: "mice microgravity", HasResults: true},
		{ArticleID: "A2", ResultsFull: "mice bone", HasResults: false},
		{ArticleID: "", ResultsFull: "microgravity bone", HasResults: true},
	}
	if _, err := b.Build(ctx, articles); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	mapping, err := s.ArticleEntities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string][]string{"A1": {"mice", "microgravity"}}
	if !reflect.DeepEqual(mapping, want) {
		t.Fatalf("ingested articles = %v, want %v", mapping, want)
	}
}

func TestBuildIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.NewGraphMemStorage()
	b := NewBuilder(NewBuilderParams{Store: s, MinCoOccurrence: 1})

	first, err := b.Build(ctx, triangleCorpus())
	if err != nil {
		t.Fatalf("first Build() error = %v", err)
	}
	firstEntities, _ := s.AllEntities(ctx)
	firstEdges, _ := s.AllCoOccurrences(ctx)

	second, err := b.Build(ctx, triangleCorpus())
	if err != nil {
		t.Fatalf("second Build() error = %v", err)
	}
	secondEntities, _ := s.AllEntities(ctx)
	secondEdges, _ := s.AllCoOccurrences(ctx)

	if first != second {
		t.Errorf("stats differ: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(firstEntities, secondEntities) {
		t.Errorf("entities differ: %v vs %v", firstEntities, secondEntities)
	}
	if !reflect.DeepEqual(firstEdges, secondEdges) {
		t.Errorf("edges differ: %v vs %v", firstEdges, secondEdges)
	}
}

func TestBuildRejectsConcurrentRun(t *testing.T) {
	s := memory.NewGraphMemStorage()
	b := NewBuilder(NewBuilderParams{Store: s})

	b.buildMu.Lock()
	defer b.buildMu.Unlock()

	_, err := b.Build(context.Background(), triangleCorpus())
	if !errors.Is(err, ErrBuildInProgress) {
		t.Fatalf("expected ErrBuildInProgress, got %v", err)
	}
}

type failingStore struct {
	store.GraphStorage
	resetErr error
}

func (f *failingStore) Reset(ctx context.Context) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	return f.GraphStorage.Reset(ctx)
}

func TestBuildAbortsOnStoreFailure(t *testing.T) {
	storeErr := errors.New("connection refused")
	s := &failingStore{GraphStorage: memory.NewGraphMemStorage(), resetErr: storeErr}
	b := NewBuilder(NewBuilderParams{Store: s})

	_, err := b.Build(context.Background(), triangleCorpus())
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}

func TestEnsureReady(t *testing.T) {
	ctx := context.Background()
	s := memory.NewGraphMemStorage()
	b := NewBuilder(NewBuilderParams{Store: s})

	loads := 0
	load := func(context.Context) ([]common.Article, error) {
		loads++
		return triangleCorpus(), nil
	}

	if err := b.EnsureReady(ctx, load); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}
	stats, err := b.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Nodes == 0 {
		t.Fatal("expected graph to be built")
	}

	// Second call sees a populated graph: no rebuild and no corpus load.
	if err := b.EnsureReady(ctx, load); err != nil {
		t.Fatalf("EnsureReady() second call error = %v", err)
	}
	if loads != 1 {
		t.Fatalf("corpus loaded %d times, want 1", loads)
	}
	after, err := b.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if after != stats {
		t.Fatalf("stats changed from %+v to %+v", stats, after)
	}
}

func TestEnsureReadyPropagatesLoadError(t *testing.T) {
	b := NewBuilder(NewBuilderParams{Store: memory.NewGraphMemStorage()})

	loadErr := errors.New("corpus unavailable")
	err := b.EnsureReady(context.Background(), func(context.Context) ([]common.Article, error) {
		return nil, loadErr
	})
	if !errors.Is(err, loadErr) {
		t.Fatalf("expected load error to propagate, got %v", err)
	}
}

func TestArticleMentionsDedupeAcrossCategories(t *testing.T) {
	b := NewBuilder(NewBuilderParams{Store: memory.NewGraphMemStorage()})

	// "mice" matches both the gene-symbol pattern and the organism
	// vocabulary; it must appear once, typed by the first category.
	mentions := b.articleMentions("mice metabolism")

	names := make(map[string]int)
	for _, m := range mentions {
		names[m.Name]++
	}
	if names["mice"] != 1 {
		t.Fatalf("mice mentioned %d times, want 1 (mentions: %v)", names["mice"], mentions)
	}
	if names["metabolism"] != 1 {
		t.Fatalf("metabolism mentioned %d times, want 1 (mentions: %v)", names["metabolism"], mentions)
	}
}
