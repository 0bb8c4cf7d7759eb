package retriever

import (
	"sync"
	"sync/atomic"
	"testing"

	"docrag/internal/adapter/analyzer"
)

func TestBM25Scoring(t *testing.T) {
	tokenizer := analyzer.NewTokenizer(true)

	texts := []string{
		"Startup procedure for the boiler and feed pumps",
		"Max pressure 110% of rated value during test",
		"Pressure relief valve inspection and pressure gauge checks",
	}
	ix := NewBM25Index(texts, tokenizer, 1.2, 0.75)

	hits := ix.Search("max pressure", 10)
	if len(hits) != 2 {
		t.Fatalf("expected 2 matching documents, got %d: %v", len(hits), hits)
	}
	if hits[0].Pos != 1 {
		t.Errorf("expected doc 1 first (matches both terms), got %d", hits[0].Pos)
	}
	for _, h := range hits {
		if h.Pos == 0 {
			t.Errorf("doc 0 shares no terms and should not be returned")
		}
		if h.Score <= 0 {
			t.Errorf("expected positive score, got %f", h.Score)
		}
	}
}

func TestBM25_RareTermOutweighsCommon(t *testing.T) {
	tokenizer := analyzer.NewTokenizer(false)
	texts := []string{
		"valve valve valve",
		"valve torque",
		"valve seal",
		"valve flange",
	}
	ix := NewBM25Index(texts, tokenizer, 1.2, 0.75)

	hits := ix.Search("valve torque", 4)
	if len(hits) == 0 || hits[0].Pos != 1 {
		t.Errorf("expected the document with the rare term first, got %v", hits)
	}
}

func TestBM25_NoMatches(t *testing.T) {
	ix := NewBM25Index([]string{"alpha beta"}, analyzer.NewTokenizer(true), 1.2, 0.75)

	if hits := ix.Search("gamma", 5); len(hits) != 0 {
		t.Errorf("expected no hits, got %v", hits)
	}
	if hits := ix.Search("the of", 5); len(hits) != 0 {
		t.Errorf("stopword-only query should return nothing, got %v", hits)
	}
}

func TestBM25_LimitAndTies(t *testing.T) {
	texts := []string{"pump", "pump", "pump"}
	ix := NewBM25Index(texts, analyzer.NewTokenizer(false), 1.2, 0.75)

	hits := ix.Search("pump", 2)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Pos != 0 || hits[1].Pos != 1 {
		t.Errorf("equal scores should be ordered by position, got %v", hits)
	}
}

func TestBM25_EmptyIndex(t *testing.T) {
	ix := NewBM25Index(nil, analyzer.NewTokenizer(true), 1.2, 0.75)
	if hits := ix.Search("pump", 3); hits != nil {
		t.Errorf("expected nil, got %v", hits)
	}
}

func TestBM25Retriever_BuildsOnce(t *testing.T) {
	var builds atomic.Int32
	texts := func() []string {
		builds.Add(1)
		return []string{"boiler startup", "pressure limit"}
	}
	r := NewBM25Retriever(texts, analyzer.NewTokenizer(true), 0, 0.75)

	if builds.Load() != 0 {
		t.Fatal("index must not be built before the first search")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if hits := r.Search("pressure", 5); len(hits) != 1 {
				t.Errorf("expected 1 hit, got %v", hits)
			}
		}()
	}
	wg.Wait()

	if got := builds.Load(); got != 1 {
		t.Errorf("expected a single index build, got %d", got)
	}
	if r.Index().Len() != 2 {
		t.Errorf("expected 2 indexed documents, got %d", r.Index().Len())
	}
}
