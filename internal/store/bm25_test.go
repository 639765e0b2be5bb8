package store

import (
	"math"
	"testing"
)

func TestBuildBM25_InvariantsHold(t *testing.T) {
	// Given: a small tokenized corpus
	docs := [][]string{
		{"database", "connection", "timeout"},
		{"user", "login", "form"},
		{"network", "socket", "retry"},
	}

	// When: building the index
	idx := BuildBM25(docs, DefaultBM25Params)

	// Then: df[t] <= N, |doc_len| = N, avgdl = mean(doc_len)
	if len(idx.DocLen) != len(docs) {
		t.Fatalf("expected doc_len length %d, got %d", len(docs), len(idx.DocLen))
	}
	for t2, df := range idx.DF {
		if df > idx.CorpusSize {
			t.Errorf("df[%s]=%d exceeds corpus size %d", t2, df, idx.CorpusSize)
		}
	}
	total := 0
	for _, l := range idx.DocLen {
		total += l
	}
	want := float64(total) / float64(len(docs))
	if math.Abs(idx.Avgdl-want) > 1e-9 {
		t.Errorf("avgdl = %f, want %f", idx.Avgdl, want)
	}
}

func TestScore_LengthNAndFinite(t *testing.T) {
	// Given: a built index
	docs := [][]string{{"alpha", "beta"}, {"beta", "gamma"}}
	idx := BuildBM25(docs, DefaultBM25Params)

	// When: scoring a query
	scores := idx.Score([]string{"beta"})

	// Then: length N, all finite (T3)
	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(scores))
	}
	for _, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			t.Errorf("non-finite score %v", s)
		}
	}
}

func TestScore_AllZeroQueryYieldsZeroVector(t *testing.T) {
	// Given: a built index
	docs := [][]string{{"alpha"}, {"beta"}}
	idx := BuildBM25(docs, DefaultBM25Params)

	// When: scoring an unknown (never-seen) query term
	scores := idx.Score([]string{"unknown-term"})

	// Then: zero vector (T3)
	for _, s := range scores {
		if s != 0 {
			t.Errorf("expected zero score, got %f", s)
		}
	}
}

func TestScore_EmptyQueryYieldsZeroVector(t *testing.T) {
	docs := [][]string{{"alpha"}, {"beta"}}
	idx := BuildBM25(docs, DefaultBM25Params)

	scores := idx.Score(nil)
	for _, s := range scores {
		if s != 0 {
			t.Errorf("expected zero score for empty query, got %f", s)
		}
	}
}

func TestScore_EmptyCorpusNoPanic(t *testing.T) {
	idx := BuildBM25(nil, DefaultBM25Params)
	scores := idx.Score([]string{"anything"})
	if len(scores) != 0 {
		t.Fatalf("expected empty scores, got %v", scores)
	}
}

func TestScore_MatchingDocumentScoresHigherThanNonMatching(t *testing.T) {
	// Given: corpus with one clearly-matching and one non-matching document
	docs := [][]string{
		{"database", "connection", "timeout"},
		{"user", "login", "form"},
	}
	idx := BuildBM25(docs, DefaultBM25Params)

	// When: scoring "database timeout"
	scores := idx.Score([]string{"database", "timeout"})

	// Then: S1 — doc 0 outranks doc 1
	if !(scores[0] > scores[1]) {
		t.Fatalf("expected doc 0 to outscore doc 1, got %v", scores)
	}
}

func TestSaveLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	docs := [][]string{{"alpha", "beta"}, {"beta", "gamma"}}
	idx := BuildBM25(docs, DefaultBM25Params)

	path := dir + "/bm25.gob"
	if err := idx.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadBM25(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.CorpusSize != idx.CorpusSize || loaded.Avgdl != idx.Avgdl {
		t.Fatalf("round-trip mismatch: %+v vs %+v", loaded, idx)
	}
}
