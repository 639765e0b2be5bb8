package store

import (
	"math"
	"testing"
)

func TestBuildFlat_RejectsRaggedVectors(t *testing.T) {
	// Given: vectors of inconsistent dimension
	vectors := [][]float32{{1, 2, 3}, {1, 2}}

	// When: building
	_, err := BuildFlat(vectors, MetricL2, "model-a")

	// Then: error
	if err == nil {
		t.Fatal("expected error for ragged vectors")
	}
}

func TestScore_L2_IdenticalVectorScoresHighest(t *testing.T) {
	// Given: a flat index and a query identical to row 1
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	idx, err := BuildFlat(vectors, MetricL2, "model-a")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	// When: scoring the exact row-1 vector
	scores := idx.Score([]float32{0, 1, 0})

	// Then: row 1 scores highest (0 distance -> score 0, the max for L2)
	best := argmax(scores)
	if best != 1 {
		t.Fatalf("expected best=1, got %d (scores=%v)", best, scores)
	}
}

func TestScore_Cosine_IdenticalDirectionScoresHighest(t *testing.T) {
	// Given: a cosine index with vectors of varying magnitude
	vectors := [][]float32{{1, 0}, {0, 1}, {10, 0}}
	idx, err := BuildFlat(vectors, MetricCosine, "model-a")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	// When: scoring a query aligned with x-axis
	scores := idx.Score([]float32{5, 0})

	// Then: rows 0 and 2 (same direction) score equally and highest
	if math.Abs(scores[0]-scores[2]) > 1e-6 {
		t.Fatalf("expected equal scores for same-direction vectors, got %v", scores)
	}
	if !(scores[0] > scores[1]) {
		t.Fatalf("expected aligned vector to outscore orthogonal, got %v", scores)
	}
}

func TestScore_EmptyIndexReturnsEmptyVector(t *testing.T) {
	idx, err := BuildFlat(nil, MetricL2, "model-a")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	scores := idx.Score([]float32{1, 2})
	if len(scores) != 0 {
		t.Fatalf("expected empty scores, got %v", scores)
	}
}

func TestSaveLoadFlat_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	vectors := [][]float32{{1, 2}, {3, 4}}
	idx, err := BuildFlat(vectors, MetricL2, "model-a")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	path := dir + "/flat.gob"
	if err := idx.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadFlat(path, 2, "model-a")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Dim != idx.Dim || len(loaded.Vectors) != len(idx.Vectors) {
		t.Fatalf("round-trip mismatch: %+v vs %+v", loaded, idx)
	}
}

func TestLoadFlat_CorpusSizeMismatchErrors(t *testing.T) {
	dir := t.TempDir()
	vectors := [][]float32{{1, 2}, {3, 4}}
	idx, err := BuildFlat(vectors, MetricL2, "model-a")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	path := dir + "/flat.gob"
	if err := idx.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	_, err = LoadFlat(path, 3, "model-a")
	if err == nil {
		t.Fatal("expected IndexMismatch error for corpus size mismatch")
	}
}

func TestLoadFlat_ModelMismatchErrors(t *testing.T) {
	dir := t.TempDir()
	vectors := [][]float32{{1, 2}, {3, 4}}
	idx, err := BuildFlat(vectors, MetricL2, "model-a")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	path := dir + "/flat.gob"
	if err := idx.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	_, err = LoadFlat(path, 2, "model-b")
	if err == nil {
		t.Fatal("expected IndexMismatch error for model mismatch")
	}
}
