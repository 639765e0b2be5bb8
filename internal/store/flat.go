package store

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/aman-cerp/buglocate/internal/bugerr"
)

// Metric selects how raw distance/similarity is turned into a "higher is
// better" score.
type Metric string

const (
	MetricL2     Metric = "l2"
	MetricCosine Metric = "cosine"
)

// FlatIndex is the flat (brute-force) dense index named in the data model:
// an N×dim matrix addressed by corpus position. Not an approximate index —
// every query scores every row.
type FlatIndex struct {
	Dim       int
	Metric    Metric
	Vectors   [][]float32
	ModelID   string // embedder model id, recorded for IndexMismatch checks
}

// BuildFlat constructs a FlatIndex from N embedding vectors, one per corpus
// position, L2-normalizing them in place when metric is cosine so inner
// product stands in for cosine similarity.
func BuildFlat(vectors [][]float32, metric Metric, modelID string) (*FlatIndex, error) {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dim %d, expected %d", i, len(v), dim)
		}
	}

	idx := &FlatIndex{Dim: dim, Metric: metric, Vectors: vectors, ModelID: modelID}
	if metric == MetricCosine {
		for _, v := range idx.Vectors {
			normalizeInPlace(v)
		}
	}
	return idx, nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	mag := math.Sqrt(sumSquares)
	if mag == 0 {
		return
	}
	for i, x := range v {
		v[i] = float32(float64(x) / mag)
	}
}

// Score returns a length-N "higher is better" similarity vector for query
// vector q, brute-force over every row.
func (idx *FlatIndex) Score(q []float32) []float64 {
	n := len(idx.Vectors)
	scores := make([]float64, n)
	if n == 0 {
		return scores
	}

	if idx.Metric == MetricCosine {
		qn := append([]float32(nil), q...)
		normalizeInPlace(qn)
		q = qn
	}

	for i, v := range idx.Vectors {
		switch idx.Metric {
		case MetricL2:
			scores[i] = -l2Distance(v, q)
		default: // cosine via inner product of normalized vectors
			scores[i] = innerProduct(v, q)
		}
	}
	return scores
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func innerProduct(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// flatMeta is the gob-persisted metadata written alongside the vector
// blob, mirroring the teacher's atomic-save idiom (saveMetadata/
// loadMetadata, temp file + rename).
type flatMeta struct {
	Dim        int
	Metric     Metric
	ModelID    string
	CorpusSize int
}

// Save persists the index atomically as two files: "<path>" holding the raw
// vectors (gob) and "<path>.meta" holding dim/metric/model id/corpus size
// for the IndexMismatch check on load.
func (idx *FlatIndex) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	if err := atomicGobWrite(path, idx.Vectors); err != nil {
		return fmt.Errorf("save flat vectors: %w", err)
	}

	meta := flatMeta{Dim: idx.Dim, Metric: idx.Metric, ModelID: idx.ModelID, CorpusSize: len(idx.Vectors)}
	if err := atomicGobWrite(path+".meta", meta); err != nil {
		return fmt.Errorf("save flat metadata: %w", err)
	}
	return nil
}

// LoadFlat loads a previously-saved index and checks it against the
// current corpus size and embedding model id, failing with
// bugerr.KindIndexMismatch on any discrepancy.
func LoadFlat(path string, wantCorpusSize int, wantModelID string) (*FlatIndex, error) {
	var meta flatMeta
	if err := atomicGobRead(path+".meta", &meta); err != nil {
		return nil, fmt.Errorf("load flat metadata: %w", err)
	}

	if meta.CorpusSize != wantCorpusSize {
		return nil, bugerr.New(bugerr.KindIndexMismatch,
			fmt.Sprintf("index corpus size %d does not match current corpus size %d", meta.CorpusSize, wantCorpusSize), nil)
	}
	if meta.ModelID != wantModelID {
		return nil, bugerr.New(bugerr.KindIndexMismatch,
			fmt.Sprintf("index embedding model %q does not match current model %q", meta.ModelID, wantModelID), nil)
	}

	var vectors [][]float32
	if err := atomicGobRead(path, &vectors); err != nil {
		return nil, fmt.Errorf("load flat vectors: %w", err)
	}

	return &FlatIndex{Dim: meta.Dim, Metric: meta.Metric, Vectors: vectors, ModelID: meta.ModelID}, nil
}

func atomicGobWrite(path string, v interface{}) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	enc := gob.NewEncoder(file)
	if err := enc.Encode(v); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func atomicGobRead(path string, v interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gob.NewDecoder(file).Decode(v)
}
