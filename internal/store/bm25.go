// Package store holds the two read-only indexes built once over a Corpus:
// BM25Index (sparse/lexical) and FlatIndex (dense/semantic, brute-force).
// Both are addressed by corpus position so their score vectors can be
// combined positionally without a join.
package store

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// BM25Params are the Okapi BM25 tuning constants.
type BM25Params struct {
	K1 float64
	B  float64
}

// DefaultBM25Params are the spec's stated defaults.
var DefaultBM25Params = BM25Params{K1: 1.5, B: 0.75}

// BM25Index is the self-contained {df, tf, doc_len, avgdl, k1, b} model
// named in the data model: built once from a tokenized corpus, read-only
// thereafter.
type BM25Index struct {
	CorpusSize int
	Avgdl      float64
	DF         map[string]int
	TF         []map[string]int
	DocLen     []int
	Params     BM25Params
}

// BuildBM25 builds a BM25Index from the tokenized corpus. docs[i] is the
// token list for corpus position i.
func BuildBM25(docs [][]string, params BM25Params) *BM25Index {
	n := len(docs)
	idx := &BM25Index{
		CorpusSize: n,
		DF:         make(map[string]int),
		TF:         make([]map[string]int, n),
		DocLen:     make([]int, n),
		Params:     params,
	}

	totalLen := 0
	for i, tokens := range docs {
		idx.DocLen[i] = len(tokens)
		totalLen += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		idx.TF[i] = tf

		for t := range tf {
			idx.DF[t]++
		}
	}

	if n > 0 {
		idx.Avgdl = float64(totalLen) / float64(n)
	}

	return idx
}

// idf computes ln((N - df + 0.5)/(df + 0.5) + 1) for term t.
func (idx *BM25Index) idf(t string) float64 {
	df := float64(idx.DF[t])
	n := float64(idx.CorpusSize)
	return math.Log((n-df+0.5)/(df+0.5) + 1)
}

// Score returns a length-N vector of BM25 scores for query tokens q. An
// all-unknown (or empty) query yields the zero vector, never an error or
// NaN (T3).
func (idx *BM25Index) Score(q []string) []float64 {
	scores := make([]float64, idx.CorpusSize)
	if idx.CorpusSize == 0 || len(q) == 0 {
		return scores
	}

	k1, b := idx.Params.K1, idx.Params.B
	avgdl := idx.Avgdl
	if avgdl == 0 {
		avgdl = 1 // corpus of all-empty documents; denominator still well-defined
	}

	// Precompute idf per distinct query term once.
	idfByTerm := make(map[string]float64)
	for _, t := range q {
		if _, ok := idfByTerm[t]; !ok {
			idfByTerm[t] = idx.idf(t)
		}
	}

	for d := 0; d < idx.CorpusSize; d++ {
		dl := float64(idx.DocLen[d])
		tf := idx.TF[d]
		var s float64
		for t, termIdf := range idfByTerm {
			f := float64(tf[t])
			if f == 0 {
				continue
			}
			denom := f + k1*(1-b+b*dl/avgdl)
			s += termIdf * (f * (k1 + 1)) / denom
		}
		scores[d] = s
	}

	return scores
}

// bm25Persisted is the gob-encodable form of BM25Index (same fields,
// exported for gob visibility — BM25Index's fields are already exported).
type bm25Persisted = BM25Index

// Save persists the index atomically: write to a temp file in the same
// directory, then rename, matching the teacher's index-persistence idiom.
func (idx *BM25Index) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp bm25 file: %w", err)
	}

	enc := gob.NewEncoder(file)
	if err := enc.Encode((*bm25Persisted)(idx)); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode bm25 index: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close bm25 file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// LoadBM25 loads a previously-saved index.
func LoadBM25(path string) (*BM25Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var idx BM25Index
	dec := gob.NewDecoder(file)
	if err := dec.Decode(&idx); err != nil {
		return nil, fmt.Errorf("decode bm25 index: %w", err)
	}
	return &idx, nil
}
