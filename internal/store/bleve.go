package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/aman-cerp/buglocate/internal/corpus"
	"github.com/aman-cerp/buglocate/internal/normalize"
)

// bleveAnalyzerName is the composite analyzer registered below, built from
// normalize's tokenizer and stop filter (see internal/normalize/analyzer.go).
const bleveAnalyzerName = "buglocate_analyzer"

// bleveDocument is the indexed shape: raw text only, scored by bleve's own
// TF-IDF, not the BM25Index above.
type bleveDocument struct {
	Content string `json:"content"`
}

// BuildBleveDebugIndex builds (or opens, if dir already holds one) a bleve
// full-text index over docs using normalize's registered bleve tokenizer
// (TokenizeCode) and stop filter. These split identifiers and drop stop
// words like the BM25 path does, but they do not strip URLs and they keep
// 2-character tokens. This is the `index --backend=bleve` escape hatch:
// a parallel, inspectable full-text index for ad-hoc debugging queries, not
// part of the scored BM25/Dense path.
func BuildBleveDebugIndex(dir string, docs []*corpus.Document, stop normalize.StopWords) (bleve.Index, error) {
	normalize.SetBleveStopWords(stop)

	indexMapping, err := bleveDebugMapping()
	if err != nil {
		return nil, fmt.Errorf("build bleve index mapping: %w", err)
	}

	var idx bleve.Index
	if dir == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
			return nil, fmt.Errorf("create bleve index parent directory: %w", err)
		}
		idx, err = bleve.Open(dir)
		if err != nil {
			idx, err = bleve.New(dir, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open/create bleve index: %w", err)
	}

	batch := idx.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.ID, bleveDocument{Content: d.RawText}); err != nil {
			return nil, fmt.Errorf("index document %s: %w", d.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("commit bleve batch: %w", err)
	}

	return idx, nil
}

func bleveDebugMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(bleveAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": normalize.TokenizerName,
		"token_filters": []string{
			lowercase.Name,
			normalize.StopFilterName,
		},
	})
	if err != nil {
		return nil, err
	}
	indexMapping.DefaultAnalyzer = bleveAnalyzerName
	return indexMapping, nil
}

// BleveHit is one match from DebugSearch.
type BleveHit struct {
	FileID string
	Score  float64
}

// DebugSearch runs a match query against a bleve debug index and returns the
// top limit hits ordered by bleve's own score.
func DebugSearch(ctx context.Context, idx bleve.Index, queryStr string, limit int) ([]BleveHit, error) {
	query := bleve.NewMatchQuery(queryStr)
	query.SetField("content")

	req := bleve.NewSearchRequest(query)
	req.Size = limit

	result, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	hits := make([]BleveHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, BleveHit{FileID: hit.ID, Score: hit.Score})
	}
	return hits, nil
}
