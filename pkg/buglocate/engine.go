// Package buglocate is the public, embeddable facade over the bug
// localization engine: build indexes once over a source corpus, then
// localize bug reports against them. Internals (normalization, BM25, the
// flat dense index, fusion, the query builder, and the staged pipeline)
// live under internal/ and are not meant to be imported directly —
// Engine is the supported entry point, following the same
// Black-Box-Design, functional-options shape the rest of this codebase
// uses for its public surface.
package buglocate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aman-cerp/buglocate/internal/bugerr"
	"github.com/aman-cerp/buglocate/internal/config"
	"github.com/aman-cerp/buglocate/internal/corpus"
	"github.com/aman-cerp/buglocate/internal/external"
	"github.com/aman-cerp/buglocate/internal/normalize"
	"github.com/aman-cerp/buglocate/internal/pipeline"
	"github.com/aman-cerp/buglocate/internal/querybuilder"
	"github.com/aman-cerp/buglocate/internal/rank"
	"github.com/aman-cerp/buglocate/internal/store"
)

// indexLockTimeout bounds how long New waits to acquire the index
// directory's artifact lock before giving up.
const indexLockTimeout = 30 * time.Second

// ErrNilCorpus is returned when constructing an Engine without a loaded corpus.
var ErrNilCorpus = errors.New("buglocate: corpus is required")

// ErrNilConfig is returned when constructing an Engine without a config.
var ErrNilConfig = errors.New("buglocate: config is required")

// Engine wraps the read-only indexes and collaborators needed to localize
// bug reports against one corpus. Safe for concurrent use by multiple
// goroutines once built: Localize and RunPipeline only read shared state.
type Engine struct {
	cfg      *config.Config
	corpus   *corpus.Corpus
	bm25     *store.BM25Index
	dense    *store.FlatIndex
	embedder external.Embedder
	builder  *querybuilder.Builder
}

// Option configures an Engine at construction time.
type Option func(*engineOptions)

type engineOptions struct {
	embedder         external.Embedder
	keywordExtractor external.KeywordExtractor
	reasoner         external.Reasoner
}

// WithEmbedder wires a dense embedder. Without one, Engine scores BM25 only.
func WithEmbedder(e external.Embedder) Option {
	return func(o *engineOptions) { o.embedder = e }
}

// WithKeywordExtractor wires the keybert-* query variants.
func WithKeywordExtractor(e external.KeywordExtractor) Option {
	return func(o *engineOptions) { o.keywordExtractor = e }
}

// WithReasoner wires the reason-* query variants.
func WithReasoner(r external.Reasoner) Option {
	return func(o *engineOptions) { o.reasoner = r }
}

// New builds (or loads, if a persisted artifact matches) the BM25 and dense
// indexes over c and returns a ready-to-use Engine. indexDir is where index
// artifacts are read from/written to; empty disables persistence.
func New(ctx context.Context, cfg *config.Config, c *corpus.Corpus, indexDir string, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if c == nil || len(c.Documents) == 0 {
		return nil, ErrNilCorpus
	}

	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}

	if indexDir != "" {
		if err := os.MkdirAll(indexDir, 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
		lock, err := corpus.Lock(ctx, indexDir, indexLockTimeout)
		if err != nil {
			return nil, err
		}
		defer lock.Unlock()
	}

	bm25, err := loadOrBuildBM25(c, cfg, indexDir)
	if err != nil {
		return nil, err
	}

	var dense *store.FlatIndex
	if o.embedder != nil {
		dense, err = loadOrBuildFlat(ctx, c, cfg, indexDir, o.embedder)
		if err != nil {
			return nil, err
		}
	}

	stop, err := loadStopWords(cfg.Paths.StopwordsPath)
	if err != nil {
		return nil, err
	}

	builder := querybuilder.NewBuilder(stop, o.keywordExtractor, o.reasoner, cfg.QueryBuilder.TopNKeywords)

	return &Engine{
		cfg:      cfg,
		corpus:   c,
		bm25:     bm25,
		dense:    dense,
		embedder: o.embedder,
		builder:  builder,
	}, nil
}

func loadOrBuildBM25(c *corpus.Corpus, cfg *config.Config, indexDir string) (*store.BM25Index, error) {
	path := ""
	if indexDir != "" {
		path = indexDir + "/bm25.gob"
		if idx, err := store.LoadBM25(path); err == nil {
			return idx, nil
		}
	}

	docs := make([][]string, len(c.Documents))
	for i, d := range c.Documents {
		docs[i] = d.Tokens
	}
	params := store.BM25Params{K1: cfg.BM25.K1, B: cfg.BM25.B}
	idx := store.BuildBM25(docs, params)

	if path != "" {
		if err := idx.Save(path); err != nil {
			return nil, fmt.Errorf("persist bm25 index: %w", err)
		}
	}
	return idx, nil
}

func loadOrBuildFlat(ctx context.Context, c *corpus.Corpus, cfg *config.Config, indexDir string, embedder external.Embedder) (*store.FlatIndex, error) {
	path := ""
	if indexDir != "" {
		path = indexDir + "/flat.gob"
		if idx, err := store.LoadFlat(path, len(c.Documents), embedder.ModelID()); err == nil {
			return idx, nil
		}
	}

	vectors := make([][]float32, len(c.Documents))
	for i, d := range c.Documents {
		vec, err := embedder.Embed(ctx, d.RawText)
		if err != nil {
			return nil, bugerr.New(bugerr.KindEmbedderFailed, "embed corpus document", err)
		}
		vectors[i] = vec
	}

	metric := store.MetricCosine
	if cfg.Dense.Metric == config.MetricL2 {
		metric = store.MetricL2
	}
	idx, err := store.BuildFlat(vectors, metric, embedder.ModelID())
	if err != nil {
		return nil, fmt.Errorf("build dense index: %w", err)
	}

	if path != "" {
		if err := idx.Save(path); err != nil {
			return nil, fmt.Errorf("persist dense index: %w", err)
		}
	}
	return idx, nil
}

func loadStopWords(path string) (normalize.StopWords, error) {
	if path == "" {
		return nil, nil
	}
	lines, err := readLines(path)
	if err != nil {
		return nil, bugerr.New(bugerr.KindIOUnreadable, "read stopwords file", err)
	}
	return normalize.LoadStopWords(lines), nil
}

// LocalizeResult is one variant's outcome for one bug report.
type LocalizeResult struct {
	Variant string
	Ranked  []rank.RankedResult
}

// Localize builds every query variant for report and ranks each against
// this engine's indexes. A variant with no tokens yields an empty
// RankedResult, never an error.
func (e *Engine) Localize(ctx context.Context, report *querybuilder.BugReport) []LocalizeResult {
	queries := e.builder.Build(ctx, report)
	results := make([]LocalizeResult, len(queries))
	for i, q := range queries {
		results[i] = LocalizeResult{Variant: q.Variant, Ranked: e.localizeOne(ctx, q)}
	}
	return results
}

func (e *Engine) localizeOne(ctx context.Context, q querybuilder.Query) []rank.RankedResult {
	if len(q.Tokens) == 0 {
		return nil
	}
	bm25Scores := e.bm25.Score(q.Tokens)

	var denseScores []float64
	if e.embedder != nil && e.dense != nil {
		if vec, err := e.embedder.Embed(ctx, q.Text); err == nil {
			denseScores = e.dense.Score(vec)
		}
	}

	weights := rank.Weights{BM25: e.cfg.Ranker.BM25Weight, Dense: e.cfg.Ranker.FaissWeight}
	return rank.Fuse(bm25Scores, denseScores, e.fileIDs(), weights, e.cfg.Ranker.TopN)
}

func (e *Engine) fileIDs() []string {
	ids := make([]string, len(e.corpus.Documents))
	for i, d := range e.corpus.Documents {
		ids[i] = d.ID
	}
	return ids
}

// ErrNoDenseIndex is returned by ANNSanityCheck when the engine was built
// without an embedder, so there is no dense index to sanity-check.
var ErrNoDenseIndex = errors.New("buglocate: no dense index (no embedder was configured)")

// ANNSanityCheck embeds up to sampleSize corpus documents as query vectors
// and reports how often an approximate (hnsw) search over the same vectors
// agrees with the flat index's exact top-1 — a CLI diagnostic only; the
// scored BM25/Dense path always uses the flat brute-force index.
func (e *Engine) ANNSanityCheck(ctx context.Context, sampleSize int) (agree int, total int, err error) {
	if e.dense == nil || e.embedder == nil {
		return 0, 0, ErrNoDenseIndex
	}
	if sampleSize <= 0 || sampleSize > len(e.corpus.Documents) {
		sampleSize = len(e.corpus.Documents)
	}

	queries := make([][]float32, 0, sampleSize)
	for _, d := range e.corpus.Documents[:sampleSize] {
		vec, err := e.embedder.Embed(ctx, d.RawText)
		if err != nil {
			return 0, 0, fmt.Errorf("embed sanity-check query: %w", err)
		}
		queries = append(queries, vec)
	}

	return store.ANNSanityCheck(e.dense, queries)
}

// RunPipeline drives the full staged orchestrator (C6) over every bug
// report yielded by source, logging each stage event through logFn.
func (e *Engine) RunPipeline(ctx context.Context, source pipeline.Source, logFn pipeline.EventLogger) ([]pipeline.Result, error) {
	indexes := &pipeline.Indexes{BM25: e.bm25, Dense: e.dense, FileIDs: e.fileIDs()}
	weights := rank.Weights{BM25: e.cfg.Ranker.BM25Weight, Dense: e.cfg.Ranker.FaissWeight}
	cfg := pipeline.Config{Parallelism: e.cfg.Pipeline.Parallelism, QueueCapacity: e.cfg.Pipeline.QueueCapacity}

	orch := pipeline.New(cfg, e.builder, indexes, e.embedder, weights, e.cfg.Ranker.TopN, logFn)
	return orch.Run(ctx, source)
}
