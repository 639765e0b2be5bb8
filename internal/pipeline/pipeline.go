// Package pipeline runs the staged concurrent orchestrator named in the
// system design: READ -> PROCESS -> QUERY-GEN -> LOCALIZE. Each stage is a
// set of workers consuming a bounded FIFO queue (a buffered channel) and
// producing into the next; CPU-bound work (tokenization, scoring) runs
// inline on the stage's own goroutine, which golang.org/x/sync/errgroup
// schedules onto a bounded pool for LOCALIZE, the only stage wide enough to
// need one. Cancellation is drain-then-cancel: a fatal error stops new work
// from being admitted but lets in-flight items finish rather than aborting
// them mid-stage.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aman-cerp/buglocate/internal/querybuilder"
	"github.com/aman-cerp/buglocate/internal/rank"
	"github.com/aman-cerp/buglocate/internal/store"
)

// Config controls queue depth and worker counts.
type Config struct {
	Parallelism   int // LOCALIZE worker pool size
	QueueCapacity int // bounded queue capacity between stages; default 2*Parallelism
}

// normalized fills in defaults for zero-valued fields.
func (c Config) normalized() Config {
	if c.Parallelism <= 0 {
		c.Parallelism = 4
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 2 * c.Parallelism
	}
	return c
}

// Indexes bundles the two read-only indexes and the corpus file ids they
// are addressed by, built once before the pipeline runs.
type Indexes struct {
	BM25    *store.BM25Index
	Dense   *store.FlatIndex
	FileIDs []string
}

// Embedder is the narrow slice of external.Embedder the pipeline needs —
// declared locally to avoid importing internal/external just for one method.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result is one variant's localization outcome for one bug.
type Result struct {
	BugID   string
	Variant string
	Ranked  []rank.RankedResult
}

// Source pulls the next bug report to process. It returns ok=false once
// exhausted, mirroring the teacher's channel-based scanner pull pattern.
type Source func(ctx context.Context) (report *querybuilder.BugReport, ok bool, err error)

// EventLogger records one (stage, bug, phase) pipeline event. Implementations
// must be safe for concurrent use; Orchestrator also wraps any logger in its
// own mutex so a plain *slog.Logger works unguarded.
type EventLogger func(stage, bugID, phase string)

// SlogEventLogger adapts a *slog.Logger to EventLogger, matching the
// (timestamp, stage, bug_id, phase) log-line shape named in the design.
func SlogEventLogger(logger *slog.Logger) EventLogger {
	return func(stage, bugID, phase string) {
		logger.Info("pipeline_event", slog.String("stage", stage), slog.String("bug_id", bugID), slog.String("phase", phase))
	}
}

// Stage names used in log lines.
const (
	StageRead     = "READ"
	StageProcess  = "PROCESS"
	StageQueryGen = "QUERY-GEN"
	StageLocalize = "LOCALIZE"
)

// Orchestrator wires the four stages together.
type Orchestrator struct {
	cfg      Config
	builder  *querybuilder.Builder
	indexes  *Indexes
	embedder Embedder
	weights  rank.Weights
	topK     int

	logMu sync.Mutex
	logFn EventLogger
}

// New constructs an Orchestrator. embedder may be nil, in which case
// LOCALIZE scores BM25 only (dense contributes the zero vector).
func New(cfg Config, builder *querybuilder.Builder, indexes *Indexes, embedder Embedder, weights rank.Weights, topK int, logFn EventLogger) *Orchestrator {
	if logFn == nil {
		logFn = func(string, string, string) {}
	}
	return &Orchestrator{
		cfg:      cfg.normalized(),
		builder:  builder,
		indexes:  indexes,
		embedder: embedder,
		weights:  weights,
		topK:     topK,
		logFn:    logFn,
	}
}

func (o *Orchestrator) log(stage, bugID, phase string) {
	o.logMu.Lock()
	defer o.logMu.Unlock()
	o.logFn(stage, bugID, phase)
}

// processedItem carries a report through PROCESS into QUERY-GEN.
type processedItem struct {
	report *querybuilder.BugReport
}

// queryGenItem carries a report's full variant set into LOCALIZE.
type queryGenItem struct {
	report  *querybuilder.BugReport
	queries []querybuilder.Query
}

// Run drains source through all four stages and returns one Result per
// (bug, variant) pair. A per-bug/per-variant failure is logged and
// skipped — it never aborts the run. Only a Source error or a context
// cancellation stops the pipeline early; then LOCALIZE work already in
// flight finishes before Run returns, and items still waiting in a queue
// are dropped.
func (o *Orchestrator) Run(ctx context.Context, source Source) ([]Result, error) {
	readQueue := make(chan *querybuilder.BugReport, o.cfg.QueueCapacity)
	processQueue := make(chan processedItem, o.cfg.QueueCapacity)
	queryGenQueue := make(chan queryGenItem, o.cfg.QueueCapacity)

	var results []Result
	var resultsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	// READ: single worker pulls from Source and forwards to PROCESS.
	g.Go(func() error {
		defer close(readQueue)
		for {
			report, ok, err := source(gctx)
			if err != nil {
				return fmt.Errorf("read stage: %w", err)
			}
			if !ok {
				return nil
			}
			o.log(StageRead, report.ID, "read")
			select {
			case readQueue <- report:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	// PROCESS: single worker applies the Normalizer (C1) implicitly via
	// the query builder's basic variants on the next stage; here it just
	// logs the item and forwards it, mirroring the
	// read->preprocess boundary named in the data-flow diagram.
	g.Go(func() error {
		defer close(processQueue)
		for report := range readQueue {
			o.log(StageProcess, report.ID, "process")
			select {
			case processQueue <- processedItem{report: report}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	// QUERY-GEN: one worker per variant family (basic/keybert/reason, per
	// the system design), run concurrently for each bug report and merged
	// back into the report's six-variant set before handoff to LOCALIZE.
	g.Go(func() error {
		defer close(queryGenQueue)
		for item := range processQueue {
			o.log(StageQueryGen, item.report.ID, "query-gen")
			queries, err := o.buildQueriesConcurrently(gctx, item.report)
			if err != nil {
				return err
			}
			select {
			case queryGenQueue <- queryGenItem{report: item.report, queries: queries}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	// LOCALIZE: bounded worker pool of size Parallelism, one goroutine per
	// (bug, variant) pair, semaphore-limited like the teacher's
	// parallelSubSearch.
	g.Go(func() error {
		sem := make(chan struct{}, o.cfg.Parallelism)
		var localizeWg sync.WaitGroup
		var firstErr error
		var errMu sync.Mutex

		for item := range queryGenQueue {
			for _, q := range item.queries {
				item, q := item, q
				select {
				case sem <- struct{}{}:
				case <-gctx.Done():
					localizeWg.Wait()
					return gctx.Err()
				}
				localizeWg.Add(1)
				go func() {
					defer localizeWg.Done()
					defer func() { <-sem }()

					o.log(StageLocalize, item.report.ID, "localize:"+q.Variant)
					ranked, err := o.localize(gctx, q)
					if err != nil {
						o.log(StageLocalize, item.report.ID, "error:"+q.Variant+":"+err.Error())
						errMu.Lock()
						if firstErr == nil {
							firstErr = err
						}
						errMu.Unlock()
						return // per-variant failure: logged, not fatal (§7)
					}
					resultsMu.Lock()
					results = append(results, Result{BugID: item.report.ID, Variant: q.Variant, Ranked: ranked})
					resultsMu.Unlock()
				}()
			}
		}
		localizeWg.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// buildQueriesConcurrently runs the three variant-family builders (basic,
// keybert, reason) as independent goroutines, one per family, and merges
// their baseline/extended pairs back into the stable six-variant order.
// A family's own external-collaborator failures never surface here — the
// query builder already emits an empty variant for those; only gctx
// cancellation can make this return an error.
func (o *Orchestrator) buildQueriesConcurrently(gctx context.Context, report *querybuilder.BugReport) ([]querybuilder.Query, error) {
	rawText := report.RawText()
	extendedText := report.ExtendedText()

	var basic, keybert, reason []querybuilder.Query
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		basic = o.builder.BasicVariants(rawText, extendedText)
	}()
	go func() {
		defer wg.Done()
		keybert = o.builder.KeybertVariants(gctx, rawText, extendedText)
	}()
	go func() {
		defer wg.Done()
		reason = o.builder.ReasonVariants(gctx, rawText, extendedText)
	}()
	wg.Wait()

	if gctx.Err() != nil {
		return nil, gctx.Err()
	}

	queries := make([]querybuilder.Query, 0, 6)
	queries = append(queries, basic...)
	queries = append(queries, keybert...)
	queries = append(queries, reason...)
	return queries, nil
}

// localize scores one query variant against both indexes and fuses them.
// An empty-token variant yields an empty RankedResult, never an error —
// the empty-variant contract from the query builder.
func (o *Orchestrator) localize(ctx context.Context, q querybuilder.Query) ([]rank.RankedResult, error) {
	if len(q.Tokens) == 0 {
		return nil, nil
	}

	bm25Scores := o.indexes.BM25.Score(q.Tokens)

	var denseScores []float64
	if o.embedder != nil && o.indexes.Dense != nil {
		vec, err := o.embedder.Embed(ctx, q.Text)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		denseScores = o.indexes.Dense.Score(vec)
	}

	return rank.Fuse(bm25Scores, denseScores, o.indexes.FileIDs, o.weights, o.topK), nil
}
