package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aman-cerp/buglocate/internal/querybuilder"
	"github.com/aman-cerp/buglocate/internal/rank"
	"github.com/aman-cerp/buglocate/internal/store"
)

func testIndexes(t *testing.T) *Indexes {
	t.Helper()
	docs := [][]string{
		{"database", "connection", "timeout"},
		{"user", "login", "form"},
		{"network", "socket", "retry"},
	}
	bm25 := store.BuildBM25(docs, store.DefaultBM25Params)
	flat, err := store.BuildFlat([][]float32{{1, 0}, {0, 1}, {0, 0}}, store.MetricCosine, "test-model")
	if err != nil {
		t.Fatalf("build flat failed: %v", err)
	}
	return &Indexes{BM25: bm25, Dense: flat, FileIDs: []string{"a.go", "b.go", "c.go"}}
}

func sliceSource(reports []*querybuilder.BugReport) Source {
	i := 0
	var mu sync.Mutex
	return func(ctx context.Context) (*querybuilder.BugReport, bool, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(reports) {
			return nil, false, nil
		}
		r := reports[i]
		i++
		return r, true, nil
	}
}

func TestRun_ProducesResultForEachBugAndVariant(t *testing.T) {
	// Given: two bug reports and no external collaborators (basic variants only)
	builder := querybuilder.NewBuilder(nil, nil, nil, 10)
	reports := []*querybuilder.BugReport{
		{ID: "bug-1", Title: "database connection", Description: "timeout error"},
		{ID: "bug-2", Title: "login form", Description: "user cannot authenticate"},
	}

	orch := New(Config{Parallelism: 2}, builder, testIndexes(t), nil, rank.Weights{BM25: 0.5, Dense: 0.5}, 10, nil)

	// When
	results, err := orch.Run(context.Background(), sliceSource(reports))

	// Then: S5 — one Result per (bug, variant), 2 bugs * 6 variants = 12
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 12 {
		t.Fatalf("expected 12 results, got %d", len(results))
	}
}

func TestRun_EmptyVariantYieldsEmptyRankedResultNotError(t *testing.T) {
	// Given: no collaborators, so keybert/reason variants are empty tokens
	builder := querybuilder.NewBuilder(nil, nil, nil, 10)
	reports := []*querybuilder.BugReport{{ID: "bug-1", Title: "database", Description: "timeout"}}

	orch := New(Config{Parallelism: 1}, builder, testIndexes(t), nil, rank.Weights{BM25: 0.5, Dense: 0.5}, 10, nil)

	results, err := orch.Run(context.Background(), sliceSource(reports))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, r := range results {
		if r.Variant == querybuilder.KeybertBaseline {
			found = true
			if len(r.Ranked) != 0 {
				t.Errorf("expected empty ranked result for empty variant, got %v", r.Ranked)
			}
		}
	}
	if !found {
		t.Fatal("expected a result for keybert-baseline even though empty")
	}
}

func TestRun_SourceErrorPropagates(t *testing.T) {
	builder := querybuilder.NewBuilder(nil, nil, nil, 10)
	failing := func(ctx context.Context) (*querybuilder.BugReport, bool, error) {
		return nil, false, fmt.Errorf("boom")
	}

	orch := New(Config{Parallelism: 1}, builder, testIndexes(t), nil, rank.Weights{BM25: 0.5, Dense: 0.5}, 10, nil)

	_, err := orch.Run(context.Background(), failing)
	if err == nil {
		t.Fatal("expected error from failing source")
	}
}

func TestRun_LoggerReceivesEventsForEveryStage(t *testing.T) {
	var mu sync.Mutex
	stages := make(map[string]bool)
	logger := func(stage, bugID, phase string) {
		mu.Lock()
		defer mu.Unlock()
		stages[stage] = true
	}

	builder := querybuilder.NewBuilder(nil, nil, nil, 10)
	reports := []*querybuilder.BugReport{{ID: "bug-1", Title: "database", Description: "timeout"}}
	orch := New(Config{Parallelism: 1}, builder, testIndexes(t), nil, rank.Weights{BM25: 0.5, Dense: 0.5}, 10, logger)

	_, err := orch.Run(context.Background(), sliceSource(reports))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, s := range []string{StageRead, StageProcess, StageQueryGen, StageLocalize} {
		if !stages[s] {
			t.Errorf("expected a log event for stage %s", s)
		}
	}
}

// TestRun_CancellationDrainsPromptlyWithoutLeak is T7: after drain-then-cancel,
// no worker task remains runnable and no queue contains unacknowledged work.
// A small queue/pool size forces every stage's sends to block on the bounded
// channels, so cancellation mid-run must be observed via each stage's
// <-gctx.Done() select branch rather than happening to finish first.
func TestRun_CancellationDrainsPromptlyWithoutLeak(t *testing.T) {
	builder := querybuilder.NewBuilder(nil, nil, nil, 10)
	reports := make([]*querybuilder.BugReport, 50)
	for i := range reports {
		reports[i] = &querybuilder.BugReport{ID: fmt.Sprintf("bug-%d", i), Title: "database connection", Description: "timeout error"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pulled int32
	var mu sync.Mutex
	i := 0
	source := func(ctx context.Context) (*querybuilder.BugReport, bool, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(reports) {
			return nil, false, nil
		}
		r := reports[i]
		i++
		if atomic.AddInt32(&pulled, 1) == 3 {
			cancel() // cancel while the remaining 47 reports are still in flight
		}
		return r, true, nil
	}

	orch := New(Config{Parallelism: 1, QueueCapacity: 1}, builder, testIndexes(t), nil, rank.Weights{BM25: 0.5, Dense: 0.5}, 10, nil)

	done := make(chan struct{})
	var runErr error
	go func() {
		_, runErr = orch.Run(ctx, source)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after context cancellation; suspected queue or goroutine deadlock")
	}

	if runErr == nil {
		t.Fatal("expected an error from Run after cancellation")
	}
	if atomic.LoadInt32(&pulled) == int32(len(reports)) {
		t.Fatal("expected cancellation to stop the source before the full backlog was pulled")
	}
}
