package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/buglocate/internal/eval"
	"github.com/aman-cerp/buglocate/internal/output"
	"github.com/aman-cerp/buglocate/internal/pipeline"
	"github.com/aman-cerp/buglocate/internal/querybuilder"
)

type batchOptions struct {
	bugsDir     string
	outputDir   string
	parallelism int
}

func newBatchCmd() *cobra.Command {
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Localize every bug report under --bugs through the staged pipeline",
		Long: `batch drives the full READ -> PROCESS -> QUERY-GEN -> LOCALIZE
pipeline over every bug-report directory under --bugs, writing one
ranked-result file per bug/variant into --output. Unlike "run", which
localizes each bug report sequentially, batch pools the LOCALIZE stage
across --parallelism workers, matching the system design's concurrency
model.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.bugsDir, "bugs", "", "Directory of bug-report directories (required)")
	cmd.Flags().StringVar(&opts.outputDir, "output", "results", "Directory to write ranked-result files into")
	cmd.Flags().IntVar(&opts.parallelism, "parallelism", 4, "LOCALIZE stage worker pool size")
	_ = cmd.MarkFlagRequired("bugs")

	return cmd
}

func runBatch(cmd *cobra.Command, opts batchOptions) error {
	ctx := cmd.Context()
	out := output.New(cmd.OutOrStdout())

	eng, _, err := buildEngine(ctx)
	if err != nil {
		out.Errorf("building engine failed: %v", err)
		return err
	}

	bugIDs, err := querybuilder.ListBugIDs(opts.bugsDir)
	if err != nil {
		out.Errorf("listing bug reports failed: %v", err)
		return err
	}
	out.Statusf("📂", "Running pipeline over %d bug report(s)", len(bugIDs))

	source := bugReportSource(opts.bugsDir, bugIDs)
	logger := slog.Default()

	results, err := eng.RunPipeline(ctx, source, pipeline.SlogEventLogger(logger))
	if err != nil {
		out.Errorf("pipeline failed: %v", err)
		return err
	}

	if err := writeBatchResults(opts.outputDir, results); err != nil {
		out.Errorf("writing results failed: %v", err)
		return err
	}

	out.Successf("Localized %d bug report(s), %d variant results written to %s", len(bugIDs), len(results), opts.outputDir)
	return nil
}

// bugReportSource builds a pipeline.Source that yields each bug id's report
// in order. Loading failures are skipped with a log line rather than
// aborting the whole run, matching "run"'s per-bug failure isolation.
func bugReportSource(bugsDir string, bugIDs []string) pipeline.Source {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context) (*querybuilder.BugReport, bool, error) {
		mu.Lock()
		defer mu.Unlock()
		for i < len(bugIDs) {
			bugID := bugIDs[i]
			i++
			report, err := querybuilder.LoadBugReport(bugsDir, bugID)
			if err != nil {
				slog.Warn("skipping bug report", slog.String("bug_id", bugID), slog.String("error", err.Error()))
				continue
			}
			return report, true, nil
		}
		return nil, false, nil
	}
}

func writeBatchResults(outputDir string, results []pipeline.Result) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	for _, r := range results {
		flavor, queryType := splitVariant(r.Variant)
		path := filepath.Join(outputDir, eval.ResultFilename(r.BugID, flavor, queryType))

		files := make([]eval.RankedFile, len(r.Ranked))
		for i, rr := range r.Ranked {
			files[i] = eval.RankedFile{FileID: rr.FileID, Score: rr.Score}
		}
		if err := eval.WriteRankedResultFile(path, files); err != nil {
			return err
		}
	}
	return nil
}
