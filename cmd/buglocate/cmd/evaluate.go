package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/buglocate/internal/eval"
	"github.com/aman-cerp/buglocate/internal/output"
	"github.com/aman-cerp/buglocate/internal/querybuilder"
)

// queryTypes are the three Query Builder flavors evaluate reports
// separately, per C7's per-query-type metric breakdown.
var queryTypes = []string{"basic", "keybert", "reason"}

type evaluateOptions struct {
	groundTruth string
	resultsDir  string
	format      string // "text" or "json"
}

func newEvaluateCmd() *cobra.Command {
	var opts evaluateOptions

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score persisted ranked-result files against curated ground truth",
		Long: `evaluate reads a ground-truth file (bug_id/count format) and a
directory of per-bug ranked-result files produced by "run", applies the
existence filter against --corpus, and reports Hit@K, MRR, and MAP for
each query type (basic/keybert/reason), baseline vs extended.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.groundTruth, "ground-truth", "", "Path to the ground-truth file (required)")
	cmd.Flags().StringVar(&opts.resultsDir, "results", "results", "Directory of ranked-result files from 'run'")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json")
	_ = cmd.MarkFlagRequired("ground-truth")

	return cmd
}

func runEvaluate(cmd *cobra.Command, opts evaluateOptions) error {
	out := output.New(cmd.OutOrStdout())

	gt, err := eval.LoadGroundTruthFile(opts.groundTruth)
	if err != nil {
		out.Errorf("loading ground truth failed: %v", err)
		return err
	}

	part := eval.CheckExistence(flags.corpusRoot, gt)
	if len(part.AllMissing) > 0 {
		out.Warningf("%d bug(s) excluded entirely: every ground-truth file missing from corpus", len(part.AllMissing))
	}

	bugIDs, err := querybuilder.ListBugIDs(opts.resultsDir)
	if err != nil {
		bugIDs = nil // results dir may not be directory-per-bug; fall back to ground truth's bug ids
	}
	if len(bugIDs) == 0 {
		for bugID := range gt {
			bugIDs = append(bugIDs, bugID)
		}
	}

	report := make(map[string]eval.Metrics, len(queryTypes))
	for _, qt := range queryTypes {
		var results []eval.BugResults
		for _, bugID := range bugIDs {
			if isAllMissing(part.AllMissing, bugID) {
				continue
			}
			baseline, err := eval.LoadRankedResultFile(filepath.Join(opts.resultsDir, eval.ResultFilename(bugID, "baseline", qt)))
			if err != nil {
				out.Warningf("reading baseline result for %s/%s: %v", bugID, qt, err)
			}
			extended, err := eval.LoadRankedResultFile(filepath.Join(opts.resultsDir, eval.ResultFilename(bugID, "extended", qt)))
			if err != nil {
				out.Warningf("reading extended result for %s/%s: %v", bugID, qt, err)
			}
			results = append(results, eval.BugResults{BugID: bugID, Baseline: baseline, Extended: extended})
		}
		report[qt] = eval.Compute(part.Existing, results)
	}

	return printEvaluation(out, cmd, opts.format, report)
}

func isAllMissing(allMissing []string, bugID string) bool {
	for _, id := range allMissing {
		if id == bugID {
			return true
		}
	}
	return false
}

func printEvaluation(out *output.Writer, cmd *cobra.Command, format string, report map[string]eval.Metrics) error {
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	for _, qt := range queryTypes {
		m := report[qt]
		out.Statusf("📊", "%s (%d bugs considered, %d missing ground truth)", qt, m.ConsideredBugs, len(m.MissingGroundTruth))
		for _, k := range eval.HitKValues {
			out.Status("", fmt.Sprintf("  Hit@%-2d  baseline=%.1f%%  extended=%.1f%%", k, m.HitAtKBaselinePercent[k], m.HitAtKExtendedPercent[k]))
		}
		out.Status("", fmt.Sprintf("  MRR     baseline=%.4f  extended=%.4f", m.MRRBaseline, m.MRRExtended))
		out.Status("", fmt.Sprintf("  MAP     baseline=%.2f  extended=%.2f", m.MAPBaseline, m.MAPExtended))
		out.Status("", fmt.Sprintf("  QE      improved=%d  identical=%d  worse=%d", m.Improved, m.Identical, m.Worse))
		out.Newline()
	}
	return nil
}
