package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/buglocate/internal/eval"
	"github.com/aman-cerp/buglocate/internal/output"
	"github.com/aman-cerp/buglocate/internal/querybuilder"
	"github.com/aman-cerp/buglocate/pkg/buglocate"
)

type runOptions struct {
	bugsDir   string
	bugID     string
	outputDir string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Localize one or every bug report under --bugs against the index",
		Long: `run loads bug-report directories from --bugs (each
"<bugs>/<bug_id>/{title.txt,description.txt,*ImageContent.txt}"), builds
every query variant, ranks each against the corpus index, and writes one
ranked-result file per bug/variant into --output.

With --bug-id, only that one bug report is localized.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocalize(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.bugsDir, "bugs", "", "Directory of bug-report directories (required)")
	cmd.Flags().StringVar(&opts.bugID, "bug-id", "", "Localize only this bug id (default: every bug under --bugs)")
	cmd.Flags().StringVar(&opts.outputDir, "output", "results", "Directory to write ranked-result files into")
	_ = cmd.MarkFlagRequired("bugs")

	return cmd
}

func runLocalize(cmd *cobra.Command, opts runOptions) error {
	ctx := cmd.Context()
	out := output.New(cmd.OutOrStdout())

	eng, _, err := buildEngine(ctx)
	if err != nil {
		out.Errorf("building engine failed: %v", err)
		return err
	}

	bugIDs := []string{opts.bugID}
	if opts.bugID == "" {
		bugIDs, err = querybuilder.ListBugIDs(opts.bugsDir)
		if err != nil {
			out.Errorf("listing bug reports failed: %v", err)
			return err
		}
	}

	for i, bugID := range bugIDs {
		report, err := querybuilder.LoadBugReport(opts.bugsDir, bugID)
		if err != nil {
			out.Warningf("skipping %s: %v", bugID, err)
			continue
		}

		results := eng.Localize(ctx, report)
		if err := writeLocalizeResults(opts.outputDir, bugID, results); err != nil {
			out.Errorf("writing results for %s failed: %v", bugID, err)
			return err
		}

		out.Progress(i+1, len(bugIDs), fmt.Sprintf("localized %s", bugID))
		slog.Info("bug_localized", slog.String("bug_id", bugID), slog.Int("variants", len(results)))
	}

	out.Successf("Localized %d bug report(s) into %s", len(bugIDs), opts.outputDir)
	return nil
}

// writeLocalizeResults persists one ranked-result file per variant, named
// per eval.ResultFilename's "<bug>_<flavor>_<type>_query_result.txt"
// convention so `evaluate` can read them back directly.
func writeLocalizeResults(outputDir, bugID string, results []buglocate.LocalizeResult) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	for _, r := range results {
		flavor, queryType := splitVariant(r.Variant)
		path := filepath.Join(outputDir, eval.ResultFilename(bugID, flavor, queryType))

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

// splitVariant splits a variant name like "basic-baseline" into its query
// type ("basic") and flavor ("baseline"), matching the persisted result
// file naming convention's "<bug>_<flavor>_<type>_query_result.txt" order.
func splitVariant(variant string) (flavor, queryType string) {
	for i := len(variant) - 1; i >= 0; i-- {
		if variant[i] == '-' {
			return variant[i+1:], variant[:i]
		}
	}
	return variant, variant
}
