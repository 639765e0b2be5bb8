package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/buglocate/internal/output"
	"github.com/aman-cerp/buglocate/internal/store"
)

type indexOptions struct {
	annSanitySample int
	backend         string
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build and persist the BM25 and dense indexes over the corpus",
		Long: `index walks --corpus, builds the BM25 and dense indexes over every
matching file, and persists them under --index-dir for later "run" and
"batch" invocations to reuse without rebuilding.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.annSanitySample, "ann-sanity-check", 0,
		"Sample this many corpus documents and report approximate (hnsw) vs exact top-1 agreement; 0 disables")
	cmd.Flags().StringVar(&opts.backend, "backend", "",
		`Build a parallel debugging index alongside BM25/dense; only "bleve" is supported`)

	return cmd
}

func runIndex(cmd *cobra.Command, opts indexOptions) error {
	ctx := cmd.Context()
	out := output.New(cmd.OutOrStdout())

	out.Status("📂", "Scanning corpus at "+flags.corpusRoot)
	eng, c, err := buildEngine(ctx)
	if err != nil {
		out.Errorf("index failed: %v", err)
		return err
	}

	out.Successf("Indexed %d files from %s", len(c.Documents), flags.corpusRoot)
	slog.Info("index_complete", slog.Int("documents", len(c.Documents)), slog.String("root", flags.corpusRoot))

	if opts.annSanitySample > 0 {
		agree, total, err := eng.ANNSanityCheck(ctx, opts.annSanitySample)
		if err != nil {
			out.Warningf("ann sanity check skipped: %v", err)
		} else if total > 0 {
			out.Statusf("🔎", "ANN sanity check: %d/%d (%.1f%%) approximate top-1 matches agreed with the exact flat index", agree, total, float64(agree)/float64(total)*100)
		}
	}

	if opts.backend != "" {
		if opts.backend != "bleve" {
			return fmt.Errorf("unsupported --backend %q (only \"bleve\" is supported)", opts.backend)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		stop, err := loadStopWords(cfg.Paths.StopwordsPath)
		if err != nil {
			return err
		}
		bleveDir := filepath.Join(indexDir(cfg), "bleve")
		if _, err := store.BuildBleveDebugIndex(bleveDir, c.Documents, stop); err != nil {
			return fmt.Errorf("build bleve debug index: %w", err)
		}
		out.Successf("Built bleve debug index at %s", bleveDir)
	}

	return nil
}
