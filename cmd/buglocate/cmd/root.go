// Package cmd provides the CLI commands for buglocate.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/buglocate/internal/logging"
	"github.com/aman-cerp/buglocate/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// rootFlags are the root-level flags every subcommand reads to locate its
// working state: the corpus to index, where index artifacts live, and an
// optional YAML config overriding the defaults.
type rootFlags struct {
	corpusRoot string
	indexDir   string
	configPath string
}

var flags rootFlags

// NewRootCmd creates the root command for the buglocate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buglocate",
		Short: "Hybrid BM25 + semantic bug localization",
		Long: `buglocate ranks source files by likely relevance to a free-text bug
report, combining BM25 keyword search with dense semantic similarity.

Build an index once over a source corpus, then localize bug reports
against it, or evaluate ranking quality against curated ground truth.`,
		Version:       version.Version,
		SilenceUsage:  true,
	}

	cmd.SetVersionTemplate("buglocate version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flags.corpusRoot, "corpus", ".", "Root directory of the source corpus to index/search")
	cmd.PersistentFlags().StringVar(&flags.indexDir, "index-dir", "", "Directory for persisted index artifacts (default: ~/.buglocate/index)")
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.buglocate/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newEvaluateCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
