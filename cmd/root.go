// Package cmd wires the command-line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/yourusername/article-exporter/internal/config"
	"github.com/yourusername/article-exporter/internal/storage"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type rootOptions struct {
	configPath string
	outputPath string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "article-exporter",
		Short: "Cumulative yearly JSON record of collected articles",
		Long: `article-exporter merges collected articles into a single JSON file that
holds the current calendar year, and rotates completed years into archives.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&opts.outputPath, "output", "", "override the store file path")

	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newArchiveCmd(opts))
	root.AddCommand(newRotateCmd(opts))
	root.AddCommand(newStatsCmd(opts))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "article-exporter %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})

	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// SetVersionInfo records build metadata for the version command.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// openStore loads configuration and opens the store it points at.
func openStore(cmd *cobra.Command, opts *rootOptions) (*storage.Store, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.outputPath != "" {
		cfg.OutputPath = opts.outputPath
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	store, err := storage.New(storage.Options{
		OutputPath:    cfg.OutputPath,
		ArchiveDir:    cfg.ArchiveDir,
		ArchivePrefix: cfg.ArchivePrefix,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return store, nil
}
