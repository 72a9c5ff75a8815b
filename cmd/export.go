package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yourusername/article-exporter/internal/source"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		stdinFormat string
		rotate      bool
	)

	cmd := &cobra.Command{
		Use:   "export [file...]",
		Short: "Merge collected articles into the store",
		Long: `Read raw article records and merge them into the store.

Inputs may be .json (array, or an object with "articles"), .jsonl/.ndjson or
.csv files. Use "-" to read from stdin in the format given by --format.
Records without a url, already stored, or dated outside the current year are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []source.Record
			for _, arg := range args {
				var (
					batch []source.Record
					err   error
				)
				if arg == "-" {
					batch, err = source.Read(cmd.InOrStdin(), source.Format(stdinFormat))
				} else {
					batch, err = source.ReadFile(arg)
				}
				if err != nil {
					return fmt.Errorf("reading input: %w", err)
				}
				records = append(records, batch...)
			}

			store, err := openStore(cmd, opts)
			if err != nil {
				return err
			}

			if rotate {
				if archivePath, rotated, err := store.RotateIfNeeded(); err != nil {
					return fmt.Errorf("rotating: %w", err)
				} else if rotated {
					fmt.Fprintf(cmd.OutOrStdout(), "Archived previous year to %s\n", archivePath)
				}
			}

			path, err := store.Export(records)
			if err != nil {
				return fmt.Errorf("exporting: %w", err)
			}
			doc, err := store.ReadDocument()
			if err != nil {
				return fmt.Errorf("reading exported store: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d new article(s) of %d record(s) read; %d total in %s\n",
				doc.Meta.NewThisRun, len(records), doc.Meta.TotalArticles, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&stdinFormat, "format", string(source.FormatJSON), "stdin format: json, jsonl or csv")
	cmd.Flags().BoolVar(&rotate, "rotate", false, "archive the store first if it holds a previous year")
	return cmd
}
