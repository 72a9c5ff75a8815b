package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/yourusername/article-exporter/internal/storage"
)

func newArchiveCmd(opts *rootOptions) *cobra.Command {
	var (
		year int
		out  string
	)

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Snapshot the store as a year archive and reset it",
		Long: `Copy the store verbatim to a year archive and reset it to an empty
document for the following year.

The snapshot is not filtered: only archive a year the store actually holds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if year <= 0 {
				return errors.New("--year is required")
			}
			store, err := openStore(cmd, opts)
			if err != nil {
				return err
			}
			archivePath, err := store.ArchiveYear(year, out)
			if err != nil {
				return fmt.Errorf("archiving %d: %w", year, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archive: %s\n", archivePath)
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "year to archive")
	cmd.Flags().StringVar(&out, "out", "", "archive destination (default: <archive_dir>/<prefix><year>.json)")
	return cmd
}

func newRotateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Archive the store if it holds a previous year",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd, opts)
			if err != nil {
				return err
			}
			archivePath, rotated, err := store.RotateIfNeeded()
			if err != nil {
				return fmt.Errorf("rotating: %w", err)
			}
			if !rotated {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to rotate.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archive: %s\n", archivePath)
			return nil
		},
	}
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd, opts)
			if err != nil {
				return err
			}
			st, err := store.Stats()
			if errors.Is(err, storage.ErrNoStore) {
				fmt.Fprintf(cmd.OutOrStdout(), "No store at %s yet.\n", store.Path())
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading stats: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Store: %s\n", st.Path)
			fmt.Fprintf(w, "Year: %d\n", st.Meta.Year)
			fmt.Fprintf(w, "Articles: %d\n", st.Entries)
			fmt.Fprintf(w, "Last updated: %s\n", st.Meta.LastUpdated)
			fmt.Fprintf(w, "Size: %s\n", formatBytes(st.SizeBytes))

			sources := make([]string, 0, len(st.BySource))
			for name := range st.BySource {
				sources = append(sources, name)
			}
			sort.Strings(sources)
			for _, name := range sources {
				label := name
				if label == "" {
					label = "(unknown)"
				}
				fmt.Fprintf(w, "  %s: %d\n", label, st.BySource[name])
			}
			return nil
		},
	}
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
