package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sweep/internal/catalog"
)

func newScansCommand(ctx *commandContext) *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "scans",
		Short: "List cataloged volume-scan files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			store, err := catalog.Open(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if rebuild {
				added, err := store.Rebuild(cmd.Context(), cfg.Paths.DataDir)
				if err != nil {
					return fmt.Errorf("rebuild catalog: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cataloged %d scan files from %s\n", added, cfg.Paths.DataDir)
			}

			scans, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list scans: %w", err)
			}
			if len(scans) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty; run `sweep scans --rebuild` after adding scan files")
				return nil
			}

			rows := make([][]string, 0, len(scans))
			for i, scan := range scans {
				scanTime := "unknown"
				if scan.HasScanTime() {
					scanTime = scan.ScanTime.UTC().Format("2006-01-02 15:04:05")
				}
				rows = append(rows, []string{
					strconv.Itoa(i),
					scanTime,
					strconv.Itoa(scan.Layers),
					fmt.Sprintf("%dx%d", scan.Rows, scan.Cols),
					scan.Path,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Scan Time (UTC)", "Layers", "Grid", "Path"},
				rows, 0, 2,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Rescan the data directory before listing")
	return cmd
}
