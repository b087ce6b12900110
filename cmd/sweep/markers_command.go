package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sweep/internal/catalog"
	"sweep/internal/timeline"
)

func newMarkersCommand(ctx *commandContext) *cobra.Command {
	var sps float64
	var fps float64

	cmd := &cobra.Command{
		Use:   "markers",
		Short: "Preview the time markers a playback session would target",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("sps") {
				sps = cfg.Playback.SecondsPerSecond
			}
			if !cmd.Flags().Changed("fps") {
				fps = cfg.Playback.DisplayFPS
			}

			store, err := catalog.Open(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			scans, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list scans: %w", err)
			}
			if len(scans) == 0 {
				return fmt.Errorf("catalog is empty; run `sweep scans --rebuild` first")
			}
			first, last := scans[0], scans[len(scans)-1]
			if sps > 0 && (!first.HasScanTime() || !last.HasScanTime()) {
				return fmt.Errorf("synchronized playback needs timestamps on the first and last scans")
			}

			sched, err := timeline.Build(timeline.Options{
				SPS:   sps,
				FPS:   fps,
				Start: first.ScanTime,
				End:   last.ScanTime,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !sched.Synchronized() {
				fmt.Fprintf(out, "Unsynchronized playback: one scan per tick, %d ticks per cycle\n", len(scans))
				return nil
			}

			rows := make([][]string, 0, len(sched.Markers))
			for i, marker := range sched.Markers {
				rows = append(rows, []string{
					strconv.Itoa(i),
					marker.UTC().Format("2006-01-02 15:04:05"),
					fmt.Sprintf("%+.1fs", marker.Sub(first.ScanTime).Seconds()),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Marker (UTC)", "Offset"},
				rows, 0, 2,
			))
			fmt.Fprintf(out, "%d markers per cycle at %.3g display fps\n", len(sched.Markers), sched.FPS)
			return nil
		},
	}

	cmd.Flags().Float64Var(&sps, "sps", 0, "Data seconds per display second")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Display ticks per second")
	return cmd
}
