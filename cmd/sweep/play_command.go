package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"sweep/internal/catalog"
	"sweep/internal/frame"
	"sweep/internal/playback"
	"sweep/internal/render"
	"sweep/internal/scancache"
	"sweep/internal/scanio"
	"sweep/internal/stream"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var (
		sps      float64
		fps      float64
		robust   bool
		cyclable bool
		once     bool
		step     bool
		listen   string
		layer    int
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play back the cataloged scan sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if !flags.Changed("sps") {
				sps = cfg.Playback.SecondsPerSecond
			}
			if !flags.Changed("fps") {
				fps = cfg.Playback.DisplayFPS
			}
			if !flags.Changed("robust") {
				robust = cfg.Playback.Robust
			}
			if !flags.Changed("cyclable") {
				cyclable = cfg.Playback.Cyclable
			}
			if !flags.Changed("listen") && cfg.Stream.Enabled {
				listen = cfg.Stream.Listen
			}

			store, err := catalog.Open(cfg, logger)
			if err != nil {
				return err
			}
			paths, err := store.Paths(cmd.Context())
			closeErr := store.Close()
			if err != nil {
				return fmt.Errorf("list scans: %w", err)
			}
			if closeErr != nil {
				return closeErr
			}
			if len(paths) == 0 {
				return errors.New("catalog is empty; run `sweep scans --rebuild` first")
			}

			cache, err := scancache.New(scancache.Options{
				IDs:        paths,
				Lookahead:  cfg.Cache.Lookahead,
				Lookbehind: cfg.Cache.Lookbehind,
				Loader: func(ctx context.Context, id string) (*frame.Frame, error) {
					return scanio.Load(id)
				},
				Cyclable: cyclable,
			}, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session, err := playback.NewSession(runCtx, cache, playback.Options{
				SecondsPerSecond: sps,
				DisplayFPS:       fps,
			}, logger)
			if err != nil {
				return err
			}

			var sink render.Sink = render.NewLogSink(logger)
			if listen != "" {
				hub := stream.NewHub(listen, session.ID(), logger)
				if err := hub.Start(runCtx); err != nil {
					return err
				}
				defer hub.Stop()
				fmt.Fprintf(cmd.OutOrStdout(), "Streaming frames on ws://%s/ws\n", hub.Addr())
				sink = hub
			}

			updater, err := render.NewUpdater(sink, robust)
			if err != nil {
				return err
			}
			defer updater.Close(context.Background()) //nolint:errcheck
			updater.AddSurface("main", render.DrawOptions{Layer: layer})

			if step {
				return runStepLoop(runCtx, cmd, session, updater)
			}

			player, err := playback.NewPlayer(session, updater, playback.PlayerOptions{
				DisplayFPS: fps,
				Once:       once,
			}, logger)
			if err != nil {
				return err
			}
			if err := player.Start(runCtx); err != nil {
				return err
			}
			player.Wait()

			printStats(cmd, player.Stats())
			if err := player.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&sps, "sps", 0, "Data seconds per display second (0 plays one scan per tick)")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Display ticks per second")
	cmd.Flags().BoolVar(&robust, "robust", false, "Rebuild render surfaces every frame")
	cmd.Flags().BoolVar(&cyclable, "cyclable", true, "Wrap to the first scan after the last")
	cmd.Flags().BoolVar(&once, "once", false, "Stop after one full cycle")
	cmd.Flags().BoolVar(&step, "step", false, "Step through scans manually instead of playing")
	cmd.Flags().StringVar(&listen, "listen", "", "Stream frames over WebSocket on this address")
	cmd.Flags().IntVar(&layer, "layer", 0, "Volume layer to render")
	return cmd
}

// runStepLoop drives the session from stdin: n advances, p steps back, q
// quits. Every reached frame goes through the updater like a played one.
func runStepLoop(ctx context.Context, cmd *cobra.Command, session *playback.Session, updater *render.Updater) error {
	out := cmd.OutOrStdout()

	decision, err := session.Tick(ctx)
	if err != nil {
		return err
	}
	if err := updater.Apply(ctx, decision.Frame); err != nil {
		return err
	}
	fmt.Fprintln(out, decision.Frame.TimeLabel())

	prompt := isTerminal(out)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		if prompt {
			fmt.Fprint(out, "[n]ext, [p]rev, [q]uit> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		var f *frame.Frame
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "n", "":
			f, err = session.StepForward(ctx)
		case "p":
			f, err = session.StepBackward(ctx)
		case "q":
			return nil
		default:
			continue
		}
		if err != nil {
			return err
		}
		if f == nil {
			fmt.Fprintln(out, "(at sequence boundary)")
			continue
		}
		if err := updater.Apply(ctx, f); err != nil {
			return err
		}
		fmt.Fprintln(out, f.TimeLabel())
	}
}

func printStats(cmd *cobra.Command, stats playback.Stats) {
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Ticks", "Advances", "Holds", "Dropped", "Cycles"},
		[][]string{{
			strconv.Itoa(stats.Ticks),
			strconv.Itoa(stats.Advances),
			strconv.Itoa(stats.Holds),
			strconv.Itoa(stats.Dropped),
			strconv.Itoa(stats.Cycles),
		}},
		0, 1, 2, 3, 4,
	))
}
