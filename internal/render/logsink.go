package render

import (
	"context"
	"log/slog"
	"math"

	"sweep/internal/frame"
	"sweep/internal/logging"
)

// LogSink draws frames as structured log lines. It is the default sink for
// headless playback and doubles as a trace of scheduler behavior.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink builds a sink that writes one line per surface per advance.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logging.NewComponentLogger(logger, "render")}
}

func (s *LogSink) Render(_ context.Context, f *frame.Frame, surface *Surface) error {
	low, high := valueRange(f.Layer(surface.Options.Layer))
	_, rows, cols := f.Dims()
	s.logger.Info("frame",
		logging.String("surface", surface.ID),
		logging.String("scan_time", f.TimeLabel()),
		logging.Int("rows", rows),
		logging.Int("cols", cols),
		logging.Float64("min", low),
		logging.Float64("max", high),
	)
	return nil
}

func (s *LogSink) Teardown(_ context.Context, surface *Surface) error {
	s.logger.Debug("surface discarded", logging.String("surface", surface.ID))
	return nil
}

// valueRange reports the finite extremes of a layer, ignoring NaN gaps.
func valueRange(layer [][]float64) (low, high float64) {
	low, high = math.Inf(1), math.Inf(-1)
	for _, row := range layer {
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			if v < low {
				low = v
			}
			if v > high {
				high = v
			}
		}
	}
	if low > high {
		return 0, 0
	}
	return low, high
}
