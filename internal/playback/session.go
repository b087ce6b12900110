package playback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sweep/internal/frame"
	"sweep/internal/logging"
	"sweep/internal/timeline"
)

// FrameCache is the cursor contract the scheduler consumes. The cache owns
// the materialized frames and the cursor; the session only reads timestamps
// and triggers Advance. Peeks must not fail merely because a position lies
// outside the materialized window.
type FrameCache interface {
	// Current returns the frame at the cursor without moving it.
	Current(ctx context.Context) (*frame.Frame, error)
	// PeekNext returns the frame one position ahead without moving the cursor.
	PeekNext(ctx context.Context) (*frame.Frame, error)
	// PeekPrev returns the frame one position behind without moving the cursor.
	PeekPrev(ctx context.Context) (*frame.Frame, error)
	// Advance moves the cursor forward by one and returns the new current
	// frame. A non-cyclable cache fails once the cursor would pass the last
	// identifier.
	Advance(ctx context.Context) (*frame.Frame, error)
	// Len is the total number of addressable identifiers.
	Len() int
}

// SteppableCache extends FrameCache with the reversible cursor the manual
// stepping path uses. The scheduler itself never steps backward.
type SteppableCache interface {
	FrameCache
	Retreat(ctx context.Context) (*frame.Frame, error)
	Position() int
}

// Options carries the session construction parameters. All fields are
// optional; a zero Options selects unsynchronized playback.
type Options struct {
	// SecondsPerSecond is the data seconds that should elapse per display
	// second. Zero with no explicit markers disables timestamp matching.
	SecondsPerSecond float64
	// DisplayFPS is the display tick rate.
	DisplayFPS float64
	// Markers, when set, is an explicit target timestamp sequence and takes
	// precedence over rate derivation.
	Markers []time.Time
}

// Op is the externally visible outcome of one tick.
type Op int

const (
	// OpHold repeats the last displayed frame: no cursor movement, no render.
	OpHold Op = iota
	// OpAdvance signals that Frame should be rendered.
	OpAdvance
)

func (o Op) String() string {
	if o == OpAdvance {
		return "advance"
	}
	return "hold"
}

// Decision is the outcome of one display tick.
type Decision struct {
	Tick int
	Op   Op
	// Frame is the frame to render; non-nil exactly when Op is OpAdvance.
	Frame *frame.Frame
	// Dropped counts frames skipped without rendering to catch up to the
	// tick's time marker.
	Dropped int
	// Cycled is set when the tick resynchronized the cursor at a cycle
	// boundary before deciding.
	Cycled bool
}

// Session is the playback scheduler for one run. It is single-consumer and
// tick-driven; Tick must not be called concurrently.
type Session struct {
	id        string
	cache     FrameCache
	schedule  *timeline.Schedule
	startTime time.Time
	endTime   time.Time
	saveCount int

	// frameIndex counts dispatched ticks. It is never reset; marker lookups
	// reduce it modulo saveCount.
	frameIndex int

	logger *slog.Logger
}

// NewSession snapshots the sequence bounds, builds the marker schedule, and
// positions the scheduler before its first tick.
func NewSession(ctx context.Context, cache FrameCache, opts Options, logger *slog.Logger) (*Session, error) {
	if cache == nil || cache.Len() == 0 {
		return nil, fmt.Errorf("%w: playback needs a non-empty scan sequence", timeline.ErrConfig)
	}

	first, err := cache.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("load first scan: %w", err)
	}
	// The frame behind position zero is the last reachable frame; peeks read
	// the identifier ring, so this holds for non-cyclable caches too.
	last, err := cache.PeekPrev(ctx)
	if err != nil {
		return nil, fmt.Errorf("load last scan: %w", err)
	}

	synchronized := opts.SecondsPerSecond > 0 || len(opts.Markers) > 0
	if synchronized && (!first.HasScanTime() || !last.HasScanTime()) {
		return nil, fmt.Errorf("synchronized playback: %w", ErrMissingTimestamp)
	}

	schedule, err := timeline.Build(timeline.Options{
		Markers: opts.Markers,
		SPS:     opts.SecondsPerSecond,
		FPS:     opts.DisplayFPS,
		Start:   first.ScanTime,
		End:     last.ScanTime,
	})
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s := &Session{
		id:        id,
		cache:     cache,
		schedule:  schedule,
		startTime: first.ScanTime,
		endTime:   last.ScanTime,
		saveCount: schedule.SaveCount(cache.Len()),
		logger: logging.NewComponentLogger(logger, "scheduler").With(
			logging.String(logging.FieldSession, id),
		),
	}
	s.logger.Info("session ready",
		logging.Bool("synchronized", schedule.Synchronized()),
		logging.Int("scans", cache.Len()),
		logging.Int("save_count", s.saveCount),
		logging.Time("start", s.startTime),
		logging.Time("end", s.endTime),
	)
	return s, nil
}

// ID returns the session's correlation identifier.
func (s *Session) ID() string { return s.id }

// SaveCount returns the number of ticks in one playback cycle.
func (s *Session) SaveCount() int { return s.saveCount }

// FrameIndex returns the number of ticks dispatched so far.
func (s *Session) FrameIndex() int { return s.frameIndex }

// Synchronized reports whether timestamp matching is in effect.
func (s *Session) Synchronized() bool { return s.schedule.Synchronized() }

// DisplayFPS returns the effective display tick rate: derived from explicit
// markers when they were supplied, the configured rate otherwise.
func (s *Session) DisplayFPS(configured float64) float64 {
	if s.schedule.Synchronized() && s.schedule.FPS > 0 {
		return s.schedule.FPS
	}
	return configured
}

// Tick services one display tick. Errors are fatal to the session: the
// cursor is left at the last successfully reached frame and no partial
// render is signaled.
func (s *Session) Tick(ctx context.Context) (Decision, error) {
	idx := s.frameIndex
	s.frameIndex++

	// The first tick bootstraps the display with the frame already under
	// the cursor; rate logic applies from the next tick on.
	if idx == 0 {
		f, err := s.cache.Current(ctx)
		if err != nil {
			return Decision{Tick: idx}, err
		}
		return Decision{Tick: idx, Op: OpAdvance, Frame: f}, nil
	}

	if !s.schedule.Synchronized() {
		f, err := s.cache.Advance(ctx)
		if err != nil {
			return Decision{Tick: idx}, err
		}
		return Decision{Tick: idx, Op: OpAdvance, Frame: f}, nil
	}

	frametime := s.schedule.Marker(idx % s.saveCount)

	// No data remains for this cycle; keep displaying the last rendered
	// frame until the marker index wraps.
	if frametime.After(s.endTime) {
		return Decision{Tick: idx, Op: OpHold}, nil
	}

	cycled := false
	if idx%s.saveCount == 0 {
		if err := s.cycleReset(ctx); err != nil {
			return Decision{Tick: idx}, err
		}
		cycled = true
	}

	cur, err := s.currentTimed(ctx)
	if err != nil {
		return Decision{Tick: idx}, err
	}

	// The cache is already ahead of the requested time.
	if frametime.Before(cur.ScanTime) {
		return Decision{Tick: idx, Op: OpHold, Cycled: cycled}, nil
	}

	// Catch up to the marker, then advance exactly once with a render
	// signal. An exact timestamp match advances: equality favors progress.
	// No separate endTime bound is needed in the loop; the overrun rule
	// above already guarantees frametime <= endTime, and the frame carrying
	// endTime stops the loop.
	dropped := 0
	for {
		next, err := s.peekNextTimed(ctx)
		if err != nil {
			return Decision{Tick: idx}, err
		}
		if !next.ScanTime.Before(frametime) {
			break
		}
		if _, err := s.cache.Advance(ctx); err != nil {
			return Decision{Tick: idx}, err
		}
		dropped++
	}
	f, err := s.cache.Advance(ctx)
	if err != nil {
		return Decision{Tick: idx}, err
	}
	if dropped > 0 {
		s.logger.Debug("dropped frames to catch up",
			logging.Int("dropped", dropped),
			logging.Time("marker", frametime),
			logging.String("scan_time", f.TimeLabel()),
		)
	}
	return Decision{Tick: idx, Op: OpAdvance, Frame: f, Dropped: dropped, Cycled: cycled}, nil
}

// cycleReset advances the cursor, without rendering, until it leaves the
// (startTime, endTime] window, that is, until it wraps back to the start of
// the sequence, so a new marker cycle begins at the first frame.
func (s *Session) cycleReset(ctx context.Context) error {
	for {
		cur, err := s.currentTimed(ctx)
		if err != nil {
			return err
		}
		if !s.startTime.Before(cur.ScanTime) || cur.ScanTime.After(s.endTime) {
			return nil
		}
		if _, err := s.cache.Advance(ctx); err != nil {
			return err
		}
		s.logger.Debug("cycle reset skipping ahead",
			logging.String("scan_time", cur.TimeLabel()),
		)
	}
}

// StepForward serves the manual stepping path outside the synchronized loop.
// It returns the newly current frame, or nil when the cursor is already at
// the final position. The tick counter is not disturbed.
func (s *Session) StepForward(ctx context.Context) (*frame.Frame, error) {
	stepper, ok := s.cache.(SteppableCache)
	if !ok {
		return nil, ErrSteppingUnsupported
	}
	if stepper.Position() >= s.cache.Len()-1 {
		return nil, nil
	}
	return stepper.Advance(ctx)
}

// StepBackward is the reverse of StepForward, holding at the first position.
func (s *Session) StepBackward(ctx context.Context) (*frame.Frame, error) {
	stepper, ok := s.cache.(SteppableCache)
	if !ok {
		return nil, ErrSteppingUnsupported
	}
	if stepper.Position() <= 0 {
		return nil, nil
	}
	return stepper.Retreat(ctx)
}

func (s *Session) currentTimed(ctx context.Context) (*frame.Frame, error) {
	f, err := s.cache.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !f.HasScanTime() {
		return nil, fmt.Errorf("current scan: %w", ErrMissingTimestamp)
	}
	return f, nil
}

func (s *Session) peekNextTimed(ctx context.Context) (*frame.Frame, error) {
	f, err := s.cache.PeekNext(ctx)
	if err != nil {
		return nil, err
	}
	if !f.HasScanTime() {
		return nil, fmt.Errorf("next scan: %w", ErrMissingTimestamp)
	}
	return f, nil
}
