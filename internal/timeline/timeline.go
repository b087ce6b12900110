// Package timeline derives the target display timestamps a playback session
// tries to hit.
//
// A Schedule is either synchronized (a strictly increasing marker sequence
// plus the display and data rates that produced or accompanied it) or absent,
// in which case playback degrades to one scan per display tick.
package timeline

import (
	"errors"
	"fmt"
	"time"
)

// ErrConfig reports invalid or contradictory schedule parameters. It is fatal
// to session start.
var ErrConfig = errors.New("playback configuration error")

// Options selects one of the three schedule modes.
type Options struct {
	// Markers, when non-empty, is an explicit target timestamp sequence
	// (mode A). It takes precedence over rate derivation and requires SPS.
	Markers []time.Time
	// SPS is the data seconds that should elapse per display second. Zero
	// with no explicit markers selects unsynchronized playback (mode C).
	SPS float64
	// FPS is the display tick rate, used to derive the marker spacing in
	// mode B.
	FPS float64
	// Start and End are the scan times of the first and last reachable
	// frames, snapshotted at session start.
	Start time.Time
	End   time.Time
}

// Schedule is the marker sequence for one playback cycle. A nil Schedule
// means unsynchronized playback.
type Schedule struct {
	Markers []time.Time
	SPS     float64
	// FPS is the display tick rate: given in mode B, derived from the
	// marker span in mode A.
	FPS float64
}

// Build produces the schedule for the given options. It returns (nil, nil)
// in unsynchronized mode; that is a deliberate degraded mode, not an error.
func Build(opts Options) (*Schedule, error) {
	if len(opts.Markers) > 0 {
		return buildExplicit(opts)
	}
	if opts.SPS > 0 {
		return buildFromRate(opts)
	}
	return nil, nil
}

// buildExplicit validates caller-supplied markers and derives the display
// rate that spreads them over the requested data rate.
func buildExplicit(opts Options) (*Schedule, error) {
	markers := opts.Markers
	if len(markers) < 2 {
		return nil, fmt.Errorf("%w: explicit markers need at least 2 entries, got %d", ErrConfig, len(markers))
	}
	if opts.SPS <= 0 {
		return nil, fmt.Errorf("%w: explicit markers require a positive data rate (sps)", ErrConfig)
	}
	for i := 1; i < len(markers); i++ {
		if !markers[i].After(markers[i-1]) {
			return nil, fmt.Errorf("%w: markers must be strictly increasing (index %d)", ErrConfig, i)
		}
	}
	span := markers[len(markers)-1].Sub(markers[0]).Seconds()
	fps := float64(len(markers)-1) / (span / opts.SPS)
	return &Schedule{Markers: markers, SPS: opts.SPS, FPS: fps}, nil
}

// buildFromRate generates uniform markers spanning [Start, End], inclusive of
// the first point past End.
func buildFromRate(opts Options) (*Schedule, error) {
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("%w: display rate (fps) must be positive, got %v", ErrConfig, opts.FPS)
	}
	if opts.Start.IsZero() || opts.End.IsZero() {
		return nil, fmt.Errorf("%w: rate-derived markers need session start and end times", ErrConfig)
	}
	if opts.End.Before(opts.Start) {
		return nil, fmt.Errorf("%w: session end %v precedes start %v", ErrConfig, opts.End, opts.Start)
	}
	timestep := time.Duration(opts.SPS / opts.FPS * float64(time.Second))
	if timestep <= 0 {
		return nil, fmt.Errorf("%w: data rate %v and display rate %v produce a zero timestep", ErrConfig, opts.SPS, opts.FPS)
	}

	current := opts.Start
	markers := []time.Time{current}
	for !current.After(opts.End) {
		current = current.Add(timestep)
		markers = append(markers, current)
	}
	return &Schedule{Markers: markers, SPS: opts.SPS, FPS: opts.FPS}, nil
}

// Synchronized reports whether marker matching applies.
func (s *Schedule) Synchronized() bool {
	return s != nil && len(s.Markers) > 0
}

// SaveCount returns the number of ticks in one playback cycle: the marker
// count when synchronized, the sequence length otherwise.
func (s *Schedule) SaveCount(sequenceLen int) int {
	if s.Synchronized() {
		return len(s.Markers)
	}
	return sequenceLen
}

// Marker returns the target timestamp for the given tick index, reduced
// modulo the cycle length.
func (s *Schedule) Marker(frameIndex int) time.Time {
	return s.Markers[frameIndex%len(s.Markers)]
}
