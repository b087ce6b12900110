// Package render turns advance decisions into draw calls against registered
// display surfaces.
//
// The Updater owns the set of surfaces and applies one of two mutually
// exclusive strategies chosen at construction: in-place value updates when
// every scan shares the same grid geometry, or a full teardown and rebuild
// per frame when geometry may change between scans. Sinks perform the actual
// drawing and are only ever called on advance, never on hold or drop.
package render

import (
	"context"
	"errors"
	"fmt"

	"sweep/internal/frame"
)

// DrawOptions are the per-surface options captured at registration and
// preserved across rebuilds.
type DrawOptions struct {
	// Layer selects which volume layer the surface displays.
	Layer int
	// ZOrder and Alpha order and blend the surface against others sharing a
	// display.
	ZOrder int
	Alpha  float64
}

// Surface identifies one display target.
type Surface struct {
	ID      string
	Options DrawOptions
}

// Sink performs the drawing. Render both creates a surface's draw object and
// updates it in place; Teardown removes a previously rendered object.
type Sink interface {
	Render(ctx context.Context, f *frame.Frame, surface *Surface) error
	Teardown(ctx context.Context, surface *Surface) error
}

// Updater routes advanced frames to every registered surface.
type Updater struct {
	sink   Sink
	robust bool

	// active surfaces have a live draw object; pending ones were registered
	// since the last advance and are created on the next one.
	active  []*Surface
	pending []*Surface
}

// NewUpdater builds an updater. robust selects the teardown/rebuild strategy.
func NewUpdater(sink Sink, robust bool) (*Updater, error) {
	if sink == nil {
		return nil, errors.New("render: sink is required")
	}
	return &Updater{sink: sink, robust: robust}, nil
}

// Robust reports which strategy is in effect.
func (u *Updater) Robust() bool { return u.robust }

// AddSurface registers a display surface. Surfaces added mid-session are
// queued and get their first render on the next advance.
func (u *Updater) AddSurface(id string, opts DrawOptions) {
	u.pending = append(u.pending, &Surface{ID: id, Options: opts})
}

// Surfaces returns how many surfaces are registered, live or pending.
func (u *Updater) Surfaces() int { return len(u.active) + len(u.pending) }

// Apply draws f on every surface according to the configured strategy.
func (u *Updater) Apply(ctx context.Context, f *frame.Frame) error {
	if f == nil {
		return errors.New("render: nil frame")
	}

	if u.robust {
		// Geometry may have changed: discard every draw object and queue
		// the surfaces for recreation with their original options.
		for _, surface := range u.active {
			if err := u.sink.Teardown(ctx, surface); err != nil {
				return fmt.Errorf("teardown surface %q: %w", surface.ID, err)
			}
			u.pending = append(u.pending, surface)
		}
		u.active = u.active[:0]
	} else {
		for _, surface := range u.active {
			if err := u.sink.Render(ctx, f, surface); err != nil {
				return fmt.Errorf("update surface %q: %w", surface.ID, err)
			}
		}
	}

	for _, surface := range u.pending {
		if err := u.sink.Render(ctx, f, surface); err != nil {
			return fmt.Errorf("create surface %q: %w", surface.ID, err)
		}
		u.active = append(u.active, surface)
	}
	u.pending = u.pending[:0]
	return nil
}

// Close tears down every live surface.
func (u *Updater) Close(ctx context.Context) error {
	var firstErr error
	for _, surface := range u.active {
		if err := u.sink.Teardown(ctx, surface); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	u.active = u.active[:0]
	u.pending = u.pending[:0]
	return firstErr
}
