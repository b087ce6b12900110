// Package scancache materializes volume scans around a cursor over an
// ordered sequence of scan identifiers.
//
// The cache owns the loaded frames and the cursor. Frames are loaded on
// demand and evicted once they fall outside the configured lookahead and
// lookbehind window around the cursor. Peeks never move the cursor and read
// the identifier sequence as a ring in both directions; Advance and Retreat
// honor the cyclable setting and fail with ErrExhausted when a non-cyclable
// cursor would leave the sequence.
package scancache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sweep/internal/frame"
	"sweep/internal/logging"
)

// ErrExhausted reports that a non-cyclable cursor was driven past the end of
// the identifier sequence.
var ErrExhausted = errors.New("scan sequence exhausted")

// LoadFunc loads the frame for one scan identifier. Calls may block on I/O;
// the context bounds that work.
type LoadFunc func(ctx context.Context, id string) (*frame.Frame, error)

// Options configures a Cache.
type Options struct {
	// IDs is the ordered, non-empty sequence of scan identifiers.
	IDs []string
	// Lookahead and Lookbehind bound how many frames stay materialized
	// ahead of and behind the cursor. Lookahead is clamped to at least 1.
	Lookahead  int
	Lookbehind int
	Loader     LoadFunc
	Cyclable   bool
}

// Cache is a cursor over the scan sequence with a bounded materialization
// window. It has exactly one consumer and is not safe for concurrent use.
type Cache struct {
	ids      []string
	loader   LoadFunc
	ahead    int
	behind   int
	cyclable bool

	pos    int
	window map[int]*frame.Frame
	logger *slog.Logger
}

// New builds a cache positioned on the first identifier.
func New(opts Options, logger *slog.Logger) (*Cache, error) {
	if len(opts.IDs) == 0 {
		return nil, errors.New("scancache: no scan identifiers")
	}
	if opts.Loader == nil {
		return nil, errors.New("scancache: loader is required")
	}
	ahead := opts.Lookahead
	if ahead < 1 {
		ahead = 1
	}
	behind := opts.Lookbehind
	if behind < 0 {
		behind = 0
	}
	return &Cache{
		ids:      opts.IDs,
		loader:   opts.Loader,
		ahead:    ahead,
		behind:   behind,
		cyclable: opts.Cyclable,
		window:   make(map[int]*frame.Frame, ahead+behind+1),
		logger:   logging.NewComponentLogger(logger, "scancache"),
	}, nil
}

// Len returns the total number of addressable scan identifiers, not the
// materialized window size.
func (c *Cache) Len() int { return len(c.ids) }

// Position returns the cursor's index into the identifier sequence.
func (c *Cache) Position() int { return c.pos }

// Cyclable reports whether the cursor wraps past the last identifier.
func (c *Cache) Cyclable() bool { return c.cyclable }

// Current returns the frame at the cursor without moving it.
func (c *Cache) Current(ctx context.Context) (*frame.Frame, error) {
	return c.materialize(ctx, c.pos)
}

// PeekNext returns the frame one position ahead of the cursor without moving it.
func (c *Cache) PeekNext(ctx context.Context) (*frame.Frame, error) {
	return c.materialize(ctx, c.wrap(c.pos+1))
}

// PeekPrev returns the frame one position behind the cursor without moving it.
func (c *Cache) PeekPrev(ctx context.Context) (*frame.Frame, error) {
	return c.materialize(ctx, c.wrap(c.pos-1))
}

// Advance moves the cursor forward by one and returns the new current frame.
func (c *Cache) Advance(ctx context.Context) (*frame.Frame, error) {
	if !c.cyclable && c.pos == len(c.ids)-1 {
		return nil, fmt.Errorf("advance past %q: %w", c.ids[c.pos], ErrExhausted)
	}
	c.pos = c.wrap(c.pos + 1)
	f, err := c.materialize(ctx, c.pos)
	if err != nil {
		return nil, err
	}
	c.evict()
	return f, nil
}

// Retreat moves the cursor backward by one and returns the new current frame.
// It serves the manual stepping path, not the scheduler.
func (c *Cache) Retreat(ctx context.Context) (*frame.Frame, error) {
	if !c.cyclable && c.pos == 0 {
		return nil, fmt.Errorf("retreat past %q: %w", c.ids[c.pos], ErrExhausted)
	}
	c.pos = c.wrap(c.pos - 1)
	f, err := c.materialize(ctx, c.pos)
	if err != nil {
		return nil, err
	}
	c.evict()
	return f, nil
}

func (c *Cache) wrap(i int) int {
	n := len(c.ids)
	return ((i % n) + n) % n
}

func (c *Cache) materialize(ctx context.Context, i int) (*frame.Frame, error) {
	if f, ok := c.window[i]; ok {
		return f, nil
	}
	f, err := c.loader(ctx, c.ids[i])
	if err != nil {
		return nil, fmt.Errorf("load scan %q: %w", c.ids[i], err)
	}
	c.window[i] = f
	c.logger.Debug("materialized scan",
		logging.String("id", c.ids[i]),
		logging.Int("index", i),
		logging.Int("window", len(c.window)),
	)
	return f, nil
}

// evict drops frames outside the window around the cursor. Distances are
// measured along the ring so a cyclable cursor keeps its wraparound
// neighbors warm.
func (c *Cache) evict() {
	for i := range c.window {
		forward := c.wrap(i - c.pos)
		backward := c.wrap(c.pos - i)
		if forward <= c.ahead || backward <= c.behind {
			continue
		}
		delete(c.window, i)
	}
}

// Materialized returns how many frames are currently held, for tests and
// diagnostics.
func (c *Cache) Materialized() int { return len(c.window) }
