// Package playback maps a uniformly ticking display clock onto an irregular,
// lazily materialized scan sequence.
//
// The Session is the per-tick state machine: given the next time marker and
// the timestamps around the cache cursor it decides whether to hold the
// current frame, advance and render, drop frames to catch up, or
// resynchronize the cursor at a cycle boundary. The Player wraps a Session in
// a ticker-driven loop and feeds advance decisions to a render updater.
//
// A tick runs to completion before the next one is dispatched; the only
// suspension points are the cache's load calls, which are synchronous from
// the scheduler's point of view.
package playback
