package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sweep/internal/logging"
	"sweep/internal/render"
)

// Stats counts the decisions a player has made.
type Stats struct {
	Ticks    int
	Advances int
	Holds    int
	Dropped  int
	Cycles   int
}

// PlayerOptions configures the driver loop.
type PlayerOptions struct {
	// DisplayFPS is the external timer rate. Explicit markers override it
	// through the session's derived rate.
	DisplayFPS float64
	// Once stops the player after one full marker cycle instead of looping.
	Once bool
}

// Player drives a session from a wall-clock ticker and feeds advance
// decisions to the render updater. Holds and drops never reach the sink.
type Player struct {
	session  *Session
	updater  *render.Updater
	interval time.Duration
	once     bool
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	err     error
	stats   Stats
}

// NewPlayer wires a session to an updater.
func NewPlayer(session *Session, updater *render.Updater, opts PlayerOptions, logger *slog.Logger) (*Player, error) {
	if session == nil || updater == nil {
		return nil, errors.New("playback: player requires a session and an updater")
	}
	fps := session.DisplayFPS(opts.DisplayFPS)
	if fps <= 0 {
		return nil, fmt.Errorf("playback: display rate must be positive, got %v", fps)
	}
	return &Player{
		session:  session,
		updater:  updater,
		interval: time.Duration(float64(time.Second) / fps),
		once:     opts.Once,
		logger: logging.NewComponentLogger(logger, "player").With(
			logging.String(logging.FieldSession, session.ID()),
		),
	}, nil
}

// Start begins the tick loop. It returns immediately; use Stop or context
// cancellation to end playback and Err to learn why it ended.
func (p *Player) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("playback already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(1)
	p.mu.Unlock()

	p.logger.Info("playback started",
		logging.Duration("tick_interval", p.interval),
		logging.Bool("once", p.once),
	)
	go p.run(runCtx)
	return nil
}

// Stop terminates the tick loop and waits for the in-flight tick, if any, to
// complete. Ticks are never cancelled mid-decision.
func (p *Player) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// Wait blocks until the loop exits on its own (fatal error, or end of cycle
// in once mode, or context cancellation).
func (p *Player) Wait() {
	p.wg.Wait()
}

// Err returns the fatal error that ended playback, if any.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stats returns a snapshot of the decision counters.
func (p *Player) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Player) run(ctx context.Context) {
	defer p.wg.Done()
	defer p.summarize()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := p.step(ctx); done {
				return
			}
		}
	}
}

// step services one tick. It reports true when the loop should exit.
func (p *Player) step(ctx context.Context) bool {
	decision, err := p.session.Tick(ctx)
	if err != nil {
		p.fail(fmt.Errorf("tick %d: %w", decision.Tick, err))
		return true
	}

	if decision.Op == OpAdvance {
		if err := p.updater.Apply(ctx, decision.Frame); err != nil {
			p.fail(fmt.Errorf("render tick %d: %w", decision.Tick, err))
			return true
		}
	}

	p.mu.Lock()
	p.stats.Ticks++
	switch decision.Op {
	case OpAdvance:
		p.stats.Advances++
	case OpHold:
		p.stats.Holds++
	}
	p.stats.Dropped += decision.Dropped
	if decision.Cycled {
		p.stats.Cycles++
	}
	ticks := p.stats.Ticks
	p.mu.Unlock()

	if p.once && ticks >= p.session.SaveCount() {
		p.logger.Info("cycle complete")
		return true
	}
	return false
}

func (p *Player) fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	p.logger.Error("playback aborted", logging.Error(err))
}

func (p *Player) summarize() {
	stats := p.Stats()
	p.logger.Info("playback finished",
		logging.Int("ticks", stats.Ticks),
		logging.Int("advances", stats.Advances),
		logging.Int("holds", stats.Holds),
		logging.Int("dropped", stats.Dropped),
		logging.Int("cycles", stats.Cycles),
	)
}
