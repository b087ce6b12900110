package playback_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sweep/internal/frame"
	"sweep/internal/logging"
	"sweep/internal/playback"
	"sweep/internal/render"
	"sweep/internal/scancache"
)

type countSink struct {
	mu      sync.Mutex
	renders int
	times   []time.Time
}

func (s *countSink) Render(_ context.Context, f *frame.Frame, _ *render.Surface) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renders++
	s.times = append(s.times, f.ScanTime)
	return nil
}

func (s *countSink) Teardown(context.Context, *render.Surface) error { return nil }

func (s *countSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renders
}

func newUpdater(t *testing.T, sink render.Sink) *render.Updater {
	t.Helper()
	updater, err := render.NewUpdater(sink, false)
	if err != nil {
		t.Fatalf("NewUpdater failed: %v", err)
	}
	updater.AddSurface("main", render.DrawOptions{})
	return updater
}

func TestPlayerOnceStopsAfterOneCycle(t *testing.T) {
	cache := buildCache(t, []time.Time{at(0), at(1), at(2)}, false)
	session := newSession(t, cache, playback.Options{})
	sink := &countSink{}
	player, err := playback.NewPlayer(session, newUpdater(t, sink), playback.PlayerOptions{DisplayFPS: 200, Once: true}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewPlayer failed: %v", err)
	}

	if err := player.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	player.Wait()

	if err := player.Err(); err != nil {
		t.Fatalf("playback failed: %v", err)
	}
	stats := player.Stats()
	if stats.Ticks != 3 || stats.Advances != 3 || stats.Holds != 0 {
		t.Fatalf("stats = %+v, want 3 advances in 3 ticks", stats)
	}
	if sink.count() != 3 {
		t.Fatalf("sink saw %d renders, want 3", sink.count())
	}
}

func TestPlayerStop(t *testing.T) {
	cache := buildCache(t, []time.Time{at(0), at(1), at(2)}, true)
	session := newSession(t, cache, playback.Options{})
	sink := &countSink{}
	player, err := playback.NewPlayer(session, newUpdater(t, sink), playback.PlayerOptions{DisplayFPS: 500}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewPlayer failed: %v", err)
	}

	if err := player.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := player.Start(context.Background()); err == nil {
		t.Fatal("second Start must fail while running")
	}

	deadline := time.Now().Add(5 * time.Second)
	for player.Stats().Ticks < 2 {
		if time.Now().After(deadline) {
			t.Fatal("player made no progress")
		}
		time.Sleep(time.Millisecond)
	}
	player.Stop()

	if err := player.Err(); err != nil {
		t.Fatalf("Err after Stop = %v, want nil", err)
	}
	if stats := player.Stats(); stats.Advances < 2 {
		t.Fatalf("stats = %+v, want at least 2 advances", stats)
	}
}

func TestPlayerSurfacesCacheExhaustion(t *testing.T) {
	cache := buildCache(t, []time.Time{at(0), at(1)}, false)
	session := newSession(t, cache, playback.Options{})
	sink := &countSink{}
	player, err := playback.NewPlayer(session, newUpdater(t, sink), playback.PlayerOptions{DisplayFPS: 200}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewPlayer failed: %v", err)
	}

	if err := player.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	player.Wait()

	if err := player.Err(); !errors.Is(err, scancache.ErrExhausted) {
		t.Fatalf("Err = %v, want ErrExhausted", err)
	}
	if sink.count() != 2 {
		t.Fatalf("sink saw %d renders, want 2 before exhaustion", sink.count())
	}
}

func TestNewPlayerValidation(t *testing.T) {
	cache := buildCache(t, []time.Time{at(0), at(1)}, true)
	session := newSession(t, cache, playback.Options{})
	updater := newUpdater(t, &countSink{})

	if _, err := playback.NewPlayer(nil, updater, playback.PlayerOptions{DisplayFPS: 1}, logging.NewNop()); err == nil {
		t.Fatal("nil session must be rejected")
	}
	if _, err := playback.NewPlayer(session, nil, playback.PlayerOptions{DisplayFPS: 1}, logging.NewNop()); err == nil {
		t.Fatal("nil updater must be rejected")
	}
	if _, err := playback.NewPlayer(session, updater, playback.PlayerOptions{}, logging.NewNop()); err == nil {
		t.Fatal("unsynchronized playback without a display rate must be rejected")
	}
}
