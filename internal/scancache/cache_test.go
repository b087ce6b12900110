package scancache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"sweep/internal/frame"
	"sweep/internal/logging"
)

// countingLoader fabricates frames whose scan time encodes the identifier and
// records how often each identifier was loaded.
type countingLoader struct {
	loads map[string]int
	fail  map[string]error
}

func newCountingLoader() *countingLoader {
	return &countingLoader{loads: make(map[string]int), fail: make(map[string]error)}
}

func (l *countingLoader) load(_ context.Context, id string) (*frame.Frame, error) {
	l.loads[id]++
	if err := l.fail[id]; err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("bad test id %q: %w", id, err)
	}
	return &frame.Frame{
		Values:   [][][]float64{{{float64(n)}}},
		CoordX:   [][]float64{{0}},
		CoordY:   [][]float64{{0}},
		ScanTime: time.Unix(int64(n), 0).UTC(),
	}, nil
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func newCache(t *testing.T, n int, cyclable bool, ahead, behind int) (*Cache, *countingLoader) {
	t.Helper()
	loader := newCountingLoader()
	cache, err := New(Options{
		IDs:        ids(n),
		Lookahead:  ahead,
		Lookbehind: behind,
		Loader:     loader.load,
		Cyclable:   cyclable,
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return cache, loader
}

func scanSecond(t *testing.T, f *frame.Frame) int64 {
	t.Helper()
	if f == nil {
		t.Fatal("nil frame")
	}
	return f.ScanTime.Unix()
}

func TestNewRequiresIDsAndLoader(t *testing.T) {
	if _, err := New(Options{Loader: newCountingLoader().load}, logging.NewNop()); err == nil {
		t.Fatal("expected error for empty identifier sequence")
	}
	if _, err := New(Options{IDs: ids(1)}, logging.NewNop()); err == nil {
		t.Fatal("expected error for nil loader")
	}
}

func TestPeeksDoNotMoveCursor(t *testing.T) {
	cache, _ := newCache(t, 4, true, 2, 1)
	ctx := context.Background()

	cur, err := cache.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if scanSecond(t, cur) != 0 {
		t.Fatalf("current = %d, want 0", scanSecond(t, cur))
	}
	next, err := cache.PeekNext(ctx)
	if err != nil {
		t.Fatalf("PeekNext failed: %v", err)
	}
	if scanSecond(t, next) != 1 {
		t.Fatalf("peek next = %d, want 1", scanSecond(t, next))
	}
	prev, err := cache.PeekPrev(ctx)
	if err != nil {
		t.Fatalf("PeekPrev failed: %v", err)
	}
	if scanSecond(t, prev) != 3 {
		t.Fatalf("peek prev should wrap to 3, got %d", scanSecond(t, prev))
	}
	if cache.Position() != 0 {
		t.Fatalf("cursor moved to %d", cache.Position())
	}
}

func TestPeekPrevWrapsEvenWhenNotCyclable(t *testing.T) {
	// Peeks read the identifier ring; only Advance/Retreat honor cyclable.
	cache, _ := newCache(t, 3, false, 1, 0)
	prev, err := cache.PeekPrev(context.Background())
	if err != nil {
		t.Fatalf("PeekPrev failed: %v", err)
	}
	if scanSecond(t, prev) != 2 {
		t.Fatalf("peek prev = %d, want 2", scanSecond(t, prev))
	}
}

func TestAdvanceWrapsWhenCyclable(t *testing.T) {
	cache, _ := newCache(t, 3, true, 1, 0)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		f, err := cache.Advance(ctx)
		if err != nil {
			t.Fatalf("Advance %d failed: %v", i, err)
		}
		want := int64(i % 3)
		if scanSecond(t, f) != want {
			t.Fatalf("advance %d = %d, want %d", i, scanSecond(t, f), want)
		}
	}
}

func TestAdvanceExhaustsNonCyclable(t *testing.T) {
	cache, _ := newCache(t, 2, false, 1, 0)
	ctx := context.Background()
	if _, err := cache.Advance(ctx); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	_, err := cache.Advance(ctx)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if cache.Position() != 1 {
		t.Fatalf("cursor moved on failed advance: %d", cache.Position())
	}
}

func TestRetreatExhaustsNonCyclableAtStart(t *testing.T) {
	cache, _ := newCache(t, 2, false, 1, 0)
	if _, err := cache.Retreat(context.Background()); !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
}

func TestWindowBoundsMaterialization(t *testing.T) {
	cache, loader := newCache(t, 10, false, 1, 1)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		if _, err := cache.Advance(ctx); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if got := cache.Materialized(); got > 3 {
			t.Fatalf("window grew to %d frames", got)
		}
	}
	// Everything was loaded exactly once on a forward-only pass.
	for id, n := range loader.loads {
		if n != 1 {
			t.Fatalf("scan %s loaded %d times", id, n)
		}
	}
}

func TestEvictedFramesReload(t *testing.T) {
	cache, loader := newCache(t, 5, true, 1, 0)
	ctx := context.Background()
	if _, err := cache.Current(ctx); err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := cache.Advance(ctx); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
	}
	if loader.loads["0"] < 2 {
		t.Fatalf("scan 0 should have been evicted and reloaded, loads = %d", loader.loads["0"])
	}
}

func TestLoadErrorsPropagate(t *testing.T) {
	cache, loader := newCache(t, 3, true, 1, 0)
	boom := errors.New("decode failure")
	loader.fail["1"] = boom
	_, err := cache.Advance(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped decode failure", err)
	}
}
