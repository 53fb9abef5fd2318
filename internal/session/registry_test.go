package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/catalogbrowser/internal/catalog"
	"github.com/angelmondragon/catalogbrowser/pkg/logger"
	"github.com/angelmondragon/catalogbrowser/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)}
}

func TestRegistryGetCreatesOnce(t *testing.T) {
	reg := NewRegistry()
	a := reg.Get("a")
	if a != reg.Get("a") {
		t.Fatal("Get should return the same session for the same id")
	}
	if a == reg.Get("b") {
		t.Fatal("distinct ids must get distinct sessions")
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", reg.Len())
	}
	if a.ID() != "a" {
		t.Fatalf("unexpected id %q", a.ID())
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	reg := NewRegistry()
	pen := catalog.Product{Name: "Pen", Price: 1.5}

	_ = reg.Get("a").Do(func(st *State) error {
		_, err := st.Cart.Add(pen, 2)
		st.History.Record("pen", time.Now())
		return err
	})

	_ = reg.Get("b").Do(func(st *State) error {
		if st.Cart.Len() != 0 || st.History.Len() != 0 {
			t.Fatalf("session b should start empty, got cart=%d history=%d", st.Cart.Len(), st.History.Len())
		}
		return nil
	})
}

func TestDoReturnsCallbackError(t *testing.T) {
	boom := errors.New("boom")
	if err := NewRegistry().Get("a").Do(func(*State) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestDoSerializesAccess(t *testing.T) {
	s := NewRegistry().Get("a")
	pen := catalog.Product{Name: "Pen", Price: 1}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(func(st *State) error {
				_, err := st.Cart.Add(pen, 1)
				return err
			})
		}()
	}
	wg.Wait()

	_ = s.Do(func(st *State) error {
		if lines := st.Cart.Lines(); len(lines) != 1 || lines[0].Quantity != 50 {
			t.Fatalf("expected one line of quantity 50, got %+v", lines)
		}
		return nil
	})
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	clock := newClock()
	promReg := prometheus.NewRegistry()
	reg := NewRegistry(WithClock(clock.Now), WithMetrics(metrics.NewSessionMetrics(promReg)))

	old := reg.Get("old")
	clock.Advance(20 * time.Minute)
	fresh := reg.Get("fresh")
	clock.Advance(15 * time.Minute)

	if removed := reg.Sweep(clock.Now(), 30*time.Minute); removed != 1 {
		t.Fatalf("expected 1 eviction, got %d", removed)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 remaining session, got %d", reg.Len())
	}
	if reg.Get("fresh") != fresh {
		t.Fatal("fresh session should remain")
	}
	if reg.Get("old") == old {
		t.Fatal("old session should be gone")
	}
	if removed := reg.Sweep(clock.Now(), 0); removed != 0 {
		t.Fatalf("zero ttl disables eviction, got %d", removed)
	}
}

func TestSweepKeepsBusySession(t *testing.T) {
	clock := newClock()
	reg := NewRegistry(WithClock(clock.Now))
	s := reg.Get("busy")
	clock.Advance(time.Hour)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Do(func(*State) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	if removed := reg.Sweep(clock.Now(), time.Minute); removed != 0 {
		t.Fatalf("busy session must not be evicted, got %d", removed)
	}
	close(release)
	<-done

	if removed := reg.Sweep(clock.Now(), time.Minute); removed != 1 {
		t.Fatalf("expected eviction once idle, got %d", removed)
	}
}

func TestSweeper(t *testing.T) {
	if _, err := NewSweeper(SweeperParams{Registry: NewRegistry(), IdleTTL: time.Minute}); err == nil {
		t.Fatal("expected logger requirement")
	}
	if _, err := NewSweeper(SweeperParams{Logger: logger.Nop(), IdleTTL: time.Minute}); err == nil {
		t.Fatal("expected registry requirement")
	}
	if _, err := NewSweeper(SweeperParams{Logger: logger.Nop(), Registry: NewRegistry()}); err == nil {
		t.Fatal("expected ttl requirement")
	}

	clock := newClock()
	reg := NewRegistry(WithClock(clock.Now))
	reg.Get("a")
	clock.Advance(2 * time.Hour)

	sweeper, err := NewSweeper(SweeperParams{
		Logger:   logger.Nop(),
		Registry: reg,
		IdleTTL:  time.Hour,
		Interval: time.Millisecond,
		Now:      clock.Now,
	})
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}
	if removed := sweeper.SweepOnce(context.Background()); removed != 1 {
		t.Fatalf("expected 1 eviction, got %d", removed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- sweeper.Run(ctx) }()
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
