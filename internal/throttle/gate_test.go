package throttle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGate_AcquireRelease(t *testing.T) {
	g := NewGate(100, 10, 2)
	defer g.Close()
	ctx := context.Background()

	p1, err := g.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	p2, err := g.Acquire(ctx)
	if err != nil {
		t.Fatalf("Second acquire failed: %v", err)
	}

	if got := g.InFlight(); got != 2 {
		t.Errorf("Expected 2 in flight, got %d", got)
	}

	p1.Release()
	p2.Release()

	if got := g.InFlight(); got != 0 {
		t.Errorf("Expected 0 in flight after release, got %d", got)
	}
}

func TestGate_ConcurrencyBound(t *testing.T) {
	g := NewGate(1000, 100, 1)
	defer g.Close()
	ctx := context.Background()

	p, err := g.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	// Second acquire must block until the first permit is released
	acquired := make(chan struct{})
	go func() {
		p2, err := g.Acquire(ctx)
		if err == nil {
			p2.Release()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("Second acquire succeeded while slot was held")
	case <-time.After(50 * time.Millisecond):
	}

	p.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Second acquire did not proceed after release")
	}
}

func TestGate_ContextCancelled(t *testing.T) {
	g := NewGate(1000, 100, 1)
	defer g.Close()

	p, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer p.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
}

func TestGate_CloseFailsPending(t *testing.T) {
	g := NewGate(1000, 100, 1)

	p, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	errc := make(chan error, 1)
	go func() {
		_, err := g.Acquire(context.Background())
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	g.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Pending acquire did not fail after Close")
	}

	// Future acquires fail immediately
	if _, err := g.Acquire(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed after close, got %v", err)
	}

	// Held permits remain releasable
	p.Release()
}

func TestGate_RateLimit(t *testing.T) {
	// 10 rps, burst 1: three sequential acquires need roughly 200ms
	g := NewGate(10, 1, 3)
	defer g.Close()
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		p, err := g.Acquire(ctx)
		if err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
		p.Release()
	}
	elapsed := time.Since(start)

	if elapsed < 150*time.Millisecond {
		t.Errorf("Rate limit not enforced: 3 acquires in %v", elapsed)
	}
}

func TestPermit_DoubleRelease(t *testing.T) {
	g := NewGate(100, 10, 1)
	defer g.Close()

	p, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	p.Release()
	p.Release() // no-op

	if got := g.InFlight(); got != 0 {
		t.Errorf("Expected 0 in flight, got %d", got)
	}
}
