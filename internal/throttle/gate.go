// Package throttle combines a token-bucket rate limit with a concurrency
// bound. Every call to an external signal source passes through a Gate.
package throttle

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// ErrClosed is returned by Acquire after the gate has been shut down.
var ErrClosed = errors.New("throttle: gate closed")

// Gate admits callers at a bounded rate and with bounded concurrency.
// Acquire blocks until both the rate limiter and a concurrency slot allow
// the call, or the context is done.
type Gate struct {
	limiter *rate.Limiter
	slots   chan struct{}
	done    chan struct{}
}

// NewGate creates a gate allowing rps requests per second with the given
// burst, and at most maxConcurrency calls in flight.
func NewGate(rps float64, burst, maxConcurrency int) *Gate {
	return &Gate{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		slots:   make(chan struct{}, maxConcurrency),
		done:    make(chan struct{}),
	}
}

// Acquire blocks until the call is admitted. The returned Permit must be
// released exactly once. Waiters are served in the slot channel's order;
// a closed gate fails all pending and future acquires with ErrClosed.
func (g *Gate) Acquire(ctx context.Context) (*Permit, error) {
	select {
	case <-g.done:
		return nil, ErrClosed
	default:
	}

	// Concurrency slot first so a stalled source does not consume rate
	// tokens for calls that cannot start yet.
	select {
	case g.slots <- struct{}{}:
	case <-g.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := g.limiter.Wait(ctx); err != nil {
		<-g.slots
		return nil, err
	}

	select {
	case <-g.done:
		<-g.slots
		return nil, ErrClosed
	default:
	}

	return &Permit{gate: g}, nil
}

// Close shuts the gate down. Pending and future Acquire calls fail with
// ErrClosed. Already-issued permits remain valid to release.
func (g *Gate) Close() {
	select {
	case <-g.done:
	default:
		close(g.done)
	}
}

// InFlight reports the number of currently held permits.
func (g *Gate) InFlight() int {
	return len(g.slots)
}

// Permit is a single admission through a gate.
type Permit struct {
	gate     *Gate
	released bool
}

// Release frees the concurrency slot. Releasing twice is a no-op.
func (p *Permit) Release() {
	if p == nil || p.released {
		return
	}
	p.released = true
	<-p.gate.slots
}
