// Package sources holds the adapters for the external signal providers.
// Each adapter answers exactly one question about a candidate and reports
// its answer as a SignalResult; it never mutates pipeline state.
package sources

import (
	"context"
	"errors"
	"time"

	"solana-token-scout/internal/domain"
)

// Adapter is one external signal source.
type Adapter interface {
	// Source identifies which signal this adapter produces.
	Source() domain.Source

	// Evaluate queries the provider about one candidate. It always returns
	// a result; transport failures are encoded in the Outcome, not as an
	// error, so the engine treats every answer uniformly.
	Evaluate(ctx context.Context, c *domain.Candidate) domain.SignalResult
}

// Discoverer yields newly observed tokens. Discovery is driven separately
// from per-candidate evaluation.
type Discoverer interface {
	Discover(ctx context.Context) ([]domain.DiscoveredToken, error)
}

// ErrRateLimited marks a provider 429. The engine retries it against the
// candidate's budget like any transient failure.
var ErrRateLimited = errors.New("sources: rate limited by provider")

// okResult builds a successful result stamped with latency and time.
func okResult(src domain.Source, payload domain.SignalPayload, start time.Time) domain.SignalResult {
	now := time.Now()
	return domain.SignalResult{
		Source:     src,
		Outcome:    domain.OutcomeOK,
		Payload:    payload,
		LatencyMs:  now.Sub(start).Milliseconds(),
		ObservedAt: now.UnixMilli(),
	}
}

// failResult classifies err into TIMEOUT, RATE_LIMITED or ERROR.
func failResult(src domain.Source, err error, start time.Time) domain.SignalResult {
	now := time.Now()
	r := domain.SignalResult{
		Source:     src,
		Err:        err.Error(),
		LatencyMs:  now.Sub(start).Milliseconds(),
		ObservedAt: now.UnixMilli(),
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		r.Outcome = domain.OutcomeTimeout
	case errors.Is(err, ErrRateLimited):
		r.Outcome = domain.OutcomeRateLimited
	default:
		r.Outcome = domain.OutcomeError
	}
	return r
}
