// Package registry owns the canonical in-memory candidate state. Every
// mutation is written through to the candidate store so a restart resumes
// from the last persisted stage.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-token-scout/internal/domain"
	"solana-token-scout/internal/idhash"
	"solana-token-scout/internal/storage"
)

// ErrCapacity is returned by Upsert when the registry is full.
var ErrCapacity = errors.New("registry: at capacity")

// ErrIllegalTransition is returned for a stage change the lifecycle does
// not allow.
var ErrIllegalTransition = errors.New("registry: illegal stage transition")

// Options configures a Registry.
type Options struct {
	Store storage.CandidateStore
	// Audit is the optional append-only signal log. Nil disables auditing.
	Audit storage.SignalLogStore
	// MaxActive caps the number of tracked candidates. Zero means no cap.
	MaxActive int
	Logger    zerolog.Logger
	// Clock is overridable for tests. Nil means time.Now.
	Clock func() time.Time
}

// Registry tracks candidates by ID and mint, guards per-candidate
// evaluation reentrancy and counts retryable failures per source.
type Registry struct {
	mu       sync.RWMutex
	byID     map[string]*domain.Candidate
	byMint   map[string]string
	attempts map[string]map[domain.Source]int
	inEval   map[string]struct{}

	store     storage.CandidateStore
	audit     storage.SignalLogStore
	maxActive int
	log       zerolog.Logger
	clock     func() time.Time
}

// New creates an empty registry.
func New(opts Options) *Registry {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		byID:      make(map[string]*domain.Candidate),
		byMint:    make(map[string]string),
		attempts:  make(map[string]map[domain.Source]int),
		inEval:    make(map[string]struct{}),
		store:     opts.Store,
		audit:     opts.Audit,
		maxActive: opts.MaxActive,
		log:       opts.Logger.With().Str("component", "registry").Logger(),
		clock:     clock,
	}
}

// Load restores active candidates from the store. Called once on startup
// before the scheduler runs.
func (r *Registry) Load(ctx context.Context) error {
	active, err := r.store.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("load active candidates: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range active {
		r.byID[c.CandidateID] = c
		r.byMint[c.Mint] = c.CandidateID
	}

	r.log.Info().Int("count", len(active)).Msg("registry loaded")
	return nil
}

// Upsert registers a discovered token. Rediscovery of a tracked mint
// returns the existing candidate unchanged; created reports whether a new
// entry was made.
func (r *Registry) Upsert(ctx context.Context, tok domain.DiscoveredToken) (c *domain.Candidate, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byMint[tok.Mint]; ok {
		return r.byID[id].Clone(), false, nil
	}
	if r.maxActive > 0 && len(r.byID) >= r.maxActive {
		return nil, false, ErrCapacity
	}

	now := r.clock().UnixMilli()
	cand := &domain.Candidate{
		CandidateID:     idhash.ComputeCandidateID(tok.Mint),
		Mint:            tok.Mint,
		Symbol:          tok.Symbol,
		Name:            tok.Name,
		DiscoverySource: tok.Source,
		DiscoveredAt:    now,
		Stage:           domain.StageDiscovered,
		UpdatedAt:       now,
		Signals:         make(domain.SignalBundle),
	}

	if err := r.store.Upsert(ctx, cand); err != nil {
		return nil, false, fmt.Errorf("persist new candidate: %w", err)
	}

	r.byID[cand.CandidateID] = cand
	r.byMint[cand.Mint] = cand.CandidateID

	r.log.Info().
		Str("candidate_id", cand.CandidateID).
		Str("mint", cand.Mint).
		Str("discovery_source", cand.DiscoverySource).
		Msg("candidate registered")
	return cand.Clone(), true, nil
}

// Get returns a copy of the candidate.
func (r *Registry) Get(candidateID string) (*domain.Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[candidateID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return c.Clone(), nil
}

// Snapshot returns copies of all non-terminal candidates ordered by
// discovery time.
func (r *Registry) Snapshot() []*domain.Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Candidate
	for _, c := range r.byID {
		if !c.Stage.Terminal() {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DiscoveredAt < out[j].DiscoveredAt
	})
	return out
}

// ActiveCount reports the number of non-terminal candidates.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.byID {
		if !c.Stage.Terminal() {
			n++
		}
	}
	return n
}

// BeginEvaluation marks the candidate as being evaluated this tick. It
// returns false if an evaluation is already in flight, which keeps a slow
// source from letting two ticks race on one candidate.
func (r *Registry) BeginEvaluation(candidateID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.inEval[candidateID]; busy {
		return false
	}
	if _, ok := r.byID[candidateID]; !ok {
		return false
	}
	r.inEval[candidateID] = struct{}{}
	return true
}

// EndEvaluation releases the evaluation mark.
func (r *Registry) EndEvaluation(candidateID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inEval, candidateID)
}

// RecordSignal stores a source's newest result for the candidate. A newer
// result supersedes the previous one for the same source, never merges.
// Failure outcomes count against the candidate's per-source budget and an
// OK result resets that count; a rate-limited result leaves it untouched.
func (r *Registry) RecordSignal(ctx context.Context, candidateID string, res domain.SignalResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[candidateID]
	if !ok {
		return storage.ErrNotFound
	}

	if c.Signals == nil {
		c.Signals = make(domain.SignalBundle)
	}
	c.Signals[res.Source] = res
	c.UpdatedAt = r.clock().UnixMilli()

	switch {
	case res.Outcome == domain.OutcomeOK:
		if r.attempts[candidateID] != nil {
			delete(r.attempts[candidateID], res.Source)
		}
	case res.Outcome.Failure():
		if r.attempts[candidateID] == nil {
			r.attempts[candidateID] = make(map[domain.Source]int)
		}
		r.attempts[candidateID][res.Source]++
	}

	if err := r.store.Upsert(ctx, c); err != nil {
		return fmt.Errorf("persist signal: %w", err)
	}
	if r.audit != nil {
		if err := r.audit.Append(ctx, candidateID, &res); err != nil {
			// The audit log is advisory; losing an entry must not stall
			// the pipeline.
			r.log.Warn().Err(err).Str("candidate_id", candidateID).Msg("signal audit append failed")
		}
	}
	return nil
}

// Attempts reports the retryable failure count for a candidate and source.
func (r *Registry) Attempts(candidateID string, src domain.Source) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.attempts[candidateID][src]
}

// AdvanceStage moves the candidate along the lifecycle. Illegal transitions
// fail with ErrIllegalTransition.
func (r *Registry) AdvanceStage(ctx context.Context, candidateID string, to domain.Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[candidateID]
	if !ok {
		return storage.ErrNotFound
	}
	if !domain.CanTransition(c.Stage, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.Stage, to)
	}

	from := c.Stage
	c.Stage = to
	c.UpdatedAt = r.clock().UnixMilli()

	if err := r.store.Upsert(ctx, c); err != nil {
		c.Stage = from
		return fmt.Errorf("persist stage change: %w", err)
	}

	r.log.Debug().
		Str("candidate_id", candidateID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("stage advanced")
	return nil
}

// Reject moves the candidate to REJECTED with a reason.
func (r *Registry) Reject(ctx context.Context, candidateID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[candidateID]
	if !ok {
		return storage.ErrNotFound
	}
	if !domain.CanTransition(c.Stage, domain.StageRejected) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.Stage, domain.StageRejected)
	}

	c.Stage = domain.StageRejected
	c.RejectReason = reason
	c.UpdatedAt = r.clock().UnixMilli()

	if err := r.store.Upsert(ctx, c); err != nil {
		return fmt.Errorf("persist rejection: %w", err)
	}

	r.log.Info().
		Str("candidate_id", candidateID).
		Str("mint", c.Mint).
		Str("reason", reason).
		Msg("candidate rejected")
	return nil
}

// SetTrade links an opened trade to the candidate.
func (r *Registry) SetTrade(ctx context.Context, candidateID, tradeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[candidateID]
	if !ok {
		return storage.ErrNotFound
	}
	c.TradeID = tradeID
	c.UpdatedAt = r.clock().UnixMilli()

	if err := r.store.Upsert(ctx, c); err != nil {
		return fmt.Errorf("persist trade link: %w", err)
	}
	return nil
}

// EvictStale removes candidates untouched for longer than ttl. Stale
// non-terminal candidates are rejected first so the store keeps a record of
// why they left; terminal ones are dropped from memory and store.
func (r *Registry) EvictStale(ctx context.Context, ttl time.Duration) int {
	cutoff := r.clock().Add(-ttl).UnixMilli()

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, c := range r.byID {
		if c.UpdatedAt >= cutoff {
			continue
		}
		if _, busy := r.inEval[id]; busy {
			continue
		}

		if !c.Stage.Terminal() {
			if !domain.CanTransition(c.Stage, domain.StageRejected) {
				continue
			}
			c.Stage = domain.StageRejected
			c.RejectReason = "stale"
			c.UpdatedAt = r.clock().UnixMilli()
			if err := r.store.Upsert(ctx, c); err != nil {
				r.log.Warn().Err(err).Str("candidate_id", id).Msg("persist stale rejection failed")
				continue
			}
			evicted++
			continue
		}

		if err := r.store.Delete(ctx, id); err != nil {
			r.log.Warn().Err(err).Str("candidate_id", id).Msg("evict delete failed")
			continue
		}
		delete(r.byID, id)
		delete(r.byMint, c.Mint)
		delete(r.attempts, id)
		evicted++
	}

	if evicted > 0 {
		r.log.Info().Int("count", evicted).Msg("stale candidates evicted")
	}
	return evicted
}
