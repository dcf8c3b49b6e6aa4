// Package engine runs one evaluation cycle: pull the discovery feeds,
// register new candidates, and fan out over active candidates consulting
// the signal source each one's stage requires.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"solana-token-scout/internal/decide"
	"solana-token-scout/internal/domain"
	"solana-token-scout/internal/executor"
	"solana-token-scout/internal/observability"
	"solana-token-scout/internal/registry"
	"solana-token-scout/internal/solanaaddr"
	"solana-token-scout/internal/sources"
)

// Trader drives an accepted decision through the venue. Satisfied by
// executor.Executor; nil disables execution.
type Trader interface {
	Execute(ctx context.Context, c *domain.Candidate, d domain.Decision, decidedAt int64) (*domain.TradeRecord, error)
	Resume(ctx context.Context, tradeID string) (*domain.TradeRecord, error)
}

// Options for creating an Engine.
type Options struct {
	Registry    *registry.Registry
	Adapters    map[domain.Source]sources.Adapter
	Discoverers []sources.Discoverer
	Trader      Trader
	Decision    decide.Params
	// RetryBudget is the number of retryable signal failures tolerated per
	// candidate per source before the candidate is rejected.
	RetryBudget int
	// MaxConcurrent bounds candidate evaluations in flight within a cycle.
	MaxConcurrent int
	// MaxOpenTrades caps candidates in the DECIDED and EXECUTING stages.
	// Zero means no cap.
	MaxOpenTrades int
	Metrics       *observability.Metrics
	Logger        zerolog.Logger
}

// Engine coordinates discovery and per-candidate evaluation.
type Engine struct {
	registry      *registry.Registry
	adapters      map[domain.Source]sources.Adapter
	discoverers   []sources.Discoverer
	trader        Trader
	params        decide.Params
	retryBudget   int
	maxParallel   int64
	maxOpenTrades int
	metrics       *observability.Metrics
	log           zerolog.Logger
}

// CycleStats summarizes one cycle for logs and tests.
type CycleStats struct {
	TokensSeen        int
	CandidatesCreated int
	Evaluated         int
	Errors            []string
}

// New creates an Engine.
func New(opts Options) *Engine {
	maxParallel := int64(opts.MaxConcurrent)
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &Engine{
		registry:      opts.Registry,
		adapters:      opts.Adapters,
		discoverers:   opts.Discoverers,
		trader:        opts.Trader,
		params:        opts.Decision,
		retryBudget:   opts.RetryBudget,
		maxParallel:   maxParallel,
		maxOpenTrades: opts.MaxOpenTrades,
		metrics:       opts.Metrics,
		log:           opts.Logger.With().Str("component", "engine").Logger(),
	}
}

// RunCycle executes one full tick: discovery, then bounded parallel
// evaluation of every active candidate. Per-candidate failures are
// collected, never fatal to the cycle.
func (e *Engine) RunCycle(ctx context.Context) (*CycleStats, error) {
	stats := &CycleStats{}

	e.discover(ctx, stats)

	snapshot := e.registry.Snapshot()
	sem := semaphore.NewWeighted(e.maxParallel)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, c := range snapshot {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Cancelled mid-fanout. Workers already dispatched must
			// finish before the stats escape to the caller.
			break
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer sem.Release(1)

			if err := e.evaluate(ctx, id); err != nil {
				e.log.Error().Err(err).Str("candidate_id", id).Msg("evaluation failed")
				mu.Lock()
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", id, err))
				mu.Unlock()
			}
			mu.Lock()
			stats.Evaluated++
			mu.Unlock()
		}(c.CandidateID)
	}
	wg.Wait()

	if e.metrics != nil {
		e.metrics.ActiveCandidates.Set(float64(e.registry.ActiveCount()))
	}
	return stats, ctx.Err()
}

// discover pulls every feed and registers valid new tokens.
func (e *Engine) discover(ctx context.Context, stats *CycleStats) {
	for _, disc := range e.discoverers {
		toks, err := disc.Discover(ctx)
		if err != nil {
			e.log.Warn().Err(err).Msg("discovery feed failed")
			stats.Errors = append(stats.Errors, fmt.Sprintf("discovery: %v", err))
			continue
		}

		for _, tok := range toks {
			stats.TokensSeen++
			if e.metrics != nil {
				e.metrics.TokensDiscovered.WithLabelValues(tok.Source).Inc()
			}

			if !solanaaddr.IsValidMint(tok.Mint) {
				e.dropToken("invalid_mint")
				continue
			}

			_, created, err := e.registry.Upsert(ctx, tok)
			if errors.Is(err, registry.ErrCapacity) {
				e.dropToken("capacity")
				continue
			}
			if err != nil {
				stats.Errors = append(stats.Errors, fmt.Sprintf("upsert %s: %v", tok.Mint, err))
				continue
			}
			if created {
				stats.CandidatesCreated++
				if e.metrics != nil {
					e.metrics.CandidatesCreated.Inc()
				}
			}
		}
	}
}

func (e *Engine) dropToken(reason string) {
	if e.metrics != nil {
		e.metrics.DiscoveryDropped.WithLabelValues(reason).Inc()
	}
}

// evaluate advances one candidate by at most one step. The reentrancy
// guard keeps a slow source from letting two ticks race on one candidate.
func (e *Engine) evaluate(ctx context.Context, candidateID string) error {
	if !e.registry.BeginEvaluation(candidateID) {
		return nil
	}
	defer e.registry.EndEvaluation(candidateID)

	c, err := e.registry.Get(candidateID)
	if err != nil {
		return err
	}
	if c.Stage.Terminal() {
		return nil
	}

	switch c.Stage {
	case domain.StageMonitored:
		return e.decideStage(ctx, c)
	case domain.StageDecided, domain.StageExecuting:
		return e.executeStage(ctx, c)
	default:
		return e.signalStage(ctx, c)
	}
}

// signalStage consults the one source the candidate's stage requires and
// advances, rejects, or leaves it in place for the next tick.
func (e *Engine) signalStage(ctx context.Context, c *domain.Candidate) error {
	src := c.Stage.RequiredSource()
	if src == domain.SourceNone {
		return nil
	}
	ad, ok := e.adapters[src]
	if !ok {
		return fmt.Errorf("no adapter for source %s", src)
	}

	res := ad.Evaluate(ctx, c)
	if err := e.registry.RecordSignal(ctx, c.CandidateID, res); err != nil {
		return fmt.Errorf("record %s signal: %w", src, err)
	}
	e.observeSignal(res)

	if res.Outcome == domain.OutcomeRateLimited {
		e.log.Debug().
			Str("candidate_id", c.CandidateID).
			Str("source", string(src)).
			Msg("source rate limited, retrying next cycle")
		return nil
	}

	if res.Outcome != domain.OutcomeOK {
		if e.retryBudget > 0 && e.registry.Attempts(c.CandidateID, src) >= e.retryBudget {
			return e.reject(ctx, c.CandidateID, "signal unavailable:"+string(src))
		}
		e.log.Debug().
			Str("candidate_id", c.CandidateID).
			Str("source", string(src)).
			Str("outcome", string(res.Outcome)).
			Int("attempts", e.registry.Attempts(c.CandidateID, src)).
			Msg("signal failed, will retry")
		return nil
	}

	if src == domain.SourceFilter && !res.Payload.Filter.Pass {
		return e.reject(ctx, c.CandidateID, "filter:"+res.Payload.Filter.FailReason)
	}

	next := c.Stage.NextStage()
	if err := e.registry.AdvanceStage(ctx, c.CandidateID, next); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.StageAdvances.WithLabelValues(string(next)).Inc()
	}
	return nil
}

// decideStage recomputes the decision from the candidate's signal bundle.
// An incomplete bundle triggers a refresh of the missing source instead of
// a verdict.
func (e *Engine) decideStage(ctx context.Context, c *domain.Candidate) error {
	d, err := decide.Evaluate(c.Signals, e.params)
	var inc *decide.ErrIncomplete
	if errors.As(err, &inc) {
		return e.refreshSignal(ctx, c, inc.Missing)
	}
	if err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.Decisions.WithLabelValues(string(d.Verdict)).Inc()
	}
	e.log.Info().
		Str("candidate_id", c.CandidateID).
		Str("mint", c.Mint).
		Str("verdict", string(d.Verdict)).
		Str("reason", d.Reason).
		Msg("decision")

	switch d.Verdict {
	case domain.VerdictReject:
		return e.reject(ctx, c.CandidateID, d.Reason)
	case domain.VerdictWatch:
		// Stays MONITORED; re-decided next tick on fresh signals.
		return nil
	case domain.VerdictTrade:
		if e.maxOpenTrades > 0 && e.openTrades() >= e.maxOpenTrades {
			e.log.Info().
				Str("candidate_id", c.CandidateID).
				Int("open_trades", e.openTrades()).
				Msg("trade verdict held, position cap reached")
			return nil
		}
		if err := e.registry.AdvanceStage(ctx, c.CandidateID, domain.StageDecided); err != nil {
			return err
		}
		if e.metrics != nil {
			e.metrics.StageAdvances.WithLabelValues(string(domain.StageDecided)).Inc()
		}
		return e.runTrade(ctx, c, d)
	}
	return fmt.Errorf("unknown verdict %q", d.Verdict)
}

// openTrades counts candidates holding a position or about to open one.
func (e *Engine) openTrades() int {
	n := 0
	for _, c := range e.registry.Snapshot() {
		if c.Stage == domain.StageDecided || c.Stage == domain.StageExecuting {
			n++
		}
	}
	return n
}

// refreshSignal re-consults a source whose result went missing from the
// bundle. The candidate stays put; the next tick re-decides.
func (e *Engine) refreshSignal(ctx context.Context, c *domain.Candidate, src domain.Source) error {
	ad, ok := e.adapters[src]
	if !ok {
		return fmt.Errorf("no adapter for source %s", src)
	}
	res := ad.Evaluate(ctx, c)
	e.observeSignal(res)
	return e.registry.RecordSignal(ctx, c.CandidateID, res)
}

// executeStage resumes a candidate that already carries a TRADE verdict,
// either from an interrupted run or a previous tick.
func (e *Engine) executeStage(ctx context.Context, c *domain.Candidate) error {
	if c.TradeID != "" {
		if e.trader == nil {
			return nil
		}
		rec, err := e.trader.Resume(ctx, c.TradeID)
		return e.settle(ctx, c.CandidateID, rec, err)
	}

	d, err := decide.Evaluate(c.Signals, e.params)
	if err != nil {
		return fmt.Errorf("recompute decision: %w", err)
	}
	if d.Verdict != domain.VerdictTrade {
		return fmt.Errorf("candidate in %s with verdict %s", c.Stage, d.Verdict)
	}
	return e.runTrade(ctx, c, d)
}

// runTrade hands the decision to the trader and settles the candidate on
// the trade's terminal state. The trade ID is derived from the timestamp
// stamped on the EXECUTING advance, so resuming an interrupted candidate
// reconstructs the same ID instead of opening a second position.
func (e *Engine) runTrade(ctx context.Context, c *domain.Candidate, d domain.Decision) error {
	if e.trader == nil {
		e.log.Info().
			Str("candidate_id", c.CandidateID).
			Str("mint", c.Mint).
			Msg("execution disabled, trade decision parked")
		return nil
	}

	cur, err := e.registry.Get(c.CandidateID)
	if err != nil {
		return err
	}
	if cur.Stage == domain.StageDecided {
		if err := e.registry.AdvanceStage(ctx, c.CandidateID, domain.StageExecuting); err != nil {
			return err
		}
		if e.metrics != nil {
			e.metrics.StageAdvances.WithLabelValues(string(domain.StageExecuting)).Inc()
		}
		if cur, err = e.registry.Get(c.CandidateID); err != nil {
			return err
		}
	}
	if e.metrics != nil {
		e.metrics.TradesOpened.Inc()
	}

	rec, execErr := e.trader.Execute(ctx, cur, d, cur.UpdatedAt)
	return e.settle(ctx, c.CandidateID, rec, execErr)
}

// settle maps a trade's terminal state onto the candidate lifecycle. A
// non-terminal record with an error leaves the candidate EXECUTING for the
// next tick to resume.
func (e *Engine) settle(ctx context.Context, candidateID string, rec *domain.TradeRecord, execErr error) error {
	if rec != nil && rec.TradeID != "" {
		if err := e.registry.SetTrade(ctx, candidateID, rec.TradeID); err != nil {
			return err
		}
	}

	if rec != nil && rec.State.Terminal() {
		if e.metrics != nil {
			e.metrics.TradesSettled.WithLabelValues(string(rec.State)).Inc()
		}
		target := domain.StageSettled
		if rec.State == domain.TradeAborted {
			target = domain.StageAborted
		}
		if err := e.registry.AdvanceStage(ctx, candidateID, target); err != nil {
			return err
		}
		if execErr != nil && !errors.Is(execErr, executor.ErrRetriesExhausted) {
			return execErr
		}
		return nil
	}

	return execErr
}

// reject moves the candidate to REJECTED and counts the rejection by its
// reason class (the part before the colon).
func (e *Engine) reject(ctx context.Context, candidateID, reason string) error {
	if err := e.registry.Reject(ctx, candidateID, reason); err != nil {
		return err
	}
	if e.metrics != nil {
		class := reason
		if i := strings.IndexByte(reason, ':'); i > 0 {
			class = reason[:i]
		}
		e.metrics.Rejections.WithLabelValues(class).Inc()
	}
	return nil
}

func (e *Engine) observeSignal(res domain.SignalResult) {
	if e.metrics == nil {
		return
	}
	e.metrics.SignalResults.WithLabelValues(string(res.Source), string(res.Outcome)).Inc()
	e.metrics.SignalLatency.WithLabelValues(string(res.Source)).Observe(float64(res.LatencyMs) / 1000)
}
