// Package scheduler drives the evaluation loop: a fixed-interval tick that
// runs one engine cycle, a slower sweep that evicts stale candidates, and a
// drain-then-reconcile shutdown.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"solana-token-scout/internal/engine"
	"solana-token-scout/internal/observability"
)

// Cycler runs one evaluation cycle. Satisfied by engine.Engine.
type Cycler interface {
	RunCycle(ctx context.Context) (*engine.CycleStats, error)
}

// Sweeper evicts candidates untouched for longer than ttl. Satisfied by
// registry.Registry.
type Sweeper interface {
	EvictStale(ctx context.Context, ttl time.Duration) int
}

// Reconciler settles trades left in flight. Satisfied by
// executor.Executor; nil skips reconciliation on shutdown.
type Reconciler interface {
	Reconcile(ctx context.Context) error
}

// Options for creating a Scheduler.
type Options struct {
	Engine     Cycler
	Sweeper    Sweeper
	Reconciler Reconciler
	// PollInterval is the spacing between evaluation cycles.
	PollInterval time.Duration
	// CycleTimeout bounds one cycle end to end; zero leaves cycles
	// unbounded.
	CycleTimeout time.Duration
	// StalenessTTL is how long a candidate may go untouched before the
	// sweep evicts it.
	StalenessTTL  time.Duration
	SweepInterval time.Duration
	// ShutdownTimeout bounds the drain of an in-flight cycle.
	ShutdownTimeout time.Duration
	Metrics         *observability.Metrics
	Logger          zerolog.Logger
	Clock           func() time.Time
}

// Scheduler owns the main loop.
type Scheduler struct {
	engine          Cycler
	sweeper         Sweeper
	reconciler      Reconciler
	pollInterval    time.Duration
	cycleTimeout    time.Duration
	stalenessTTL    time.Duration
	sweepInterval   time.Duration
	shutdownTimeout time.Duration
	metrics         *observability.Metrics
	log             zerolog.Logger
	clock           func() time.Time

	running atomic.Bool
}

// New creates a Scheduler.
func New(opts Options) *Scheduler {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		engine:          opts.Engine,
		sweeper:         opts.Sweeper,
		reconciler:      opts.Reconciler,
		pollInterval:    opts.PollInterval,
		cycleTimeout:    opts.CycleTimeout,
		stalenessTTL:    opts.StalenessTTL,
		sweepInterval:   opts.SweepInterval,
		shutdownTimeout: opts.ShutdownTimeout,
		metrics:         opts.Metrics,
		log:             opts.Logger.With().Str("component", "scheduler").Logger(),
		clock:           clock,
	}
}

// Run blocks until ctx is cancelled. The first cycle starts immediately;
// later ticks that land while a cycle is still running are skipped, not
// queued.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().
		Dur("poll_interval", s.pollInterval).
		Dur("staleness_ttl", s.stalenessTTL).
		Msg("scheduler started")

	tick := time.NewTicker(s.pollInterval)
	defer tick.Stop()
	sweep := time.NewTicker(s.sweepInterval)
	defer sweep.Stop()

	var wg sync.WaitGroup
	s.startCycle(ctx, &wg)

	for {
		select {
		case <-ctx.Done():
			return s.shutdown(&wg)
		case <-tick.C:
			s.startCycle(ctx, &wg)
		case <-sweep.C:
			if n := s.sweeper.EvictStale(ctx, s.stalenessTTL); n > 0 {
				s.log.Info().Int("evicted", n).Msg("stale candidates evicted")
			}
		}
	}
}

// startCycle launches one engine cycle unless the previous one is still
// running.
func (s *Scheduler) startCycle(ctx context.Context, wg *sync.WaitGroup) {
	if !s.running.CompareAndSwap(false, true) {
		if s.metrics != nil {
			s.metrics.CyclesSkipped.Inc()
		}
		s.log.Debug().Msg("previous cycle still running, tick skipped")
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer s.running.Store(false)

		cctx := ctx
		if s.cycleTimeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, s.cycleTimeout)
			defer cancel()
		}

		start := s.clock()
		stats, err := s.engine.RunCycle(cctx)
		elapsed := s.clock().Sub(start)

		if s.metrics != nil {
			s.metrics.CycleDuration.Observe(elapsed.Seconds())
			status := "ok"
			if err != nil {
				status = "error"
			}
			s.metrics.CyclesTotal.WithLabelValues(status).Inc()
		}

		if err != nil {
			if ctx.Err() == nil {
				s.log.Error().Err(err).Msg("cycle failed")
			}
			return
		}
		if s.metrics != nil {
			s.metrics.LastSuccessfulCycle.Set(float64(s.clock().Unix()))
		}
		s.log.Info().
			Dur("elapsed", elapsed).
			Int("tokens_seen", stats.TokensSeen).
			Int("candidates_created", stats.CandidatesCreated).
			Int("evaluated", stats.Evaluated).
			Int("errors", len(stats.Errors)).
			Msg("cycle complete")
	}()
}

// shutdown drains the in-flight cycle, then reconciles open trades against
// the venue so restarts pick up from an honest record.
func (s *Scheduler) shutdown(wg *sync.WaitGroup) error {
	s.log.Info().Msg("scheduler stopping, draining cycle")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.shutdownTimeout):
		s.log.Warn().Msg("cycle drain exceeded shutdown timeout")
	}

	if s.reconciler != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.reconciler.Reconcile(ctx); err != nil {
			s.log.Error().Err(err).Msg("trade reconciliation failed")
			return err
		}
	}

	s.log.Info().Msg("scheduler stopped")
	return nil
}
