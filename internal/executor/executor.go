// Package executor drives accepted trades through the venue. Every state
// transition is persisted before the next action so a crash mid-trade
// leaves an unambiguous record to reconcile from.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-token-scout/internal/domain"
	"solana-token-scout/internal/idhash"
	"solana-token-scout/internal/observability"
	"solana-token-scout/internal/sources"
	"solana-token-scout/internal/storage"
)

// ErrRetriesExhausted is returned when a trade fails its final attempt.
var ErrRetriesExhausted = errors.New("executor: retries exhausted")

// Venue is the order entry surface of the trading venue.
type Venue interface {
	PlaceOrder(ctx context.Context, req sources.OrderRequest) (*sources.OrderAck, error)
	GetOrderStatus(ctx context.Context, orderID string) (*sources.OrderStatus, error)
}

// Options configures an Executor.
type Options struct {
	Trades storage.TradeRecordStore
	Venue  Venue
	// MaxRetries bounds resubmissions after venue rejects and timeouts.
	MaxRetries int
	// InitialBackoff is the delay before the first resubmission, doubled
	// per attempt up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// PollInterval is how often a submitted order's status is checked.
	PollInterval time.Duration
	// OrderTimeout bounds how long one submission may stay unfilled before
	// it counts as timed out.
	OrderTimeout time.Duration
	// Slippage is passed through to the venue on every order.
	Slippage float64
	Metrics  *observability.Metrics
	Logger   zerolog.Logger
	Clock    func() time.Time
}

// Executor owns the trade lifecycle.
type Executor struct {
	trades         storage.TradeRecordStore
	venue          Venue
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	pollInterval   time.Duration
	orderTimeout   time.Duration
	slippage       float64
	metrics        *observability.Metrics
	log            zerolog.Logger
	clock          func() time.Time
}

// New creates an Executor.
func New(opts Options) *Executor {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Executor{
		trades:         opts.Trades,
		venue:          opts.Venue,
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
		pollInterval:   opts.PollInterval,
		orderTimeout:   opts.OrderTimeout,
		slippage:       opts.Slippage,
		metrics:        opts.Metrics,
		log:            opts.Logger.With().Str("component", "executor").Logger(),
		clock:          clock,
	}
}

// Execute opens and settles a buy for a TRADE decision. The trade ID is
// deterministic in the decision, so re-running the same decision resumes
// the existing record instead of opening a second position.
func (e *Executor) Execute(ctx context.Context, c *domain.Candidate, d domain.Decision, decidedAt int64) (*domain.TradeRecord, error) {
	if d.Verdict != domain.VerdictTrade {
		return nil, fmt.Errorf("execute called with verdict %s", d.Verdict)
	}

	tradeID := idhash.ComputeTradeID(c.CandidateID, "buy", decidedAt)
	rec, err := e.loadOrCreate(ctx, tradeID, c, d)
	if err != nil {
		return nil, err
	}
	if rec.State.Terminal() {
		return rec, nil
	}

	return e.run(ctx, rec)
}

// Resume picks up a previously opened trade by ID and drives it to a
// terminal state. Used when a candidate already carries a trade ID from an
// earlier run.
func (e *Executor) Resume(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	rec, err := e.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("load trade %s: %w", tradeID, err)
	}
	if rec.State.Terminal() {
		return rec, nil
	}
	return e.run(ctx, rec)
}

// loadOrCreate inserts a fresh PENDING record, or resumes the existing one
// for this trade ID.
func (e *Executor) loadOrCreate(ctx context.Context, tradeID string, c *domain.Candidate, d domain.Decision) (*domain.TradeRecord, error) {
	now := e.clock().UnixMilli()
	rec := &domain.TradeRecord{
		TradeID:     tradeID,
		CandidateID: c.CandidateID,
		Mint:        c.Mint,
		Side:        "buy",
		Size:        d.Size,
		State:       domain.TradePending,
		ClientKey:   uuid.NewString(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := e.trades.Insert(ctx, rec)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, storage.ErrDuplicateKey) {
		return nil, fmt.Errorf("insert trade record: %w", err)
	}

	existing, err := e.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("load existing trade: %w", err)
	}
	return existing, nil
}

// run submits and polls until the trade settles or retries run out.
func (e *Executor) run(ctx context.Context, rec *domain.TradeRecord) (*domain.TradeRecord, error) {
	backoffDelay := e.initialBackoff

	for {
		if rec.State == domain.TradePending || rec.State == domain.TradeRejectedByVenue || rec.State == domain.TradeTimedOut {
			if err := e.transition(ctx, rec, domain.TradeSubmitted); err != nil {
				return rec, err
			}

			ack, err := e.venue.PlaceOrder(ctx, sources.OrderRequest{
				TokenAddress: rec.Mint,
				Side:         rec.Side,
				Quantity:     rec.Size,
				Type:         "market",
				Slippage:     e.slippage,
				ClientKey:    rec.ClientKey,
			})
			if err != nil {
				rec.LastError = err.Error()
				if terr := e.transition(ctx, rec, domain.TradeTimedOut); terr != nil {
					return rec, terr
				}
			} else {
				rec.VenueOrderID = ack.OrderID
				rec.LastError = ""
				if err := e.update(ctx, rec); err != nil {
					return rec, err
				}
			}
		}

		if rec.State == domain.TradeSubmitted || rec.State == domain.TradePartiallyFilled {
			if err := e.poll(ctx, rec); err != nil {
				return rec, err
			}
		}

		switch rec.State {
		case domain.TradeFilled:
			e.log.Info().
				Str("trade_id", rec.TradeID).
				Str("mint", rec.Mint).
				Float64("filled_size", rec.FilledSize).
				Int("retry_count", rec.RetryCount).
				Msg("trade filled")
			return rec, nil

		case domain.TradeRejectedByVenue, domain.TradeTimedOut:
			if rec.RetryCount >= e.maxRetries {
				if err := e.transition(ctx, rec, domain.TradeAborted); err != nil {
					return rec, err
				}
				e.log.Warn().
					Str("trade_id", rec.TradeID).
					Str("last_error", rec.LastError).
					Msg("trade aborted")
				return rec, fmt.Errorf("%w: %s", ErrRetriesExhausted, rec.LastError)
			}

			rec.RetryCount++
			if err := e.update(ctx, rec); err != nil {
				return rec, err
			}
			if e.metrics != nil {
				e.metrics.TradeRetries.Inc()
			}
			e.log.Info().
				Str("trade_id", rec.TradeID).
				Int("retry", rec.RetryCount).
				Dur("backoff", backoffDelay).
				Msg("retrying trade")

			select {
			case <-ctx.Done():
				return rec, ctx.Err()
			case <-time.After(backoffDelay):
			}
			backoffDelay *= 2
			if backoffDelay > e.maxBackoff {
				backoffDelay = e.maxBackoff
			}

		default:
			return rec, fmt.Errorf("trade %s in unexpected state %s", rec.TradeID, rec.State)
		}
	}
}

// poll watches a submitted order until it settles, fails or the order
// timeout passes.
func (e *Executor) poll(ctx context.Context, rec *domain.TradeRecord) error {
	deadline := e.clock().Add(e.orderTimeout)
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		st, err := e.venue.GetOrderStatus(ctx, rec.VenueOrderID)
		if err != nil {
			rec.LastError = err.Error()
			return e.transition(ctx, rec, domain.TradeTimedOut)
		}

		switch st.Status {
		case "filled":
			rec.FilledSize = st.FilledAmount
			return e.transition(ctx, rec, domain.TradeFilled)

		case "partial":
			if rec.State != domain.TradePartiallyFilled {
				rec.FilledSize = st.FilledAmount
				if err := e.transition(ctx, rec, domain.TradePartiallyFilled); err != nil {
					return err
				}
			} else if st.FilledAmount != rec.FilledSize {
				rec.FilledSize = st.FilledAmount
				if err := e.update(ctx, rec); err != nil {
					return err
				}
			}

		case "cancelled", "failed":
			rec.LastError = st.Reason
			return e.transition(ctx, rec, domain.TradeRejectedByVenue)
		}

		if e.clock().After(deadline) {
			rec.LastError = "order timed out"
			return e.transition(ctx, rec, domain.TradeTimedOut)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Reconcile re-checks every order the process may have lost track of.
// Called on startup and during shutdown drain.
func (e *Executor) Reconcile(ctx context.Context) error {
	for _, state := range []domain.TradeState{domain.TradeSubmitted, domain.TradePartiallyFilled} {
		open, err := e.trades.GetByState(ctx, state)
		if err != nil {
			return fmt.Errorf("list %s trades: %w", state, err)
		}
		for _, rec := range open {
			if rec.VenueOrderID == "" {
				// Submitted but never acknowledged; the client key means a
				// resubmission cannot double-fill, so mark it timed out for
				// the next execution pass.
				rec.LastError = "no venue acknowledgement"
				if err := e.transition(ctx, rec, domain.TradeTimedOut); err != nil {
					return err
				}
				continue
			}

			st, err := e.venue.GetOrderStatus(ctx, rec.VenueOrderID)
			if err != nil {
				e.log.Warn().Err(err).Str("trade_id", rec.TradeID).Msg("reconcile status check failed")
				continue
			}

			switch st.Status {
			case "filled":
				rec.FilledSize = st.FilledAmount
				if err := e.transition(ctx, rec, domain.TradeFilled); err != nil {
					return err
				}
			case "cancelled", "failed":
				rec.LastError = st.Reason
				if err := e.transition(ctx, rec, domain.TradeRejectedByVenue); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// transition validates and persists a state change.
func (e *Executor) transition(ctx context.Context, rec *domain.TradeRecord, to domain.TradeState) error {
	if !domain.CanTransitionTrade(rec.State, to) {
		return fmt.Errorf("illegal trade transition %s -> %s", rec.State, to)
	}
	rec.State = to
	return e.update(ctx, rec)
}

// update persists the record with a fresh timestamp.
func (e *Executor) update(ctx context.Context, rec *domain.TradeRecord) error {
	rec.UpdatedAt = e.clock().UnixMilli()
	if err := e.trades.Update(ctx, rec); err != nil {
		return fmt.Errorf("persist trade %s: %w", rec.TradeID, err)
	}
	return nil
}
