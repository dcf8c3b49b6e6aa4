package storage

import (
	"context"

	"solana-token-scout/internal/domain"
)

// CandidateStore persists the registry's candidate state. Upsert semantics
// mirror the registry: the registry writes through on every mutation so a
// restart resumes from the last persisted stage.
type CandidateStore interface {
	// Upsert inserts or fully replaces a candidate by candidate_id.
	Upsert(ctx context.Context, c *domain.Candidate) error

	// GetByID retrieves a candidate by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, candidateID string) (*domain.Candidate, error)

	// GetActive retrieves all candidates in non-terminal stages,
	// ordered by discovered_at ASC.
	GetActive(ctx context.Context) ([]*domain.Candidate, error)

	// GetByStage retrieves all candidates at a given stage.
	GetByStage(ctx context.Context, stage domain.Stage) ([]*domain.Candidate, error)

	// Delete removes a candidate. Deleting a missing ID is not an error.
	Delete(ctx context.Context, candidateID string) error
}

// TradeRecordStore persists trade execution state. Every state transition is
// written before the next execution action so a crash mid-trade leaves an
// unambiguous record.
type TradeRecordStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// Update replaces an existing trade. Returns ErrNotFound if not exists.
	Update(ctx context.Context, t *domain.TradeRecord) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// GetByState retrieves all trades in a given state, ordered by created_at ASC.
	GetByState(ctx context.Context, state domain.TradeState) ([]*domain.TradeRecord, error)

	// GetByCandidateID retrieves all trades for a candidate.
	GetByCandidateID(ctx context.Context, candidateID string) ([]*domain.TradeRecord, error)
}

// SignalLogStore is an append-only audit log of every signal result the
// pipeline observed. Optional; the pipeline runs without one.
type SignalLogStore interface {
	// Append writes one observed result. Append never updates.
	Append(ctx context.Context, candidateID string, r *domain.SignalResult) error

	// GetByCandidateID retrieves all logged results for a candidate,
	// ordered by observed_at ASC.
	GetByCandidateID(ctx context.Context, candidateID string) ([]*domain.SignalResult, error)
}
