package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-token-scout/internal/domain"
	"solana-token-scout/internal/storage"
)

// CandidateStore implements storage.CandidateStore using PostgreSQL.
// The signal bundle is stored as JSONB alongside the scalar columns.
type CandidateStore struct {
	pool *Pool
}

// NewCandidateStore creates a new CandidateStore.
func NewCandidateStore(pool *Pool) *CandidateStore {
	return &CandidateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CandidateStore = (*CandidateStore)(nil)

// Upsert inserts or fully replaces a candidate by candidate_id.
func (s *CandidateStore) Upsert(ctx context.Context, c *domain.Candidate) error {
	if c == nil || c.CandidateID == "" {
		return storage.ErrInvalidInput
	}

	signalsJSON, err := json.Marshal(c.Signals)
	if err != nil {
		return fmt.Errorf("marshal signal bundle: %w", err)
	}

	query := `
		INSERT INTO candidates (
			candidate_id, mint, symbol, name, discovery_source, discovered_at,
			stage, updated_at, reject_reason, signals, trade_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (candidate_id) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			stage = EXCLUDED.stage,
			updated_at = EXCLUDED.updated_at,
			reject_reason = EXCLUDED.reject_reason,
			signals = EXCLUDED.signals,
			trade_id = EXCLUDED.trade_id
	`

	_, err = s.pool.Exec(ctx, query,
		c.CandidateID,
		c.Mint,
		c.Symbol,
		c.Name,
		c.DiscoverySource,
		c.DiscoveredAt,
		string(c.Stage),
		c.UpdatedAt,
		c.RejectReason,
		signalsJSON,
		c.TradeID,
	)
	if err != nil {
		return fmt.Errorf("upsert candidate: %w", err)
	}
	return nil
}

// GetByID retrieves a candidate by its ID. Returns ErrNotFound if not exists.
func (s *CandidateStore) GetByID(ctx context.Context, candidateID string) (*domain.Candidate, error) {
	query := `
		SELECT candidate_id, mint, symbol, name, discovery_source, discovered_at,
		       stage, updated_at, reject_reason, signals, trade_id
		FROM candidates
		WHERE candidate_id = $1
	`

	row := s.pool.QueryRow(ctx, query, candidateID)
	c, err := scanCandidate(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get candidate by id: %w", err)
	}
	return c, nil
}

// GetActive retrieves all candidates in non-terminal stages, ordered by
// discovered_at ASC.
func (s *CandidateStore) GetActive(ctx context.Context) ([]*domain.Candidate, error) {
	query := `
		SELECT candidate_id, mint, symbol, name, discovery_source, discovered_at,
		       stage, updated_at, reject_reason, signals, trade_id
		FROM candidates
		WHERE stage NOT IN ('SETTLED', 'ABORTED', 'REJECTED')
		ORDER BY discovered_at ASC, candidate_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get active candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// GetByStage retrieves all candidates at a given stage.
func (s *CandidateStore) GetByStage(ctx context.Context, stage domain.Stage) ([]*domain.Candidate, error) {
	query := `
		SELECT candidate_id, mint, symbol, name, discovery_source, discovered_at,
		       stage, updated_at, reject_reason, signals, trade_id
		FROM candidates
		WHERE stage = $1
		ORDER BY discovered_at ASC, candidate_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(stage))
	if err != nil {
		return nil, fmt.Errorf("get candidates by stage: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// Delete removes a candidate. Deleting a missing ID is not an error.
func (s *CandidateStore) Delete(ctx context.Context, candidateID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM candidates WHERE candidate_id = $1`, candidateID)
	if err != nil {
		return fmt.Errorf("delete candidate: %w", err)
	}
	return nil
}

// scanCandidate scans a single row into a Candidate.
func scanCandidate(row pgx.Row) (*domain.Candidate, error) {
	var c domain.Candidate
	var stageStr string
	var signalsJSON []byte

	err := row.Scan(
		&c.CandidateID,
		&c.Mint,
		&c.Symbol,
		&c.Name,
		&c.DiscoverySource,
		&c.DiscoveredAt,
		&stageStr,
		&c.UpdatedAt,
		&c.RejectReason,
		&signalsJSON,
		&c.TradeID,
	)
	if err != nil {
		return nil, err
	}

	c.Stage = domain.Stage(stageStr)
	if len(signalsJSON) > 0 {
		if err := json.Unmarshal(signalsJSON, &c.Signals); err != nil {
			return nil, fmt.Errorf("unmarshal signal bundle: %w", err)
		}
	}
	return &c, nil
}

// scanCandidates scans multiple rows into a slice of Candidate.
func scanCandidates(rows pgx.Rows) ([]*domain.Candidate, error) {
	var candidates []*domain.Candidate

	for rows.Next() {
		var c domain.Candidate
		var stageStr string
		var signalsJSON []byte

		err := rows.Scan(
			&c.CandidateID,
			&c.Mint,
			&c.Symbol,
			&c.Name,
			&c.DiscoverySource,
			&c.DiscoveredAt,
			&stageStr,
			&c.UpdatedAt,
			&c.RejectReason,
			&signalsJSON,
			&c.TradeID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}

		c.Stage = domain.Stage(stageStr)
		if len(signalsJSON) > 0 {
			if err := json.Unmarshal(signalsJSON, &c.Signals); err != nil {
				return nil, fmt.Errorf("unmarshal signal bundle: %w", err)
			}
		}
		candidates = append(candidates, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate rows: %w", err)
	}

	return candidates, nil
}
