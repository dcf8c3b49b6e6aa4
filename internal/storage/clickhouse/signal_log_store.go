package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"

	"solana-token-scout/internal/domain"
	"solana-token-scout/internal/storage"
)

// SignalLogStore implements storage.SignalLogStore using ClickHouse.
// The log is append-only; MergeTree never updates rows, which matches the
// immutability of signal results.
type SignalLogStore struct {
	conn *Conn
}

// NewSignalLogStore creates a new SignalLogStore.
func NewSignalLogStore(conn *Conn) *SignalLogStore {
	return &SignalLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SignalLogStore = (*SignalLogStore)(nil)

// Append writes one observed result. Append never updates.
func (s *SignalLogStore) Append(ctx context.Context, candidateID string, r *domain.SignalResult) error {
	if candidateID == "" || r == nil {
		return storage.ErrInvalidInput
	}

	var payloadJSON []byte
	if r.Outcome == domain.OutcomeOK {
		var err error
		payloadJSON, err = json.Marshal(r.Payload)
		if err != nil {
			return fmt.Errorf("marshal signal payload: %w", err)
		}
	}

	query := `
		INSERT INTO signal_log (
			candidate_id, source, outcome, payload, error, latency_ms, observed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		candidateID,
		string(r.Source),
		string(r.Outcome),
		string(payloadJSON),
		r.Err,
		uint64(r.LatencyMs),
		uint64(r.ObservedAt),
	)
	if err != nil {
		return fmt.Errorf("append signal log: %w", err)
	}
	return nil
}

// GetByCandidateID retrieves all logged results for a candidate, ordered by
// observed_at ASC.
func (s *SignalLogStore) GetByCandidateID(ctx context.Context, candidateID string) ([]*domain.SignalResult, error) {
	query := `
		SELECT source, outcome, payload, error, latency_ms, observed_at
		FROM signal_log
		WHERE candidate_id = ?
		ORDER BY observed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, candidateID)
	if err != nil {
		return nil, fmt.Errorf("get signal log by candidate: %w", err)
	}
	defer rows.Close()

	var results []*domain.SignalResult
	for rows.Next() {
		var (
			sourceStr   string
			outcomeStr  string
			payloadJSON string
			errStr      string
			latencyMs   uint64
			observedAt  uint64
		)

		if err := rows.Scan(&sourceStr, &outcomeStr, &payloadJSON, &errStr, &latencyMs, &observedAt); err != nil {
			return nil, fmt.Errorf("scan signal log row: %w", err)
		}

		r := &domain.SignalResult{
			Source:     domain.Source(sourceStr),
			Outcome:    domain.Outcome(outcomeStr),
			Err:        errStr,
			LatencyMs:  int64(latencyMs),
			ObservedAt: int64(observedAt),
		}
		if payloadJSON != "" {
			if err := json.Unmarshal([]byte(payloadJSON), &r.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal signal payload: %w", err)
			}
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal log rows: %w", err)
	}

	return results, nil
}
