package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-token-scout/internal/domain"
	"solana-token-scout/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeRecordStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_records (
			trade_id, candidate_id, mint, side, size, state, client_key,
			venue_order_id, filled_size, retry_count, last_error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID,
		t.CandidateID,
		t.Mint,
		t.Side,
		t.Size,
		string(t.State),
		t.ClientKey,
		t.VenueOrderID,
		t.FilledSize,
		t.RetryCount,
		t.LastError,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade record: %w", err)
	}
	return nil
}

// Update replaces an existing trade. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) Update(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE trade_records SET
			state = $2,
			client_key = $3,
			venue_order_id = $4,
			filled_size = $5,
			retry_count = $6,
			last_error = $7,
			updated_at = $8
		WHERE trade_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		t.TradeID,
		string(t.State),
		t.ClientKey,
		t.VenueOrderID,
		t.FilledSize,
		t.RetryCount,
		t.LastError,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update trade record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	query := `
		SELECT trade_id, candidate_id, mint, side, size, state, client_key,
		       venue_order_id, filled_size, retry_count, last_error, created_at, updated_at
		FROM trade_records
		WHERE trade_id = $1
	`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTradeRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record by id: %w", err)
	}
	return t, nil
}

// GetByState retrieves all trades in a given state, ordered by created_at ASC.
func (s *TradeRecordStore) GetByState(ctx context.Context, state domain.TradeState) ([]*domain.TradeRecord, error) {
	query := `
		SELECT trade_id, candidate_id, mint, side, size, state, client_key,
		       venue_order_id, filled_size, retry_count, last_error, created_at, updated_at
		FROM trade_records
		WHERE state = $1
		ORDER BY created_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(state))
	if err != nil {
		return nil, fmt.Errorf("get trade records by state: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// GetByCandidateID retrieves all trades for a candidate.
func (s *TradeRecordStore) GetByCandidateID(ctx context.Context, candidateID string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT trade_id, candidate_id, mint, side, size, state, client_key,
		       venue_order_id, filled_size, retry_count, last_error, created_at, updated_at
		FROM trade_records
		WHERE candidate_id = $1
		ORDER BY created_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, candidateID)
	if err != nil {
		return nil, fmt.Errorf("get trade records by candidate: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// scanTradeRecord scans a single row into a TradeRecord.
func scanTradeRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var t domain.TradeRecord
	var stateStr string

	err := row.Scan(
		&t.TradeID,
		&t.CandidateID,
		&t.Mint,
		&t.Side,
		&t.Size,
		&stateStr,
		&t.ClientKey,
		&t.VenueOrderID,
		&t.FilledSize,
		&t.RetryCount,
		&t.LastError,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.State = domain.TradeState(stateStr)
	return &t, nil
}

// scanTradeRecords scans multiple rows into a slice of TradeRecord.
func scanTradeRecords(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	var records []*domain.TradeRecord

	for rows.Next() {
		var t domain.TradeRecord
		var stateStr string

		err := rows.Scan(
			&t.TradeID,
			&t.CandidateID,
			&t.Mint,
			&t.Side,
			&t.Size,
			&stateStr,
			&t.ClientKey,
			&t.VenueOrderID,
			&t.FilledSize,
			&t.RetryCount,
			&t.LastError,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}

		t.State = domain.TradeState(stateStr)
		records = append(records, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}

	return records, nil
}
