package clickhouse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-scout/internal/domain"
	"solana-token-scout/internal/storage"
)

func TestSignalLogStore_AppendAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalLogStore(conn)

	results := []*domain.SignalResult{
		{
			Source:     domain.SourceVetting,
			Outcome:    domain.OutcomeTimeout,
			Err:        "deadline exceeded",
			LatencyMs:  5000,
			ObservedAt: 2000,
		},
		{
			Source:     domain.SourceFilter,
			Outcome:    domain.OutcomeOK,
			LatencyMs:  120,
			ObservedAt: 1000,
			Payload: domain.SignalPayload{
				Filter: &domain.FilterMetrics{Pass: true, VolumeUSD: 75000, HolderCount: 250},
			},
		},
	}
	for _, r := range results {
		require.NoError(t, store.Append(ctx, "cand-001", r))
	}

	got, err := store.GetByCandidateID(ctx, "cand-001")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by observed_at ASC
	assert.Equal(t, domain.SourceFilter, got[0].Source)
	assert.Equal(t, domain.OutcomeOK, got[0].Outcome)
	require.NotNil(t, got[0].Payload.Filter)
	assert.InDelta(t, 75000.0, got[0].Payload.Filter.VolumeUSD, 0.001)

	assert.Equal(t, domain.SourceVetting, got[1].Source)
	assert.Equal(t, domain.OutcomeTimeout, got[1].Outcome)
	assert.Equal(t, "deadline exceeded", got[1].Err)
}

func TestSignalLogStore_EmptyCandidate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalLogStore(conn)

	got, err := store.GetByCandidateID(ctx, "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSignalLogStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalLogStore(conn)

	err := store.Append(ctx, "", &domain.SignalResult{})
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))

	err = store.Append(ctx, "c1", nil)
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
}
