package memory

import (
	"context"
	"errors"
	"testing"

	"solana-token-scout/internal/domain"
	"solana-token-scout/internal/storage"
)

func TestSignalLogStore_AppendAndGet(t *testing.T) {
	store := NewSignalLogStore()
	ctx := context.Background()

	results := []*domain.SignalResult{
		{Source: domain.SourceFilter, Outcome: domain.OutcomeOK, ObservedAt: 2000},
		{Source: domain.SourceVetting, Outcome: domain.OutcomeTimeout, Err: "deadline exceeded", ObservedAt: 1000},
		{Source: domain.SourceVetting, Outcome: domain.OutcomeOK, ObservedAt: 3000},
	}
	for _, r := range results {
		if err := store.Append(ctx, "c1", r); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := store.GetByCandidateID(ctx, "c1")
	if err != nil {
		t.Fatalf("GetByCandidateID failed: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(got))
	}

	// Ordered by observed_at ASC
	if got[0].ObservedAt != 1000 || got[2].ObservedAt != 3000 {
		t.Errorf("Results not ordered by observed_at: %d, %d, %d",
			got[0].ObservedAt, got[1].ObservedAt, got[2].ObservedAt)
	}
}

func TestSignalLogStore_EmptyCandidate(t *testing.T) {
	store := NewSignalLogStore()
	ctx := context.Background()

	got, err := store.GetByCandidateID(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("GetByCandidateID failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty result, got %d entries", len(got))
	}
}

func TestSignalLogStore_InvalidInput(t *testing.T) {
	store := NewSignalLogStore()
	ctx := context.Background()

	if err := store.Append(ctx, "", &domain.SignalResult{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty candidate ID, got %v", err)
	}
	if err := store.Append(ctx, "c1", nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil result, got %v", err)
	}
}
