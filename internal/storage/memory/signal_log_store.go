package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-scout/internal/domain"
	"solana-token-scout/internal/storage"
)

// SignalLogStore is an in-memory implementation of storage.SignalLogStore.
type SignalLogStore struct {
	mu   sync.RWMutex
	data map[string][]domain.SignalResult // keyed by candidate_id
}

// NewSignalLogStore creates a new in-memory signal log store.
func NewSignalLogStore() *SignalLogStore {
	return &SignalLogStore{
		data: make(map[string][]domain.SignalResult),
	}
}

// Append writes one observed result.
func (s *SignalLogStore) Append(_ context.Context, candidateID string, r *domain.SignalResult) error {
	if candidateID == "" || r == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[candidateID] = append(s.data[candidateID], *r)
	return nil
}

// GetByCandidateID retrieves all logged results for a candidate, ordered by
// observed_at ASC.
func (s *SignalLogStore) GetByCandidateID(_ context.Context, candidateID string) ([]*domain.SignalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.data[candidateID]
	result := make([]*domain.SignalResult, 0, len(entries))
	for i := range entries {
		entryCopy := entries[i]
		result = append(result, &entryCopy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ObservedAt < result[j].ObservedAt
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SignalLogStore = (*SignalLogStore)(nil)
