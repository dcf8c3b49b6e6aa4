package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-scout/internal/domain"
	"solana-token-scout/internal/storage"
)

// CandidateStore is an in-memory implementation of storage.CandidateStore.
type CandidateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Candidate // keyed by candidate_id
}

// NewCandidateStore creates a new in-memory candidate store.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{
		data: make(map[string]*domain.Candidate),
	}
}

// Upsert inserts or fully replaces a candidate by candidate_id.
func (s *CandidateStore) Upsert(_ context.Context, c *domain.Candidate) error {
	if c == nil || c.CandidateID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutation
	s.data[c.CandidateID] = c.Clone()
	return nil
}

// GetByID retrieves a candidate by its ID. Returns ErrNotFound if not exists.
func (s *CandidateStore) GetByID(_ context.Context, candidateID string) (*domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[candidateID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return c.Clone(), nil
}

// GetActive retrieves all candidates in non-terminal stages, ordered by
// discovered_at ASC.
func (s *CandidateStore) GetActive(_ context.Context) ([]*domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Candidate
	for _, c := range s.data {
		if !c.Stage.Terminal() {
			result = append(result, c.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DiscoveredAt < result[j].DiscoveredAt
	})

	return result, nil
}

// GetByStage retrieves all candidates at a given stage.
func (s *CandidateStore) GetByStage(_ context.Context, stage domain.Stage) ([]*domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Candidate
	for _, c := range s.data {
		if c.Stage == stage {
			result = append(result, c.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DiscoveredAt < result[j].DiscoveredAt
	})

	return result, nil
}

// Delete removes a candidate. Deleting a missing ID is not an error.
func (s *CandidateStore) Delete(_ context.Context, candidateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, candidateID)
	return nil
}

// Verify interface compliance at compile time.
var _ storage.CandidateStore = (*CandidateStore)(nil)
