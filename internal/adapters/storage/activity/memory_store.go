package activity

import (
	"context"
	"sync"

	domain "nursery/internal/domain/activity"
)

// MemoryStore implements Store using an in-memory slice in append order.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []domain.Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, e domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		out = append(out, e)
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}
