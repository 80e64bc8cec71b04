package staff

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "nursery/internal/domain/staff"
)

// MemoryStore implements Store using in-memory maps.
type MemoryStore struct {
	mu    sync.RWMutex
	staff map[string]domain.Staff
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{staff: make(map[string]domain.Staff)}
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (domain.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.staff[id]
	if !ok {
		return domain.Staff{}, fmt.Errorf("get staff: %w", domain.ErrNotFound)
	}
	return st, nil
}

func (s *MemoryStore) Save(ctx context.Context, st domain.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff[st.ID] = st
	return nil
}

func (s *MemoryStore) SoftDelete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.staff[id]
	if !ok {
		return domain.ErrNotFound
	}
	st.Active = false
	st.UpdatedAt = time.Now().UTC()
	s.staff[id] = st
	return nil
}

func (s *MemoryStore) List(ctx context.Context, includeInactive bool) ([]domain.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Staff
	for _, st := range s.staff {
		if !includeInactive && !st.Active {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
