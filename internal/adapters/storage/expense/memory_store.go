package expense

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "nursery/internal/domain/expense"
)

// MemoryStore implements Store using in-memory maps.
type MemoryStore struct {
	mu       sync.RWMutex
	expenses map[string]domain.Expense
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{expenses: make(map[string]domain.Expense)}
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return domain.Expense{}, fmt.Errorf("get expense: %w", domain.ErrNotFound)
	}
	return e, nil
}

func (s *MemoryStore) Save(ctx context.Context, e domain.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[e.ID] = e
	return nil
}

func (s *MemoryStore) SoftDelete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Active = false
	s.expenses[id] = e
	return nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Expense
	for _, e := range s.expenses {
		if !filter.IncludeInactive && !e.Active {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if filter.From != "" && e.Date < filter.From {
			continue
		}
		if filter.To != "" && e.Date > filter.To {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
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

func (s *MemoryStore) TotalByCategory(ctx context.Context, from, to string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := map[string]float64{}
	for _, e := range s.expenses {
		if !e.Active {
			continue
		}
		if from != "" && e.Date < from {
			continue
		}
		if to != "" && e.Date > to {
			continue
		}
		totals[e.Category] += e.Amount
	}
	return totals, nil
}
