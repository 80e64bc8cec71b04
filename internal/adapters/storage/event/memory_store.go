package event

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "nursery/internal/domain/event"
)

// MemoryStore implements Store using in-memory maps.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]domain.Event
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]domain.Event)}
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return domain.Event{}, fmt.Errorf("get event: %w", domain.ErrNotFound)
	}
	return e, nil
}

func (s *MemoryStore) Save(ctx context.Context, e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	return nil
}

func (s *MemoryStore) SoftDelete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Active = false
	e.UpdatedAt = time.Now().UTC()
	s.events[id] = e
	return nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Event
	for _, e := range s.events {
		if !filter.IncludeInactive && !e.Active {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
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
			return out[i].Date < out[j].Date
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
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
