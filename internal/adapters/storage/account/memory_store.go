package account

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "nursery/internal/domain/account"
)

// MemoryStore implements Store using in-memory maps. The username index
// gives the same uniqueness guarantee as the SQLite UNIQUE constraint.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	byUsername map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]domain.User),
		byUsername: make(map[string]string),
	}
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("get user: %w", domain.ErrNotFound)
	}
	return u, nil
}

func (s *MemoryStore) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[username]
	if !ok {
		return domain.User{}, fmt.Errorf("get user by username: %w", domain.ErrNotFound)
	}
	return s.users[id], nil
}

func (s *MemoryStore) Save(ctx context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existingID, ok := s.byUsername[u.Username]; ok && existingID != u.ID {
		return domain.ErrUsernameTaken
	}
	if prev, ok := s.users[u.ID]; ok && prev.Username != u.Username {
		delete(s.byUsername, prev.Username)
	}
	s.users[u.ID] = u
	s.byUsername[u.Username] = u.ID
	return nil
}

func (s *MemoryStore) SoftDelete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Active = false
	s.users[id] = u
	return nil
}

func (s *MemoryStore) List(ctx context.Context, includeInactive bool) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.User
	for _, u := range s.users {
		if !includeInactive && !u.Active {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
