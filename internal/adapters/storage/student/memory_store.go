package student

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	domain "nursery/internal/domain/student"
)

// MemoryStore implements Store using in-memory maps. It backs the
// database-free mode and mirrors SQLiteStore's observable behavior.
type MemoryStore struct {
	mu           sync.RWMutex
	students     map[string]domain.Student
	vaccinations map[string]domain.Vaccination
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		students:     make(map[string]domain.Student),
		vaccinations: make(map[string]domain.Vaccination),
	}
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[id]
	if !ok {
		return domain.Student{}, fmt.Errorf("get student: %w", domain.ErrNotFound)
	}
	return st, nil
}

func (s *MemoryStore) Save(ctx context.Context, st domain.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
	return nil
}

func (s *MemoryStore) SoftDelete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return domain.ErrNotFound
	}
	st.Active = false
	st.UpdatedAt = time.Now().UTC()
	s.students[id] = st
	return nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Student
	for _, st := range s.students {
		if !filter.IncludeInactive && !st.Active {
			continue
		}
		if filter.Status != "" && st.Status != filter.Status {
			continue
		}
		if filter.ClassID != "" && st.ClassID != filter.ClassID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(st.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (s *MemoryStore) SetClass(ctx context.Context, studentID, classID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[studentID]
	if !ok {
		return domain.ErrNotFound
	}
	st.ClassID = classID
	st.UpdatedAt = time.Now().UTC()
	s.students[studentID] = st
	return nil
}

func (s *MemoryStore) AddVaccination(ctx context.Context, v domain.Vaccination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vaccinations[v.ID] = v
	return nil
}

func (s *MemoryStore) GetVaccination(ctx context.Context, id string) (domain.Vaccination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vaccinations[id]
	if !ok {
		return domain.Vaccination{}, domain.ErrVaccinationNotFound
	}
	return v, nil
}

func (s *MemoryStore) UpdateVaccination(ctx context.Context, v domain.Vaccination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vaccinations[v.ID]; !ok {
		return domain.ErrVaccinationNotFound
	}
	s.vaccinations[v.ID] = v
	return nil
}

func (s *MemoryStore) ListVaccinations(ctx context.Context, studentID string) ([]domain.Vaccination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Vaccination
	for _, v := range s.vaccinations {
		if v.StudentID == studentID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VaccineDate != out[j].VaccineDate {
			return out[i].VaccineDate > out[j].VaccineDate
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) DeleteVaccination(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vaccinations, id)
	return nil
}

func paginate(list []domain.Student, limit, offset int) []domain.Student {
	if offset > 0 {
		if offset >= len(list) {
			return nil
		}
		list = list[offset:]
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
