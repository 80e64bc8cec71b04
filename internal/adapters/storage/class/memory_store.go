package class

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	classdomain "nursery/internal/domain/class"
)

// MemoryStore implements Store using in-memory maps.
//
// The memory backend owns the students' convenience class link through
// linker so enroll and withdraw stay atomic across both records, the same
// way the SQLite transaction covers both tables.
type MemoryStore struct {
	mu          sync.Mutex
	classes     map[string]classdomain.Class
	memberships map[string]classdomain.Membership // keyed by classID + "/" + studentID
	linker      StudentLinker
}

// StudentLinker updates a student's class link. The memory student store
// satisfies this; the call happens while the class store's lock is held.
type StudentLinker interface {
	SetClass(ctx context.Context, studentID, classID string) error
}

// NewMemoryStore creates an empty MemoryStore. linker may be nil for tests
// that do not observe the student-side link.
func NewMemoryStore(linker StudentLinker) *MemoryStore {
	return &MemoryStore{
		classes:     make(map[string]classdomain.Class),
		memberships: make(map[string]classdomain.Membership),
		linker:      linker,
	}
}

func membershipKey(classID, studentID string) string {
	return classID + "/" + studentID
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (classdomain.Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.classes[id]
	if !ok {
		return classdomain.Class{}, fmt.Errorf("get class: %w", classdomain.ErrNotFound)
	}
	return c, nil
}

func (s *MemoryStore) Save(ctx context.Context, c classdomain.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes[c.ID] = c
	return nil
}

func (s *MemoryStore) SoftDelete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.classes[id]
	if !ok {
		return classdomain.ErrNotFound
	}
	c.Active = false
	c.UpdatedAt = time.Now().UTC()
	s.classes[id] = c
	for k, m := range s.memberships {
		if m.ClassID != id || !m.Active {
			continue
		}
		m.Active = false
		s.memberships[k] = m
		if s.linker != nil {
			if err := s.linker.SetClass(ctx, m.StudentID, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]classdomain.Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []classdomain.Class
	for _, c := range s.classes {
		if !filter.IncludeInactive && !c.Active {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
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

func (s *MemoryStore) Enroll(ctx context.Context, m classdomain.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.memberships {
		if existing.StudentID == m.StudentID && existing.Active {
			return classdomain.ErrAlreadyEnrolled
		}
	}
	c, ok := s.classes[m.ClassID]
	if !ok || !c.Active {
		return fmt.Errorf("enroll: %w", classdomain.ErrNotFound)
	}
	occupied := 0
	for _, existing := range s.memberships {
		if existing.ClassID == m.ClassID && existing.Active {
			occupied++
		}
	}
	if !c.HasCapacity(occupied) {
		return classdomain.ErrClassFull
	}

	key := membershipKey(m.ClassID, m.StudentID)
	if prev, ok := s.memberships[key]; ok {
		prev.Active = true
		prev.EnrollmentDate = m.EnrollmentDate
		s.memberships[key] = prev
	} else {
		m.Active = true
		s.memberships[key] = m
	}
	if s.linker != nil {
		return s.linker.SetClass(ctx, m.StudentID, m.ClassID)
	}
	return nil
}

func (s *MemoryStore) Withdraw(ctx context.Context, classID, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey(classID, studentID)
	m, ok := s.memberships[key]
	if !ok || !m.Active {
		return classdomain.ErrNotEnrolled
	}
	m.Active = false
	s.memberships[key] = m
	if s.linker != nil {
		return s.linker.SetClass(ctx, studentID, "")
	}
	return nil
}

func (s *MemoryStore) Roster(ctx context.Context, classID string) ([]classdomain.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []classdomain.Membership
	for _, m := range s.memberships {
		if m.ClassID == classID && m.Active {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EnrollmentDate != out[j].EnrollmentDate {
			return out[i].EnrollmentDate < out[j].EnrollmentDate
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ActiveCount(ctx context.Context, classID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.memberships {
		if m.ClassID == classID && m.Active {
			n++
		}
	}
	return n, nil
}

// TotalActive returns the active membership count across all classes.
func (s *MemoryStore) TotalActive(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.memberships {
		if m.Active {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ActiveMembership(ctx context.Context, studentID string) (classdomain.Membership, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.memberships {
		if m.StudentID == studentID && m.Active {
			return m, true, nil
		}
	}
	return classdomain.Membership{}, false, nil
}
