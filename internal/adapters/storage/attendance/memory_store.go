package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "nursery/internal/domain/attendance"
)

// MemoryStore implements Store using in-memory maps. The natural key index
// enforces the one-record-per-day rule the SQLite UNIQUE constraint gives
// the file-backed store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.Record // by row id
	byKey   map[string]string        // studentID/classID/date -> row id
	roster  RosterCounter
}

// RosterCounter reports active membership counts for DaySummary totals.
// The memory class store satisfies this.
type RosterCounter interface {
	ActiveCount(ctx context.Context, classID string) (int, error)
	TotalActive(ctx context.Context) (int, error)
}

// NewMemoryStore creates an empty MemoryStore. roster may be nil for tests
// that do not read day summaries.
func NewMemoryStore(roster RosterCounter) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]domain.Record),
		byKey:   make(map[string]string),
		roster:  roster,
	}
}

func naturalKey(r domain.Record) string {
	return r.StudentID + "/" + r.ClassID + "/" + r.Date
}

func (s *MemoryStore) Upsert(ctx context.Context, r domain.Record) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(r), nil
}

func (s *MemoryStore) upsertLocked(r domain.Record) domain.Record {
	key := naturalKey(r)
	if existingID, ok := s.byKey[key]; ok {
		existing := s.records[existingID]
		existing.Status = r.Status
		existing.Reason = r.Reason
		existing.Notes = r.Notes
		existing.MarkedBy = r.MarkedBy
		s.records[existingID] = existing
		return existing
	}
	s.records[r.ID] = r
	s.byKey[key] = r.ID
	return r
}

func (s *MemoryStore) SaveBulk(ctx context.Context, records []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.upsertLocked(r)
	}
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return domain.Record{}, fmt.Errorf("get attendance: %w", domain.ErrNotFound)
	}
	return r, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil
	}
	delete(s.records, id)
	delete(s.byKey, naturalKey(r))
	return nil
}

func (s *MemoryStore) ListByClassDate(ctx context.Context, classID, date string) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Record
	for _, r := range s.records {
		if r.ClassID == classID && r.Date == date {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (s *MemoryStore) ListByStudent(ctx context.Context, studentID, from, to string) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Record
	for _, r := range s.records {
		if r.StudentID != studentID {
			continue
		}
		if from != "" && r.Date < from {
			continue
		}
		if to != "" && r.Date > to {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *MemoryStore) DaySummary(ctx context.Context, date, classID string) (domain.DaySummary, error) {
	var sum domain.DaySummary
	if s.roster != nil {
		var err error
		if classID != "" {
			sum.Total, err = s.roster.ActiveCount(ctx, classID)
		} else {
			sum.Total, err = s.roster.TotalActive(ctx)
		}
		if err != nil {
			return domain.DaySummary{}, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.Date != date {
			continue
		}
		if classID != "" && r.ClassID != classID {
			continue
		}
		switch r.Status {
		case domain.StatusPresent:
			sum.Present++
		case domain.StatusAbsent:
			sum.Absent++
		case domain.StatusLate:
			sum.Late++
		case domain.StatusEarlyLeave:
			sum.EarlyLeave++
		}
	}
	return sum, nil
}

func (s *MemoryStore) StudentStats(ctx context.Context, studentID, from, to string) (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats domain.Stats
	for _, r := range s.records {
		if r.StudentID != studentID {
			continue
		}
		if from != "" && r.Date < from {
			continue
		}
		if to != "" && r.Date > to {
			continue
		}
		stats.TotalDays++
		switch r.Status {
		case domain.StatusPresent:
			stats.PresentDays++
		case domain.StatusAbsent:
			stats.AbsentDays++
		case domain.StatusLate:
			stats.LateDays++
		case domain.StatusEarlyLeave:
			stats.EarlyLeaveDays++
		}
	}
	return stats, nil
}
