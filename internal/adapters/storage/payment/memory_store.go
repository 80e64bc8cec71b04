package payment

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "nursery/internal/domain/payment"
)

// MemoryStore implements Store using in-memory maps. The single mutex makes
// ApplyPartial as atomic as the SQLite transaction.
type MemoryStore struct {
	mu        sync.Mutex
	payments  map[string]domain.Payment
	plans     map[string]domain.Plan
	history   map[string][]domain.InstallmentRecord // by payment id, append order
	reminders map[string]domain.Reminder
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments:  make(map[string]domain.Payment),
		plans:     make(map[string]domain.Plan),
		history:   make(map[string][]domain.InstallmentRecord),
		reminders: make(map[string]domain.Reminder),
	}
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return domain.Payment{}, fmt.Errorf("get payment: %w", domain.ErrNotFound)
	}
	return p, nil
}

func (s *MemoryStore) Save(ctx context.Context, p domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
	return nil
}

func (s *MemoryStore) InsertBatch(ctx context.Context, payments []domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range payments {
		s.payments[p.ID] = p
	}
	return nil
}

func (s *MemoryStore) SoftDelete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Active = false
	s.payments[id] = p
	return nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Payment
	for _, p := range s.payments {
		if !filter.IncludeInactive && !p.Active {
			continue
		}
		if filter.StudentID != "" && p.StudentID != filter.StudentID {
			continue
		}
		if filter.PlanID != "" && p.PlanID != filter.PlanID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.DueFrom != "" && p.DueDate < filter.DueFrom {
			continue
		}
		if filter.DueTo != "" && p.DueDate > filter.DueTo {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueDate != out[j].DueDate {
			return out[i].DueDate < out[j].DueDate
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

func (s *MemoryStore) ApplyPartial(ctx context.Context, rec domain.InstallmentRecord, today string) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[rec.PaymentID]
	if !ok || !p.Active {
		return domain.Payment{}, fmt.Errorf("apply installment: %w", domain.ErrNotFound)
	}
	if err := p.ApplyInstallment(rec.Amount, today); err != nil {
		return domain.Payment{}, err
	}
	s.payments[p.ID] = p
	s.history[rec.PaymentID] = append(s.history[rec.PaymentID], rec)
	return p, nil
}

func (s *MemoryStore) History(ctx context.Context, paymentID string) ([]domain.InstallmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.history[paymentID]
	out := make([]domain.InstallmentRecord, len(recs))
	copy(out, recs)
	return out, nil
}

func (s *MemoryStore) Installments(ctx context.Context, from, to string) ([]domain.InstallmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.InstallmentRecord
	for _, recs := range s.history {
		for _, rec := range recs {
			day := rec.CreatedAt.Format("2006-01-02")
			if from != "" && day < from {
				continue
			}
			if to != "" && day > to {
				continue
			}
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) SavePlan(ctx context.Context, pl domain.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[pl.ID] = pl
	return nil
}

func (s *MemoryStore) GetPlan(ctx context.Context, id string) (domain.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pl, ok := s.plans[id]
	if !ok {
		return domain.Plan{}, fmt.Errorf("get plan: %w", domain.ErrPlanNotFound)
	}
	return pl, nil
}

func (s *MemoryStore) ListPlans(ctx context.Context, studentID string, includeInactive bool) ([]domain.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Plan
	for _, pl := range s.plans {
		if studentID != "" && pl.StudentID != studentID {
			continue
		}
		if !includeInactive && !pl.Active {
			continue
		}
		out = append(out, pl)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) DeactivatePlan(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pl, ok := s.plans[id]
	if !ok {
		return domain.ErrPlanNotFound
	}
	pl.Active = false
	s.plans[id] = pl
	return nil
}

func (s *MemoryStore) SaveReminder(ctx context.Context, r domain.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders[r.ID] = r
	return nil
}

func (s *MemoryStore) ListDueReminders(ctx context.Context, today string) ([]domain.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Reminder
	for _, r := range s.reminders {
		if r.Status == domain.ReminderPending && r.ReminderDate <= today {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReminderDate != out[j].ReminderDate {
			return out[i].ReminderDate < out[j].ReminderDate
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) MarkReminder(ctx context.Context, id, status, sentAt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return nil
	}
	r.Status = status
	r.SentAt = sentAt
	s.reminders[id] = r
	return nil
}

func (s *MemoryStore) DeleteReminder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reminders, id)
	return nil
}
