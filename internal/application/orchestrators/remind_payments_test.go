package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"

	emailAdapter "nursery/internal/adapters/email"
	paymentstore "nursery/internal/adapters/storage/payment"
	settingsstore "nursery/internal/adapters/storage/settings"
	studentstore "nursery/internal/adapters/storage/student"
	"nursery/internal/domain/payment"
)

// mockSender records sends and can be told to fail.
type mockSender struct {
	sent []emailAdapter.SendRequest
	fail bool
}

func (m *mockSender) Send(_ context.Context, req emailAdapter.SendRequest) (emailAdapter.SendResult, error) {
	if m.fail {
		return emailAdapter.SendResult{}, errors.New("provider unavailable")
	}
	m.sent = append(m.sent, req)
	return emailAdapter.SendResult{MessageID: "msg-1", SentAt: fixedTime}, nil
}

func (m *mockSender) SendBatch(ctx context.Context, reqs []emailAdapter.SendRequest) ([]emailAdapter.SendResult, error) {
	var out []emailAdapter.SendResult
	for _, req := range reqs {
		res, err := m.Send(ctx, req)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

func newReminderDeps(t *testing.T) (ReminderDeps, *paymentstore.MemoryStore, *mockSender) {
	t.Helper()
	payments := paymentstore.NewMemoryStore()
	students := studentstore.NewMemoryStore()
	settings := settingsstore.NewMemoryStore()
	sender := &mockSender{}

	seedStudent(t, students, "s1", "Ada Demir")
	ctx := context.Background()
	if err := settings.Set(ctx, SettingNotifyEmail, "office@sunrisenursery.example"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	if err := settings.Set(ctx, SettingEmailFrom, "Sunrise Nursery <noreply@sunrisenursery.example>"); err != nil {
		t.Fatalf("set setting: %v", err)
	}

	deps := ReminderDeps{
		ReminderStore: payments,
		StudentStore:  students,
		SettingsStore: settings,
		EmailSender:   sender,
		ActivityStore: newActivityLog(),
		Now:           testNow,
	}
	return deps, payments, sender
}

func seedPayment(t *testing.T, payments *paymentstore.MemoryStore, id, dueDate string, amount float64) payment.Payment {
	t.Helper()
	p := payment.Payment{
		ID:        id,
		StudentID: "s1",
		Amount:    amount,
		DueDate:   dueDate,
		Status:    payment.StatusPending,
		Active:    true,
		CreatedAt: fixedTime,
	}
	if err := payments.Save(context.Background(), p); err != nil {
		t.Fatalf("seed payment %s: %v", id, err)
	}
	return p
}

func TestExecuteScheduleReminder(t *testing.T) {
	deps, payments, _ := newReminderDeps(t)
	seedPayment(t, payments, "p1", "2026-03-20", 400)

	r, err := ExecuteScheduleReminder(context.Background(), adminPrincipal(), ScheduleReminderInput{
		PaymentID:     "p1",
		Type:          payment.ReminderEmail,
		DaysBeforeDue: 5,
		Message:       "Tuition for **Ada** is due soon.",
	}, deps)
	if err != nil {
		t.Fatalf("schedule reminder: %v", err)
	}
	if r.ReminderDate != "2026-03-15" {
		t.Errorf("expected reminder date 2026-03-15, got %s", r.ReminderDate)
	}
	if r.Status != payment.ReminderPending {
		t.Errorf("expected pending status, got %q", r.Status)
	}
}

func TestExecuteDispatchReminders(t *testing.T) {
	deps, payments, sender := newReminderDeps(t)
	seedPayment(t, payments, "p1", "2026-03-12", 400)
	seedPayment(t, payments, "p2", "2026-04-20", 300)

	// Due two days before the fixed clock's 2026-03-10.
	if _, err := ExecuteScheduleReminder(context.Background(), adminPrincipal(), ScheduleReminderInput{
		PaymentID:     "p1",
		Type:          payment.ReminderEmail,
		DaysBeforeDue: 2,
		Message:       "Tuition is due in two days.",
	}, deps); err != nil {
		t.Fatalf("schedule due reminder: %v", err)
	}
	// Not due yet.
	if _, err := ExecuteScheduleReminder(context.Background(), adminPrincipal(), ScheduleReminderInput{
		PaymentID:     "p2",
		Type:          payment.ReminderEmail,
		DaysBeforeDue: 3,
	}, deps); err != nil {
		t.Fatalf("schedule future reminder: %v", err)
	}

	result, err := ExecuteDispatchReminders(context.Background(), deps)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.Sent != 1 || result.Failed != 0 {
		t.Fatalf("expected 1 sent and 0 failed, got %+v", result)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	req := sender.sent[0]
	if req.To[0] != "office@sunrisenursery.example" {
		t.Errorf("unexpected recipient %q", req.To[0])
	}
	if !strings.Contains(req.Subject, "Ada Demir") {
		t.Errorf("expected student name in subject, got %q", req.Subject)
	}
	if !strings.Contains(req.HTML, "two days") {
		t.Errorf("expected rendered message body, got %q", req.HTML)
	}

	// A second run finds nothing pending.
	again, err := ExecuteDispatchReminders(context.Background(), deps)
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if again.Sent != 0 {
		t.Errorf("expected no reminders on second run, got %d", again.Sent)
	}
}

func TestExecuteDispatchRemindersMarksFailed(t *testing.T) {
	deps, payments, sender := newReminderDeps(t)
	sender.fail = true
	seedPayment(t, payments, "p1", "2026-03-10", 400)

	if _, err := ExecuteScheduleReminder(context.Background(), adminPrincipal(), ScheduleReminderInput{
		PaymentID:     "p1",
		Type:          payment.ReminderEmail,
		DaysBeforeDue: 0,
	}, deps); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	result, err := ExecuteDispatchReminders(context.Background(), deps)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.Failed != 1 || result.Sent != 0 {
		t.Fatalf("expected 1 failed, got %+v", result)
	}

	// Failed reminders leave the pending queue.
	due, err := payments.ListDueReminders(context.Background(), "2026-03-10")
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("expected failed reminder out of the queue, got %d", len(due))
	}
}

func TestExecuteDispatchRemindersMarksInAppSent(t *testing.T) {
	deps, payments, sender := newReminderDeps(t)
	seedPayment(t, payments, "p1", "2026-03-10", 400)

	if _, err := ExecuteScheduleReminder(context.Background(), adminPrincipal(), ScheduleReminderInput{
		PaymentID:     "p1",
		Type:          payment.ReminderInApp,
		DaysBeforeDue: 0,
	}, deps); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	result, err := ExecuteDispatchReminders(context.Background(), deps)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.Sent != 1 {
		t.Fatalf("expected 1 sent, got %+v", result)
	}
	if len(sender.sent) != 0 {
		t.Errorf("in-app reminders must not send email, got %d", len(sender.sent))
	}
}
