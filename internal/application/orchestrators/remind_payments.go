package orchestrators

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	emailAdapter "nursery/internal/adapters/email"
	settingsstore "nursery/internal/adapters/storage/settings"
	"nursery/internal/domain/account"
	"nursery/internal/domain/payment"
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Settings keys read by the reminder dispatcher.
const (
	SettingNotifyEmail = "notification_email"
	SettingEmailFrom   = "email_from"
)

// ReminderStore is the reminder subset of the payment store.
type ReminderStore interface {
	GetByID(ctx context.Context, id string) (payment.Payment, error)
	SaveReminder(ctx context.Context, r payment.Reminder) error
	ListDueReminders(ctx context.Context, today string) ([]payment.Reminder, error)
	MarkReminder(ctx context.Context, id, status, sentAt string) error
	DeleteReminder(ctx context.Context, id string) error
}

// ReminderDeps holds dependencies for reminder scheduling and dispatch.
type ReminderDeps struct {
	ReminderStore ReminderStore
	StudentStore  StudentLookup
	SettingsStore settingsstore.Store
	EmailSender   emailAdapter.Sender
	ActivityStore ActivityStore
	Now           func() time.Time // nil means time.Now
}

func (d ReminderDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// ScheduleReminderInput carries input for reminder creation.
type ScheduleReminderInput struct {
	PaymentID     string
	Type          string // email, sms or in_app
	DaysBeforeDue int
	Message       string // markdown
}

// ExecuteScheduleReminder creates a pending reminder anchored to the
// payment's due date, offset backwards by DaysBeforeDue.
func ExecuteScheduleReminder(ctx context.Context, principal account.Principal, input ScheduleReminderInput, deps ReminderDeps) (payment.Reminder, error) {
	p, err := deps.ReminderStore.GetByID(ctx, input.PaymentID)
	if err != nil {
		return payment.Reminder{}, err
	}

	due, err := time.Parse("2006-01-02", p.DueDate)
	if err != nil {
		return payment.Reminder{}, fmt.Errorf("payment %s: bad due date %q: %w", p.ID, p.DueDate, err)
	}

	r := payment.Reminder{
		ID:            uuid.New().String(),
		PaymentID:     p.ID,
		StudentID:     p.StudentID,
		Type:          input.Type,
		ReminderDate:  due.AddDate(0, 0, -input.DaysBeforeDue).Format("2006-01-02"),
		DaysBeforeDue: input.DaysBeforeDue,
		Status:        payment.ReminderPending,
		Message:       input.Message,
	}
	if r.Type == "" {
		r.Type = payment.ReminderInApp
	}
	if err := r.Validate(); err != nil {
		return payment.Reminder{}, err
	}
	if err := deps.ReminderStore.SaveReminder(ctx, r); err != nil {
		return payment.Reminder{}, err
	}

	slog.Info("payment_event", "event", "reminder_scheduled", "reminder_id", r.ID, "payment_id", p.ID, "date", r.ReminderDate)
	recordActivity(ctx, deps.ActivityStore, principal, "reminder_scheduled", map[string]string{"reminder_id": r.ID, "payment_id": p.ID})
	return r, nil
}

// DispatchResult summarizes one dispatcher run.
type DispatchResult struct {
	Sent   int
	Failed int
}

// ExecuteDispatchReminders delivers every pending reminder that has come
// due. Email reminders render their markdown message and go to the
// configured notification address; sms and in_app reminders are marked sent
// without external delivery. One failed send does not stop the run.
// POST: each due reminder ends up sent or failed, never pending
func ExecuteDispatchReminders(ctx context.Context, deps ReminderDeps) (DispatchResult, error) {
	today := deps.now().UTC().Format("2006-01-02")
	due, err := deps.ReminderStore.ListDueReminders(ctx, today)
	if err != nil {
		return DispatchResult{}, err
	}
	if len(due) == 0 {
		return DispatchResult{}, nil
	}

	notifyTo, _, err := deps.SettingsStore.Get(ctx, SettingNotifyEmail)
	if err != nil {
		return DispatchResult{}, err
	}
	from, _, err := deps.SettingsStore.Get(ctx, SettingEmailFrom)
	if err != nil {
		return DispatchResult{}, err
	}

	var result DispatchResult
	now := deps.now().UTC().Format(time.RFC3339)
	for _, r := range due {
		if err := deps.deliver(ctx, r, notifyTo, from); err != nil {
			slog.Warn("payment_event", "event", "reminder_failed", "reminder_id", r.ID, "error", err)
			if markErr := deps.ReminderStore.MarkReminder(ctx, r.ID, payment.ReminderFailed, ""); markErr != nil {
				return result, markErr
			}
			result.Failed++
			continue
		}
		if err := deps.ReminderStore.MarkReminder(ctx, r.ID, payment.ReminderSent, now); err != nil {
			return result, err
		}
		result.Sent++
	}

	slog.Info("payment_event", "event", "reminders_dispatched", "sent", result.Sent, "failed", result.Failed)
	return result, nil
}

func (d ReminderDeps) deliver(ctx context.Context, r payment.Reminder, notifyTo, from string) error {
	if r.Type != payment.ReminderEmail {
		return nil
	}
	if notifyTo == "" {
		return fmt.Errorf("no %s setting configured", SettingNotifyEmail)
	}

	p, err := d.ReminderStore.GetByID(ctx, r.PaymentID)
	if err != nil {
		return err
	}
	studentName := r.StudentID
	if st, err := d.StudentStore.GetByID(ctx, r.StudentID); err == nil {
		studentName = st.Name
	}

	body := r.Message
	if body == "" {
		body = fmt.Sprintf("Payment of %.2f for **%s** is due on %s.", p.Remaining(), studentName, p.DueDate)
	}
	var html bytes.Buffer
	if err := mdRenderer.Convert([]byte(body), &html); err != nil {
		return fmt.Errorf("render reminder %s: %w", r.ID, err)
	}

	_, err = d.EmailSender.Send(ctx, emailAdapter.SendRequest{
		To:      []string{notifyTo},
		From:    from,
		Subject: fmt.Sprintf("Payment reminder: %s", studentName),
		HTML:    html.String(),
	})
	return err
}

// ExecuteDeleteReminder removes a reminder outright.
func ExecuteDeleteReminder(ctx context.Context, principal account.Principal, id string, deps ReminderDeps) error {
	if err := deps.ReminderStore.DeleteReminder(ctx, id); err != nil {
		return err
	}
	recordActivity(ctx, deps.ActivityStore, principal, "reminder_deleted", map[string]string{"reminder_id": id})
	return nil
}
