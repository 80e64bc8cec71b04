package payment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nursery/internal/adapters/storage"
	domain "nursery/internal/domain/payment"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const paymentColumns = `id, student_id, payment_plan_id, amount, original_amount, discount_amount,
		due_date, paid_date, payment_method, status, partial_amount, note, receipt_path,
		requires_approval, approved_by, approved_at, is_active, created_at`

const insertPaymentStmt = `INSERT INTO payments (id, student_id, payment_plan_id, amount, original_amount,
		discount_amount, due_date, paid_date, payment_method, status, partial_amount, note,
		receipt_path, requires_approval, approved_by, approved_at, is_active, created_at)
	 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	 ON CONFLICT(id) DO UPDATE SET
	   student_id=excluded.student_id, payment_plan_id=excluded.payment_plan_id,
	   amount=excluded.amount, original_amount=excluded.original_amount,
	   discount_amount=excluded.discount_amount, due_date=excluded.due_date,
	   paid_date=excluded.paid_date, payment_method=excluded.payment_method,
	   status=excluded.status, partial_amount=excluded.partial_amount, note=excluded.note,
	   receipt_path=excluded.receipt_path, requires_approval=excluded.requires_approval,
	   approved_by=excluded.approved_by, approved_at=excluded.approved_at,
	   is_active=excluded.is_active`

// GetByID retrieves a payment by ID.
// PRE: id is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Payment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Payment{}, fmt.Errorf("get payment: %w", domain.ErrNotFound)
	}
	return p, err
}

// Save inserts or updates a payment.
// PRE: entity has been validated
func (s *SQLiteStore) Save(ctx context.Context, p domain.Payment) error {
	_, err := s.db.ExecContext(ctx, insertPaymentStmt, paymentArgs(p)...)
	return err
}

// InsertBatch writes generated payments in one transaction.
// POST: All payments are persisted or none are
func (s *SQLiteStore) InsertBatch(ctx context.Context, payments []domain.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, p := range payments {
		if _, err := tx.ExecContext(ctx, insertPaymentStmt, paymentArgs(p)...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SoftDelete marks a payment inactive. History rows stay.
func (s *SQLiteStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE payments SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns payments matching the filter, soonest due first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE 1=1`
	args := []any{}
	if !filter.IncludeInactive {
		query += ` AND is_active = 1`
	}
	if filter.StudentID != "" {
		query += ` AND student_id = ?`
		args = append(args, filter.StudentID)
	}
	if filter.PlanID != "" {
		query += ` AND payment_plan_id = ?`
		args = append(args, filter.PlanID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.DueFrom != "" {
		query += ` AND due_date >= ?`
		args = append(args, filter.DueFrom)
	}
	if filter.DueTo != "" {
		query += ` AND due_date <= ?`
		args = append(args, filter.DueTo)
	}
	query += ` ORDER BY due_date ASC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

// ApplyPartial records one installment inside a transaction: read the
// payment, run the domain transition, write it back, append the history row.
// PRE: rec.Amount > 0, rec.PaymentID references an existing payment
// POST: Payment accumulator, status and the history row are consistent
// INVARIANT: sum of history amounts equals the payment's partial_amount
func (s *SQLiteStore) ApplyPartial(ctx context.Context, rec domain.InstallmentRecord, today string) (domain.Payment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Payment{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ? AND is_active = 1`, rec.PaymentID)
	p, err := scanPayment(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Payment{}, fmt.Errorf("apply installment: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Payment{}, err
	}

	if err := p.ApplyInstallment(rec.Amount, today); err != nil {
		return domain.Payment{}, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE payments SET partial_amount = ?, status = ?, paid_date = ? WHERE id = ?`,
		p.PartialAmount, p.Status, nullableString(p.PaidDate), p.ID)
	if err != nil {
		return domain.Payment{}, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO payment_history (id, payment_id, amount, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.PaymentID, rec.Amount, nullableString(rec.CreatedBy),
		rec.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return domain.Payment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Payment{}, err
	}
	return p, nil
}

// History returns a payment's installment rows, oldest first.
func (s *SQLiteStore) History(ctx context.Context, paymentID string) ([]domain.InstallmentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payment_id, amount, created_by, created_at
		 FROM payment_history WHERE payment_id = ? ORDER BY created_at ASC, id ASC`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InstallmentRecord
	for rows.Next() {
		var rec domain.InstallmentRecord
		var createdBy sql.NullString
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.PaymentID, &rec.Amount, &createdBy, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedBy = createdBy.String
		rec.CreatedAt = parseTime(createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Installments returns all installment rows created in the inclusive date
// range, oldest first. Empty bounds leave that side open.
func (s *SQLiteStore) Installments(ctx context.Context, from, to string) ([]domain.InstallmentRecord, error) {
	query := `SELECT id, payment_id, amount, created_by, created_at
		 FROM payment_history WHERE 1=1`
	var args []any
	if from != "" {
		query += " AND date(created_at) >= ?"
		args = append(args, from)
	}
	if to != "" {
		query += " AND date(created_at) <= ?"
		args = append(args, to)
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InstallmentRecord
	for rows.Next() {
		var rec domain.InstallmentRecord
		var createdBy sql.NullString
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.PaymentID, &rec.Amount, &createdBy, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedBy = createdBy.String
		rec.CreatedAt = parseTime(createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SavePlan inserts or updates a plan.
// PRE: entity has been validated
func (s *SQLiteStore) SavePlan(ctx context.Context, pl domain.Plan) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_plans (id, student_id, plan_name, plan_type, start_date, end_date,
		   monthly_amount, total_amount, discount_amount, discount_percent, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   student_id=excluded.student_id, plan_name=excluded.plan_name, plan_type=excluded.plan_type,
		   start_date=excluded.start_date, end_date=excluded.end_date,
		   monthly_amount=excluded.monthly_amount, total_amount=excluded.total_amount,
		   discount_amount=excluded.discount_amount, discount_percent=excluded.discount_percent,
		   is_active=excluded.is_active`,
		pl.ID, pl.StudentID, pl.Name, pl.Type, pl.StartDate, nullableString(pl.EndDate),
		pl.MonthlyAmount, pl.TotalAmount, pl.DiscountAmount, pl.DiscountPercent,
		boolToInt(pl.Active), pl.CreatedAt.UTC().Format(timeLayout))
	return err
}

// GetPlan retrieves a plan by ID.
func (s *SQLiteStore) GetPlan(ctx context.Context, id string) (domain.Plan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, student_id, plan_name, plan_type, start_date, end_date, monthly_amount,
		   total_amount, discount_amount, discount_percent, is_active, created_at
		 FROM payment_plans WHERE id = ?`, id)
	pl, err := scanPlan(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Plan{}, fmt.Errorf("get plan: %w", domain.ErrPlanNotFound)
	}
	return pl, err
}

// ListPlans returns a student's plans, newest first. Empty studentID lists
// every student's plans.
func (s *SQLiteStore) ListPlans(ctx context.Context, studentID string, includeInactive bool) ([]domain.Plan, error) {
	query := `SELECT id, student_id, plan_name, plan_type, start_date, end_date, monthly_amount,
		   total_amount, discount_amount, discount_percent, is_active, created_at
		 FROM payment_plans WHERE 1=1`
	args := []any{}
	if studentID != "" {
		query += ` AND student_id = ?`
		args = append(args, studentID)
	}
	if !includeInactive {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Plan
	for rows.Next() {
		pl, err := scanPlan(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, pl)
	}
	return out, rows.Err()
}

// DeactivatePlan marks a plan inactive. Payments already generated from it
// are untouched.
func (s *SQLiteStore) DeactivatePlan(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE payment_plans SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

// SaveReminder inserts or updates a reminder.
func (s *SQLiteStore) SaveReminder(ctx context.Context, r domain.Reminder) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_reminders (id, payment_id, student_id, reminder_type, reminder_date,
		   days_before_due, sent_at, status, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   reminder_type=excluded.reminder_type, reminder_date=excluded.reminder_date,
		   days_before_due=excluded.days_before_due, sent_at=excluded.sent_at,
		   status=excluded.status, message=excluded.message`,
		r.ID, r.PaymentID, r.StudentID, r.Type, r.ReminderDate, r.DaysBeforeDue,
		nullableString(r.SentAt), r.Status, nullableString(r.Message))
	return err
}

// ListDueReminders returns pending reminders due on or before the given day.
func (s *SQLiteStore) ListDueReminders(ctx context.Context, today string) ([]domain.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payment_id, student_id, reminder_type, reminder_date, days_before_due,
		   sent_at, status, message
		 FROM payment_reminders WHERE status = ? AND reminder_date <= ?
		 ORDER BY reminder_date ASC, id ASC`, domain.ReminderPending, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reminder
	for rows.Next() {
		var r domain.Reminder
		var sentAt, message sql.NullString
		if err := rows.Scan(&r.ID, &r.PaymentID, &r.StudentID, &r.Type, &r.ReminderDate,
			&r.DaysBeforeDue, &sentAt, &r.Status, &message); err != nil {
			return nil, err
		}
		r.SentAt = sentAt.String
		r.Message = message.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkReminder records a dispatch outcome.
func (s *SQLiteStore) MarkReminder(ctx context.Context, id, status, sentAt string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE payment_reminders SET status = ?, sent_at = ? WHERE id = ?`,
		status, nullableString(sentAt), id)
	return err
}

// DeleteReminder removes a reminder by ID. Hard delete.
func (s *SQLiteStore) DeleteReminder(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM payment_reminders WHERE id = ?`, id)
	return err
}

func paymentArgs(p domain.Payment) []any {
	return []any{
		p.ID, p.StudentID, nullableString(p.PlanID), p.Amount, p.OriginalAmount,
		p.DiscountAmount, p.DueDate, nullableString(p.PaidDate), nullableString(p.Method),
		p.Status, p.PartialAmount, nullableString(p.Note), nullableString(p.ReceiptPath),
		boolToInt(p.RequiresApproval), nullableString(p.ApprovedBy), nullableString(p.ApprovedAt),
		boolToInt(p.Active), p.CreatedAt.UTC().Format(timeLayout),
	}
}

type scanFunc func(dest ...any) error

func scanPayment(scan scanFunc) (domain.Payment, error) {
	var p domain.Payment
	var planID, paidDate, method, note, receiptPath, approvedBy, approvedAt sql.NullString
	var discount, partial sql.NullFloat64
	var requiresApproval, active int
	var createdAt string
	err := scan(&p.ID, &p.StudentID, &planID, &p.Amount, &p.OriginalAmount, &discount,
		&p.DueDate, &paidDate, &method, &p.Status, &partial, &note, &receiptPath,
		&requiresApproval, &approvedBy, &approvedAt, &active, &createdAt)
	if err != nil {
		return domain.Payment{}, err
	}
	p.PlanID = planID.String
	p.DiscountAmount = discount.Float64
	p.PaidDate = paidDate.String
	p.Method = method.String
	p.PartialAmount = partial.Float64
	p.Note = note.String
	p.ReceiptPath = receiptPath.String
	p.RequiresApproval = requiresApproval != 0
	p.ApprovedBy = approvedBy.String
	p.ApprovedAt = approvedAt.String
	p.Active = active != 0
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

func scanPayments(rows *sql.Rows) ([]domain.Payment, error) {
	var out []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPlan(scan scanFunc) (domain.Plan, error) {
	var pl domain.Plan
	var endDate sql.NullString
	var total, discount, percent sql.NullFloat64
	var active int
	var createdAt string
	err := scan(&pl.ID, &pl.StudentID, &pl.Name, &pl.Type, &pl.StartDate, &endDate,
		&pl.MonthlyAmount, &total, &discount, &percent, &active, &createdAt)
	if err != nil {
		return domain.Plan{}, err
	}
	pl.EndDate = endDate.String
	pl.TotalAmount = total.Float64
	pl.DiscountAmount = discount.Float64
	pl.DiscountPercent = percent.Float64
	pl.Active = active != 0
	pl.CreatedAt = parseTime(createdAt)
	return pl, nil
}

func parseTime(raw string) time.Time {
	if t, err := time.Parse(timeLayout, raw); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02 15:04:05", raw)
	return t
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
