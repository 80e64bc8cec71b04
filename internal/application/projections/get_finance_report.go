package projections

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"
)

// GetFinanceReportQuery selects the inclusive date range to report on.
type GetFinanceReportQuery struct {
	From string // YYYY-MM-DD
	To   string // YYYY-MM-DD
}

// GetFinanceReportDeps holds dependencies for QueryGetFinanceReport.
type GetFinanceReportDeps struct {
	PaymentStore DashboardPaymentStore
	ExpenseStore DashboardExpenseStore
}

// MonthlyReportRow is one month of the income-expense breakdown.
type MonthlyReportRow struct {
	Month   string // YYYY-MM
	Income  float64
	Expense float64
	Net     float64
}

// FinanceReportResult carries a period's breakdown plus its totals.
type FinanceReportResult struct {
	Rows         []MonthlyReportRow
	TotalIncome  float64
	TotalExpense float64
}

// QueryGetFinanceReport builds the month-by-month income and expense
// breakdown for an inclusive date range. Income is bucketed by when the
// money came in, not when the payment was due. Months without movement in
// either direction are omitted.
func QueryGetFinanceReport(ctx context.Context, query GetFinanceReportQuery, deps GetFinanceReportDeps) (FinanceReportResult, error) {
	recs, err := deps.PaymentStore.Installments(ctx, query.From, query.To)
	if err != nil {
		return FinanceReportResult{}, err
	}
	incomeByMonth := make(map[string]float64)
	for _, rec := range recs {
		incomeByMonth[rec.CreatedAt.Format("2006-01")] += rec.Amount
	}

	expenseByMonth, err := expensesByMonth(ctx, deps.ExpenseStore, query.From, query.To)
	if err != nil {
		return FinanceReportResult{}, err
	}

	months := make(map[string]struct{})
	for m := range incomeByMonth {
		months[m] = struct{}{}
	}
	for m := range expenseByMonth {
		months[m] = struct{}{}
	}
	keys := make([]string, 0, len(months))
	for m := range months {
		keys = append(keys, m)
	}
	sort.Strings(keys)

	var result FinanceReportResult
	for _, m := range keys {
		row := MonthlyReportRow{
			Month:   m,
			Income:  incomeByMonth[m],
			Expense: expenseByMonth[m],
		}
		row.Net = row.Income - row.Expense
		result.Rows = append(result.Rows, row)
		result.TotalIncome += row.Income
		result.TotalExpense += row.Expense
	}
	return result, nil
}

// QueryGetYearlyReport is the finance breakdown for one calendar year.
func QueryGetYearlyReport(ctx context.Context, year int, deps GetFinanceReportDeps) (FinanceReportResult, error) {
	query := GetFinanceReportQuery{
		From: fmt.Sprintf("%04d-01-01", year),
		To:   fmt.Sprintf("%04d-12-31", year),
	}
	return QueryGetFinanceReport(ctx, query, deps)
}

// WriteFinanceCSV serializes a finance report as CSV rows with a header and
// a trailing totals line.
func WriteFinanceCSV(w io.Writer, report FinanceReportResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"month", "income", "expense", "net"}); err != nil {
		return err
	}
	for _, row := range report.Rows {
		rec := []string{
			row.Month,
			fmt.Sprintf("%.2f", row.Income),
			fmt.Sprintf("%.2f", row.Expense),
			fmt.Sprintf("%.2f", row.Net),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	totals := []string{
		"total",
		fmt.Sprintf("%.2f", report.TotalIncome),
		fmt.Sprintf("%.2f", report.TotalExpense),
		fmt.Sprintf("%.2f", report.TotalIncome-report.TotalExpense),
	}
	if err := cw.Write(totals); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func expensesByMonth(ctx context.Context, store DashboardExpenseStore, from, to string) (map[string]float64, error) {
	out := make(map[string]float64)
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, fmt.Errorf("finance report: bad from date %q: %w", from, err)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, fmt.Errorf("finance report: bad to date %q: %w", to, err)
	}
	for cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		mFrom := cur.Format("2006-01-02")
		mTo := cur.AddDate(0, 1, -1).Format("2006-01-02")
		if mFrom < from {
			mFrom = from
		}
		if mTo > to {
			mTo = to
		}
		byCat, err := store.TotalByCategory(ctx, mFrom, mTo)
		if err != nil {
			return nil, err
		}
		var sum float64
		for _, v := range byCat {
			sum += v
		}
		if sum != 0 {
			out[cur.Format("2006-01")] = sum
		}
	}
	return out, nil
}
