// Package report builds read-only summaries over the ledger. Every
// report is computed from a single snapshot read so concurrent writes
// never produce a torn view.
package report

import (
	"context"
	"errors"
	"time"

	"ledgerbot/internal/core"
)

// Reader is the aggregate query surface the generator needs.
type Reader interface {
	PeriodTotals(ctx context.Context, userID int64, rng core.DateRange) (core.PeriodSummary, error)
	IncomeBySource(ctx context.Context, userID int64, rng core.DateRange) (map[string]core.Money, error)
	LoanSummaryByCounterparty(ctx context.Context, userID int64) ([]core.CounterpartySummary, error)
}

type Generator struct {
	reader Reader
}

func NewGenerator(reader Reader) *Generator {
	return &Generator{reader: reader}
}

// Daily summarizes a single calendar day.
func (g *Generator) Daily(ctx context.Context, userID int64, day core.Date) (core.PeriodSummary, error) {
	if err := day.Validate(); err != nil {
		return core.PeriodSummary{}, err
	}
	return g.period(ctx, userID, day.DayRange())
}

// Monthly summarizes a calendar month.
func (g *Generator) Monthly(ctx context.Context, userID int64, year, month int) (core.PeriodSummary, error) {
	if month < 1 || month > 12 {
		return core.PeriodSummary{}, core.ErrInvalidRange
	}
	return g.period(ctx, userID, core.MonthRange(year, month))
}

// Range summarizes an arbitrary inclusive date range.
func (g *Generator) Range(ctx context.Context, userID int64, rng core.DateRange) (core.PeriodSummary, error) {
	return g.period(ctx, userID, rng)
}

func (g *Generator) period(ctx context.Context, userID int64, rng core.DateRange) (core.PeriodSummary, error) {
	if err := rng.Validate(); err != nil {
		return core.PeriodSummary{}, err
	}
	summary, err := g.reader.PeriodTotals(ctx, userID, rng)
	if err != nil {
		return core.PeriodSummary{}, readErr(err)
	}
	fillCategories(&summary)
	summary.Range = rng
	return summary, nil
}

// CategoryBreakdown returns expense totals per category over the range,
// zero filled so every category appears even with no spend.
func (g *Generator) CategoryBreakdown(ctx context.Context, userID int64, rng core.DateRange) (map[core.Category]core.Money, error) {
	summary, err := g.Range(ctx, userID, rng)
	if err != nil {
		return nil, err
	}
	return summary.ExpenseByCategory, nil
}

// IncomeBySource returns income totals grouped by source label. Only
// sources with at least one entry appear; sources are free text, so
// there is no fixed set to zero-fill.
func (g *Generator) IncomeBySource(ctx context.Context, userID int64, rng core.DateRange) (map[string]core.Money, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	bySource, err := g.reader.IncomeBySource(ctx, userID, rng)
	if err != nil {
		return nil, readErr(err)
	}
	return bySource, nil
}

// LoanStatement returns the per-counterparty loan breakdown with grand
// totals. Covers all loans regardless of date.
func (g *Generator) LoanStatement(ctx context.Context, userID int64) (core.LoanStatement, error) {
	counterparties, err := g.reader.LoanSummaryByCounterparty(ctx, userID)
	if err != nil {
		return core.LoanStatement{}, readErr(err)
	}

	var totals core.CounterpartySummary
	for _, cs := range counterparties {
		totals.BorrowedPending = totals.BorrowedPending.Add(cs.BorrowedPending)
		totals.BorrowedSettled = totals.BorrowedSettled.Add(cs.BorrowedSettled)
		totals.LentPending = totals.LentPending.Add(cs.LentPending)
		totals.LentSettled = totals.LentSettled.Add(cs.LentSettled)
	}
	return core.LoanStatement{Counterparties: counterparties, Totals: totals}, nil
}

// NetBalance is income minus expense over the range. A user with no
// entries nets to zero.
func (g *Generator) NetBalance(ctx context.Context, userID int64, rng core.DateRange) (core.Money, error) {
	summary, err := g.Range(ctx, userID, rng)
	if err != nil {
		return core.Money{}, err
	}
	return summary.NetBalance(), nil
}

// Today summarizes the current UTC day.
func (g *Generator) Today(ctx context.Context, userID int64) (core.PeriodSummary, error) {
	return g.Daily(ctx, userID, core.DateOf(time.Now()))
}

// ThisMonth summarizes the current UTC calendar month.
func (g *Generator) ThisMonth(ctx context.Context, userID int64) (core.PeriodSummary, error) {
	now := time.Now().UTC()
	return g.Monthly(ctx, userID, now.Year(), int(now.Month()))
}

func fillCategories(s *core.PeriodSummary) {
	if s.ExpenseByCategory == nil {
		s.ExpenseByCategory = make(map[core.Category]core.Money, 8)
	}
	for _, c := range core.Categories() {
		if _, ok := s.ExpenseByCategory[c]; !ok {
			s.ExpenseByCategory[c] = core.Money{}
		}
	}
}

var passthroughErrs = []error{
	core.ErrInvalidDate,
	core.ErrInvalidRange,
	core.ErrNotFound,
}

func readErr(err error) error {
	if err == nil {
		return nil
	}
	for _, pe := range passthroughErrs {
		if errors.Is(err, pe) {
			return err
		}
	}
	if errors.Is(err, core.ErrStorageUnavailable) {
		return err
	}
	return errors.Join(core.ErrStorageUnavailable, err)
}
