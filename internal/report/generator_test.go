package report

import (
	"context"
	"errors"
	"testing"

	"ledgerbot/internal/core"
)

type fakeReader struct {
	totals   core.PeriodSummary
	bySource map[string]core.Money
	loans    []core.CounterpartySummary
	err      error
}

func (f *fakeReader) PeriodTotals(_ context.Context, _ int64, _ core.DateRange) (core.PeriodSummary, error) {
	return f.totals, f.err
}

func (f *fakeReader) IncomeBySource(_ context.Context, _ int64, _ core.DateRange) (map[string]core.Money, error) {
	return f.bySource, f.err
}

func (f *fakeReader) LoanSummaryByCounterparty(_ context.Context, _ int64) ([]core.CounterpartySummary, error) {
	return f.loans, f.err
}

func TestDailyFillsAllCategories(t *testing.T) {
	reader := &fakeReader{
		totals: core.PeriodSummary{
			TotalIncome:  core.Money{Cents: 10000},
			TotalExpense: core.Money{Cents: 2500},
			ExpenseByCategory: map[core.Category]core.Money{
				core.CategoryFood: {Cents: 2500},
			},
			ExpenseCount: 1,
			IncomeCount:  1,
		},
	}
	gen := NewGenerator(reader)

	summary, err := gen.Daily(context.Background(), 1, core.NewDate(2024, 3, 15))
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if len(summary.ExpenseByCategory) != len(core.Categories()) {
		t.Fatalf("expected all %d categories, got %d", len(core.Categories()), len(summary.ExpenseByCategory))
	}
	for _, c := range core.Categories() {
		got, ok := summary.ExpenseByCategory[c]
		if !ok {
			t.Fatalf("category %s missing from breakdown", c)
		}
		want := core.Money{}
		if c == core.CategoryFood {
			want = core.Money{Cents: 2500}
		}
		if got != want {
			t.Errorf("category %s = %v, want %v", c, got, want)
		}
	}
	if summary.Range != core.NewDate(2024, 3, 15).DayRange() {
		t.Errorf("range = %v", summary.Range)
	}
}

func TestMonthlyValidatesMonth(t *testing.T) {
	gen := NewGenerator(&fakeReader{})
	for _, month := range []int{0, 13, -1} {
		if _, err := gen.Monthly(context.Background(), 1, 2024, month); !errors.Is(err, core.ErrInvalidRange) {
			t.Errorf("month %d: expected ErrInvalidRange, got %v", month, err)
		}
	}
	if _, err := gen.Monthly(context.Background(), 1, 2024, 2); err != nil {
		t.Fatalf("valid month: %v", err)
	}
}

func TestRangeRejectsInverted(t *testing.T) {
	gen := NewGenerator(&fakeReader{})
	rng := core.DateRange{From: core.NewDate(2024, 2, 1), To: core.NewDate(2024, 1, 1)}
	if _, err := gen.Range(context.Background(), 1, rng); !errors.Is(err, core.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestNetBalanceEmptyLedgerIsZero(t *testing.T) {
	gen := NewGenerator(&fakeReader{})
	rng := core.DateRange{From: core.NewDate(2024, 1, 1), To: core.NewDate(2024, 1, 31)}

	net, err := gen.NetBalance(context.Background(), 1, rng)
	if err != nil {
		t.Fatalf("net balance: %v", err)
	}
	if net.Cents != 0 {
		t.Fatalf("empty ledger net = %d cents, want 0", net.Cents)
	}
}

func TestNetBalanceCanGoNegative(t *testing.T) {
	reader := &fakeReader{totals: core.PeriodSummary{
		TotalIncome:  core.Money{Cents: 1000},
		TotalExpense: core.Money{Cents: 2500},
	}}
	gen := NewGenerator(reader)
	rng := core.NewDate(2024, 1, 1).DayRange()

	net, err := gen.NetBalance(context.Background(), 1, rng)
	if err != nil {
		t.Fatalf("net balance: %v", err)
	}
	if net.Cents != -1500 {
		t.Fatalf("net = %d cents, want -1500", net.Cents)
	}
}

func TestLoanStatementTotals(t *testing.T) {
	reader := &fakeReader{loans: []core.CounterpartySummary{
		{Counterparty: "Alice", LentPending: core.Money{Cents: 5000}, LentSettled: core.Money{Cents: 1000}},
		{Counterparty: "Bob", BorrowedPending: core.Money{Cents: 3000}},
	}}
	gen := NewGenerator(reader)

	stmt, err := gen.LoanStatement(context.Background(), 1)
	if err != nil {
		t.Fatalf("loan statement: %v", err)
	}
	if len(stmt.Counterparties) != 2 {
		t.Fatalf("counterparties = %d", len(stmt.Counterparties))
	}
	if stmt.Totals.LentPending.Cents != 5000 {
		t.Errorf("lent pending total = %d", stmt.Totals.LentPending.Cents)
	}
	if stmt.Totals.LentSettled.Cents != 1000 {
		t.Errorf("lent settled total = %d", stmt.Totals.LentSettled.Cents)
	}
	if stmt.Totals.BorrowedPending.Cents != 3000 {
		t.Errorf("borrowed pending total = %d", stmt.Totals.BorrowedPending.Cents)
	}
	if stmt.Totals.Counterparty != "" {
		t.Errorf("totals row must not name a counterparty")
	}
}

func TestReaderFailureIsOpaque(t *testing.T) {
	reader := &fakeReader{err: errors.New("database is locked")}
	gen := NewGenerator(reader)

	_, err := gen.Daily(context.Background(), 1, core.NewDate(2024, 1, 1))
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
