package core

import "time"

// PeriodSummary aggregates one user's ledger over a date range.
type PeriodSummary struct {
	Range             DateRange
	TotalIncome       Money
	TotalExpense      Money
	ExpenseByCategory map[Category]Money // always all 8 categories, zero filled
	ExpenseCount      int
	IncomeCount       int
}

// NetBalance is total income minus total expense over the period.
func (s PeriodSummary) NetBalance() Money {
	return s.TotalIncome.Sub(s.TotalExpense)
}

// LedgerLine is one entry of any kind, flattened for listings and the
// mini statement. Label holds the source, category or counterparty.
type LedgerLine struct {
	Kind      EntryKind
	ID        int64
	Amount    Money
	Label     string
	Note      string
	Date      Date
	CreatedAt time.Time
}

// CounterpartySummary buckets loan amounts for one counterparty by
// direction and settlement status.
type CounterpartySummary struct {
	Counterparty    string
	BorrowedPending Money
	BorrowedSettled Money
	LentPending     Money
	LentSettled     Money
}

// LoanStatement is the per-counterparty breakdown plus grand totals
// across all counterparties.
type LoanStatement struct {
	Counterparties []CounterpartySummary // sorted by counterparty name
	Totals         CounterpartySummary   // Counterparty left empty
}
