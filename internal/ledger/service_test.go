package ledger

import (
	"context"
	"errors"
	"sort"
	"testing"

	"ledgerbot/internal/core"
)

type fakeStore struct {
	nextID   int64
	incomes  []core.IncomeEntry
	expenses []core.ExpenseEntry
	loans    []core.LoanEntry
	settings map[int64]core.Settings
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{settings: make(map[int64]core.Settings)}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) UpsertUser(_ context.Context, telegramID int64) (core.User, error) {
	if f.failWith != nil {
		return core.User{}, f.failWith
	}
	if _, ok := f.settings[telegramID]; !ok {
		f.settings[telegramID] = core.Settings{UserID: telegramID, DailyReportEnabled: true}
	}
	return core.User{ID: telegramID, TelegramID: telegramID}, nil
}

func (f *fakeStore) GetSettings(_ context.Context, userID int64) (core.Settings, error) {
	s, ok := f.settings[userID]
	if !ok {
		return core.Settings{}, core.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) SetDailyReportEnabled(_ context.Context, userID int64, enabled bool) error {
	s, ok := f.settings[userID]
	if !ok {
		return core.ErrNotFound
	}
	s.DailyReportEnabled = enabled
	f.settings[userID] = s
	return nil
}

func (f *fakeStore) CreateIncome(_ context.Context, e core.IncomeEntry) (core.IncomeEntry, error) {
	if f.failWith != nil {
		return core.IncomeEntry{}, f.failWith
	}
	e.ID = f.id()
	f.incomes = append(f.incomes, e)
	return e, nil
}

func (f *fakeStore) CreateExpense(_ context.Context, e core.ExpenseEntry) (core.ExpenseEntry, error) {
	if f.failWith != nil {
		return core.ExpenseEntry{}, f.failWith
	}
	e.ID = f.id()
	f.expenses = append(f.expenses, e)
	return e, nil
}

func (f *fakeStore) CreateLoan(_ context.Context, e core.LoanEntry) (core.LoanEntry, error) {
	if f.failWith != nil {
		return core.LoanEntry{}, f.failWith
	}
	e.ID = f.id()
	e.Status = core.LoanPending
	f.loans = append(f.loans, e)
	return e, nil
}

func (f *fakeStore) GetLoan(_ context.Context, userID, loanID int64) (core.LoanEntry, error) {
	for _, l := range f.loans {
		if l.ID == loanID && l.UserID == userID {
			return l, nil
		}
	}
	return core.LoanEntry{}, core.ErrNotFound
}

func (f *fakeStore) SettleLoan(_ context.Context, userID, loanID int64, date core.Date) (core.LoanEntry, error) {
	for i, l := range f.loans {
		if l.ID != loanID || l.UserID != userID {
			continue
		}
		if l.Status == core.LoanSettled {
			return core.LoanEntry{}, core.ErrAlreadySettled
		}
		if date.Before(l.Date.Time) {
			return core.LoanEntry{}, core.ErrInvalidDate
		}
		l.Status = core.LoanSettled
		l.SettledDate = date
		f.loans[i] = l
		return l, nil
	}
	return core.LoanEntry{}, core.ErrNotFound
}

func (f *fakeStore) ResetAll(_ context.Context, userID int64) error {
	keepIncomes := f.incomes[:0]
	for _, e := range f.incomes {
		if e.UserID != userID {
			keepIncomes = append(keepIncomes, e)
		}
	}
	f.incomes = keepIncomes
	keepExpenses := f.expenses[:0]
	for _, e := range f.expenses {
		if e.UserID != userID {
			keepExpenses = append(keepExpenses, e)
		}
	}
	f.expenses = keepExpenses
	keepLoans := f.loans[:0]
	for _, e := range f.loans {
		if e.UserID != userID {
			keepLoans = append(keepLoans, e)
		}
	}
	f.loans = keepLoans
	return nil
}

func (f *fakeStore) ListEntries(_ context.Context, userID int64, rng core.DateRange, kind *core.EntryKind) ([]core.LedgerLine, error) {
	var out []core.LedgerLine
	for _, e := range f.incomes {
		if e.UserID == userID && rng.Contains(e.Date) {
			out = append(out, core.LedgerLine{Kind: core.KindIncome, ID: e.ID, Amount: e.Amount, Label: e.Source, Date: e.Date})
		}
	}
	for _, e := range f.expenses {
		if e.UserID == userID && rng.Contains(e.Date) {
			out = append(out, core.LedgerLine{Kind: core.KindExpense, ID: e.ID, Amount: e.Amount, Label: string(e.Category), Note: e.Note, Date: e.Date})
		}
	}
	for _, e := range f.loans {
		if e.UserID == userID && rng.Contains(e.Date) {
			out = append(out, core.LedgerLine{Kind: core.KindLoan, ID: e.ID, Amount: e.Amount, Label: e.Counterparty, Date: e.Date})
		}
	}
	if kind != nil {
		filtered := out[:0]
		for _, l := range out {
			if l.Kind == *kind {
				filtered = append(filtered, l)
			}
		}
		out = filtered
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}

func (f *fakeStore) ListRecent(_ context.Context, userID int64, limit int) ([]core.LedgerLine, error) {
	all, _ := f.ListEntries(context.Background(), userID,
		core.DateRange{From: core.NewDate(1970, 1, 1), To: core.NewDate(9999, 12, 31)}, nil)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

type fakePublisher struct {
	published []core.EntryKind
	err       error
}

func (p *fakePublisher) PublishEntryRecorded(_ context.Context, kind core.EntryKind, _, _ int64) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, kind)
	return nil
}

func TestRecordIncomeValidation(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	ctx := context.Background()
	day := core.NewDate(2024, 1, 1)

	if _, err := svc.RecordIncome(ctx, 1, core.Money{Cents: 0}, core.SourceSalary, day); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	entry, err := svc.RecordIncome(ctx, 1, core.Money{Cents: 10000}, "  ", day)
	if err != nil {
		t.Fatalf("record income: %v", err)
	}
	if entry.Source != core.SourceOther {
		t.Fatalf("blank source should default to %q, got %q", core.SourceOther, entry.Source)
	}
}

func TestRecordExpenseValidation(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()
	day := core.NewDate(2024, 1, 1)

	if _, err := svc.RecordExpense(ctx, 1, core.Money{Cents: -5}, core.CategoryFood, "", day); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.RecordExpense(ctx, 1, core.Money{Cents: 100}, "Groceries", "", day); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if len(store.expenses) != 0 {
		t.Fatal("validation failures must not write")
	}

	if _, err := svc.RecordExpense(ctx, 1, core.Money{Cents: 100}, core.CategoryFood, "lunch", day); err != nil {
		t.Fatalf("record expense: %v", err)
	}
}

func TestRecordExpenseCanonicalizesCategory(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()
	day := core.NewDate(2024, 1, 1)

	entry, err := svc.RecordExpense(ctx, 1, core.Money{Cents: 500}, "food", "", day)
	if err != nil {
		t.Fatalf("record expense: %v", err)
	}
	if entry.Category != core.CategoryFood {
		t.Fatalf("category = %q, want %q", entry.Category, core.CategoryFood)
	}
	if store.expenses[0].Category != core.CategoryFood {
		t.Fatalf("stored category = %q, want canonical spelling", store.expenses[0].Category)
	}
}

func TestRecordLoanValidation(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	ctx := context.Background()
	day := core.NewDate(2024, 1, 1)

	if _, err := svc.RecordLoan(ctx, 1, core.Lent, "  ", core.Money{Cents: 100}, day); !errors.Is(err, core.ErrEmptyCounterparty) {
		t.Fatalf("expected ErrEmptyCounterparty, got %v", err)
	}

	entry, err := svc.RecordLoan(ctx, 1, core.Lent, " Alice ", core.Money{Cents: 5000}, day)
	if err != nil {
		t.Fatalf("record loan: %v", err)
	}
	if entry.Counterparty != "Alice" {
		t.Fatalf("counterparty should be trimmed, got %q", entry.Counterparty)
	}
	if entry.Status != core.LoanPending {
		t.Fatalf("new loan status = %v", entry.Status)
	}
}

func TestSettleFlow(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	loan, err := svc.RecordLoan(ctx, 1, core.Borrowed, "Bob", core.Money{Cents: 3000}, core.NewDate(2024, 1, 1))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Settle(ctx, 2, loan.ID, core.NewDate(2024, 1, 5)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign user settle: expected ErrNotFound, got %v", err)
	}
	settled, err := svc.Settle(ctx, 1, loan.ID, core.NewDate(2024, 1, 5))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.Status != core.LoanSettled {
		t.Fatalf("status = %v", settled.Status)
	}
	if _, err := svc.Settle(ctx, 1, loan.ID, core.NewDate(2024, 1, 6)); !errors.Is(err, core.ErrAlreadySettled) {
		t.Fatalf("expected ErrAlreadySettled, got %v", err)
	}
}

func TestPublishIsBestEffort(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{err: errors.New("amqp down")}
	svc := NewService(store, pub)
	ctx := context.Background()

	if _, err := svc.RecordIncome(ctx, 1, core.Money{Cents: 100}, core.SourceSalary, core.NewDate(2024, 1, 1)); err != nil {
		t.Fatalf("publish failure must not fail the write: %v", err)
	}
	if len(store.incomes) != 1 {
		t.Fatal("income should be stored despite publish failure")
	}
}

func TestQueryEntriesInvalidRange(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	rng := core.DateRange{From: core.NewDate(2024, 2, 1), To: core.NewDate(2024, 1, 1)}
	if _, err := svc.QueryEntries(context.Background(), 1, rng, nil); !errors.Is(err, core.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestStorageFailureIsOpaque(t *testing.T) {
	store := newFakeStore()
	store.failWith = errors.New("disk io error")
	svc := NewService(store, nil)

	_, err := svc.RecordIncome(context.Background(), 1, core.Money{Cents: 100}, core.SourceSalary, core.NewDate(2024, 1, 1))
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
