// Package ledger implements the write side of the finance tracker:
// validated record creation, loan settlement, resets and settings.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"ledgerbot/internal/core"
)

// Store is the persistence surface the service needs.
type Store interface {
	UpsertUser(ctx context.Context, telegramID int64) (core.User, error)
	GetSettings(ctx context.Context, userID int64) (core.Settings, error)
	SetDailyReportEnabled(ctx context.Context, userID int64, enabled bool) error
	CreateIncome(ctx context.Context, e core.IncomeEntry) (core.IncomeEntry, error)
	CreateExpense(ctx context.Context, e core.ExpenseEntry) (core.ExpenseEntry, error)
	CreateLoan(ctx context.Context, e core.LoanEntry) (core.LoanEntry, error)
	GetLoan(ctx context.Context, userID, loanID int64) (core.LoanEntry, error)
	SettleLoan(ctx context.Context, userID, loanID int64, date core.Date) (core.LoanEntry, error)
	ResetAll(ctx context.Context, userID int64) error
	ListEntries(ctx context.Context, userID int64, rng core.DateRange, kind *core.EntryKind) ([]core.LedgerLine, error)
	ListRecent(ctx context.Context, userID int64, limit int) ([]core.LedgerLine, error)
}

// Publisher notifies the export pipeline about committed entries.
type Publisher interface {
	PublishEntryRecorded(ctx context.Context, kind core.EntryKind, entryID, userID int64) error
}

// Service validates operations before any write and serializes writes
// per user. Publish failures never fail the user's operation: the
// ledger write has already committed and the worker has a pending
// sweep as backup.
type Service struct {
	store     Store
	publisher Publisher
	locks     *userLocks
}

func NewService(store Store, publisher Publisher) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		locks:     newUserLocks(),
	}
}

// RegisterUser upserts the Telegram account and returns the user row.
func (s *Service) RegisterUser(ctx context.Context, telegramID int64) (core.User, error) {
	u, err := s.store.UpsertUser(ctx, telegramID)
	if err != nil {
		return core.User{}, storeErr(err)
	}
	return u, nil
}

func (s *Service) RecordIncome(ctx context.Context, userID int64, amount core.Money, source string, date core.Date) (core.IncomeEntry, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		source = core.SourceOther
	}
	entry := core.IncomeEntry{
		UserID: userID,
		Amount: amount,
		Source: source,
		Date:   date,
	}
	if err := entry.Validate(); err != nil {
		return core.IncomeEntry{}, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	entry, err := s.store.CreateIncome(ctx, entry)
	if err != nil {
		return core.IncomeEntry{}, storeErr(err)
	}
	s.publish(ctx, core.KindIncome, entry.ID, userID)
	return entry, nil
}

func (s *Service) RecordExpense(ctx context.Context, userID int64, amount core.Money, category core.Category, note string, date core.Date) (core.ExpenseEntry, error) {
	// Canonicalize before the write: reports bucket by exact spelling.
	canonical, err := core.ParseCategory(string(category))
	if err != nil {
		return core.ExpenseEntry{}, err
	}
	entry := core.ExpenseEntry{
		UserID:   userID,
		Amount:   amount,
		Category: canonical,
		Note:     strings.TrimSpace(note),
		Date:     date,
	}
	if err := entry.Validate(); err != nil {
		return core.ExpenseEntry{}, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	entry, err = s.store.CreateExpense(ctx, entry)
	if err != nil {
		return core.ExpenseEntry{}, storeErr(err)
	}
	s.publish(ctx, core.KindExpense, entry.ID, userID)
	return entry, nil
}

func (s *Service) RecordLoan(ctx context.Context, userID int64, direction core.LoanDirection, counterparty string, amount core.Money, date core.Date) (core.LoanEntry, error) {
	entry := core.LoanEntry{
		UserID:       userID,
		Amount:       amount,
		Direction:    direction,
		Counterparty: strings.TrimSpace(counterparty),
		Status:       core.LoanPending,
		Date:         date,
	}
	if err := entry.Validate(); err != nil {
		return core.LoanEntry{}, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	entry, err := s.store.CreateLoan(ctx, entry)
	if err != nil {
		return core.LoanEntry{}, storeErr(err)
	}
	s.publish(ctx, core.KindLoan, entry.ID, userID)
	return entry, nil
}

// Loan returns one loan owned by the user.
func (s *Service) Loan(ctx context.Context, userID, loanID int64) (core.LoanEntry, error) {
	entry, err := s.store.GetLoan(ctx, userID, loanID)
	if err != nil {
		return core.LoanEntry{}, storeErr(err)
	}
	return entry, nil
}

// Settle transitions a pending loan to settled. The store enforces the
// ownership, terminal-state and date invariants transactionally.
func (s *Service) Settle(ctx context.Context, userID, loanID int64, date core.Date) (core.LoanEntry, error) {
	if err := date.Validate(); err != nil {
		return core.LoanEntry{}, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	entry, err := s.store.SettleLoan(ctx, userID, loanID, date)
	if err != nil {
		return core.LoanEntry{}, storeErr(err)
	}
	s.publish(ctx, core.KindLoan, entry.ID, userID)
	return entry, nil
}

// ResetAll deletes every entry owned by the user; identity and
// settings survive. Idempotent.
func (s *Service) ResetAll(ctx context.Context, userID int64) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.store.ResetAll(ctx, userID); err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Service) Settings(ctx context.Context, userID int64) (core.Settings, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return core.Settings{}, storeErr(err)
	}
	return settings, nil
}

func (s *Service) SetDailyReportEnabled(ctx context.Context, userID int64, enabled bool) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.store.SetDailyReportEnabled(ctx, userID, enabled); err != nil {
		return storeErr(err)
	}
	return nil
}

// QueryEntries returns entries in the inclusive range, oldest first,
// optionally filtered by kind. A fresh call re-reads current state.
func (s *Service) QueryEntries(ctx context.Context, userID int64, rng core.DateRange, kind *core.EntryKind) ([]core.LedgerLine, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	lines, err := s.store.ListEntries(ctx, userID, rng, kind)
	if err != nil {
		return nil, storeErr(err)
	}
	return lines, nil
}

// MiniStatement returns the newest entries, newest first.
func (s *Service) MiniStatement(ctx context.Context, userID int64, limit int) ([]core.LedgerLine, error) {
	if limit <= 0 {
		limit = 10
	}
	lines, err := s.store.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return lines, nil
}

func (s *Service) publish(ctx context.Context, kind core.EntryKind, entryID, userID int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEntryRecorded(ctx, kind, entryID, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry recorded message",
			"kind", kind, "entry_id", entryID, "user_id", userID, "error", err)
	}
}

var domainErrs = []error{
	core.ErrInvalidAmount,
	core.ErrUnknownCategory,
	core.ErrEmptyCounterparty,
	core.ErrNotFound,
	core.ErrAlreadySettled,
	core.ErrInvalidDate,
	core.ErrInvalidRange,
}

// storeErr passes domain failures through and folds everything else
// into ErrStorageUnavailable, keeping the cause in the chain.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	for _, de := range domainErrs {
		if errors.Is(err, de) {
			return err
		}
	}
	return errors.Join(core.ErrStorageUnavailable, err)
}
