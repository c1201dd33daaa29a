package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"ledgerbot/internal/core"

	_ "modernc.org/sqlite"
)

const createdAtLayout = "2006-01-02 15:04:05"

// SQLiteRepository persists users, settings and ledger entries. Every
// mutating operation is a single statement or a transaction, so a
// failed operation leaves no partial writes.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// UpsertUser registers a Telegram account on first contact and returns
// the user row. Settings default to daily reports enabled.
func (r *SQLiteRepository) UpsertUser(ctx context.Context, telegramID int64) (core.User, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users(telegram_id) VALUES(?) ON CONFLICT(telegram_id) DO NOTHING`,
		telegramID)
	if err != nil {
		return core.User{}, fmt.Errorf("upsert user: %w", err)
	}

	var u core.User
	var created string
	err = r.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, created_at FROM users WHERE telegram_id = ?`,
		telegramID).Scan(&u.ID, &u.TelegramID, &created)
	if err != nil {
		return core.User{}, fmt.Errorf("select user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(createdAtLayout, created)
	return u, nil
}

func (r *SQLiteRepository) GetSettings(ctx context.Context, userID int64) (core.Settings, error) {
	var enabled int
	err := r.db.QueryRowContext(ctx,
		`SELECT daily_report_enabled FROM users WHERE id = ?`, userID).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settings{}, core.ErrNotFound
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return core.Settings{UserID: userID, DailyReportEnabled: enabled != 0}, nil
}

func (r *SQLiteRepository) SetDailyReportEnabled(ctx context.Context, userID int64, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET daily_report_enabled = ? WHERE id = ?`, v, userID)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListDailyReportUsers returns every user with the daily report enabled.
func (r *SQLiteRepository) ListDailyReportUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, telegram_id FROM users WHERE daily_report_enabled = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list daily report users: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.TelegramID); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateIncome(ctx context.Context, e core.IncomeEntry) (core.IncomeEntry, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes(user_id, amount_cents, source, entry_date) VALUES(?, ?, ?, ?)`,
		e.UserID, e.Amount.Cents, e.Source, e.Date.String())
	if err != nil {
		return core.IncomeEntry{}, fmt.Errorf("create income: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.IncomeEntry{}, fmt.Errorf("income id: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", e.ID, "user_id", e.UserID, "amount_cents", e.Amount.Cents, "source", e.Source)
	return e, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.ExpenseEntry) (core.ExpenseEntry, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses(user_id, amount_cents, category, note, entry_date) VALUES(?, ?, ?, ?, ?)`,
		e.UserID, e.Amount.Cents, string(e.Category), e.Note, e.Date.String())
	if err != nil {
		return core.ExpenseEntry{}, fmt.Errorf("create expense: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.ExpenseEntry{}, fmt.Errorf("expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID, "user_id", e.UserID, "amount_cents", e.Amount.Cents, "category", e.Category)
	return e, nil
}

func (r *SQLiteRepository) CreateLoan(ctx context.Context, e core.LoanEntry) (core.LoanEntry, error) {
	e.Status = core.LoanPending
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO loans(user_id, amount_cents, direction, counterparty, status, entry_date)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Amount.Cents, string(e.Direction), e.Counterparty, string(e.Status), e.Date.String())
	if err != nil {
		return core.LoanEntry{}, fmt.Errorf("create loan: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.LoanEntry{}, fmt.Errorf("loan id: %w", err)
	}

	slog.InfoContext(ctx, "Loan saved",
		"id", e.ID, "user_id", e.UserID, "amount_cents", e.Amount.Cents,
		"direction", e.Direction, "counterparty", e.Counterparty)
	return e, nil
}

func (r *SQLiteRepository) GetLoan(ctx context.Context, userID, loanID int64) (core.LoanEntry, error) {
	return scanLoan(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount_cents, direction, counterparty, status, entry_date, settled_date
		 FROM loans WHERE id = ? AND user_id = ?`, loanID, userID))
}

// SettleLoan transitions a pending loan to settled. The check and the
// update run in one transaction so a loan settles exactly once.
func (r *SQLiteRepository) SettleLoan(ctx context.Context, userID, loanID int64, date core.Date) (core.LoanEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.LoanEntry{}, fmt.Errorf("begin settle: %w", err)
	}
	defer tx.Rollback()

	loan, err := scanLoan(tx.QueryRowContext(ctx,
		`SELECT id, user_id, amount_cents, direction, counterparty, status, entry_date, settled_date
		 FROM loans WHERE id = ? AND user_id = ?`, loanID, userID))
	if err != nil {
		return core.LoanEntry{}, err
	}
	if loan.Status == core.LoanSettled {
		return core.LoanEntry{}, core.ErrAlreadySettled
	}
	if date.Before(loan.Date.Time) {
		return core.LoanEntry{}, core.ErrInvalidDate
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE loans SET status = ?, settled_date = ? WHERE id = ?`,
		string(core.LoanSettled), date.String(), loanID)
	if err != nil {
		return core.LoanEntry{}, fmt.Errorf("settle loan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.LoanEntry{}, fmt.Errorf("commit settle: %w", err)
	}

	loan.Status = core.LoanSettled
	loan.SettledDate = date
	slog.InfoContext(ctx, "Loan settled",
		"id", loan.ID, "user_id", userID, "settled_date", date.String())
	return loan, nil
}

// ResetAll deletes every entry owned by the user. The user row and its
// settings stay. Running it twice is harmless.
func (r *SQLiteRepository) ResetAll(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"incomes", "expenses", "loans"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE user_id = ?`, table), userID); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}

	slog.InfoContext(ctx, "Ledger reset", "user_id", userID)
	return nil
}

// ListEntries returns the user's entries inside the inclusive range,
// oldest first, optionally filtered to one kind.
func (r *SQLiteRepository) ListEntries(ctx context.Context, userID int64, rng core.DateRange, kind *core.EntryKind) ([]core.LedgerLine, error) {
	query := `
		SELECT 'income' AS kind, id, amount_cents, source AS label, '' AS note, entry_date, created_at
		FROM incomes WHERE user_id = ?1 AND entry_date BETWEEN ?2 AND ?3
		UNION ALL
		SELECT 'expense', id, amount_cents, category, note, entry_date, created_at
		FROM expenses WHERE user_id = ?1 AND entry_date BETWEEN ?2 AND ?3
		UNION ALL
		SELECT 'loan', id, amount_cents, counterparty, direction, entry_date, created_at
		FROM loans WHERE user_id = ?1 AND entry_date BETWEEN ?2 AND ?3
		ORDER BY entry_date ASC, created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, userID, rng.From.String(), rng.To.String())
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		if kind != nil && line.Kind != *kind {
			continue
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

// ListRecent returns the newest entries across all kinds, newest first.
// Backs the mini statement.
func (r *SQLiteRepository) ListRecent(ctx context.Context, userID int64, limit int) ([]core.LedgerLine, error) {
	query := `
		SELECT 'income' AS kind, id, amount_cents, source AS label, '' AS note, entry_date, created_at
		FROM incomes WHERE user_id = ?1
		UNION ALL
		SELECT 'expense', id, amount_cents, category, note, entry_date, created_at
		FROM expenses WHERE user_id = ?1
		UNION ALL
		SELECT 'loan', id, amount_cents, counterparty, direction, entry_date, created_at
		FROM loans WHERE user_id = ?1
		ORDER BY created_at DESC, id DESC LIMIT ?2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

// PeriodTotals sums the user's ledger over the range inside a single
// read transaction, so the summary is one consistent snapshot.
func (r *SQLiteRepository) PeriodTotals(ctx context.Context, userID int64, rng core.DateRange) (core.PeriodSummary, error) {
	summary := core.PeriodSummary{
		Range:             rng,
		ExpenseByCategory: make(map[core.Category]core.Money),
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return summary, fmt.Errorf("begin totals: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*) FROM incomes
		 WHERE user_id = ? AND entry_date BETWEEN ? AND ?`,
		userID, rng.From.String(), rng.To.String()).
		Scan(&summary.TotalIncome.Cents, &summary.IncomeCount)
	if err != nil {
		return summary, fmt.Errorf("income total: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT category, SUM(amount_cents), COUNT(*) FROM expenses
		 WHERE user_id = ? AND entry_date BETWEEN ? AND ?
		 GROUP BY category`,
		userID, rng.From.String(), rng.To.String())
	if err != nil {
		return summary, fmt.Errorf("expense totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cat string
		var cents int64
		var count int
		if err := rows.Scan(&cat, &cents, &count); err != nil {
			return summary, fmt.Errorf("scan expense total: %w", err)
		}
		summary.ExpenseByCategory[core.Category(cat)] = core.Money{Cents: cents}
		summary.TotalExpense.Cents += cents
		summary.ExpenseCount += count
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}
	return summary, tx.Commit()
}

// IncomeBySource groups income totals by their free-text source label.
func (r *SQLiteRepository) IncomeBySource(ctx context.Context, userID int64, rng core.DateRange) (map[string]core.Money, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT source, SUM(amount_cents) FROM incomes
		 WHERE user_id = ? AND entry_date BETWEEN ? AND ?
		 GROUP BY source`,
		userID, rng.From.String(), rng.To.String())
	if err != nil {
		return nil, fmt.Errorf("income by source: %w", err)
	}
	defer rows.Close()

	out := make(map[string]core.Money)
	for rows.Next() {
		var source string
		var cents int64
		if err := rows.Scan(&source, &cents); err != nil {
			return nil, fmt.Errorf("scan income source: %w", err)
		}
		out[source] = core.Money{Cents: cents}
	}
	return out, rows.Err()
}

// LoanSummaryByCounterparty aggregates loan amounts per counterparty,
// split by direction and settlement status. Names are opaque grouping
// keys, compared case-sensitively.
func (r *SQLiteRepository) LoanSummaryByCounterparty(ctx context.Context, userID int64) ([]core.CounterpartySummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT counterparty, direction, status, SUM(amount_cents)
		 FROM loans WHERE user_id = ?
		 GROUP BY counterparty, direction, status`, userID)
	if err != nil {
		return nil, fmt.Errorf("loan summary: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]*core.CounterpartySummary)
	for rows.Next() {
		var name, direction, status string
		var cents int64
		if err := rows.Scan(&name, &direction, &status, &cents); err != nil {
			return nil, fmt.Errorf("scan loan summary: %w", err)
		}
		s, ok := byName[name]
		if !ok {
			s = &core.CounterpartySummary{Counterparty: name}
			byName[name] = s
		}
		amount := core.Money{Cents: cents}
		switch {
		case direction == string(core.Borrowed) && status == string(core.LoanPending):
			s.BorrowedPending = s.BorrowedPending.Add(amount)
		case direction == string(core.Borrowed) && status == string(core.LoanSettled):
			s.BorrowedSettled = s.BorrowedSettled.Add(amount)
		case direction == string(core.Lent) && status == string(core.LoanPending):
			s.LentPending = s.LentPending.Add(amount)
		case direction == string(core.Lent) && status == string(core.LoanSettled):
			s.LentSettled = s.LentSettled.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]core.CounterpartySummary, 0, len(names))
	for _, name := range names {
		out = append(out, *byName[name])
	}
	return out, nil
}

func scanLoan(row *sql.Row) (core.LoanEntry, error) {
	var e core.LoanEntry
	var direction, status, entryDate string
	var settledDate sql.NullString
	err := row.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &direction, &e.Counterparty,
		&status, &entryDate, &settledDate)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LoanEntry{}, core.ErrNotFound
	}
	if err != nil {
		return core.LoanEntry{}, fmt.Errorf("scan loan: %w", err)
	}
	e.Direction = core.LoanDirection(direction)
	e.Status = core.LoanStatus(status)
	if e.Date, err = core.ParseDate(entryDate); err != nil {
		return core.LoanEntry{}, fmt.Errorf("loan entry date: %w", err)
	}
	if settledDate.Valid {
		if e.SettledDate, err = core.ParseDate(settledDate.String); err != nil {
			return core.LoanEntry{}, fmt.Errorf("loan settled date: %w", err)
		}
	}
	return e, nil
}

func scanLine(rows *sql.Rows) (core.LedgerLine, error) {
	var line core.LedgerLine
	var kind, entryDate, created string
	if err := rows.Scan(&kind, &line.ID, &line.Amount.Cents, &line.Label,
		&line.Note, &entryDate, &created); err != nil {
		return core.LedgerLine{}, fmt.Errorf("scan entry: %w", err)
	}
	line.Kind = core.EntryKind(kind)
	var err error
	if line.Date, err = core.ParseDate(entryDate); err != nil {
		return core.LedgerLine{}, fmt.Errorf("entry date: %w", err)
	}
	line.CreatedAt, _ = time.Parse(createdAtLayout, created)
	return line, nil
}
