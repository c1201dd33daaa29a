package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"ledgerbot/internal/core"
)

// ExportRef identifies an entry waiting to be exported.
type ExportRef struct {
	Kind core.EntryKind
	ID   int64
}

// ExportRow is the flattened form of an entry appended to the backup
// spreadsheet.
type ExportRow struct {
	Kind       core.EntryKind
	ID         int64
	TelegramID int64
	Date       core.Date
	Amount     core.Money
	Label      string // source, category or counterparty
	Note       string // expense note or loan direction
}

func tableFor(kind core.EntryKind) (string, error) {
	switch kind {
	case core.KindIncome:
		return "incomes", nil
	case core.KindExpense:
		return "expenses", nil
	case core.KindLoan:
		return "loans", nil
	default:
		return "", fmt.Errorf("unknown entry kind %q", kind)
	}
}

// PendingExports returns entries not yet mirrored to the spreadsheet,
// oldest first. Backup path for lost AMQP messages.
func (r *SQLiteRepository) PendingExports(ctx context.Context, limit int) ([]ExportRef, error) {
	query := `
		SELECT 'income' AS kind, id, created_at FROM incomes WHERE sync_status = 'pending'
		UNION ALL
		SELECT 'expense', id, created_at FROM expenses WHERE sync_status = 'pending'
		UNION ALL
		SELECT 'loan', id, created_at FROM loans WHERE sync_status = 'pending'
		ORDER BY created_at ASC, id ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pending exports: %w", err)
	}
	defer rows.Close()

	var out []ExportRef
	for rows.Next() {
		var kind, created string
		var ref ExportRef
		if err := rows.Scan(&kind, &ref.ID, &created); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		ref.Kind = core.EntryKind(kind)
		out = append(out, ref)
	}
	return out, rows.Err()
}

// EntryForExport loads one entry of any kind, flattened for the
// spreadsheet row.
func (r *SQLiteRepository) EntryForExport(ctx context.Context, kind core.EntryKind, id int64) (ExportRow, error) {
	var query string
	switch kind {
	case core.KindIncome:
		query = `SELECT i.id, u.telegram_id, i.amount_cents, i.source, '', i.entry_date
			 FROM incomes i JOIN users u ON u.id = i.user_id WHERE i.id = ?`
	case core.KindExpense:
		query = `SELECT e.id, u.telegram_id, e.amount_cents, e.category, e.note, e.entry_date
			 FROM expenses e JOIN users u ON u.id = e.user_id WHERE e.id = ?`
	case core.KindLoan:
		query = `SELECT l.id, u.telegram_id, l.amount_cents, l.counterparty, l.direction, l.entry_date
			 FROM loans l JOIN users u ON u.id = l.user_id WHERE l.id = ?`
	default:
		return ExportRow{}, fmt.Errorf("unknown entry kind %q", kind)
	}

	row := ExportRow{Kind: kind}
	var entryDate string
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&row.ID, &row.TelegramID, &row.Amount.Cents, &row.Label, &row.Note, &entryDate)
	if errors.Is(err, sql.ErrNoRows) {
		return ExportRow{}, core.ErrNotFound
	}
	if err != nil {
		return ExportRow{}, fmt.Errorf("entry for export: %w", err)
	}
	if row.Date, err = core.ParseDate(entryDate); err != nil {
		return ExportRow{}, fmt.Errorf("export entry date: %w", err)
	}
	return row, nil
}

// MarkExported marks an entry as successfully mirrored.
func (r *SQLiteRepository) MarkExported(ctx context.Context, kind core.EntryKind, id int64) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET sync_status = 'synced' WHERE id = ?`, table), id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	slog.InfoContext(ctx, "Entry marked as exported", "kind", kind, "id", id)
	return nil
}

// MarkExportError marks an entry as failed to mirror; it stays out of
// the pending sweep until inspected.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, kind core.EntryKind, id int64) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET sync_status = 'error' WHERE id = ?`, table), id)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	slog.WarnContext(ctx, "Entry marked with export error", "kind", kind, "id", id)
	return nil
}
