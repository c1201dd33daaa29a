// Package worker mirrors committed ledger entries to the backup
// spreadsheet, driven by AMQP messages with a periodic sweep as backup.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/core"
	"ledgerbot/internal/sheets"
	"ledgerbot/internal/storage"
)

// ExportStore is the slice of the repository the worker needs.
type ExportStore interface {
	PendingExports(ctx context.Context, limit int) ([]storage.ExportRef, error)
	EntryForExport(ctx context.Context, kind core.EntryKind, id int64) (storage.ExportRow, error)
	MarkExported(ctx context.Context, kind core.EntryKind, id int64) error
	MarkExportError(ctx context.Context, kind core.EntryKind, id int64) error
}

type ExportWorker struct {
	store     ExportStore
	appender  sheets.EntryAppender
	batchSize int
}

func NewExportWorker(store ExportStore, appender sheets.EntryAppender, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleEntryMessage processes a single entry-recorded message. An
// error return requeues the delivery.
func (w *ExportWorker) HandleEntryMessage(ctx context.Context, msg *amqp.EntryRecordedMessage) error {
	slog.InfoContext(ctx, "Processing entry message",
		"kind", msg.Kind,
		"entry_id", msg.EntryID,
		"user_id", msg.UserID)

	if err := w.exportOne(ctx, msg.Kind, msg.EntryID); err != nil {
		return fmt.Errorf("export entry %s/%d: %w", msg.Kind, msg.EntryID, err)
	}
	return nil
}

func (w *ExportWorker) exportOne(ctx context.Context, kind core.EntryKind, id int64) error {
	row, err := w.store.EntryForExport(ctx, kind, id)
	if errors.Is(err, core.ErrNotFound) {
		// Entry deleted (for example by a reset) before the export ran.
		slog.WarnContext(ctx, "Entry gone before export, dropping", "kind", kind, "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load entry: %w", err)
	}

	if _, err := w.appender.Append(ctx, row); err != nil {
		if markErr := w.store.MarkExportError(ctx, kind, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"kind", kind, "id", id, "error", markErr)
		}
		return fmt.Errorf("append to spreadsheet: %w", err)
	}

	if err := w.store.MarkExported(ctx, kind, id); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

// ProcessPendingExports sweeps entries that never got exported. Backup
// mechanism for lost AMQP messages; per-entry failures are logged and
// skipped.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	pending, err := w.store.PendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, ref := range pending {
		if err := w.exportOne(ctx, ref.Kind, ref.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending entry",
				"kind", ref.Kind, "id", ref.ID, "error", err)
			continue
		}
	}
	return nil
}

// StartupExportCheck drains the pending backlog at worker startup with
// a larger batch, recovering from missed messages or worker downtime.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	pending, err := w.store.PendingExports(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending exports for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, ref := range pending {
		if err := w.exportOne(ctx, ref.Kind, ref.ID); err != nil {
			slog.ErrorContext(ctx, "Startup export failed",
				"kind", ref.Kind, "id", ref.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export check completed",
		"success", successCount, "errors", errorCount)
	return nil
}
