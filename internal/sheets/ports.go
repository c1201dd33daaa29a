package sheets

import (
	"context"

	"ledgerbot/internal/storage"
)

// Ports for outbound adapters.
type (
	// EntryAppender mirrors a ledger entry to the backup spreadsheet.
	EntryAppender interface {
		Append(ctx context.Context, row storage.ExportRow) (rowRef string, err error)
	}
)
