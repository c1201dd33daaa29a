// Package memory is an in-memory EntryAppender used in tests and when
// no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"ledgerbot/internal/storage"
)

type Store struct {
	mu    sync.Mutex
	items []storage.ExportRow
}

func New() *Store {
	return &Store{}
}

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, row storage.ExportRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, row)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []storage.ExportRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storage.ExportRow(nil), s.items...)
}
