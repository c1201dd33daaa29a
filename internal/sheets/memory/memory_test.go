package memory

import (
	"context"
	"testing"

	"ledgerbot/internal/core"
	"ledgerbot/internal/storage"
)

func TestAppendAndRows(t *testing.T) {
	s := New()

	ref, err := s.Append(context.Background(), storage.ExportRow{
		Kind:       core.KindExpense,
		ID:         1,
		TelegramID: 42,
		Date:       core.NewDate(2024, 1, 15),
		Amount:     core.Money{Cents: 2500},
		Label:      "Food",
		Note:       "lunch",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q", ref)
	}

	rows := s.Rows()
	if len(rows) != 1 || rows[0].ID != 1 || rows[0].Label != "Food" {
		t.Fatalf("rows = %+v", rows)
	}
}
