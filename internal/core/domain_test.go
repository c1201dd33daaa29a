package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"Food", CategoryFood, true},
		{"food", CategoryFood, true},
		{" TRANSPORT ", CategoryTransport, true},
		{"Entertainment", CategoryEntertainment, true},
		{"Groceries", "", false},
		{"", "", false},
	}
	for i, tc := range cases {
		got, err := ParseCategory(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("case %d: got %q (err=%v), want %q", i, got, err, tc.want)
			}
		} else if !errors.Is(err, ErrUnknownCategory) {
			t.Fatalf("case %d: expected ErrUnknownCategory, got %v", i, err)
		}
	}
}

func TestCategoriesClosedSet(t *testing.T) {
	if n := len(Categories()); n != 8 {
		t.Fatalf("expected 8 categories, got %d", n)
	}
	seen := map[Category]bool{}
	for _, c := range Categories() {
		if seen[c] {
			t.Fatalf("duplicate category %q", c)
		}
		seen[c] = true
		if !c.Valid() {
			t.Fatalf("canonical category %q reported invalid", c)
		}
	}
	for _, s := range []string{"food", "FOOD", " Food ", "Groceries", ""} {
		if Category(s).Valid() {
			t.Fatalf("%q must not pass as a category", s)
		}
	}
}

func TestDateRangeValidate(t *testing.T) {
	cases := []struct {
		r  DateRange
		ok bool
	}{
		{DateRange{From: NewDate(2024, 1, 1), To: NewDate(2024, 1, 31)}, true},
		{DateRange{From: NewDate(2024, 1, 5), To: NewDate(2024, 1, 5)}, true},
		{DateRange{From: NewDate(2024, 2, 1), To: NewDate(2024, 1, 1)}, false},
		{DateRange{From: Date{}, To: NewDate(2024, 1, 1)}, false},
	}
	for i, tc := range cases {
		err := tc.r.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("case %d expected ErrInvalidRange, got %v", i, err)
		}
	}
}

func TestMonthRange(t *testing.T) {
	r := MonthRange(2024, 2)
	if r.From != NewDate(2024, 2, 1) {
		t.Fatalf("from = %s", r.From)
	}
	if r.To != NewDate(2024, 2, 29) { // leap year
		t.Fatalf("to = %s", r.To)
	}
	if !r.Contains(NewDate(2024, 2, 15)) {
		t.Fatal("expected mid-month day inside range")
	}
	if r.Contains(NewDate(2024, 3, 1)) {
		t.Fatal("expected next month outside range")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-05")
	if err != nil || d != NewDate(2024, 1, 5) {
		t.Fatalf("got %s, err=%v", d, err)
	}
	if _, err := ParseDate("05.01.2024"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestExpenseEntryValidate(t *testing.T) {
	good := ExpenseEntry{
		Amount:   Money{Cents: 4000},
		Category: CategoryFood,
		Note:     "lunch",
		Date:     NewDate(2024, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		e    ExpenseEntry
		want error
	}{
		{ExpenseEntry{Amount: Money{Cents: 0}, Category: CategoryFood, Date: NewDate(2024, 1, 1)}, ErrInvalidAmount},
		{ExpenseEntry{Amount: Money{Cents: -100}, Category: CategoryFood, Date: NewDate(2024, 1, 1)}, ErrInvalidAmount},
		{ExpenseEntry{Amount: Money{Cents: 100}, Category: "Groceries", Date: NewDate(2024, 1, 1)}, ErrUnknownCategory},
		// Non-canonical spelling would escape the fixed report buckets.
		{ExpenseEntry{Amount: Money{Cents: 100}, Category: "food", Date: NewDate(2024, 1, 1)}, ErrUnknownCategory},
		{ExpenseEntry{Amount: Money{Cents: 100}, Category: " Food ", Date: NewDate(2024, 1, 1)}, ErrUnknownCategory},
		{ExpenseEntry{Amount: Money{Cents: 100}, Category: CategoryFood, Date: Date{Time: time.Time{}}}, ErrInvalidDate},
	}
	for i, tc := range bads {
		if err := tc.e.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestLoanEntryValidate(t *testing.T) {
	good := LoanEntry{
		Amount:       Money{Cents: 5000},
		Direction:    Lent,
		Counterparty: "Alice",
		Date:         NewDate(2024, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	blank := good
	blank.Counterparty = "   "
	if err := blank.Validate(); !errors.Is(err, ErrEmptyCounterparty) {
		t.Fatalf("expected ErrEmptyCounterparty, got %v", err)
	}
	bad := good
	bad.Direction = "gifted"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for invalid direction")
	}
}

func TestSettleVerb(t *testing.T) {
	if Lent.SettleVerb() != "received" {
		t.Fatalf("lent settles via received, got %q", Lent.SettleVerb())
	}
	if Borrowed.SettleVerb() != "returned" {
		t.Fatalf("borrowed settles via returned, got %q", Borrowed.SettleVerb())
	}
}
