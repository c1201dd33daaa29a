package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryBills         Category = "Bills"
	CategoryShopping      Category = "Shopping"
	CategoryHealth        Category = "Health"
	CategoryEntertainment Category = "Entertainment"
	CategoryEducation     Category = "Education"
	CategoryOther         Category = "Other"
)

const (
	Borrowed LoanDirection = "borrowed"
	Lent     LoanDirection = "lent"
)

const (
	LoanPending LoanStatus = "pending"
	LoanSettled LoanStatus = "settled"
)

const (
	KindIncome  EntryKind = "income"
	KindExpense EntryKind = "expense"
	KindLoan    EntryKind = "loan"
)

// Well-known income source labels. Source stays free text; these are
// the labels the bot suggests.
const (
	SourceSalary    = "salary"
	SourceFreelance = "freelance"
	SourceBusiness  = "business"
	SourceOther     = "other"
)

type (
	Category      string
	LoanDirection string
	LoanStatus    string
	EntryKind     string

	// Date is a day-granularity timestamp, normalized to UTC midnight.
	Date struct {
		time.Time
	}

	// DateRange is an inclusive [From, To] day interval.
	DateRange struct {
		From Date
		To   Date
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID         int64
		TelegramID int64
		CreatedAt  time.Time
	}

	// Settings is the per-user configuration record. Created with
	// defaults on first contact, updated in place, survives ResetAll.
	Settings struct {
		UserID             int64
		DailyReportEnabled bool
	}

	IncomeEntry struct {
		ID        int64
		UserID    int64
		Amount    Money
		Source    string
		Date      Date
		CreatedAt time.Time
	}

	ExpenseEntry struct {
		ID        int64
		UserID    int64
		Amount    Money
		Category  Category
		Note      string
		Date      Date
		CreatedAt time.Time
	}

	// LoanEntry transitions pending -> settled exactly once; settled is
	// terminal. SettledDate is set iff Status == LoanSettled.
	LoanEntry struct {
		ID           int64
		UserID       int64
		Amount       Money
		Direction    LoanDirection
		Counterparty string
		Status       LoanStatus
		Date         Date
		SettledDate  Date
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrEmptyCounterparty  = errors.New("empty counterparty")
	ErrNotFound           = errors.New("not found")
	ErrAlreadySettled     = errors.New("loan already settled")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidRange       = errors.New("invalid date range")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Categories returns the closed category set in report order.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTransport,
		CategoryBills,
		CategoryShopping,
		CategoryHealth,
		CategoryEntertainment,
		CategoryEducation,
		CategoryOther,
	}
}

// Valid reports whether c is one of the canonical category spellings.
// Case-insensitive input goes through ParseCategory; stored entries
// carry the canonical spelling only.
func (c Category) Valid() bool {
	for _, k := range Categories() {
		if c == k {
			return true
		}
	}
	return false
}

// ParseCategory matches case-insensitively against the fixed set.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}

func (d LoanDirection) Valid() bool {
	return d == Borrowed || d == Lent
}

// SettleVerb is the chat action that settles a loan of this direction:
// money lent out is settled when it is received back, money borrowed
// when it is returned.
func (d LoanDirection) SettleVerb() string {
	if d == Lent {
		return "received"
	}
	return "returned"
}

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its UTC day.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO "2006-01-02" day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// MonthRange returns the inclusive range covering a calendar month.
func MonthRange(year, month int) DateRange {
	from := NewDate(year, month, 1)
	to := Date{Time: from.AddDate(0, 1, -1)}
	return DateRange{From: from, To: to}
}

// DayRange returns the single-day range for d.
func (d Date) DayRange() DateRange {
	return DateRange{From: d, To: d}
}

func (r DateRange) Validate() error {
	if err := r.From.Validate(); err != nil {
		return ErrInvalidRange
	}
	if err := r.To.Validate(); err != nil {
		return ErrInvalidRange
	}
	if r.From.After(r.To.Time) {
		return ErrInvalidRange
	}
	return nil
}

// Contains reports whether day falls within the inclusive range.
func (r DateRange) Contains(day Date) bool {
	return !day.Before(r.From.Time) && !day.After(r.To.Time)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e IncomeEntry) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return e.Date.Validate()
}

func (e ExpenseEntry) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return ErrUnknownCategory
	}
	return e.Date.Validate()
}

func (e LoanEntry) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Direction.Valid() {
		return errors.New("invalid loan direction")
	}
	if strings.TrimSpace(e.Counterparty) == "" {
		return ErrEmptyCounterparty
	}
	return e.Date.Validate()
}
