package bot

import (
	"errors"
	"strconv"
	"strings"

	"ledgerbot/internal/core"
)

// Action is what the user asked the bot to do.
type Action int

const (
	ActionUnknown Action = iota
	ActionStart
	ActionHelp
	ActionIncome
	ActionExpense
	ActionLoan
	ActionSettle
	ActionToday
	ActionMonth
	ActionRange
	ActionCategories
	ActionIncomeSummary
	ActionLoans
	ActionStatement
	ActionDaily
	ActionReset
)

// Command is one parsed chat message.
type Command struct {
	Action Action

	Amount       core.Money
	Source       string
	Category     core.Category
	Note         string
	Counterparty string
	Direction    core.LoanDirection
	LoanID       int64

	Year     int // 0 means current
	Month    int
	Range    core.DateRange
	HasRange bool

	Enabled bool // /daily on|off
	Limit   int  // /statement
}

var (
	errUsageIncome    = errors.New("usage: income <amount> [source]\nexample: income 1500 salary")
	errUsageSpend     = errors.New("usage: spend <amount> <category> [note]\nexample: spend 12.50 Food lunch")
	errUsageLoan      = errors.New("usage: lent <amount> <name> / borrowed <amount> <name>\nexample: lent 50 Alice")
	errUsageSettle    = errors.New("usage: received <id> / returned <id>\nexample: received 3")
	errUsageRange     = errors.New("usage: /range <from> <to> with ISO dates\nexample: /range 2024-01-01 2024-01-31")
	errUsageMonth     = errors.New("usage: /month [YYYY-MM]\nexample: /month 2024-03")
	errUsageDaily     = errors.New("usage: /daily on|off")
	errUsageStatement = errors.New("usage: /statement [count]")
)

// ParseCommand turns a private chat message into a command. Text
// commands carry the write grammar; slash commands the reports and
// settings.
func ParseCommand(text string) (Command, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Command{}, nil
	}

	fields := strings.Fields(text)
	verb := strings.ToLower(fields[0])
	args := fields[1:]

	switch verb {
	case "/start":
		return Command{Action: ActionStart}, nil
	case "/help":
		return Command{Action: ActionHelp}, nil
	case "/today":
		return Command{Action: ActionToday}, nil
	case "/month":
		return parseMonth(args)
	case "/range":
		return parseRange(args)
	case "/categories":
		return parseBreakdown(args, ActionCategories)
	case "/income":
		return parseBreakdown(args, ActionIncomeSummary)
	case "/loans":
		return Command{Action: ActionLoans}, nil
	case "/statement":
		return parseStatement(args)
	case "/daily":
		return parseDaily(args)
	case "/reset":
		return Command{Action: ActionReset}, nil
	case "income":
		return parseIncome(args)
	case "spend":
		return parseSpend(args)
	case "lent":
		return parseLoan(args, core.Lent)
	case "borrowed":
		return parseLoan(args, core.Borrowed)
	case "received":
		return parseSettle(args, core.Lent)
	case "returned":
		return parseSettle(args, core.Borrowed)
	}
	return Command{Action: ActionUnknown}, nil
}

func parseIncome(args []string) (Command, error) {
	if len(args) < 1 {
		return Command{}, errUsageIncome
	}
	amount, err := core.ParseMoney(args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{
		Action: ActionIncome,
		Amount: amount,
		Source: strings.Join(args[1:], " "),
	}, nil
}

func parseSpend(args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, errUsageSpend
	}
	amount, err := core.ParseMoney(args[0])
	if err != nil {
		return Command{}, err
	}
	category, err := core.ParseCategory(args[1])
	if err != nil {
		return Command{}, err
	}
	return Command{
		Action:   ActionExpense,
		Amount:   amount,
		Category: category,
		Note:     strings.Join(args[2:], " "),
	}, nil
}

func parseLoan(args []string, direction core.LoanDirection) (Command, error) {
	if len(args) < 2 {
		return Command{}, errUsageLoan
	}
	amount, err := core.ParseMoney(args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{
		Action:       ActionLoan,
		Amount:       amount,
		Direction:    direction,
		Counterparty: strings.Join(args[1:], " "),
	}, nil
}

func parseSettle(args []string, direction core.LoanDirection) (Command, error) {
	if len(args) != 1 {
		return Command{}, errUsageSettle
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return Command{}, errUsageSettle
	}
	return Command{Action: ActionSettle, Direction: direction, LoanID: id}, nil
}

func parseMonth(args []string) (Command, error) {
	cmd := Command{Action: ActionMonth}
	if len(args) == 0 {
		return cmd, nil
	}
	if len(args) != 1 {
		return Command{}, errUsageMonth
	}
	parts := strings.SplitN(args[0], "-", 2)
	if len(parts) != 2 {
		return Command{}, errUsageMonth
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1 {
		return Command{}, errUsageMonth
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return Command{}, errUsageMonth
	}
	cmd.Year, cmd.Month = year, month
	return cmd, nil
}

func parseRange(args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, errUsageRange
	}
	rng, err := parseDatePair(args[0], args[1])
	if err != nil {
		return Command{}, err
	}
	return Command{Action: ActionRange, Range: rng, HasRange: true}, nil
}

// parseBreakdown handles the report commands that take an optional
// from/to pair and default to the current month.
func parseBreakdown(args []string, action Action) (Command, error) {
	cmd := Command{Action: action}
	if len(args) == 0 {
		return cmd, nil
	}
	if len(args) != 2 {
		return Command{}, errUsageRange
	}
	rng, err := parseDatePair(args[0], args[1])
	if err != nil {
		return Command{}, err
	}
	cmd.Range, cmd.HasRange = rng, true
	return cmd, nil
}

func parseDatePair(fromStr, toStr string) (core.DateRange, error) {
	from, err := core.ParseDate(fromStr)
	if err != nil {
		return core.DateRange{}, err
	}
	to, err := core.ParseDate(toStr)
	if err != nil {
		return core.DateRange{}, err
	}
	rng := core.DateRange{From: from, To: to}
	if err := rng.Validate(); err != nil {
		return core.DateRange{}, err
	}
	return rng, nil
}

func parseStatement(args []string) (Command, error) {
	cmd := Command{Action: ActionStatement}
	if len(args) == 0 {
		return cmd, nil
	}
	if len(args) != 1 {
		return Command{}, errUsageStatement
	}
	limit, err := strconv.Atoi(args[0])
	if err != nil || limit < 1 || limit > 50 {
		return Command{}, errUsageStatement
	}
	cmd.Limit = limit
	return cmd, nil
}

func parseDaily(args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, errUsageDaily
	}
	switch strings.ToLower(args[0]) {
	case "on":
		return Command{Action: ActionDaily, Enabled: true}, nil
	case "off":
		return Command{Action: ActionDaily, Enabled: false}, nil
	}
	return Command{}, errUsageDaily
}
