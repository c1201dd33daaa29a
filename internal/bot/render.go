package bot

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"ledgerbot/internal/core"
)

const divider = "━━━━━━━━━━━━━━━━━"

// renderPeriodSummary formats the income/expense/net overview for a
// day, month or arbitrary range.
func renderPeriodSummary(title string, s core.PeriodSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%s*\n", title)
	fmt.Fprintf(&b, "📅 %s\n\n", renderRange(s.Range))
	fmt.Fprintf(&b, "💰 Income: %s (%d entries)\n", s.TotalIncome, s.IncomeCount)
	fmt.Fprintf(&b, "💸 Expenses: %s (%d entries)\n", s.TotalExpense, s.ExpenseCount)
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "💵 Net Balance: %s", s.NetBalance())
	return b.String()
}

func renderRange(r core.DateRange) string {
	if r.From == r.To {
		return r.From.String()
	}
	return fmt.Sprintf("%s — %s", r.From, r.To)
}

// renderCategoryBreakdown lists every category, spent or not, in the
// fixed report order.
func renderCategoryBreakdown(rng core.DateRange, byCategory map[core.Category]core.Money) string {
	var b strings.Builder
	b.WriteString("📊 *Spending by Category*\n")
	fmt.Fprintf(&b, "📅 %s\n\n", renderRange(rng))

	var total core.Money
	for _, c := range core.Categories() {
		amount := byCategory[c]
		total = total.Add(amount)
		fmt.Fprintf(&b, "• %s: %s\n", c, amount)
	}
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "💸 Total: %s", total)
	return b.String()
}

// renderIncomeSummary lists income grouped by source label. Sources
// are free text, so only labels with entries appear.
func renderIncomeSummary(rng core.DateRange, bySource map[string]core.Money) string {
	var b strings.Builder
	b.WriteString("📊 *Income by Source*\n")
	fmt.Fprintf(&b, "📅 %s\n\n", renderRange(rng))

	if len(bySource) == 0 {
		b.WriteString("No income recorded.")
		return b.String()
	}

	sources := make([]string, 0, len(bySource))
	for source := range bySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	var total core.Money
	for _, source := range sources {
		amount := bySource[source]
		total = total.Add(amount)
		fmt.Fprintf(&b, "• %s: %s\n", source, amount)
	}
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "💰 Total: %s", total)
	return b.String()
}

func renderLoanStatement(stmt core.LoanStatement) string {
	if len(stmt.Counterparties) == 0 {
		return "🤝 *Loans*\n\nNo loans recorded."
	}

	var b strings.Builder
	b.WriteString("🤝 *Loans*\n\n")
	for _, cs := range stmt.Counterparties {
		fmt.Fprintf(&b, "*%s*\n", cs.Counterparty)
		if cs.LentPending.Cents != 0 {
			fmt.Fprintf(&b, "  owes you %s\n", cs.LentPending)
		}
		if cs.BorrowedPending.Cents != 0 {
			fmt.Fprintf(&b, "  you owe %s\n", cs.BorrowedPending)
		}
		if cs.LentSettled.Cents != 0 || cs.BorrowedSettled.Cents != 0 {
			fmt.Fprintf(&b, "  settled: lent %s, borrowed %s\n", cs.LentSettled, cs.BorrowedSettled)
		}
	}
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "📤 Owed to you: %s\n", stmt.Totals.LentPending)
	fmt.Fprintf(&b, "📥 You owe: %s", stmt.Totals.BorrowedPending)
	return b.String()
}

// renderStatement formats the mini statement, newest first.
func renderStatement(lines []core.LedgerLine) string {
	if len(lines) == 0 {
		return "📄 *Mini Statement*\n\nNo transactions recorded."
	}

	var b strings.Builder
	b.WriteString("📄 *Mini Statement*\n\n")
	for _, l := range lines {
		switch l.Kind {
		case core.KindIncome:
			fmt.Fprintf(&b, "💰 +%s %s (%s)\n", l.Amount, l.Label, l.Date)
		case core.KindExpense:
			if l.Note != "" {
				fmt.Fprintf(&b, "💸 -%s %s: %s (%s)\n", l.Amount, l.Label, l.Note, l.Date)
			} else {
				fmt.Fprintf(&b, "💸 -%s %s (%s)\n", l.Amount, l.Label, l.Date)
			}
		case core.KindLoan:
			fmt.Fprintf(&b, "🤝 %s #%d %s (%s)\n", l.Amount, l.ID, l.Label, l.Date)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderLoanRecorded(e core.LoanEntry) string {
	who := "you owe " + e.Counterparty
	if e.Direction == core.Lent {
		who = e.Counterparty + " owes you"
	}
	return fmt.Sprintf("✅ *Loan Recorded*\n\n🤝 #%d: %s %s\n📅 Date: %s\nSettle it with `%s %d`",
		e.ID, who, e.Amount, e.Date, e.Direction.SettleVerb(), e.ID)
}

const helpText = `📖 *Help - How to Use*

*📝 Record:*
• ` + "`income <amount> [source]`" + ` — e.g. ` + "`income 1500 salary`" + `
• ` + "`spend <amount> <category> [note]`" + ` — e.g. ` + "`spend 12.50 Food lunch`" + `
• ` + "`lent <amount> <name>`" + ` / ` + "`borrowed <amount> <name>`" + `
• ` + "`received <id>`" + ` / ` + "`returned <id>`" + ` — settle a loan

*📊 Reports:*
• /today — today's summary
• /month — this month (or ` + "`/month 2024-03`" + `)
• /range <from> <to> — custom period, ISO dates
• /categories — spending by category
• /income — income by source
• /loans — who owes whom
• /statement — last transactions

*⚙️ Settings:*
• /daily on|off — evening summary push
• /reset — erase all your entries

Categories: Food, Transport, Bills, Shopping, Health, Entertainment, Education, Other.`

const welcomeText = `👋 *Welcome!*

I keep your personal ledger: income, expenses, and loans with friends.

Try:
• ` + "`income 1500 salary`" + `
• ` + "`spend 12.50 Food lunch`" + `
• ` + "`lent 50 Alice`" + `

Type /help for everything I can do.`

// userMessage maps domain errors to chat-friendly text. Unknown
// failures get a generic line so internals never leak into chat.
func userMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrInvalidAmount):
		return "❌ *Invalid Amount*\n\nPlease enter a positive number, e.g. `12.50`."
	case errors.Is(err, core.ErrUnknownCategory):
		return "❌ *Unknown Category*\n\nUse one of: Food, Transport, Bills, Shopping, Health, Entertainment, Education, Other."
	case errors.Is(err, core.ErrEmptyCounterparty):
		return "❌ Please tell me who the loan is with, e.g. `lent 50 Alice`."
	case errors.Is(err, core.ErrNotFound):
		return "❌ I couldn't find that record."
	case errors.Is(err, core.ErrAlreadySettled):
		return "❌ That loan is already settled."
	case errors.Is(err, core.ErrInvalidDate):
		return "❌ *Invalid Date*\n\nUse ISO format, e.g. `2024-03-15`."
	case errors.Is(err, core.ErrInvalidRange):
		return "❌ *Invalid Range*\n\nThe start date must not be after the end date."
	case errors.Is(err, core.ErrStorageUnavailable):
		return "❌ Storage is temporarily unavailable. Please try again."
	default:
		return "❌ An error occurred. Please try again."
	}
}
