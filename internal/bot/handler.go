// Package bot is the Telegram chat surface: long-polling update loop,
// the text command grammar and Markdown report rendering.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/report"
)

type Handler struct {
	api     *tgbotapi.BotAPI
	ledger  *ledger.Service
	reports *report.Generator
}

func NewHandler(api *tgbotapi.BotAPI, ledger *ledger.Service, reports *report.Generator) *Handler {
	return &Handler{api: api, ledger: ledger, reports: reports}
}

// Run consumes updates until the context is cancelled.
func (h *Handler) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := h.api.GetUpdatesChan(u)

	slog.InfoContext(ctx, "Bot started", "username", h.api.Self.UserName)

	return h.consume(ctx, updates)
}

func (h *Handler) consume(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	for {
		select {
		case <-ctx.Done():
			h.api.StopReceivingUpdates()
			return ctx.Err()
		case upd, ok := <-updates:
			// A closed channel means the API stopped delivering;
			// spinning on zero-value updates helps nobody.
			if !ok {
				return errors.New("updates channel closed")
			}
			h.HandleUpdate(ctx, upd)
		}
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
		return
	}

	msg := upd.Message
	if msg == nil || msg.From == nil {
		return
	}
	// Private chats only; a shared ledger in a group makes no sense.
	if !msg.Chat.IsPrivate() {
		return
	}

	user, err := h.ledger.RegisterUser(ctx, msg.From.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to register user", "telegram_id", msg.From.ID, "error", err)
		h.reply(msg.Chat.ID, userMessage(err))
		return
	}

	cmd, err := ParseCommand(msg.Text)
	if err != nil {
		h.reply(msg.Chat.ID, parseErrorMessage(err))
		return
	}

	h.dispatch(ctx, msg.Chat.ID, user, cmd)
}

func (h *Handler) dispatch(ctx context.Context, chatID int64, user core.User, cmd Command) {
	today := core.DateOf(time.Now())

	switch cmd.Action {
	case ActionStart:
		h.reply(chatID, welcomeText)
	case ActionHelp:
		h.reply(chatID, helpText)

	case ActionIncome:
		entry, err := h.ledger.RecordIncome(ctx, user.ID, cmd.Amount, cmd.Source, today)
		if err != nil {
			h.reply(chatID, userMessage(err))
			return
		}
		h.reply(chatID, fmt.Sprintf("✅ *Income Recorded*\n\n💰 Amount: %s\n🏷 Source: %s\n📅 Date: %s",
			entry.Amount, entry.Source, entry.Date))

	case ActionExpense:
		entry, err := h.ledger.RecordExpense(ctx, user.ID, cmd.Amount, cmd.Category, cmd.Note, today)
		if err != nil {
			h.reply(chatID, userMessage(err))
			return
		}
		note := entry.Note
		if note == "" {
			note = "No note"
		}
		h.reply(chatID, fmt.Sprintf("✅ *Expense Recorded*\n\n💸 Amount: %s\n🏷 Category: %s\n📝 Note: %s\n📅 Date: %s",
			entry.Amount, entry.Category, note, entry.Date))

	case ActionLoan:
		entry, err := h.ledger.RecordLoan(ctx, user.ID, cmd.Direction, cmd.Counterparty, cmd.Amount, today)
		if err != nil {
			h.reply(chatID, userMessage(err))
			return
		}
		h.reply(chatID, renderLoanRecorded(entry))

	case ActionSettle:
		h.handleSettle(ctx, chatID, user, cmd, today)

	case ActionToday:
		summary, err := h.reports.Daily(ctx, user.ID, today)
		if err != nil {
			h.reply(chatID, userMessage(err))
			return
		}
		h.reply(chatID, renderPeriodSummary("Today's Report", summary))

	case ActionMonth:
		year, month := cmd.Year, cmd.Month
		if year == 0 {
			now := time.Now().UTC()
			year, month = now.Year(), int(now.Month())
		}
		summary, err := h.reports.Monthly(ctx, user.ID, year, month)
		if err != nil {
			h.reply(chatID, userMessage(err))
			return
		}
		h.reply(chatID, renderPeriodSummary("Monthly Report", summary))

	case ActionRange:
		summary, err := h.reports.Range(ctx, user.ID, cmd.Range)
		if err != nil {
			h.reply(chatID, userMessage(err))
			return
		}
		h.reply(chatID, renderPeriodSummary("Period Report", summary))

	case ActionCategories:
		rng := cmd.Range
		if !cmd.HasRange {
			now := time.Now().UTC()
			rng = core.MonthRange(now.Year(), int(now.Month()))
		}
		byCategory, err := h.reports.CategoryBreakdown(ctx, user.ID, rng)
		if err != nil {
			h.reply(chatID, userMessage(err))
			return
		}
		h.reply(chatID, renderCategoryBreakdown(rng, byCategory))

	case ActionIncomeSummary:
		rng := cmd.Range
		if !cmd.HasRange {
			now := time.Now().UTC()
			rng = core.MonthRange(now.Year(), int(now.Month()))
		}
		bySource, err := h.reports.IncomeBySource(ctx, user.ID, rng)
		if err != nil {
			h.reply(chatID, userMessage(err))
			return
		}
		h.reply(chatID, renderIncomeSummary(rng, bySource))

	case ActionLoans:
		stmt, err := h.reports.LoanStatement(ctx, user.ID)
		if err != nil {
			h.reply(chatID, userMessage(err))
			return
		}
		h.reply(chatID, renderLoanStatement(stmt))

	case ActionStatement:
		lines, err := h.ledger.MiniStatement(ctx, user.ID, cmd.Limit)
		if err != nil {
			h.reply(chatID, userMessage(err))
			return
		}
		h.reply(chatID, renderStatement(lines))

	case ActionDaily:
		if err := h.ledger.SetDailyReportEnabled(ctx, user.ID, cmd.Enabled); err != nil {
			h.reply(chatID, userMessage(err))
			return
		}
		if cmd.Enabled {
			h.reply(chatID, "🔔 Daily report enabled. I'll send your summary every evening.")
		} else {
			h.reply(chatID, "🔕 Daily report disabled.")
		}

	case ActionReset:
		h.sendResetConfirm(chatID)

	default:
		h.reply(chatID, "❌ Unknown command.\n\nType /help to see what I understand.")
	}
}

// handleSettle checks the verb matches the loan direction before
// settling: `received` closes money lent out, `returned` money
// borrowed.
func (h *Handler) handleSettle(ctx context.Context, chatID int64, user core.User, cmd Command, today core.Date) {
	loan, err := h.ledger.Loan(ctx, user.ID, cmd.LoanID)
	if err != nil {
		h.reply(chatID, userMessage(err))
		return
	}
	if loan.Direction != cmd.Direction {
		h.reply(chatID, fmt.Sprintf("❌ Loan #%d is %s; settle it with `%s %d`.",
			loan.ID, loan.Direction, loan.Direction.SettleVerb(), loan.ID))
		return
	}

	settled, err := h.ledger.Settle(ctx, user.ID, cmd.LoanID, today)
	if err != nil {
		h.reply(chatID, userMessage(err))
		return
	}
	h.reply(chatID, fmt.Sprintf("✅ *Loan Settled*\n\n🤝 #%d %s %s\n📅 Settled: %s",
		settled.ID, settled.Counterparty, settled.Amount, settled.SettledDate))
}

const (
	callbackResetConfirm = "reset_confirm"
	callbackResetCancel  = "reset_cancel"
)

func (h *Handler) sendResetConfirm(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ *Reset All Data*\n\nThis erases every income, expense and loan you recorded. Settings are kept.\n\nAre you sure?")
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🗑 Yes, erase everything", callbackResetConfirm),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", callbackResetCancel),
		},
	)
	if _, err := h.api.Send(msg); err != nil {
		slog.Error("Failed to send reset confirmation", "chat_id", chatID, "error", err)
	}
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	defer h.api.Request(tgbotapi.NewCallback(q.ID, ""))

	if q.Message == nil || q.From == nil {
		return
	}
	chatID := q.Message.Chat.ID

	switch q.Data {
	case callbackResetConfirm:
		user, err := h.ledger.RegisterUser(ctx, q.From.ID)
		if err != nil {
			h.reply(chatID, userMessage(err))
			return
		}
		if err := h.ledger.ResetAll(ctx, user.ID); err != nil {
			h.reply(chatID, userMessage(err))
			return
		}
		h.edit(chatID, q.Message.MessageID, "🗑 All your entries were erased. Fresh start!")
	case callbackResetCancel:
		h.edit(chatID, q.Message.MessageID, "👍 Nothing was deleted.")
	}
}

func (h *Handler) reply(chatID int64, text string) {
	if text == "" {
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := h.api.Send(msg); err != nil {
		slog.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (h *Handler) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := h.api.Send(edit); err != nil {
		slog.Error("Failed to edit message", "chat_id", chatID, "error", err)
	}
}

// parseErrorMessage prefers the grammar's usage hints; domain errors
// fall back to the standard wording.
func parseErrorMessage(err error) string {
	for _, de := range []error{
		core.ErrInvalidAmount,
		core.ErrUnknownCategory,
		core.ErrInvalidDate,
		core.ErrInvalidRange,
	} {
		if errors.Is(err, de) {
			return userMessage(err)
		}
	}
	return err.Error()
}
