package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ledgerbot/internal/core"
)

// Sender pushes messages without running the update loop. The worker
// binary uses it for the daily report broadcast.
type Sender struct {
	api *tgbotapi.BotAPI
}

func NewSender(api *tgbotapi.BotAPI) *Sender {
	return &Sender{api: api}
}

// PushDailyReport sends the rendered daily summary to a chat.
func (s *Sender) PushDailyReport(_ context.Context, telegramID int64, summary core.PeriodSummary) error {
	msg := tgbotapi.NewMessage(telegramID, renderPeriodSummary("Daily Report", summary))
	msg.ParseMode = "Markdown"
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("send daily report to %d: %w", telegramID, err)
	}
	return nil
}
