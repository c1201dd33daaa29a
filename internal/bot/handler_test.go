package bot

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestConsumeReturnsWhenUpdatesChannelCloses(t *testing.T) {
	h := &Handler{}
	updates := make(chan tgbotapi.Update)
	close(updates)

	done := make(chan error, 1)
	go func() { done <- h.consume(context.Background(), updates) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error for a closed updates channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consume kept running after the updates channel closed")
	}
}
