package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts alert batches to a single chat.
type TelegramNotifier struct {
	bot    Sender
	chatID int64
}

// NewTelegramNotifier authenticates against the Bot API with token.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return NewTelegramNotifierWithSender(bot, chatID), nil
}

func NewTelegramNotifierWithSender(bot Sender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

// Notify sends the batch as one message. Empty batches are skipped.
func (n *TelegramNotifier) Notify(ctx context.Context, batch AlertBatch) error {
	if len(batch.Alerts) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, batch.Text())
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
