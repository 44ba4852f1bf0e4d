// Package notify pushes short messages to couriers over Telegram.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of the bot API the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	bot    Sender
	logger *zap.Logger
}

// NewTelegram logs in with the bot token. An empty token yields a notifier
// that only logs.
func NewTelegram(token string, logger *zap.Logger) (*Telegram, error) {
	if token == "" {
		logger.Info("Telegram token not configured, courier notifications are logged only")
		return &Telegram{logger: logger}, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	logger.Info("Telegram bot authorized", zap.String("bot", api.Self.UserName))
	return &Telegram{bot: api, logger: logger}, nil
}

func NewTelegramWithSender(bot Sender, logger *zap.Logger) *Telegram {
	return &Telegram{bot: bot, logger: logger}
}

func (t *Telegram) NotifyCourier(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.bot == nil {
		t.logger.Debug("courier notification", zap.Int64("chat_id", chatID), zap.String("text", text))
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message to %d: %w", chatID, err)
	}
	return nil
}
