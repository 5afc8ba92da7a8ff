// Package notify pushes operational notifications to the studio staff.
package notify

import (
	"fmt"

	"keramika/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramNotifier sends staff alerts (new bookings, recorded overrides) to
// the configured manager chats.
type TelegramNotifier struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64
	logger  *zerolog.Logger
}

func NewTelegramNotifier(cfg config.NotifyConfig, logger *zerolog.Logger) (*TelegramNotifier, error) {
	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatIDs: cfg.ManagerChatIDs, logger: logger}, nil
}

// NotifyManagers sends the text to every manager chat. A failed send to one
// chat is logged and does not stop delivery to the others.
func (n *TelegramNotifier) NotifyManagers(text string) error {
	var lastErr error
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("manager notification failed")
			lastErr = err
		}
	}
	return lastErr
}
