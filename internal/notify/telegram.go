package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// telegramBot is the subset of *tele.Bot used for delivery.
type telegramBot interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramSender posts reminders to a Telegram chat id.
type TelegramSender struct {
	bot telegramBot
}

// NewTelegramSender creates a bot client without contacting Telegram; the token is
// verified on the first send.
func NewTelegramSender(token string) (*TelegramSender, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{Token: token, Offline: true})
	if err != nil {
		return nil, err
	}
	return &TelegramSender{bot: b}, nil
}

func (s *TelegramSender) Send(ctx context.Context, address, text string) error {
	chatID, err := strconv.ParseInt(address, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", address, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = s.bot.Send(&tele.Chat{ID: chatID}, text, &tele.SendOptions{DisableWebPagePreview: true})
	return err
}
