package relay

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramTransport delivers ticket alerts to a Telegram chat. It is wired
// as an alternative channel behind the webhook and direct transports.
type TelegramTransport struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramTransport authenticates against the Bot API. An invalid token
// fails here so the chain is assembled only with working transports.
func NewTelegramTransport(token string, chatID int64) (*TelegramTransport, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &TelegramTransport{bot: bot, chatID: chatID}, nil
}

func (t *TelegramTransport) Name() string { return "telegram" }

func (t *TelegramTransport) Send(ctx context.Context, payload Payload) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", payload.Subject)
	fmt.Fprintf(&b, "🎫 %s — %s\n", payload.TicketCode, payload.Title)
	fmt.Fprintf(&b, "👤 %s\n", payload.Creator)
	fmt.Fprintf(&b, "⚡ Prioridad: %s\n", payload.Priority)
	if payload.Body != "" {
		fmt.Fprintf(&b, "\n%s\n", payload.Body)
	}
	fmt.Fprintf(&b, "\n%s", payload.TicketURL)

	msg := tgbotapi.NewMessage(t.chatID, b.String())
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
