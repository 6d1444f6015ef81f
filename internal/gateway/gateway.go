// Package gateway wraps the outbound messaging client used to deliver
// notifications to a chat.
package gateway

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SendOptions controls message rendering on the chat side.
type SendOptions struct {
	DisablePreview bool
}

// Gateway is an outbound messaging client bound to one credential.
type Gateway interface {
	Identity() string
	Send(chatID int64, text string, opts SendOptions) error
}

// Factory constructs a Gateway from a bot token. Construction performs the
// credential handshake; an invalid token is reported as an error.
type Factory func(token string) (Gateway, error)

// Telegram implements Gateway using the Telegram Bot API.
type Telegram struct {
	api *tgbotapi.BotAPI
}

// NewTelegram creates a Telegram gateway. The underlying client validates
// the token against the getMe endpoint during construction.
func NewTelegram(token string) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{api: api}, nil
}

// API exposes the underlying client for the update-polling loop.
func (t *Telegram) API() *tgbotapi.BotAPI {
	return t.api
}

// Identity returns the bot username the credential resolved to.
func (t *Telegram) Identity() string {
	return t.api.Self.UserName
}

// Send delivers a text message to the given chat.
func (t *Telegram) Send(chatID int64, text string, opts SendOptions) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = opts.DisablePreview
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
