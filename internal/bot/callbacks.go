package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"feedwatch/internal/model"
)

const (
	cmdCheck = "check"
	cmdWords = "words"
)

func (b *Bot) sendDeleteConfirmation(chatID int64, sub *model.Subscription) {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Delete #%d %q? This cannot be undone.", sub.ID, sub.Title))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, delete", fmt.Sprintf("delete:%d", sub.ID)),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "noop:0"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send delete confirmation", "error", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Request(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 {
		return
	}

	action := parts[0]
	idStr := parts[1]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return
	}

	b.log.Info("callback",
		"action", action,
		"id", id,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case cmdCheck:
		b.handleCheck(ctx, chatID, idStr)
	case cmdWords:
		b.handleWords(ctx, chatID, idStr)
	case "delete":
		if _, ok := b.ownedSubscription(ctx, chatID, id); !ok {
			b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
			return
		}
		existed, err := b.sched.Delete(ctx, id)
		if err != nil || !existed {
			b.reply(chatID, fmt.Sprintf("Failed to delete #%d.", id))
			return
		}
		b.reply(chatID, fmt.Sprintf("Subscription #%d deleted.", id))
	}
}
