// Package bot implements the chat command surface. Every command calls
// into the scheduler's public operations, scoped to the caller's chat.
package bot

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"feedwatch/internal/config"
	"feedwatch/internal/fetcher"
	"feedwatch/internal/model"
	"feedwatch/internal/scheduler"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Scheduler is the subscription control surface the bot drives.
type Scheduler interface {
	ListByChat(ctx context.Context, chatID int64) ([]model.Subscription, error)
	Get(ctx context.Context, id int64) (*model.Subscription, error)
	Add(ctx context.Context, sub *model.Subscription) error
	Update(ctx context.Context, id int64, p scheduler.Patch) (*model.Subscription, error)
	Delete(ctx context.Context, id int64) (bool, error)
	RefreshOne(ctx context.Context, id int64) (*scheduler.TickResult, error)
	RefreshAll(ctx context.Context) error
	History(ctx context.Context, limit int) ([]model.HistoryRecord, error)
}

// Bot handles user commands arriving over the chat session.
type Bot struct {
	api     telegramAPI
	sched   Scheduler
	cfg     *config.Config
	fetcher *fetcher.Fetcher
	log     *slog.Logger
}

// New creates a Bot on top of an established chat session.
func New(api *tgbotapi.BotAPI, sched Scheduler, cfg *config.Config, log *slog.Logger) *Bot {
	return &Bot{
		api:     api,
		sched:   sched,
		cfg:     cfg,
		fetcher: fetcher.New(http.DefaultClient),
		log:     log,
	}
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send reply", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "add":
		b.handleAdd(ctx, chatID, args)
	case "list":
		b.handleList(ctx, chatID)
	case "info":
		b.handleInfo(ctx, chatID, args)
	case "remove":
		b.handleRemove(ctx, chatID, args)
	case "rename":
		b.handleRename(ctx, chatID, args)
	case "interval":
		b.handleInterval(ctx, chatID, args)
	case "pause":
		b.handleSetEnabled(ctx, chatID, args, false)
	case "resume":
		b.handleSetEnabled(ctx, chatID, args, true)
	case cmdCheck:
		b.handleCheck(ctx, chatID, args)
	case "checkall":
		b.handleCheckAll(ctx, chatID)
	case "include":
		b.handleAddTerm(ctx, chatID, args, model.KeywordWhitelist)
	case "exclude":
		b.handleAddTerm(ctx, chatID, args, model.KeywordBlacklist)
	case "rmword":
		b.handleRemoveTerm(ctx, chatID, args)
	case cmdWords:
		b.handleWords(ctx, chatID, args)
	case "override":
		b.handleOverride(ctx, chatID, args)
	case "override_off":
		b.handleOverrideOff(ctx, chatID, args)
	case "history":
		b.handleHistory(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

// ownedSubscription resolves an id argument to a subscription owned by the
// calling chat. Subscriptions belonging to other chats are reported as
// not found rather than denied, so ids are not probeable.
func (b *Bot) ownedSubscription(ctx context.Context, chatID, id int64) (*model.Subscription, bool) {
	sub, err := b.sched.Get(ctx, id)
	if err != nil || sub.ChatID != chatID {
		return nil, false
	}
	return sub, true
}
