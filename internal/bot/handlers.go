package bot

import (
	"context"
	"fmt"

	"feedwatch/internal/model"
	"feedwatch/internal/scheduler"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Feedwatch!

Subscribe to feeds and get filtered notifications.

Quick start:
1. /add <url> — subscribe to a feed
2. /include <id> <word> — whitelist a keyword
3. /exclude <id> <word> — blacklist a keyword

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Subscriptions:
/add <url> [minutes] — subscribe to a feed
/list — show all subscriptions
/info <id> — subscription details
/remove <id> — delete a subscription
/rename <id> <name> — rename a subscription
/interval <id> <min> — set polling interval (1-1440)
/pause <id> — stop polling
/resume <id> — resume polling
/check <id> — poll now
/checkall — poll every enabled subscription now

Keywords:
/words <id> — show keyword lists
/include <id> <word> — add a whitelist term
/exclude <id> <word> — add a blacklist term
/rmword <id> <word> — remove a term from both lists

Delivery:
/override <id> <token> <chat_id> — deliver through another bot
/override_off <id> — back to the default bot
/history — recent deliveries`)
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) {
	url, interval, err := ParseAddArgs(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Usage: /add <url> [minutes]\n%v", err))
		return
	}

	feed, err := b.fetcher.Fetch(ctx, url)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to fetch feed: %v", err))
		return
	}

	title := feed.Title
	if title == "" {
		title = url
	}

	sub := &model.Subscription{
		ChatID:          chatID,
		Title:           title,
		URL:             url,
		IntervalMinutes: interval,
		Enabled:         true,
	}
	if err := b.sched.Add(ctx, sub); err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to add subscription: %v", err))
		return
	}

	b.reply(chatID, fmt.Sprintf("Subscribed!\n#%d %s (every %d min)\nURL: %s\nUse /include and /exclude to filter by keywords.",
		sub.ID, sub.Title, sub.IntervalMinutes, sub.URL))
}

func (b *Bot) handleList(ctx context.Context, chatID int64) {
	subs, err := b.sched.ListByChat(ctx, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatSubscriptionList(subs))
}

func (b *Bot) handleInfo(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /info <id>")
		return
	}
	sub, ok := b.ownedSubscription(ctx, chatID, id)
	if !ok {
		b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
		return
	}
	b.reply(chatID, FormatSubscriptionInfo(sub))
}

func (b *Bot) handleRemove(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /remove <id>")
		return
	}
	sub, ok := b.ownedSubscription(ctx, chatID, id)
	if !ok {
		b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
		return
	}
	b.sendDeleteConfirmation(chatID, sub)
}

func (b *Bot) handleRename(ctx context.Context, chatID int64, args string) {
	id, name, err := ParseRenameArgs(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("%v", err))
		return
	}
	if _, ok := b.ownedSubscription(ctx, chatID, id); !ok {
		b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
		return
	}
	if _, err := b.sched.Update(ctx, id, scheduler.Patch{Title: &name}); err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to rename: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Renamed #%d to %q.", id, name))
}

func (b *Bot) handleInterval(ctx context.Context, chatID int64, args string) {
	id, mins, err := ParseIntervalArgs(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("%v", err))
		return
	}
	if _, ok := b.ownedSubscription(ctx, chatID, id); !ok {
		b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
		return
	}
	if _, err := b.sched.Update(ctx, id, scheduler.Patch{IntervalMinutes: &mins}); err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to set interval: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Subscription #%d now checks every %d min.", id, mins))
}

func (b *Bot) handleSetEnabled(ctx context.Context, chatID int64, args string, enabled bool) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /pause <id> or /resume <id>")
		return
	}
	if _, ok := b.ownedSubscription(ctx, chatID, id); !ok {
		b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
		return
	}
	if _, err := b.sched.Update(ctx, id, scheduler.Patch{Enabled: &enabled}); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if enabled {
		b.reply(chatID, fmt.Sprintf("Subscription #%d resumed.", id))
	} else {
		b.reply(chatID, fmt.Sprintf("Subscription #%d paused.", id))
	}
}

func (b *Bot) handleCheck(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /check <id>")
		return
	}
	if _, ok := b.ownedSubscription(ctx, chatID, id); !ok {
		b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
		return
	}
	res, err := b.sched.RefreshOne(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Check failed: %v", err))
		return
	}
	b.reply(chatID, FormatTickResult(res))
}

func (b *Bot) handleCheckAll(ctx context.Context, chatID int64) {
	if err := b.sched.RefreshAll(ctx); err != nil {
		b.reply(chatID, fmt.Sprintf("Check failed: %v", err))
		return
	}
	b.reply(chatID, "All enabled subscriptions checked.")
}

func (b *Bot) handleAddTerm(ctx context.Context, chatID int64, args string, kind model.KeywordKind) {
	id, term, err := ParseTermArgs(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Usage: /%s <id> <word>", commandForKind(kind)))
		return
	}
	sub, ok := b.ownedSubscription(ctx, chatID, id)
	if !ok {
		b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
		return
	}

	var patch scheduler.Patch
	switch kind {
	case model.KeywordWhitelist:
		list := appendTerm(sub.Whitelist, term)
		patch.Whitelist = &list
	case model.KeywordBlacklist:
		list := appendTerm(sub.Blacklist, term)
		patch.Blacklist = &list
	}
	if _, err := b.sched.Update(ctx, id, patch); err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to add term: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Added %q to the %s of #%d.", term, kind, id))
}

func (b *Bot) handleRemoveTerm(ctx context.Context, chatID int64, args string) {
	id, term, err := ParseTermArgs(args)
	if err != nil {
		b.reply(chatID, "Usage: /rmword <id> <word>")
		return
	}
	sub, ok := b.ownedSubscription(ctx, chatID, id)
	if !ok {
		b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
		return
	}

	wl, removedWl := removeTerm(sub.Whitelist, term)
	bl, removedBl := removeTerm(sub.Blacklist, term)
	if !removedWl && !removedBl {
		b.reply(chatID, fmt.Sprintf("Term %q is not set on #%d.", term, id))
		return
	}
	if _, err := b.sched.Update(ctx, id, scheduler.Patch{Whitelist: &wl, Blacklist: &bl}); err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to remove term: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Removed %q from #%d.", term, id))
}

func (b *Bot) handleWords(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /words <id>")
		return
	}
	sub, ok := b.ownedSubscription(ctx, chatID, id)
	if !ok {
		b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
		return
	}
	b.reply(chatID, FormatKeywordList(sub))
}

func (b *Bot) handleOverride(ctx context.Context, chatID int64, args string) {
	id, token, overrideChat, err := ParseOverrideArgs(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("%v", err))
		return
	}
	if _, ok := b.ownedSubscription(ctx, chatID, id); !ok {
		b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
		return
	}
	enabled := true
	_, err = b.sched.Update(ctx, id, scheduler.Patch{
		OverrideToken:   &token,
		OverrideChatID:  &overrideChat,
		OverrideEnabled: &enabled,
	})
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to set override: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Subscription #%d now delivers through its own bot to chat %d.", id, overrideChat))
}

func (b *Bot) handleOverrideOff(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /override_off <id>")
		return
	}
	if _, ok := b.ownedSubscription(ctx, chatID, id); !ok {
		b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
		return
	}
	enabled := false
	if _, err := b.sched.Update(ctx, id, scheduler.Patch{OverrideEnabled: &enabled}); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Override disabled for #%d.", id))
}

func (b *Bot) handleHistory(ctx context.Context, chatID int64) {
	subs, err := b.sched.ListByChat(ctx, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	owned := make(map[int64]bool, len(subs))
	for _, sub := range subs {
		owned[sub.ID] = true
	}

	recs, err := b.sched.History(ctx, 100)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	var visible []model.HistoryRecord
	for _, rec := range recs {
		if owned[rec.SubscriptionID] {
			visible = append(visible, rec)
		}
		if len(visible) == 20 {
			break
		}
	}
	b.reply(chatID, FormatHistory(visible))
}

func commandForKind(kind model.KeywordKind) string {
	if kind == model.KeywordBlacklist {
		return "exclude"
	}
	return "include"
}

func appendTerm(list []string, term string) []string {
	for _, t := range list {
		if t == term {
			return list
		}
	}
	return append(list, term)
}

func removeTerm(list []string, term string) ([]string, bool) {
	out := list[:0:0]
	removed := false
	for _, t := range list {
		if t == term {
			removed = true
			continue
		}
		out = append(out, t)
	}
	return out, removed
}
