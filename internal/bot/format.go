package bot

import (
	"fmt"
	"strings"

	"feedwatch/internal/model"
	"feedwatch/internal/scheduler"
)

const (
	statusActive = "active"
	statusPaused = "paused"
)

// FormatSubscriptionList formats a chat's subscriptions for display.
func FormatSubscriptionList(subs []model.Subscription) string {
	if len(subs) == 0 {
		return "You have no subscriptions yet. Use /add <url> to add one."
	}
	var b strings.Builder
	b.WriteString("Your subscriptions:\n")
	for _, sub := range subs {
		status := statusActive
		if !sub.Enabled {
			status = statusPaused
		}
		fmt.Fprintf(&b, "\n#%d %s  (every %d min) [%s]\n", sub.ID, sub.Title, sub.IntervalMinutes, status)
		if len(sub.Whitelist) == 0 && len(sub.Blacklist) == 0 {
			b.WriteString("   no keywords\n")
		} else {
			fmt.Fprintf(&b, "   %d whitelist, %d blacklist terms\n", len(sub.Whitelist), len(sub.Blacklist))
		}
		if sub.LastError != "" {
			fmt.Fprintf(&b, "   last error: %s\n", sub.LastError)
		}
	}
	return b.String()
}

// FormatSubscriptionInfo formats detailed information about a subscription.
func FormatSubscriptionInfo(sub *model.Subscription) string {
	var b strings.Builder
	status := statusActive
	if !sub.Enabled {
		status = statusPaused
	}
	fmt.Fprintf(&b, "#%d %s [%s]\n", sub.ID, sub.Title, status)
	fmt.Fprintf(&b, "URL: %s\n", sub.URL)
	fmt.Fprintf(&b, "Interval: every %d min\n", sub.IntervalMinutes)
	if sub.LastCheckAt != nil {
		fmt.Fprintf(&b, "Last check: %s\n", sub.LastCheckAt.Format("2006-01-02 15:04 UTC"))
	}
	if sub.LastError != "" {
		fmt.Fprintf(&b, "Last error: %s\n", sub.LastError)
	}
	if sub.OverrideEnabled && sub.OverrideToken != "" {
		fmt.Fprintf(&b, "Delivery: own bot, chat %d\n", sub.OverrideChatID)
	}
	b.WriteString("\n")
	b.WriteString(FormatKeywordList(sub))
	return b.String()
}

// FormatKeywordList formats a subscription's keyword policy.
func FormatKeywordList(sub *model.Subscription) string {
	if len(sub.Whitelist) == 0 && len(sub.Blacklist) == 0 {
		return fmt.Sprintf("No keywords for #%d %q.\nUse /include and /exclude to filter by keywords.", sub.ID, sub.Title)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Keywords for #%d %q:\n", sub.ID, sub.Title)
	if len(sub.Whitelist) > 0 {
		fmt.Fprintf(&b, "\nWhitelist (at least one must match):\n")
		for _, term := range sub.Whitelist {
			fmt.Fprintf(&b, "  %s\n", term)
		}
	}
	if len(sub.Blacklist) > 0 {
		fmt.Fprintf(&b, "\nBlacklist (none may match):\n")
		for _, term := range sub.Blacklist {
			fmt.Fprintf(&b, "  %s\n", term)
		}
	}
	return b.String()
}

// FormatTickResult summarizes an on-demand check for the user.
func FormatTickResult(res *scheduler.TickResult) string {
	if res.FetchErr != nil {
		return fmt.Sprintf("Check finished with a fetch error: %v", res.FetchErr)
	}
	if res.Outcome.Skipped {
		return fmt.Sprintf("Checked: %d items, %d new, delivery skipped (%s).",
			res.Fetched, res.New, res.Outcome.SkipReason)
	}
	return fmt.Sprintf("Checked: %d items, %d new, %d delivered, %d filtered out.",
		res.Fetched, res.New, res.Outcome.Delivered, res.FilteredOut)
}

// FormatHistory formats recent delivery history records.
func FormatHistory(recs []model.HistoryRecord) string {
	if len(recs) == 0 {
		return "No deliveries yet."
	}
	var b strings.Builder
	b.WriteString("Recent deliveries:\n")
	for _, rec := range recs {
		fmt.Fprintf(&b, "\n[%s] %s\n%s\n", rec.SubscriptionTitle, rec.Item.Title, rec.Item.Link)
	}
	return b.String()
}
