// Package router resolves delivery targets and fans out new feed items to
// the messaging gateway.
package router

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"feedwatch/internal/config"
	"feedwatch/internal/gateway"
	"feedwatch/internal/model"
)

// HistoryStore records delivery attempts for dedup and audit.
type HistoryStore interface {
	AddHistory(ctx context.Context, rec *model.HistoryRecord) error
}

// Override is a deployment-wide delivery target override, applied when a
// subscription has no active override of its own.
type Override struct {
	Token  string
	ChatID int64
}

// Skip reasons reported in an Outcome.
const (
	SkipInvalidCredential = "invalid override credential"
	SkipNoSession         = "default session not ready"
	SkipNoDestination     = "no destination chat"
)

// Outcome reports what happened to one routed batch.
type Outcome struct {
	Delivered  int
	Failed     int
	Recorded   int
	Skipped    bool
	SkipReason string
}

// Config holds router settings.
type Config struct {
	Template   string
	BatchLimit int
	Override   *Override
}

// Router delivers batches of new items for a subscription. Delivery
// targets are re-resolved on every batch, so configuration fixes take
// effect on the next tick without a restart.
type Router struct {
	factory    gateway.Factory
	history    HistoryStore
	log        *slog.Logger
	template   string
	batchLimit int
	override   *Override
	sendDelay  time.Duration

	mu      sync.RWMutex
	session gateway.Gateway
	cache   map[string]gateway.Gateway
}

// New creates a Router. The default session is installed later via
// SetSession, once the hosting process has established it.
func New(factory gateway.Factory, history HistoryStore, cfg Config, log *slog.Logger) *Router {
	if cfg.Template == "" {
		cfg.Template = config.DefaultTemplate
	}
	if cfg.BatchLimit < 1 {
		cfg.BatchLimit = 5
	}
	return &Router{
		factory:    factory,
		history:    history,
		log:        log,
		template:   cfg.Template,
		batchLimit: cfg.BatchLimit,
		override:   cfg.Override,
		sendDelay:  50 * time.Millisecond,
		cache:      make(map[string]gateway.Gateway),
	}
}

// SetSession installs the system default gateway session.
func (r *Router) SetSession(gw gateway.Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = gw
}

// Route resolves the delivery target for sub and sends the batch, oldest
// item first. At most the configured batch limit is sent per call; every
// routed item is recorded as seen after its delivery attempt, sent or not,
// so an item gets at most one attempt. Batch-level skips record nothing
// (the batch is retried once the cause clears), except an unresolvable
// destination, which consumes the batch.
func (r *Router) Route(ctx context.Context, sub model.Subscription, items []model.Item) Outcome {
	if len(items) == 0 {
		return Outcome{}
	}

	gw, chatID, target, skip := r.resolve(sub)
	switch skip {
	case SkipInvalidCredential:
		r.log.Error("skip batch: invalid override credential",
			"subscription_id", sub.ID, "items", len(items))
		return Outcome{Skipped: true, SkipReason: skip}
	case SkipNoSession:
		r.log.Warn("skip batch: default session not ready",
			"subscription_id", sub.ID, "items", len(items))
		return Outcome{Skipped: true, SkipReason: skip}
	case SkipNoDestination:
		r.log.Error("skip batch: no destination chat",
			"subscription_id", sub.ID, "items", len(items))
		out := Outcome{Skipped: true, SkipReason: skip}
		out.Recorded = r.recordAll(ctx, sub, items)
		return out
	}

	var out Outcome
	for i, item := range items {
		if i < r.batchLimit {
			text := RenderTemplate(r.template, sub.Title, item)
			if err := gw.Send(chatID, text, gateway.SendOptions{DisablePreview: true}); err != nil {
				r.log.Error("send item", "subscription_id", sub.ID,
					"item_id", item.ID, "target", target, "error", err)
				out.Failed++
			} else {
				out.Delivered++
			}
			// Rate limit: ~20 messages/sec max for Telegram
			time.Sleep(r.sendDelay)
		}
		if r.record(ctx, sub, item) {
			out.Recorded++
		}
	}

	if out.Delivered > 0 {
		r.log.Info("delivered items", "subscription_id", sub.ID,
			"target", target, "count", out.Delivered)
	}
	return out
}

func (r *Router) resolve(sub model.Subscription) (gw gateway.Gateway, chatID int64, target, skip string) {
	r.mu.RLock()
	session := r.session
	r.mu.RUnlock()

	switch {
	case sub.OverrideEnabled && sub.OverrideToken != "":
		g, err := r.gatewayFor(sub.OverrideToken)
		if err != nil {
			return nil, 0, "", SkipInvalidCredential
		}
		chat := sub.OverrideChatID
		if chat == 0 {
			chat = sub.ChatID
		}
		if chat == 0 {
			return nil, 0, "", SkipNoDestination
		}
		return g, chat, "subscription override", ""

	case r.override != nil && r.override.Token != "":
		g, err := r.gatewayFor(r.override.Token)
		if err != nil {
			return nil, 0, "", SkipInvalidCredential
		}
		chat := r.override.ChatID
		if chat == 0 {
			chat = sub.ChatID
		}
		if chat == 0 {
			return nil, 0, "", SkipNoDestination
		}
		return g, chat, "deployment override", ""

	default:
		if session == nil {
			return nil, 0, "", SkipNoSession
		}
		if sub.ChatID == 0 {
			return nil, 0, "", SkipNoDestination
		}
		return session, sub.ChatID, "default", ""
	}
}

// gatewayFor returns a gateway for an override credential. Working
// gateways are cached per token; failed handshakes are not, so a
// corrected credential is picked up on the next batch.
func (r *Router) gatewayFor(token string) (gateway.Gateway, error) {
	r.mu.RLock()
	g, ok := r.cache[token]
	r.mu.RUnlock()
	if ok {
		return g, nil
	}

	g, err := r.factory(token)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[token] = g
	r.mu.Unlock()
	return g, nil
}

func (r *Router) record(ctx context.Context, sub model.Subscription, item model.Item) bool {
	rec := &model.HistoryRecord{
		SubscriptionID:    sub.ID,
		SubscriptionTitle: sub.Title,
		Item:              item,
		DiscoveredAt:      time.Now().UTC(),
	}
	if err := r.history.AddHistory(ctx, rec); err != nil {
		r.log.Error("record history", "subscription_id", sub.ID,
			"item_id", item.ID, "error", err)
		return false
	}
	return true
}

func (r *Router) recordAll(ctx context.Context, sub model.Subscription, items []model.Item) int {
	n := 0
	for _, item := range items {
		if r.record(ctx, sub, item) {
			n++
		}
	}
	return n
}
