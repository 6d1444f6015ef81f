// Package scheduler owns the per-subscription polling timers and runs the
// fetch-filter-dedup-route pipeline on every tick.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"feedwatch/internal/fetcher"
	"feedwatch/internal/filter"
	"feedwatch/internal/model"
	"feedwatch/internal/router"
	"feedwatch/internal/storage"
)

const defaultIntervalMinutes = 30

// ErrNotFound is returned when an operation targets an unknown subscription.
var ErrNotFound = errors.New("subscription not found")

// Fetcher retrieves and parses a feed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Result, error)
}

// Router delivers a batch of new items for a subscription.
type Router interface {
	Route(ctx context.Context, sub model.Subscription, items []model.Item) router.Outcome
}

// TickResult is the structured outcome of one pipeline execution.
type TickResult struct {
	SubscriptionID int64
	FetchErr       error
	Fetched        int
	FilteredOut    int
	AlreadySeen    int
	New            int
	Outcome        router.Outcome
}

// Scheduler maintains one independent timer per enabled subscription.
// Timers fire concurrently; a slow fetch for one subscription never delays
// another's tick. All state mutation goes through the storage layer.
type Scheduler struct {
	store storage.Storage
	fetch Fetcher
	route Router
	log   *slog.Logger

	maxConcurrent int
	intervalUnit  time.Duration

	mu        sync.Mutex
	timers    map[int64]*subTimer
	started   bool
	runCtx    context.Context
	cancelAll context.CancelFunc

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

type subTimer struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Scheduler. Timers are not started until StartAll.
func New(store storage.Storage, fetch Fetcher, route Router, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:         store,
		fetch:         fetch,
		route:         route,
		log:           log,
		maxConcurrent: 10,
		intervalUnit:  time.Minute,
		timers:        make(map[int64]*subTimer),
		locks:         make(map[int64]*sync.Mutex),
	}
}

// SetIntervalUnit overrides the real-time length of one interval minute.
// Used in tests to compress timer schedules.
func (s *Scheduler) SetIntervalUnit(d time.Duration) {
	s.intervalUnit = d
}

// List returns all known subscriptions, including disabled ones.
func (s *Scheduler) List(ctx context.Context) ([]model.Subscription, error) {
	return s.store.ListSubscriptions(ctx)
}

// ListByChat returns the subscriptions visible to a command-surface caller.
func (s *Scheduler) ListByChat(ctx context.Context, chatID int64) ([]model.Subscription, error) {
	return s.store.ListSubscriptionsByChat(ctx, chatID)
}

// Get returns a single subscription.
func (s *Scheduler) Get(ctx context.Context, id int64) (*model.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	return sub, err
}

// Add validates and persists a new subscription. If the scheduler is
// running and the subscription is enabled, its timer starts immediately.
func (s *Scheduler) Add(ctx context.Context, sub *model.Subscription) error {
	if sub.IntervalMinutes == 0 {
		sub.IntervalMinutes = defaultIntervalMinutes
	}
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("validate subscription: %w", err)
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started && sub.Enabled {
		s.startTimerLocked(sub.ID, s.minutes(sub.IntervalMinutes), false)
	}
	return nil
}

// Patch holds optional subscription configuration changes for Update.
type Patch struct {
	ChatID          *int64
	Title           *string
	URL             *string
	IntervalMinutes *int
	Enabled         *bool
	Whitelist       *[]string
	Blacklist       *[]string
	OverrideToken   *string
	OverrideChatID  *int64
	OverrideEnabled *bool
}

func (p Patch) apply(sub *model.Subscription) {
	if p.ChatID != nil {
		sub.ChatID = *p.ChatID
	}
	if p.Title != nil {
		sub.Title = *p.Title
	}
	if p.URL != nil {
		sub.URL = *p.URL
	}
	if p.IntervalMinutes != nil {
		sub.IntervalMinutes = *p.IntervalMinutes
	}
	if p.Enabled != nil {
		sub.Enabled = *p.Enabled
	}
	if p.Whitelist != nil {
		sub.Whitelist = *p.Whitelist
	}
	if p.Blacklist != nil {
		sub.Blacklist = *p.Blacklist
	}
	if p.OverrideToken != nil {
		sub.OverrideToken = *p.OverrideToken
	}
	if p.OverrideChatID != nil {
		sub.OverrideChatID = *p.OverrideChatID
	}
	if p.OverrideEnabled != nil {
		sub.OverrideEnabled = *p.OverrideEnabled
	}
}

// Update merges the patch into the subscription's configuration. An
// interval change replaces the running timer so the new interval takes
// effect from now; enabled transitions start or cancel the timer.
func (s *Scheduler) Update(ctx context.Context, id int64, p Patch) (*model.Subscription, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	wasEnabled := sub.Enabled
	oldInterval := sub.IntervalMinutes

	p.apply(sub)
	if err := sub.Validate(); err != nil {
		return nil, fmt.Errorf("validate subscription: %w", err)
	}
	if err := s.store.UpdateSubscription(ctx, sub); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return sub, nil
	}
	switch {
	case wasEnabled && !sub.Enabled:
		s.stopTimerLocked(id)
	case !wasEnabled && sub.Enabled:
		s.startTimerLocked(id, s.minutes(sub.IntervalMinutes), false)
	case sub.Enabled && sub.IntervalMinutes != oldInterval:
		s.stopTimerLocked(id)
		s.startTimerLocked(id, s.minutes(sub.IntervalMinutes), false)
	}
	return sub, nil
}

// Delete cancels the subscription's timer and removes it, reporting
// whether it existed. Cancelling an already-stopped timer is a no-op.
func (s *Scheduler) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	s.stopTimerLocked(id)
	s.mu.Unlock()

	existed, err := s.store.DeleteSubscription(ctx, id)
	if existed {
		s.locksMu.Lock()
		delete(s.locks, id)
		s.locksMu.Unlock()
	}
	return existed, err
}

// RefreshOne runs the pipeline for one subscription immediately,
// independent of its timer phase. The timer is not rescheduled.
func (s *Scheduler) RefreshOne(ctx context.Context, id int64) (*TickResult, error) {
	return s.runPipeline(ctx, id)
}

// RefreshAll runs the pipeline for every enabled subscription
// concurrently. Each execution is fault-isolated: one subscription's
// failure never aborts the others. Returns once all executions finished.
func (s *Scheduler) RefreshAll(ctx context.Context) error {
	subs, err := s.store.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)
	for _, sub := range subs {
		if !sub.Enabled {
			continue
		}
		id := sub.ID
		g.Go(func() error {
			if _, err := s.runPipeline(ctx, id); err != nil {
				s.log.Error("refresh subscription", "subscription_id", id, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return nil
}

// StartAll creates a timer for every enabled subscription, running one
// immediate check per subscription instead of waiting a full interval.
func (s *Scheduler) StartAll(ctx context.Context) error {
	subs, err := s.store.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.runCtx, s.cancelAll = context.WithCancel(context.Background())
	s.started = true
	for _, sub := range subs {
		if sub.Enabled {
			s.startTimerLocked(sub.ID, s.minutes(sub.IntervalMinutes), true)
		}
	}
	n := len(s.timers)
	s.mu.Unlock()

	s.log.Info("scheduler started", "timers", n)
	return nil
}

// StopAll cancels every timer and waits for the timer goroutines to
// finish before returning. No pipeline execution starts afterwards, and
// in-flight executions complete so history writes are never cut short.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancelAll()
	stopped := make([]*subTimer, 0, len(s.timers))
	for _, t := range s.timers {
		stopped = append(stopped, t)
	}
	s.timers = make(map[int64]*subTimer)
	s.mu.Unlock()

	for _, t := range stopped {
		<-t.done
	}
	s.log.Info("scheduler stopped", "timers", len(stopped))
}

// History returns the most recent delivery history records.
func (s *Scheduler) History(ctx context.Context, limit int) ([]model.HistoryRecord, error) {
	return s.store.ListHistory(ctx, limit)
}

// RecordDelivered marks an item as seen for a subscription.
func (s *Scheduler) RecordDelivered(ctx context.Context, sub model.Subscription, item model.Item) error {
	return s.store.AddHistory(ctx, &model.HistoryRecord{
		SubscriptionID:    sub.ID,
		SubscriptionTitle: sub.Title,
		Item:              item,
		DiscoveredAt:      time.Now().UTC(),
	})
}

// startTimerLocked creates the timer goroutine for a subscription.
// Callers hold s.mu.
func (s *Scheduler) startTimerLocked(id int64, interval time.Duration, immediate bool) {
	if _, ok := s.timers[id]; ok {
		return
	}
	ctx, cancel := context.WithCancel(s.runCtx)
	t := &subTimer{cancel: cancel, done: make(chan struct{})}
	s.timers[id] = t
	go s.runTimer(ctx, id, interval, immediate, t.done)
}

func (s *Scheduler) stopTimerLocked(id int64) {
	t, ok := s.timers[id]
	if !ok {
		return
	}
	t.cancel()
	delete(s.timers, id)
}

func (s *Scheduler) runTimer(ctx context.Context, id int64, interval time.Duration, immediate bool, done chan struct{}) {
	defer close(done)
	if immediate {
		s.tick(ctx, id)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, id)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, id int64) {
	if ctx.Err() != nil {
		return
	}
	// A tick that started before cancellation runs to completion, so
	// history writes are never interrupted mid-batch.
	if _, err := s.runPipeline(context.WithoutCancel(ctx), id); err != nil {
		s.log.Error("tick", "subscription_id", id, "error", err)
	}
}

// runPipeline executes fetch -> filter -> dedup -> route for one
// subscription. Executions for the same subscription are serialized by a
// per-subscription lock; configuration is read once at the start and only
// runtime-state fields are written back.
func (s *Scheduler) runPipeline(ctx context.Context, id int64) (*TickResult, error) {
	lock := s.subLock(id)
	lock.Lock()
	defer lock.Unlock()

	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res := &TickResult{SubscriptionID: id}
	if !sub.Enabled {
		return res, nil
	}

	s.log.Debug("checking subscription", "subscription_id", id, "title", sub.Title)

	fetched, err := s.fetch.Fetch(ctx, sub.URL)
	if err != nil {
		res.FetchErr = err
		s.log.Error("fetch feed", "subscription_id", id, "url", sub.URL, "error", err)
		if uerr := s.store.UpdateCheckState(ctx, id, time.Now().UTC(), err.Error()); uerr != nil {
			s.log.Error("update check state", "subscription_id", id, "error", uerr)
		}
		return res, nil
	}
	res.Fetched = len(fetched.Items)

	// Feeds conventionally list newest entries first; walk backwards so
	// new items reach the router oldest first.
	var fresh []model.Item
	for i := len(fetched.Items) - 1; i >= 0; i-- {
		item := fetched.Items[i]
		seen, err := s.store.HasHistory(ctx, id, item.ID)
		if err != nil {
			s.log.Error("check history", "subscription_id", id, "item_id", item.ID, "error", err)
			continue
		}
		if seen {
			res.AlreadySeen++
			continue
		}
		if !filter.Match(filter.ItemText(item.Title, item.Description), sub.Whitelist, sub.Blacklist) {
			res.FilteredOut++
			// Policy-dropped items are still marked seen, so relaxing
			// the policy later does not resurrect them.
			if err := s.RecordDelivered(ctx, *sub, item); err != nil {
				s.log.Error("record filtered item", "subscription_id", id, "item_id", item.ID, "error", err)
			}
			continue
		}
		fresh = append(fresh, item)
	}
	res.New = len(fresh)

	if len(fresh) > 0 {
		res.Outcome = s.route.Route(ctx, *sub, fresh)
	}

	if err := s.store.UpdateCheckState(ctx, id, time.Now().UTC(), ""); err != nil {
		s.log.Error("update check state", "subscription_id", id, "error", err)
	}
	return res, nil
}

func (s *Scheduler) subLock(id int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *Scheduler) minutes(n int) time.Duration {
	return time.Duration(n) * s.intervalUnit
}
