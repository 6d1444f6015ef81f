package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"feedwatch/internal/model"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:", 10)
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSubscription() *model.Subscription {
	return &model.Subscription{
		ChatID:          100,
		Title:           "Tech Digest",
		URL:             "https://techdigest.example.com/rss",
		IntervalMinutes: 15,
		Enabled:         true,
		Whitelist:       []string{"ai", "robots"},
		Blacklist:       []string{"sports"},
	}
}

func TestCreateAndGetSubscription(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sub := testSubscription()
	if err := s.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	got, err := s.GetSubscription(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(sub.Title, got.Title); diff != "" {
		t.Errorf("title mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ai", "robots"}, got.Whitelist); diff != "" {
		t.Errorf("whitelist mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"sports"}, got.Blacklist); diff != "" {
		t.Errorf("blacklist mismatch (-want +got):\n%s", diff)
	}
	if got.LastCheckAt != nil {
		t.Errorf("expected no last check, got %v", got.LastCheckAt)
	}
}

func TestGetSubscriptionNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSubscription(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListSubscriptionsByChat(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, chatID := range []int64{100, 100, 200} {
		sub := testSubscription()
		sub.ChatID = chatID
		if err := s.CreateSubscription(ctx, sub); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := s.ListSubscriptions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff(3, len(all)); diff != "" {
		t.Errorf("total count mismatch (-want +got):\n%s", diff)
	}

	byChat, err := s.ListSubscriptionsByChat(ctx, 100)
	if err != nil {
		t.Fatalf("list by chat: %v", err)
	}
	if diff := cmp.Diff(2, len(byChat)); diff != "" {
		t.Errorf("chat count mismatch (-want +got):\n%s", diff)
	}
	for _, sub := range byChat {
		if sub.ChatID != 100 {
			t.Errorf("unexpected chat %d in scoped list", sub.ChatID)
		}
		if len(sub.Whitelist) != 2 {
			t.Errorf("keywords not loaded for #%d", sub.ID)
		}
	}
}

func TestUpdateSubscriptionReplacesKeywords(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sub := testSubscription()
	if err := s.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("create: %v", err)
	}

	sub.Title = "Renamed"
	sub.IntervalMinutes = 60
	sub.Whitelist = []string{"ml"}
	sub.Blacklist = nil
	if err := s.UpdateSubscription(ctx, sub); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetSubscription(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff("Renamed", got.Title); diff != "" {
		t.Errorf("title mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(60, got.IntervalMinutes); diff != "" {
		t.Errorf("interval mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ml"}, got.Whitelist); diff != "" {
		t.Errorf("whitelist mismatch (-want +got):\n%s", diff)
	}
	if len(got.Blacklist) != 0 {
		t.Errorf("expected empty blacklist, got %v", got.Blacklist)
	}
}

func TestUpdateSubscriptionNotFound(t *testing.T) {
	sub := testSubscription()
	sub.ID = 42
	err := newTestStore(t).UpdateSubscription(context.Background(), sub)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateCheckState(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sub := testSubscription()
	if err := s.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now().UTC()
	if err := s.UpdateCheckState(ctx, sub.ID, now, "fetch timed out"); err != nil {
		t.Fatalf("update check state: %v", err)
	}

	got, err := s.GetSubscription(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastCheckAt == nil {
		t.Fatal("expected LastCheckAt to be set")
	}
	if diff := cmp.Diff("fetch timed out", got.LastError); diff != "" {
		t.Errorf("last error mismatch (-want +got):\n%s", diff)
	}
	// config fields untouched
	if diff := cmp.Diff("Tech Digest", got.Title); diff != "" {
		t.Errorf("title mismatch (-want +got):\n%s", diff)
	}

	if err := s.UpdateCheckState(ctx, sub.ID, now, ""); err != nil {
		t.Fatalf("clear error: %v", err)
	}
	got, _ = s.GetSubscription(ctx, sub.ID)
	if got.LastError != "" {
		t.Errorf("expected error cleared, got %q", got.LastError)
	}
}

func TestDeleteSubscription(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sub := testSubscription()
	if err := s.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.AddHistory(ctx, &model.HistoryRecord{
		SubscriptionID: sub.ID, SubscriptionTitle: sub.Title,
		Item: model.Item{ID: "item-1"},
	}); err != nil {
		t.Fatalf("add history: %v", err)
	}

	existed, err := s.DeleteSubscription(ctx, sub.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !existed {
		t.Error("expected existed=true")
	}

	if _, err := s.GetSubscription(ctx, sub.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	seen, err := s.HasHistory(ctx, sub.ID, "item-1")
	if err != nil {
		t.Fatalf("has history: %v", err)
	}
	if seen {
		t.Error("expected history removed with subscription")
	}

	existed, err = s.DeleteSubscription(ctx, sub.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if existed {
		t.Error("expected existed=false on second delete")
	}
}

func TestHistoryDedup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := &model.HistoryRecord{
		SubscriptionID:    1,
		SubscriptionTitle: "Tech Digest",
		Item:              model.Item{ID: "item-1", Title: "AI news"},
	}
	if err := s.AddHistory(ctx, rec); err != nil {
		t.Fatalf("add: %v", err)
	}
	// same pair again is a no-op
	if err := s.AddHistory(ctx, rec); err != nil {
		t.Fatalf("add duplicate: %v", err)
	}

	recs, err := s.ListHistory(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff(1, len(recs)); diff != "" {
		t.Errorf("record count mismatch (-want +got):\n%s", diff)
	}

	seen, err := s.HasHistory(ctx, 1, "item-1")
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if !seen {
		t.Error("expected item-1 to be seen")
	}
	seen, _ = s.HasHistory(ctx, 2, "item-1")
	if seen {
		t.Error("history must be scoped per subscription")
	}
}

func TestHistoryEviction(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t) // limit 10

	for i := 0; i < 15; i++ {
		rec := &model.HistoryRecord{
			SubscriptionID: 1,
			Item:           model.Item{ID: fmt.Sprintf("item-%d", i)},
		}
		if err := s.AddHistory(ctx, rec); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	recs, err := s.ListHistory(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff(10, len(recs)); diff != "" {
		t.Errorf("record count mismatch (-want +got):\n%s", diff)
	}

	// oldest evicted, newest kept
	seen, _ := s.HasHistory(ctx, 1, "item-0")
	if seen {
		t.Error("expected oldest record evicted")
	}
	seen, _ = s.HasHistory(ctx, 1, "item-14")
	if !seen {
		t.Error("expected newest record kept")
	}
}

func TestListHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.AddHistory(ctx, &model.HistoryRecord{
			SubscriptionID: 1, Item: model.Item{ID: id},
		}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	recs, err := s.ListHistory(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []string
	for _, r := range recs {
		ids = append(ids, r.Item.ID)
	}
	if diff := cmp.Diff([]string{"c", "b"}, ids); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}
