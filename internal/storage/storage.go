// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"feedwatch/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the interface for all persistence operations. Implementations
// must serialize their own read-modify-write operations; callers run
// concurrently from per-subscription timers.
type Storage interface {
	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	GetSubscription(ctx context.Context, id int64) (*model.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	ListSubscriptionsByChat(ctx context.Context, chatID int64) ([]model.Subscription, error)
	UpdateSubscription(ctx context.Context, sub *model.Subscription) error

	// UpdateCheckState writes only the runtime-state fields, so a racing
	// configuration update is never overwritten by a finishing pipeline.
	UpdateCheckState(ctx context.Context, id int64, checkedAt time.Time, lastError string) error

	DeleteSubscription(ctx context.Context, id int64) (bool, error)

	AddHistory(ctx context.Context, rec *model.HistoryRecord) error
	HasHistory(ctx context.Context, subscriptionID int64, itemID string) (bool, error)
	ListHistory(ctx context.Context, limit int) ([]model.HistoryRecord, error)

	Close() error
}
