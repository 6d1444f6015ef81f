// Package model defines the domain types used across the application.
package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Interval bounds for feed polling, in minutes.
const (
	MinIntervalMinutes = 1
	MaxIntervalMinutes = 1440
)

// Subscription represents a configured, independently polled feed source.
// Configuration fields are mutated through the scheduler API; LastCheckAt
// and LastError are runtime state owned by the scheduler.
type Subscription struct {
	ID     int64
	ChatID int64

	Title           string
	URL             string
	IntervalMinutes int
	Enabled         bool

	Whitelist []string
	Blacklist []string

	OverrideToken   string
	OverrideChatID  int64
	OverrideEnabled bool

	LastCheckAt *time.Time
	LastError   string

	CreatedAt time.Time
}

// Validate checks the mutable configuration fields. It is called at the
// API boundary so invalid configuration never reaches a running timer.
func (s Subscription) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.URL, validation.Required, is.URL),
		validation.Field(&s.ChatID, validation.Required),
		validation.Field(&s.IntervalMinutes,
			validation.Required,
			validation.Min(MinIntervalMinutes),
			validation.Max(MaxIntervalMinutes)),
		validation.Field(&s.Title, validation.Length(0, 200)),
	)
}

// KeywordKind defines which policy list a keyword term belongs to.
type KeywordKind string

// Supported keyword kinds.
const (
	KeywordWhitelist KeywordKind = "whitelist"
	KeywordBlacklist KeywordKind = "blacklist"
)

// Item is a single entry produced by a feed fetch. Items are transient;
// identity across fetches is the ID (feed GUID, or a hash fallback).
type Item struct {
	ID          string
	Title       string
	Link        string
	Description string
	PublishedAt *time.Time
}

// HistoryRecord marks a (subscription, item) pair as seen. It serves both
// deduplication and the audit trail shown to users.
type HistoryRecord struct {
	ID                int64
	SubscriptionID    int64
	SubscriptionTitle string
	Item              Item
	DiscoveredAt      time.Time
}
