package model

import (
	"strings"
	"testing"
)

func TestSubscriptionValidate(t *testing.T) {
	valid := Subscription{
		ChatID:          100,
		Title:           "Tech Digest",
		URL:             "https://techdigest.example.com/rss",
		IntervalMinutes: 15,
	}

	tests := []struct {
		name    string
		mutate  func(*Subscription)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(*Subscription) {},
		},
		{
			name:   "empty title is fine",
			mutate: func(s *Subscription) { s.Title = "" },
		},
		{
			name:    "missing url",
			mutate:  func(s *Subscription) { s.URL = "" },
			wantErr: true,
		},
		{
			name:    "malformed url",
			mutate:  func(s *Subscription) { s.URL = "not a url" },
			wantErr: true,
		},
		{
			name:    "missing chat",
			mutate:  func(s *Subscription) { s.ChatID = 0 },
			wantErr: true,
		},
		{
			name:    "zero interval",
			mutate:  func(s *Subscription) { s.IntervalMinutes = 0 },
			wantErr: true,
		},
		{
			name:    "interval above one day",
			mutate:  func(s *Subscription) { s.IntervalMinutes = MaxIntervalMinutes + 1 },
			wantErr: true,
		},
		{
			name:   "interval at bounds",
			mutate: func(s *Subscription) { s.IntervalMinutes = MaxIntervalMinutes },
		},
		{
			name:    "title too long",
			mutate:  func(s *Subscription) { s.Title = strings.Repeat("x", 201) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := valid
			tt.mutate(&sub)
			err := sub.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
