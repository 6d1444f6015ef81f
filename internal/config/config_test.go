package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ALLOWED_USERS", "")
	t.Setenv("OVERRIDE_BOT_TOKEN", "")
	t.Setenv("OVERRIDE_CHAT_ID", "")
	t.Setenv("MESSAGE_TEMPLATE", "")
	t.Setenv("HISTORY_LIMIT", "")
	t.Setenv("BATCH_LIMIT", "")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := &Config{
		TelegramBotToken: "test-token",
		DatabasePath:     "./data/feedwatch.db",
		LogLevel:         "info",
		MessageTemplate:  DefaultTemplate,
		HistoryLimit:     500,
		BatchLimit:       5,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFullEnvironment(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_PATH", "/var/lib/feedwatch/bot.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ALLOWED_USERS", "100, 200,300")
	t.Setenv("OVERRIDE_BOT_TOKEN", "override-token")
	t.Setenv("OVERRIDE_CHAT_ID", "-1001234")
	t.Setenv("MESSAGE_TEMPLATE", "{title}")
	t.Setenv("HISTORY_LIMIT", "1000")
	t.Setenv("BATCH_LIMIT", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := &Config{
		TelegramBotToken: "test-token",
		DatabasePath:     "/var/lib/feedwatch/bot.db",
		LogLevel:         "debug",
		AllowedUsers:     []int64{100, 200, 300},
		OverrideBotToken: "override-token",
		OverrideChatID:   -1001234,
		MessageTemplate:  "{title}",
		HistoryLimit:     1000,
		BatchLimit:       10,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"missing token", "TELEGRAM_BOT_TOKEN", ""},
		{"bad allowed users", "ALLOWED_USERS", "100,abc"},
		{"bad override chat", "OVERRIDE_CHAT_ID", "not-a-number"},
		{"bad history limit", "HISTORY_LIMIT", "zero"},
		{"negative history limit", "HISTORY_LIMIT", "-5"},
		{"bad batch limit", "BATCH_LIMIT", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestIsUserAllowed(t *testing.T) {
	open := &Config{}
	if !open.IsUserAllowed(123) {
		t.Error("empty allow list must permit everyone")
	}

	restricted := &Config{AllowedUsers: []int64{100, 200}}
	if !restricted.IsUserAllowed(200) {
		t.Error("listed user must be allowed")
	}
	if restricted.IsUserAllowed(300) {
		t.Error("unlisted user must be rejected")
	}
}
