// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultTemplate is the message template used when MESSAGE_TEMPLATE is unset.
const DefaultTemplate = "[{feed_title}]\n\n{title}\n\n{description}\n\n{link}\n{date}"

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64

	// Deployment-wide delivery override, applied when a subscription has
	// no override of its own.
	OverrideBotToken string
	OverrideChatID   int64

	MessageTemplate string
	HistoryLimit    int
	BatchLimit      int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/feedwatch.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	var overrideChat int64
	if raw := os.Getenv("OVERRIDE_CHAT_ID"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid OVERRIDE_CHAT_ID %q: %w", raw, err)
		}
		overrideChat = v
	}

	template := os.Getenv("MESSAGE_TEMPLATE")
	if template == "" {
		template = DefaultTemplate
	}

	historyLimit, err := intEnv("HISTORY_LIMIT", 500)
	if err != nil {
		return nil, err
	}
	batchLimit, err := intEnv("BATCH_LIMIT", 5)
	if err != nil {
		return nil, err
	}

	return &Config{
		TelegramBotToken: token,
		DatabasePath:     dbPath,
		LogLevel:         logLevel,
		AllowedUsers:     allowedUsers,
		OverrideBotToken: os.Getenv("OVERRIDE_BOT_TOKEN"),
		OverrideChatID:   overrideChat,
		MessageTemplate:  template,
		HistoryLimit:     historyLimit,
		BatchLimit:       batchLimit,
	}, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	return v, nil
}
