package bot

import (
	"fmt"
	"strconv"
	"strings"

	"feedwatch/internal/model"
)

// ParseAddArgs parses arguments for /add: a feed URL with an optional
// polling interval in minutes.
func ParseAddArgs(args string) (url string, interval int, err error) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		return "", 0, fmt.Errorf("feed URL is required")
	}
	interval = 30
	if len(parts) >= 2 {
		interval, err = strconv.Atoi(parts[1])
		if err != nil || interval < model.MinIntervalMinutes || interval > model.MaxIntervalMinutes {
			return "", 0, fmt.Errorf("interval must be between %d and %d minutes",
				model.MinIntervalMinutes, model.MaxIntervalMinutes)
		}
	}
	return parts[0], interval, nil
}

// ParseIDArg extracts a numeric ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("subscription ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subscription ID %q", s)
	}
	return id, nil
}

// ParseRenameArgs extracts a subscription ID and new name.
func ParseRenameArgs(args string) (int64, string, error) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(parts) < 2 {
		return 0, "", fmt.Errorf("usage: /rename <id> <new_name>")
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid subscription ID %q", parts[0])
	}
	name := strings.TrimSpace(parts[1])
	if name == "" {
		return 0, "", fmt.Errorf("new name cannot be empty")
	}
	return id, name, nil
}

// ParseIntervalArgs extracts a subscription ID and interval in minutes.
func ParseIntervalArgs(args string) (int64, int, error) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("usage: /interval <id> <minutes>")
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid subscription ID %q", parts[0])
	}
	mins, err := strconv.Atoi(parts[1])
	if err != nil || mins < model.MinIntervalMinutes || mins > model.MaxIntervalMinutes {
		return 0, 0, fmt.Errorf("interval must be between %d and %d minutes",
			model.MinIntervalMinutes, model.MaxIntervalMinutes)
	}
	return id, mins, nil
}

// ParseTermArgs extracts a subscription ID and a keyword term.
func ParseTermArgs(args string) (int64, string, error) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(parts) < 2 {
		return 0, "", fmt.Errorf("subscription ID and term are required")
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid subscription ID %q", parts[0])
	}
	term := strings.TrimSpace(parts[1])
	if term == "" {
		return 0, "", fmt.Errorf("term cannot be empty")
	}
	return id, term, nil
}

// ParseOverrideArgs extracts a subscription ID, bot token and chat ID for
// /override.
func ParseOverrideArgs(args string) (int64, string, int64, error) {
	parts := strings.Fields(args)
	if len(parts) < 3 {
		return 0, "", 0, fmt.Errorf("usage: /override <id> <bot_token> <chat_id>")
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", 0, fmt.Errorf("invalid subscription ID %q", parts[0])
	}
	chatID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, "", 0, fmt.Errorf("invalid chat ID %q", parts[2])
	}
	return id, parts[1], chatID, nil
}
