// Package filter implements the keyword matching policy for feed items.
package filter

import "strings"

// Match reports whether text passes the whitelist/blacklist policy.
// Matching is case-insensitive substring containment. An empty list is
// no constraint. Blacklist terms use AND-NOT logic (none may match),
// whitelist terms use OR logic (at least one must match), and both
// lists apply independently.
func Match(text string, whitelist, blacklist []string) bool {
	lower := strings.ToLower(text)

	for _, term := range blacklist {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			return false
		}
	}

	constrained := false
	for _, term := range whitelist {
		if term == "" {
			continue
		}
		constrained = true
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return !constrained
}

// ItemText composes the searchable text of a feed item.
func ItemText(title, description string) string {
	return title + " " + description
}
