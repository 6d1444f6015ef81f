package router

import (
	"strings"
	"unicode/utf8"

	"feedwatch/internal/model"
)

const descriptionLimit = 200

// RenderTemplate substitutes the named placeholders {feed_title}, {title},
// {link}, {description} (truncated to 200 characters) and {date} into tmpl.
// Unrecognized placeholders are left verbatim.
func RenderTemplate(tmpl, feedTitle string, item model.Item) string {
	desc := item.Description
	if utf8.RuneCountInString(desc) > descriptionLimit {
		runes := []rune(desc)
		desc = string(runes[:descriptionLimit]) + "..."
	}

	date := ""
	if item.PublishedAt != nil {
		date = item.PublishedAt.UTC().Format("2006-01-02 15:04 UTC")
	}

	return strings.NewReplacer(
		"{feed_title}", feedTitle,
		"{title}", item.Title,
		"{link}", item.Link,
		"{description}", desc,
		"{date}", date,
	).Replace(tmpl)
}
