// Package fetcher implements the feed fetch adapter: it downloads a feed
// document and normalizes it into domain items.
package fetcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"feedwatch/internal/model"
)

const maxBodySize = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result holds the parsed outcome of a successful feed fetch.
type Result struct {
	Title string
	Items []model.Item
}

// Fetcher downloads and parses feeds. Failures are reported as errors to
// the caller, never as faults; a fetch is bounded by the configured timeout.
type Fetcher struct {
	client  HTTPClient
	timeout time.Duration
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{
		client:  client,
		timeout: 30 * time.Second,
	}
}

// SetTimeout overrides the default 30-second fetch bound.
func (f *Fetcher) SetTimeout(d time.Duration) {
	f.timeout = d
}

// Fetch downloads and parses the feed at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "feedwatch/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]model.Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		items = append(items, model.Item{
			ID:          ItemID(it),
			Title:       it.Title,
			Link:        it.Link,
			Description: itemDescription(it),
			PublishedAt: it.PublishedParsed,
		})
	}

	return &Result{Title: feed.Title, Items: items}, nil
}

// ItemID returns the identity of a feed item: the GUID when present,
// falling back to a SHA-256 hash of title+link for feeds with unstable
// or missing GUIDs.
func ItemID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	h := sha256.Sum256([]byte(item.Title + "|" + item.Link))
	return fmt.Sprintf("sha256:%x", h[:16])
}

func itemDescription(item *gofeed.Item) string {
	if item.Description != "" {
		return item.Description
	}
	return item.Content
}
