package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/gofeed"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/sample.xml")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

func TestFetch(t *testing.T) {
	xml := loadFixture(t)

	tests := []struct {
		name      string
		transport *mockTransport
		wantTitle string
		wantItems int
		wantErr   bool
	}{
		{
			name:      "successful fetch",
			transport: &mockTransport{body: xml, statusCode: 200},
			wantTitle: "Tech Digest",
			wantItems: 5,
		},
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
			wantErr:   true,
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			wantErr:   true,
		},
		{
			name:      "invalid xml",
			transport: &mockTransport{body: "not xml at all", statusCode: 200},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.transport)
			res, err := f.Fetch(context.Background(), "https://example.com/rss")

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if diff := cmp.Diff(tt.wantTitle, res.Title); diff != "" {
				t.Errorf("title mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantItems, len(res.Items)); diff != "" {
				t.Errorf("item count mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchNormalizesItems(t *testing.T) {
	xml := loadFixture(t)
	f := New(&mockTransport{body: xml, statusCode: 200})

	res, err := f.Fetch(context.Background(), "https://example.com/rss")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	first := res.Items[0]
	if diff := cmp.Diff("item-5", first.ID); diff != "" {
		t.Errorf("ID mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("AI Breakthrough in Robotics", first.Title); diff != "" {
		t.Errorf("title mismatch (-want +got):\n%s", diff)
	}
	if first.PublishedAt == nil {
		t.Error("expected PublishedAt to be parsed")
	}
}

func TestItemID(t *testing.T) {
	tests := []struct {
		name    string
		item    *gofeed.Item
		wantID  string
		hasHash bool
	}{
		{
			name:   "with guid",
			item:   &gofeed.Item{GUID: "abc-123"},
			wantID: "abc-123",
		},
		{
			name:    "without guid generates hash",
			item:    &gofeed.Item{Title: "Post Without GUID", Link: "https://example.com/post-1"},
			hasHash: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ItemID(tt.item)
			if tt.hasHash {
				if !strings.HasPrefix(got, "sha256:") {
					t.Errorf("expected sha256 prefix, got %q", got)
				}
				return
			}
			if diff := cmp.Diff(tt.wantID, got); diff != "" {
				t.Errorf("ID mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestItemDescriptionFallsBackToContent(t *testing.T) {
	got := itemDescription(&gofeed.Item{Content: "full content"})
	if diff := cmp.Diff("full content", got); diff != "" {
		t.Errorf("description mismatch (-want +got):\n%s", diff)
	}

	got = itemDescription(&gofeed.Item{Description: "summary", Content: "full content"})
	if diff := cmp.Diff("summary", got); diff != "" {
		t.Errorf("description mismatch (-want +got):\n%s", diff)
	}
}
