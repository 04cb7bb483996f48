package fetcher

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mfenderov/contentloop/pkg/models"
)

const listingJSON = `{
  "data": {
    "children": [
      {"data": {"title": "Weekly thread", "stickied": true, "permalink": "/r/golang/comments/0/weekly/"}},
      {"data": {"title": "Generics in practice", "selftext": "Here is what we learned.", "permalink": "/r/golang/comments/1/generics/", "author": "gopher", "created_utc": 1717000000}},
      {"data": {"title": "Link post", "url": "https://go.dev/blog/x", "permalink": "/r/golang/comments/2/link/", "author": "other", "created_utc": 1717000100}},
      {"data": {"title": "Third", "selftext": "more", "permalink": "/r/golang/comments/3/third/", "created_utc": 1717000200}}
    ]
  }
}`

func TestReddit_Fetch(t *testing.T) {
	var gotPath, gotLimit, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotLimit = r.URL.Query().Get("limit")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(listingJSON))
	}))
	defer server.Close()

	f := NewReddit(RedditConfig{BaseURL: server.URL, UserAgent: "test-agent"})
	items, err := f.Fetch(t.Context(), models.Source{URL: "https://www.reddit.com/r/golang/"}, 2)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if gotPath != "/r/golang/new.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotLimit != "2" || gotUA != "test-agent" {
		t.Errorf("limit = %q, user agent = %q", gotLimit, gotUA)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (stickied skipped, limit applied)", len(items))
	}
	if items[0].Title != "Generics in practice" || items[0].Author != "gopher" {
		t.Errorf("first item = %+v", items[0])
	}
	if items[0].URL != "https://www.reddit.com/r/golang/comments/1/generics/" {
		t.Errorf("URL = %q", items[0].URL)
	}
	if !strings.Contains(items[0].Body, "Here is what we learned.") {
		t.Errorf("Body = %q", items[0].Body)
	}
	if !strings.Contains(items[1].Body, "https://go.dev/blog/x") {
		t.Errorf("link post body should carry the link, got %q", items[1].Body)
	}
	if items[0].PublishedAt == nil || items[0].PublishedAt.Unix() != 1717000000 {
		t.Errorf("PublishedAt = %v", items[0].PublishedAt)
	}
}

func TestReddit_FetchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := NewReddit(RedditConfig{BaseURL: server.URL})
	_, err := f.Fetch(t.Context(), models.Source{URL: "r/golang"}, 5)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("Fetch() error = %v, want status 429", err)
	}
}

func TestSubredditPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://www.reddit.com/r/golang/", "/r/golang", false},
		{"https://old.reddit.com/r/golang/top", "/r/golang", false},
		{"r/golang", "/r/golang", false},
		{"golang", "/r/golang", false},
		{"https://www.reddit.com/", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := subredditPath(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("subredditPath(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("subredditPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
