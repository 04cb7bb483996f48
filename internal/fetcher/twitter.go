package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mfenderov/contentloop/pkg/models"
)

// TwitterConfig configures the social search fetcher.
type TwitterConfig struct {
	BaseURL     string // "https://api.twitter.com"
	BearerToken string
	Timeout     time.Duration
}

// Twitter searches recent posts through the v2 recent search API.
type Twitter struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewTwitter creates a social search fetcher. A bearer token is required.
func NewTwitter(config TwitterConfig) (*Twitter, error) {
	if config.BearerToken == "" {
		return nil, fmt.Errorf("bearer token is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.twitter.com"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &Twitter{
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		token:      config.BearerToken,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

type searchResponse struct {
	Data []struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		AuthorID  string    `json:"author_id"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Fetch runs the source's search query and returns up to limit posts.
func (t *Twitter) Fetch(ctx context.Context, src models.Source, limit int) ([]models.FetchedItem, error) {
	query := SearchQuery(src.URL)
	if query == "" {
		return nil, fmt.Errorf("cannot build a search query from %q", src.URL)
	}

	// The API accepts 10..100 results per page.
	pageSize := min(max(limit, 10), 100)

	q := url.Values{}
	q.Set("query", query)
	q.Set("max_results", fmt.Sprint(pageSize))
	q.Set("tweet.fields", "created_at,author_id")
	q.Set("expansions", "author_id")
	q.Set("user.fields", "username")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/2/tweets/search/recent?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(sr.Data) == 0 && len(sr.Errors) > 0 {
		return nil, fmt.Errorf("search error: %s", sr.Errors[0].Message)
	}

	users := make(map[string]string, len(sr.Includes.Users))
	for _, u := range sr.Includes.Users {
		users[u.ID] = u.Username
	}

	var items []models.FetchedItem
	for _, post := range sr.Data {
		username := users[post.AuthorID]
		handle := username
		if handle == "" {
			handle = "i"
		}
		created := post.CreatedAt.UTC()
		items = append(items, models.FetchedItem{
			URL:         fmt.Sprintf("https://x.com/%s/status/%s", handle, post.ID),
			Title:       headline(post.Text),
			Body:        post.Text,
			Author:      username,
			PublishedAt: &created,
		})
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

// SearchQuery turns a source descriptor into a search query:
// a search URL yields its q parameter, a profile URL yields "from:handle",
// anything else is used verbatim.
func SearchQuery(descriptor string) string {
	descriptor = strings.TrimSpace(descriptor)
	u, err := url.Parse(descriptor)
	if err != nil || u.Host == "" {
		return descriptor
	}
	if q := u.Query().Get("q"); q != "" {
		return q
	}
	handle := strings.Trim(u.Path, "/")
	if handle == "" || strings.Contains(handle, "/") {
		return ""
	}
	return "from:" + handle + " -is:retweet"
}

func headline(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	if r := []rune(line); len(r) > 80 {
		return string(r[:80]) + "…"
	}
	return line
}
