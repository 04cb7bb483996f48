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

// RedditConfig configures the forum listing fetcher.
type RedditConfig struct {
	BaseURL   string // "https://www.reddit.com"
	UserAgent string
	Timeout   time.Duration
}

// Reddit fetches the newest posts of a subreddit through its JSON listing.
type Reddit struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewReddit creates a forum listing fetcher.
func NewReddit(config RedditConfig) *Reddit {
	if config.BaseURL == "" {
		config.BaseURL = "https://www.reddit.com"
	}
	if config.UserAgent == "" {
		config.UserAgent = "contentloop/1.0"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &Reddit{
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		userAgent:  config.UserAgent,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	URL        string  `json:"url"`
	Permalink  string  `json:"permalink"`
	Author     string  `json:"author"`
	CreatedUTC float64 `json:"created_utc"`
	Stickied   bool    `json:"stickied"`
}

// Fetch returns up to limit non-stickied posts from the source's subreddit.
func (r *Reddit) Fetch(ctx context.Context, src models.Source, limit int) ([]models.FetchedItem, error) {
	path, err := subredditPath(src.URL)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	q.Set("raw_json", "1")
	endpoint := r.baseURL + path + "/new.json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("listing error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}

	var items []models.FetchedItem
	for _, child := range listing.Data.Children {
		post := child.Data
		if post.Stickied || post.Title == "" {
			continue
		}
		body := post.Title
		if text := strings.TrimSpace(post.Selftext); text != "" {
			body += "\n\n" + text
		} else if post.URL != "" {
			body += "\n\n" + post.URL
		}
		created := time.Unix(int64(post.CreatedUTC), 0).UTC()
		items = append(items, models.FetchedItem{
			URL:         "https://www.reddit.com" + post.Permalink,
			Title:       post.Title,
			Body:        body,
			Author:      post.Author,
			PublishedAt: &created,
		})
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

// subredditPath accepts "https://www.reddit.com/r/golang/", "r/golang" or "golang".
func subredditPath(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		raw = u.Path
	}
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	switch {
	case len(parts) >= 2 && parts[0] == "r" && parts[1] != "":
		return "/r/" + parts[1], nil
	case len(parts) == 1 && parts[0] != "":
		return "/r/" + parts[0], nil
	}
	return "", fmt.Errorf("cannot find a subreddit in %q", raw)
}
