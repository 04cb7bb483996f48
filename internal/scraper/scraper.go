// Package scraper implements the generic web crawl fetch strategy.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/mfenderov/contentloop/internal/processor"
	"github.com/mfenderov/contentloop/pkg/models"
)

// Config holds scraper configuration.
type Config struct {
	Delay       time.Duration
	MaxDepth    int
	FollowLinks bool
	UserAgent   string
	Timeout     time.Duration
}

// Scraper crawls a site starting at a source URL and returns its pages.
type Scraper struct {
	config    Config
	processor *processor.Processor
}

// New creates a new Scraper with the given configuration.
func New(config Config) *Scraper {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "contentloop/1.0"
	}
	if config.MaxDepth == 0 {
		config.MaxDepth = 1
	}
	return &Scraper{config: config, processor: processor.New()}
}

// Fetch crawls src.URL and returns at most limit pages. Links are followed
// only within the start host.
func (s *Scraper) Fetch(ctx context.Context, src models.Source, limit int) ([]models.FetchedItem, error) {
	startURL := src.URL
	parsedURL, err := url.Parse(startURL)
	if err != nil || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid source url %q", startURL)
	}

	var (
		mu    sync.Mutex
		items []models.FetchedItem
	)
	full := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return limit > 0 && len(items) >= limit
	}

	slog.Debug("starting crawl", "url", startURL, "max_depth", s.config.MaxDepth, "limit", limit)

	c := colly.NewCollector(
		colly.MaxDepth(s.config.MaxDepth),
		colly.UserAgent(s.config.UserAgent),
	)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       s.config.Delay,
		Parallelism: 1,
	})
	c.SetRequestTimeout(s.config.Timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil || full() {
			r.Abort()
		}
	})

	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode >= 400 || full() {
			return
		}
		pageURL := r.Request.URL.String()
		contentType := r.Headers.Get("Content-Type")
		if !strings.Contains(contentType, "html") && !strings.Contains(contentType, "markdown") && !strings.HasPrefix(contentType, "text/") {
			slog.Debug("skipping non-text page", "url", pageURL, "content_type", contentType)
			return
		}

		page, err := s.processor.Process(pageURL, contentType, string(r.Body))
		if err != nil {
			slog.Debug("failed to process page", "url", pageURL, "error", err)
			return
		}
		if strings.TrimSpace(page.Body) == "" {
			return
		}

		mu.Lock()
		items = append(items, models.FetchedItem{
			URL:         pageURL,
			Title:       page.Title,
			Body:        page.Body,
			Author:      page.Author,
			PublishedAt: page.PublishedAt,
		})
		mu.Unlock()
	})

	if s.config.FollowLinks {
		c.OnHTML("a[href]", func(e *colly.HTMLElement) {
			link := e.Request.AbsoluteURL(e.Attr("href"))
			linkURL, err := url.Parse(link)
			if err != nil || linkURL.Host != parsedURL.Host {
				return
			}
			e.Request.Visit(link)
		})
	}

	if err := c.Visit(startURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", startURL, err)
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return items, err
	}

	slog.Debug("crawl complete", "url", startURL, "pages", len(items))
	return items, nil
}
