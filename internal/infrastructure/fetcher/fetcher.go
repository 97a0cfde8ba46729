package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"
)

// Item is one normalized entry returned by a fetch, before any identity or
// persistence concerns apply.
type Item struct {
	Title       string
	Link        string
	Author      string
	Body        string
	Description string
	GUID        string
	PublishedAt *time.Time
}

type Metadata struct {
	Title       string
	Description string
	Language    string
}

type Result struct {
	Items        []Item
	Meta         Metadata
	HTTPStatus   int
	ResponseTime time.Duration
}

// Fetcher retrieves and normalizes one pollable address.
type Fetcher interface {
	Fetch(ctx context.Context, address string) (*Result, error)
}

const (
	maxRetries      = 2
	retryBackoff    = 500 * time.Millisecond
	defaultTimeout  = 15 * time.Second
	perHostRate     = 1.0 // requests per second per host
	perHostBurst    = 2
	maxResponseSize = 10 << 20
)

// FeedFetcher fetches RSS/Atom/JSON feed documents over HTTP and parses
// them with gofeed.
type FeedFetcher struct {
	client *http.Client
	parser *gofeed.Parser

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewFeedFetcher(timeout time.Duration) *FeedFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &FeedFetcher{
		client:   &http.Client{Timeout: timeout},
		parser:   gofeed.NewParser(),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *FeedFetcher) Fetch(ctx context.Context, address string) (*Result, error) {
	if f == nil {
		return nil, fmt.Errorf("nil fetcher")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("empty address")
	}

	if err := f.waitHost(ctx, address); err != nil {
		return nil, err
	}

	start := time.Now()
	body, status, err := f.get(ctx, address)
	elapsed := time.Since(start)
	if err != nil {
		return &Result{HTTPStatus: status, ResponseTime: elapsed}, err
	}

	parsed, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return &Result{HTTPStatus: status, ResponseTime: elapsed}, newParseError(address, err)
	}

	res := &Result{
		Items:        make([]Item, 0, len(parsed.Items)),
		HTTPStatus:   status,
		ResponseTime: elapsed,
		Meta: Metadata{
			Title:       parsed.Title,
			Description: parsed.Description,
			Language:    parsed.Language,
		},
	}

	for _, entry := range parsed.Items {
		if entry == nil {
			continue
		}
		item := Item{
			Title:       strings.TrimSpace(entry.Title),
			Link:        strings.TrimSpace(entry.Link),
			Body:        entry.Content,
			Description: entry.Description,
			GUID:        strings.TrimSpace(entry.GUID),
		}
		if entry.PublishedParsed != nil {
			t := entry.PublishedParsed.UTC()
			item.PublishedAt = &t
		} else if entry.UpdatedParsed != nil {
			t := entry.UpdatedParsed.UTC()
			item.PublishedAt = &t
		}
		if entry.Author != nil {
			item.Author = strings.TrimSpace(entry.Author.Name)
		}
		if item.Body == "" {
			item.Body = entry.Description
		}
		res.Items = append(res.Items, item)
	}

	return res, nil
}

// get performs the HTTP request with bounded retries. Retries apply only to
// transport failures and 5xx responses; 4xx is terminal.
func (f *FeedFetcher) get(ctx context.Context, address string) ([]byte, int, error) {
	var lastErr error
	lastStatus := 0

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, lastStatus, classifyTransportError(address, ctx.Err())
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
		if err != nil {
			return nil, 0, newParseError(address, err)
		}
		req.Header.Set("User-Agent", "feedpulse/1.0 (+https://feedpulse.local)")
		req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = classifyTransportError(address, err)
			continue
		}

		status := resp.StatusCode
		if status < 200 || status > 299 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
			lastStatus = status
			lastErr = newHTTPError(status, address)
			if status >= 400 && status < 500 {
				return nil, status, lastErr
			}
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		_ = resp.Body.Close()
		if err != nil {
			lastErr = classifyTransportError(address, err)
			continue
		}
		return body, status, nil
	}

	return nil, lastStatus, lastErr
}

// waitHost applies a per-host politeness limit, creating limiters lazily.
func (f *FeedFetcher) waitHost(ctx context.Context, address string) error {
	u, err := url.Parse(address)
	if err != nil || u.Host == "" {
		return nil
	}
	f.mu.Lock()
	lim, ok := f.limiters[u.Host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(perHostRate), perHostBurst)
		f.limiters[u.Host] = lim
	}
	f.mu.Unlock()
	if err := lim.Wait(ctx); err != nil {
		return classifyTransportError(address, err)
	}
	return nil
}
