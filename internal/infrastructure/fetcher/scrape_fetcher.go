package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// ScrapeFetcher handles sources of provider kind "scraper": HTML index
// pages without a feed document. It collects article links and titles from
// anchor tags and falls back to a headless browser when the static crawl
// finds nothing (client-side rendered pages).
type ScrapeFetcher struct {
	timeout  time.Duration
	headless *HeadlessFetcher
}

func NewScrapeFetcher(timeout time.Duration) *ScrapeFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ScrapeFetcher{
		timeout:  timeout,
		headless: NewHeadlessFetcher(timeout),
	}
}

func (s *ScrapeFetcher) Fetch(ctx context.Context, address string) (*Result, error) {
	if s == nil {
		return nil, fmt.Errorf("nil fetcher")
	}
	address = strings.TrimSpace(address)
	host := hostFromAddress(address)
	if host == "" {
		return nil, newParseError(address, fmt.Errorf("no host in address"))
	}

	start := time.Now()
	items, status, err := s.crawl(ctx, address, host)
	elapsed := time.Since(start)
	if err != nil {
		return &Result{HTTPStatus: status, ResponseTime: elapsed}, err
	}

	if len(items) == 0 && s.headless != nil {
		hItems, hErr := s.headless.extractLinks(ctx, address, host)
		if hErr == nil {
			items = hItems
		}
	}

	return &Result{
		Items:        items,
		HTTPStatus:   status,
		ResponseTime: time.Since(start),
		Meta:         Metadata{Title: host},
	}, nil
}

func (s *ScrapeFetcher) crawl(ctx context.Context, address, host string) ([]Item, int, error) {
	c := colly.NewCollector(
		colly.AllowedDomains(host),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.timeout)
	_ = c.Limit(&colly.LimitRule{DomainGlob: "*" + host + "*", Parallelism: 1, Delay: 300 * time.Millisecond})

	now := time.Now().UTC()
	items := make([]Item, 0, 32)
	seen := map[string]struct{}{}
	status := 0
	var crawlErr error

	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := strings.TrimSpace(e.Request.AbsoluteURL(e.Attr("href")))
		title := strings.TrimSpace(e.Text)
		if link == "" || title == "" || len(title) < 15 {
			return
		}
		if !looksLikeArticleLink(link, address) {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		t := now
		items = append(items, Item{Title: title, Link: link, GUID: link, PublishedAt: &t})
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			status = r.StatusCode
			crawlErr = newHTTPError(r.StatusCode, address)
			return
		}
		crawlErr = classifyTransportError(address, err)
	})

	c.OnRequest(func(r *colly.Request) {
		select {
		case <-ctx.Done():
			r.Abort()
		default:
		}
		r.Headers.Set("User-Agent", "feedpulse/1.0 (+https://feedpulse.local)")
	})

	if err := c.Visit(address); err != nil {
		return nil, status, classifyTransportError(address, err)
	}
	c.Wait()

	if crawlErr != nil {
		return nil, status, crawlErr
	}
	return items, status, nil
}

// looksLikeArticleLink filters navigation and asset links: an article link
// stays on the same page path family and has a multi-segment path.
func looksLikeArticleLink(link, base string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	p := strings.Trim(u.Path, "/")
	if p == "" {
		return false
	}
	for _, ext := range []string{".css", ".js", ".png", ".jpg", ".svg", ".ico", ".pdf"} {
		if strings.HasSuffix(strings.ToLower(p), ext) {
			return false
		}
	}
	return strings.Count(p, "/") >= 1 || len(p) > 20
}

func hostFromAddress(address string) string {
	u, err := url.Parse(strings.TrimSpace(address))
	if err != nil {
		return ""
	}
	host := u.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}
