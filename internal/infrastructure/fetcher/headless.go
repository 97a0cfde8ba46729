package fetcher

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// HeadlessFetcher renders a page in headless Chrome and extracts article
// links that a static crawl cannot see. Used only as a fallback for
// scraper sources.
type HeadlessFetcher struct {
	timeout time.Duration
}

func NewHeadlessFetcher(timeout time.Duration) *HeadlessFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HeadlessFetcher{timeout: timeout}
}

func (h *HeadlessFetcher) extractLinks(ctx context.Context, address, host string) ([]Item, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"),
		)...,
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	reqCtx, reqCancel := context.WithTimeout(browserCtx, h.timeout)
	defer reqCancel()

	var raw [][]string
	err := chromedp.Run(reqCtx,
		chromedp.Navigate(address),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500*time.Millisecond),
		chromedp.EvaluateAsDevTools(`Array.from(document.querySelectorAll('a[href]'))
			.map(a => [a.href, (a.textContent || '').trim()])
			.filter(p => p[0] && p[1].length >= 15)`, &raw),
	)
	if err != nil {
		return nil, classifyTransportError(address, err)
	}

	now := time.Now().UTC()
	seen := map[string]struct{}{}
	items := make([]Item, 0, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			continue
		}
		link := strings.TrimSpace(pair[0])
		title := strings.TrimSpace(pair[1])
		if link == "" || title == "" {
			continue
		}
		if hostFromAddress(link) != host {
			continue
		}
		if !looksLikeArticleLink(link, address) {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		t := now
		items = append(items, Item{Title: title, Link: link, GUID: link, PublishedAt: &t})
	}
	return items, nil
}
