package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"feedpulse/internal/domain/health"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Wire</title>
    <description>World news</description>
    <language>en</language>
    <item>
      <title>First story</title>
      <link>https://example.com/a</link>
      <guid>guid-a</guid>
      <description>Summary of the first story.</description>
      <pubDate>Mon, 24 Aug 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Second story</title>
      <link>https://example.com/b</link>
      <guid>guid-b</guid>
      <description>Summary of the second story.</description>
    </item>
  </channel>
</rss>`

func TestFeedFetcher_ParsesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	f := NewFeedFetcher(5 * time.Second)
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if res.HTTPStatus != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.HTTPStatus)
	}
	if res.Meta.Title != "Example Wire" || res.Meta.Language != "en" {
		t.Fatalf("unexpected metadata: %+v", res.Meta)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Items))
	}
	if res.Items[0].Title != "First story" || res.Items[0].GUID != "guid-a" {
		t.Fatalf("unexpected first item: %+v", res.Items[0])
	}
	if res.Items[0].PublishedAt == nil {
		t.Fatalf("expected a parsed publish time")
	}
	// Body falls back to the description when the feed has no content tag.
	if res.Items[1].Body != "Summary of the second story." {
		t.Fatalf("unexpected body fallback: %q", res.Items[1].Body)
	}
}

func TestFeedFetcher_ClientErrorIsTerminal(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFeedFetcher(5 * time.Second)
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected an error")
	}

	fe := Classify(err)
	if fe.Kind != health.ErrorHTTP {
		t.Fatalf("expected http error kind, got %s", fe.Kind)
	}
	if fe.HTTPStatus != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", fe.HTTPStatus)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("4xx must not be retried, saw %d requests", got)
	}
}

func TestFeedFetcher_ServerErrorIsRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFeedFetcher(5 * time.Second)
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected an error")
	}

	fe := Classify(err)
	if fe.Kind != health.ErrorHTTP || fe.HTTPStatus != http.StatusBadGateway {
		t.Fatalf("unexpected classification: %+v", fe)
	}
	if got := atomic.LoadInt32(&hits); got != int32(maxRetries+1) {
		t.Fatalf("expected %d attempts, saw %d", maxRetries+1, got)
	}
}

func TestFeedFetcher_MalformedBodyIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not a feed document")
	}))
	defer srv.Close()

	f := NewFeedFetcher(5 * time.Second)
	res, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected a parse error")
	}
	if fe := Classify(err); fe.Kind != health.ErrorParse {
		t.Fatalf("expected parse kind, got %s", fe.Kind)
	}
	if res == nil || res.HTTPStatus != http.StatusOK {
		t.Fatalf("parse failures still carry the response status: %+v", res)
	}
}

func TestFeedFetcher_EmptyAddress(t *testing.T) {
	f := NewFeedFetcher(time.Second)
	if _, err := f.Fetch(context.Background(), "  "); err == nil {
		t.Fatalf("expected an error for an empty address")
	}
}

func TestClassify(t *testing.T) {
	if Classify(nil) != nil {
		t.Fatalf("nil error must classify to nil")
	}

	known := newHTTPError(503, "https://example.com/feed")
	if got := Classify(fmt.Errorf("wrapped: %w", known)); got != known {
		t.Fatalf("expected the wrapped FetchError back, got %+v", got)
	}

	if got := Classify(context.DeadlineExceeded); got.Kind != health.ErrorTimeout {
		t.Fatalf("expected timeout kind, got %s", got.Kind)
	}

	if got := Classify(errors.New("connection refused")); got.Kind != health.ErrorDNS {
		t.Fatalf("unknown transport errors fall back to the network kind, got %s", got.Kind)
	}
}
