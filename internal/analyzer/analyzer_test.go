package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"feedpulse/internal/config"
	"feedpulse/internal/domain/feed"
	"feedpulse/internal/domain/health"
	"feedpulse/internal/repository"

	"github.com/google/uuid"
)

type stubSources struct {
	src *feed.Source
	err error
}

func (s stubSources) Create(context.Context, *feed.Source) error { return nil }
func (s stubSources) GetByID(context.Context, uuid.UUID) (*feed.Source, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.src, nil
}
func (s stubSources) List(context.Context, bool, int, int) ([]feed.Source, error) { return nil, nil }
func (s stubSources) SetActive(context.Context, uuid.UUID, bool) error            { return nil }
func (s stubSources) UpdateQualityScore(context.Context, uuid.UUID, float64) error {
	return nil
}

type stubMetrics struct {
	records []health.MetricRecord
}

func (s stubMetrics) Append(context.Context, *health.MetricRecord) error { return nil }
func (s stubMetrics) ListSince(context.Context, uuid.UUID, time.Time) ([]health.MetricRecord, error) {
	return s.records, nil
}
func (s stubMetrics) ListSinceByInstance(context.Context, uuid.UUID, time.Time) ([]health.MetricRecord, error) {
	return s.records, nil
}

type stubArticles struct {
	articles []feed.Article
}

func (s stubArticles) UpsertBatch(context.Context, []feed.Article) (int, error) { return 0, nil }
func (s stubArticles) ListSince(context.Context, uuid.UUID, time.Time) ([]feed.Article, error) {
	return s.articles, nil
}

func testHealthConfig() config.HealthConfig {
	return config.HealthConfig{
		WeightVolume:      0.20,
		WeightQuality:     0.25,
		WeightCredibility: 0.20,
		WeightTechnical:   0.25,
		WeightRelevance:   0.10,
		MinArticlesPerDay: 1,
		MaxArticlesPerDay: 200,
		MinUptimePercent:  90,
	}
}

func testSource() *feed.Source {
	return &feed.Source{
		ID:       uuid.New(),
		Name:     "Example Wire",
		Provider: feed.ProviderFeed,
		Language: "en",
		IsActive: true,
	}
}

func newTestAnalyzer(sources stubSources, metrics stubMetrics, articles stubArticles) *Analyzer {
	logger := log.New(io.Discard, "", 0)
	return New(testHealthConfig(), sources, nil, metrics, articles, logger)
}

// healthyArticles spreads well-formed articles across the last week.
func healthyArticles(src *feed.Source, n int, now time.Time) []feed.Article {
	out := make([]feed.Article, 0, n)
	for i := 0; i < n; i++ {
		published := now.Add(-time.Duration(i*8) * time.Hour)
		created := published.Add(30 * time.Minute)
		out = append(out, feed.Article{
			ID:          uuid.New(),
			SourceID:    src.ID,
			Title:       fmt.Sprintf("Parliament debates new economy policy, session %d", i),
			Link:        fmt.Sprintf("https://example.com/news/%d", i),
			Author:      fmt.Sprintf("Reporter %d", i%4),
			Content:     "The government announced a new policy today. Markets reacted with caution. Analysts said the decision could reshape trade for years to come.",
			Description: "A summary of today's policy announcement.",
			GUID:        fmt.Sprintf("guid-%d", i),
			Language:    "en",
			PublishedAt: &published,
			CreatedAt:   created,
		})
	}
	return out
}

func healthyRecords(n int, now time.Time) []health.MetricRecord {
	out := make([]health.MetricRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, health.MetricRecord{
			ID:           uuid.New(),
			CheckedAt:    now.Add(-time.Duration(i) * time.Hour),
			ResponseTime: 150 * time.Millisecond,
			IsAvailable:  true,
			HTTPStatus:   200,
			ArticlesNew:  2,
		})
	}
	return out
}

func TestAnalyze_EmptyWindowsReturnBaselines(t *testing.T) {
	src := testSource()
	a := newTestAnalyzer(stubSources{src: src}, stubMetrics{}, stubArticles{})

	d, err := a.Analyze(context.Background(), src.ID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if d.Volume.DataAvailable || d.Quality.DataAvailable || d.Credibility.DataAvailable ||
		d.Technical.DataAvailable || d.Relevance.DataAvailable || d.Spam.DataAvailable ||
		d.Localization.DataAvailable {
		t.Fatalf("expected no group to report data: %+v", d)
	}
	if d.Volume.IsVolumeAnomaly {
		t.Fatalf("empty window must not flag a volume anomaly")
	}
	if d.Quality.MissingContentPercentage != 100 {
		t.Fatalf("expected 100%% missing content baseline, got %v", d.Quality.MissingContentPercentage)
	}
	if d.OverallScore != 0 {
		t.Fatalf("expected overall 0, got %v", d.OverallScore)
	}
	if d.HealthStatus != health.StatusDown {
		t.Fatalf("expected down status, got %s", d.HealthStatus)
	}
	if len(d.Alerts) != 0 {
		t.Fatalf("no-data windows must not alert, got %v", d.Alerts)
	}
	if len(d.Recommendations) == 0 {
		t.Fatalf("expected a low-volume recommendation")
	}
}

func TestAnalyze_HealthySourceScoresInRange(t *testing.T) {
	src := testSource()
	now := time.Now().UTC()
	a := newTestAnalyzer(
		stubSources{src: src},
		stubMetrics{records: healthyRecords(20, now)},
		stubArticles{articles: healthyArticles(src, 21, now)},
	)

	d, err := a.Analyze(context.Background(), src.ID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	groups := map[string]float64{
		"volume":       d.Volume.Score,
		"quality":      d.Quality.Score,
		"credibility":  d.Credibility.Score,
		"technical":    d.Technical.Score,
		"relevance":    d.Relevance.Score,
		"spam":         d.Spam.Score,
		"localization": d.Localization.Score,
		"overall":      d.OverallScore,
	}
	for name, score := range groups {
		if score < 0 || score > 100 {
			t.Fatalf("%s score out of range: %v", name, score)
		}
	}

	if d.OverallScore == 0 {
		t.Fatalf("expected nonzero overall score for a healthy source")
	}
	if d.HealthStatus != health.StatusForScore(d.OverallScore) {
		t.Fatalf("status %s inconsistent with score %v", d.HealthStatus, d.OverallScore)
	}
	if d.Technical.UptimePercentage != 100 {
		t.Fatalf("expected 100%% uptime, got %v", d.Technical.UptimePercentage)
	}
	for _, alert := range d.Alerts {
		if alert.Type == "low_uptime" {
			t.Fatalf("healthy source must not raise a low_uptime alert")
		}
	}
}

func TestAnalyze_LowUptimeRaisesCriticalAlert(t *testing.T) {
	src := testSource()
	now := time.Now().UTC()

	records := healthyRecords(2, now)
	for i := 0; i < 8; i++ {
		records = append(records, health.MetricRecord{
			ID:           uuid.New(),
			CheckedAt:    now.Add(-time.Duration(i+3) * time.Hour),
			ResponseTime: time.Second,
			IsAvailable:  false,
			ErrorKind:    health.ErrorTimeout,
			ErrorMessage: "deadline exceeded",
		})
	}

	a := newTestAnalyzer(
		stubSources{src: src},
		stubMetrics{records: records},
		stubArticles{articles: healthyArticles(src, 10, now)},
	)

	d, err := a.Analyze(context.Background(), src.ID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	var found *health.Alert
	for i := range d.Alerts {
		if d.Alerts[i].Type == "low_uptime" {
			found = &d.Alerts[i]
		}
	}
	if found == nil {
		t.Fatalf("expected a low_uptime alert, got %v", d.Alerts)
	}
	if found.Severity != health.SeverityCritical {
		t.Fatalf("expected critical severity, got %s", found.Severity)
	}
	if d.Technical.TimeoutCount != 8 {
		t.Fatalf("expected 8 timeouts counted, got %d", d.Technical.TimeoutCount)
	}
}

func TestAnalyze_SourceNotFound(t *testing.T) {
	a := newTestAnalyzer(stubSources{err: repository.ErrFeedSourceNotFound}, stubMetrics{}, stubArticles{})
	_, err := a.Analyze(context.Background(), uuid.New())
	if !errors.Is(err, repository.ErrFeedSourceNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestStatusForScore(t *testing.T) {
	cases := []struct {
		score float64
		want  health.Status
	}{
		{92, health.StatusExcellent},
		{90, health.StatusExcellent},
		{80, health.StatusGood},
		{75, health.StatusGood},
		{60, health.StatusWarning},
		{50, health.StatusWarning},
		{30, health.StatusCritical},
		{25, health.StatusCritical},
		{10, health.StatusDown},
		{0, health.StatusDown},
	}
	for _, tc := range cases {
		if got := health.StatusForScore(tc.score); got != tc.want {
			t.Fatalf("score %v: expected %s, got %s", tc.score, tc.want, got)
		}
	}
}

func TestComputeSpam_FlagsIndicators(t *testing.T) {
	now := time.Now().UTC()
	stamp := now.Add(-time.Hour)
	articles := []feed.Article{
		{Title: "CLICK HERE FOR FREE MONEY RIGHT NOW", Content: "free money guaranteed win", PublishedAt: &stamp, CreatedAt: now},
		{Title: "Sponsored: miracle cure revealed", Content: "sponsored advertisement content", PublishedAt: &stamp, CreatedAt: now},
		{Title: "Regular headline about trade policy", Content: "ordinary reporting text with enough length to pass checks", PublishedAt: &stamp, CreatedAt: now},
	}

	m := computeSpam(articles)
	if !m.DataAvailable {
		t.Fatalf("expected data available")
	}
	if len(m.SuspiciousKeywords) == 0 {
		t.Fatalf("expected spam keywords detected")
	}
	if m.Score >= 80 {
		t.Fatalf("expected a depressed spam score, got %v", m.Score)
	}
	if m.IdenticalTimestamps == 0 {
		t.Fatalf("expected identical timestamps counted")
	}
}

func TestComputeVolume_TrendWindows(t *testing.T) {
	now := time.Now().UTC()
	var articles []feed.Article
	add := func(age time.Duration, n int) {
		for i := 0; i < n; i++ {
			created := now.Add(-age)
			articles = append(articles, feed.Article{CreatedAt: created, PublishedAt: &created})
		}
	}
	add(2*24*time.Hour, 4)  // trailing week
	add(10*24*time.Hour, 2) // week before that
	add(45*24*time.Hour, 2) // prior 30-day period

	m := computeVolume(articles, now, testHealthConfig())
	if !m.DataAvailable {
		t.Fatalf("expected data available")
	}

	// 4 vs 2 in the adjacent 7-day windows.
	if diff := m.Trend7d - 1.0; diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("expected 7-day trend 1.0, got %v", m.Trend7d)
	}
	// 6 in the last 30 days vs 2 in the 30 before that.
	if diff := m.Trend30d - 2.0; diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("expected 30-day trend 2.0, got %v", m.Trend30d)
	}
}

func TestComputeQuality_DuplicatesLowerScore(t *testing.T) {
	published := time.Now().UTC().Add(-2 * time.Hour)
	base := feed.Article{
		Author:      "Desk",
		Content:     "Body text long enough to not count as missing content for this test case.",
		Description: "desc",
		Language:    "en",
		PublishedAt: &published,
		CreatedAt:   time.Now().UTC(),
	}

	unique := make([]feed.Article, 0, 4)
	for i := 0; i < 4; i++ {
		a := base
		a.Title = fmt.Sprintf("Distinct headline number %d", i)
		unique = append(unique, a)
	}

	duplicated := make([]feed.Article, 0, 4)
	for i := 0; i < 4; i++ {
		a := base
		a.Title = "Same headline every time"
		duplicated = append(duplicated, a)
	}

	uq := computeQuality(unique)
	dq := computeQuality(duplicated)
	if dq.Score >= uq.Score {
		t.Fatalf("expected duplicates to lower the score: %v >= %v", dq.Score, uq.Score)
	}
	if dq.DuplicatePercentage != 75 {
		t.Fatalf("expected 75%% duplicates, got %v", dq.DuplicatePercentage)
	}
}
