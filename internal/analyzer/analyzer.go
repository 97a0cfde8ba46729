package analyzer

import (
	"context"
	"fmt"
	"log"
	"time"

	"feedpulse/internal/config"
	"feedpulse/internal/domain/feed"
	"feedpulse/internal/domain/health"
	"feedpulse/internal/repository"

	"github.com/google/uuid"
)

const (
	shortWindow = 7 * 24 * time.Hour
	longWindow  = 30 * 24 * time.Hour
)

// Analyzer builds a full health dashboard for one feed source from its
// recent article and fetch history. It never partially mutates a
// dashboard; every call recomputes the whole view.
type Analyzer struct {
	cfg       config.HealthConfig
	sources   repository.FeedSourceRepository
	instances repository.FeedInstanceRepository
	metrics   repository.HealthMetricRepository
	articles  repository.ArticleRepository
	logger    *log.Logger
}

func New(
	cfg config.HealthConfig,
	sources repository.FeedSourceRepository,
	instances repository.FeedInstanceRepository,
	metrics repository.HealthMetricRepository,
	articles repository.ArticleRepository,
	logger *log.Logger,
) *Analyzer {
	if logger == nil {
		logger = log.Default()
	}
	return &Analyzer{
		cfg:       cfg,
		sources:   sources,
		instances: instances,
		metrics:   metrics,
		articles:  articles,
		logger:    logger,
	}
}

// Analyze computes the dashboard for a source. Missing history is not an
// error: affected groups degrade to their documented empty baselines.
func (a *Analyzer) Analyze(ctx context.Context, sourceID uuid.UUID) (*health.Dashboard, error) {
	if a == nil {
		return nil, fmt.Errorf("nil analyzer")
	}

	src, err := a.sources.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	// Double the long window so the 30-day trend has a prior period to
	// compare against. Every group except the volume trends still reads
	// the 30-day slice.
	history, err := a.articles.ListSince(ctx, sourceID, now.Add(-2*longWindow))
	if err != nil {
		a.logger.Printf("[Analyzer] article window read failed source=%s err=%v", sourceID, err)
		history = nil
	}
	articles := articlesSince(history, now.Add(-longWindow))
	records, err := a.metrics.ListSince(ctx, sourceID, now.Add(-shortWindow))
	if err != nil {
		a.logger.Printf("[Analyzer] metric window read failed source=%s err=%v", sourceID, err)
		records = nil
	}

	d := &health.Dashboard{
		SourceID:    src.ID,
		SourceName:  src.Name,
		GeneratedAt: now,
	}

	d.Volume = computeVolume(history, now, a.cfg)
	d.Quality = computeQuality(articles)
	d.Credibility = computeCredibility(articles)
	d.Technical = computeTechnical(records)
	d.Relevance = computeRelevance(articles, now)
	d.Spam = computeSpam(articles)
	d.Localization = computeLocalization(articles, src.Language)

	d.OverallScore = a.overallScore(d)
	d.HealthStatus = health.StatusForScore(d.OverallScore)
	d.Alerts = a.buildAlerts(src, d, now)
	d.Recommendations = buildRecommendations(d)

	return d, nil
}

// overallScore is the weighted combination of the five scoring groups.
// Spam and localization inform alerts and recommendations only.
func (a *Analyzer) overallScore(d *health.Dashboard) float64 {
	weightSum := a.cfg.WeightVolume + a.cfg.WeightQuality + a.cfg.WeightCredibility +
		a.cfg.WeightTechnical + a.cfg.WeightRelevance
	if weightSum <= 0 {
		return 0
	}

	total := d.Volume.Score*a.cfg.WeightVolume +
		d.Quality.Score*a.cfg.WeightQuality +
		d.Credibility.Score*a.cfg.WeightCredibility +
		d.Technical.Score*a.cfg.WeightTechnical +
		d.Relevance.Score*a.cfg.WeightRelevance

	return clampScore100(total / weightSum)
}

func (a *Analyzer) buildAlerts(src *feed.Source, d *health.Dashboard, now time.Time) []health.Alert {
	alerts := make([]health.Alert, 0, 3)

	if d.Volume.DataAvailable && d.Volume.IsVolumeAnomaly {
		alerts = append(alerts, health.Alert{
			ID:        uuid.New(),
			SourceID:  src.ID,
			Severity:  health.SeverityWarning,
			Type:      "volume_anomaly",
			Message:   fmt.Sprintf("daily article volume %.1f is outside the configured band [%.0f, %.0f]", d.Volume.ArticlesPerDay, a.cfg.MinArticlesPerDay, a.cfg.MaxArticlesPerDay),
			CreatedAt: now,
		})
	}

	if d.Quality.DataAvailable && d.Quality.MissingContentPercentage > 50 {
		alerts = append(alerts, health.Alert{
			ID:        uuid.New(),
			SourceID:  src.ID,
			Severity:  health.SeverityError,
			Type:      "missing_content",
			Message:   fmt.Sprintf("%.1f%% of recent articles arrive with near-empty content", d.Quality.MissingContentPercentage),
			CreatedAt: now,
		})
	}

	if d.Technical.DataAvailable && d.Technical.UptimePercentage < a.cfg.MinUptimePercent {
		alerts = append(alerts, health.Alert{
			ID:        uuid.New(),
			SourceID:  src.ID,
			Severity:  health.SeverityCritical,
			Type:      "low_uptime",
			Message:   fmt.Sprintf("uptime %.1f%% is below the %.0f%% minimum", d.Technical.UptimePercentage, a.cfg.MinUptimePercent),
			CreatedAt: now,
		})
	}

	return alerts
}

// buildRecommendations derives advisory text from the same thresholds that
// drive alerts. The engine never acts on these itself.
func buildRecommendations(d *health.Dashboard) []string {
	recs := make([]string, 0, 4)

	if !d.Volume.DataAvailable || d.Volume.ArticlesPerDay < 1 {
		recs = append(recs, "article volume is very low; consider finding additional feeds for this source")
	}
	if d.Quality.DataAvailable && d.Quality.MissingContentPercentage > 50 {
		recs = append(recs, "most articles arrive without body content; implement a content-extraction fallback")
	}
	if d.Credibility.DataAvailable && (d.Credibility.ClickbaitScore > 30 || len(d.Credibility.SuspiciousPatterns) > 0) {
		recs = append(recs, "review feed credibility: clickbait or suspicious publishing patterns detected")
	}
	if d.Technical.DataAvailable && d.Technical.ErrorRate > 0.25 {
		recs = append(recs, "fetch error rate is high; verify the feed address and consider a slower refresh tier")
	}
	if d.Spam.DataAvailable && d.Spam.Score < 50 {
		recs = append(recs, "spam indicators are elevated; review suspicious keywords and advertisement ratio")
	}

	return recs
}

func clampScore100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
