package analyzer

import (
	"math"
	"sort"
	"time"

	"feedpulse/internal/config"
	"feedpulse/internal/domain/feed"
	"feedpulse/internal/domain/health"
)

const (
	batchWindow = 5 * time.Minute
	// batchThreshold flags batch publishing when this share of
	// consecutive articles arrive inside batchWindow.
	batchThreshold = 0.30
)

// computeVolume measures publishing volume over the 7-day window. Each
// trend compares its window against the equally sized one before it, so
// the 30-day trend needs the 60-day history. Empty window returns the
// defined no-data baseline: zero rates, anomaly suppressed, score 0.
func computeVolume(articles []feed.Article, now time.Time, cfg config.HealthConfig) health.VolumeMetrics {
	m := health.VolumeMetrics{}
	recent := articlesSince(articles, now.Add(-shortWindow))
	if len(recent) == 0 {
		return m
	}
	m.DataAvailable = true

	days := shortWindow.Hours() / 24
	m.ArticlesPerDay = float64(len(recent)) / days
	m.ArticlesPerHour = float64(len(recent)) / shortWindow.Hours()

	times := publishTimes(recent)
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	if len(times) > 1 {
		var gapTotal time.Duration
		batched := 0
		for i := 1; i < len(times); i++ {
			gap := times[i].Sub(times[i-1])
			gapTotal += gap
			if gap <= batchWindow {
				batched++
			}
		}
		m.AvgGapMinutes = gapTotal.Minutes() / float64(len(times)-1)
		m.Pattern.BatchPublishing = float64(batched)/float64(len(times)-1) > batchThreshold
	}

	m.Pattern.PeakHours = peakHours(times)
	m.Pattern.ConsistencyScore = hourlyConsistency(times)

	m.Trend7d = trendDelta(articles, now, shortWindow)
	m.Trend30d = trendDelta(articles, now, longWindow)

	m.IsVolumeAnomaly = m.ArticlesPerDay < cfg.MinArticlesPerDay || m.ArticlesPerDay > cfg.MaxArticlesPerDay

	score := 100.0
	if m.IsVolumeAnomaly {
		score -= 40
	}
	if m.Pattern.BatchPublishing {
		score -= 10
	}
	// Reward steady publishing: consistency is [0,1].
	score -= (1 - m.Pattern.ConsistencyScore) * 20
	m.Score = clampScore100(score)

	return m
}

func articlesSince(articles []feed.Article, cutoff time.Time) []feed.Article {
	out := make([]feed.Article, 0, len(articles))
	for _, a := range articles {
		if !a.CreatedAt.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out
}

func publishTimes(articles []feed.Article) []time.Time {
	out := make([]time.Time, 0, len(articles))
	for _, a := range articles {
		if a.PublishedAt != nil && !a.PublishedAt.IsZero() {
			out = append(out, a.PublishedAt.UTC())
			continue
		}
		out = append(out, a.CreatedAt.UTC())
	}
	return out
}

// peakHours returns up to three hours-of-day with the highest counts.
func peakHours(times []time.Time) []int {
	if len(times) == 0 {
		return nil
	}
	counts := [24]int{}
	for _, t := range times {
		counts[t.Hour()]++
	}
	type hc struct{ hour, count int }
	all := make([]hc, 0, 24)
	for h, c := range counts {
		if c > 0 {
			all = append(all, hc{h, c})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].hour < all[j].hour
	})
	n := 3
	if len(all) < n {
		n = len(all)
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, all[i].hour)
	}
	sort.Ints(out)
	return out
}

// hourlyConsistency scores variance of hourly counts against a uniform
// expectation: 1.0 is perfectly even publishing, 0 is one burst.
func hourlyConsistency(times []time.Time) float64 {
	if len(times) == 0 {
		return 0
	}
	counts := [24]int{}
	for _, t := range times {
		counts[t.Hour()]++
	}
	mean := float64(len(times)) / 24.0
	var variance float64
	for _, c := range counts {
		d := float64(c) - mean
		variance += d * d
	}
	variance /= 24.0

	// Worst case: everything in one hour.
	worst := mean * mean * 23.0 / 24.0 * 24.0
	if worst <= 0 {
		return 1
	}
	ratio := math.Sqrt(variance) / math.Sqrt(worst)
	return feed.ClampScore(1 - ratio)
}

// trendDelta compares the trailing window against the window before it,
// as a relative change in [-1, +inf).
func trendDelta(articles []feed.Article, now time.Time, window time.Duration) float64 {
	currentCutoff := now.Add(-window)
	priorCutoff := now.Add(-2 * window)

	var current, prior int
	for _, a := range articles {
		switch {
		case !a.CreatedAt.Before(currentCutoff):
			current++
		case !a.CreatedAt.Before(priorCutoff):
			prior++
		}
	}
	if prior == 0 {
		if current == 0 {
			return 0
		}
		return 1
	}
	return (float64(current) - float64(prior)) / float64(prior)
}
