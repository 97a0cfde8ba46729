package refresh

import (
	"strings"
	"time"

	"feedpulse/internal/config"
	"feedpulse/internal/domain/feed"
	"feedpulse/internal/domain/health"
)

// languageMultipliers reflect downstream processing cost, not fetch cost:
// non-Latin scripts route through the costlier translation path.
var languageMultipliers = map[string]float64{
	"en": 1.0,
	"es": 1.0,
	"fr": 1.0,
	"de": 1.0,
	"pt": 1.0,
	"it": 1.0,
	"nl": 1.0,
	"ru": 1.2,
	"el": 1.2,
	"he": 1.3,
	"hi": 1.3,
	"th": 1.3,
	"ko": 1.4,
	"ar": 1.4,
	"zh": 1.5,
	"ja": 1.5,
}

// LanguageMultiplier returns 1.0 for unknown or empty languages.
func LanguageMultiplier(lang string) float64 {
	m, ok := languageMultipliers[strings.ToLower(strings.TrimSpace(lang))]
	if !ok {
		return 1.0
	}
	return m
}

// responseTimeBaseline normalizes average response time into [0,1].
const responseTimeBaseline = 10 * time.Second

// Summary is the rolling health input to the interval computation.
type Summary struct {
	// OverallScore is a [0,1] health signal.
	OverallScore float64
	// Freshness is new articles over average articles-per-fetch,
	// clamped to [0,1].
	Freshness float64
	// ConsecutiveFailures feeds the failure backoff multiplier.
	ConsecutiveFailures int
}

// Summarize folds an instance's state and its recent per-fetch records
// into a Summary. With no records the instance's own reliability stands
// alone.
func Summarize(inst *feed.Instance, records []health.MetricRecord) Summary {
	s := Summary{}
	if inst == nil {
		return s
	}
	s.ConsecutiveFailures = inst.ConsecutiveFailures
	s.OverallScore = feed.ClampScore(inst.ReliabilityScore)

	if len(records) == 0 {
		return s
	}

	var newTotal, fetches int
	var responseTotal time.Duration
	for _, rec := range records {
		fetches++
		newTotal += rec.ArticlesNew
		responseTotal += rec.ResponseTime
	}

	if inst.AvgArticlesPerFetch > 0 && fetches > 0 {
		s.Freshness = feed.ClampScore((float64(newTotal) / float64(fetches)) / inst.AvgArticlesPerFetch)
	}

	// Blend reliability with a normalized response-time signal.
	avgResponse := responseTotal / time.Duration(fetches)
	responseScore := 1.0 - float64(avgResponse)/float64(responseTimeBaseline)
	s.OverallScore = feed.ClampScore(0.7*inst.ReliabilityScore + 0.3*feed.ClampScore(responseScore))

	return s
}

// Calculator computes the next polling interval for a feed instance. The
// result is monotone and bounded: never below the tier floor, never above
// its ceiling, regardless of inputs.
type Calculator struct {
	cfg config.RefreshConfig
}

func NewCalculator(cfg config.RefreshConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// NextIntervalMinutes runs the interval feedback step. It is called after
// every poll, success or failure, so failing feeds are re-evaluated each
// cycle.
func (c *Calculator) NextIntervalMinutes(inst *feed.Instance, sourceLanguage string, sum Summary) float64 {
	if inst == nil {
		return 0
	}

	envelope := c.envelope(inst.Tier)

	interval := inst.BaseRefreshMinutes
	if interval <= 0 {
		interval = envelope.BaseMinutes
	}

	interval *= LanguageMultiplier(sourceLanguage)

	if inst.AdaptiveRefresh {
		if sum.OverallScore > 0.8 {
			interval *= c.cfg.GoodHealthFactor
		} else if sum.OverallScore < 0.4 {
			interval *= c.cfg.PoorHealthFactor
		}

		if sum.Freshness > 0.8 {
			interval *= c.cfg.FreshFactor
		} else if sum.Freshness < 0.2 {
			interval *= c.cfg.StaleFactor
		}

		backoff := 1.0 + 0.2*float64(sum.ConsecutiveFailures)
		if backoff > 2.0 {
			backoff = 2.0
		}
		interval *= backoff
	}

	if interval < envelope.BaseMinutes {
		interval = envelope.BaseMinutes
	}
	if interval > envelope.MaxMinutes {
		interval = envelope.MaxMinutes
	}
	return interval
}

func (c *Calculator) envelope(tier feed.RefreshTier) config.TierEnvelope {
	if env, ok := c.cfg.Tiers[string(tier)]; ok && env.MaxMinutes > 0 {
		return env
	}
	return config.TierEnvelope{BaseMinutes: 60, MaxMinutes: 360}
}
