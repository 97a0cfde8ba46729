package analyzer

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"feedpulse/internal/domain/feed"
	"feedpulse/internal/domain/health"
)

var spamKeywords = []string{
	"free money",
	"click here",
	"limited offer",
	"act now",
	"guaranteed win",
	"casino",
	"crypto giveaway",
	"miracle cure",
	"weight loss secret",
	"earn from home",
}

var adMarkers = []string{
	"sponsored",
	"advertisement",
	"promoted content",
	"partner content",
	"promo code",
	"affiliate",
}

// computeSpam reads the same publishing signals as Volume but through a
// spam lens. Score 100 means no spam indicators.
func computeSpam(articles []feed.Article) health.SpamMetrics {
	m := health.SpamMetrics{}
	if len(articles) == 0 {
		return m
	}
	m.DataAvailable = true

	total := float64(len(articles))
	var caps, ads int
	matched := map[string]struct{}{}
	stamps := map[int64]int{}

	for _, a := range articles {
		if excessiveCaps(a.Title) {
			caps++
		}

		text := strings.ToLower(a.Title + " " + a.Description + " " + a.Content)
		for _, kw := range spamKeywords {
			if strings.Contains(text, kw) {
				matched[kw] = struct{}{}
			}
		}
		for _, marker := range adMarkers {
			if strings.Contains(text, marker) {
				ads++
				break
			}
		}

		if a.PublishedAt != nil && !a.PublishedAt.IsZero() {
			stamps[a.PublishedAt.Unix()]++
		}
	}

	m.ExcessiveCapsRatio = float64(caps) / total
	m.AdContentRatio = float64(ads) / total

	for _, c := range stamps {
		if c > 1 {
			m.IdenticalTimestamps += c
		}
	}
	m.BatchPublishCount = batchCount(articles)

	keys := make([]string, 0, len(matched))
	for kw := range matched {
		keys = append(keys, kw)
	}
	sort.Strings(keys)
	m.SuspiciousKeywords = keys

	score := 100.0
	score -= m.ExcessiveCapsRatio * 40
	score -= m.AdContentRatio * 50
	score -= float64(len(m.SuspiciousKeywords)) * 8
	if m.IdenticalTimestamps > 0 {
		score -= 10
	}
	m.Score = clampScore100(score)

	return m
}

// excessiveCaps flags titles where more than half the letters are upper
// case (ignoring short titles and acronym-only fragments).
func excessiveCaps(title string) bool {
	letters, upper := 0, 0
	for _, r := range title {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters >= 10 && float64(upper)/float64(letters) > 0.5
}

func batchCount(articles []feed.Article) int {
	times := publishTimes(articles)
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	batched := 0
	for i := 1; i < len(times); i++ {
		if times[i].Sub(times[i-1]) <= 5*time.Minute {
			batched++
		}
	}
	return batched
}
