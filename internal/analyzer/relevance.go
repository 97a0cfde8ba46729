package analyzer

import (
	"math"
	"sort"
	"strings"
	"time"

	"feedpulse/internal/domain/feed"
	"feedpulse/internal/domain/health"
)

// topicKeywords is a fixed keyword classifier; topic diversity is Shannon
// entropy over its buckets.
var topicKeywords = map[string][]string{
	"politics":      {"election", "government", "parliament", "minister", "policy", "senate", "vote"},
	"business":      {"market", "economy", "stocks", "trade", "company", "earnings", "inflation"},
	"technology":    {"software", "ai", "startup", "tech", "internet", "cyber", "app"},
	"sports":        {"match", "league", "tournament", "championship", "goal", "player", "team"},
	"health":        {"hospital", "disease", "vaccine", "doctor", "medical", "virus", "treatment"},
	"science":       {"research", "study", "scientists", "climate", "space", "discovery"},
	"entertainment": {"film", "music", "celebrity", "movie", "concert", "festival", "series"},
	"world":         {"war", "conflict", "border", "treaty", "united nations", "embassy", "refugee"},
}

const (
	breakingWindow = 2 * time.Hour
	staleWindow    = 24 * time.Hour
)

// computeRelevance measures topical spread and ingestion latency over the
// 30-day window.
func computeRelevance(articles []feed.Article, now time.Time) health.RelevanceMetrics {
	m := health.RelevanceMetrics{}
	if len(articles) == 0 {
		return m
	}
	m.DataAvailable = true

	topicCounts := map[string]int{}
	var delaySum float64
	var delayed, breaking, stale int

	for _, a := range articles {
		text := strings.ToLower(a.Title + " " + a.Description)
		for topic, words := range topicKeywords {
			for _, w := range words {
				if strings.Contains(text, w) {
					topicCounts[topic]++
					break
				}
			}
		}

		if a.PublishedAt == nil || a.PublishedAt.IsZero() {
			continue
		}
		delay := a.CreatedAt.Sub(*a.PublishedAt)
		if delay < 0 {
			delay = 0
		}
		delaySum += delay.Hours()
		delayed++
		if delay <= breakingWindow {
			breaking++
		}
		if delay > staleWindow {
			stale++
		}
	}

	if delayed > 0 {
		m.AvgIngestDelayHrs = delaySum / float64(delayed)
		m.BreakingRatio = float64(breaking) / float64(delayed)
		m.StaleRatio = float64(stale) / float64(delayed)
	}

	m.TopicDiversity = topicEntropy(topicCounts)
	m.TrendingTopics = topTopics(topicCounts, 3)

	score := 50.0
	score += m.TopicDiversity * 0.3
	score += m.BreakingRatio * 30
	score -= m.StaleRatio * 40
	m.Score = clampScore100(score)

	return m
}

// topicEntropy normalizes Shannon entropy over the classifier buckets to
// [0,100].
func topicEntropy(counts map[string]int) float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}

	var entropy float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}

	maxEntropy := math.Log2(float64(len(topicKeywords)))
	if maxEntropy <= 0 {
		return 0
	}
	return clampScore100(entropy / maxEntropy * 100)
}

func topTopics(counts map[string]int, n int) []string {
	type tc struct {
		topic string
		count int
	}
	all := make([]tc, 0, len(counts))
	for t, c := range counts {
		if c > 0 {
			all = append(all, tc{t, c})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].topic < all[j].topic
	})
	if len(all) < n {
		n = len(all)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, all[i].topic)
	}
	return out
}
