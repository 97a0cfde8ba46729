package analyzer

import (
	"fmt"
	"net/url"
	"strings"

	"feedpulse/internal/domain/feed"
	"feedpulse/internal/domain/health"
)

var clickbaitPhrases = []string{
	"you won't believe",
	"shocking",
	"what happened next",
	"doctors hate",
	"this one trick",
	"number will surprise",
	"goes viral",
	"must see",
	"jaw-dropping",
	"mind-blowing",
}

// computeCredibility looks at authorship spread, link hygiene and
// publishing behavior over the 30-day window.
func computeCredibility(articles []feed.Article) health.CredibilityMetrics {
	m := health.CredibilityMetrics{}
	if len(articles) == 0 {
		return m
	}
	m.DataAvailable = true

	total := float64(len(articles))
	authorCounts := map[string]int{}
	hostCounts := map[string]int{}
	titleCounts := map[string]int{}
	var unusual, broken, clickbait int

	for _, a := range articles {
		author := strings.ToLower(strings.TrimSpace(a.Author))
		if author != "" {
			authorCounts[author]++
		}

		link := strings.TrimSpace(a.Link)
		if link == "" {
			broken++
		} else if u, err := url.Parse(link); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			broken++
		} else {
			hostCounts[strings.ToLower(u.Host)]++
		}

		titleCounts[normalizeTitle(a.Title)]++

		t := a.CreatedAt
		if a.PublishedAt != nil && !a.PublishedAt.IsZero() {
			t = *a.PublishedAt
		}
		if hr := t.Hour(); hr >= 2 && hr < 5 {
			unusual++
		}

		title := strings.ToLower(a.Title)
		for _, phrase := range clickbaitPhrases {
			if strings.Contains(title, phrase) {
				clickbait++
				break
			}
		}
	}

	m.UniqueAuthors = len(authorCounts)
	if len(authorCounts) > 0 {
		top := 0
		for _, c := range authorCounts {
			if c > top {
				top = c
			}
		}
		m.TopAuthorShare = float64(top) / total * 100
	}

	if len(hostCounts) > 0 {
		top := 0
		for _, c := range hostCounts {
			if c > top {
				top = c
			}
		}
		m.DomainConsistency = float64(top) / float64(sumCounts(hostCounts)) * 100
	}

	m.UnusualHoursPct = float64(unusual) / total * 100
	m.ClickbaitScore = float64(clickbait) / total * 100

	patterns := make([]health.SuspiciousPattern, 0, 2)
	for title, c := range titleCounts {
		if c >= 3 && title != "" {
			patterns = append(patterns, health.SuspiciousPattern{
				Kind:     "duplicate_cluster",
				Severity: health.SeverityWarning,
				Detail:   fmt.Sprintf("title repeated %d times: %q", c, truncate(title, 60)),
			})
		}
	}
	if brokenPct := float64(broken) / total * 100; brokenPct > 10 {
		patterns = append(patterns, health.SuspiciousPattern{
			Kind:     "broken_links",
			Severity: health.SeverityError,
			Detail:   fmt.Sprintf("%.1f%% of articles carry broken or missing links", brokenPct),
		})
	}
	m.SuspiciousPatterns = patterns

	score := 100.0
	score -= m.ClickbaitScore * 0.5
	score -= m.UnusualHoursPct * 0.3
	score -= float64(len(patterns)) * 10
	if m.DomainConsistency > 0 {
		score -= (100 - m.DomainConsistency) * 0.2
	}
	m.Score = clampScore100(score)

	return m
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
