package analyzer

import (
	"time"

	"feedpulse/internal/domain/health"
)

// computeTechnical aggregates per-fetch outcomes over the 7-day window.
// With no fetch history the group reports the no-data baseline: zero
// uptime and score 0 rather than a healthy default.
func computeTechnical(records []health.MetricRecord) health.TechnicalMetrics {
	m := health.TechnicalMetrics{HTTPErrorCodes: map[int]int{}}
	if len(records) == 0 {
		return m
	}
	m.DataAvailable = true

	total := float64(len(records))
	var ok, parseFailures int
	var responseTotal time.Duration
	var lastSuccess *time.Time

	for _, rec := range records {
		responseTotal += rec.ResponseTime
		if rec.IsAvailable {
			ok++
			if lastSuccess == nil || rec.CheckedAt.After(*lastSuccess) {
				t := rec.CheckedAt
				lastSuccess = &t
			}
			continue
		}
		switch rec.ErrorKind {
		case health.ErrorTimeout:
			m.TimeoutCount++
		case health.ErrorDNS:
			m.DNSErrorCount++
		case health.ErrorHTTP:
			if rec.HTTPStatus > 0 {
				m.HTTPErrorCodes[rec.HTTPStatus]++
			}
		case health.ErrorParse:
			parseFailures++
		}
	}

	m.UptimePercentage = float64(ok) / total * 100
	m.AvgResponseMs = float64(responseTotal.Milliseconds()) / total
	m.ErrorRate = 1 - float64(ok)/total
	m.LastSuccessAt = lastSuccess
	m.ParseSuccessRate = (total - float64(parseFailures)) / total * 100

	score := m.UptimePercentage
	// Penalize slow feeds: every second of average latency above two
	// seconds costs five points.
	if m.AvgResponseMs > 2000 {
		score -= (m.AvgResponseMs - 2000) / 1000 * 5
	}
	score -= (100 - m.ParseSuccessRate) * 0.5
	m.Score = clampScore100(score)

	return m
}
