package analyzer

import (
	"strings"

	"feedpulse/internal/domain/feed"
	"feedpulse/internal/domain/health"
)

// translationArtifacts mark machine-translated or scraped-translation
// content.
var translationArtifacts = []string{
	"translated from the original",
	"machine translated",
	"click here to read the original",
	"original article available at",
	"[translation]",
	"google translate",
}

// computeLocalization compares the source's declared language against what
// actually arrives. Cultural and units relevance are placeholder neutral
// scores until a real locale model exists.
func computeLocalization(articles []feed.Article, expectedLang string) health.LocalizationMetrics {
	m := health.LocalizationMetrics{
		ExpectedLanguage:     strings.ToLower(strings.TrimSpace(expectedLang)),
		LanguageDistribution: map[string]float64{},
		CulturalRelevance:    75,
		UnitsRelevance:       75,
	}
	if len(articles) == 0 {
		return m
	}
	m.DataAvailable = true

	total := float64(len(articles))
	langCounts := map[string]int{}
	artifacts := 0

	for _, a := range articles {
		lang := strings.ToLower(strings.TrimSpace(a.Language))
		if lang == "" {
			lang = "unknown"
		}
		langCounts[lang]++

		text := strings.ToLower(a.Content + " " + a.Description)
		for _, phrase := range translationArtifacts {
			if strings.Contains(text, phrase) {
				artifacts++
				break
			}
		}
	}

	for lang, c := range langCounts {
		m.LanguageDistribution[lang] = float64(c) / total * 100
	}

	m.TranslationQuality = clampScore100(100 - float64(artifacts)/total*100*2)

	score := m.TranslationQuality * 0.4
	if m.ExpectedLanguage != "" {
		score += m.LanguageDistribution[m.ExpectedLanguage] * 0.4
	} else {
		score += 40
	}
	score += (m.CulturalRelevance + m.UnitsRelevance) / 2 * 0.2
	m.Score = clampScore100(score)

	return m
}
