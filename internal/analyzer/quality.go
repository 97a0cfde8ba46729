package analyzer

import (
	"strings"
	"unicode"

	"feedpulse/internal/domain/feed"
	"feedpulse/internal/domain/health"
)

// minContentChars marks an article as near-empty below this length.
const minContentChars = 50

var commonMisspellings = map[string]struct{}{
	"recieve":     {},
	"seperate":    {},
	"definately":  {},
	"occured":     {},
	"untill":      {},
	"wich":        {},
	"becuase":     {},
	"goverment":   {},
	"enviroment":  {},
	"succesful":   {},
	"tommorow":    {},
	"accomodate":  {},
	"publically":  {},
	"arguement":   {},
	"independant": {},
}

// computeQuality scores content completeness and writing quality over the
// 30-day article window. The empty baseline reports 100% missing content,
// since a window with no articles has no content at all.
func computeQuality(articles []feed.Article) health.QualityMetrics {
	m := health.QualityMetrics{MissingContentPercentage: 100}
	if len(articles) == 0 {
		return m
	}
	m.DataAvailable = true

	total := float64(len(articles))
	var titleLen, contentLen float64
	var missing, authored, dated, described int
	titleCounts := map[string]int{}
	langCounts := map[string]int{}
	var readabilitySum float64
	var wordsTotal, misspelledTotal int

	for _, a := range articles {
		titleLen += float64(len(a.Title))
		contentLen += float64(len(a.Content))
		if len(strings.TrimSpace(a.Content)) < minContentChars {
			missing++
		}
		if strings.TrimSpace(a.Author) != "" {
			authored++
		}
		if a.PublishedAt != nil && !a.PublishedAt.IsZero() {
			dated++
		}
		if strings.TrimSpace(a.Description) != "" {
			described++
		}
		titleCounts[normalizeTitle(a.Title)]++
		if a.Language != "" {
			langCounts[a.Language]++
		}

		text := a.Content
		if text == "" {
			text = a.Description
		}
		readabilitySum += fleschScore(text)
		w, mw := countMisspellings(a.Title + " " + text)
		wordsTotal += w
		misspelledTotal += mw
	}

	m.AvgTitleLength = titleLen / total
	m.AvgContentLength = contentLen / total
	m.MissingContentPercentage = float64(missing) / total * 100
	m.AuthorPresentPct = float64(authored) / total * 100
	m.DatePresentPct = float64(dated) / total * 100
	m.DescriptionPresentPct = float64(described) / total * 100
	m.ReadabilityScore = readabilitySum / total

	dupes := 0
	for _, c := range titleCounts {
		if c > 1 {
			dupes += c - 1
		}
	}
	m.DuplicatePercentage = float64(dupes) / total * 100

	if dominant, count := dominantLanguage(langCounts); dominant != "" {
		m.LanguageConsistency = float64(count) / float64(sumCounts(langCounts)) * 100
	}

	if wordsTotal > 0 {
		m.SpellingErrorRate = float64(misspelledTotal) / float64(wordsTotal) * 100
	}

	score := 100.0
	score -= m.MissingContentPercentage * 0.4
	score -= m.DuplicatePercentage * 0.5
	score -= m.SpellingErrorRate * 2
	completeness := (m.AuthorPresentPct + m.DatePresentPct + m.DescriptionPresentPct) / 3
	score -= (100 - completeness) * 0.15
	m.Score = clampScore100(score)

	return m
}

func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func dominantLanguage(counts map[string]int) (string, int) {
	best, bestCount := "", 0
	for lang, c := range counts {
		if c > bestCount {
			best, bestCount = lang, c
		}
	}
	return best, bestCount
}

func sumCounts(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	if n == 0 {
		return 1
	}
	return n
}

// fleschScore approximates Flesch reading ease from sentence, word and
// syllable counts, clamped to [0,100].
func fleschScore(text string) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	sentences := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	score := 206.835 - 1.015*(float64(len(words))/float64(sentences)) - 84.6*(float64(syllables)/float64(len(words)))
	return clampScore100(score)
}

// countSyllables approximates syllables as vowel groups, minimum one.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

func countMisspellings(text string) (words int, misspelled int) {
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if w == "" {
			continue
		}
		words++
		if _, ok := commonMisspellings[w]; ok {
			misspelled++
		}
	}
	return words, misspelled
}
