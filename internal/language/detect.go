package language

import (
	"strings"
	"unicode"
)

type Detection struct {
	Language   string
	Confidence float64
}

// Detector is the narrow language collaborator: implementations may call a
// real detection service; ScriptDetector is the in-process fallback.
type Detector interface {
	Detect(text string) Detection
}

// ScriptDetector infers language from unicode script membership. Scripts
// with a dominant language map directly; Latin text is reported as the
// hinted language (or English) with reduced confidence, since script alone
// cannot separate Latin-alphabet languages.
type ScriptDetector struct {
	// LatinHint is reported for Latin-script text, e.g. the owning
	// source's declared language. Empty means "en".
	LatinHint string
}

var scriptLangs = []struct {
	rt   *unicode.RangeTable
	lang string
}{
	{unicode.Cyrillic, "ru"},
	{unicode.Arabic, "ar"},
	{unicode.Han, "zh"},
	{unicode.Hiragana, "ja"},
	{unicode.Katakana, "ja"},
	{unicode.Hangul, "ko"},
	{unicode.Devanagari, "hi"},
	{unicode.Greek, "el"},
	{unicode.Hebrew, "he"},
	{unicode.Thai, "th"},
}

func (d ScriptDetector) Detect(text string) Detection {
	text = strings.TrimSpace(text)
	if text == "" {
		return Detection{Language: "", Confidence: 0}
	}

	counts := map[string]int{}
	letters := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		matched := false
		for _, s := range scriptLangs {
			if unicode.Is(s.rt, r) {
				counts[s.lang]++
				matched = true
				break
			}
		}
		if !matched && unicode.Is(unicode.Latin, r) {
			counts["latin"]++
		}
	}
	if letters == 0 {
		return Detection{Language: "", Confidence: 0}
	}

	best, bestCount := "", 0
	for lang, n := range counts {
		if n > bestCount {
			best, bestCount = lang, n
		}
	}
	share := float64(bestCount) / float64(letters)

	if best == "latin" {
		lang := strings.ToLower(strings.TrimSpace(d.LatinHint))
		if lang == "" {
			lang = "en"
		}
		// Script match alone cannot separate Latin-alphabet languages.
		return Detection{Language: lang, Confidence: share * 0.7}
	}
	if best == "" {
		return Detection{Language: "", Confidence: 0}
	}
	return Detection{Language: best, Confidence: share}
}
