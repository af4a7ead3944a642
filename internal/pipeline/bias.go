package pipeline

import (
	"sort"
	"strings"
)

// biasIndicators groups marker words by the kind of slant they signal
var biasIndicators = map[string][]string{
	"loaded_language": {
		"radical", "extreme", "dangerous", "shocking", "outrageous",
		"devastating", "slam", "destroy", "demolish",
	},
	"absolute_terms": {
		"always", "never", "all", "none", "every", "completely",
		"totally", "absolutely", "entirely",
	},
	"emotional_appeals": {
		"feel", "believe", "fear", "hope", "worry", "concerned",
		"alarmed", "excited", "angry",
	},
}

// Bias recommendation bands
const (
	BiasLow      = "LOW_BIAS"
	BiasModerate = "MODERATE_BIAS"
	BiasHigh     = "HIGH_BIAS"
)

// BiasReport summarizes the lexicon scan of one article
type BiasReport struct {
	Score          float64             // [0,1], density of bias markers
	Matches        map[string][]string // category -> matched markers
	Recommendation string
}

// BiasDetector scores articles for loaded language, absolute terms, and
// emotional appeals. Pure lexicon matching, no external calls.
type BiasDetector struct{}

// NewBiasDetector creates a detector
func NewBiasDetector() *BiasDetector {
	return &BiasDetector{}
}

// Detect scans the text and returns its bias report
func (d *BiasDetector) Detect(text string) BiasReport {
	words := strings.Fields(strings.ToLower(text))
	wordCount := len(words)

	present := make(map[string]bool, wordCount)
	for _, w := range words {
		present[strings.Trim(w, ".,;:!?\"'()")] = true
	}

	matches := make(map[string][]string)
	total := 0
	for category, indicators := range biasIndicators {
		for _, marker := range indicators {
			if present[marker] {
				matches[category] = append(matches[category], marker)
				total++
			}
		}
		sort.Strings(matches[category])
	}

	if wordCount == 0 {
		wordCount = 1
	}
	score := float64(total) / float64(wordCount) * 100
	if score > 1 {
		score = 1
	}

	return BiasReport{
		Score:          score,
		Matches:        matches,
		Recommendation: recommendationFor(score),
	}
}

func recommendationFor(score float64) string {
	switch {
	case score < 0.3:
		return BiasLow
	case score < 0.6:
		return BiasModerate
	default:
		return BiasHigh
	}
}
