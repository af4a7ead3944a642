package similarity

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/chronicle-kg/chronicle/internal/model"
)

// Matcher scores how likely two entity names refer to the same real-world
// entity. Scores are in [0,1]; callers compare against a merge threshold.
type Matcher interface {
	Score(a, b string) float64
}

// NormalizedMatcher is the default deterministic matcher. It works on
// case-folded, whitespace-collapsed names and blends token overlap with
// prefix similarity. Acronyms ("UN" for "United Nations") score high
// enough to clear typical merge thresholds.
type NormalizedMatcher struct{}

// NewNormalizedMatcher creates the default matcher
func NewNormalizedMatcher() *NormalizedMatcher {
	return &NormalizedMatcher{}
}

// Score implements Matcher
func (m *NormalizedMatcher) Score(a, b string) float64 {
	a = model.NormalizeName(a)
	b = model.NormalizeName(b)

	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	if isAcronymOf(a, b) || isAcronymOf(b, a) {
		return 0.9
	}

	tokensA := tokenSet(a)
	tokensB := tokenSet(b)

	intersection := tokensA.Intersect(tokensB).Cardinality()
	union := tokensA.Union(tokensB).Cardinality()
	if union == 0 {
		return 0
	}
	jaccard := float64(intersection) / float64(union)

	// One name containing the other's tokens entirely is a strong signal:
	// "Joe Biden" against "President Joe Biden".
	if intersection > 0 && (intersection == tokensA.Cardinality() || intersection == tokensB.Cardinality()) {
		return clamp01(0.72 + 0.2*jaccard)
	}

	return clamp01(0.6*jaccard + 0.4*prefixRatio(a, b))
}

// BestScore returns the highest matcher score of query against any of the
// given names. Used to score an entity by its canonical name and aliases.
func BestScore(m Matcher, query string, names ...string) float64 {
	best := 0.0
	for _, name := range names {
		if s := m.Score(query, name); s > best {
			best = s
		}
	}
	return best
}

// isAcronymOf reports whether short is the initialism of long's tokens
func isAcronymOf(short, long string) bool {
	tokens := strings.Fields(long)
	if len(tokens) < 2 || len(short) != len(tokens) {
		return false
	}
	for i, tok := range tokens {
		if short[i] != tok[0] {
			return false
		}
	}
	return true
}

func tokenSet(s string) mapset.Set[string] {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, tok := range strings.Fields(s) {
		set.Add(tok)
	}
	return set
}

func prefixRatio(a, b string) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	common := 0
	for common < n && a[common] == b[common] {
		common++
	}
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	return float64(common) / float64(longer)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
