package credibility

import (
	"time"

	"github.com/chronicle-kg/chronicle/internal/model"
)

// Rating buckets a credibility score for reporting
type Rating string

const (
	RatingHighlyCredible     Rating = "highly credible"
	RatingCredible           Rating = "credible"
	RatingModeratelyCredible Rating = "moderately credible"
	RatingQuestionable       Rating = "questionable"
	RatingNotCredible        Rating = "not credible"
)

// RatingFor converts a score in [0,1] to its rating band
func RatingFor(score float64) Rating {
	switch {
	case score >= 0.9:
		return RatingHighlyCredible
	case score >= 0.75:
		return RatingCredible
	case score >= 0.6:
		return RatingModeratelyCredible
	case score >= 0.4:
		return RatingQuestionable
	default:
		return RatingNotCredible
	}
}

// Outcome is what one article's consolidation contributed to a source
type Outcome struct {
	ClaimsCreated      int
	ContradictedClaims int       // this source's claims newly involved in a contradiction
	Confidences        []float64 // confidences of the claims created
	BiasScore          float64   // [-1,1], from the bias-check stage
	BiasScored         bool
}

// Scorer maintains per-source credibility as a weighted sum of four
// factors. All factors derive from the source's running counters, so an
// update never rescans claim history.
type Scorer struct {
	cfg model.CredibilityConfig
}

// NewScorer creates a scorer with the given weights
func NewScorer(cfg model.CredibilityConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Update folds one article's outcome into the source counters, recomputes
// the credibility score, and returns it. Called once per processed
// article.
func (s *Scorer) Update(source *model.Source, outcome Outcome, now time.Time) float64 {
	source.ArticlesSeen++
	source.ClaimCount += outcome.ClaimsCreated
	source.ContradictedClaims += outcome.ContradictedClaims
	for _, c := range outcome.Confidences {
		source.ConfidenceSum += c
		source.ConfidenceSumSq += c * c
	}
	if outcome.BiasScored {
		source.BiasScore = outcome.BiasScore
	}
	source.LastUpdated = now

	source.CredibilityScore = s.Score(source)
	return source.CredibilityScore
}

// Score computes the weighted credibility of a source from its counters
// without mutating it. A source with no recorded claims or articles sits
// at the neutral prior.
func (s *Scorer) Score(source *model.Source) float64 {
	if source.ArticlesSeen == 0 && source.ClaimCount == 0 {
		return model.NeutralCredibility
	}

	score := s.cfg.AccuracyWeight*s.accuracy(source) +
		s.cfg.ConsistencyWeight*s.consistency(source) +
		s.cfg.BiasWeight*s.bias(source) +
		s.cfg.ReliabilityWeight*s.reliability(source)

	return clamp01(score)
}

// accuracy is the fraction of the source's claims never contradicted
func (s *Scorer) accuracy(source *model.Source) float64 {
	if source.ClaimCount == 0 {
		return model.NeutralCredibility
	}
	return clamp01(1 - float64(source.ContradictedClaims)/float64(source.ClaimCount))
}

// consistency is one minus the normalized variance of claim confidences.
// Confidences live in [0,1], where variance tops out at 0.25.
func (s *Scorer) consistency(source *model.Source) float64 {
	if source.ClaimCount == 0 {
		return model.NeutralCredibility
	}
	normalized := source.ConfidenceVariance() / 0.25
	return clamp01(1 - normalized)
}

// bias rewards a neutral external bias signal
func (s *Scorer) bias(source *model.Source) float64 {
	b := source.BiasScore
	if b < 0 {
		b = -b
	}
	return clamp01(1 - b)
}

// reliability rewards a longer track record, saturating at the configured
// article count
func (s *Scorer) reliability(source *model.Source) float64 {
	saturation := s.cfg.ReliabilitySaturation
	if saturation <= 0 {
		saturation = 50
	}
	r := float64(source.ArticlesSeen) / float64(saturation)
	return clamp01(r)
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
