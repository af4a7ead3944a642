package model

import "time"

// NeutralCredibility is the prior score for a source with no track record.
// A new source starts here rather than at zero so first appearance is not
// penalized.
const NeutralCredibility = 0.5

// Source is a news publisher, keyed by domain. Created on the first article
// from that domain and updated incrementally ever after, never recreated.
// The rolling counters let the credibility scorer recompute without
// rescanning claim history.
type Source struct {
	Domain           string    `json:"domain"`
	CredibilityScore float64   `json:"credibility_score"` // [0,1]
	BiasScore        float64   `json:"bias_score"`        // [-1,1]
	ArticlesSeen     int       `json:"articles_seen"`
	ClaimCount       int       `json:"claim_count"`
	ContradictedClaims int     `json:"contradicted_claims"`
	ConfidenceSum    float64   `json:"confidence_sum"`
	ConfidenceSumSq  float64   `json:"confidence_sum_sq"`
	FirstSeen        time.Time `json:"first_seen"`
	LastUpdated      time.Time `json:"last_updated"`
}

// NewSource returns a source seeded with the neutral prior
func NewSource(domain string, now time.Time) *Source {
	return &Source{
		Domain:           domain,
		CredibilityScore: NeutralCredibility,
		FirstSeen:        now,
		LastUpdated:      now,
	}
}

// MeanConfidence returns the running mean of this source's claim confidences
func (s *Source) MeanConfidence() float64 {
	if s.ClaimCount == 0 {
		return 0
	}
	return s.ConfidenceSum / float64(s.ClaimCount)
}

// ConfidenceVariance returns the running population variance of this
// source's claim confidences
func (s *Source) ConfidenceVariance() float64 {
	if s.ClaimCount == 0 {
		return 0
	}
	mean := s.MeanConfidence()
	v := s.ConfidenceSumSq/float64(s.ClaimCount) - mean*mean
	if v < 0 { // numerical noise
		v = 0
	}
	return v
}
