package model

import "time"

// VerificationStatus tracks how a claim stands against the rest of the graph
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "UNVERIFIED"
	StatusVerified   VerificationStatus = "VERIFIED"
	StatusRefuted    VerificationStatus = "REFUTED"
)

// Claim is a factual assertion extracted from one article. Claims are never
// merged: near-duplicates remain distinct nodes, connected only by
// contradiction links. Text and confidence are immutable after creation;
// only the verification status and validity-until may change.
type Claim struct {
	ID           string             `json:"id"`
	Text         string             `json:"text"`
	Confidence   float64            `json:"confidence"` // [0,1]
	Status       VerificationStatus `json:"status"`
	Timestamp    time.Time          `json:"timestamp"`
	ValidFrom    time.Time          `json:"valid_from"`
	ValidUntil   *time.Time         `json:"valid_until,omitempty"`
	ArticleID    string             `json:"article_id"`
	SourceDomain string             `json:"source_domain"`
}

// CandidateClaim is a claim produced by the extraction service, before it
// is written to the graph. EntityRefs are raw mention names, resolved to
// canonical entities during consolidation.
type CandidateClaim struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	EntityRefs []string `json:"entity_refs,omitempty"`
}
