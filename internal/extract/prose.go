package extract

import (
	"context"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	prose "github.com/jdkato/prose/v2"
	"github.com/sirupsen/logrus"

	"github.com/chronicle-kg/chronicle/internal/model"
)

// claimKeywords mark sentences that assert a verifiable fact. News prose
// leans on attribution and change-of-state verbs.
var claimKeywords = []string{
	"according to", "announced", "reported", "confirmed", "said",
	"signed", "agreed", "approved", "mandates", "requires",
	"rose", "fell", "increased", "decreased", "reached",
	"founded", "established", "launched", "discovered", "will",
}

const (
	proseEntityConfidence = 0.8
	proseClaimConfidence  = 0.65
	minSentenceLen        = 30
	maxSentenceLen        = 500
)

// ProseExtractor implements Extractor with local NLP only: statistical NER
// for entities and keyword heuristics for claims. It is the offline
// fallback when no LLM endpoint is configured, and trades recall for zero
// external calls.
type ProseExtractor struct {
	minEntityConfidence float64
	minClaimConfidence  float64
	log                 *logrus.Entry
}

// NewProseExtractor creates the local extractor
func NewProseExtractor(cfg model.ExtractionConfig) *ProseExtractor {
	return &ProseExtractor{
		minEntityConfidence: cfg.MinEntityConfidence,
		minClaimConfidence:  cfg.MinClaimConfidence,
		log:                 logrus.WithField("component", "extract.prose"),
	}
}

// Extract implements Extractor
func (e *ProseExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, &ExtractionError{Op: "tokenize", Err: err}
	}

	extraction := &Extraction{
		Entities: e.extractEntities(doc),
	}
	extraction.Claims = e.extractClaims(doc, extraction.Entities)

	e.log.WithFields(logrus.Fields{
		"entities": len(extraction.Entities),
		"claims":   len(extraction.Claims),
	}).Debug("extraction complete")
	return extraction, nil
}

func (e *ProseExtractor) extractEntities(doc *prose.Document) []model.CandidateEntity {
	if proseEntityConfidence < e.minEntityConfidence {
		return nil
	}

	seen := mapset.NewThreadUnsafeSet[model.IdentityKey]()
	var entities []model.CandidateEntity
	for _, ent := range doc.Entities() {
		name := strings.TrimSpace(ent.Text)
		if name == "" {
			continue
		}
		typ := mapLabel(ent.Label)
		key := model.KeyFor(name, typ)
		if !seen.Add(key) {
			continue
		}
		entities = append(entities, model.CandidateEntity{
			Name:       name,
			Type:       typ,
			Confidence: proseEntityConfidence,
		})
	}
	return entities
}

func (e *ProseExtractor) extractClaims(doc *prose.Document, entities []model.CandidateEntity) []model.CandidateClaim {
	if proseClaimConfidence < e.minClaimConfidence {
		return nil
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	var claims []model.CandidateClaim
	for _, sentence := range doc.Sentences() {
		text := strings.TrimSpace(sentence.Text)
		if len(text) < minSentenceLen || len(text) > maxSentenceLen {
			continue
		}
		if matchKeyword(text) == "" {
			continue
		}
		if !seen.Add(model.NormalizeName(text)) {
			continue
		}
		claims = append(claims, model.CandidateClaim{
			Text:       text,
			Confidence: proseClaimConfidence,
			EntityRefs: referencedEntities(text, entities),
		})
	}
	return claims
}

// matchKeyword returns the first claim keyword found in the sentence
func matchKeyword(sentence string) string {
	lower := strings.ToLower(sentence)
	for _, keyword := range claimKeywords {
		if strings.Contains(lower, keyword) {
			return keyword
		}
	}
	return ""
}

// referencedEntities lists extracted entity names that appear verbatim in
// the sentence
func referencedEntities(sentence string, entities []model.CandidateEntity) []string {
	var refs []string
	for _, ent := range entities {
		if strings.Contains(sentence, ent.Name) {
			refs = append(refs, ent.Name)
		}
	}
	return refs
}

// mapLabel translates NER labels to graph entity types
func mapLabel(label string) model.EntityType {
	switch strings.ToUpper(label) {
	case "PERSON":
		return model.EntityPerson
	case "GPE", "LOC", "LOCATION":
		return model.EntityLocation
	case "ORG", "ORGANIZATION":
		return model.EntityOrganization
	default:
		return model.EntityConcept
	}
}
