package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/chronicle-kg/chronicle/internal/model"
)

func TestProseExtractor_Claims(t *testing.T) {
	extractor := NewProseExtractor(model.ExtractionConfig{
		MinEntityConfidence: 0.7,
		MinClaimConfidence:  0.6,
	})

	text := "Leaders from 195 countries gathered in Geneva today and signed the climate accord. " +
		"The agreement mandates a 50% reduction in global carbon emissions by 2030. " +
		"It was a sunny day. " +
		"Global temperatures rose by 1.2 degrees over the last decade, according to the report."

	extraction, err := extractor.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if len(extraction.Claims) != 3 {
		t.Fatalf("expected 3 keyword-bearing claims, got %d: %+v", len(extraction.Claims), extraction.Claims)
	}
	for _, claim := range extraction.Claims {
		if claim.Confidence < 0.6 {
			t.Errorf("claim confidence %v below floor", claim.Confidence)
		}
		if strings.Contains(claim.Text, "sunny") {
			t.Errorf("non-factual sentence extracted as claim: %q", claim.Text)
		}
	}
}

func TestProseExtractor_ClaimsDeduped(t *testing.T) {
	extractor := NewProseExtractor(model.ExtractionConfig{MinClaimConfidence: 0.6})

	text := "The company announced record profits for the third quarter. " +
		"The company announced record profits for the third quarter."

	extraction, err := extractor.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(extraction.Claims) != 1 {
		t.Errorf("expected duplicate sentences collapsed to 1 claim, got %d", len(extraction.Claims))
	}
}

func TestProseExtractor_ConfidenceFloorDisables(t *testing.T) {
	// Floors above what the heuristics can assert mean no candidates
	extractor := NewProseExtractor(model.ExtractionConfig{
		MinEntityConfidence: 0.9,
		MinClaimConfidence:  0.9,
	})

	extraction, err := extractor.Extract(context.Background(),
		"The ministry announced a new policy on renewable energy subsidies today.")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(extraction.Entities) != 0 || len(extraction.Claims) != 0 {
		t.Errorf("expected no candidates above floors, got %+v", extraction)
	}
}

func TestMatchKeyword(t *testing.T) {
	tests := []struct {
		sentence string
		want     string
	}{
		{"Emissions fell sharply last year.", "fell"},
		{"According to officials, talks resumed.", "according to"},
		{"A lovely afternoon in the park.", ""},
	}
	for _, tt := range tests {
		if got := matchKeyword(tt.sentence); got != tt.want {
			t.Errorf("matchKeyword(%q) = %q, want %q", tt.sentence, got, tt.want)
		}
	}
}

func TestMapLabel(t *testing.T) {
	tests := []struct {
		label string
		want  model.EntityType
	}{
		{"PERSON", model.EntityPerson},
		{"GPE", model.EntityLocation},
		{"ORG", model.EntityOrganization},
		{"WORK_OF_ART", model.EntityConcept},
	}
	for _, tt := range tests {
		if got := mapLabel(tt.label); got != tt.want {
			t.Errorf("mapLabel(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestReferencedEntities(t *testing.T) {
	entities := []model.CandidateEntity{
		{Name: "Geneva", Type: model.EntityLocation},
		{Name: "United Nations", Type: model.EntityOrganization},
	}
	refs := referencedEntities("Delegates met in Geneva on Monday.", entities)
	if len(refs) != 1 || refs[0] != "Geneva" {
		t.Errorf("unexpected refs: %v", refs)
	}
}
