package model

import (
	"strings"
	"time"
)

// EntityType classifies what kind of real-world thing an entity is
type EntityType string

const (
	EntityPerson       EntityType = "PERSON"
	EntityOrganization EntityType = "ORGANIZATION"
	EntityLocation     EntityType = "LOCATION"
	EntityConcept      EntityType = "CONCEPT"
	EntityEvent        EntityType = "EVENT"
)

// ValidEntityType reports whether t is one of the known entity types
func ValidEntityType(t EntityType) bool {
	switch t {
	case EntityPerson, EntityOrganization, EntityLocation, EntityConcept, EntityEvent:
		return true
	}
	return false
}

// IdentityKey is the (normalized name, type) pair that decides whether two
// mentions refer to the same real-world entity. At most one Entity node may
// exist per key.
type IdentityKey struct {
	Name string     `json:"name"`
	Type EntityType `json:"type"`
}

// KeyFor builds the identity key for a raw mention name and type
func KeyFor(name string, typ EntityType) IdentityKey {
	return IdentityKey{Name: NormalizeName(name), Type: typ}
}

// NormalizeName case-folds and trims a mention name for identity comparison
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Entity is a canonical node in the knowledge graph
type Entity struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"` // canonical display name
	Type         EntityType `json:"type"`
	Aliases      []string   `json:"aliases,omitempty"`
	FirstSeen    time.Time  `json:"first_seen"`
	LastUpdated  time.Time  `json:"last_updated"`
	MentionCount int        `json:"mention_count"`
	Embedding    []float32  `json:"embedding,omitempty"`
}

// Key returns the entity's identity key
func (e *Entity) Key() IdentityKey {
	return KeyFor(e.Name, e.Type)
}

// HasAlias reports whether name already appears among the entity's known
// names (canonical name included), compared in normalized form
func (e *Entity) HasAlias(name string) bool {
	norm := NormalizeName(name)
	if NormalizeName(e.Name) == norm {
		return true
	}
	for _, a := range e.Aliases {
		if NormalizeName(a) == norm {
			return true
		}
	}
	return false
}

// CandidateEntity is an entity mention produced by the extraction service,
// before consolidation against the graph
type CandidateEntity struct {
	Name       string     `json:"name"`
	Type       EntityType `json:"type"`
	Confidence float64    `json:"confidence"`
}
