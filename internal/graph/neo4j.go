package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/chronicle-kg/chronicle/internal/model"
	"github.com/chronicle-kg/chronicle/internal/similarity"
)

// Neo4jStore implements Store on a Neo4j database. Entity identity is
// enforced by a uniqueness constraint on the composite e.key property:
// two concurrent MERGEs on a not-yet-existing identity both pass the
// match and both create, so the constraint is what rejects the lost
// writer's commit, surfacing as ConflictError for the caller's retry.
type Neo4jStore struct {
	driver   neo4j.Driver
	database string
	matcher  similarity.Matcher
	log      *logrus.Entry
}

// NewNeo4jStore connects to Neo4j and verifies connectivity
func NewNeo4jStore(uri, username, password, database string, matcher similarity.Matcher) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriver(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(); err != nil {
		return nil, fmt.Errorf("failed to reach neo4j at %s: %w", uri, err)
	}

	log := logrus.WithField("component", "graph.neo4j")
	log.WithField("uri", uri).Info("connected to neo4j")

	return &Neo4jStore{
		driver:   driver,
		database: database,
		matcher:  matcher,
		log:      log,
	}, nil
}

// InitSchema creates uniqueness constraints. Statements that already
// exist fail harmlessly and are logged at warn level.
func (s *Neo4jStore) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE CONSTRAINT entity_id IF NOT EXISTS ON (e:Entity) ASSERT e.id IS UNIQUE`,
		`CREATE CONSTRAINT entity_key IF NOT EXISTS ON (e:Entity) ASSERT e.key IS UNIQUE`,
		`CREATE CONSTRAINT claim_id IF NOT EXISTS ON (c:Claim) ASSERT c.id IS UNIQUE`,
		`CREATE CONSTRAINT source_domain IF NOT EXISTS ON (s:Source) ASSERT s.domain IS UNIQUE`,
	}

	session := s.newSession(neo4j.AccessModeWrite)
	defer session.Close()

	for _, stmt := range statements {
		if _, err := session.Run(stmt, nil); err != nil {
			s.log.WithError(err).Warn("schema statement failed, may already exist")
		}
	}
	return nil
}

func (s *Neo4jStore) newSession(mode neo4j.AccessMode) neo4j.Session {
	return s.driver.NewSession(neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// UpsertEntity implements Store
func (s *Neo4jStore) UpsertEntity(ctx context.Context, entity *model.Entity) (*model.Entity, bool, error) {
	session := s.newSession(neo4j.AccessModeWrite)
	defer session.Close()

	key := entity.Key()
	result, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		res, err := tx.Run(`
			MERGE (e:Entity {name_key: $nameKey, type: $type})
			ON CREATE SET
				e.key = $key,
				e.id = $id,
				e.name = $name,
				e.aliases = $aliases,
				e.first_seen = $firstSeen,
				e.last_updated = $lastUpdated,
				e.mention_count = $mentionCount,
				e.created_now = true
			ON MATCH SET e.created_now = false
			RETURN e
		`, map[string]interface{}{
			"nameKey":      key.Name,
			"type":         string(key.Type),
			"key":          compositeKey(key),
			"id":           entity.ID,
			"name":         entity.Name,
			"aliases":      toInterfaceSlice(entity.Aliases),
			"firstSeen":    entity.FirstSeen,
			"lastUpdated":  entity.LastUpdated,
			"mentionCount": entity.MentionCount,
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single()
		if err != nil {
			return nil, err
		}
		return record.Values[0], nil
	})
	if err != nil {
		return nil, false, s.mapError(err, key)
	}

	node := result.(neo4j.Node)
	created, _ := node.Props["created_now"].(bool)
	return entityFromProps(node.Props), created, nil
}

// EntityByKey implements Store
func (s *Neo4jStore) EntityByKey(ctx context.Context, key model.IdentityKey) (*model.Entity, error) {
	session := s.newSession(neo4j.AccessModeRead)
	defer session.Close()

	res, err := session.Run(`
		MATCH (e:Entity {name_key: $nameKey, type: $type})
		RETURN e
	`, map[string]interface{}{
		"nameKey": key.Name,
		"type":    string(key.Type),
	})
	if err != nil {
		return nil, err
	}

	if res.Next() {
		node := res.Record().Values[0].(neo4j.Node)
		return entityFromProps(node.Props), nil
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNotFound
}

// MergeEntity implements Store
func (s *Neo4jStore) MergeEntity(ctx context.Context, entityID, alias string, seen time.Time) error {
	session := s.newSession(neo4j.AccessModeWrite)
	defer session.Close()

	_, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		res, err := tx.Run(`
			MATCH (e:Entity {id: $id})
			SET e.mention_count = e.mention_count + 1,
				e.last_updated = CASE WHEN $seen > e.last_updated THEN $seen ELSE e.last_updated END,
				e.aliases = CASE
					WHEN $alias <> '' AND NOT $alias IN e.aliases AND $alias <> e.name
					THEN e.aliases + $alias
					ELSE e.aliases
				END
			RETURN e.id
		`, map[string]interface{}{
			"id":    entityID,
			"alias": alias,
			"seen":  seen,
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Single(); err != nil {
			return nil, ErrNotFound
		}
		return nil, nil
	})
	return err
}

// FindSimilarEntities implements Store. Candidates of the type are pulled
// and scored client-side with the matcher so scoring stays identical
// across store implementations.
func (s *Neo4jStore) FindSimilarEntities(ctx context.Context, typ model.EntityType, name string, threshold float64) ([]ScoredEntity, error) {
	session := s.newSession(neo4j.AccessModeRead)
	defer session.Close()

	res, err := session.Run(`
		MATCH (e:Entity {type: $type})
		RETURN e
	`, map[string]interface{}{"type": string(typ)})
	if err != nil {
		return nil, err
	}

	var scored []ScoredEntity
	for res.Next() {
		node := res.Record().Values[0].(neo4j.Node)
		entity := entityFromProps(node.Props)
		names := append([]string{entity.Name}, entity.Aliases...)
		score := similarity.BestScore(s.matcher, name, names...)
		if score >= threshold {
			scored = append(scored, ScoredEntity{Entity: entity, Score: score})
		}
	}
	if err := res.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Entity.Name < scored[j].Entity.Name
	})
	return scored, nil
}

// CreateClaim implements Store
func (s *Neo4jStore) CreateClaim(ctx context.Context, claim *model.Claim) error {
	session := s.newSession(neo4j.AccessModeWrite)
	defer session.Close()

	params := map[string]interface{}{
		"id":           claim.ID,
		"text":         claim.Text,
		"confidence":   claim.Confidence,
		"status":       string(claim.Status),
		"timestamp":    claim.Timestamp,
		"articleID":    claim.ArticleID,
		"sourceDomain": claim.SourceDomain,
		"validFrom":    claim.ValidFrom,
	}

	_, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		return tx.Run(`
			MERGE (c:Claim {id: $id})
			SET c.text = $text,
				c.confidence = $confidence,
				c.status = $status,
				c.timestamp = $timestamp,
				c.article_id = $articleID,
				c.source_domain = $sourceDomain,
				c.valid_from = $validFrom
		`, params)
	})
	return err
}

// Link implements Store
func (s *Neo4jStore) Link(ctx context.Context, from, to string, rel RelType, props map[string]interface{}) (bool, error) {
	var query string
	switch rel {
	case RelAbout:
		query = `
			MATCH (c:Claim {id: $from})
			MATCH (e:Entity {id: $to})
			MERGE (c)-[r:ABOUT]->(e)
			ON CREATE SET r.created_now = true, r.confidence = $confidence, r.detected_at = $detectedAt
			ON MATCH SET r.created_now = false
			RETURN r.created_now
		`
	case RelContradicts:
		query = `
			MATCH (c1:Claim {id: $from})
			MATCH (c2:Claim {id: $to})
			MERGE (c1)-[r:CONTRADICTS]-(c2)
			ON CREATE SET r.created_now = true, r.confidence = $confidence, r.detected_at = $detectedAt
			ON MATCH SET r.created_now = false
			RETURN r.created_now
		`
	default:
		return false, fmt.Errorf("unknown relationship type %q", rel)
	}

	params := map[string]interface{}{
		"from":       from,
		"to":         to,
		"confidence": floatProp(props, "confidence"),
		"detectedAt": props["detected_at"],
	}

	session := s.newSession(neo4j.AccessModeWrite)
	defer session.Close()

	result, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		res, err := tx.Run(query, params)
		if err != nil {
			return nil, err
		}
		record, err := res.Single()
		if err != nil {
			return nil, fmt.Errorf("link endpoints missing: %w", err)
		}
		return record.Values[0], nil
	})
	if err != nil {
		return false, err
	}

	created, _ := result.(bool)
	return created, nil
}

// FindRelatedClaims implements Store
func (s *Neo4jStore) FindRelatedClaims(ctx context.Context, entityIDs []string, since time.Time) ([]*model.Claim, error) {
	session := s.newSession(neo4j.AccessModeRead)
	defer session.Close()

	res, err := session.Run(`
		MATCH (c:Claim)-[:ABOUT]->(e:Entity)
		WHERE e.id IN $entityIDs AND c.timestamp >= $since
		RETURN DISTINCT c
		ORDER BY c.timestamp ASC
	`, map[string]interface{}{
		"entityIDs": toInterfaceSlice(entityIDs),
		"since":     since,
	})
	if err != nil {
		return nil, err
	}

	var claims []*model.Claim
	for res.Next() {
		node := res.Record().Values[0].(neo4j.Node)
		claims = append(claims, claimFromProps(node.Props))
	}
	return claims, res.Err()
}

// EntityTimeline implements Store
func (s *Neo4jStore) EntityTimeline(ctx context.Context, entityID string) ([]*model.Claim, error) {
	return s.FindRelatedClaims(ctx, []string{entityID}, time.Time{})
}

// ContradictionsFor implements Store
func (s *Neo4jStore) ContradictionsFor(ctx context.Context, claimID string) ([]ContradictionLink, error) {
	session := s.newSession(neo4j.AccessModeRead)
	defer session.Close()

	res, err := session.Run(`
		MATCH (c1:Claim {id: $claimID})-[r:CONTRADICTS]-(c2:Claim)
		RETURN c2, r.confidence, r.detected_at
	`, map[string]interface{}{"claimID": claimID})
	if err != nil {
		return nil, err
	}

	var links []ContradictionLink
	for res.Next() {
		record := res.Record()
		node := record.Values[0].(neo4j.Node)
		link := ContradictionLink{Other: claimFromProps(node.Props)}
		if v, ok := record.Values[1].(float64); ok {
			link.Confidence = v
		}
		if v, ok := record.Values[2].(time.Time); ok {
			link.DetectedAt = v
		}
		links = append(links, link)
	}
	return links, res.Err()
}

// SetClaimStatus implements Store
func (s *Neo4jStore) SetClaimStatus(ctx context.Context, claimID string, status model.VerificationStatus) error {
	return s.setClaimProp(claimID, "status", string(status))
}

// SetClaimValidUntil implements Store
func (s *Neo4jStore) SetClaimValidUntil(ctx context.Context, claimID string, until time.Time) error {
	return s.setClaimProp(claimID, "valid_until", until)
}

func (s *Neo4jStore) setClaimProp(claimID, prop string, value interface{}) error {
	session := s.newSession(neo4j.AccessModeWrite)
	defer session.Close()

	_, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		res, err := tx.Run(
			fmt.Sprintf(`MATCH (c:Claim {id: $id}) SET c.%s = $value RETURN c.id`, prop),
			map[string]interface{}{"id": claimID, "value": value},
		)
		if err != nil {
			return nil, err
		}
		if _, err := res.Single(); err != nil {
			return nil, ErrNotFound
		}
		return nil, nil
	})
	return err
}

// UpsertSource implements Store
func (s *Neo4jStore) UpsertSource(ctx context.Context, source *model.Source) error {
	session := s.newSession(neo4j.AccessModeWrite)
	defer session.Close()

	_, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		return tx.Run(`
			MERGE (s:Source {domain: $domain})
			SET s.credibility_score = $credibility,
				s.bias_score = $bias,
				s.articles_seen = $articlesSeen,
				s.claim_count = $claimCount,
				s.contradicted_claims = $contradicted,
				s.confidence_sum = $confSum,
				s.confidence_sum_sq = $confSumSq,
				s.first_seen = $firstSeen,
				s.last_updated = $lastUpdated
		`, map[string]interface{}{
			"domain":       source.Domain,
			"credibility":  source.CredibilityScore,
			"bias":         source.BiasScore,
			"articlesSeen": source.ArticlesSeen,
			"claimCount":   source.ClaimCount,
			"contradicted": source.ContradictedClaims,
			"confSum":      source.ConfidenceSum,
			"confSumSq":    source.ConfidenceSumSq,
			"firstSeen":    source.FirstSeen,
			"lastUpdated":  source.LastUpdated,
		})
	})
	return err
}

// SourceByDomain implements Store
func (s *Neo4jStore) SourceByDomain(ctx context.Context, domain string) (*model.Source, error) {
	session := s.newSession(neo4j.AccessModeRead)
	defer session.Close()

	res, err := session.Run(`
		MATCH (s:Source {domain: $domain})
		RETURN s
	`, map[string]interface{}{"domain": domain})
	if err != nil {
		return nil, err
	}

	if res.Next() {
		node := res.Record().Values[0].(neo4j.Node)
		return sourceFromProps(node.Props), nil
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNotFound
}

// Stats implements Store
func (s *Neo4jStore) Stats(ctx context.Context) (Stats, error) {
	session := s.newSession(neo4j.AccessModeRead)
	defer session.Close()

	res, err := session.Run(`
		OPTIONAL MATCH (e:Entity)
		WITH count(e) as entities
		OPTIONAL MATCH (c:Claim)
		WITH entities, count(c) as claims
		OPTIONAL MATCH (s:Source)
		WITH entities, claims, count(s) as sources
		OPTIONAL MATCH (:Claim)-[r:CONTRADICTS]-(:Claim)
		RETURN entities, claims, sources, count(DISTINCT r) as contradictions
	`, nil)
	if err != nil {
		return Stats{}, err
	}

	record, err := res.Single()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Entities:       int64Value(record.Values[0]),
		Claims:         int64Value(record.Values[1]),
		Sources:        int64Value(record.Values[2]),
		Contradictions: int64Value(record.Values[3]),
	}, nil
}

// Close implements Store
func (s *Neo4jStore) Close() error {
	return s.driver.Close()
}

// compositeKey flattens an identity key into the single value the
// entity_key uniqueness constraint covers. Neo4j 4.x community edition
// has no composite property constraints.
func compositeKey(key model.IdentityKey) string {
	return key.Name + "|" + string(key.Type)
}

func (s *Neo4jStore) mapError(err error, key model.IdentityKey) error {
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) && strings.Contains(neoErr.Code, "ConstraintValidationFailed") {
		return &ConflictError{Key: key}
	}
	return err
}

func entityFromProps(props map[string]interface{}) *model.Entity {
	return &model.Entity{
		ID:           stringProp(props, "id"),
		Name:         stringProp(props, "name"),
		Type:         model.EntityType(stringProp(props, "type")),
		Aliases:      stringsProp(props, "aliases"),
		FirstSeen:    timeProp(props, "first_seen"),
		LastUpdated:  timeProp(props, "last_updated"),
		MentionCount: int(int64Value(props["mention_count"])),
	}
}

func claimFromProps(props map[string]interface{}) *model.Claim {
	claim := &model.Claim{
		ID:           stringProp(props, "id"),
		Text:         stringProp(props, "text"),
		Confidence:   floatProp(props, "confidence"),
		Status:       model.VerificationStatus(stringProp(props, "status")),
		Timestamp:    timeProp(props, "timestamp"),
		ArticleID:    stringProp(props, "article_id"),
		SourceDomain: stringProp(props, "source_domain"),
		ValidFrom:    timeProp(props, "valid_from"),
	}
	if v, ok := props["valid_until"].(time.Time); ok {
		claim.ValidUntil = &v
	}
	return claim
}

func sourceFromProps(props map[string]interface{}) *model.Source {
	return &model.Source{
		Domain:             stringProp(props, "domain"),
		CredibilityScore:   floatProp(props, "credibility_score"),
		BiasScore:          floatProp(props, "bias_score"),
		ArticlesSeen:       int(int64Value(props["articles_seen"])),
		ClaimCount:         int(int64Value(props["claim_count"])),
		ContradictedClaims: int(int64Value(props["contradicted_claims"])),
		ConfidenceSum:      floatProp(props, "confidence_sum"),
		ConfidenceSumSq:    floatProp(props, "confidence_sum_sq"),
		FirstSeen:          timeProp(props, "first_seen"),
		LastUpdated:        timeProp(props, "last_updated"),
	}
}

func stringProp(props map[string]interface{}, key string) string {
	v, _ := props[key].(string)
	return v
}

func floatProp(props map[string]interface{}, key string) float64 {
	v, _ := props[key].(float64)
	return v
}

func timeProp(props map[string]interface{}, key string) time.Time {
	v, _ := props[key].(time.Time)
	return v
}

func stringsProp(props map[string]interface{}, key string) []string {
	raw, ok := props[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func int64Value(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func toInterfaceSlice(items []string) []interface{} {
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
