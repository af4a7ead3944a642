package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching similarity and entailment results
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a cache key from arbitrary parts (e.g. "nli" plus the two
// claim texts). Parts are hashed so long claim texts stay filesystem-safe.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return "chronicle:v1:" + hex.EncodeToString(hash[:])
}

// PairKey builds a key for an unordered text pair, so (a,b) and (b,a) hit
// the same entry
func PairKey(kind, a, b string) string {
	if b < a {
		a, b = b, a
	}
	return Key(kind, a, b)
}
