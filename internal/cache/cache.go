// Package cache stores rendered report data keyed by store revision.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// KeyPrefix namespaces every key; bump the version when report layout changes
const KeyPrefix = "forensia:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ReportKey identifies one report of a given kind from the store named by
// scope at a revision. Any write to the store changes the revision and so
// misses the cache.
func ReportKey(scope, kind string, sourceID int64, revision int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s/%d@%d", scope, kind, sourceID, revision)))
	return KeyPrefix + hex.EncodeToString(hash[:16])
}

// GetJSON decodes a cached value into v; a miss or a corrupt entry reports false
func GetJSON(c Cache, key string, v interface{}) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.Delete(key)
		return false
	}
	return true
}

// SetJSON encodes v and stores it
func SetJSON(c Cache, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return c.Set(key, data, ttl)
}
