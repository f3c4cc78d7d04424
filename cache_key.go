package batchloader

import (
	"encoding/json"
	"fmt"
)

// JSONCacheKey is a CacheKeyFunc that encodes the key as JSON.
// Struct fields are encoded in declaration order and map keys are sorted,
// so structurally equal keys always produce the same cache key.
// Slice elements keep their order: no semantic normalization is applied.
// Strings must be valid UTF-8; invalid bytes are replaced with U+FFFD, which merges distinct keys.
func JSONCacheKey[K any](key K) string {
	b, err := json.Marshal(key)
	if err != nil {
		// Only unsupported values (channels, funcs, cyclic data) get here.
		return fmt.Sprintf("%T:%#v", key, key)
	}
	return string(b)
}
