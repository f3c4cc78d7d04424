// Package batchloader coalesces concurrent loads by key into batches.
//
// A Loader collects the keys requested while a batch is open, resolves them with one
// BatchResolver call, and caches every outcome in a CacheStorage under the key's cache key.
// Failures are cached too and surface as nil results, so Load never fails because of the resolver.
//
// LoadingCache is the single key counterpart: a read-through cache in front of a SourceLoader.
package batchloader
