// Package memstorage provides an in-memory batchloader.CacheStorage.
//
// Entries are spread over hash buckets, each with its own lock. Expired entries are not served
// and are overwritten by the next write of their key.
package memstorage
