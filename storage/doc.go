// Package storage holds what every batchloader.CacheStorage implementation shares.
//
// SilentErrorStorage turns a storage into one that never fails, reporting errors to a callback.
// FunctionsStorage builds a storage out of plain functions, which is mostly useful in tests.
// The Err* values are wrapped by the memstorage, lrustorage and redisstorage subpackages.
package storage
