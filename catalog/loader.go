package catalog

import (
	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/storage/memstorage"
)

// Loader batches and caches product searches.
type Loader = batchloader.Loader[LoadKey, SearchResult]

// LoaderOption configures a Loader.
type LoaderOption = batchloader.Option[LoadKey, SearchResult]

// NewLoader creates a Loader in front of resolver that caches results in memory under CacheKey.
func NewLoader(resolver batchloader.BatchResolver[LoadKey, SearchResult], opts ...LoaderOption) *Loader {
	return batchloader.New(memstorage.New[string, SearchResult](), resolver, CacheKey, opts...)
}
