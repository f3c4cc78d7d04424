// Package singleflightloader provides a batchloader.SourceLoader that loads each key once
// no matter how many goroutines miss it at the same time.
//
// Concurrent callers for the same key share one call to the source through
// golang.org/x/sync/singleflight. Every caller gets its own copy of a shared value.
package singleflightloader
