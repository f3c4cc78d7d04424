// Package source adapts plain functions and maps to the loading interfaces of batchloader.
//
// FunctionsSource is a LoadingSource for single-key loaders. ResolverFunc and MapResolver
// are BatchResolvers, and LintResolver checks that a resolver keeps its outcomes aligned with its keys.
package source
