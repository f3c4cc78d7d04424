// Package catalog resolves product search keys against a product table kept in a spreadsheet.
//
// A LoadKey is one of three queries: a free text Search over titles, an ExactMatch on an
// identifier, or a MembershipMatch on a set of identifiers. Resolver answers a whole batch of
// keys with a single table fetch, and NewLoader puts a batchloader.Loader in front of it so that
// concurrent callers share batches and cached results.
package catalog
