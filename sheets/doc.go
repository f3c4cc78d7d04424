// Package sheets is a client for a spreadsheet values API protected by an OAuth2
// client-credentials token endpoint.
//
// Client acquires tokens and fetches value ranges. TokenCache keeps one token per client
// until shortly before it expires so that batches do not pay for a token round trip each.
package sheets
