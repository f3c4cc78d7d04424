// Package expiration decides when a stored entry stops being served.
//
// Storages compare the entry's ExpiresAt with the current time through a Policy.
// Deadline is the plain comparison, Leeway expires entries a fixed time early,
// and Early spreads refreshes of hot keys by expiring some reads ahead of time.
package expiration
