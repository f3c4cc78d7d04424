package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/karupanerura/batchloader"
)

// Field is an identifier field a filter can match.
type Field string

const (
	FieldSKU    Field = "sku"
	FieldURLKey Field = "url_key"
)

// Query selects the rows of a LoadKey.
type Query interface {
	isQuery()
}

// Search matches every row whose title contains Term. Matching is case-sensitive.
type Search struct {
	Term string
}

// ExactMatch matches the first row whose identifier equals Value.
type ExactMatch struct {
	Field Field
	Value string
}

// MembershipMatch matches every row whose identifier is one of Values.
type MembershipMatch struct {
	Field  Field
	Values []string
}

func (Search) isQuery()          {}
func (ExactMatch) isQuery()      {}
func (MembershipMatch) isQuery() {}

// LoadKey is a product search request.
// A nil Query is malformed and resolves to ErrMalformedKey.
type LoadKey struct {
	Query Query

	// CategoryID is part of the identity of the key. It does not filter rows.
	CategoryID  *int
	CurrentPage int
	PageSize    int
}

// EqOrIn is either {"eq": value} or {"in": [values...]}.
type EqOrIn struct {
	Eq *string  `json:"eq,omitempty"`
	In []string `json:"in,omitempty"`
}

// RawFilter is the filter object of a RawKey.
type RawFilter struct {
	SKU    *EqOrIn `json:"sku,omitempty"`
	URLKey *EqOrIn `json:"url_key,omitempty"`
}

// RawKey is the wire form of a LoadKey.
type RawKey struct {
	Search      *string    `json:"search,omitempty"`
	Filter      *RawFilter `json:"filter,omitempty"`
	CategoryID  *int       `json:"categoryId,omitempty"`
	CurrentPage int        `json:"currentPage"`
	PageSize    int        `json:"pageSize"`
}

// ParseKey converts raw into a LoadKey.
// A non-empty search wins over a filter; an empty search counts as absent. Otherwise the first of
// sku.eq, sku.in, url_key.eq and url_key.in that is present becomes the query, so a url_key filter
// next to a sku filter is dropped and takes no part in the cache key. A key with none of them keeps a nil Query.
func ParseKey(raw RawKey) LoadKey {
	key := LoadKey{
		CategoryID:  raw.CategoryID,
		CurrentPage: raw.CurrentPage,
		PageSize:    raw.PageSize,
	}
	if raw.Search != nil && *raw.Search != "" {
		key.Query = Search{Term: *raw.Search}
		return key
	}
	if raw.Filter == nil {
		return key
	}
	if q := parseEqOrIn(FieldSKU, raw.Filter.SKU); q != nil {
		key.Query = q
	} else if q := parseEqOrIn(FieldURLKey, raw.Filter.URLKey); q != nil {
		key.Query = q
	}
	return key
}

func parseEqOrIn(field Field, v *EqOrIn) Query {
	switch {
	case v == nil:
		return nil
	case v.Eq != nil:
		return ExactMatch{Field: field, Value: *v.Eq}
	case v.In != nil:
		return MembershipMatch{Field: field, Values: slices.Clone(v.In)}
	default:
		return nil
	}
}

// Raw returns the wire form of k.
func (k LoadKey) Raw() RawKey {
	raw := RawKey{
		CategoryID:  k.CategoryID,
		CurrentPage: k.CurrentPage,
		PageSize:    k.PageSize,
	}
	switch q := k.Query.(type) {
	case Search:
		raw.Search = &q.Term
	case ExactMatch:
		raw.Filter = rawFilter(q.Field, &EqOrIn{Eq: &q.Value})
	case MembershipMatch:
		raw.Filter = rawFilter(q.Field, &EqOrIn{In: slices.Clone(q.Values)})
	}
	return raw
}

func rawFilter(field Field, v *EqOrIn) *RawFilter {
	switch field {
	case FieldSKU:
		return &RawFilter{SKU: v}
	case FieldURLKey:
		return &RawFilter{URLKey: v}
	default:
		return &RawFilter{}
	}
}

// Validate reports why k cannot be resolved: an identifier field other than sku or url_key,
// or a term or value that is not valid UTF-8. A nil Query is reported as well.
func (k LoadKey) Validate() error {
	switch q := k.Query.(type) {
	case nil:
		return fmt.Errorf("%w: no search or filter", ErrMalformedKey)
	case Search:
		return validString("search term", q.Term)
	case ExactMatch:
		return errors.Join(validField(q.Field), validString("value", q.Value))
	case MembershipMatch:
		errs := []error{validField(q.Field)}
		for _, v := range q.Values {
			errs = append(errs, validString("value", v))
		}
		return errors.Join(errs...)
	default:
		return fmt.Errorf("%w: unknown query %T", ErrMalformedKey, q)
	}
}

func validField(field Field) error {
	if field == FieldSKU || field == FieldURLKey {
		return nil
	}
	return fmt.Errorf("%w: unknown field %q", ErrMalformedKey, string(field))
}

func validString(what, s string) error {
	if utf8.ValidString(s) {
		return nil
	}
	return fmt.Errorf("%w: %s %q is not valid UTF-8", ErrMalformedKey, what, s)
}

// malformedPrefix never starts a JSON object, so malformed keys cannot collide with well-formed ones.
const malformedPrefix = "malformed:"

// CacheKey is the canonical identity of k: the JSON encoding of its wire form.
// Membership values keep their order, so {"in":["a","b"]} and {"in":["b","a"]} are different keys.
// A key that fails Validate has no wire form; its cache key quotes every field with %q instead,
// which keeps unknown fields and invalid UTF-8 bytes distinct.
func CacheKey(k LoadKey) string {
	if k.Query == nil || k.Validate() == nil {
		return batchloader.JSONCacheKey(k.Raw())
	}

	var b strings.Builder
	b.WriteString(malformedPrefix)
	switch q := k.Query.(type) {
	case Search:
		fmt.Fprintf(&b, "search:%q", q.Term)
	case ExactMatch:
		fmt.Fprintf(&b, "eq:%q:%q", string(q.Field), q.Value)
	case MembershipMatch:
		fmt.Fprintf(&b, "in:%q:%q", string(q.Field), q.Values)
	default:
		fmt.Fprintf(&b, "%T:%#v", q, q)
	}
	if k.CategoryID != nil {
		fmt.Fprintf(&b, ":category=%d", *k.CategoryID)
	}
	fmt.Fprintf(&b, ":page=%d:size=%d", k.CurrentPage, k.PageSize)
	return b.String()
}
