package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable fails every key of a batch whose token or table could not be fetched.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrKeyNotFound is wrapped by NotFoundError.
	ErrKeyNotFound = errors.New("key not found")
	// ErrMalformedKey fails a key without a query.
	ErrMalformedKey = errors.New("malformed key")
	// ErrMalformedRow fails a key matching a row that cannot be read as a product.
	ErrMalformedRow = errors.New("malformed row")
)

// NotFoundError is the outcome of an ExactMatch without a matching row.
type NotFoundError struct {
	Field Field
	Value string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no record for %s %q", e.Field, e.Value)
}

func (e *NotFoundError) Unwrap() error {
	return ErrKeyNotFound
}
