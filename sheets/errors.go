package sheets

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedResponse is returned when a successful response cannot be understood.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sheets %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsUnauthorized reports whether err is a StatusError for a rejected token.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}
