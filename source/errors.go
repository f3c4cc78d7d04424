package source

import "errors"

// ErrMissing is the outcome error of a key that MapResolver's function left out.
var ErrMissing = errors.New("no outcome for key")
