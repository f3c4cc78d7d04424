package batchloader

import "errors"

var (
	// ErrOutcomeMismatch is logged when a resolver returns a different number of outcomes than keys.
	ErrOutcomeMismatch = errors.New("resolver returned outcomes not aligned with keys")

	errGoexit = errors.New("runtime.Goexit is called")
)
