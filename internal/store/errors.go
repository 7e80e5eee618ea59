package store

import "errors"

// ErrNotFound is returned when a requested resource does not exist in the
// document.
var ErrNotFound = errors.New("not found")
