package sources

import "errors"

// ErrBatchNotFound is returned when a named batch does not exist in the source.
var ErrBatchNotFound = errors.New("batch not found")
