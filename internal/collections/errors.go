package collections

import (
	"errors"
	"fmt"
)

// ErrEmptyData is returned when no batch produced any records.
var ErrEmptyData = errors.New("no data available")

// BatchFetchError reports a batch that could not be read. The aggregator
// skips such batches and reports them as warnings.
type BatchFetchError struct {
	Batch string
	Err   error
}

func (e *BatchFetchError) Error() string {
	return fmt.Sprintf("read batch %q: %v", e.Batch, e.Err)
}

func (e *BatchFetchError) Unwrap() error {
	return e.Err
}
