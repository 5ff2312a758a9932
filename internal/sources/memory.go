package sources

import (
	"context"
	"fmt"
	"sync"

	"collectdash/pkg/contracts/domain"
)

// MemorySource serves batches from memory. Failures can be injected per batch.
type MemorySource struct {
	mu       sync.RWMutex
	order    []string
	batches  map[string][][]any
	failures map[string]error
	fetches  map[string]int
}

// NewMemorySource creates an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		batches:  make(map[string][][]any),
		failures: make(map[string]error),
		fetches:  make(map[string]int),
	}
}

// Put adds or replaces a batch. New names are appended to the listing order.
func (m *MemorySource) Put(name string, rows [][]any) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.batches[name]; !exists {
		if _, failing := m.failures[name]; !failing {
			m.order = append(m.order, name)
		}
	}
	m.batches[name] = rows
	return m
}

// Fail makes FetchBatch return err for name. The name is listed even if no
// rows were added.
func (m *MemorySource) Fail(name string, err error) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.batches[name]; !exists {
		if _, failing := m.failures[name]; !failing {
			m.order = append(m.order, name)
		}
	}
	m.failures[name] = err
	return m
}

// ListBatches returns batch names in insertion order.
func (m *MemorySource) ListBatches(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...), nil
}

// FetchBatch returns a copy of the named batch's rows.
func (m *MemorySource) FetchBatch(ctx context.Context, name string) (domain.RawBatch, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawBatch{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[name]++
	if err, failing := m.failures[name]; failing {
		return domain.RawBatch{}, err
	}
	rows, ok := m.batches[name]
	if !ok {
		return domain.RawBatch{}, fmt.Errorf("batch %q: %w", name, ErrBatchNotFound)
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = append([]any(nil), r...)
	}
	return domain.RawBatch{Name: name, Rows: out}, nil
}

// Fetches reports how many times a batch has been fetched.
func (m *MemorySource) Fetches(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetches[name]
}
