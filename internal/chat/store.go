package chat

import (
	"context"
	"sync"

	"collectdash/pkg/contracts/domain"
)

// Store is an append-only message log that also supports deletion.
type Store interface {
	// Append adds msg after every existing message.
	Append(ctx context.Context, msg domain.ChatMessage) error
	// List returns every message, oldest first.
	List(ctx context.Context) ([]domain.ChatMessage, error)
	// DeleteByTimestamp removes the first message with the given timestamp.
	DeleteByTimestamp(ctx context.Context, timestamp string) error
}

// MemoryStore keeps messages in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []domain.ChatMessage
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append implements Store.
func (m *MemoryStore) Append(_ context.Context, msg domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]domain.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.ChatMessage(nil), m.messages...), nil
}

// DeleteByTimestamp implements Store.
func (m *MemoryStore) DeleteByTimestamp(_ context.Context, timestamp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, msg := range m.messages {
		if msg.Timestamp == timestamp {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return nil
		}
	}
	return ErrMessageNotFound
}
