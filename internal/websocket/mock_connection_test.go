package websocket

import (
	"errors"
	"sync"
	"time"
)

type mockMessage struct {
	Type int
	Data []byte
}

// mockConnection records writes and blocks reads until closed.
type mockConnection struct {
	mu      sync.Mutex
	written []mockMessage
	closed  chan struct{}
	once    sync.Once
}

func newMockConnection() *mockConnection {
	return &mockConnection{closed: make(chan struct{})}
}

func (m *mockConnection) WriteMessage(messageType int, data []byte) error {
	select {
	case <-m.closed:
		return errors.New("connection closed")
	default:
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, mockMessage{Type: messageType, Data: append([]byte(nil), data...)})
	return nil
}

func (m *mockConnection) ReadMessage() (int, []byte, error) {
	<-m.closed
	return 0, nil, errors.New("connection closed")
}

func (m *mockConnection) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

func (m *mockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *mockConnection) SetWriteDeadline(time.Time) error { return nil }
func (m *mockConnection) SetReadLimit(int64)               {}
func (m *mockConnection) SetPongHandler(func(string) error) {}
func (m *mockConnection) RemoteAddr() string               { return "127.0.0.1:9000" }

func (m *mockConnection) messages(messageType int) []mockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mockMessage
	for _, msg := range m.written {
		if msg.Type == messageType {
			out = append(out, msg)
		}
	}
	return out
}
