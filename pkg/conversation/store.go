package conversation

import (
	"context"
	"sync"
)

// Store is an append-only message log scoped to one session.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append adds a message at the end of the log.
	Append(ctx context.Context, m Message) error

	// History returns every message in insertion order.
	History(ctx context.Context) ([]Message, error)

	// Recent returns the last k messages in insertion order.
	Recent(ctx context.Context, k int) ([]Message, error)

	// Len returns the number of messages.
	Len(ctx context.Context) (int, error)

	// Close ends the session and discards its history.
	Close() error
}

// MemoryStore keeps the log in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []Message
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make([]Message, 0, 32)}
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.messages = append(s.messages, m)
	return nil
}

// History implements Store.
func (s *MemoryStore) History(_ context.Context) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

// Recent implements Store.
func (s *MemoryStore) Recent(_ context.Context, k int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return Tail(s.messages, k), nil
}

// Len implements Store.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return len(s.messages), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.messages = nil
	return nil
}

// Verify MemoryStore implements Store at compile time.
var _ Store = (*MemoryStore)(nil)
