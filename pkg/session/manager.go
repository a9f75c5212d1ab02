// Package session manages browser conversations. Each session owns a
// conversation store, a query dispatcher and a recognizer state machine,
// and turns their callbacks into protocol events for the browser.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/medi-voice/pkg/assistant"
	"github.com/teslashibe/medi-voice/pkg/protocol"
)

// Session lifecycle events published on the observer hub.
const (
	EventOpened = "opened"
	EventClosed = "closed"
)

// Manager creates, tracks and expires sessions.
type Manager struct {
	resolver *assistant.Resolver
	config   *Config
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager whose sessions resolve replies with resolver.
func NewManager(resolver *assistant.Resolver, opts ...Option) *Manager {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	return &Manager{
		resolver: resolver,
		config:   cfg,
		logger:   cfg.Logger.With("component", "session.manager"),
		sessions: make(map[string]*Session),
	}
}

// Create opens a new session with an empty conversation.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	store, err := m.config.Stores(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}

	s := newSession(id, store, m.resolver, m.config)

	m.mu.Lock()
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info("session opened", "session_id", id, "sessions", count)
	m.announce(id, EventOpened)
	return s, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close ends a session and discards its conversation.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	return m.finish(s, count)
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Run reaps idle sessions until ctx is canceled, then closes every
// remaining session.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return
		case <-ticker.C:
			m.Reap()
		}
	}
}

// Reap closes sessions idle for longer than the TTL and returns how many
// were closed. A zero TTL disables expiry.
func (m *Manager) Reap() int {
	if m.config.TTL <= 0 {
		return 0
	}

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.Idle(m.config.TTL) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	for _, s := range idle {
		m.logger.Info("session expired", "session_id", s.ID())
		m.finish(s, count)
	}
	return len(idle)
}

// CloseAll closes every open session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		m.finish(s, 0)
	}
}

func (m *Manager) finish(s *Session, remaining int) error {
	err := s.close()
	if err != nil {
		m.logger.Warn("close session store", "session_id", s.ID(), "error", err)
	}
	m.logger.Info("session closed", "session_id", s.ID(), "sessions", remaining)
	m.announce(s.ID(), EventClosed)
	return err
}

func (m *Manager) announce(id, event string) {
	if m.config.Hub == nil {
		return
	}
	msg, err := protocol.NewSessionMessage(id, event)
	if err != nil {
		return
	}
	m.config.Hub.Publish(msg)
}
