// Package conversation holds the ordered, append-only session log of
// user/assistant exchanges.
//
// A Store is owned by exactly one session. It exposes the full history for
// display and a recent suffix for building remote-call context. Entries are
// never modified or removed; closing the store ends the session and discards
// its history.
package conversation

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContextWindow is how many prior messages are sent as remote-call context.
const ContextWindow = 10

// Sentinel errors for the conversation package.
var (
	// ErrEmptyContent indicates a message with blank content.
	ErrEmptyContent = errors.New("conversation: message content is empty")

	// ErrInvalidRole indicates a role other than user or assistant.
	ErrInvalidRole = errors.New("conversation: invalid role")

	// ErrClosed indicates the store's session has ended.
	ErrClosed = errors.New("conversation: store closed")
)

// Role identifies who produced a message.
type Role string

const (
	// RoleUser is a finalized transcript from the person speaking.
	RoleUser Role = "user"

	// RoleAssistant is a generated or canned response.
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one entry of the conversation. Treat it as immutable.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(role Role, content string) (Message, error) {
	return NewMessageAt(role, content, time.Now())
}

// NewMessageAt creates a message with an explicit timestamp.
func NewMessageAt(role Role, content string, ts time.Time) (Message, error) {
	m := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: ts,
	}
	return m, m.Validate()
}

// Validate checks the message invariants.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return ErrInvalidRole
	}
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// Tail returns the last k messages of msgs, in order. The result shares no
// backing array with msgs.
func Tail(msgs []Message, k int) []Message {
	if k <= 0 || len(msgs) == 0 {
		return []Message{}
	}
	if len(msgs) > k {
		msgs = msgs[len(msgs)-k:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Sanitize drops entries that would violate the message invariants.
// It is used on client-supplied history.
func Sanitize(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Validate() == nil {
			out = append(out, m)
		}
	}
	return out
}
