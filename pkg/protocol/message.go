// Package protocol defines the WebSocket messages exchanged with the browser.
//
// The browser owns the speech engines and forwards their callbacks to the
// server; the server answers with display and playback events. The same
// envelope is used on the observer feed.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/medi-voice/pkg/conversation"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Browser → server: speech recognition callbacks and UI actions
	TypeStart       MessageType = "start"       // User pressed the mic button
	TypeStop        MessageType = "stop"        // User pressed stop
	TypeResult      MessageType = "result"      // Recognition result
	TypeError       MessageType = "error"       // Recognition error
	TypeEnd         MessageType = "end"         // Recognition session ended
	TypeUnsupported MessageType = "unsupported" // Browser has no recognizer
	TypeSpeakTest   MessageType = "speak_test"  // Test voice button

	// Server → browser
	TypeState      MessageType = "state"      // Recognizer state
	TypeInterim    MessageType = "interim"    // In-progress transcript
	TypeMessage    MessageType = "message"    // Conversation entry appended
	TypeProcessing MessageType = "processing" // Processing flag changed
	TypeSpeak      MessageType = "speak"      // Playback request
	TypeNotice     MessageType = "notice"     // Transient notification

	// Observer feed only
	TypeSession MessageType = "session" // Session opened or closed

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Browser → Server Message Types
// =============================================================================

// ResultData is one speech recognition result.
type ResultData struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// ErrorData carries the platform's recognition error code.
type ErrorData struct {
	Reason string `json:"reason"`
}

// =============================================================================
// Server → Browser Message Types
// =============================================================================

// StateData reports the recognizer state: idle, listening or error.
type StateData struct {
	State string `json:"state"`
}

// InterimData is the transcript currently being recognized.
type InterimData struct {
	Text string `json:"text"`
}

// ChatData is a conversation entry.
type ChatData struct {
	SessionID string               `json:"session_id,omitempty"`
	Message   conversation.Message `json:"message"`
}

// ProcessingData reports the processing flag.
type ProcessingData struct {
	SessionID  string `json:"session_id,omitempty"`
	Processing bool   `json:"processing"`
}

// SpeakData asks the browser to speak text. When Audio is set the browser
// plays it instead of using its own synthesis.
type SpeakData struct {
	Text   string  `json:"text"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Lang   string  `json:"lang"`
	Audio  string  `json:"audio,omitempty"`  // base64 encoded
	Format string  `json:"format,omitempty"` // MIME type of Audio
}

// NoticeData is a transient notification.
type NoticeData struct {
	Level string `json:"level"` // "info", "error"
	Text  string `json:"text"`
}

// SessionData announces a session lifecycle change on the observer feed.
type SessionData struct {
	SessionID string `json:"session_id"`
	Event     string `json:"event"` // "opened", "closed"
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
