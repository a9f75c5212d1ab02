package protocol

import (
	"encoding/base64"
	"time"

	"github.com/teslashibe/medi-voice/pkg/conversation"
	"github.com/teslashibe/medi-voice/pkg/voice"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewStateMessage creates a recognizer state message
func NewStateMessage(state voice.State) (*Message, error) {
	return NewMessage(TypeState, StateData{State: string(state)})
}

// NewInterimMessage creates an interim transcript message
func NewInterimMessage(text string) (*Message, error) {
	return NewMessage(TypeInterim, InterimData{Text: text})
}

// NewChatMessage creates a conversation entry message
func NewChatMessage(sessionID string, m conversation.Message) (*Message, error) {
	return NewMessage(TypeMessage, ChatData{SessionID: sessionID, Message: m})
}

// NewProcessingMessage creates a processing flag message
func NewProcessingMessage(sessionID string, processing bool) (*Message, error) {
	return NewMessage(TypeProcessing, ProcessingData{SessionID: sessionID, Processing: processing})
}

// NewSpeakMessage creates a playback request. audio may be nil.
func NewSpeakMessage(u voice.Utterance, audio []byte, mimeType string) (*Message, error) {
	data := SpeakData{
		Text:  u.Text,
		Rate:  u.Rate,
		Pitch: u.Pitch,
		Lang:  u.Lang,
	}
	if len(audio) > 0 {
		data.Audio = base64.StdEncoding.EncodeToString(audio)
		data.Format = mimeType
	}
	return NewMessage(TypeSpeak, data)
}

// NewNoticeMessage creates a notification message
func NewNoticeMessage(level, text string) (*Message, error) {
	return NewMessage(TypeNotice, NoticeData{Level: level, Text: text})
}

// NewSessionMessage creates a session lifecycle message
func NewSessionMessage(sessionID, event string) (*Message, error) {
	return NewMessage(TypeSession, SessionData{SessionID: sessionID, Event: event})
}

// NewResultMessage creates a recognition result message
func NewResultMessage(text string, final bool) (*Message, error) {
	return NewMessage(TypeResult, ResultData{Text: text, Final: final})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetResultData extracts a recognition result from a message
func (m *Message) GetResultData() (*ResultData, error) {
	var data ResultData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts a recognition error from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetChatData extracts a conversation entry from a message
func (m *Message) GetChatData() (*ChatData, error) {
	var data ChatData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSpeakData extracts speak data from a message
func (m *Message) GetSpeakData() (*SpeakData, error) {
	var data SpeakData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeAudio decodes the base64 audio data
func (s *SpeakData) DecodeAudio() ([]byte, error) {
	return base64.StdEncoding.DecodeString(s.Audio)
}

// GetNoticeData extracts a notification from a message
func (m *Message) GetNoticeData() (*NoticeData, error) {
	var data NoticeData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
