package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/teslashibe/medi-voice/pkg/conversation"
	"github.com/teslashibe/medi-voice/pkg/voice"
)

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(TypeStart, nil)
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if msg.Type != TypeStart {
		t.Errorf("Type = %v, want %v", msg.Type, TypeStart)
	}
	if msg.Timestamp == 0 {
		t.Error("Timestamp should be set")
	}
	if msg.Data != nil {
		t.Errorf("Data = %s, want nil", msg.Data)
	}
}

func TestNewMessageMarshalError(t *testing.T) {
	_, err := NewMessage(TypeNotice, make(chan int))
	if err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestResultRoundTrip(t *testing.T) {
	msg, err := NewResultMessage("I have a headache", true)
	if err != nil {
		t.Fatalf("NewResultMessage() error = %v", err)
	}

	bytes, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(bytes)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeResult {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeResult)
	}

	data, err := parsed.GetResultData()
	if err != nil {
		t.Fatalf("GetResultData() error = %v", err)
	}
	if data.Text != "I have a headache" || !data.Final {
		t.Errorf("data = %+v", data)
	}
}

func TestParseBrowserMessages(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  MessageType
	}{
		{"start", `{"type":"start"}`, TypeStart},
		{"stop", `{"type":"stop"}`, TypeStop},
		{"end", `{"type":"end"}`, TypeEnd},
		{"unsupported", `{"type":"unsupported"}`, TypeUnsupported},
		{"speak test", `{"type":"speak_test"}`, TypeSpeakTest},
		{"interim result", `{"type":"result","data":{"text":"I ha","final":false}}`, TypeResult},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseMessage([]byte(tt.input))
			if err != nil {
				t.Fatalf("ParseMessage() error = %v", err)
			}
			if msg.Type != tt.want {
				t.Errorf("Type = %v, want %v", msg.Type, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"error","data":{"reason":"no-speech"}}`))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	data, err := msg.GetErrorData()
	if err != nil {
		t.Fatalf("GetErrorData() error = %v", err)
	}
	if data.Reason != "no-speech" {
		t.Errorf("Reason = %q, want no-speech", data.Reason)
	}
}

func TestStateMessage(t *testing.T) {
	msg, err := NewStateMessage(voice.StateListening)
	if err != nil {
		t.Fatalf("NewStateMessage() error = %v", err)
	}
	if msg.Type != TypeState {
		t.Errorf("Type = %v, want %v", msg.Type, TypeState)
	}

	var data StateData
	if err := msg.ParseData(&data); err != nil {
		t.Fatalf("ParseData() error = %v", err)
	}
	if data.State != "listening" {
		t.Errorf("State = %q, want listening", data.State)
	}
}

func TestChatMessage(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m, err := conversation.NewMessageAt(conversation.RoleUser, "hello", ts)
	if err != nil {
		t.Fatalf("NewMessageAt() error = %v", err)
	}

	msg, err := NewChatMessage("sess-1", m)
	if err != nil {
		t.Fatalf("NewChatMessage() error = %v", err)
	}

	data, err := msg.GetChatData()
	if err != nil {
		t.Fatalf("GetChatData() error = %v", err)
	}
	if data.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", data.SessionID)
	}
	if data.Message.Content != "hello" || data.Message.Role != conversation.RoleUser {
		t.Errorf("Message = %+v", data.Message)
	}
	if !data.Message.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", data.Message.Timestamp, ts)
	}
}

func TestProcessingMessage(t *testing.T) {
	msg, err := NewProcessingMessage("", true)
	if err != nil {
		t.Fatalf("NewProcessingMessage() error = %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(msg.Data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed["processing"] != true {
		t.Errorf("processing = %v, want true", parsed["processing"])
	}
	if _, ok := parsed["session_id"]; ok {
		t.Error("empty session_id should be omitted")
	}
}

func TestSpeakMessage(t *testing.T) {
	u := voice.NewUtterance("Take rest.")

	t.Run("without audio", func(t *testing.T) {
		msg, err := NewSpeakMessage(u, nil, "")
		if err != nil {
			t.Fatalf("NewSpeakMessage() error = %v", err)
		}
		data, err := msg.GetSpeakData()
		if err != nil {
			t.Fatalf("GetSpeakData() error = %v", err)
		}
		if data.Text != "Take rest." {
			t.Errorf("Text = %q", data.Text)
		}
		if data.Rate != voice.DefaultRate || data.Pitch != voice.DefaultPitch || data.Lang != voice.DefaultLang {
			t.Errorf("voice params = %+v", data)
		}
		if data.Audio != "" || data.Format != "" {
			t.Errorf("audio should be empty, got %q %q", data.Audio, data.Format)
		}
	})

	t.Run("with audio", func(t *testing.T) {
		audio := []byte{0xFF, 0xFB, 0x90, 0x00}
		msg, err := NewSpeakMessage(u, audio, "audio/mpeg")
		if err != nil {
			t.Fatalf("NewSpeakMessage() error = %v", err)
		}
		data, err := msg.GetSpeakData()
		if err != nil {
			t.Fatalf("GetSpeakData() error = %v", err)
		}
		if data.Format != "audio/mpeg" {
			t.Errorf("Format = %q, want audio/mpeg", data.Format)
		}
		decoded, err := data.DecodeAudio()
		if err != nil {
			t.Fatalf("DecodeAudio() error = %v", err)
		}
		if string(decoded) != string(audio) {
			t.Errorf("decoded = %v, want %v", decoded, audio)
		}
	})
}

func TestNoticeMessage(t *testing.T) {
	msg, err := NewNoticeMessage("error", "Speech recognition failed. Please try again.")
	if err != nil {
		t.Fatalf("NewNoticeMessage() error = %v", err)
	}
	data, err := msg.GetNoticeData()
	if err != nil {
		t.Fatalf("GetNoticeData() error = %v", err)
	}
	if data.Level != "error" {
		t.Errorf("Level = %q, want error", data.Level)
	}
}

func TestSessionMessage(t *testing.T) {
	msg, err := NewSessionMessage("abc", "opened")
	if err != nil {
		t.Fatalf("NewSessionMessage() error = %v", err)
	}
	var data SessionData
	if err := msg.ParseData(&data); err != nil {
		t.Fatalf("ParseData() error = %v", err)
	}
	if data.SessionID != "abc" || data.Event != "opened" {
		t.Errorf("data = %+v", data)
	}
}

func TestPingPongMessage(t *testing.T) {
	pingMsg, err := NewPingMessage("test-123")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}

	if pingMsg.Type != TypePing {
		t.Errorf("Type = %v, want %v", pingMsg.Type, TypePing)
	}

	pingData, err := pingMsg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}

	if pingData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pingData.ID)
	}

	now := time.Now().UnixMilli()
	pongMsg, err := NewPongMessage("test-123", pingMsg.Timestamp, now)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}

	pongData, err := pongMsg.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}

	if pongData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pongData.ID)
	}
	if pongData.LatencyMs < 0 {
		t.Errorf("LatencyMs = %v, should be >= 0", pongData.LatencyMs)
	}
}

func TestParseInvalidMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "invalid json",
			input:   "not json",
			wantErr: true,
		},
		{
			name:    "missing type",
			input:   "{}",
			wantErr: true,
		},
		{
			name:    "valid message",
			input:   `{"type":"ping","ts":1234567890}`,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDataNil(t *testing.T) {
	msg := &Message{Type: TypeStop}
	var data ResultData
	if err := msg.ParseData(&data); err != nil {
		t.Errorf("ParseData() error = %v", err)
	}
}

func TestMessageJSON(t *testing.T) {
	msg, _ := NewInterimMessage("I have a")

	bytes, _ := msg.Bytes()

	var parsed map[string]interface{}
	if err := json.Unmarshal(bytes, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal as map: %v", err)
	}

	if parsed["type"] != "interim" {
		t.Errorf("type = %v, want interim", parsed["type"])
	}
	if _, ok := parsed["ts"]; !ok {
		t.Error("ts field should be present")
	}
	if _, ok := parsed["data"]; !ok {
		t.Error("data field should be present")
	}
}

func BenchmarkParseMessage(b *testing.B) {
	msg, _ := NewResultMessage("I have had a headache for two days", true)
	bytes, _ := msg.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseMessage(bytes)
	}
}
