package main

import (
	"bytes"
	"testing"

	"github.com/teslashibe/medi-voice/pkg/conversation"
	"github.com/teslashibe/medi-voice/pkg/protocol"
)

func TestSessionURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws/session"},
		{"https://medi.example.com/", "wss://medi.example.com/ws/session"},
		{"http://host/prefix", "ws://host/prefix/ws/session"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := sessionURL(tt.base)
			if err != nil {
				t.Fatalf("sessionURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("sessionURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUtterance(t *testing.T) {
	msgs := utterance("I feel dizzy")
	want := []protocol.MessageType{protocol.TypeStart, protocol.TypeResult, protocol.TypeEnd}
	if len(msgs) != len(want) {
		t.Fatalf("len = %d, want %d", len(msgs), len(want))
	}
	for i, m := range msgs {
		if m.Type != want[i] {
			t.Errorf("msgs[%d].Type = %v, want %v", i, m.Type, want[i])
		}
	}
	r, err := msgs[1].GetResultData()
	if err != nil {
		t.Fatal(err)
	}
	if r.Text != "I feel dizzy" || !r.Final {
		t.Errorf("result = %+v", r)
	}
}

func TestPrintEvent(t *testing.T) {
	m, _ := conversation.NewMessage(conversation.RoleAssistant, "Rest well.")
	chat, _ := protocol.NewChatMessage("", m)
	notice, _ := protocol.NewNoticeMessage("error", "Speech recognition failed. Please try again.")
	interim, _ := protocol.NewInterimMessage("ignored")

	var buf bytes.Buffer
	printEvent(&buf, chat)
	printEvent(&buf, notice)
	printEvent(&buf, interim)

	want := "medi> Rest well.\n[error] Speech recognition failed. Please try again.\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
