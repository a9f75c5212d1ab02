package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/medi-voice/pkg/assistant"
	"github.com/teslashibe/medi-voice/pkg/conversation"
	"github.com/teslashibe/medi-voice/pkg/fallback"
	"github.com/teslashibe/medi-voice/pkg/hub"
	"github.com/teslashibe/medi-voice/pkg/inference"
	"github.com/teslashibe/medi-voice/pkg/knowledge"
	"github.com/teslashibe/medi-voice/pkg/protocol"
	"github.com/teslashibe/medi-voice/pkg/session"
)

type testEnv struct {
	server   *Server
	sessions *session.Manager
	events   *hub.Hub
}

func newTestEnv(t *testing.T, provider inference.Provider, opts ...Option) *testEnv {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	events := hub.New("events", nil)
	go events.Run(ctx)

	resolver := assistant.NewResolver(provider, fallback.MustNew())
	sessions := session.NewManager(resolver, session.WithHub(events))

	t.Cleanup(func() {
		sessions.CloseAll()
		cancel()
	})

	return &testEnv{
		server:   New(resolver, sessions, events, opts...),
		sessions: sessions,
		events:   events,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.server.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, data
}

func decode(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

func TestMedicalAI(t *testing.T) {
	quota := &inference.APIError{StatusCode: 429, Code: "insufficient_quota", Message: "quota", Provider: "openai"}

	tests := []struct {
		name         string
		provider     inference.Provider
		body         string
		wantStatus   int
		wantResponse string
		wantFallback bool
	}{
		{
			name:         "remote reply",
			provider:     inference.NewMock("Please rest."),
			body:         `{"message":"I have a headache","conversation":[]}`,
			wantStatus:   200,
			wantResponse: "Please rest.",
		},
		{
			name:         "quota exceeded uses topic block",
			provider:     inference.WithError(quota),
			body:         `{"message":"I have a headache","conversation":[]}`,
			wantStatus:   200,
			wantResponse: fallback.MustNew().Respond("headache"),
			wantFallback: true,
		},
		{
			name:         "no credentials uses default block",
			provider:     nil,
			body:         `{"message":"hello"}`,
			wantStatus:   200,
			wantResponse: fallback.DefaultResponse,
			wantFallback: true,
		},
		{
			name:         "invalid json",
			provider:     inference.NewMock("unused"),
			body:         `{"message":`,
			wantStatus:   200,
			wantResponse: fallback.TechnicalDifficulty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.provider)
			resp, data := env.do(t, http.MethodPost, "/api/medical-ai", tt.body)

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.wantStatus, data)
			}

			var got map[string]interface{}
			decode(t, data, &got)
			if got["response"] != tt.wantResponse {
				t.Errorf("response = %q, want %q", got["response"], tt.wantResponse)
			}
			if _, ok := got["timestamp"]; !ok {
				t.Error("timestamp missing")
			}
			fb, present := got["fallback"]
			if tt.wantFallback && fb != true {
				t.Errorf("fallback = %v, want true", fb)
			}
			if !tt.wantFallback && present {
				t.Errorf("fallback should be omitted, got %v", fb)
			}
		})
	}
}

func TestMedicalAIMissingMessage(t *testing.T) {
	for _, body := range []string{`{}`, `{"message":""}`, `{"conversation":[]}`} {
		t.Run(body, func(t *testing.T) {
			env := newTestEnv(t, inference.NewMock("unused"))
			resp, data := env.do(t, http.MethodPost, "/api/medical-ai", body)

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			var got map[string]string
			decode(t, data, &got)
			if got["error"] != "Message is required" {
				t.Errorf("error = %q", got["error"])
			}
		})
	}
}

func TestMedicalAIWithoutContentType(t *testing.T) {
	env := newTestEnv(t, inference.NewMock("Please rest."))

	req := httptest.NewRequest(http.MethodPost, "/api/medical-ai",
		strings.NewReader(`{"message":"I have a headache"}`))
	resp, err := env.server.App().Test(req, -1)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", resp.StatusCode, data)
	}
	var got map[string]interface{}
	decode(t, data, &got)
	if got["response"] != "Please rest." {
		t.Errorf("response = %q, want remote reply", got["response"])
	}
}

func TestMedicalAIContext(t *testing.T) {
	mock := inference.NewMock("ok")
	env := newTestEnv(t, mock)

	body := `{"message":"and now?","conversation":[
		{"role":"user","content":"first","timestamp":"2024-01-01T00:00:00.000Z"},
		{"role":"assistant","content":"second"},
		{"role":"bogus","content":"dropped"},
		{"role":"user","content":""}
	]}`
	resp, _ := env.do(t, http.MethodPost, "/api/medical-ai", body)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	req := mock.LastRequest()
	if req == nil {
		t.Fatal("no request recorded")
	}
	// system + 2 valid history entries + new user turn
	if len(req.Messages) != 4 {
		t.Fatalf("len(Messages) = %d, want 4", len(req.Messages))
	}
	if req.Messages[0].Role != inference.RoleSystem {
		t.Errorf("first role = %v, want system", req.Messages[0].Role)
	}
	if last := req.Messages[3]; last.Role != inference.RoleUser || last.Content != "and now?" {
		t.Errorf("last message = %+v", last)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, inference.NewMock("ok"), WithRateLimit(2))

	for i := 0; i < 2; i++ {
		resp, _ := env.do(t, http.MethodPost, "/api/medical-ai", `{"message":"hi"}`)
		if resp.StatusCode != 200 {
			t.Fatalf("request %d status = %d", i, resp.StatusCode)
		}
	}
	resp, _ := env.do(t, http.MethodPost, "/api/medical-ai", `{"message":"hi"}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
}

func TestTopicsAndKnowledge(t *testing.T) {
	env := newTestEnv(t, nil)

	_, data := env.do(t, http.MethodGet, "/api/topics", "")
	var topics struct {
		Topics []string `json:"topics"`
	}
	decode(t, data, &topics)
	if len(topics.Topics) != 8 || topics.Topics[0] != fallback.TopicHeadache {
		t.Errorf("topics = %v", topics.Topics)
	}

	_, data = env.do(t, http.MethodGet, "/api/knowledge", "")
	var panel knowledge.Panel
	decode(t, data, &panel)
	if panel.Disclaimer != knowledge.Disclaimer || len(panel.Symptoms) != 4 {
		t.Errorf("panel = %+v", panel)
	}
}

func TestSessionREST(t *testing.T) {
	env := newTestEnv(t, inference.NewMock("Drink fluids."))

	resp, data := env.do(t, http.MethodPost, "/api/sessions", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var info SessionInfo
	decode(t, data, &info)
	if info.ID == "" {
		t.Fatal("empty session id")
	}

	base := "/api/sessions/" + info.ID

	resp, _ = env.do(t, http.MethodPost, base+"/messages", `{"message":"   "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank message status = %d, want 400", resp.StatusCode)
	}

	resp, data = env.do(t, http.MethodPost, base+"/messages", `{"message":"I have a fever"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("message status = %d (%s)", resp.StatusCode, data)
	}
	var res assistant.Result
	decode(t, data, &res)
	if res.Response != "Drink fluids." {
		t.Errorf("response = %q", res.Response)
	}

	_, data = env.do(t, http.MethodGet, base+"/conversation", "")
	var conv struct {
		SessionID string                 `json:"session_id"`
		Messages  []conversation.Message `json:"messages"`
	}
	decode(t, data, &conv)
	if conv.SessionID != info.ID || len(conv.Messages) != 2 {
		t.Fatalf("conversation = %+v", conv)
	}
	if conv.Messages[0].Role != conversation.RoleUser || conv.Messages[1].Role != conversation.RoleAssistant {
		t.Errorf("roles = %v, %v", conv.Messages[0].Role, conv.Messages[1].Role)
	}

	resp, _ = env.do(t, http.MethodDelete, base, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodGet, base+"/conversation", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("after delete status = %d, want 404", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, base, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		provider inference.Provider
		want     string
	}{
		{"not configured", nil, ProviderNotConfigured},
		{"ok", inference.NewMock("ok"), ProviderOK},
		{"unavailable", inference.WithError(errors.New("down")), ProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []Option{}
			if tt.provider != nil {
				opts = append(opts, WithProvider(tt.provider))
			}
			env := newTestEnv(t, tt.provider, opts...)

			resp, data := env.do(t, http.MethodGet, "/health", "")
			if resp.StatusCode != 200 {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			var status HealthStatus
			decode(t, data, &status)
			if status.Status != "ok" || status.Provider != tt.want {
				t.Errorf("health = %+v, want provider %s", status, tt.want)
			}
		})
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, _ := env.do(t, http.MethodGet, "/ws/session", "")
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}

// listen serves the app on a random local port.
func listen(t *testing.T, env *testEnv) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go env.server.App().Listener(ln)
	t.Cleanup(func() { env.server.Shutdown(context.Background()) })
	return "ws://" + ln.Addr().String()
}

func readMessage(t *testing.T, conn *websocket.Conn) *protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return msg
}

func sendMessage(t *testing.T, conn *websocket.Conn, typ protocol.MessageType, data interface{}) {
	t.Helper()
	msg, err := protocol.NewMessage(typ, data)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := msg.Bytes()
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestSessionWebSocket(t *testing.T) {
	env := newTestEnv(t, inference.NewMock("Take it easy."))
	url := listen(t, env)

	conn, _, err := websocket.DefaultDialer.Dial(url+"/ws/session", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := readMessage(t, conn)
	if hello.Type != protocol.TypeSession {
		t.Fatalf("first message = %v, want session", hello.Type)
	}
	var sd protocol.SessionData
	hello.ParseData(&sd)
	if sd.SessionID == "" {
		t.Fatal("empty session id")
	}

	if msg := readMessage(t, conn); msg.Type != protocol.TypeState {
		t.Fatalf("second message = %v, want state", msg.Type)
	}

	sendMessage(t, conn, protocol.TypeStart, nil)
	if msg := readMessage(t, conn); msg.Type != protocol.TypeState {
		t.Fatalf("after start = %v, want state", msg.Type)
	}

	sendMessage(t, conn, protocol.TypeResult, protocol.ResultData{Text: "my back hurts", Final: true})

	var replies []string
	for len(replies) < 2 {
		msg := readMessage(t, conn)
		if msg.Type != protocol.TypeMessage {
			continue
		}
		chat, _ := msg.GetChatData()
		replies = append(replies, chat.Message.Content)
	}
	if replies[0] != "my back hurts" || replies[1] != "Take it easy." {
		t.Errorf("replies = %v", replies)
	}

	if env.sessions.Count() != 1 {
		t.Errorf("Count() = %d, want 1", env.sessions.Count())
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for env.sessions.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if env.sessions.Count() != 0 {
		t.Error("ephemeral session should close on disconnect")
	}
}

func TestSessionWebSocketUnknownID(t *testing.T) {
	env := newTestEnv(t, nil)
	url := listen(t, env)

	conn, _, err := websocket.DefaultDialer.Dial(url+"/ws/session/does-not-exist", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("err = %v, want normal close", err)
	}
}

func TestEventsWebSocket(t *testing.T) {
	env := newTestEnv(t, nil)
	url := listen(t, env)

	conn, _, err := websocket.DefaultDialer.Dial(url+"/ws/events", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.events.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	resp, data := env.do(t, http.MethodPost, "/api/sessions", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var info SessionInfo
	decode(t, data, &info)

	msg := readMessage(t, conn)
	if msg.Type != protocol.TypeSession {
		t.Fatalf("type = %v, want session", msg.Type)
	}
	var sd protocol.SessionData
	msg.ParseData(&sd)
	if sd.SessionID != info.ID || sd.Event != session.EventOpened {
		t.Errorf("session data = %+v", sd)
	}
}
