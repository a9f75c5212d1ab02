package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

func TestMockProvider(t *testing.T) {
	ctx := context.Background()
	mock := NewMock("Mock response")

	resp, err := mock.Chat(ctx, &ChatRequest{
		Messages: []Message{NewUserMessage("Hello")},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Message.Content != "Mock response" {
		t.Errorf("Unexpected content: %s", resp.Message.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("Expected finish_reason 'stop', got %s", resp.FinishReason)
	}

	if mock.CallCount("Chat") != 1 {
		t.Errorf("Expected 1 Chat call, got %d", mock.CallCount("Chat"))
	}
	last := mock.LastRequest()
	if last == nil || last.Messages[0].Content != "Hello" {
		t.Errorf("LastRequest not recorded: %+v", last)
	}

	mock.Reset()
	if len(mock.Calls()) != 0 || mock.LastRequest() != nil {
		t.Error("Expected no calls after reset")
	}
}

func TestMockWithError(t *testing.T) {
	ctx := context.Background()
	testErr := errors.New("test error")
	mock := WithError(testErr)

	if _, err := mock.Chat(ctx, &ChatRequest{}); !errors.Is(err, testErr) {
		t.Errorf("Expected test error, got: %v", err)
	}
	if err := mock.Health(ctx); !errors.Is(err, testErr) {
		t.Errorf("Expected test error, got: %v", err)
	}
}

func TestFunctionalOptions(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Apply(
		WithBaseURL("http://localhost:11434/v1"),
		WithAPIKey("test-key"),
		WithModel("llama3"),
		WithMaxTokens(512),
		WithTemperature(0.5),
	)

	if cfg.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("Expected Ollama URL, got %s", cfg.BaseURL)
	}
	if cfg.APIKey != "test-key" {
		t.Errorf("Expected test-key, got %s", cfg.APIKey)
	}
	if cfg.Model != "llama3" {
		t.Errorf("Expected llama3, got %s", cfg.Model)
	}
	if cfg.MaxTokens != 512 {
		t.Errorf("Expected 512, got %d", cfg.MaxTokens)
	}
	if cfg.Temperature != 0.5 {
		t.Errorf("Expected 0.5, got %f", cfg.Temperature)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != "gpt-3.5-turbo" {
		t.Errorf("Expected gpt-3.5-turbo, got %s", cfg.Model)
	}
	if cfg.MaxTokens != 500 {
		t.Errorf("Expected 500, got %d", cfg.MaxTokens)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("Expected 0.7, got %f", cfg.Temperature)
	}
	if !errors.Is(cfg.Validate(), ErrNoAPIKey) {
		t.Error("Default config without a key should fail validation")
	}
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 429, Message: "rate limited", Provider: "test"}
	if !err.IsRateLimited() {
		t.Error("Expected IsRateLimited() to be true")
	}

	err = &APIError{StatusCode: 429, Code: "insufficient_quota", Provider: "test"}
	if !err.IsQuotaExceeded() || err.IsRateLimited() {
		t.Error("Quota errors should not be reported as rate limits")
	}

	err = &APIError{StatusCode: 401, Message: "unauthorized", Provider: "test"}
	if !err.IsUnauthorized() {
		t.Error("Expected IsUnauthorized() to be true")
	}

	err = &APIError{StatusCode: 500, Message: "server error", Provider: "test"}
	if !err.IsServerError() {
		t.Error("Expected IsServerError() to be true")
	}

	err = &APIError{StatusCode: 400, Message: "bad request", Code: "invalid_api_key", Provider: "test"}
	if err.Error() == "" {
		t.Error("Expected non-empty error string")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"nil", nil, ReasonNone},
		{"missing key", ErrNoAPIKey, ReasonMissingCredentials},
		{"empty response", WrapError("openai", fmt.Errorf("%w: no choices", ErrEmptyResponse)), ReasonMalformed},
		{"rate limited", &APIError{StatusCode: 429}, ReasonRateLimited},
		{"quota", &APIError{StatusCode: 429, Code: "insufficient_quota"}, ReasonQuotaExceeded},
		{"unauthorized", &APIError{StatusCode: 401}, ReasonUnauthorized},
		{"server", &APIError{StatusCode: 503}, ReasonServer},
		{"bad request", &APIError{StatusCode: 400}, ReasonOther},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ReasonTimeout},
		{"net timeout", WrapError("openai", timeoutErr{}), ReasonTimeout},
		{"dial", WrapError("openai", &net.OpError{Op: "dial", Err: errors.New("connection refused")}), ReasonNetwork},
		{"other", errors.New("boom"), ReasonOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestMessageHelpers(t *testing.T) {
	sys := NewSystemMessage("You are helpful")
	if sys.Role != RoleSystem || sys.Content != "You are helpful" {
		t.Error("NewSystemMessage failed")
	}

	user := NewUserMessage("Hello")
	if user.Role != RoleUser || user.Content != "Hello" {
		t.Error("NewUserMessage failed")
	}

	asst := NewAssistantMessage("Hi there")
	if asst.Role != RoleAssistant || asst.Content != "Hi there" {
		t.Error("NewAssistantMessage failed")
	}
}
