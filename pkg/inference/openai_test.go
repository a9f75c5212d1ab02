package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const completionBody = `{
  "id": "chatcmpl-test",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-3.5-turbo",
  "choices": [{
    "index": 0,
    "message": {"role": "assistant", "content": "Rest and drink water."},
    "finish_reason": "stop"
  }],
  "usage": {"prompt_tokens": 42, "completion_tokens": 6, "total_tokens": 48}
}`

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewOpenAI(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL+"/"),
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	return p
}

func TestOpenAIChat(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Expected Bearer test-key, got %s", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody))
	})

	resp, err := p.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			NewSystemMessage("be brief"),
			NewUserMessage("I have a fever"),
			NewAssistantMessage("How high?"),
			NewUserMessage("39C"),
		},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.Message.Content != "Rest and drink water." {
		t.Errorf("Unexpected content: %s", resp.Message.Content)
	}
	if resp.Usage.TotalTokens != 48 {
		t.Errorf("Expected 48 total tokens, got %d", resp.Usage.TotalTokens)
	}

	if got.Model != "gpt-3.5-turbo" || got.MaxTokens != 500 || got.Temperature != 0.7 {
		t.Errorf("Unexpected request parameters: model=%s max_tokens=%d temperature=%f",
			got.Model, got.MaxTokens, got.Temperature)
	}
	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(got.Messages) != len(wantRoles) {
		t.Fatalf("Expected %d messages, got %d", len(wantRoles), len(got.Messages))
	}
	for i, role := range wantRoles {
		if got.Messages[i].Role != role {
			t.Errorf("messages[%d].role = %s, want %s", i, got.Messages[i].Role, role)
		}
	}
}

func TestOpenAIChatTemperature(t *testing.T) {
	tests := []struct {
		name        string
		temperature *float64
		want        float64
	}{
		{"unset uses config default", nil, DefaultTemperature},
		{"explicit zero", Float(0), 0},
		{"explicit value", Float(1.2), 1.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				Temperature *float64 `json:"temperature"`
			}
			p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					t.Errorf("decode request: %v", err)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(completionBody))
			})

			_, err := p.Chat(context.Background(), &ChatRequest{
				Messages:    []Message{NewUserMessage("hi")},
				Temperature: tt.temperature,
			})
			if err != nil {
				t.Fatalf("Chat failed: %v", err)
			}
			if got.Temperature == nil {
				t.Fatal("temperature missing from request")
			}
			if *got.Temperature != tt.want {
				t.Errorf("temperature = %v, want %v", *got.Temperature, tt.want)
			}
		})
	}
}

func TestOpenAIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Reason
	}{
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`,
			want:   ReasonRateLimited,
		},
		{
			name:   "quota",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`,
			want:   ReasonQuotaExceeded,
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`,
			want:   ReasonUnauthorized,
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   `{"id":"x","object":"chat.completion","created":1,"model":"gpt-3.5-turbo","choices":[]}`,
			want:   ReasonMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := p.Chat(context.Background(), &ChatRequest{
				Messages: []Message{NewUserMessage("hi")},
			})
			if err == nil {
				t.Fatal("Expected error")
			}
			if got := Classify(err); got != tt.want {
				t.Errorf("Classify = %s, want %s (err: %v)", got, tt.want, err)
			}
			if n := calls.Load(); n != 1 {
				t.Errorf("Expected exactly one request, got %d", n)
			}
		})
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI()
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}
