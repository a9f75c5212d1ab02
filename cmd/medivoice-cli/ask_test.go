package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAsk(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  string
		wantOut  string
		fallback bool
	}{
		{
			name:    "remote answer",
			status:  200,
			body:    `{"response":"Drink water.","timestamp":"2024-01-01T00:00:00Z"}`,
			wantOut: "Drink water.\n",
		},
		{
			name:     "fallback answer",
			status:   200,
			body:     `{"response":"General info.","timestamp":"2024-01-01T00:00:00Z","fallback":true}`,
			wantOut:  "General info.\n",
			fallback: true,
		},
		{
			name:    "bad request",
			status:  400,
			body:    `{"error":"Message is required"}`,
			wantErr: "Message is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got askRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/medical-ai" || r.Method != http.MethodPost {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				json.NewDecoder(r.Body).Decode(&got)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var out bytes.Buffer
			err := ask(&out, srv.URL, 5*time.Second, "my head hurts")

			if got.Message != "my head hurts" {
				t.Errorf("sent message = %q", got.Message)
			}
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ask() error = %v", err)
			}
			if !strings.HasPrefix(out.String(), tt.wantOut) {
				t.Errorf("output = %q, want prefix %q", out.String(), tt.wantOut)
			}
			if strings.Contains(out.String(), "built-in reference") != tt.fallback {
				t.Errorf("fallback note mismatch: %q", out.String())
			}
		})
	}
}
