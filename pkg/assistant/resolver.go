// Package assistant turns user utterances into assistant replies.
//
// A Resolver makes one remote text-generation attempt and substitutes the
// fallback responder's canned answer on any failure, so a reply is always
// produced. A Dispatcher runs the full exchange for a session: it appends the
// user turn, resolves a reply, appends it, hands it to playback, and keeps an
// observable processing flag.
package assistant

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/medi-voice/pkg/conversation"
	"github.com/teslashibe/medi-voice/pkg/fallback"
	"github.com/teslashibe/medi-voice/pkg/inference"
)

// Result is the outcome of one exchange.
type Result struct {
	Response  string           `json:"response"`
	Timestamp time.Time        `json:"timestamp"`
	Fallback  bool             `json:"fallback,omitempty"`
	Reason    inference.Reason `json:"-"`
}

// TechnicalDifficulty returns the catch-all result used when an exchange
// fails unexpectedly.
func TechnicalDifficulty() Result {
	return Result{
		Response:  fallback.TechnicalDifficulty,
		Timestamp: time.Now(),
	}
}

// Resolver produces a reply for one user turn.
type Resolver struct {
	provider  inference.Provider
	responder *fallback.Responder
	config    *Config
	logger    *slog.Logger
}

// NewResolver creates a resolver. A nil provider means no credentials are
// configured; every turn is then answered by the responder.
func NewResolver(provider inference.Provider, responder *fallback.Responder, opts ...Option) *Resolver {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if responder == nil {
		responder = fallback.MustNew()
	}
	return &Resolver{
		provider:  provider,
		responder: responder,
		config:    cfg,
		logger:    cfg.Logger.With("component", "assistant.resolver"),
	}
}

// Responder returns the fallback responder.
func (r *Resolver) Responder() *fallback.Responder {
	return r.responder
}

// BuildContext assembles the remote-call context: system instructions, the
// last ContextWindow messages of history in order, and the new user turn.
func (r *Resolver) BuildContext(history []conversation.Message, text string) []inference.Message {
	prior := conversation.Tail(history, r.config.ContextWindow)
	msgs := make([]inference.Message, 0, len(prior)+2)
	msgs = append(msgs, inference.NewSystemMessage(r.config.SystemPrompt))
	for _, m := range prior {
		msgs = append(msgs, inference.Message{
			Role:    inference.Role(m.Role),
			Content: m.Content,
		})
	}
	msgs = append(msgs, inference.NewUserMessage(text))
	return msgs
}

// Resolve makes a single remote attempt and falls back on any failure.
// history holds the messages before the new turn.
func (r *Resolver) Resolve(ctx context.Context, history []conversation.Message, text string) Result {
	if r.provider == nil {
		return r.fallback(text, inference.ReasonMissingCredentials)
	}

	resp, err := r.provider.Chat(ctx, &inference.ChatRequest{
		Messages:    r.BuildContext(history, text),
		Model:       r.config.Model,
		MaxTokens:   r.config.MaxTokens,
		Temperature: inference.Float(r.config.Temperature),
	})
	if err != nil {
		reason := inference.Classify(err)
		r.logger.Warn("remote call failed, using fallback",
			"reason", reason,
			"error", err,
		)
		return r.fallback(text, reason)
	}

	if strings.TrimSpace(resp.Message.Content) == "" {
		r.logger.Warn("remote reply empty, using fallback")
		return r.fallback(text, inference.ReasonMalformed)
	}

	r.logger.Debug("remote reply",
		"latency_ms", resp.LatencyMs,
		"tokens", resp.Usage.TotalTokens,
	)
	return Result{
		Response:  resp.Message.Content,
		Timestamp: time.Now(),
	}
}

// Respond serves a stateless request whose history comes from the caller.
// Invalid history entries are dropped. It never panics.
func (r *Resolver) Respond(ctx context.Context, message string, history []conversation.Message) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("respond panicked", "panic", p)
			res = TechnicalDifficulty()
		}
	}()
	return r.Resolve(ctx, conversation.Sanitize(history), message)
}

func (r *Resolver) fallback(text string, reason inference.Reason) Result {
	return Result{
		Response:  r.responder.Respond(text),
		Timestamp: time.Now(),
		Fallback:  true,
		Reason:    reason,
	}
}
