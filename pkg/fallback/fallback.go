// Package fallback provides the canned medical-information responder used when
// the text-generation service is unavailable.
//
// Matching is an ordered, case-insensitive substring test over a table of
// topics. The first topic with any keyword contained in the input wins; when
// nothing matches the default block is returned. There is no scoring.
//
//	r := fallback.MustNew()
//	text := r.Respond("I have a headache")
package fallback

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for table validation.
var (
	// ErrNoKeywords is returned when a topic has no usable keywords.
	ErrNoKeywords = errors.New("fallback: topic has no keywords")

	// ErrMissingDisclaimer is returned when a block lacks the disclaimer.
	ErrMissingDisclaimer = errors.New("fallback: response is missing the disclaimer")
)

// Topic maps a keyword set to a fixed response block.
type Topic struct {
	// Name identifies the topic (e.g. "headache").
	Name string

	// Keywords are matched as lowercase substrings of the input.
	Keywords []string

	// Response is the informational block returned on match.
	Response string
}

// Matches reports whether lowered input contains any of the topic keywords.
func (t Topic) Matches(lowered string) bool {
	for _, kw := range t.Keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Responder is a pure function of its input text. It is safe for concurrent use.
type Responder struct {
	topics   []Topic
	fallback string
}

// Option configures a Responder.
type Option func(*Responder)

// WithTopics replaces the topic table. Order is priority order.
func WithTopics(topics ...Topic) Option {
	return func(r *Responder) {
		r.topics = append([]Topic(nil), topics...)
	}
}

// WithDefault replaces the block returned when nothing matches.
func WithDefault(text string) Option {
	return func(r *Responder) { r.fallback = text }
}

// New creates a Responder with the built-in table unless overridden.
func New(opts ...Option) (*Responder, error) {
	r := &Responder{
		topics:   DefaultTopics(),
		fallback: DefaultResponse,
	}
	for _, opt := range opts {
		opt(r)
	}

	for i := range r.topics {
		t := &r.topics[i]
		kws := make([]string, 0, len(t.Keywords))
		for _, kw := range t.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoKeywords, t.Name)
		}
		t.Keywords = kws
		if !strings.Contains(t.Response, Disclaimer) {
			return nil, fmt.Errorf("%w: %q", ErrMissingDisclaimer, t.Name)
		}
	}
	if !strings.Contains(r.fallback, Disclaimer) {
		return nil, fmt.Errorf("%w: default", ErrMissingDisclaimer)
	}

	return r, nil
}

// MustNew is like New but panics on an invalid table.
func MustNew(opts ...Option) *Responder {
	r, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Match returns the first topic whose keywords appear in text.
func (r *Responder) Match(text string) (Topic, bool) {
	lowered := strings.ToLower(text)
	for _, t := range r.topics {
		if t.Matches(lowered) {
			return t, true
		}
	}
	return Topic{}, false
}

// Respond returns the block for the first matching topic, or the default block.
func (r *Responder) Respond(text string) string {
	if t, ok := r.Match(text); ok {
		return t.Response
	}
	return r.fallback
}

// Default returns the block used when nothing matches.
func (r *Responder) Default() string {
	return r.fallback
}

// Topics returns a copy of the table in priority order.
func (r *Responder) Topics() []Topic {
	out := make([]Topic, len(r.topics))
	copy(out, r.topics)
	return out
}

// TopicNames returns topic names in priority order.
func (r *Responder) TopicNames() []string {
	names := make([]string, len(r.topics))
	for i, t := range r.topics {
		names[i] = t.Name
	}
	return names
}
