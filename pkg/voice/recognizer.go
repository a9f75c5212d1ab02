package voice

import (
	"errors"
	"log/slog"
	"sync"
)

// Errors returned by the Recognizer.
var (
	ErrUnsupported = errors.New("voice: speech recognition not supported")
)

// RecognitionFailedNotice is shown when the platform reports a recognition error.
const RecognitionFailedNotice = "Speech recognition failed. Please try again."

// UnsupportedNotice is shown when the platform has no speech recognition.
const UnsupportedNotice = "Speech recognition is not supported in this browser. You can still type your question."

// State is the recognizer's lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateError     State = "error"
)

// EventKind identifies what an Event carries.
type EventKind string

const (
	// EventInterim is a non-final transcript. It replaces the previous one.
	EventInterim EventKind = "interim"

	// EventFinal is a finalized transcript.
	EventFinal EventKind = "final"

	// EventState reports a state transition.
	EventState EventKind = "state"

	// EventNotice is a transient user-facing notification.
	EventNotice EventKind = "notice"
)

// Notice levels.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Event is emitted by the Recognizer for display.
type Event struct {
	Kind  EventKind
	Text  string
	State State
	Level string
}

// RecognizerOption configures a Recognizer.
type RecognizerOption func(*Recognizer)

// WithSupported marks whether the platform has speech recognition.
func WithSupported(ok bool) RecognizerOption {
	return func(r *Recognizer) { r.supported = ok }
}

// WithEventSink sets the function receiving display events.
func WithEventSink(fn func(Event)) RecognizerOption {
	return func(r *Recognizer) { r.sink = fn }
}

// WithTranscriptHandler sets the function receiving finalized transcripts.
// It is called synchronously; long work belongs in a goroutine.
func WithTranscriptHandler(fn func(text string)) RecognizerOption {
	return func(r *Recognizer) { r.handler = fn }
}

// WithRecognizerLogger sets the structured logger.
func WithRecognizerLogger(l *slog.Logger) RecognizerOption {
	return func(r *Recognizer) { r.logger = l }
}

// Recognizer is the recognition state machine for one session.
//
// Only one recognition session is active at a time: Start while listening is
// a no-op. A session produces any number of interim results and at most one
// final result, or fails with an error. Results arriving outside a listening
// session are dropped.
type Recognizer struct {
	mu        sync.Mutex
	state     State
	interim   string
	finalSeen bool
	supported bool

	sink    func(Event)
	handler func(string)
	logger  *slog.Logger
}

// NewRecognizer creates an idle recognizer. Recognition is assumed supported
// unless WithSupported(false) is given.
func NewRecognizer(opts ...RecognizerOption) *Recognizer {
	r := &Recognizer{
		state:     StateIdle,
		supported: true,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "voice.recognizer")
	return r
}

// Supported reports whether the platform can recognize speech.
func (r *Recognizer) Supported() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.supported
}

// SetSupported records the platform capability, for platforms that report
// it after the session was created.
func (r *Recognizer) SetSupported(ok bool) {
	r.mu.Lock()
	r.supported = ok
	stopped := !ok && r.state == StateListening
	if stopped {
		r.reset(StateIdle)
	}
	r.mu.Unlock()

	if !ok {
		if stopped {
			r.emit(Event{Kind: EventState, State: StateIdle})
		}
		r.emit(Event{Kind: EventNotice, Level: LevelInfo, Text: UnsupportedNotice})
	}
}

// State returns the current state.
func (r *Recognizer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Interim returns the transcript currently shown as in-progress.
func (r *Recognizer) Interim() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interim
}

// Start begins a recognition session.
func (r *Recognizer) Start() error {
	r.mu.Lock()
	if !r.supported {
		r.mu.Unlock()
		return ErrUnsupported
	}
	if r.state == StateListening {
		r.mu.Unlock()
		return nil
	}
	r.reset(StateListening)
	r.mu.Unlock()

	r.logger.Debug("listening")
	r.emit(Event{Kind: EventState, State: StateListening})
	return nil
}

// Stop ends the active session at the user's request.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	if r.state != StateListening {
		r.mu.Unlock()
		return
	}
	r.reset(StateIdle)
	r.mu.Unlock()

	r.emit(Event{Kind: EventState, State: StateIdle})
}

// Result delivers one recognition result. Interim results replace the
// previous interim text. The first final result of a session clears the
// interim text and is passed to the transcript handler.
func (r *Recognizer) Result(text string, final bool) {
	r.mu.Lock()
	if r.state != StateListening {
		r.mu.Unlock()
		r.logger.Debug("result outside listening session dropped", "final", final)
		return
	}
	if !final {
		if r.finalSeen {
			r.mu.Unlock()
			return
		}
		r.interim = text
		r.mu.Unlock()
		r.emit(Event{Kind: EventInterim, Text: text})
		return
	}
	if r.finalSeen {
		r.mu.Unlock()
		r.logger.Debug("extra final result dropped")
		return
	}
	r.finalSeen = true
	r.interim = ""
	handler := r.handler
	r.mu.Unlock()

	r.emit(Event{Kind: EventFinal, Text: text})
	if handler != nil {
		handler(text)
	}
}

// Fail terminates the active session with a platform error. The session
// stays in the error state until End or Start.
func (r *Recognizer) Fail(reason string) {
	r.mu.Lock()
	if r.state != StateListening {
		r.mu.Unlock()
		return
	}
	r.reset(StateError)
	r.mu.Unlock()

	r.logger.Warn("recognition failed", "reason", reason)
	r.emit(Event{Kind: EventState, State: StateError})
	r.emit(Event{Kind: EventNotice, Level: LevelError, Text: RecognitionFailedNotice})
}

// End reports that the platform ended the session. The recognizer returns
// to idle from any state.
func (r *Recognizer) End() {
	r.mu.Lock()
	if r.state == StateIdle {
		r.mu.Unlock()
		return
	}
	r.reset(StateIdle)
	r.mu.Unlock()

	r.emit(Event{Kind: EventState, State: StateIdle})
}

// reset must be called with mu held.
func (r *Recognizer) reset(s State) {
	r.state = s
	r.interim = ""
	r.finalSeen = false
}

func (r *Recognizer) emit(ev Event) {
	if r.sink != nil {
		r.sink(ev)
	}
}
