package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/medi-voice/pkg/assistant"
	"github.com/teslashibe/medi-voice/pkg/conversation"
	"github.com/teslashibe/medi-voice/pkg/hub"
	"github.com/teslashibe/medi-voice/pkg/protocol"
	"github.com/teslashibe/medi-voice/pkg/tts"
	"github.com/teslashibe/medi-voice/pkg/voice"
)

// Errors returned by sessions and the Manager.
var (
	ErrNotFound       = errors.New("session: not found")
	ErrClosed         = errors.New("session: closed")
	ErrAttached       = errors.New("session: already attached")
	ErrUnknownMessage = errors.New("session: unknown message type")
)

// Session is one browser conversation: its store, dispatcher, recognizer
// and the queue of events going back to the browser.
type Session struct {
	id      string
	created time.Time

	store      conversation.Store
	dispatcher *assistant.Dispatcher
	recognizer *voice.Recognizer

	tts              tts.Provider
	synthesisTimeout time.Duration
	hub              *hub.Hub
	logger           *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards closed and sends on out.
	mu     sync.Mutex
	closed bool
	out    chan *protocol.Message
	work   sync.WaitGroup

	attached   atomic.Bool
	lastActive atomic.Int64
}

func newSession(id string, store conversation.Store, resolver *assistant.Resolver, cfg *Config) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	base := cfg.Logger.With("session_id", id)
	s := &Session{
		id:               id,
		created:          time.Now(),
		store:            store,
		tts:              cfg.TTS,
		synthesisTimeout: cfg.SynthesisTimeout,
		hub:              cfg.Hub,
		logger:           base.With("component", "session"),
		ctx:              ctx,
		cancel:           cancel,
		out:              make(chan *protocol.Message, cfg.OutboundBuffer),
	}
	s.touch()

	opts := append([]assistant.Option{assistant.WithLogger(base)}, cfg.DispatchOptions...)
	s.dispatcher = assistant.NewDispatcher(store, resolver, voice.SpeakerFunc(s.speak), opts...)
	s.dispatcher.OnProcessing(s.onProcessing)
	s.dispatcher.OnMessage(s.onMessage)

	s.recognizer = voice.NewRecognizer(
		voice.WithEventSink(s.onRecognizerEvent),
		voice.WithTranscriptHandler(s.onTranscript),
		voice.WithRecognizerLogger(base),
	)
	return s
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Created returns when the session was opened.
func (s *Session) Created() time.Time { return s.created }

// Dispatcher returns the session's query dispatcher.
func (s *Session) Dispatcher() *assistant.Dispatcher { return s.dispatcher }

// Recognizer returns the session's recognizer state machine.
func (s *Session) Recognizer() *voice.Recognizer { return s.recognizer }

// Events returns the queue of events for the browser. It is closed when
// the session closes.
func (s *Session) Events() <-chan *protocol.Message { return s.out }

// Attach claims the event queue for one connection.
func (s *Session) Attach() error {
	if s.isClosed() {
		return ErrClosed
	}
	if !s.attached.CompareAndSwap(false, true) {
		return ErrAttached
	}
	s.touch()
	return nil
}

// Detach releases the event queue.
func (s *Session) Detach() {
	s.attached.Store(false)
	s.touch()
}

// History returns the full conversation in append order.
func (s *Session) History(ctx context.Context) ([]conversation.Message, error) {
	return s.store.History(ctx)
}

// Ask runs one exchange for typed text and waits for the reply.
func (s *Session) Ask(ctx context.Context, text string) (assistant.Result, bool, error) {
	if s.isClosed() {
		return assistant.Result{}, false, ErrClosed
	}
	s.touch()
	res, ok := s.dispatcher.HandleUtterance(ctx, text)
	return res, ok, nil
}

// Handle applies one message from the browser.
func (s *Session) Handle(msg *protocol.Message) error {
	if s.isClosed() {
		return ErrClosed
	}
	s.touch()

	switch msg.Type {
	case protocol.TypeStart:
		if err := s.recognizer.Start(); errors.Is(err, voice.ErrUnsupported) {
			s.notice(voice.LevelInfo, voice.UnsupportedNotice)
		}
	case protocol.TypeStop:
		s.recognizer.Stop()
	case protocol.TypeResult:
		data, err := msg.GetResultData()
		if err != nil {
			return fmt.Errorf("result payload: %w", err)
		}
		s.recognizer.Result(data.Text, data.Final)
	case protocol.TypeError:
		data, err := msg.GetErrorData()
		if err != nil {
			return fmt.Errorf("error payload: %w", err)
		}
		s.recognizer.Fail(data.Reason)
	case protocol.TypeEnd:
		s.recognizer.End()
	case protocol.TypeUnsupported:
		s.recognizer.SetSupported(false)
	case protocol.TypeSpeakTest:
		s.speak(voice.NewUtterance(voice.Greeting))
	case protocol.TypePing:
		data, err := msg.GetPingData()
		if err != nil {
			return fmt.Errorf("ping payload: %w", err)
		}
		pong, err := protocol.NewPongMessage(data.ID, data.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		s.send(pong)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	return nil
}

// Idle reports whether the session has had no activity for ttl and has no
// exchange or connection in flight.
func (s *Session) Idle(ttl time.Duration) bool {
	if s.attached.Load() || s.dispatcher.Processing() {
		return false
	}
	last := time.Unix(0, s.lastActive.Load())
	return time.Since(last) > ttl
}

// close cancels outstanding work, waits for it and releases the store.
// The conversation does not outlive the session.
func (s *Session) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.work.Wait()

	s.mu.Lock()
	close(s.out)
	s.mu.Unlock()

	return s.store.Close()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// goWork runs fn in a goroutine tracked by close. It returns false once
// the session is closed.
func (s *Session) goWork(fn func()) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.work.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.work.Done()
		fn()
	}()
	return true
}

// onTranscript hands a final transcript to the dispatcher without holding
// up the recognizer.
func (s *Session) onTranscript(text string) {
	s.goWork(func() {
		s.dispatcher.HandleUtterance(s.ctx, text)
	})
}

func (s *Session) onRecognizerEvent(ev voice.Event) {
	var (
		msg *protocol.Message
		err error
	)
	switch ev.Kind {
	case voice.EventInterim:
		msg, err = protocol.NewInterimMessage(ev.Text)
	case voice.EventFinal:
		// the final transcript shows up as a user message; clear the interim line
		msg, err = protocol.NewInterimMessage("")
	case voice.EventState:
		msg, err = protocol.NewStateMessage(ev.State)
	case voice.EventNotice:
		msg, err = protocol.NewNoticeMessage(ev.Level, ev.Text)
	default:
		return
	}
	if err != nil {
		s.logger.Error("encode recognizer event", "kind", ev.Kind, "error", err)
		return
	}
	s.send(msg)
}

func (s *Session) onProcessing(processing bool) {
	msg, err := protocol.NewProcessingMessage("", processing)
	if err != nil {
		s.logger.Error("encode processing", "error", err)
		return
	}
	s.send(msg)
	s.publish(protocol.NewProcessingMessage(s.id, processing))
}

func (s *Session) onMessage(m conversation.Message) {
	msg, err := protocol.NewChatMessage("", m)
	if err != nil {
		s.logger.Error("encode message", "error", err)
		return
	}
	s.send(msg)
	s.publish(protocol.NewChatMessage(s.id, m))
}

// speak implements voice.Speaker. Without a synthesis provider the browser
// speaks the text itself; otherwise audio is synthesized in the background
// and attached when ready.
func (s *Session) speak(u voice.Utterance) {
	if s.tts == nil {
		s.sendSpeak(u, nil, "")
		return
	}
	s.goWork(func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.synthesisTimeout)
		defer cancel()

		res, err := s.tts.Synthesize(ctx, u.Text)
		if err != nil {
			s.logger.Warn("synthesis failed, using client speech", "error", err)
			s.sendSpeak(u, nil, "")
			return
		}
		s.sendSpeak(u, res.Audio, res.Format.Encoding.MIMEType())
	})
}

func (s *Session) sendSpeak(u voice.Utterance, audio []byte, mime string) {
	msg, err := protocol.NewSpeakMessage(u, audio, mime)
	if err != nil {
		s.logger.Error("encode speak", "error", err)
		return
	}
	s.send(msg)
}

func (s *Session) notice(level, text string) {
	msg, err := protocol.NewNoticeMessage(level, text)
	if err != nil {
		return
	}
	s.send(msg)
}

// send queues msg for the browser without blocking.
func (s *Session) send(msg *protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- msg:
	default:
		s.logger.Warn("outbound queue full, dropping event", "type", msg.Type)
	}
}

func (s *Session) publish(msg *protocol.Message, err error) {
	if s.hub == nil || err != nil {
		return
	}
	if err := s.hub.Publish(msg); err != nil {
		s.logger.Debug("publish failed", "error", err)
	}
}
