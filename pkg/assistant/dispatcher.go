package assistant

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/teslashibe/medi-voice/pkg/conversation"
	"github.com/teslashibe/medi-voice/pkg/voice"
)

// Dispatcher runs exchanges for one session.
type Dispatcher struct {
	store    conversation.Store
	resolver *Resolver
	speaker  voice.Speaker
	config   *Config
	logger   *slog.Logger

	// mu guards the processing counter and observers. Observers are called
	// with mu held and must not call back into the Dispatcher.
	mu           sync.Mutex
	inflight     int
	onProcessing []func(bool)
	onMessage    []func(conversation.Message)

	// Serial policy tickets.
	qmu     sync.Mutex
	qcond   *sync.Cond
	next    uint64
	serving uint64
}

// NewDispatcher creates a dispatcher over store. A nil speaker discards
// playback requests.
func NewDispatcher(store conversation.Store, resolver *Resolver, speaker voice.Speaker, opts ...Option) *Dispatcher {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if speaker == nil {
		speaker = voice.NopSpeaker{}
	}
	d := &Dispatcher{
		store:    store,
		resolver: resolver,
		speaker:  speaker,
		config:   cfg,
		logger:   cfg.Logger.With("component", "assistant.dispatcher"),
	}
	d.qcond = sync.NewCond(&d.qmu)
	return d
}

// Store returns the session's conversation store.
func (d *Dispatcher) Store() conversation.Store {
	return d.store
}

// Policy returns the overlapping-utterance policy.
func (d *Dispatcher) Policy() Policy {
	return d.config.Policy
}

// OnProcessing registers fn to be called when the processing flag changes.
func (d *Dispatcher) OnProcessing(fn func(bool)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onProcessing = append(d.onProcessing, fn)
}

// OnMessage registers fn to be called after each message is appended.
func (d *Dispatcher) OnMessage(fn func(conversation.Message)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onMessage = append(d.onMessage, fn)
}

// Processing reports whether any exchange is in flight.
func (d *Dispatcher) Processing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inflight > 0
}

// HandleUtterance runs one exchange for a finalized transcript. It returns
// false, appending nothing, when the transcript is empty or whitespace.
// Otherwise the log gains either nothing or exactly one user message followed
// by one assistant message, a reply is always handed to the speaker, and the
// processing flag is cleared on return, whatever happens in between.
func (d *Dispatcher) HandleUtterance(ctx context.Context, transcript string) (res Result, ok bool) {
	text := strings.TrimSpace(transcript)
	if text == "" {
		return Result{}, false
	}

	ticket := d.takeTicket()
	d.begin()
	defer d.end()
	d.waitTurn(ticket)
	defer d.release()

	userAppended, answered := false, false
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("exchange panicked", "panic", p)
			ok = true
			if answered {
				return
			}
			res = TechnicalDifficulty()
			// A lone assistant entry would break the user/assistant pairing.
			if userAppended {
				d.appendQuiet(ctx, conversation.RoleAssistant, res)
			}
			d.speaker.Speak(voice.NewUtterance(res.Response))
		}
	}()

	prior, err := d.store.Recent(ctx, d.config.ContextWindow)
	if err != nil {
		d.logger.Warn("read history failed, resolving without context", "error", err)
		prior = nil
	}

	userMsg, err := conversation.NewMessage(conversation.RoleUser, text)
	if err != nil {
		d.logger.Error("build user message failed", "error", err)
		return d.unanswered(), true
	}
	if err := d.store.Append(ctx, userMsg); err != nil {
		d.logger.Error("append user message failed", "error", err)
		return d.unanswered(), true
	}
	userAppended = true
	d.notifyMessage(userMsg)

	res = d.resolver.Resolve(ctx, prior, text)

	reply, err := conversation.NewMessageAt(conversation.RoleAssistant, res.Response, res.Timestamp)
	if err != nil {
		d.logger.Error("build reply failed", "error", err)
		res = TechnicalDifficulty()
		reply, _ = conversation.NewMessageAt(conversation.RoleAssistant, res.Response, res.Timestamp)
	}
	if err := d.store.Append(ctx, reply); err != nil {
		d.logger.Error("append reply failed, exchange left without reply", "error", err)
		answered = true
		d.speaker.Speak(voice.NewUtterance(res.Response))
		return res, true
	}
	answered = true
	d.notifyMessage(reply)

	d.speaker.Speak(voice.NewUtterance(res.Response))

	d.logger.Info("exchange complete",
		"fallback", res.Fallback,
		"reason", res.Reason,
	)
	return res, true
}

// unanswered speaks the catch-all reply for an exchange that could not be
// recorded at all. Nothing is appended.
func (d *Dispatcher) unanswered() Result {
	res := TechnicalDifficulty()
	d.speaker.Speak(voice.NewUtterance(res.Response))
	return res
}

func (d *Dispatcher) appendQuiet(ctx context.Context, role conversation.Role, res Result) {
	m, err := conversation.NewMessageAt(role, res.Response, res.Timestamp)
	if err != nil {
		return
	}
	if err := d.store.Append(ctx, m); err != nil {
		d.logger.Error("append after failure", "error", err)
		return
	}
	d.notifyMessage(m)
}

func (d *Dispatcher) begin() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inflight++
	if d.inflight == 1 {
		for _, fn := range d.onProcessing {
			fn(true)
		}
	}
}

func (d *Dispatcher) end() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inflight--
	if d.inflight == 0 {
		for _, fn := range d.onProcessing {
			fn(false)
		}
	}
}

func (d *Dispatcher) notifyMessage(m conversation.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, fn := range d.onMessage {
		fn(m)
	}
}

func (d *Dispatcher) takeTicket() uint64 {
	if d.config.Policy != PolicySerial {
		return 0
	}
	d.qmu.Lock()
	defer d.qmu.Unlock()
	t := d.next
	d.next++
	return t
}

func (d *Dispatcher) waitTurn(ticket uint64) {
	if d.config.Policy != PolicySerial {
		return
	}
	d.qmu.Lock()
	for d.serving != ticket {
		d.qcond.Wait()
	}
	d.qmu.Unlock()
}

func (d *Dispatcher) release() {
	if d.config.Policy != PolicySerial {
		return
	}
	d.qmu.Lock()
	d.serving++
	d.qcond.Broadcast()
	d.qmu.Unlock()
}
