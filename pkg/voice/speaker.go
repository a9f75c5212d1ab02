package voice

// Playback defaults.
const (
	DefaultRate  = 0.9
	DefaultPitch = 1.0
	DefaultLang  = "en-US"
)

// Greeting is spoken by the test-voice action.
const Greeting = "Hello, I am your medical AI assistant. How can I help you today?"

// Utterance is a request to speak text aloud.
type Utterance struct {
	Text  string  `json:"text"`
	Rate  float64 `json:"rate"`
	Pitch float64 `json:"pitch"`
	Lang  string  `json:"lang"`
}

// NewUtterance creates an utterance with the default voice settings.
func NewUtterance(text string) Utterance {
	return Utterance{
		Text:  text,
		Rate:  DefaultRate,
		Pitch: DefaultPitch,
		Lang:  DefaultLang,
	}
}

// Speaker hands utterances to the platform for playback.
// Speak must not block on playback; overlapping requests are queued by the
// platform.
type Speaker interface {
	Speak(u Utterance)
}

// SpeakerFunc adapts a function to the Speaker interface.
type SpeakerFunc func(u Utterance)

// Speak calls f(u).
func (f SpeakerFunc) Speak(u Utterance) { f(u) }

// NopSpeaker discards utterances.
type NopSpeaker struct{}

// Speak does nothing.
func (NopSpeaker) Speak(Utterance) {}
