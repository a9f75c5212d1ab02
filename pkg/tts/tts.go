// Package tts synthesizes spoken audio for assistant replies on the server.
//
// Playback normally happens in the browser's own speech engine. When a TTS
// provider is configured, replies also carry synthesized audio so every
// client hears the same voice. Synthesis failures are never fatal: the
// client falls back to local speech.
//
// Example usage:
//
//	provider, _ := tts.NewOpenAI(
//	    tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    tts.WithVoice(tts.VoiceShimmer),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Stay hydrated and rest.")
//	// result.Audio contains MP3 bytes
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the encoded audio data.
	Audio []byte

	// Format describes the audio encoding.
	Format AudioFormat

	// Duration is the estimated playback duration, when known.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request time in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

// Encoding is an audio container/codec understood by browsers.
type Encoding string

const (
	EncodingMP3  Encoding = "mp3"
	EncodingOpus Encoding = "opus"
	EncodingAAC  Encoding = "aac"
	EncodingWAV  Encoding = "wav"
)

// MIMEType returns the media type used in data URLs for the encoding.
func (e Encoding) MIMEType() string {
	switch e {
	case EncodingOpus:
		return "audio/ogg"
	case EncodingAAC:
		return "audio/aac"
	case EncodingWAV:
		return "audio/wav"
	default:
		return "audio/mpeg"
	}
}
