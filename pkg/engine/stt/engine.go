// Package stt defines the Engine interface for speech recognition backends.
//
// An STT engine accepts one complete mono PCM segment and returns the
// recognised text together with the language the model detected. Segments
// arrive already assembled (the wire protocol and the voice bridge both
// deliver whole utterances), so the contract is batch, not streaming.
//
// Implementations must either be safe for concurrent use or serialize
// requests internally; the gateway calls a shared engine from many
// sessions without external locking.
package stt

import (
	"context"
	"errors"
)

// ErrUnavailable signals that no recognition backend is reachable at all,
// as opposed to a single request failing. The gateway maps it to a
// distinct wire error code.
var ErrUnavailable = errors.New("stt: engine unavailable")

// Transcription is the result of recognising one audio segment.
type Transcription struct {
	// Text is the recognised speech, trimmed. Empty means no speech was
	// detected; that is a valid result, not an error.
	Text string

	// Language is the code of the language the model detected (e.g. "en",
	// "de"). May be empty if the backend does not report it.
	Language string

	// Confidence is the overall confidence score in [0, 1]. Zero when the
	// backend does not report confidence.
	Confidence float64
}

// Engine is the abstraction over any speech recognition backend.
type Engine interface {
	// Transcribe recognises one mono PCM segment recorded at sampleRate Hz.
	// An empty or silent segment yields an empty Transcription and nil
	// error. Implementations must honour ctx cancellation.
	Transcribe(ctx context.Context, samples []int16, sampleRate int) (Transcription, error)

	// ModelID returns the identifier advertised to clients in the Ready
	// handshake (e.g. "whisper-large-v3").
	ModelID() string
}
