// Package tts defines the Engine interface for speech synthesis backends.
//
// Synthesis is always optional in the pipeline: a failure degrades the
// result to text-only instead of failing the request, so implementations
// should surface errors rather than block or retry at length.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Audio is one synthesized utterance as raw mono PCM.
type Audio struct {
	Samples    []int16
	SampleRate int
}

// Engine is the abstraction over any speech synthesis backend.
type Engine interface {
	// Synthesize renders text as speech in the given language. Returns the
	// PCM audio at the backend's native sample rate; the caller handles
	// container packaging and rate bookkeeping.
	Synthesize(ctx context.Context, text, language string) (Audio, error)

	// ModelID returns the identifier advertised to clients in the Ready
	// handshake (e.g. "coqui-xtts-v2").
	ModelID() string
}
