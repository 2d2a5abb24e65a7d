// Package mock provides a test double for the tts package.
package mock

import (
	"context"
	"sync"

	"github.com/linguabridge/linguabridge/pkg/engine/tts"
)

// SynthesizeCall records a single invocation of Engine.Synthesize.
type SynthesizeCall struct {
	Text     string
	Language string
}

// Engine is a mock implementation of tts.Engine.
type Engine struct {
	mu sync.Mutex

	// Result is returned from Synthesize when Err is nil. When zero, a
	// short non-empty 24 kHz segment is returned.
	Result tts.Audio

	// Err, if non-nil, is returned as the error from Synthesize.
	Err error

	// Model is returned from ModelID. Defaults to "mock-tts".
	Model string

	// Calls records every invocation of Synthesize.
	Calls []SynthesizeCall
}

var _ tts.Engine = (*Engine)(nil)

// Synthesize records the call and returns Result, Err.
func (e *Engine) Synthesize(ctx context.Context, text, language string) (tts.Audio, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls = append(e.Calls, SynthesizeCall{Text: text, Language: language})
	if e.Err != nil {
		return tts.Audio{}, e.Err
	}
	if len(e.Result.Samples) == 0 && e.Result.SampleRate == 0 {
		return tts.Audio{Samples: []int16{0, 100, -100, 0}, SampleRate: 24000}, nil
	}
	return e.Result, nil
}

// ModelID returns Model, or "mock-tts" when unset.
func (e *Engine) ModelID() string {
	if e.Model == "" {
		return "mock-tts"
	}
	return e.Model
}

// CallCount returns the number of recorded Synthesize calls. Thread-safe.
func (e *Engine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Calls)
}
