// Package mock provides a test double for the stt package.
//
// Configure the returned Transcription and error up front, then inspect
// Calls to verify what the caller sent.
package mock

import (
	"context"
	"sync"

	"github.com/linguabridge/linguabridge/pkg/engine/stt"
)

// TranscribeCall records a single invocation of Engine.Transcribe.
type TranscribeCall struct {
	Samples    []int16
	SampleRate int
}

// Engine is a mock implementation of stt.Engine.
type Engine struct {
	mu sync.Mutex

	// Result is returned from Transcribe when Err is nil.
	Result stt.Transcription

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Model is returned from ModelID. Defaults to "mock-stt" when empty.
	Model string

	// Calls records every invocation of Transcribe.
	Calls []TranscribeCall
}

var _ stt.Engine = (*Engine)(nil)

// Transcribe records the call and returns Result, Err.
func (e *Engine) Transcribe(ctx context.Context, samples []int16, sampleRate int) (stt.Transcription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls = append(e.Calls, TranscribeCall{Samples: append([]int16(nil), samples...), SampleRate: sampleRate})
	if e.Err != nil {
		return stt.Transcription{}, e.Err
	}
	return e.Result, nil
}

// ModelID returns Model, or "mock-stt" when unset.
func (e *Engine) ModelID() string {
	if e.Model == "" {
		return "mock-stt"
	}
	return e.Model
}

// CallCount returns the number of recorded Transcribe calls. Thread-safe.
func (e *Engine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Calls)
}
