// Package mock provides a test double for the translate package.
package mock

import (
	"context"
	"sync"

	"github.com/linguabridge/linguabridge/pkg/engine/translate"
)

// TranslateCall records a single invocation of Engine.Translate.
type TranslateCall struct {
	Text       string
	SourceLang string
	TargetLang string
}

// Engine is a mock implementation of translate.Engine.
type Engine struct {
	mu sync.Mutex

	// Result is returned from Translate when Err is nil. When empty, the
	// input text is returned prefixed with the target language, which is
	// usually enough to assert the call happened.
	Result string

	// Err, if non-nil, is returned as the error from Translate.
	Err error

	// Model is returned from ModelID. Defaults to "mock-translate".
	Model string

	// Calls records every invocation of Translate.
	Calls []TranslateCall
}

var _ translate.Engine = (*Engine)(nil)

// Translate records the call and returns Result, Err.
func (e *Engine) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls = append(e.Calls, TranslateCall{Text: text, SourceLang: sourceLang, TargetLang: targetLang})
	if e.Err != nil {
		return "", e.Err
	}
	if e.Result == "" {
		return "[" + targetLang + "] " + text, nil
	}
	return e.Result, nil
}

// ModelID returns Model, or "mock-translate" when unset.
func (e *Engine) ModelID() string {
	if e.Model == "" {
		return "mock-translate"
	}
	return e.Model
}

// CallCount returns the number of recorded Translate calls. Thread-safe.
func (e *Engine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Calls)
}
