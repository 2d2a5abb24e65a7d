package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/linguabridge/linguabridge/pkg/engine/stt"
	"github.com/linguabridge/linguabridge/pkg/engine/translate"
	"github.com/linguabridge/linguabridge/pkg/engine/tts"
)

// ErrEngineNotRegistered is returned by Create* methods when no factory
// has been registered under the requested engine name.
var ErrEngineNotRegistered = errors.New("config: engine not registered")

// Registry maps engine names to their constructor functions for each
// pipeline stage. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	stt       map[string]func(EngineEntry) (stt.Engine, error)
	translate map[string]func(EngineEntry) (translate.Engine, error)
	tts       map[string]func(EngineEntry) (tts.Engine, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt:       make(map[string]func(EngineEntry) (stt.Engine, error)),
		translate: make(map[string]func(EngineEntry) (translate.Engine, error)),
		tts:       make(map[string]func(EngineEntry) (tts.Engine, error)),
	}
}

// RegisterSTT registers a speech recognition engine factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory func(EngineEntry) (stt.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterTranslate registers a translation engine factory under name.
func (r *Registry) RegisterTranslate(name string, factory func(EngineEntry) (translate.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translate[name] = factory
}

// RegisterTTS registers a speech synthesis engine factory under name.
func (r *Registry) RegisterTTS(name string, factory func(EngineEntry) (tts.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// CreateSTT instantiates a speech recognition engine using the factory
// registered under entry.Name. Returns [ErrEngineNotRegistered] if no
// factory has been registered for that name.
func (r *Registry) CreateSTT(entry EngineEntry) (stt.Engine, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrEngineNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTranslate instantiates a translation engine using the factory
// registered under entry.Name.
func (r *Registry) CreateTranslate(entry EngineEntry) (translate.Engine, error) {
	r.mu.RLock()
	factory, ok := r.translate[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: translate/%q", ErrEngineNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTTS instantiates a speech synthesis engine using the factory
// registered under entry.Name.
func (r *Registry) CreateTTS(entry EngineEntry) (tts.Engine, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrEngineNotRegistered, entry.Name)
	}
	return factory(entry)
}
