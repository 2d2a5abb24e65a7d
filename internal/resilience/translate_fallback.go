package resilience

import (
	"context"

	"github.com/linguabridge/linguabridge/pkg/engine/translate"
)

// TranslateFallback implements [translate.Engine] with automatic failover
// across multiple translation backends, typically a local model backed by a
// hosted API. Each backend has its own circuit breaker.
type TranslateFallback struct {
	group *FallbackGroup[translate.Engine]
}

// Compile-time interface assertion.
var _ translate.Engine = (*TranslateFallback)(nil)

// NewTranslateFallback creates a [TranslateFallback] with primary as the
// preferred backend.
func NewTranslateFallback(primary translate.Engine, primaryName string, cfg FallbackConfig) *TranslateFallback {
	return &TranslateFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional translation engine as a fallback.
func (f *TranslateFallback) AddFallback(name string, engine translate.Engine) {
	f.group.AddFallback(name, engine)
}

// Translate renders text through the first healthy backend.
func (f *TranslateFallback) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return ExecuteWithResult(f.group, func(e translate.Engine) (string, error) {
		return e.Translate(ctx, text, sourceLang, targetLang)
	})
}

// ModelID returns the primary backend's model identifier. This does not
// participate in failover because it is static metadata.
func (f *TranslateFallback) ModelID() string {
	return f.group.Primary().ModelID()
}
