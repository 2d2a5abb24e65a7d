package resilience

import (
	"context"

	"github.com/linguabridge/linguabridge/pkg/engine/tts"
)

// TTSFallback implements [tts.Engine] with automatic failover across multiple
// synthesis backends. Each backend has its own circuit breaker.
type TTSFallback struct {
	group *FallbackGroup[tts.Engine]
}

// Compile-time interface assertion.
var _ tts.Engine = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred
// backend.
func NewTTSFallback(primary tts.Engine, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional synthesis engine as a fallback.
func (f *TTSFallback) AddFallback(name string, engine tts.Engine) {
	f.group.AddFallback(name, engine)
}

// Synthesize renders text through the first healthy backend.
func (f *TTSFallback) Synthesize(ctx context.Context, text, language string) (tts.Audio, error) {
	return ExecuteWithResult(f.group, func(e tts.Engine) (tts.Audio, error) {
		return e.Synthesize(ctx, text, language)
	})
}

// ModelID returns the primary backend's model identifier. This does not
// participate in failover because it is static metadata.
func (f *TTSFallback) ModelID() string {
	return f.group.Primary().ModelID()
}
