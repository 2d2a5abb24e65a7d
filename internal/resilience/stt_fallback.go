package resilience

import (
	"context"

	"github.com/linguabridge/linguabridge/pkg/engine/stt"
)

// STTFallback implements [stt.Engine] with automatic failover across multiple
// recognition backends. Each backend has its own circuit breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Engine]
}

// Compile-time interface assertion.
var _ stt.Engine = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred
// backend.
func NewSTTFallback(primary stt.Engine, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional recognition engine as a fallback.
func (f *STTFallback) AddFallback(name string, engine stt.Engine) {
	f.group.AddFallback(name, engine)
}

// Transcribe runs the samples through the first healthy backend.
func (f *STTFallback) Transcribe(ctx context.Context, samples []int16, sampleRate int) (stt.Transcription, error) {
	return ExecuteWithResult(f.group, func(e stt.Engine) (stt.Transcription, error) {
		return e.Transcribe(ctx, samples, sampleRate)
	})
}

// ModelID returns the primary backend's model identifier. This does not
// participate in failover because it is static metadata.
func (f *STTFallback) ModelID() string {
	return f.group.Primary().ModelID()
}
