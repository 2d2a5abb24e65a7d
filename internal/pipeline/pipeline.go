// Package pipeline sequences the transcribe, translate, and synthesize
// stages for a single audio request and applies the partial-failure
// policy: recognition failure is fatal to the request, translation
// failure falls back to the untranslated transcript, and synthesis
// failure drops the audio but keeps the text.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/linguabridge/linguabridge/internal/observe"
	"github.com/linguabridge/linguabridge/internal/protocol"
	"github.com/linguabridge/linguabridge/pkg/audio"
	"github.com/linguabridge/linguabridge/pkg/engine/stt"
	"github.com/linguabridge/linguabridge/pkg/engine/translate"
	"github.com/linguabridge/linguabridge/pkg/engine/tts"
)

// ErrNoSTT is returned by [Pipeline.Process] when no speech
// recognition engine has been configured. Callers should map it to a
// more specific error code than a generic processing failure.
var ErrNoSTT = errors.New("pipeline: no speech recognition engine configured")

// Output is the assembled product of one pipeline run. TTSAudio holds
// WAV bytes and is nil when synthesis was not requested, not possible,
// or failed.
type Output struct {
	OriginalText   string
	TranslatedText string
	SourceLanguage string
	TargetLanguage string
	TTSAudio       []byte
}

// Pipeline runs audio requests through the configured engines. The
// engines are shared across sessions and must be safe for concurrent
// use; Pipeline itself holds no per-request state.
type Pipeline struct {
	stt        stt.Engine
	translator translate.Engine
	tts        tts.Engine
	log        *slog.Logger
	metrics    *observe.Metrics
}

// Option configures a [Pipeline].
type Option func(*Pipeline)

// WithSTT sets the speech recognition engine.
func WithSTT(e stt.Engine) Option {
	return func(p *Pipeline) { p.stt = e }
}

// WithTranslator sets the translation engine.
func WithTranslator(e translate.Engine) Option {
	return func(p *Pipeline) { p.translator = e }
}

// WithTTS sets the speech synthesis engine.
func WithTTS(e tts.Engine) Option {
	return func(p *Pipeline) { p.tts = e }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithMetrics sets the metrics sink. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a Pipeline. Any engine may be left unset: a missing
// recognition engine fails every request with [ErrNoSTT], while
// missing translation or synthesis engines degrade per the fallback
// policy.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// STTModels lists the model identifiers of the configured recognition
// engines, for the Ready advertisement.
func (p *Pipeline) STTModels() []string {
	if p.stt == nil {
		return nil
	}
	return []string{p.stt.ModelID()}
}

// TTSModels lists the model identifiers of the configured synthesis
// engines, for the Ready advertisement.
func (p *Pipeline) TTSModels() []string {
	if p.tts == nil {
		return nil
	}
	return []string{p.tts.ModelID()}
}

// Process runs req through the three stages and returns the assembled
// output. It returns an error only when recognition is unavailable or
// fails; every other stage failure is folded into the output.
func (p *Pipeline) Process(ctx context.Context, req *protocol.AudioRequest) (*Output, error) {
	if p.stt == nil {
		return nil, ErrNoSTT
	}

	start := time.Now()
	tr, err := p.stt.Transcribe(ctx, req.Samples, req.SampleRate)
	p.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordEngineRequest(ctx, p.stt.ModelID(), "stt", "error")
		p.metrics.RecordEngineError(ctx, p.stt.ModelID(), "stt")
		return nil, fmt.Errorf("pipeline: transcribe: %w", err)
	}
	p.metrics.RecordEngineRequest(ctx, p.stt.ModelID(), "stt", "ok")

	out := &Output{
		SourceLanguage: tr.Language,
		TargetLanguage: req.TargetLanguage,
	}

	text := strings.TrimSpace(tr.Text)
	if text == "" {
		p.log.Debug("no speech detected",
			slog.String("user_id", req.UserID),
			slog.Uint64("audio_hash", req.AudioHash))
		return out, nil
	}
	out.OriginalText = text
	out.TranslatedText = p.translateStage(ctx, text, tr.Language, req.TargetLanguage)

	if req.GenerateTTS {
		out.TTSAudio = p.synthesizeStage(ctx, out.TranslatedText, req.TargetLanguage)
	}
	return out, nil
}

// translateStage returns the translated text, or the original text
// when translation is skipped, unconfigured, or fails.
func (p *Pipeline) translateStage(ctx context.Context, text, sourceLang, targetLang string) string {
	if sourceLang == targetLang {
		return text
	}
	if p.translator == nil {
		p.log.Warn("no translation engine configured, passing transcript through",
			slog.String("source_language", sourceLang),
			slog.String("target_language", targetLang))
		return text
	}

	start := time.Now()
	translated, err := p.translator.Translate(ctx, text, sourceLang, targetLang)
	p.metrics.TranslateDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordEngineRequest(ctx, p.translator.ModelID(), "translate", "error")
		p.metrics.RecordEngineError(ctx, p.translator.ModelID(), "translate")
		p.log.Warn("translation failed, falling back to original text",
			slog.String("source_language", sourceLang),
			slog.String("target_language", targetLang),
			slog.String("error", err.Error()))
		return text
	}
	p.metrics.RecordEngineRequest(ctx, p.translator.ModelID(), "translate", "ok")
	return translated
}

// synthesizeStage returns WAV bytes for text, or nil when synthesis is
// unconfigured or fails.
func (p *Pipeline) synthesizeStage(ctx context.Context, text, language string) []byte {
	if p.tts == nil || text == "" {
		return nil
	}

	start := time.Now()
	a, err := p.tts.Synthesize(ctx, text, language)
	p.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordEngineRequest(ctx, p.tts.ModelID(), "tts", "error")
		p.metrics.RecordEngineError(ctx, p.tts.ModelID(), "tts")
		p.log.Warn("speech synthesis failed, returning text only",
			slog.String("language", language),
			slog.String("error", err.Error()))
		return nil
	}

	p.metrics.RecordEngineRequest(ctx, p.tts.ModelID(), "tts", "ok")

	wavBytes, err := audio.EncodeWAV(a.Samples, a.SampleRate)
	if err != nil {
		p.log.Warn("encoding synthesized audio failed, returning text only",
			slog.String("error", err.Error()))
		return nil
	}
	return wavBytes
}
