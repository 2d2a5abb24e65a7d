// Package whisper implements stt.Engine on the whisper.cpp CGO bindings.
// The whisper.cpp static library (libwhisper.a) and headers (whisper.h)
// must be available at link time via LIBRARY_PATH and C_INCLUDE_PATH.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/linguabridge/linguabridge/pkg/audio"
	"github.com/linguabridge/linguabridge/pkg/engine/stt"
)

// modelSampleRate is the only input rate whisper.cpp accepts; segments at
// any other rate are resampled before inference.
const modelSampleRate = 16000

var _ stt.Engine = (*Engine)(nil)

// Engine implements stt.Engine using whisper.cpp Go bindings (CGO),
// avoiding HTTP overhead entirely. The model is loaded once at startup and
// shared across all sessions; each Transcribe call runs on a fresh whisper
// context, which is the binding's unit of thread confinement.
type Engine struct {
	model    whisperlib.Model
	modelID  string
	language string
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithLanguage pins the recognition language (e.g. "en", "de"). The
// default "auto" lets the model detect the spoken language per segment.
func WithLanguage(lang string) Option {
	return func(e *Engine) { e.language = lang }
}

// New loads the whisper.cpp model from the given file path. The caller
// must call Close when the engine is no longer needed.
func New(modelPath string, opts ...Option) (*Engine, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	e := &Engine{
		model:    model,
		modelID:  strings.TrimSuffix(filepath.Base(modelPath), filepath.Ext(modelPath)),
		language: "auto",
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Close releases the whisper model.
func (e *Engine) Close() error {
	if e.model != nil {
		return e.model.Close()
	}
	return nil
}

// ModelID returns the model file name without extension, e.g.
// "ggml-large-v3".
func (e *Engine) ModelID() string { return e.modelID }

// Transcribe resamples the segment to the model's 16 kHz input rate, runs
// inference on a fresh context, and concatenates the resulting segments.
// An empty segment returns an empty Transcription without touching the
// model.
func (e *Engine) Transcribe(ctx context.Context, samples []int16, sampleRate int) (stt.Transcription, error) {
	if err := ctx.Err(); err != nil {
		return stt.Transcription{}, fmt.Errorf("whisper: %w", err)
	}
	if len(samples) == 0 {
		return stt.Transcription{}, nil
	}

	samples = audio.ResampleMono16(samples, sampleRate, modelSampleRate)
	f32 := make([]float32, len(samples))
	for i, s := range samples {
		f32[i] = float32(s) / 32768.0
	}

	// Contexts are not thread-safe; the shared model is.
	wctx, err := e.model.NewContext()
	if err != nil {
		return stt.Transcription{}, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(e.language); err != nil {
		slog.Warn("whisper: failed to set language, using model default",
			"language", e.language, "error", err)
	}

	if err := wctx.Process(f32, nil, nil, nil); err != nil {
		return stt.Transcription{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Transcription{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	lang := e.language
	if lang == "auto" {
		lang = wctx.Language()
	}
	return stt.Transcription{
		Text:     strings.Join(parts, " "),
		Language: lang,
	}, nil
}
