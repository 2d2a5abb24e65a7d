// Package anyllm implements translate.Engine on top of
// github.com/mozilla-ai/any-llm-go, a unified multi-provider LLM
// interface supporting OpenAI, Anthropic, Gemini, Ollama, DeepSeek,
// Mistral, Groq, and local llama.cpp servers.
//
// Usage:
//
//	e, err := anyllm.New("ollama", "translate-gemma:9b")
//	e, err := anyllm.New("groq", "llama-3.3-70b-versatile", anyllmlib.WithAPIKey("gsk_..."))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/linguabridge/linguabridge/pkg/lang"
	"github.com/linguabridge/linguabridge/pkg/engine/translate"
)

var _ translate.Engine = (*Engine)(nil)

// Engine implements translate.Engine by prompting a chat model through
// any-llm-go. Temperature is pinned to zero; translation wants the
// model's most literal rendering, not creativity.
type Engine struct {
	backend anyllmlib.Provider
	model   string
}

// New creates an Engine backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile". model is the
// specific model to use. opts are any-llm-go configuration options (e.g.
// anyllmlib.WithAPIKey, anyllmlib.WithBaseURL); without an API key option
// the relevant environment variable applies (OPENAI_API_KEY etc.).
func New(providerName, model string, opts ...anyllmlib.Option) (*Engine, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}
	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	return &Engine{backend: backend, model: model}, nil
}

// createBackend creates the underlying any-llm-go provider for the given
// provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// ModelID implements translate.Engine.
func (e *Engine) ModelID() string { return e.model }

// Translate implements translate.Engine. The prompt instructs the model to
// emit the translation and nothing else; language codes are expanded to
// full names because chat models follow "German" far more reliably than
// "de".
func (e *Engine) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	source := lang.Name(sourceLang)
	if source == "" {
		source = "the source language"
	}
	target := lang.Name(targetLang)
	if target == "" {
		target = targetLang
	}

	zero := 0.0
	resp, err := e.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: e.model,
		Messages: []anyllmlib.Message{
			{
				Role: anyllmlib.RoleSystem,
				Content: "You are a translation engine. Translate the user's text from " +
					source + " into " + target +
					". Output only the translation, with no commentary, quotes, or notes.",
			},
			{Role: anyllmlib.RoleUser, Content: text},
		},
		Temperature: &zero,
	})
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}

	out := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if out == "" {
		return "", fmt.Errorf("anyllm: model returned empty translation")
	}
	return out, nil
}
