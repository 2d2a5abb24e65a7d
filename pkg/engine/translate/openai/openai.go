// Package openai implements a translation engine on the OpenAI chat
// completions API. It is typically configured as a fallback behind a
// local [translate.Engine] so that translation keeps working when the
// primary model is down.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/linguabridge/linguabridge/pkg/engine/translate"
	"github.com/linguabridge/linguabridge/pkg/lang"
)

// Engine translates text through an OpenAI chat model.
type Engine struct {
	client oai.Client
	model  string
}

var _ translate.Engine = (*Engine)(nil)

type config struct {
	baseURL      string
	organization string
	timeout      time.Duration
}

// Option configures an [Engine].
type Option func(*config)

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithOrganization sets the OpenAI organization ID.
func WithOrganization(org string) Option {
	return func(c *config) { c.organization = org }
}

// WithTimeout bounds each completion request.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New creates an Engine backed by the given API key and chat model.
func New(apiKey, model string, opts ...Option) (*Engine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.organization))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Engine{
		client: oai.NewClient(reqOpts...),
		model:  model,
	}, nil
}

// ModelID returns the configured chat model name.
func (e *Engine) ModelID() string { return e.model }

// Translate renders text from sourceLang into targetLang.
func (e *Engine) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(e.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(translationPrompt(sourceLang, targetLang)),
			oai.UserMessage(text),
		},
		Temperature: param.NewOpt(0.0),
	}

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("openai: model returned empty translation")
	}
	return out, nil
}

func translationPrompt(sourceLang, targetLang string) string {
	src := "the source language"
	if name := lang.Name(sourceLang); name != "" {
		src = name
	}
	tgt := targetLang
	if name := lang.Name(targetLang); name != "" {
		tgt = name
	}
	return fmt.Sprintf("You are a translation engine. Translate the user's text from %s into %s. Output only the translation, with no explanations or extra formatting.", src, tgt)
}
