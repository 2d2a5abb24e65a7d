// Package coqui implements tts.Engine against a locally-running Coqui TTS
// server via its REST API.
//
// Two API modes are supported:
//
//   - APIModeStandard (default): targets the standard Coqui TTS server
//     (ghcr.io/coqui-ai/tts-cpu). Synthesis is a GET /api/tts with URL
//     query parameters.
//
//   - APIModeXTTS: targets the Coqui XTTS v2 API server. Synthesis is a
//     POST /tts_to_audio/ with a JSON body.
//
// Both servers return one WAV file per utterance; the engine unwraps the
// container and hands back raw PCM with the server's native sample rate.
//
// Typical usage:
//
//	e, err := coqui.New("http://localhost:5002",
//	    coqui.WithTimeout(15*time.Second),
//	    coqui.WithAPIMode(coqui.APIModeStandard),
//	)
//	audio, err := e.Synthesize(ctx, "Guten Tag", "de")
package coqui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/linguabridge/linguabridge/pkg/audio"
	"github.com/linguabridge/linguabridge/pkg/engine/tts"
)

var _ tts.Engine = (*Engine)(nil)

const (
	defaultTimeout = 30 * time.Second
	ttsEndpoint    = "/tts_to_audio/"
	apiTTSEndpoint = "/api/tts"
)

// APIMode selects which Coqui server API the engine targets.
type APIMode string

const (
	// APIModeXTTS targets the Coqui XTTS v2 API server (/tts_to_audio/).
	APIModeXTTS APIMode = "xtts"

	// APIModeStandard targets the standard Coqui TTS server (/api/tts).
	// This is the default mode.
	APIModeStandard APIMode = "standard"
)

// Option is a functional option for configuring a Coqui Engine.
type Option func(*Engine)

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.httpClient.Timeout = d }
}

// WithAPIMode selects the server API mode. Use APIModeStandard (default)
// for the standard Coqui TTS Docker image or APIModeXTTS for the XTTS v2
// API server.
func WithAPIMode(mode APIMode) Option {
	return func(e *Engine) { e.apiMode = mode }
}

// WithSpeaker sets the speaker/voice identifier sent with each request.
// Standard mode passes it as speaker_id; XTTS mode as speaker_wav. An
// empty value is valid for single-speaker models in standard mode.
func WithSpeaker(id string) Option {
	return func(e *Engine) { e.speaker = id }
}

// WithModelID overrides the identifier advertised to clients. Defaults to
// "coqui-tts" (standard) or "coqui-xtts-v2" (XTTS).
func WithModelID(id string) Option {
	return func(e *Engine) { e.modelID = id }
}

// Engine implements tts.Engine backed by a Coqui TTS server. It is safe
// for concurrent use; each Synthesize call is one independent HTTP
// request.
type Engine struct {
	serverURL  string
	speaker    string
	apiMode    APIMode
	modelID    string
	httpClient *http.Client
}

// New creates an Engine targeting the TTS server at serverURL (e.g.
// "http://localhost:5002"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Engine, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	e := &Engine{
		serverURL:  strings.TrimRight(serverURL, "/"),
		apiMode:    APIModeStandard,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(e)
	}
	if e.apiMode == APIModeXTTS && e.speaker == "" {
		return nil, errors.New("coqui: XTTS mode requires a speaker (WithSpeaker)")
	}
	if e.modelID == "" {
		if e.apiMode == APIModeXTTS {
			e.modelID = "coqui-xtts-v2"
		} else {
			e.modelID = "coqui-tts"
		}
	}
	return e, nil
}

// ModelID implements tts.Engine.
func (e *Engine) ModelID() string { return e.modelID }

// Synthesize implements tts.Engine. The WAV container returned by the
// server is unwrapped; the PCM comes back at the model's native rate and
// the caller handles any rate bookkeeping.
func (e *Engine) Synthesize(ctx context.Context, text, language string) (tts.Audio, error) {
	if strings.TrimSpace(text) == "" {
		return tts.Audio{}, errors.New("coqui: text must not be empty")
	}

	var (
		wavBytes []byte
		err      error
	)
	if e.apiMode == APIModeStandard {
		wavBytes, err = e.fetchStandard(ctx, text, language)
	} else {
		wavBytes, err = e.fetchXTTS(ctx, text, language)
	}
	if err != nil {
		return tts.Audio{}, err
	}

	samples, rate, err := audio.DecodeWAV(wavBytes)
	if err != nil {
		return tts.Audio{}, fmt.Errorf("coqui: unwrap response: %w", err)
	}
	return tts.Audio{Samples: samples, SampleRate: rate}, nil
}

// ttsRequest is the JSON body sent to POST /tts_to_audio/ (XTTS mode).
type ttsRequest struct {
	Text       string `json:"text"`
	SpeakerWav string `json:"speaker_wav"`
	Language   string `json:"language"`
}

// fetchXTTS performs a single POST /tts_to_audio/ call and returns the
// raw WAV bytes.
func (e *Engine) fetchXTTS(ctx context.Context, text, language string) ([]byte, error) {
	data, err := json.Marshal(ttsRequest{Text: text, SpeakerWav: e.speaker, Language: language})
	if err != nil {
		return nil, fmt.Errorf("coqui: marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serverURL+ttsEndpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	return e.do(req, ttsEndpoint)
}

// fetchStandard performs a single GET /api/tts call with URL query
// parameters and returns the raw WAV bytes.
func (e *Engine) fetchStandard(ctx context.Context, text, language string) ([]byte, error) {
	params := url.Values{}
	params.Set("text", text)
	if e.speaker != "" {
		params.Set("speaker_id", e.speaker)
	}
	if language != "" {
		params.Set("language_id", language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.serverURL+apiTTSEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Accept", "audio/wav")

	return e.do(req, apiTTSEndpoint)
}

func (e *Engine) do(req *http.Request, endpoint string) ([]byte, error) {
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coqui: %s %s: %w", req.Method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coqui: %s %s returned status %d", req.Method, endpoint, resp.StatusCode)
	}
	wavBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coqui: read WAV response: %w", err)
	}
	return wavBytes, nil
}
