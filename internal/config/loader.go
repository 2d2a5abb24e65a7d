package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidEngineNames lists known engine names per pipeline stage. Used by
// [Validate] to warn about likely typos; unknown names are not fatal so
// third-party registrations keep working.
var ValidEngineNames = map[string][]string{
	"stt":       {"whisper", "mock"},
	"translate": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "openai-chat", "mock"},
	"tts":       {"coqui", "mock"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	validateEngineName("stt", cfg.Engines.STT.Name)
	validateEngineName("translate", cfg.Engines.Translate.Name)
	validateEngineName("tts", cfg.Engines.TTS.Name)
	if fb := cfg.Engines.STT.Fallback; fb != nil {
		validateEngineName("stt", fb.Name)
	}
	if fb := cfg.Engines.Translate.Fallback; fb != nil {
		validateEngineName("translate", fb.Name)
	}
	if fb := cfg.Engines.TTS.Fallback; fb != nil {
		validateEngineName("tts", fb.Name)
	}

	for _, stage := range []struct {
		name string
		cfg  EngineConfig
	}{
		{"stt", cfg.Engines.STT},
		{"translate", cfg.Engines.Translate},
		{"tts", cfg.Engines.TTS},
	} {
		if stage.cfg.Fallback != nil && stage.cfg.Name == "" {
			errs = append(errs, fmt.Errorf("engines.%s.fallback is set but engines.%s has no primary engine", stage.name, stage.name))
		}
		if stage.cfg.Fallback != nil && stage.cfg.Fallback.Name == "" {
			errs = append(errs, fmt.Errorf("engines.%s.fallback.name is required", stage.name))
		}
	}

	if cfg.Engines.STT.Name == "" {
		slog.Warn("engines.stt is not configured; audio frames will be rejected with STT_UNAVAILABLE")
	}
	if cfg.Engines.Translate.Name == "" {
		slog.Warn("engines.translate is not configured; transcripts will pass through untranslated")
	}

	if cfg.Bridge.Token != "" && cfg.Bridge.GatewayURL == "" {
		errs = append(errs, errors.New("bridge.gateway_url is required when bridge.token is set"))
	}
	if cfg.Bridge.GatewayURL != "" && !strings.HasPrefix(cfg.Bridge.GatewayURL, "ws://") && !strings.HasPrefix(cfg.Bridge.GatewayURL, "wss://") {
		errs = append(errs, fmt.Errorf("bridge.gateway_url %q must use a ws:// or wss:// scheme", cfg.Bridge.GatewayURL))
	}
	if cfg.Bridge.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("bridge.queue_size %d must not be negative", cfg.Bridge.QueueSize))
	}

	if cfg.Prefs.PostgresDSN == "" && cfg.Bridge.Token != "" {
		slog.Warn("prefs.postgres_dsn is empty; translation preferences will not survive restarts")
	}

	return errors.Join(errs...)
}

// validateEngineName logs a warning if name is non-empty and not found in
// the [ValidEngineNames] list for the given stage.
func validateEngineName(stage, name string) {
	if name == "" {
		return
	}
	known, ok := ValidEngineNames[stage]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown engine name, may be a typo or third-party engine",
		"stage", stage,
		"name", name,
		"known", known,
	)
}
