// Command linguabridge is the translation gateway: it hosts the WebSocket
// voice endpoint and runs the speech-to-speech translation pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/linguabridge/linguabridge/internal/config"
	"github.com/linguabridge/linguabridge/internal/gateway"
	"github.com/linguabridge/linguabridge/internal/observe"
	"github.com/linguabridge/linguabridge/internal/pipeline"
	"github.com/linguabridge/linguabridge/internal/resilience"
	"github.com/linguabridge/linguabridge/pkg/engine/stt"
	sttmock "github.com/linguabridge/linguabridge/pkg/engine/stt/mock"
	"github.com/linguabridge/linguabridge/pkg/engine/stt/whisper"
	"github.com/linguabridge/linguabridge/pkg/engine/translate"
	"github.com/linguabridge/linguabridge/pkg/engine/translate/anyllm"
	translatemock "github.com/linguabridge/linguabridge/pkg/engine/translate/mock"
	oaitranslate "github.com/linguabridge/linguabridge/pkg/engine/translate/openai"
	"github.com/linguabridge/linguabridge/pkg/engine/tts"
	"github.com/linguabridge/linguabridge/pkg/engine/tts/coqui"
	ttsmock "github.com/linguabridge/linguabridge/pkg/engine/tts/mock"
)

const version = "0.3.0"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("linguabridge", version)
		return 0
	}

	// The log level is mutable so config reloads can change it live.
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		applyReload(old, new, level)
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "linguabridge: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "linguabridge: %v\n", err)
		}
		return 1
	}
	defer watcher.Stop()

	cfg := watcher.Current()
	level.Set(slogLevel(cfg.Server.LogLevel))

	slog.Info("linguabridge starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	reg := config.NewRegistry()
	registerBuiltinEngines(reg)

	pipe, err := buildPipeline(cfg, reg, logger)
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	var srvOpts []gateway.ServerOption
	srvOpts = append(srvOpts, gateway.WithLogger(logger))
	if tls := cfg.Server.TLS; tls != nil {
		srvOpts = append(srvOpts, gateway.WithTLS(tls.CertFile, tls.KeyFile))
	}
	srv := gateway.New(addr, pipe, srvOpts...)

	slog.Info("gateway ready, press Ctrl+C to shut down")
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// applyReload reacts to a config file change: the log level is applied
// live, everything else logs a restart warning.
func applyReload(old, new *config.Config, level *slog.LevelVar) {
	d := config.Compare(old, new)
	if d.LogLevelChanged {
		level.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.RestartRequired {
		slog.Warn("config changes require a restart to take effect",
			"engines", strings.Join(d.EnginesChanged, ","))
	}
}

// registerBuiltinEngines wires all built-in engine factories into reg.
func registerBuiltinEngines(reg *config.Registry) {
	// Chat-model translation backends share one pattern: optional APIKey
	// plus optional BaseURL, routed through any-llm-go.
	for _, name := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterTranslate(name, func(entry config.EngineEntry) (translate.Engine, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(name, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterTranslate("ollama", func(entry config.EngineEntry) (translate.Engine, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// openai-chat talks to the OpenAI API directly instead of through
	// any-llm-go; it supports base URL and org overrides.
	reg.RegisterTranslate("openai-chat", func(entry config.EngineEntry) (translate.Engine, error) {
		var opts []oaitranslate.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaitranslate.WithBaseURL(entry.BaseURL))
		}
		if org := entry.StringOption("organization"); org != "" {
			opts = append(opts, oaitranslate.WithOrganization(org))
		}
		return oaitranslate.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.EngineEntry) (stt.Engine, error) {
		var opts []whisper.Option
		if lang := entry.StringOption("language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.Model, opts...)
	})

	reg.RegisterTTS("coqui", func(entry config.EngineEntry) (tts.Engine, error) {
		var opts []coqui.Option
		if entry.Model != "" {
			opts = append(opts, coqui.WithModelID(entry.Model))
		}
		if speaker := entry.StringOption("speaker"); speaker != "" {
			opts = append(opts, coqui.WithSpeaker(speaker))
		}
		if mode := entry.StringOption("api_mode"); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	// Mock engines keep local development going without models or API keys.
	reg.RegisterSTT("mock", func(entry config.EngineEntry) (stt.Engine, error) {
		return &sttmock.Engine{Model: entry.Model}, nil
	})
	reg.RegisterTranslate("mock", func(entry config.EngineEntry) (translate.Engine, error) {
		return &translatemock.Engine{Model: entry.Model}, nil
	})
	reg.RegisterTTS("mock", func(entry config.EngineEntry) (tts.Engine, error) {
		return &ttsmock.Engine{Model: entry.Model}, nil
	})
}

// buildPipeline instantiates the engines named in cfg and assembles the
// translation pipeline. Stages with a configured fallback are wrapped in
// a circuit-breaking fallback group.
func buildPipeline(cfg *config.Config, reg *config.Registry, logger *slog.Logger) (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{pipeline.WithLogger(logger)}

	if name := cfg.Engines.STT.Name; name != "" {
		primary, err := reg.CreateSTT(cfg.Engines.STT.EngineEntry)
		if err != nil {
			return nil, fmt.Errorf("create stt engine %q: %w", name, err)
		}
		eng := primary
		if fb := cfg.Engines.STT.Fallback; fb != nil {
			backup, err := reg.CreateSTT(*fb)
			if err != nil {
				return nil, fmt.Errorf("create stt fallback %q: %w", fb.Name, err)
			}
			group := resilience.NewSTTFallback(primary, name, resilience.FallbackConfig{})
			group.AddFallback(fb.Name, backup)
			eng = group
			slog.Info("engine fallback enabled", "kind", "stt", "primary", name, "fallback", fb.Name)
		}
		opts = append(opts, pipeline.WithSTT(eng))
		slog.Info("engine created", "kind", "stt", "name", name, "model", primary.ModelID())
	}

	if name := cfg.Engines.Translate.Name; name != "" {
		primary, err := reg.CreateTranslate(cfg.Engines.Translate.EngineEntry)
		if err != nil {
			return nil, fmt.Errorf("create translate engine %q: %w", name, err)
		}
		eng := primary
		if fb := cfg.Engines.Translate.Fallback; fb != nil {
			backup, err := reg.CreateTranslate(*fb)
			if err != nil {
				return nil, fmt.Errorf("create translate fallback %q: %w", fb.Name, err)
			}
			group := resilience.NewTranslateFallback(primary, name, resilience.FallbackConfig{})
			group.AddFallback(fb.Name, backup)
			eng = group
			slog.Info("engine fallback enabled", "kind", "translate", "primary", name, "fallback", fb.Name)
		}
		opts = append(opts, pipeline.WithTranslator(eng))
		slog.Info("engine created", "kind", "translate", "name", name, "model", primary.ModelID())
	}

	if name := cfg.Engines.TTS.Name; name != "" {
		primary, err := reg.CreateTTS(cfg.Engines.TTS.EngineEntry)
		if err != nil {
			return nil, fmt.Errorf("create tts engine %q: %w", name, err)
		}
		eng := primary
		if fb := cfg.Engines.TTS.Fallback; fb != nil {
			backup, err := reg.CreateTTS(*fb)
			if err != nil {
				return nil, fmt.Errorf("create tts fallback %q: %w", fb.Name, err)
			}
			group := resilience.NewTTSFallback(primary, name, resilience.FallbackConfig{})
			group.AddFallback(fb.Name, backup)
			eng = group
			slog.Info("engine fallback enabled", "kind", "tts", "primary", name, "fallback", fb.Name)
		}
		opts = append(opts, pipeline.WithTTS(eng))
		slog.Info("engine created", "kind", "tts", "name", name, "model", primary.ModelID())
	}

	return pipeline.New(opts...), nil
}

func printStartupSummary(cfg *config.Config) {
	printEngine := func(kind string, e config.EngineConfig) {
		value := e.Name
		if value == "" {
			value = "(not configured)"
		} else if e.Model != "" {
			value = e.Name + " / " + e.Model
		}
		if e.Fallback != nil {
			value += " +fallback"
		}
		fmt.Printf("  %-10s %s\n", kind, value)
	}

	fmt.Println("linguabridge", version)
	printEngine("stt", cfg.Engines.STT)
	printEngine("translate", cfg.Engines.Translate)
	printEngine("tts", cfg.Engines.TTS)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("  %-10s %s\n", "listen", cfg.Server.ListenAddr)
	}
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
