package config

import "reflect"

// Diff describes what changed between two configs. Callers use it to
// decide what can be applied live (log level) and what needs a restart
// (engine stack, listen address, store DSN).
type Diff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// EnginesChanged lists the pipeline stages whose engine entry
	// (primary or fallback) differs: "stt", "translate", "tts".
	EnginesChanged []string

	// RestartRequired is set when a change cannot be applied to a
	// running process.
	RestartRequired bool
}

// Compare returns the differences between old and new.
func Compare(old, new *Config) Diff {
	d := Diff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	for _, stage := range []struct {
		name     string
		old, new EngineConfig
	}{
		{"stt", old.Engines.STT, new.Engines.STT},
		{"translate", old.Engines.Translate, new.Engines.Translate},
		{"tts", old.Engines.TTS, new.Engines.TTS},
	} {
		if engineChanged(stage.old, stage.new) {
			d.EnginesChanged = append(d.EnginesChanged, stage.name)
		}
	}

	if len(d.EnginesChanged) > 0 ||
		old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Prefs.PostgresDSN != new.Prefs.PostgresDSN ||
		old.Bridge != new.Bridge {
		d.RestartRequired = true
	}
	return d
}

func engineChanged(old, new EngineConfig) bool {
	if !entryEqual(old.EngineEntry, new.EngineEntry) {
		return true
	}
	if (old.Fallback == nil) != (new.Fallback == nil) {
		return true
	}
	if old.Fallback != nil && !entryEqual(*old.Fallback, *new.Fallback) {
		return true
	}
	return false
}

// entryEqual compares entries field by field; Options maps make
// EngineEntry incomparable with ==, and their values can nest.
func entryEqual(a, b EngineEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	return reflect.DeepEqual(a.Options, b.Options)
}
