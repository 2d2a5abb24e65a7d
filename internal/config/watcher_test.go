package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/linguabridge/linguabridge/internal/config"
)

const watcherValidYAML = `
server:
  listen_addr: ":8080"
  log_level: info
engines:
  stt:
    name: whisper
    model: models/ggml-base.bin
`

const watcherUpdatedYAML = `
server:
  listen_addr: ":8080"
  log_level: debug
engines:
  stt:
    name: whisper
    model: models/ggml-base.bin
`

const watcherInvalidYAML = `
server:
  log_level: bananas
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %q: %v", path, err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	w, err := config.NewWatcher(cfgPath, nil, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	cfg := w.Current()
	if cfg == nil {
		t.Fatal("Current() returned nil after initial load")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level: got %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	changed := make(chan *config.Config, 1)
	w, err := config.NewWatcher(cfgPath, func(_, new *config.Config) {
		select {
		case changed <- new:
		default:
		}
	}, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	// The watcher compares mtimes; make sure the rewrite moves it.
	time.Sleep(10 * time.Millisecond)
	writeFile(t, cfgPath, watcherUpdatedYAML)
	touchFuture(t, cfgPath)

	select {
	case cfg := <-changed:
		if cfg.Server.LogLevel != config.LogDebug {
			t.Errorf("reloaded log_level: got %q, want %q", cfg.Server.LogLevel, config.LogDebug)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("onChange was not called after the file changed")
	}

	if got := w.Current().Server.LogLevel; got != config.LogDebug {
		t.Errorf("Current() log_level: got %q, want %q", got, config.LogDebug)
	}
}

func TestWatcher_KeepsOldConfigOnInvalidRewrite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	var mu sync.Mutex
	calls := 0
	w, err := config.NewWatcher(cfgPath, func(_, _ *config.Config) {
		mu.Lock()
		calls++
		mu.Unlock()
	}, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	writeFile(t, cfgPath, watcherInvalidYAML)
	touchFuture(t, cfgPath)
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	got := calls
	mu.Unlock()
	if got != 0 {
		t.Errorf("onChange called %d times for an invalid rewrite, want 0", got)
	}
	if lvl := w.Current().Server.LogLevel; lvl != config.LogInfo {
		t.Errorf("Current() log_level: got %q, want %q (old config)", lvl, config.LogInfo)
	}
}

// touchFuture bumps the file's mtime past the watcher's last-seen value,
// sidestepping filesystem timestamp granularity.
func touchFuture(t *testing.T, path string) {
	t.Helper()
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("failed to bump mtime of %q: %v", path, err)
	}
}

func TestWatcher_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := config.NewWatcher(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
}
