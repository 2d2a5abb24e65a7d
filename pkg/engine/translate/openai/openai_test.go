package openai

import (
	"strings"
	"testing"
)

func TestNewValidation(t *testing.T) {
	if _, err := New("", "gpt-4o-mini"); err == nil {
		t.Error("New() with empty API key: expected error, got nil")
	}
	if _, err := New("sk-test", ""); err == nil {
		t.Error("New() with empty model: expected error, got nil")
	}

	e, err := New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := e.ModelID(); got != "gpt-4o-mini" {
		t.Errorf("ModelID() = %q, want %q", got, "gpt-4o-mini")
	}
}

func TestTranslationPrompt(t *testing.T) {
	p := translationPrompt("de", "en")
	if !strings.Contains(p, "German") || !strings.Contains(p, "English") {
		t.Errorf("translationPrompt(de, en) = %q, want language names spelled out", p)
	}

	p = translationPrompt("", "xx")
	if !strings.Contains(p, "the source language") {
		t.Errorf("translationPrompt with unknown source = %q, want generic source wording", p)
	}
	if !strings.Contains(p, "into xx") {
		t.Errorf("translationPrompt with unknown target = %q, want raw code fallback", p)
	}
}
