package prefs

import (
	"context"
	"testing"
)

func TestMemStore_UserLanguage(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	lang, err := s.UserLanguage(ctx, "1001")
	if err != nil {
		t.Fatalf("UserLanguage: %v", err)
	}
	if lang != "" {
		t.Errorf("UserLanguage on empty store = %q, want \"\"", lang)
	}

	if err := s.SetUserLanguage(ctx, "1001", "de"); err != nil {
		t.Fatalf("SetUserLanguage: %v", err)
	}
	if err := s.SetUserLanguage(ctx, "1001", "fr"); err != nil {
		t.Fatalf("SetUserLanguage (overwrite): %v", err)
	}

	lang, err = s.UserLanguage(ctx, "1001")
	if err != nil {
		t.Fatalf("UserLanguage: %v", err)
	}
	if lang != "fr" {
		t.Errorf("UserLanguage = %q, want fr (last write wins)", lang)
	}
}

func TestMemStore_ChannelSettings(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	cs, err := s.ChannelSettings(ctx, "42", "7")
	if err != nil {
		t.Fatalf("ChannelSettings: %v", err)
	}
	if cs != nil {
		t.Errorf("ChannelSettings on empty store = %+v, want nil", cs)
	}

	want := ChannelSettings{TargetLanguage: "es", EnableTTS: true}
	if err := s.SetChannelSettings(ctx, "42", "7", want); err != nil {
		t.Fatalf("SetChannelSettings: %v", err)
	}

	cs, err = s.ChannelSettings(ctx, "42", "7")
	if err != nil {
		t.Fatalf("ChannelSettings: %v", err)
	}
	if cs == nil {
		t.Fatal("ChannelSettings = nil after SetChannelSettings")
	}
	if *cs != want {
		t.Errorf("ChannelSettings = %+v, want %+v", *cs, want)
	}

	// Other channels in the same guild are unaffected.
	cs, err = s.ChannelSettings(ctx, "42", "8")
	if err != nil {
		t.Fatalf("ChannelSettings: %v", err)
	}
	if cs != nil {
		t.Errorf("ChannelSettings for unconfigured channel = %+v, want nil", cs)
	}
}

func TestMemStore_UpsertGuild(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	if err := s.UpsertGuild(ctx, "42", "Test Guild"); err != nil {
		t.Fatalf("UpsertGuild: %v", err)
	}
	if err := s.UpsertGuild(ctx, "42", "Renamed Guild"); err != nil {
		t.Fatalf("UpsertGuild (rename): %v", err)
	}
	if got := s.guilds["42"]; got != "Renamed Guild" {
		t.Errorf("guild name = %q, want %q", got, "Renamed Guild")
	}
}
