package lang

import "testing"

func TestSupportedTable(t *testing.T) {
	langs := Supported()
	if len(langs) != 49 {
		t.Errorf("Supported() length = %d, want 49", len(langs))
	}
	seen := map[string]bool{}
	for _, l := range langs {
		if l.Code == "" || l.Name == "" {
			t.Errorf("incomplete entry %+v", l)
		}
		if seen[l.Code] {
			t.Errorf("duplicate code %q", l.Code)
		}
		seen[l.Code] = true
	}
}

func TestName(t *testing.T) {
	if got := Name("de"); got != "German" {
		t.Errorf("Name(\"de\") = %q, want \"German\"", got)
	}
	if got := Name(" EN "); got != "English" {
		t.Errorf("Name(\" EN \") = %q, want \"English\"", got)
	}
	if got := Name("xx"); got != "" {
		t.Errorf("Name(\"xx\") = %q, want empty", got)
	}
}

func TestValid(t *testing.T) {
	if !Valid("ja") {
		t.Error("Valid(\"ja\") = false, want true")
	}
	if Valid("klingon") {
		t.Error("Valid(\"klingon\") = true, want false")
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		input    string
		wantCode string
		wantOK   bool
	}{
		{"de", "de", true},
		{"German", "de", true},
		{"german", "de", true},
		{"  SPANISH  ", "es", true},
		{"germn", "de", true},    // typo
		{"portugese", "pt", true}, // common misspelling
		{"", "", false},
		{"qqqqq", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			code, ok := Resolve(tt.input)
			if ok != tt.wantOK || code != tt.wantCode {
				t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)",
					tt.input, code, ok, tt.wantCode, tt.wantOK)
			}
		})
	}
}
