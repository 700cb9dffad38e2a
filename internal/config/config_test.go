package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.UI.SyntaxThemeOrDefault(); got != "vulcan" {
		t.Errorf("theme got %q, want %q", got, "vulcan")
	}
	if got := cfg.UI.TabWidthOrDefault(); got != 4 {
		t.Errorf("tab width got %d, want 4", got)
	}
	if !cfg.UI.LineNumbersOrDefault() {
		t.Error("line numbers should default on")
	}
	if got := cfg.History.MaxTransactionsOrDefault(); got != 1000 {
		t.Errorf("max transactions got %d, want 1000", got)
	}
	if got := cfg.Highlight.WorkersOrDefault(); got != 4 {
		t.Errorf("workers got %d, want 4", got)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := writeConfig(t, `
[ui]
syntax_theme = "monokai"
tab_width = 8
line_numbers = false
auto_save = true

[history]
max_transactions = 50
max_bytes = 1024

[highlight]
prefetch_margin = 32
workers = 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.UI.SyntaxThemeOrDefault(); got != "monokai" {
		t.Errorf("theme got %q, want %q", got, "monokai")
	}
	if got := cfg.UI.TabWidthOrDefault(); got != 8 {
		t.Errorf("tab width got %d, want 8", got)
	}
	if cfg.UI.LineNumbersOrDefault() {
		t.Error("line numbers should be off")
	}
	if !cfg.UI.AutoSave {
		t.Error("auto save should be on")
	}
	if got := cfg.History.MaxBytesOrDefault(); got != 1024 {
		t.Errorf("max bytes got %d, want 1024", got)
	}
	if got := cfg.Highlight.PrefetchMarginOrDefault(); got != 32 {
		t.Errorf("margin got %d, want 32", got)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
[ui]
tab_width = 99

[highlight]
workers = 999
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"ui.tab_width", "highlight.workers"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := writeConfig(t, "ui = not toml")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SKEIN_THEME", "dracula")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.UI.SyntaxThemeOrDefault(); got != "dracula" {
		t.Errorf("theme got %q, want %q", got, "dracula")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := &Config{}
	cfg.UI.SyntaxTheme = "nord"
	cfg.History.MaxTransactions = 200

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := loaded.UI.SyntaxTheme; got != "nord" {
		t.Errorf("theme got %q, want %q", got, "nord")
	}
	if got := loaded.History.MaxTransactions; got != 200 {
		t.Errorf("max transactions got %d, want 200", got)
	}
}
