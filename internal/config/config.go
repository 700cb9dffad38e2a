// Package config handles editor configuration loading from TOML files and
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	UI        UIConfig        `toml:"ui"`
	History   HistoryConfig   `toml:"history"`
	Highlight HighlightConfig `toml:"highlight"`
}

// UIConfig holds user-interface settings.
type UIConfig struct {
	// SyntaxTheme is the Chroma syntax highlighting theme used across the
	// TUI. UI chrome colors are derived from it via highlight.ThemePalette.
	// Defaults to "vulcan" if unset.
	SyntaxTheme string `toml:"syntax_theme"`
	// TabWidth is the render width of a tab character. Defaults to 4.
	TabWidth int `toml:"tab_width"`
	// LineNumbers toggles the gutter. Defaults to on.
	LineNumbers *bool `toml:"line_numbers"`
	// AutoSave writes named documents back to disk when leaving their tab
	// and on quit. Defaults to off.
	AutoSave bool `toml:"auto_save"`
}

// SyntaxThemeOrDefault returns the configured syntax theme or "vulcan" if unset.
func (u UIConfig) SyntaxThemeOrDefault() string {
	if u.SyntaxTheme == "" {
		return "vulcan"
	}
	return u.SyntaxTheme
}

// TabWidthOrDefault returns the configured tab width or 4 if unset.
func (u UIConfig) TabWidthOrDefault() int {
	if u.TabWidth <= 0 {
		return 4
	}
	return u.TabWidth
}

// LineNumbersOrDefault returns the gutter toggle, defaulting to on.
func (u UIConfig) LineNumbersOrDefault() bool {
	if u.LineNumbers == nil {
		return true
	}
	return *u.LineNumbers
}

// HistoryConfig bounds the undo stack.
type HistoryConfig struct {
	MaxTransactions int `toml:"max_transactions"`
	MaxBytes        int `toml:"max_bytes"`
}

// MaxTransactionsOrDefault returns the transaction cap or 1000 if unset.
func (h HistoryConfig) MaxTransactionsOrDefault() int {
	if h.MaxTransactions <= 0 {
		return 1000
	}
	return h.MaxTransactions
}

// MaxBytesOrDefault returns the byte budget or 4 MiB if unset.
func (h HistoryConfig) MaxBytesOrDefault() int {
	if h.MaxBytes <= 0 {
		return 4 << 20
	}
	return h.MaxBytes
}

// HighlightConfig tunes the highlight coordinator.
type HighlightConfig struct {
	// PrefetchMargin is the number of lines scanned above and below the
	// viewport. Defaults to 16.
	PrefetchMargin int `toml:"prefetch_margin"`
	// Workers bounds the scan pool. Defaults to 4.
	Workers int `toml:"workers"`
}

// PrefetchMarginOrDefault returns the margin or 16 if unset.
func (h HighlightConfig) PrefetchMarginOrDefault() int {
	if h.PrefetchMargin <= 0 {
		return 16
	}
	return h.PrefetchMargin
}

// WorkersOrDefault returns the worker bound or 4 if unset.
func (h HighlightConfig) WorkersOrDefault() int {
	if h.Workers <= 0 {
		return 4
	}
	return h.Workers
}

// Load reads configuration from a TOML file and applies environment
// variable overrides. A missing file is not an error: the editor runs on
// defaults until the user writes a config.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	var errs []error

	if c.UI.TabWidth < 0 || c.UI.TabWidth > 16 {
		errs = append(errs, fmt.Errorf("ui.tab_width=%d must be between 0 and 16", c.UI.TabWidth))
	}
	if c.History.MaxTransactions < 0 {
		errs = append(errs, fmt.Errorf("history.max_transactions=%d must not be negative", c.History.MaxTransactions))
	}
	if c.History.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("history.max_bytes=%d must not be negative", c.History.MaxBytes))
	}
	if c.Highlight.PrefetchMargin < 0 {
		errs = append(errs, fmt.Errorf("highlight.prefetch_margin=%d must not be negative", c.Highlight.PrefetchMargin))
	}
	if c.Highlight.Workers < 0 || c.Highlight.Workers > 64 {
		errs = append(errs, fmt.Errorf("highlight.workers=%d must be between 0 and 64", c.Highlight.Workers))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Save writes the configuration back out as TOML.
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	for _, setter := range []struct {
		env   string
		apply func(string)
	}{
		{"SKEIN_THEME", func(v string) {
			if v != "" {
				cfg.UI.SyntaxTheme = v
			}
		}},
	} {
		setter.apply(os.Getenv(setter.env))
	}
}

// DataDir returns the path to the Skein data directory (~/.config/skein).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "skein"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	return dir, nil
}
