// Package config loads and validates the rimay configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"

	"go.aimuz.me/rimay/hotkey"
	"go.aimuz.me/rimay/internal/types"
)

const (
	appName        = "rimay"
	configFileName = "config.toml"

	// EnvAPIKey overrides the configured API key when set.
	EnvAPIKey = "GROQ_API_KEY"

	// MaxPromptRunes bounds the prompt sent with each transcription.
	MaxPromptRunes = 896

	DefaultBaseURL = "https://api.groq.com/openai/v1/"
	DefaultModel   = "whisper-large-v3-turbo"
	DefaultHotkey  = "Super+;"
)

// Config represents the application configuration.
type Config struct {
	GroqKey        string  `toml:"groq_key"`
	BaseURL        string  `toml:"base_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	HotkeyBackend  string  `toml:"hotkey_backend"`
	LogLevel       string  `toml:"log_level"`
	NotifyErrors   bool    `toml:"notify_errors"`
	Paste          Paste   `toml:"paste"`
	History        History `toml:"history"`
	Keys           []Key   `toml:"keys"`

	path string
}

// Paste configures text injection.
type Paste struct {
	RestoreClipboard bool `toml:"restore_clipboard"`
	SettleMS         int  `toml:"settle_ms"`
}

// History configures the transcript store.
type History struct {
	Enabled        bool `toml:"enabled"`
	RetentionDays  int  `toml:"retention_days"`
	DetectLanguage bool `toml:"detect_language"`
}

// Key binds a hotkey descriptor to transcription options.
type Key struct {
	Hotkey   string `toml:"hotkey"`
	Model    string `toml:"model"`
	Language string `toml:"language,omitempty"`
	Prompt   string `toml:"prompt,omitempty"`
}

// Default returns the configuration written on first start.
func Default() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		TimeoutSeconds: 30,
		HotkeyBackend:  hotkey.BackendRegister,
		LogLevel:       "info",
		NotifyErrors:   true,
		Paste: Paste{
			RestoreClipboard: true,
			SettleMS:         80,
		},
		History: History{
			Enabled:        true,
			RetentionDays:  30,
			DetectLanguage: true,
		},
		Keys: []Key{{
			Hotkey:   DefaultHotkey,
			Model:    DefaultModel,
			Language: "en",
		}},
	}
}

// DefaultPath returns the config file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

// Dir returns the directory holding the config file. Other state, such as
// the history database, lives next to it.
func (c *Config) Dir() string {
	return filepath.Dir(c.path)
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Load reads the configuration at path, or at DefaultPath when path is
// empty. A missing file is created with the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("get config path: %w", err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		cfg := Default()
		cfg.path = path
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		cfg.applyEnv()
		return cfg, nil
	}

	cfg := Default()
	cfg.Keys = nil
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("decode config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	cfg.path = path
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv(EnvAPIKey); key != "" {
		c.GroqKey = key
	}
}

// Save persists the configuration to its path.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("save config: no path")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// The file may hold an API key.
	if err := os.WriteFile(c.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Timeout returns the per-request transcription timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SettleDelay returns how long the paster waits around the paste keystroke.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Paste.SettleMS) * time.Millisecond
}

// Retention returns how long history entries are kept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.History.RetentionDays) * 24 * time.Hour
}

// Validate checks the settings that do not depend on the key list.
func (c *Config) Validate() error {
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative")
	}
	if c.Paste.SettleMS < 0 {
		return fmt.Errorf("paste.settle_ms must not be negative")
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days must not be negative")
	}
	switch c.HotkeyBackend {
	case "", hotkey.BackendHook, hotkey.BackendRegister:
	default:
		return fmt.Errorf("unknown hotkey_backend %q", c.HotkeyBackend)
	}
	_, err := c.Bindings()
	return err
}

// Bindings parses and validates every [[keys]] entry. Two entries that
// resolve to the same hotkey are rejected, and the error names every
// duplicate with its number of occurrences.
func (c *Config) Bindings() ([]hotkey.Binding, error) {
	if len(c.Keys) == 0 {
		return nil, errors.New("no hotkeys configured")
	}

	bindings := make([]hotkey.Binding, 0, len(c.Keys))
	counts := make(map[uint32]int, len(c.Keys))
	names := make(map[uint32]string, len(c.Keys))
	for i, k := range c.Keys {
		b, err := k.binding()
		if err != nil {
			return nil, fmt.Errorf("keys[%d]: %w", i, err)
		}
		id := b.Key.ID()
		counts[id]++
		names[id] = b.Key.String()
		bindings = append(bindings, b)
	}

	var dups []string
	for id, n := range counts {
		if n > 1 {
			dups = append(dups, fmt.Sprintf("%s (%d times)", names[id], n))
		}
	}
	if len(dups) > 0 {
		slices.Sort(dups)
		return nil, fmt.Errorf("duplicate hotkeys: %s", strings.Join(dups, ", "))
	}
	return bindings, nil
}

func (k Key) binding() (hotkey.Binding, error) {
	hk, err := hotkey.Parse(k.Hotkey)
	if err != nil {
		return hotkey.Binding{}, err
	}
	if strings.TrimSpace(k.Model) == "" {
		return hotkey.Binding{}, fmt.Errorf("hotkey %s: model required", hk)
	}
	if k.Language != "" {
		if err := validateLanguage(k.Language); err != nil {
			return hotkey.Binding{}, fmt.Errorf("hotkey %s: %w", hk, err)
		}
	}
	if n := utf8.RuneCountInString(k.Prompt); n > MaxPromptRunes {
		return hotkey.Binding{}, fmt.Errorf("hotkey %s: prompt has %d characters, limit is %d", hk, n, MaxPromptRunes)
	}

	return hotkey.Binding{
		Key: hk,
		Options: types.TranscribeOptions{
			Model:    k.Model,
			Language: k.Language,
			Prompt:   k.Prompt,
		},
	}, nil
}

// validateLanguage accepts two-letter ISO-639-1 codes only.
func validateLanguage(code string) error {
	if len(code) != 2 || strings.ToLower(code) != code {
		return fmt.Errorf("language %q is not a lowercase ISO-639-1 code", code)
	}
	base, err := language.ParseBase(code)
	if err != nil {
		return fmt.Errorf("language %q: %w", code, err)
	}
	if base.String() != code {
		return fmt.Errorf("language %q is not an ISO-639-1 code", code)
	}
	return nil
}
