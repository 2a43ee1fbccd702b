// Package config provides configuration types and defaults for keydeck.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/keydeck/keydeck/internal/log"
)

// GameConfig describes a game the editor knows how to target. The name is
// the stable identifier stored on profiles; the label is what the UI shows.
type GameConfig struct {
	Name         string   `mapstructure:"name"`
	Label        string   `mapstructure:"label"`
	Environments []string `mapstructure:"environments"` // selectable environments, default always available
}

// Config holds all configuration options for keydeck.
type Config struct {
	StorePath  string        `mapstructure:"store_path"`  // profile database location
	AutoReload bool          `mapstructure:"auto_reload"` // follow out-of-process database writes
	DebounceMs int           `mapstructure:"debounce_ms"` // quiet window before reacting to a change
	Games      []GameConfig  `mapstructure:"games"`
	Log        LogConfig     `mapstructure:"log"`
	Tracing    TracingConfig `mapstructure:"tracing"`

	// Flags toggles in-development behavior. See internal/flags for the
	// known names.
	Flags map[string]bool `mapstructure:"flags"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is the minimum severity written: debug, info, warn, error.
	Level string `mapstructure:"level"`

	// File is the log output path. Empty derives a path next to the
	// config file.
	File string `mapstructure:"file"`
}

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active. Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for the "file" exporter.
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for the "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0). Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultStorePath returns the default profile database location,
// ~/.config/keydeck/keydeck.db, or empty string if the home dir is
// unavailable.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "keydeck", "keydeck.db")
}

// DefaultTracesFilePath returns the default path for trace file export.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "keydeck", "traces", "traces.jsonl")
}

// DefaultGames returns the built-in game presets.
func DefaultGames() []GameConfig {
	return []GameConfig{
		{
			Name:         "quake3",
			Label:        "Quake III Arena",
			Environments: []string{"duel", "ctf"},
		},
		{
			Name:         "cs2",
			Label:        "Counter-Strike 2",
			Environments: []string{"competitive", "deathmatch"},
		},
	}
}

// GetGames returns the configured games, or DefaultGames() if none are set.
func (c Config) GetGames() []GameConfig {
	if len(c.Games) > 0 {
		return c.Games
	}
	return DefaultGames()
}

// FindGame looks up a game preset by name.
func (c Config) FindGame(name string) (GameConfig, bool) {
	for _, g := range c.GetGames() {
		if g.Name == name {
			return g, true
		}
	}
	return GameConfig{}, false
}

// ValidateGames checks game configuration for errors. Nil when games are
// valid or empty (defaults apply).
func ValidateGames(games []GameConfig) error {
	seen := make(map[string]struct{}, len(games))
	for i, g := range games {
		if g.Name == "" {
			return fmt.Errorf("game %d: name is required", i)
		}
		if _, dup := seen[g.Name]; dup {
			return fmt.Errorf("game %d: duplicate name %q", i, g.Name)
		}
		seen[g.Name] = struct{}{}
	}
	return nil
}

// ValidateLog checks logging configuration for errors.
func ValidateLog(lc LogConfig) error {
	switch lc.Level {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("log.level must be \"debug\", \"info\", \"warn\", or \"error\", got %q", lc.Level)
	}
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(tc TracingConfig) error {
	if tc.SampleRate < 0.0 || tc.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}

	if tc.Exporter != "" {
		switch tc.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tc.Exporter)
		}
	}

	if tc.Enabled {
		if tc.Exporter == "file" && tc.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tc.Exporter == "otlp" && tc.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if c.DebounceMs < 0 {
		return fmt.Errorf("debounce_ms must not be negative, got %d", c.DebounceMs)
	}
	if err := ValidateGames(c.Games); err != nil {
		return err
	}
	if err := ValidateLog(c.Log); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		StorePath:  DefaultStorePath(),
		AutoReload: true,
		DebounceMs: 1000,
		Games:      DefaultGames(),
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// DefaultConfigTemplate returns the default config as a YAML string with
// comments.
func DefaultConfigTemplate() string {
	return `# Keydeck Configuration

# Path to the profile database (default: ~/.config/keydeck/keydeck.db)
# store_path: /path/to/keydeck.db

# Reload when another process writes the database
auto_reload: true

# Quiet window in milliseconds before reacting to an external change
debounce_ms: 1000

# Game presets - each game a profile can target
games:
  - name: quake3
    label: "Quake III Arena"
    environments: [duel, ctf]

  - name: cs2
    label: "Counter-Strike 2"
    environments: [competitive, deathmatch]

# Game options:
#   name: Stable identifier stored on profiles (required)
#   label: Display name
#   environments: Selectable environments besides "default"

# Logging
log:
  level: info   # debug, info, warn, error
  # file: ~/.config/keydeck/keydeck.log

# Tracing
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp
#   file_path: ~/.config/keydeck/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint
#   sample_rate: 1.0               # Sampling rate 0.0-1.0
`
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments. Creates the parent directory if needed.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
