package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Highlight defines how a class of search hits or roles is styled
type Highlight struct {
	// Name is the display name of this group
	Name string `yaml:"name" toml:"name"`

	// Color is the catppuccin color name (e.g., "red", "yellow", "green", "mauve")
	Color string `yaml:"color" toml:"color"`

	// Bold makes the text bold
	Bold bool `yaml:"bold" toml:"bold"`

	// Patterns is a list of match types or roles in this group (supports wildcards)
	Patterns []string `yaml:"patterns" toml:"patterns"`
}

// Duration wraps time.Duration so it can be written as "5s" in YAML and TOML
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string such as "5s" or "500ms"
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// MarshalYAML renders the duration as a string
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler (used by TOML)
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	// ListenAddr is the address the API binds to
	ListenAddr string `yaml:"listen_addr" toml:"listen_addr"`

	// AllowOrigin is sent as Access-Control-Allow-Origin
	AllowOrigin string `yaml:"allow_origin" toml:"allow_origin"`
}

// Limits holds default result limits for queries without an explicit limit
type Limits struct {
	Sessions int `yaml:"sessions" toml:"sessions"`
	History  int `yaml:"history" toml:"history"`
	Search   int `yaml:"search" toml:"search"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	Dir    string `yaml:"dir" toml:"dir"`
	Stderr bool   `yaml:"stderr" toml:"stderr"`
}

// Config holds the application configuration
type Config struct {
	// ClaudeDir is the root of the session logs (default ~/.claude)
	ClaudeDir string `yaml:"claude_dir" toml:"claude_dir"`

	// ProjectsDir overrides <claude_dir>/projects
	ProjectsDir string `yaml:"projects_dir" toml:"projects_dir"`

	// HistoryFile overrides <claude_dir>/history.jsonl
	HistoryFile string `yaml:"history_file" toml:"history_file"`

	// CacheTTL is how long derived results stay fresh
	CacheTTL Duration `yaml:"cache_ttl" toml:"cache_ttl"`

	// Watch enables filesystem change notifications
	Watch bool `yaml:"watch" toml:"watch"`

	// Theme is the color theme to use (mocha, macchiato, frappe, latte)
	Theme string `yaml:"theme" toml:"theme"`

	// Highlights defines styling groups for match types (checked in order, first match wins)
	Highlights []Highlight `yaml:"highlights" toml:"highlights"`

	Server ServerConfig `yaml:"server" toml:"server"`
	Limits Limits       `yaml:"limits" toml:"limits"`
	Log    LogConfig    `yaml:"log" toml:"log"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ClaudeDir: filepath.Join("~", ".claude"),
		CacheTTL:  Duration{5 * time.Second},
		Watch:     true,
		Theme:     "mocha",
		Server: ServerConfig{
			ListenAddr:  "127.0.0.1:3001",
			AllowOrigin: "*",
		},
		Limits: Limits{
			Sessions: 50,
			History:  100,
			Search:   20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Highlights: []Highlight{
			{
				Name:     "user",
				Color:    "blue",
				Bold:     true,
				Patterns: []string{"user"},
			},
			{
				Name:     "assistant",
				Color:    "mauve",
				Patterns: []string{"assistant"},
			},
			{
				Name:     "system",
				Color:    "peach",
				Patterns: []string{"system", "hook*"},
			},
			{
				Name:     "command",
				Color:    "green",
				Patterns: []string{"command"},
			},
			{
				Name:     "other",
				Color:    "overlay1",
				Patterns: []string{"*"},
			},
		},
	}
}

// Load reads the config from a YAML or TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) //nolint:gosec // config path from known locations
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if no config file
		}
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(cleanPath), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", cleanPath, err)
		}
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", cleanPath, err)
	}

	return cfg, nil
}

// LoadFromDefaultPath attempts to load config from standard locations
func LoadFromDefaultPath() (*Config, error) {
	// Check in order: current dir, ~/.config/cc_session_mgr/, XDG_CONFIG_HOME
	var dirs []string
	dirs = append(dirs, ".")
	dirs = append(dirs, filepath.Join(os.Getenv("HOME"), ".config", "cc_session_mgr"))
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "cc_session_mgr"))
	}

	for _, dir := range dirs {
		for _, name := range []string{"config.yaml", "config.toml"} {
			cleanPath := filepath.Clean(filepath.Join(dir, name))
			if _, err := os.Stat(cleanPath); err == nil { //nolint:gosec // config path from known locations
				return Load(cleanPath)
			}
		}
	}

	return DefaultConfig(), nil
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, path[1:])
}

// ClaudePath returns the expanded Claude data directory
func (c *Config) ClaudePath() string {
	return ExpandHome(c.ClaudeDir)
}

// ProjectsPath returns the directory holding one subdirectory per project
func (c *Config) ProjectsPath() string {
	if c.ProjectsDir != "" {
		return ExpandHome(c.ProjectsDir)
	}
	return filepath.Join(c.ClaudePath(), "projects")
}

// HistoryPath returns the command history log path
func (c *Config) HistoryPath() string {
	if c.HistoryFile != "" {
		return ExpandHome(c.HistoryFile)
	}
	return filepath.Join(c.ClaudePath(), "history.jsonl")
}

// GetHighlight returns the first matching highlight group for a match type, or nil
func (c *Config) GetHighlight(kind string) *Highlight {
	for i := range c.Highlights {
		group := &c.Highlights[i]
		if group.Matches(kind) {
			return group
		}
	}
	return nil
}

// Matches returns true if the kind matches this group
func (g *Highlight) Matches(kind string) bool {
	for _, p := range g.Patterns {
		if matchPattern(p, kind) {
			return true
		}
	}
	return false
}

// matchPattern checks if a pattern matches (supports * wildcards)
func matchPattern(pattern, value string) bool {
	// Exact match
	if pattern == value {
		return true
	}

	// Wildcard match - supports single * anywhere in pattern
	// e.g., "hook*" matches "hook_progress" and "hook"
	if strings.Contains(pattern, "*") {
		parts := strings.SplitN(pattern, "*", 2)
		if len(parts) == 2 {
			prefix := parts[0]
			suffix := parts[1]
			return strings.HasPrefix(value, prefix) && strings.HasSuffix(value, suffix)
		}
	}

	return false
}

// global config instance
var globalConfig *Config

// Global returns the global config instance, loading it if necessary
func Global() *Config {
	if globalConfig == nil {
		cfg, err := LoadFromDefaultPath()
		if err != nil {
			cfg = DefaultConfig()
		}
		globalConfig = cfg
	}
	return globalConfig
}

// SetGlobal sets the global config instance (useful for testing)
func SetGlobal(cfg *Config) {
	globalConfig = cfg
}
