package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cc_activity_mon/internal/session"
)

// AppName names the per-user config directory
const AppName = "cc_activity_mon"

// ToolGroup defines a group of event labels with styling
type ToolGroup struct {
	// Name is the display name of this group
	Name string `yaml:"name"`

	// Color is the catppuccin color name (e.g., "red", "yellow", "green", "mauve")
	Color string `yaml:"color"`

	// Bold makes the text bold
	Bold bool `yaml:"bold"`

	// Patterns match event labels: a kind name such as "file_write" or a
	// Bash permission pattern such as "Bash(rm:*)". A single * is a wildcard.
	Patterns []string `yaml:"patterns"`

	// Exclude if true, events matching this group are not displayed
	Exclude bool `yaml:"exclude"`
}

// MonitorConfig tunes the session watcher
type MonitorConfig struct {
	// Extension of transcript files, including the dot
	Extension string `yaml:"extension"`

	// Debounce is how long repeated notifications for one file are absorbed
	Debounce time.Duration `yaml:"debounce"`

	// StopTimeout bounds how long stopping waits for the watcher
	StopTimeout time.Duration `yaml:"stop_timeout"`

	// FromStart replays existing transcript content instead of starting at the end
	FromStart bool `yaml:"from_start"`
}

// LogConfig selects where diagnostics go
type LogConfig struct {
	// File is a log file path; empty means stderr (or nowhere in the TUI)
	File string `yaml:"file"`

	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`

	MaxSizeMB  int `yaml:"max_size_mb"`
	MaxBackups int `yaml:"max_backups"`
	MaxAgeDays int `yaml:"max_age_days"`
}

// Config holds the application configuration
type Config struct {
	// Theme is the color theme to use (mocha, macchiato, frappe, latte)
	Theme string `yaml:"theme"`

	// ToolGroups defines styling groups for events (checked in order, first match wins)
	ToolGroups []ToolGroup `yaml:"tool_groups"`

	Monitor MonitorConfig `yaml:"monitor"`
	Log     LogConfig     `yaml:"log"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Theme: "mocha",
		ToolGroups: []ToolGroup{
			{
				Name:  "dangerous",
				Color: "red",
				Bold:  true,
				Patterns: []string{
					"Bash(rm:*)",
					"Bash(sudo:*)",
					"Bash(chmod:*)",
					"Bash(chown:*)",
					"Bash(dd:*)",
					"Bash(mkfs:*)",
					"Bash(kill:*)",
					"Bash(pkill:*)",
					"Bash(killall:*)",
					"Bash(git:push:*)",
				},
			},
			{
				Name:     "write",
				Color:    "peach",
				Patterns: []string{"file_write"},
			},
			{
				Name:     "edit",
				Color:    "yellow",
				Patterns: []string{"file_edit"},
			},
			{
				Name:     "bash",
				Color:    "mauve",
				Patterns: []string{"Bash(*)", "bash_command"},
			},
			{
				Name:     "conversation",
				Color:    "lavender",
				Patterns: []string{"user_prompt", "assistant_response"},
			},
			{
				Name:     "read-only",
				Color:    "green",
				Patterns: []string{"file_read", "web_fetch"},
			},
			{
				Name:     "unmatched",
				Color:    "overlay1",
				Patterns: []string{"*"},
			},
		},
		Monitor: MonitorConfig{
			Extension:   session.DefaultExtension,
			Debounce:    session.DefaultDebounce,
			StopTimeout: session.DefaultStopTimeout,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads the config from a YAML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) //nolint:gosec // config path from flag or known locations
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if no config file
		}
		return nil, fmt.Errorf("read config %s: %w", cleanPath, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", cleanPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", cleanPath, err)
	}

	return cfg, nil
}

// DefaultPaths lists the config locations in lookup order
func DefaultPaths() []string {
	// Check in order: current dir, ~/.config/cc_activity_mon/, XDG_CONFIG_HOME
	paths := []string{
		"config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", AppName, "config.yaml"),
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, AppName, "config.yaml"))
	}
	return paths
}

// LoadFromDefaultPath attempts to load config from standard locations
func LoadFromDefaultPath() (*Config, error) {
	for _, path := range DefaultPaths() {
		cleanPath := filepath.Clean(path)
		if _, err := os.Stat(cleanPath); err == nil { //nolint:gosec // config path from known locations
			return Load(cleanPath)
		}
	}

	return DefaultConfig(), nil
}

// Validate checks values that would otherwise fail later in the watcher
func (c *Config) Validate() error {
	var errs []error
	if c.Monitor.Extension != "" && !strings.HasPrefix(c.Monitor.Extension, ".") {
		errs = append(errs, fmt.Errorf("monitor.extension %q must start with a dot", c.Monitor.Extension))
	}
	if c.Monitor.Debounce < 0 {
		errs = append(errs, fmt.Errorf("monitor.debounce must be positive, got %s", c.Monitor.Debounce))
	}
	if c.Monitor.StopTimeout < 0 {
		errs = append(errs, fmt.Errorf("monitor.stop_timeout must be positive, got %s", c.Monitor.StopTimeout))
	}
	if c.Log.Level != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	for i, g := range c.ToolGroups {
		if len(g.Patterns) == 0 {
			errs = append(errs, fmt.Errorf("tool_groups[%d] %q has no patterns", i, g.Name))
		}
	}
	return errors.Join(errs...)
}

// MonitorOptions converts the monitor section into watcher options
func (c *Config) MonitorOptions(logger *slog.Logger) session.Options {
	return session.Options{
		Extension:   c.Monitor.Extension,
		Debounce:    c.Monitor.Debounce,
		StopTimeout: c.Monitor.StopTimeout,
		SkipHistory: !c.Monitor.FromStart,
		Logger:      logger,
	}
}

// GetToolGroup returns the first matching tool group for a label, or nil
func (c *Config) GetToolGroup(label string) *ToolGroup {
	for i := range c.ToolGroups {
		group := &c.ToolGroups[i]
		if group.Matches(label) {
			return group
		}
	}
	return nil
}

// GroupFor returns the tool group for an event. Bash events are matched by
// their permission pattern first and fall back to their kind name.
func (c *Config) GroupFor(e session.Event) *ToolGroup {
	if g := c.GetToolGroup(e.Label()); g != nil && !isCatchAll(g, e.Label()) {
		return g
	}
	return c.GetToolGroup(e.Kind.String())
}

// Matches returns true if the label matches this group
func (g *ToolGroup) Matches(label string) bool {
	for _, p := range g.Patterns {
		if matchPattern(p, label) {
			return true
		}
	}
	return false
}

// ShouldExclude returns true if the event should be hidden from display
func (c *Config) ShouldExclude(e session.Event) bool {
	group := c.GroupFor(e)
	return group != nil && group.Exclude
}

// isCatchAll reports whether g matched label only through a bare "*"
func isCatchAll(g *ToolGroup, label string) bool {
	for _, p := range g.Patterns {
		if p != "*" && matchPattern(p, label) {
			return false
		}
	}
	return true
}

// matchPattern checks if a pattern matches (supports a single * wildcard)
func matchPattern(pattern, value string) bool {
	// Exact match
	if pattern == value {
		return true
	}

	// e.g., "Bash(rm:*)" matches "Bash(rm:*)" and "Bash(rm:rf)"
	if prefix, suffix, ok := strings.Cut(pattern, "*"); ok {
		return len(value) >= len(prefix)+len(suffix) &&
			strings.HasPrefix(value, prefix) && strings.HasSuffix(value, suffix)
	}

	return false
}
