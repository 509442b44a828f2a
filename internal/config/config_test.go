package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cc_activity_mon/internal/session"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Theme != "mocha" {
		t.Errorf("Theme = %q, want mocha", cfg.Theme)
	}
	if len(cfg.ToolGroups) == 0 {
		t.Fatal("DefaultConfig should have tool groups")
	}
	if cfg.Monitor.Debounce != 500*time.Millisecond || cfg.Monitor.StopTimeout != 2*time.Second {
		t.Errorf("Monitor = %+v", cfg.Monitor)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}

	// Every kind has a non-catch-all home.
	for _, k := range session.AllKinds() {
		g := cfg.GetToolGroup(k.String())
		if g == nil || g.Name == "unmatched" {
			t.Errorf("kind %s falls through to %v", k, g)
		}
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern  string
		value    string
		expected bool
	}{
		{"file_read", "file_read", true},
		{"file_read", "file_write", false},
		{"Bash(*)", "Bash(ls:*)", true},
		{"Bash(rm:*)", "Bash(rm:*)", true},
		{"Bash(rm:*)", "Bash(rmdir:*)", false},
		{"Bash(git:push:*)", "Bash(git:push:*)", true},
		{"*", "anything", true},
		{"a*a", "a", false},
		{"mcp__*", "mcp__server", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.value, func(t *testing.T) {
			if got := matchPattern(tt.pattern, tt.value); got != tt.expected {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.value, got, tt.expected)
			}
		})
	}
}

func TestGroupFor(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		event    session.Event
		expected string
	}{
		{"dangerous bash", session.Event{Kind: session.BashCommand, Payload: map[string]any{"pattern": "Bash(sudo:rm:*)"}}, "dangerous"},
		{"plain bash", session.Event{Kind: session.BashCommand, Payload: map[string]any{"pattern": "Bash(ls:*)"}}, "bash"},
		{"bash output", session.Event{Kind: session.BashCommand}, "bash"},
		{"write", session.Event{Kind: session.FileWrite}, "write"},
		{"read", session.Event{Kind: session.FileRead}, "read-only"},
		{"prompt", session.Event{Kind: session.UserPrompt}, "conversation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := cfg.GroupFor(tt.event)
			if g == nil || g.Name != tt.expected {
				t.Errorf("GroupFor() = %v, want %q", g, tt.expected)
			}
		})
	}
}

func TestGroupForFallsBackToKind(t *testing.T) {
	cfg := &Config{ToolGroups: []ToolGroup{
		{Name: "shell", Patterns: []string{"bash_command"}},
		{Name: "rest", Patterns: []string{"*"}},
	}}
	e := session.Event{Kind: session.BashCommand, Payload: map[string]any{"pattern": "Bash(ls:*)"}}
	if g := cfg.GroupFor(e); g == nil || g.Name != "shell" {
		t.Errorf("GroupFor() = %v, want shell", g)
	}
}

func TestShouldExclude(t *testing.T) {
	cfg := &Config{ToolGroups: []ToolGroup{
		{Name: "hidden", Patterns: []string{"assistant_response"}, Exclude: true},
		{Name: "rest", Patterns: []string{"*"}},
	}}

	if !cfg.ShouldExclude(session.Event{Kind: session.AssistantResponse}) {
		t.Error("assistant_response should be excluded")
	}
	if cfg.ShouldExclude(session.Event{Kind: session.UserPrompt}) {
		t.Error("user_prompt should not be excluded")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(dir, "nope.yaml"))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Theme != "mocha" {
			t.Errorf("Theme = %q, want mocha", cfg.Theme)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		path := filepath.Join(dir, "config.yaml")
		data := `theme: latte
monitor:
  debounce: 250ms
  from_start: true
log:
  file: /tmp/mon.log
  level: debug
`
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Theme != "latte" {
			t.Errorf("Theme = %q, want latte", cfg.Theme)
		}
		if cfg.Monitor.Debounce != 250*time.Millisecond {
			t.Errorf("Debounce = %v, want 250ms", cfg.Monitor.Debounce)
		}
		if cfg.Monitor.StopTimeout != 2*time.Second {
			t.Errorf("StopTimeout = %v, want default 2s", cfg.Monitor.StopTimeout)
		}
		if cfg.Log.File != "/tmp/mon.log" || cfg.Log.Level != "debug" || cfg.Log.MaxBackups != 3 {
			t.Errorf("Log = %+v", cfg.Log)
		}
		if len(cfg.ToolGroups) == 0 {
			t.Error("tool groups lost when not set in file")
		}

		opts := cfg.MonitorOptions(nil)
		if opts.SkipHistory || opts.Debounce != 250*time.Millisecond || opts.Extension != ".jsonl" {
			t.Errorf("MonitorOptions() = %+v", opts)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte("theme: [unclosed"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("Load() should fail on invalid yaml")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		data := "monitor:\n  extension: jsonl\n  debounce: -1s\nlog:\n  level: loud\n"
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		if err == nil {
			t.Fatal("Load() should reject invalid values")
		}
		for _, want := range []string{"extension", "debounce", "log.level"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q does not mention %s", err, want)
			}
		}
	})
}

func TestLoadFromDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Chdir(t.TempDir())

	cfg, err := LoadFromDefaultPath()
	if err != nil {
		t.Fatalf("LoadFromDefaultPath() error = %v", err)
	}
	if cfg.Theme != "mocha" {
		t.Errorf("Theme = %q, want default mocha", cfg.Theme)
	}

	dir := filepath.Join(home, ".config", AppName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("theme: frappe\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err = LoadFromDefaultPath()
	if err != nil {
		t.Fatalf("LoadFromDefaultPath() error = %v", err)
	}
	if cfg.Theme != "frappe" {
		t.Errorf("Theme = %q, want frappe", cfg.Theme)
	}
}
