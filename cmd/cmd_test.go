package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cc_activity_mon/internal/config"
	"cc_activity_mon/internal/devagent"
	"cc_activity_mon/internal/projects"
	"cc_activity_mon/internal/session"
)

// syncBuffer is a bytes.Buffer safe to read while the watcher writes
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// resetFlags restores package flag state after a test
func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		flagConfig, flagProject, flagLogFile, flagLogLevel = "", "", "", ""
		flagDevagent, flagFromStart = false, false
		flagKinds, flagListen = nil, ""
		discover = devagent.Discover
	})
}

func TestResolveDir(t *testing.T) {
	resetFlags(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	t.Run("explicit argument", func(t *testing.T) {
		dir, label, err := resolveDir(context.Background(), []string{"/var/sessions/abc"})
		if err != nil {
			t.Fatal(err)
		}
		if dir != "/var/sessions/abc" || label != "abc" {
			t.Errorf("resolveDir() = %q, %q", dir, label)
		}
	})

	t.Run("project flag", func(t *testing.T) {
		flagProject = "/work/my.app"
		defer func() { flagProject = "" }()

		dir, label, err := resolveDir(context.Background(), nil)
		if err != nil {
			t.Fatal(err)
		}
		want := filepath.Join(home, ".claude", "projects", "-work-my-app")
		if dir != want || label != "my.app" {
			t.Errorf("resolveDir() = %q, %q; want %q, my.app", dir, label, want)
		}
	})

	t.Run("devagent", func(t *testing.T) {
		root := t.TempDir()
		sessionDir := filepath.Join(root, "-workspaces-app")
		if err := os.MkdirAll(sessionDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(sessionDir, "s.jsonl"), []byte("{}\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		flagProject = "/work/app"
		flagDevagent = true
		defer func() { flagProject, flagDevagent = "", false }()
		discover = func(context.Context) ([]devagent.Environment, error) {
			return []devagent.Environment{{ContainerName: "box", ProjectPath: "/work/app", ProjectsDir: root, State: "running"}}, nil
		}

		dir, label, err := resolveDir(context.Background(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if dir != sessionDir || label != "app @ box" {
			t.Errorf("resolveDir() = %q, %q", dir, label)
		}

		flagProject = "/work/other"
		if _, _, err := resolveDir(context.Background(), nil); !errors.Is(err, devagent.ErrNoEnvironment) {
			t.Errorf("resolveDir() error = %v, want ErrNoEnvironment", err)
		}
	})
}

func TestLoadConfigOverrides(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("theme: latte\nlog:\n  level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	flagConfig = path
	flagLogLevel = "debug"
	flagFromStart = true

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Theme != "latte" || cfg.Log.Level != "debug" || !cfg.Monitor.FromStart {
		t.Errorf("cfg = theme %q, level %q, fromStart %v", cfg.Theme, cfg.Log.Level, cfg.Monitor.FromStart)
	}

	flagLogLevel = "noisy"
	if _, err := loadConfig(); err == nil {
		t.Error("loadConfig() should reject an invalid --log-level")
	}
}

func TestParseKinds(t *testing.T) {
	all, err := parseKinds(nil)
	if err != nil || len(all) != len(session.AllKinds()) {
		t.Errorf("parseKinds(nil) = %v, %v", all, err)
	}

	kinds, err := parseKinds([]string{"bash_command", "file-write", "bash_command"})
	if err != nil {
		t.Fatal(err)
	}
	if len(kinds) != 2 || kinds[0] != session.BashCommand || kinds[1] != session.FileWrite {
		t.Errorf("parseKinds() = %v", kinds)
	}

	if _, err := parseKinds([]string{"nope"}); !errors.Is(err, session.ErrUnknownKind) {
		t.Errorf("parseKinds(nope) error = %v", err)
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfig()
	cfg.ToolGroups = append([]config.ToolGroup{{Name: "hide", Patterns: []string{"assistant_response"}, Exclude: true}}, cfg.ToolGroups...)
	p := &printer{w: &buf, cfg: cfg}

	ts := time.Date(2024, 1, 1, 13, 4, 5, 0, time.Local)
	p.print(session.Event{Kind: session.BashCommand, Timestamp: ts, SessionID: "0123456789", Summary: "Running: ls\n-la"})
	p.print(session.Event{Kind: session.AssistantResponse, Timestamp: ts, SessionID: "x", Summary: "Claude: hidden"})

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("output = %q, want exactly one line", out)
	}
	for _, want := range []string{"13:04:05", "bash_command", "01234567 ", "Running: ls -la"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestPrintDirs(t *testing.T) {
	var buf bytes.Buffer
	local := []projects.Project{{Name: "-work-app", Dir: "/h/.claude/projects/-work-app", Sessions: 3, LastModified: time.Now().Add(-2 * time.Hour)}}

	if err := printDirs(&buf, local, nil); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"SOURCE", "local", "3", "2 hours ago", "/h/.claude/projects/-work-app"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWatchCommandEndToEnd(t *testing.T) {
	resetFlags(t)
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	var out syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rootCmd.SetArgs([]string{"watch", "--kinds", "bash_command", dir})
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil); rootCmd.SetErr(nil) })

	done := make(chan error, 1)
	go func() { done <- rootCmd.ExecuteContext(ctx) }()

	line := `{"type":"assistant","sessionId":"s1","timestamp":"2024-01-01T00:00:00Z","message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"ls -la"}}]}}` + "\n"
	path := filepath.Join(dir, "s1.jsonl")

	// Keep appending until the watcher is up and reports the command
	deadline := time.Now().Add(5 * time.Second)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = f.WriteString(line)
		f.Close()

		time.Sleep(600 * time.Millisecond)
		if strings.Contains(out.String(), "Running: ls -la") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no output before deadline: %q", out.String())
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
