package projects

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEncodePath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/home/user/proj", "-home-user-proj"},
		{"/home/user/proj/", "-home-user-proj"},
		{"/Users/josh/code/my.app", "-Users-josh-code-my-app"},
		{"/srv/data_lake/x-y", "-srv-data-lake-x-y"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := EncodePath(tt.path); got != tt.expected {
				t.Errorf("EncodePath(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestSessionDir(t *testing.T) {
	got, err := SessionDir("/root/.claude/projects", "/work/app")
	if err != nil {
		t.Fatalf("SessionDir() error = %v", err)
	}
	if want := filepath.Join("/root/.claude/projects", "-work-app"); got != want {
		t.Errorf("SessionDir() = %q, want %q", got, want)
	}
}

func TestDefaultRoot(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	got, err := DefaultRoot()
	if err != nil {
		t.Fatalf("DefaultRoot() error = %v", err)
	}
	if got != "/home/tester/.claude/projects" {
		t.Errorf("DefaultRoot() = %q", got)
	}
}

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	touch(t, filepath.Join(root, "-a", "s1.jsonl"), t0)
	touch(t, filepath.Join(root, "-a", "s2.jsonl"), t0.Add(time.Hour))
	touch(t, filepath.Join(root, "-b", "s3.jsonl"), t0.Add(2*time.Hour))
	touch(t, filepath.Join(root, "-c", "notes.txt"), t0.Add(3*time.Hour))
	touch(t, filepath.Join(root, "stray.jsonl"), t0)

	got, err := List(root)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() returned %d projects, want 2: %+v", len(got), got)
	}
	if got[0].Name != "-b" || got[1].Name != "-a" {
		t.Errorf("order = %s, %s; want -b, -a", got[0].Name, got[1].Name)
	}
	if got[1].Sessions != 2 || !got[1].LastModified.Equal(t0.Add(time.Hour)) {
		t.Errorf("project -a = %+v", got[1])
	}
}

func TestListMissingRoot(t *testing.T) {
	got, err := List(filepath.Join(t.TempDir(), "none"))
	if err != nil || len(got) != 0 {
		t.Errorf("List() = %v, %v; want empty, nil", got, err)
	}
}
