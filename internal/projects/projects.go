// Package projects locates Claude session directories on disk.
package projects

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cc_activity_mon/internal/session"
)

// ErrNoHome is returned when the user's home directory cannot be determined
var ErrNoHome = errors.New("cannot determine home directory")

// Project is one directory under a projects root
type Project struct {
	Name         string    // encoded directory name
	Dir          string    // absolute path
	Sessions     int       // number of transcript files
	LastModified time.Time // newest transcript mtime
}

// EncodePath converts a project path to the directory name Claude uses for
// it: every character other than a letter, digit or dash becomes a dash, so
// /home/user/my.proj is stored as -home-user-my-proj.
func EncodePath(path string) string {
	clean := filepath.ToSlash(filepath.Clean(path))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '-'
	}, clean)
}

// DefaultRoot returns ~/.claude/projects
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", fmt.Errorf("%w: %v", ErrNoHome, err)
	}
	return filepath.Join(home, ".claude", "projects"), nil
}

// SessionDir returns the session directory for a project path under root
func SessionDir(root, project string) (string, error) {
	abs, err := filepath.Abs(project)
	if err != nil {
		return "", fmt.Errorf("resolve project %s: %w", project, err)
	}
	return filepath.Join(root, EncodePath(abs)), nil
}

// List returns the project directories under root that hold at least one
// transcript, most recently modified first. A missing root yields no
// projects and no error.
func List(root string) ([]Project, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read projects dir: %w", err)
	}

	var out []Project
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		p, ok := scan(dir)
		if !ok {
			continue
		}
		p.Name = entry.Name()
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].Name < out[j].Name
		}
		return out[i].LastModified.After(out[j].LastModified)
	})
	return out, nil
}

// scan counts transcripts in dir and finds the newest one
func scan(dir string) (Project, bool) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return Project{}, false
	}

	p := Project{Dir: dir}
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != session.DefaultExtension {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		p.Sessions++
		if info.ModTime().After(p.LastModified) {
			p.LastModified = info.ModTime()
		}
	}
	return p, p.Sessions > 0
}
