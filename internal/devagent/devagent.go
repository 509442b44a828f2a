// Package devagent finds Claude session directories inside devagent
// containers by reading the mounts reported by `devagent list`.
package devagent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"cc_activity_mon/internal/projects"
)

// claudeMountPoint is where devcontainers mount the agent's config directory
const claudeMountPoint = "/home/vscode/.claude"

// DefaultTimeout bounds a devagent list call
const DefaultTimeout = 10 * time.Second

var (
	// ErrNoEnvironment is returned when no container serves the project
	ErrNoEnvironment = errors.New("no devagent environment for project")
	// ErrNoSessions is returned when an environment has no transcripts yet
	ErrNoSessions = errors.New("devagent environment has no sessions")
)

// container mirrors one element of `devagent list` output
type container struct {
	ProjectPath  string `json:"project_path"`
	DevContainer struct {
		Mounts []mount `json:"mounts"`
	} `json:"devcontainer"`
	ProxySidecar struct {
		ContainerName string `json:"container_name"`
		State         string `json:"state"`
	} `json:"proxy_sidecar"`
}

type mount struct {
	Type        string `json:"type"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	ReadOnly    bool   `json:"read_only"`
}

// Environment is a devagent container with its host-side projects root
type Environment struct {
	ContainerName string
	ProjectPath   string
	ProjectsDir   string
	State         string
}

// Running reports whether the container's proxy is up
func (e Environment) Running() bool {
	return e.State == "running"
}

// Runner executes a command and returns its standard output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Discover runs devagent list and returns every environment it reports
func Discover(ctx context.Context) ([]Environment, error) {
	return DiscoverWith(ctx, execRunner)
}

// DiscoverWith is Discover with a custom command runner
func DiscoverWith(ctx context.Context, run Runner) ([]Environment, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	output, err := run(ctx, "devagent", "list")
	if err != nil {
		return nil, fmt.Errorf("run devagent list: %w", err)
	}
	return ParseOutput(output)
}

// ParseOutput parses JSON output from devagent list. Containers without the
// .claude mount are skipped; the rest are returned whatever their state.
func ParseOutput(data []byte) ([]Environment, error) {
	var containers []container
	if err := json.Unmarshal(data, &containers); err != nil {
		return nil, fmt.Errorf("parse devagent output: %w", err)
	}

	var envs []Environment
	for _, c := range containers {
		src, ok := claudeMountSource(c.DevContainer.Mounts)
		if !ok {
			continue
		}
		envs = append(envs, Environment{
			ContainerName: c.ProxySidecar.ContainerName,
			ProjectPath:   c.ProjectPath,
			ProjectsDir:   stripHostMntPrefix(src) + "/projects",
			State:         c.ProxySidecar.State,
		})
	}
	return envs, nil
}

func claudeMountSource(mounts []mount) (string, bool) {
	for _, m := range mounts {
		if m.Destination == claudeMountPoint {
			return m.Source, true
		}
	}
	return "", false
}

// FindProject returns the environment whose project path is project.
// Running environments win over stopped ones for the same path.
func FindProject(envs []Environment, project string) (Environment, error) {
	want := filepath.Clean(project)
	var found *Environment
	for i := range envs {
		if filepath.Clean(envs[i].ProjectPath) != want {
			continue
		}
		if found == nil || (!found.Running() && envs[i].Running()) {
			found = &envs[i]
		}
	}
	if found == nil {
		return Environment{}, fmt.Errorf("%w: %s", ErrNoEnvironment, project)
	}
	return *found, nil
}

// SessionDir returns the most recently active session directory in the
// environment. The container sees the project under its own path, so the
// directory is picked by activity rather than by name.
func (e Environment) SessionDir() (string, error) {
	list, err := projects.List(e.ProjectsDir)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoSessions, e.ContainerName)
	}
	return list[0].Dir, nil
}

// stripHostMntPrefix removes Docker Desktop's /host_mnt prefix on macOS.
// Paths without it pass through unchanged.
func stripHostMntPrefix(path string) string {
	if remainder, ok := strings.CutPrefix(path, "/host_mnt"); ok {
		if remainder != "" && remainder != "/" {
			return remainder
		}
	}
	return path
}
