package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"cc_activity_mon/internal/config"
	"cc_activity_mon/internal/devagent"
	"cc_activity_mon/internal/logging"
	"cc_activity_mon/internal/projects"
)

// loadConfig reads --config or the standard locations and applies flag overrides
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.Load(flagConfig)
	} else {
		cfg, err = config.LoadFromDefaultPath()
	}
	if err != nil {
		return nil, err
	}

	if flagLogFile != "" {
		cfg.Log.File = flagLogFile
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagFromStart {
		cfg.Monitor.FromStart = true
	}
	return cfg, cfg.Validate()
}

// newLogger builds the logger; fallback receives logs when no file is set
func newLogger(cfg *config.Config, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	logger, closer, err := logging.New(cfg.Log, fallback)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	return logger, closer, nil
}

// discover is swapped in tests
var discover = devagent.Discover

// resolveDir picks the session directory and its display label: an explicit
// argument wins, then a devagent container for the project, then the
// project's directory under ~/.claude/projects.
func resolveDir(ctx context.Context, args []string) (dir, label string, err error) {
	if len(args) > 0 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return "", "", err
		}
		return abs, filepath.Base(abs), nil
	}

	project := flagProject
	if project == "" {
		if project, err = os.Getwd(); err != nil {
			return "", "", fmt.Errorf("determine project: %w", err)
		}
	}
	project, err = filepath.Abs(project)
	if err != nil {
		return "", "", err
	}
	label = filepath.Base(project)

	if flagDevagent {
		envs, err := discover(ctx)
		if err != nil {
			return "", "", err
		}
		env, err := devagent.FindProject(envs, project)
		if err != nil {
			return "", "", err
		}
		dir, err := env.SessionDir()
		if err != nil {
			return "", "", err
		}
		return dir, label + " @ " + env.ContainerName, nil
	}

	root, err := projects.DefaultRoot()
	if err != nil {
		return "", "", err
	}
	dir, err = projects.SessionDir(root, project)
	if err != nil {
		return "", "", err
	}
	return dir, label, nil
}
