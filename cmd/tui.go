package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"cc_activity_mon/internal/session"
	"cc_activity_mon/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [dir]",
	Short: "Launch the interactive activity feed",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Logs would corrupt the alt screen; they go nowhere unless a file is set
	logger, closer, err := newLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer closer.Close()

	dir, label, err := resolveDir(cmd.Context(), args)
	if err != nil {
		return err
	}

	monitor := session.NewMonitor(cfg.MonitorOptions(logger))
	opts := tui.ModelOptions{Source: monitor, Config: cfg}
	if cfg.Monitor.FromStart {
		opts.Replay = func() { monitor.Scan() }
	}
	model := tui.NewModel(opts)

	if err := monitor.StartMonitoring(dir, label); err != nil {
		return err
	}
	defer monitor.StopMonitoring()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
