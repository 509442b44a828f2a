package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagProject   string
	flagDevagent  bool
	flagLogFile   string
	flagLogLevel  string
	flagFromStart bool
)

var rootCmd = &cobra.Command{
	Use:   "cc_activity_mon [dir]",
	Short: "Live monitor for Claude session activity",
	Long: "Watch a Claude project's session transcripts and show prompts, responses,\n" +
		"file operations, shell commands and web fetches as they happen.\n\n" +
		"Without a directory argument the session directory of --project (default:\n" +
		"the current directory) under ~/.claude/projects is used.",
	Args:          cobra.MaximumNArgs(1),
	RunE:          runTUI,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (default: standard locations)")
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "p", "", "Project path whose sessions to watch (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&flagDevagent, "devagent", false, "Resolve the session directory through devagent containers")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Write logs to this file (rotated)")
	rootCmd.PersistentFlags().BoolVar(&flagFromStart, "from-start", false, "Replay existing transcript content instead of starting at the end")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}
