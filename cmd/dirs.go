package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cc_activity_mon/internal/devagent"
	"cc_activity_mon/internal/projects"
)

var dirsCmd = &cobra.Command{
	Use:   "dirs",
	Short: "List session directories, most recently active first",
	Args:  cobra.NoArgs,
	RunE:  runDirs,
}

func init() {
	rootCmd.AddCommand(dirsCmd)
}

func runDirs(cmd *cobra.Command, _ []string) error {
	root, err := projects.DefaultRoot()
	if err != nil {
		return err
	}
	local, err := projects.List(root)
	if err != nil {
		return err
	}

	var envs []devagent.Environment
	if flagDevagent {
		if envs, err = discover(cmd.Context()); err != nil {
			return err
		}
	}

	return printDirs(cmd.OutOrStdout(), local, envs)
}

func printDirs(out io.Writer, local []projects.Project, envs []devagent.Environment) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tSESSIONS\tLAST ACTIVE\tDIR")
	for _, p := range local {
		fmt.Fprintf(tw, "local\t%d\t%s\t%s\n", p.Sessions, humanize.Time(p.LastModified), p.Dir)
	}
	for _, env := range envs {
		list, err := projects.List(env.ProjectsDir)
		if err != nil {
			continue
		}
		for _, p := range list {
			fmt.Fprintf(tw, "%s (%s)\t%d\t%s\t%s\n",
				env.ContainerName, env.State, p.Sessions, humanize.Time(p.LastModified), p.Dir)
		}
	}
	return tw.Flush()
}
