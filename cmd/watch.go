package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"cc_activity_mon/internal/broadcast"
	"cc_activity_mon/internal/config"
	"cc_activity_mon/internal/session"
)

var (
	flagKinds  []string
	flagListen string
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Stream activity to stdout",
	Long: "Print one line per event: time, kind, session and summary.\n" +
		"With --listen the events are also served to websocket clients at /ws.",
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVarP(&flagKinds, "kinds", "k", nil, "Only show these kinds (e.g. bash_command,file_write)")
	watchCmd.Flags().StringVar(&flagListen, "listen", "", "Serve events over websocket on this address (e.g. :8765)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	kinds, err := parseKinds(flagKinds)
	if err != nil {
		return err
	}

	logger, closer, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, label, err := resolveDir(ctx, args)
	if err != nil {
		return err
	}

	monitor := session.NewMonitor(cfg.MonitorOptions(logger))
	p := &printer{w: cmd.OutOrStdout(), cfg: cfg}
	for _, k := range kinds {
		monitor.RegisterCallback(k, p.print, session.WithName("stdout"))
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)
	if flagListen != "" {
		hub := broadcast.NewHub(monitor, logger)
		hub.Subscribe(monitor)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = hub.Run(ctx)
		}()
		go func() {
			defer wg.Done()
			if err := hub.ListenAndServe(ctx, flagListen); err != nil {
				errCh <- fmt.Errorf("websocket hub: %w", err)
			}
		}()
	}

	if err := monitor.StartMonitoring(dir, label); err != nil {
		stop()
		wg.Wait()
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (%s)\n", label, dir)
	if cfg.Monitor.FromStart {
		monitor.Scan()
	}

	select {
	case <-ctx.Done():
		err = nil
	case err = <-errCh:
		stop()
	}

	if stopErr := monitor.StopMonitoring(); stopErr != nil {
		logger.Warn("monitor did not stop cleanly", "error", stopErr)
	}
	wg.Wait()
	return err
}

// parseKinds turns --kinds values into event kinds; empty means all
func parseKinds(names []string) ([]session.EventKind, error) {
	if len(names) == 0 {
		return session.AllKinds(), nil
	}
	seen := make(map[session.EventKind]bool)
	var kinds []session.EventKind
	for _, name := range names {
		k, err := session.ParseEventKind(name)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// printer writes events as single lines. It is registered inline, so it
// only ever runs on the watcher goroutine.
type printer struct {
	w   io.Writer
	cfg *config.Config
}

func (p *printer) print(e session.Event) {
	if p.cfg.ShouldExclude(e) {
		return
	}
	fmt.Fprintln(p.w, formatEvent(e))
}

// formatEvent renders "HH:MM:SS kind session summary" on one line
func formatEvent(e session.Event) string {
	summary := strings.ReplaceAll(e.Summary, "\n", " ")
	return fmt.Sprintf("%s %-18s %-8.8s %s",
		e.Timestamp.Local().Format("15:04:05"), e.Kind, e.SessionID, summary)
}
