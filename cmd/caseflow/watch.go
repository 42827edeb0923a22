package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caseflow/caseflow/pkg/config"
	"github.com/caseflow/caseflow/pkg/server"
	"github.com/caseflow/caseflow/pkg/tui"
	"github.com/caseflow/caseflow/pkg/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [files...]",
	Short: "Watch event log files and re-analyze on change",
	Long: `Watch one or more event log files and re-run the analysis whenever a
file is written. Useful while an export job appends to a log.

Examples:
  caseflow watch events.csv
  caseflow watch exports/*.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print reports as JSON")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	w, err := watch.NewWatcher(config.Global().Get().Watch.Debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	analyze := func(path string) error {
		log, err := parseLogFile(ctx, path)
		if err != nil {
			return err
		}
		report, err := server.BuildReport(path, log)
		if err != nil {
			return err
		}
		tui.PrintReport(report)
		return nil
	}

	w.OnChange = analyze
	w.OnError = func(path string, err error) {
		tui.PrintError(fmt.Errorf("%s: %w", path, err))
	}

	tui.PrintHeader(version)
	for _, path := range args {
		if err := w.Watch(path); err != nil {
			return err
		}
		// Initial analysis so the watcher starts from a known-good state.
		if err := analyze(path); err != nil {
			tui.PrintError(fmt.Errorf("%s: %w", path, err))
		}
		tui.PrintInfo("watching " + path)
	}

	err = w.Run(ctx)
	if err == ctx.Err() {
		return nil
	}
	return err
}
