package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tplspec/packages/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded test runs",
	Long: `Show runs recorded with 'tplspec run --history'. With a run ID, show the
per-file results of that run.

Examples:
  tplspec history --db runs.db
  tplspec history --db runs.db --limit 5
  tplspec history --db runs.db 4b0c7c6e-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: historyCommand,
}

var (
	historyDBFlag    string
	historyLimitFlag int
)

func init() {
	historyCmd.Flags().StringVar(&historyDBFlag, "db", getEnvString("TPLSPEC_HISTORY", ""), "SQLite history database (env: TPLSPEC_HISTORY)")
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", getEnvInt("TPLSPEC_HISTORY_LIMIT", 10), "Number of runs to show (env: TPLSPEC_HISTORY_LIMIT)")
	historyCmd.Flags().StringVar(&configFlag, "config", getEnvString("TPLSPEC_CONFIG", ""), "Path to config file (env: TPLSPEC_CONFIG)")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	dsn := historyDBFlag
	if dsn == "" {
		cfg, err := loadConfig(configFlag)
		if err != nil {
			return err
		}
		dsn = cfg.History
	}
	if dsn == "" {
		return withCode(ExitUsageError, fmt.Errorf("no history database: pass --db or set history in the config file"))
	}

	store, err := history.Open(dsn)
	if err != nil {
		return withCode(ExitConfigError, err)
	}
	defer store.Close()

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	w := cmd.OutOrStdout()

	if len(args) == 1 {
		results, err := store.Results(args[0])
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return fmt.Errorf("no results recorded for run %s", args[0])
		}
		for _, r := range results {
			if r.Passed {
				fmt.Fprintf(w, "%s %s (%d assertions, %dms)\n", green("✓"), r.File, r.Assertions, r.Duration.Milliseconds())
				continue
			}
			fmt.Fprintf(w, "%s %s (%d assertions, %dms)\n", red("✗"), r.File, r.Assertions, r.Duration.Milliseconds())
			fmt.Fprintf(w, "    %s %s: %s\n", red("→"), r.Kind, r.Message)
		}
		return nil
	}

	runs, err := store.Recent(historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, run := range runs {
		status := green("PASS")
		if run.Failed > 0 {
			status = red("FAIL")
		}
		fmt.Fprintf(w, "%s  %s  %s  %d passed, %d failed  %dms\n",
			run.ID, run.StartedAt.Local().Format(time.DateTime), status, run.Passed, run.Failed, run.Duration.Milliseconds())
	}
	return nil
}
