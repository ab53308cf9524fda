package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tplspec/packages/core/config"
	"github.com/abdul-hamid-achik/tplspec/packages/core/runner"
	"github.com/abdul-hamid-achik/tplspec/packages/history"
	"github.com/abdul-hamid-achik/tplspec/packages/output"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>...",
	Short: "Render test templates and check their assertions",
	Long: `Render template test files. Directories are searched for files with
the configured extensions (.tpl, .j2 and .jinja by default).

Examples:
  tplspec run tests/
  tplspec run greeting.tpl --var name=World
  tplspec run tests/ --data fixtures.yaml --env-file .env
  tplspec run tests/ --env staging --bail
  tplspec run tests/ --name "user*" --output junit --output-file report.xml
  tplspec run tests/ --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

var (
	envFlag        string
	envFileFlag    string
	dataFlag       string
	varFlags       []string
	configFlag     string
	nameFlag       string
	verboseFlag    int // 0=off, 1=-v, 2=-vv
	bailFlag       bool
	noColorFlag    bool
	outputFlag     string
	outputFileFlag string
	historyFlag    string
	watchFlag      bool
)

func init() {
	// Variable flags
	runCmd.Flags().StringVarP(&envFlag, "env", "e", getEnvString("TPLSPEC_ENV", ""), "Config environment whose variables to use (env: TPLSPEC_ENV)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("TPLSPEC_ENV_FILE", ""), "Path to .env file exposed to templates as `env` (env: TPLSPEC_ENV_FILE)")
	runCmd.Flags().StringVar(&dataFlag, "data", getEnvString("TPLSPEC_DATA", ""), "YAML or JSON file of template variables (env: TPLSPEC_DATA)")
	runCmd.Flags().StringArrayVar(&varFlags, "var", nil, "Template variable as KEY=VALUE (repeatable)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("TPLSPEC_CONFIG", ""), "Path to config file (env: TPLSPEC_CONFIG)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only files matching name pattern")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v shows output, -vv adds debug logs)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("TPLSPEC_NO_COLOR", false), "Disable colored output (env: TPLSPEC_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("TPLSPEC_OUTPUT", ""), "Output format: "+strings.Join(output.Formats, ", ")+" (env: TPLSPEC_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("TPLSPEC_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: TPLSPEC_OUTPUT_FILE)")
	runCmd.Flags().StringVar(&historyFlag, "history", getEnvString("TPLSPEC_HISTORY", ""), "SQLite database to record the run in (env: TPLSPEC_HISTORY)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("TPLSPEC_BAIL", false), "Stop on first failure (env: TPLSPEC_BAIL)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch files for changes and re-run tests")
}

// session holds everything a run needs so watch mode can repeat it.
type session struct {
	cfg     *config.Config
	sources variableSources
	logger  *slog.Logger
	files   []string
	runner  *runner.Runner
	out     io.Writer
	format  string
	verbose bool
	noColor bool
	history string
	stderr  io.Writer
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configFlag)
	if err != nil {
		return err
	}

	format := strings.ToLower(firstNonEmpty(outputFlag, cfg.Output, "console"))
	if _, err := output.New(format, io.Discard, false, true); err != nil {
		return withCode(ExitUsageError, err)
	}

	files, err := runner.Discover(args, cfg.Extensions)
	if err != nil {
		return withCode(ExitUsageError, err)
	}
	if len(files) == 0 {
		return withCode(ExitUsageError, fmt.Errorf("no test files with extensions %s found", strings.Join(cfg.Extensions, ", ")))
	}

	var outWriter io.Writer = cmd.OutOrStdout()
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return withCode(ExitUsageError, fmt.Errorf("cannot create output file: %w", err))
		}
		defer f.Close()
		outWriter = f
	}

	s := &session{
		cfg: cfg,
		sources: variableSources{
			Environment: envFlag,
			DataFile:    dataFlag,
			EnvFile:     envFileFlag,
			Vars:        varFlags,
		},
		logger:  newLogger(cmd.ErrOrStderr(), verboseFlag > 1),
		files:   files,
		out:     outWriter,
		format:  format,
		verbose: verboseFlag > 0 || cfg.GetVerbose(),
		noColor: noColorFlag || cfg.GetNoColor(),
		history: firstNonEmpty(historyFlag, cfg.History),
		stderr:  cmd.ErrOrStderr(),
	}
	if err := s.reload(); err != nil {
		return err
	}

	result, err := s.execute(cmd.Context())
	if err != nil {
		return err
	}
	if !watchFlag {
		return resultError(result)
	}
	return s.watch(cmd.Context(), args)
}

// reload re-reads the variable sources and builds a fresh runner.
func (s *session) reload() error {
	variables, err := buildVariables(s.cfg, s.sources)
	if err != nil {
		return err
	}
	s.runner = runner.NewRunner(&runner.Config{
		Variables:  variables,
		Bail:       bailFlag || s.cfg.GetBail(),
		NameFilter: nameFlag,
		Logger:     s.logger,
	})
	return nil
}

// execute runs every file once, reports the result and records it in
// the history database when one is configured.
func (s *session) execute(ctx context.Context) (*runner.RunResult, error) {
	formatter, err := output.New(s.format, s.out, s.verbose, s.noColor)
	if err != nil {
		return nil, withCode(ExitUsageError, err)
	}
	if s.format == "console" {
		formatter.FormatHeader(version)
	}

	result := s.runner.RunContext(ctx, s.files)
	formatter.FormatResult(result)

	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(result.Duration); err != nil {
			return nil, fmt.Errorf("error writing output: %w", err)
		}
	}

	if s.history != "" {
		if err := recordHistory(s.history, result); err != nil {
			fmt.Fprintf(s.stderr, "warning: failed to record run history: %v\n", err)
		}
	}
	return result, nil
}

func recordHistory(dsn string, result *runner.RunResult) error {
	store, err := history.Open(dsn)
	if err != nil {
		return err
	}
	defer store.Close()
	_, err = store.Record(result)
	return err
}

// resultError turns a failed run into its exit code. Parse errors take
// precedence over assertion and render failures.
func resultError(result *runner.RunResult) error {
	switch {
	case result.OK():
		return nil
	case result.HasKind(runner.KindParse):
		return withCode(ExitParseError, nil)
	default:
		return withCode(ExitTestFailure, nil)
	}
}
