package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tplspec/packages/core/runner"
	"github.com/abdul-hamid-achik/tplspec/packages/core/template"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Check test templates for syntax errors",
	Long: `Parse test templates without rendering them. Malformed assertion tags,
assert_that expressions that are not 'subject is predicate' and
assert arguments that are not constants are all reported here.

Examples:
  tplspec validate greeting.tpl
  tplspec validate ./tests/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func init() {
	validateCmd.Flags().StringVar(&configFlag, "config", getEnvString("TPLSPEC_CONFIG", ""), "Path to config file (env: TPLSPEC_CONFIG)")
}

// parseFile compiles path the way the runner would, without rendering it.
func parseFile(r *runner.Runner, path string) (*template.Template, error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return r.Environment(dir, nil).GetTemplate(name)
}

// collectFiles discovers test files using the configured extensions.
func collectFiles(args []string) ([]string, error) {
	cfg, err := loadConfig(configFlag)
	if err != nil {
		return nil, err
	}
	files, err := runner.Discover(args, cfg.Extensions)
	if err != nil {
		return nil, withCode(ExitUsageError, err)
	}
	if len(files) == 0 {
		return nil, withCode(ExitUsageError, errors.New("no test files found"))
	}
	return files, nil
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	r := runner.NewRunner(nil)
	hasErrors := false
	for _, file := range files {
		if _, err := parseFile(r, file); err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
		}
	}

	if hasErrors {
		return withCode(ExitParseError, fmt.Errorf("validation failed"))
	}

	return nil
}
