package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "tplspec",
	Short: "Assertions that live inside your templates.",
	Long: `tplspec renders Jinja-style template files as tests. Templates check
themselves with assertion tags:

  {% assert contains("needle") %}{{ haystack }}{% endassert %}
  {% assert_fails as err %}{{ missing.attr }}{% endassert_fails %}
  {% assert_true items | length > 0 %}
  {% assert_that total is divisibleby(5) %}

A file passes when it renders without error.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	code := exitCode(err)
	if ee, ok := err.(*exitError); !ok || ee.err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	if code == ExitUsageError {
		fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", rootCmd.Name())
	}
	os.Exit(code)
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(testsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}
