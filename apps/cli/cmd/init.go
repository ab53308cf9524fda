package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tplspec/packages/core/config"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new tplspec project",
	Long: `Initialize a new tplspec project in the current directory.

This creates:
  - tplspec.yaml   - Configuration file with environments
  - example.tpl    - Example test template

Examples:
  tplspec init
  tplspec init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleTemplate = `{# Run with: tplspec run example.tpl #}
{% set message %}{{ greeting }}, {{ name }}!{% endset %}

{% assert endswith("World!") %}{{ message }}{% endassert %}

{% assert_true message is startswith(greeting) %}
{% assert_true message | length > 5 %}
{% assert_false name is empty %}
{% assert_that [1, 2, 3] | length is eq(3) %}

{% assert_fails as err %}{{ missing.attr }}{% endassert_fails %}
{% assert contains("undefined") %}{{ err }}{% endassert %}

{% for n in range(1, 4) %}
  {% assert_that n * 2 is even %}
{% endfor %}
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, "tplspec.yaml")
	exampleFile := filepath.Join(cwd, "example.tpl")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return withCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.DefaultEnvironment = "dev"
	cfg.Variables = map[string]any{"name": "World"}
	cfg.Environments = map[string]map[string]any{
		"dev":     {"greeting": "Hello"},
		"staging": {"greeting": "Hi"},
	}
	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(exampleFile, []byte(exampleTemplate), 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\ntplspec project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'tplspec run example.tpl' to execute the example tests.\n")

	return nil
}
