package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tplspec/packages/predicate"
)

var testsCmd = &cobra.Command{
	Use:   "tests",
	Short: "List the predicates available to assertions",
	Long: `List the predicates that can be named by assert, assert_that and the
'is' operator.

Examples:
  {% assert startswith("Hello") %}{{ greeting }}{% endassert %}
  {% assert_that count is divisibleby(3) %}`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range predicate.NewDefaultRegistry().Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}
