package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tplspec/packages/assertions"
	"github.com/abdul-hamid-achik/tplspec/packages/core/runner"
	"github.com/abdul-hamid-achik/tplspec/packages/core/template"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>...",
	Short: "List the assertions in test templates",
	Long: `List every assertion tag found in template test files, including
those nested inside loops, conditionals and other assertions.

Examples:
  tplspec list greeting.tpl
  tplspec list ./tests/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func init() {
	listCmd.Flags().StringVar(&configFlag, "config", getEnvString("TPLSPEC_CONFIG", ""), "Path to config file (env: TPLSPEC_CONFIG)")
}

// assertionEntry is one assertion tag found in a template.
type assertionEntry struct {
	Pos         template.Position
	Description string
	Depth       int
}

// collectAssertions walks nodes depth first.
func collectAssertions(nodes []template.Node, depth int, out []assertionEntry) []assertionEntry {
	for _, node := range nodes {
		switch n := node.(type) {
		case *assertions.AssertCall:
			out = append(out, assertionEntry{n.Pos(), "assert " + n.Source, depth})
			out = collectAssertions(n.Body, depth+1, out)
		case *assertions.AssertFails:
			desc := "assert_fails"
			if n.Var != "" {
				desc += " as " + n.Var
			}
			out = append(out, assertionEntry{n.Pos(), desc, depth})
			out = collectAssertions(n.Body, depth+1, out)
		case *assertions.AssertBool:
			tag := "assert_false "
			if n.Want {
				tag = "assert_true "
			}
			out = append(out, assertionEntry{n.Pos(), tag + n.Cond.String(), depth})
		case *assertions.AssertThat:
			out = append(out, assertionEntry{n.Pos(), "assert_that " + n.Test.String(), depth})
		case *template.IfNode:
			for _, b := range n.Branches {
				out = collectAssertions(b.Body, depth, out)
			}
			out = collectAssertions(n.Else, depth, out)
		case *template.ForNode:
			out = collectAssertions(n.Body, depth, out)
			out = collectAssertions(n.Else, depth, out)
		case *template.SetNode:
			out = collectAssertions(n.Body, depth, out)
		}
	}
	return out
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	r := runner.NewRunner(nil)
	for _, file := range files {
		tmpl, err := parseFile(r, file)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}

		entries := collectAssertions(tmpl.Nodes, 0, nil)
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s: %d assertion(s)\n", file, len(entries))
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "  %*s%d:%d %s\n", e.Depth*2, "", e.Pos.Line, e.Pos.Column, e.Description)
		}
	}

	return nil
}
