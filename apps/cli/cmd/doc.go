// Package cmd implements the tplspec CLI commands using Cobra.
//
// Available commands:
//   - run: Render test templates and report assertion results
//   - validate: Parse test templates without rendering them
//   - list: Show the assertions each test file contains
//   - tests: List the predicates available to assertions
//   - history: Show recorded runs
//   - init: Create a config file and an example test
//   - version: Show tplspec version information
//
// Settings come from flags, TPLSPEC_* environment variables and the
// config file, in that order of precedence.
package cmd
