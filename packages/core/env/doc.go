// Package env gathers the variables templates render with.
//
// It provides functionality for:
//   - Loading .env files, exposed to templates as `env`
//   - Loading YAML or JSON data files
//   - Parsing KEY=VALUE pairs from the command line
//   - Selecting named environments from the config file
package env
