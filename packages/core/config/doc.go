// Package config handles configuration loading and management for tplspec.
//
// It provides functionality for:
//   - Loading configuration from .tplspec.yaml, tplspec.yaml or .tplspec.yml
//   - Default configuration values
//   - Named variable environments
package config
