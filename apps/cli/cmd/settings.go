package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/abdul-hamid-achik/tplspec/packages/core/config"
	"github.com/abdul-hamid-achik/tplspec/packages/core/env"
)

// VarEnvPrefix marks environment variables passed to templates; the
// prefix is stripped from the variable name.
const VarEnvPrefix = "TPLSPEC_VAR_"

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// loadConfig reads the config file named by --config, or the first one
// found in the working directory.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, withCode(ExitConfigError, err)
	}
	return cfg, nil
}

// variableSources says where template variables come from. Later
// sources override earlier ones.
type variableSources struct {
	Environment string
	DataFile    string
	EnvFile     string
	Vars        []string
}

// buildVariables merges, in increasing precedence: config variables, the
// selected environment, the data file, TPLSPEC_VAR_* variables and --var
// pairs. A .env file is exposed as the `env` mapping.
func buildVariables(cfg *config.Config, src variableSources) (map[string]any, error) {
	sources := []map[string]any{cfg.Variables}

	envName := firstNonEmpty(src.Environment, cfg.DefaultEnvironment)
	if envName != "" {
		if _, ok := cfg.Environments[envName]; !ok && src.Environment != "" {
			return nil, withCode(ExitConfigError, fmt.Errorf("unknown environment %q", envName))
		}
		sources = append(sources, env.LoadEnvironment(envName, cfg.Environments).Variables)
	}

	if dataFile := firstNonEmpty(src.DataFile, cfg.DataFile); dataFile != "" {
		data, err := env.LoadData(dataFile)
		if err != nil {
			return nil, withCode(ExitConfigError, err)
		}
		sources = append(sources, data)
	}

	if envFile := firstNonEmpty(src.EnvFile, cfg.EnvFile); envFile != "" {
		dotenv, err := env.DotEnvVariables(envFile)
		if err != nil {
			return nil, withCode(ExitConfigError, err)
		}
		sources = append(sources, map[string]any{"env": dotenv})
	}

	sources = append(sources, env.LoadSystemEnv(VarEnvPrefix))

	cliVars, err := env.ParseVars(src.Vars)
	if err != nil {
		return nil, withCode(ExitUsageError, err)
	}
	sources = append(sources, cliVars)

	return env.MergeVariables(sources...), nil
}

// newLogger returns a text logger on w. Below debug level it only
// reports warnings.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
