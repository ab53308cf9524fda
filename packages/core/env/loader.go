package env

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Environment struct {
	Name      string
	Variables map[string]any
}

// LoadEnvironment selects the named variable set from the config's
// environments section. An unknown name yields an empty set.
func LoadEnvironment(envName string, configEnvs map[string]map[string]any) *Environment {
	env := &Environment{
		Name:      envName,
		Variables: make(map[string]any),
	}
	if vars, ok := configEnvs[envName]; ok {
		for k, v := range vars {
			env.Variables[k] = v
		}
	}
	return env
}

// LoadData reads template variables from a YAML or JSON file. The top
// level must be a mapping.
func LoadData(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read data file: %w", err)
	}

	vars := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(strings.NewReader(string(data)))
		dec.UseNumber()
		if err := dec.Decode(&vars); err != nil {
			return nil, fmt.Errorf("cannot parse data file %s: %w", path, err)
		}
		return normalizeJSON(vars).(map[string]any), nil
	default:
		if err := yaml.Unmarshal(data, &vars); err != nil {
			return nil, fmt.Errorf("cannot parse data file %s: %w", path, err)
		}
	}
	return vars, nil
}

// normalizeJSON turns json.Number into int64 or float64 so templates see
// the same numbers as with YAML data.
func normalizeJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeJSON(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeJSON(item)
		}
		return val
	}
	return v
}

// ParseVars turns KEY=VALUE pairs from the command line into variables.
// Values are read as YAML scalars, so numbers and booleans keep their type.
func ParseVars(pairs []string) (map[string]any, error) {
	vars := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid variable %q, expected KEY=VALUE", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}
		vars[key] = value
	}
	return vars, nil
}

func MergeVariables(sources ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

func LoadSystemEnv(prefix string) map[string]any {
	result := make(map[string]any)
	for _, e := range os.Environ() {
		key, value, found := strings.Cut(e, "=")
		if !found {
			continue
		}
		if prefix == "" {
			result[key] = value
		} else if len(key) > len(prefix) && strings.HasPrefix(key, prefix) {
			result[key[len(prefix):]] = value
		}
	}
	return result
}
