package config

// DefaultExtensions are the test file extensions searched when a directory
// is given on the command line.
var DefaultExtensions = []string{".tpl", ".j2", ".jinja"}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Extensions: append([]string(nil), DefaultExtensions...),
		Output:     "console",
		Bail:       BoolPtr(false),
		Verbose:    BoolPtr(false),
		NoColor:    BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.DefaultEnvironment == defaults.DefaultEnvironment &&
		len(c.Extensions) == len(defaults.Extensions) &&
		c.DataFile == "" &&
		c.EnvFile == "" &&
		len(c.Variables) == 0 &&
		len(c.Environments) == 0 &&
		c.Output == defaults.Output &&
		c.History == "" &&
		c.GetBail() == defaults.GetBail() &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
