package main

import (
	"github.com/augurhq/augur/pkg/config"
)

// getPath returns the analysis root from args, defaulting to ".".
func getPath(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

// loadConfig resolves configuration from the --config flag or the
// standard search locations.
func loadConfig() (*config.Config, error) {
	cfg, _, err := resolveConfig()
	return cfg, err
}

// resolveConfig loads from --config or the search path, reporting where
// the config came from.
func resolveConfig() (*config.Config, string, error) {
	if cfgFile != "" {
		cfg, err := config.Load(cfgFile)
		return cfg, cfgFile, err
	}
	if path := config.Locate(); path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}
	return config.DefaultConfig(), "", nil
}
