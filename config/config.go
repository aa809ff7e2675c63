// Package config loads user-configurable defaults for the summary
// command from a JSON file, following the same soft-fail-to-defaults
// convention the rest of the toolchain uses.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Config holds defaults applied before CLI flags override them.
type Config struct {
	// ExpectedVersion is the trace schema version checked on open; a
	// mismatch is a warning, not a fatal error.
	ExpectedVersion int `json:"expected_version"`
	// RangePatterns are substring filters applied when --range is not
	// given on the command line.
	RangePatterns []string `json:"range_patterns"`
	// FirstRanges caps the number of selected ranges kept, by start
	// time; zero means unbounded.
	FirstRanges int `json:"first_ranges"`
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		ExpectedVersion: 11,
		RangePatterns:   nil,
		FirstRanges:     0,
	}
}

// Path returns ~/.config/vprof/config.json (or XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "" // refuse to fall back to /tmp (security risk)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "vprof", "config.json")
}

// Load loads config from disk; returns defaults on error.
func Load() Config {
	cfg := Default()
	p := Path()
	if p == "" {
		return cfg
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return cfg
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Printf("vprof: warning: config parse error: %v", err)
	}
	return cfg
}

// Save writes the config to disk.
func Save(cfg Config) error {
	path := Path()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
