// Package config loads the optional recap configuration file.
//
// The file is YAML, looked up at ~/.config/recap/config.yaml unless an
// explicit path is given. A missing file yields the defaults; a malformed
// file is an error so silent misconfiguration cannot happen.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable projection settings.
type Config struct {
	// OutputDir is where export writes its artifacts. Empty means the
	// working directory's .recap/ subdirectory.
	OutputDir string `yaml:"output_dir"`

	// SessionsDir overrides the session storage root.
	SessionsDir string `yaml:"sessions_dir"`

	// TruncateChars caps individual text fields in both projections.
	TruncateChars int `yaml:"truncate_chars"`

	// MaxEditsPerFile bounds edit fragments kept per modified file.
	MaxEditsPerFile int `yaml:"max_edits_per_file"`

	// IncludeThinking includes internal-reasoning blocks in the transcript.
	IncludeThinking bool `yaml:"include_thinking"`

	// IncludeToolOutput includes tool outcome bodies in the transcript.
	IncludeToolOutput bool `yaml:"include_tool_output"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		TruncateChars:     400,
		MaxEditsPerFile:   5,
		IncludeToolOutput: true,
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "recap", "config.yaml")
}

// Load reads the config at path, or the defaults when the file is absent.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.TruncateChars <= 0 {
		cfg.TruncateChars = Default().TruncateChars
	}
	if cfg.MaxEditsPerFile <= 0 {
		cfg.MaxEditsPerFile = Default().MaxEditsPerFile
	}
	return cfg, nil
}
