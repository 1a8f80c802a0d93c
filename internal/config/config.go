// SPDX-License-Identifier: MPL-2.0

// Package config loads the user-global configuration. Workspace-specific
// settings live in the manifest; this file only carries user preferences
// that apply across workspaces.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"lockstep-cli/internal/issue"
	"lockstep-cli/internal/platform"
	"lockstep-cli/internal/progress"
)

const (
	// AppName is the application name.
	AppName = "lockstep"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
)

// Visibility values accepted in the progress section.
const (
	VisibilityVisible = "visible"
	VisibilityHidden  = "hidden"
)

type (
	// Config is the user-global configuration.
	Config struct {
		// DefaultChannels are the channels the solver consults when the
		// manifest does not name any.
		DefaultChannels []string `mapstructure:"default_channels"`

		Progress ProgressConfig `mapstructure:"progress"`
		UI       UIConfig       `mapstructure:"ui"`
	}

	// ProgressConfig controls progress reporting.
	ProgressConfig struct {
		// Visibility is "visible" or "hidden".
		Visibility string `mapstructure:"visibility"`
	}

	// UIConfig controls terminal output.
	UIConfig struct {
		Verbose bool `mapstructure:"verbose"`
	}
)

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		DefaultChannels: []string{"conda-forge"},
		Progress:        ProgressConfig{Visibility: VisibilityVisible},
	}
}

// ProgressVisibility maps the configured visibility string to a reporter
// visibility. Unrecognized values fall back to visible.
func (c *Config) ProgressVisibility() progress.Visibility {
	if c.Progress.Visibility == VisibilityHidden {
		return progress.Hidden
	}
	return progress.Visible
}

// configDirOverride allows tests to override the config directory.
// This is necessary because os.UserHomeDir() doesn't reliably respect
// the HOME environment variable on all platforms (e.g., macOS in CI).
var configDirOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride sets a custom config directory path. Primarily
// intended for testing, to bypass os.UserHomeDir().
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// ConfigDir returns the lockstep configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load reads the global config file, falling back to defaults when none
// exists. A present but malformed file is an error, not a silent fallback.
func Load() (*Config, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("default_channels", defaults.DefaultChannels)
	v.SetDefault("progress.visibility", defaults.Progress.Visibility)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	path := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(path) {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid TOML syntax").
				WithSuggestion("Remove the file to fall back to defaults").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
