package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const appName = "restorepoint"

type Config struct {
	Theme          string               `yaml:"theme"`
	LogLevel       string               `yaml:"log_level"`
	Git            string               `yaml:"git"`
	Shell          string               `yaml:"shell"`
	Elevator       string               `yaml:"elevator"`
	LargeDirectory LargeDirectoryConfig `yaml:"large_directory"`
}

// LargeDirectoryConfig tunes the heuristic that asks for confirmation before
// the first checkpoint of a big tree.
type LargeDirectoryConfig struct {
	MaxDepth  int `yaml:"max_depth"`
	Threshold int `yaml:"threshold"`
}

// LookPathFunc is the function signature for looking up executables.
type LookPathFunc func(name string) (string, error)

func DefaultConfig() Config {
	return Config{
		Theme:    "mocha",
		LogLevel: "info",
		Git:      "git",
		Shell:    "/bin/sh",
		Elevator: "pkexec",
		LargeDirectory: LargeDirectoryConfig{
			MaxDepth:  3,
			Threshold: 500,
		},
	}
}

func Load() (Config, error) {
	return LoadFrom(Path(""))
}

// LoadFromDir loads config.yaml from an explicit configuration directory.
func LoadFromDir(dir string) (Config, error) {
	return LoadFrom(Path(dir))
}

func LoadFrom(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", configPath, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills fields an explicit empty value in the file cleared.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Theme == "" {
		c.Theme = def.Theme
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Git == "" {
		c.Git = def.Git
	}
	if c.Shell == "" {
		c.Shell = def.Shell
	}
	if c.Elevator == "" {
		c.Elevator = def.Elevator
	}
	if c.LargeDirectory.MaxDepth <= 0 {
		c.LargeDirectory.MaxDepth = def.LargeDirectory.MaxDepth
	}
	if c.LargeDirectory.Threshold <= 0 {
		c.LargeDirectory.Threshold = def.LargeDirectory.Threshold
	}
}

// Validate checks that the git binary can be found.
func (c *Config) Validate() error {
	return c.ValidateWith(exec.LookPath)
}

// ValidateWith is Validate with an injectable executable lookup.
func (c *Config) ValidateWith(lookPath LookPathFunc) error {
	if _, err := lookPath(c.Git); err != nil {
		return fmt.Errorf("git executable %q not found: %w", c.Git, err)
	}
	if _, err := lookPath(c.Shell); err != nil {
		return fmt.Errorf("shell %q not found: %w", c.Shell, err)
	}
	return nil
}

// Dir returns the configuration directory: override when set, otherwise
// $XDG_CONFIG_HOME/restorepoint or ~/.config/restorepoint.
func Dir(override string) string {
	if override != "" {
		return override
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", appName)
	}

	return filepath.Join(home, ".config", appName)
}

// Path returns the config file location inside Dir(override).
func Path(override string) string {
	return filepath.Join(Dir(override), "config.yaml")
}
