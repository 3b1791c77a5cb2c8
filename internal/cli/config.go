package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/xyproto/env/v2"

	"github.com/orizon-lang/treeopt/internal/errors"
)

// Default configuration values
const (
	DefaultStdlibRoot      = "/usr/lib/python"
	DefaultLanguageVersion = "2.7"
	DefaultMaxRounds       = 64
)

// Config represents the configuration of an optimization session
type Config struct {
	// FollowStdlib allows module recursion into the standard library
	FollowStdlib bool `json:"follow_stdlib"`
	// StdlibRoot is the installation root of the standard library
	StdlibRoot string `json:"stdlib_root"`
	// SearchPaths are tried in order when resolving absolute imports
	SearchPaths []string `json:"search_paths"`
	// LanguageVersion selects version dependent rewrite rules
	LanguageVersion string `json:"language_version"`
	// MaxRounds bounds the fixed-point loop, 0 means unbounded
	MaxRounds int `json:"max_rounds"`
	// EnableLenSpecialization opts into the len() rewrite, which is not
	// safe against writes to module variables from other modules
	EnableLenSpecialization bool `json:"enable_len_specialization"`

	Verbose bool   `json:"verbose"`
	Debug   bool   `json:"debug"`
	WorkDir string `json:"work_dir"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		StdlibRoot:      DefaultStdlibRoot,
		LanguageVersion: DefaultLanguageVersion,
		MaxRounds:       DefaultMaxRounds,
		WorkDir:         ".",
	}
}

// LoadConfig loads configuration from file, then applies environment
// overrides. A missing file yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
			// Default config if file doesn't exist
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides fields from TREEOPT_* environment variables. The
// environment is read again on every call.
func (c *Config) ApplyEnv() {
	env.Load()
	if env.Has("TREEOPT_FOLLOW_STDLIB") {
		c.FollowStdlib = env.Bool("TREEOPT_FOLLOW_STDLIB")
	}
	c.StdlibRoot = env.Str("TREEOPT_STDLIB_ROOT", c.StdlibRoot)
	c.LanguageVersion = env.Str("TREEOPT_LANGUAGE_VERSION", c.LanguageVersion)
	c.MaxRounds = env.Int("TREEOPT_MAX_ROUNDS", c.MaxRounds)
	if path := env.Str("TREEOPT_PATH"); path != "" {
		c.SearchPaths = append(c.SearchPaths, filepath.SplitList(path)...)
	}
	if env.Has("TREEOPT_VERBOSE") {
		c.Verbose = env.Bool("TREEOPT_VERBOSE")
	}
	if env.Has("TREEOPT_DEBUG") {
		c.Debug = env.Bool("TREEOPT_DEBUG")
	}
}

// Validate checks the configuration for values the engine cannot use
func (c *Config) Validate() error {
	if _, err := semver.NewVersion(c.LanguageVersion); err != nil {
		return errors.InvalidConfig("language_version", c.LanguageVersion, err.Error())
	}
	if c.MaxRounds < 0 {
		return errors.InvalidConfig("max_rounds", c.MaxRounds, "must not be negative")
	}
	if c.StdlibRoot == "" {
		return errors.InvalidConfig("stdlib_root", c.StdlibRoot, "must not be empty")
	}
	return nil
}

// SaveConfig saves configuration to file
func (c *Config) SaveConfig(configPath string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
