// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"stroke-pipeline/internal/paths"

	"gopkg.in/yaml.v3"
)

// DefaultSimilarityThreshold is the cosine cut-off below which a record is
// treated as a population-level outlier
const DefaultSimilarityThreshold = 0.82

// ConfigEnvVar names an explicit configuration file
const ConfigEnvVar = "STROKE_PIPELINE_CONFIG"

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format    string `yaml:"format"`
		Verbose   bool   `yaml:"verbose"`
		Debug     bool   `yaml:"debug"`
		NoColor   bool   `yaml:"no_color"`
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
		Parallel  int    `yaml:"parallel"`
		Catalog   string `yaml:"catalog"`
		AssetsDir string `yaml:"assets_dir"`
	} `yaml:"defaults"`

	Validation struct {
		SimilarityThreshold float64 `yaml:"similarity_threshold"`
	} `yaml:"validation"`

	// Audit store; an empty DSN disables it
	Store struct {
		DSN string `yaml:"dsn"`
	} `yaml:"store"`

	Notify struct {
		Slack struct {
			Token   string `yaml:"token"`
			Channel string `yaml:"channel"`
			APIURL  string `yaml:"api_url"`
		} `yaml:"slack"`
	} `yaml:"notify"`

	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`

	// Profiles for different use cases
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile represents a named set of flag defaults. Unset booleans are nil
// and leave the defaults untouched.
type Profile struct {
	Format              string  `yaml:"format"`
	Verbose             *bool   `yaml:"verbose"`
	Debug               *bool   `yaml:"debug"`
	NoColor             *bool   `yaml:"no_color"`
	Catalog             string  `yaml:"catalog"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	Description         string  `yaml:"description"`
}

func boolPtr(b bool) *bool {
	return &b
}

// defaultConfig returns the built-in configuration
func defaultConfig() *Config {
	config := &Config{}
	config.Defaults.Format = "text"
	config.Defaults.LogLevel = "warn"
	config.Defaults.LogFormat = "text"
	config.Defaults.Parallel = 1
	config.Validation.SimilarityThreshold = DefaultSimilarityThreshold
	config.Server.Port = 8080
	config.Profiles = map[string]Profile{
		"review": {
			Format:      "text",
			Verbose:     boolPtr(true),
			Description: "Full stage-by-stage walkthrough with source documents for clinician review",
		},
		"export": {
			Format:      "csv",
			NoColor:     boolPtr(true),
			Description: "Corrected record and prediction as a single CSV row",
		},
	}
	return config
}

// LoadConfig loads configuration from a file; an empty path returns the defaults
func LoadConfig(configPath string) (*Config, error) {
	config := defaultConfig()
	if configPath == "" {
		return config, nil
	}

	cleanPath := filepath.Clean(paths.ExpandHome(configPath))
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	builtin := config.Profiles
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// yaml replaces the map wholesale; keep built-ins the file does not override
	if config.Profiles == nil {
		config.Profiles = map[string]Profile{}
	}
	for name, profile := range builtin {
		if _, ok := config.Profiles[name]; !ok {
			config.Profiles[name] = profile
		}
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	if explicit := os.Getenv(ConfigEnvVar); explicit != "" {
		return explicit
	}
	for _, name := range []string{"stroke-pipeline.yaml", "stroke-pipeline.yml", ".stroke-pipeline.yaml"} {
		if fileExists(name) {
			return name
		}
	}
	if standard := paths.GetConfigFile(); fileExists(standard) {
		return standard
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns the available profile names, sorted
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// ValidateConfig checks ranges and paths
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if err := ValidateThreshold(config.Validation.SimilarityThreshold); err != nil {
		return err
	}
	if config.Defaults.Parallel < 1 {
		return fmt.Errorf("defaults.parallel must be at least 1, got %d", config.Defaults.Parallel)
	}
	if config.Server.Port < 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", config.Server.Port)
	}
	for _, p := range []struct{ name, value string }{
		{"defaults.catalog", config.Defaults.Catalog},
		{"defaults.assets_dir", config.Defaults.AssetsDir},
	} {
		if p.value == "" {
			continue
		}
		if err := paths.ValidatePath(p.value); err != nil {
			return fmt.Errorf("invalid %s: %w", p.name, err)
		}
	}
	for name, profile := range config.Profiles {
		if profile.SimilarityThreshold != 0 {
			if err := ValidateThreshold(profile.SimilarityThreshold); err != nil {
				return fmt.Errorf("profile '%s': %w", name, err)
			}
		}
	}
	return nil
}

// ValidateThreshold checks a cosine similarity threshold is in (0, 1]. NaN
// fails every comparison, so the check is written to reject it.
func ValidateThreshold(t float64) error {
	if !(t > 0 && t <= 1) {
		return fmt.Errorf("similarity_threshold must be in (0, 1], got %v", t)
	}
	return nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns a default configuration
// together with the load error so the caller can report it.
func LoadConfigOrDefault(configFile string) (*Config, error) {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return defaultConfig(), err
	}
	return cfg, nil
}
