// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the settings of the dcmdump command, read from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config represents the dcmdump configuration.
type Config struct {
	// Parse settings
	Parse struct {
		// DefaultCharacterSet is the WHATWG label of the encoding used for character set
		// sensitive values when a file has no Specific Character Set
		DefaultCharacterSet string `yaml:"defaultCharacterSet"`
	} `yaml:"parse"`

	// Output settings
	Output struct {
		Format  string `yaml:"format"`
		Verbose bool   `yaml:"verbose"`
	} `yaml:"output"`

	// Decode settings
	Decode struct {
		Workers int `yaml:"workers"`
	} `yaml:"decode"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Parse.DefaultCharacterSet = "utf-8"
	cfg.Output.Format = FormatText
	cfg.Output.Verbose = false
	cfg.Decode.Workers = runtime.NumCPU()
	return cfg
}

// Validate reports settings dcmdump cannot run with.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q, want %q or %q", c.Output.Format, FormatText, FormatJSON)
	}
	if c.Parse.DefaultCharacterSet == "" {
		return fmt.Errorf("default character set is empty")
	}
	if c.Decode.Workers < 0 {
		return fmt.Errorf("negative decode workers: %d", c.Decode.Workers)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file. Settings absent from the file keep their
// defaults, and a missing file yields DefaultConfig.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves configuration to a YAML file, creating its directory if needed.
func SaveConfig(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}
