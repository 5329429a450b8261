// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"pulseviz/pkg/bitint"
)

// LoadConfig loads configuration from a YAML file. If path is empty it
// probes default locations and falls back to built-in defaults when no
// file exists. Environment overrides apply after the file, and the final
// configuration is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{
			"pulseviz.yaml",
			"config.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			cfg.normalize()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// normalize rounds file-supplied values into the shapes Validate demands
// where a round-up is friendlier than an error.
func (c *Config) normalize() {
	if c.Analysis.FFTSize > 0 {
		c.Analysis.FFTSize = bitint.NextPowerOfTwo(c.Analysis.FFTSize)
	}
}

// applyEnvOverrides lets deployment environments flip transport and link
// settings without editing the file.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("PULSEVIZ_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("PULSEVIZ_WS_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = b
		}
	}
	if val, ok := os.LookupEnv("PULSEVIZ_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
		}
	}
	if val, ok := os.LookupEnv("PULSEVIZ_UDP_TARGET"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("PULSEVIZ_LINK_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Link.Enabled = b
		}
	}
}
