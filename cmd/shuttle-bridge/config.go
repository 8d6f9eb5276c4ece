// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the bridge daemon configuration, loaded from a YAML file.
// The file is optional; the defaults run a loopback TCP bridge with the
// token taken from the environment.
type Config struct {
	// Listen is the TCP listen address. Must be a loopback address.
	Listen string `yaml:"listen"`

	// WebSocketListen is an optional second listen address serving the
	// same protocol over binary websocket messages, for UI hosts that
	// cannot open raw TCP sockets. Empty disables it.
	WebSocketListen string `yaml:"websocket_listen"`

	// TokenFile is the path to a file holding the shared handshake
	// secret. When empty, the SHUTTLE_TOKEN environment variable is
	// used instead. The token never appears on the command line.
	TokenFile string `yaml:"token_file"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Upstream optionally binds a workbench server at startup. When
	// URL is empty the bridge starts unbound and waits for a connect
	// request.
	Upstream UpstreamConfig `yaml:"upstream"`
}

// UpstreamConfig identifies a workbench server.
type UpstreamConfig struct {
	URL       string `yaml:"url"`
	Directory string `yaml:"directory"`
}

// DefaultConfig returns the base configuration applied before the
// config file is read.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:4096",
		LogLevel: "info",
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return config, nil
}

// Validate checks field values that would otherwise fail at startup
// with a less helpful error.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// ReadToken resolves the shared handshake secret: the token file when
// configured, the SHUTTLE_TOKEN environment variable otherwise.
func (c *Config) ReadToken() (string, error) {
	if c.TokenFile != "" {
		data, err := os.ReadFile(c.TokenFile)
		if err != nil {
			return "", fmt.Errorf("reading token file: %w", err)
		}
		token := strings.TrimSpace(string(data))
		if token == "" {
			return "", fmt.Errorf("token file %s is empty", c.TokenFile)
		}
		return token, nil
	}
	if token := os.Getenv("SHUTTLE_TOKEN"); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("no token configured: set token_file in the config or the SHUTTLE_TOKEN environment variable")
}
