// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"errors"
	"strings"
)

// Config holds the settings for AI service providers.
type Config struct {
	// Host is the base URL of the OpenAI-compatible API.
	// Example: "http://localhost:11434/v1" for a local Ollama server
	Host string

	// Model is the chat model used for metadata extraction.
	// Example: "qwen2.5:7b", "gpt-4o-mini"
	Model string

	// Token is the API token. Local servers accept any value.
	Token string

	// MaxInputChars truncates article text before it is sent to the model.
	// Zero disables truncation.
	// Default: 12000
	MaxInputChars int
}

// ConfigOption is a functional option for configuring Config.
type ConfigOption func(*Config)

// WithHost sets the API base URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the chat model.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithToken sets the API token.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithMaxInputChars sets the article text limit.
func WithMaxInputChars(n int) ConfigOption {
	return func(c *Config) {
		c.MaxInputChars = n
	}
}

// DefaultConfig returns a Config pointing at a local Ollama server.
func DefaultConfig() *Config {
	return &Config{
		Host:          "http://localhost:11434/v1",
		Model:         "qwen2.5:7b",
		Token:         "none",
		MaxInputChars: 12000,
	}
}

// NewConfig creates a Config from the defaults and the given options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize makes sure Host ends with /v1 and fills in a placeholder token.
func (c *Config) Normalize() {
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
	if c.Token == "" {
		c.Token = "none"
	}
}

// Validate normalizes the config and checks required fields.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.MaxInputChars < 0 {
		return errors.New("ai config: MaxInputChars must not be negative")
	}
	return nil
}
