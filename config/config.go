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

// Package config loads the acooeaz configuration.
//
// Values come from three layers, later layers winning: a YAML file (with
// ${VAR} references expanded from the environment), a .env file in the
// working directory, and ACOOEAZ_* environment variables such as
// ACOOEAZ_STORE_DSN or ACOOEAZ_SEARCH_ADDRESSES.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/poiesic/acooeaz/storage"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ACOOEAZ"

// Store drivers.
const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// Search engines.
const (
	EngineBadger  = "badger"
	EngineElastic = "elastic"
)

var (
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrUnknownEngine = errors.New("unknown search engine")
	ErrMissingValue  = errors.New("missing configuration value")
)

type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Search   SearchConfig   `yaml:"search"`
	Index    IndexConfig    `yaml:"index"`
	AI       AIConfig       `yaml:"ai"`
	Enrich   EnrichConfig   `yaml:"enrich"`
	Server   ServerConfig   `yaml:"server"`
	Schedule ScheduleConfig `yaml:"schedule"`
	LogLevel string         `yaml:"log_level" split_words:"true"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	// Path is the badger directory.
	Path string `yaml:"path"`
	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn"`
	// RefreshInterval bounds how long a badger scan holds one transaction.
	RefreshInterval time.Duration `yaml:"refresh_interval" split_words:"true"`
}

type SearchConfig struct {
	Engine string `yaml:"engine"`
	// Path is the badger directory of the embedded engine. Empty shares the
	// document store's backend when the store is badger too.
	Path      string   `yaml:"path"`
	Addresses []string `yaml:"addresses"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	// Size is the number of hits requested per query.
	Size int `yaml:"size"`
}

type IndexConfig struct {
	// RelevantSection selects the articles that are indexed and enriched.
	RelevantSection string `yaml:"relevant_section" split_words:"true"`
}

type AIConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
	Token string `yaml:"token"`
}

type EnrichConfig struct {
	PoolSize       int           `yaml:"pool_size" split_words:"true"`
	BatchSize      int           `yaml:"batch_size" split_words:"true"`
	MaxRetries     int           `yaml:"max_retries" split_words:"true"`
	RetryDelay     time.Duration `yaml:"retry_delay" split_words:"true"`
	ReportInterval int           `yaml:"report_interval" split_words:"true"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type ScheduleConfig struct {
	// Rebuild is a standard five-field cron spec. Empty disables it.
	Rebuild string `yaml:"rebuild"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

// Load reads the YAML file at path (optional), applies .env and
// environment overrides, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = DriverBadger
	}
	if c.Store.Path == "" && c.Store.Driver == DriverBadger {
		c.Store.Path = "./data/acooeaz"
	}
	if c.Store.RefreshInterval == 0 {
		c.Store.RefreshInterval = 5 * time.Minute
	}
	if c.Search.Engine == "" {
		c.Search.Engine = EngineBadger
	}
	if c.Search.Size == 0 {
		c.Search.Size = 10
	}
	if c.Index.RelevantSection == "" {
		c.Index.RelevantSection = storage.DefaultSectionPattern
	}
	if c.AI.Host == "" {
		c.AI.Host = "http://localhost:11434/v1"
	}
	if c.AI.Model == "" {
		c.AI.Model = "qwen2.5:7b"
	}
	if c.Enrich.PoolSize == 0 {
		c.Enrich.PoolSize = 4
	}
	if c.Enrich.BatchSize == 0 {
		c.Enrich.BatchSize = 50
	}
	if c.Enrich.MaxRetries == 0 {
		c.Enrich.MaxRetries = 3
	}
	if c.Enrich.RetryDelay == 0 {
		c.Enrich.RetryDelay = time.Second
	}
	if c.Enrich.ReportInterval == 0 {
		c.Enrich.ReportInterval = 25
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the combination of drivers and their required settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverBadger:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store.path", ErrMissingValue)
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: store.dsn", ErrMissingValue)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Store.Driver)
	}

	switch c.Search.Engine {
	case EngineBadger:
		if c.Search.Path == "" && c.Store.Driver != DriverBadger {
			return fmt.Errorf("%w: search.path (the embedded engine needs its own directory)", ErrMissingValue)
		}
	case EngineElastic:
		if len(c.Search.Addresses) == 0 {
			return fmt.Errorf("%w: search.addresses", ErrMissingValue)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEngine, c.Search.Engine)
	}

	if c.Search.Size < 1 {
		return fmt.Errorf("search.size must be positive, got %d", c.Search.Size)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return level, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}
