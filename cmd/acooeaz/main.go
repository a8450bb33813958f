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

// Command acooeaz rebuilds the search indexes, runs the AI enrichment,
// queries the compendium and serves the HTTP API.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/acooeaz/config"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

func newApp() *cli.App {
	return &cli.App{
		Name:  "acooeaz",
		Usage: "Cross-reference the drug compendium with journal articles",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				EnvVars: []string{config.EnvPrefix + "_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error), overrides the configuration",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "import",
				Usage:  "Import a JSON bundle of vocabulary, drugs and articles",
				Action: importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Bundle file",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "fringe",
						Usage: "Keep parallel imports, faulty records and products not in trade",
					},
				},
			},
			{
				Name:   "rebuild",
				Usage:  "Drop and rebuild all search indexes",
				Action: rebuildCommand,
			},
			{
				Name:      "search-drug",
				Usage:     "Look up drugs by name",
				ArgsUsage: "<name>",
				Action:    searchDrugCommand,
			},
			{
				Name:      "search-active",
				Usage:     "Look up drugs by active substance",
				ArgsUsage: "<substance>",
				Action:    searchActiveCommand,
			},
			{
				Name:      "search-articles",
				Usage:     "Look up articles by product, substance or disease",
				ArgsUsage: "<text>",
				Action:    searchArticlesCommand,
			},
			{
				Name:      "articles-for-drug",
				Usage:     "List the articles related to a drug",
				ArgsUsage: "<registration number>",
				Action:    articlesForDrugCommand,
			},
			{
				Name:   "enrich",
				Usage:  "Derive keywords and product data for raw documents with the language model",
				Action: enrichCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of concurrent model calls",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents submitted per batch",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per document",
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
					},
					&cli.BoolFlag{
						Name:  "rebuild",
						Usage: "Rebuild the indexes afterwards",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and run the rebuild schedule",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address, overrides the configuration",
					},
					&cli.StringFlag{
						Name:  "schedule",
						Usage: "Cron spec for index rebuilds, overrides the configuration",
					},
				},
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// setup loads the configuration and installs the logger.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", cfg.LogLevel)
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func configFrom(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
