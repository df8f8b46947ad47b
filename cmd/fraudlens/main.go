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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/fraudlens"
	"github.com/poiesic/fraudlens/config"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

// openEngine builds the engine for commands that need the store and provider.
var openEngine = func(ctx context.Context, cfg *config.Config) (*fraudlens.Engine, error) {
	return fraudlens.Open(ctx, cfg)
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "fraudlens",
		Usage: "Classify, embed and search consumer-finance fraud articles",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "PostgreSQL connection string; selects the postgres store",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Classify, embed and store scraped articles from JSONL or CSV",
				ArgsUsage: "FILE (use - for stdin)",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Input format (jsonl, csv); inferred from the file extension when empty",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of articles processed concurrently",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "Path to a JSON linear model used for ML predictions",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of articles stored per batch",
						Value: 100,
					},
				},
			},
			{
				Name:      "classify",
				Usage:     "Classify text against the fraud rule table",
				ArgsUsage: "[TEXT...] (reads stdin when empty)",
				Action:    classifyCommand,
			},
			{
				Name:      "search",
				Usage:     "Semantic search over stored articles",
				ArgsUsage: "QUERY...",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "preset",
						Aliases: []string{"p"},
						Usage:   "Run a canned query (see the presets command)",
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
					},
					&cli.IntFlag{
						Name:  "year",
						Usage: "Only articles published in this year",
					},
					&cli.StringFlag{
						Name:  "keyword",
						Usage: "Only articles containing this keyword",
					},
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Only results scoring at least this similarity",
					},
				},
			},
			{
				Name:   "alerts",
				Usage:  "List recent articles that meet the alert policy",
				Action: alertsCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "scan",
						Usage: "Number of recent articles to scan",
						Value: 500,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of alerts to show",
						Value: 20,
					},
				},
			},
			{
				Name:   "trends",
				Usage:  "Summarize fraud tags and types over stored articles",
				Action: trendsCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "year",
						Usage: "Restrict to one publication year",
					},
					&cli.IntFlag{
						Name:  "top",
						Usage: "Number of entries per ranking",
						Value: 5,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Backfill or refresh article embeddings",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "missing-only",
						Usage: "Only embed articles that have no embedding",
					},
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Bypass the embedding cache and overwrite stored vectors",
					},
					&cli.BoolFlag{
						Name:  "resume",
						Usage: "Continue after the last saved checkpoint",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of articles to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N articles",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "presets",
				Usage:  "List canned search queries",
				Action: presetsCommand,
			},
		},
	}
}

// setup loads the configuration, applies global flag overrides and configures logging.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	if c.IsSet("db") {
		cfg.Store.Driver = config.DriverBadger
		cfg.Store.Path = c.String("db")
	}
	if c.IsSet("dsn") {
		cfg.Store.Driver = config.DriverPostgres
		cfg.Store.DSN = c.String("dsn")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := setupLogger(cfg.LogLevel); err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func appConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

func setupLogger(levelStr string) error {
	levelStr, err := config.ParseLogLevel(levelStr)
	if err != nil {
		return err
	}

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func withEngine(c *cli.Context, cfg *config.Config, fn func(*fraudlens.Engine) error) error {
	engine, err := openEngine(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()
	return fn(engine)
}
