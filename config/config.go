// Package config loads fraudlens settings from a YAML file, a .env file and the environment.
//
// Precedence, lowest first: built-in defaults, the YAML file, then environment
// variables. A .env file in the working directory is loaded into the environment
// first; variables already set in the process win over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/fraudlens/ai"
	"github.com/poiesic/fraudlens/alert"
	"github.com/poiesic/fraudlens/core"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// Environment variables that override file settings.
const (
	EnvAPIKey         = "OPENAI_API_KEY"
	EnvEmbeddingHost  = "FRAUDLENS_EMBEDDING_HOST"
	EnvEmbeddingModel = "FRAUDLENS_EMBEDDING_MODEL"
	EnvDBPath         = "FRAUDLENS_DB"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvLogLevel       = "FRAUDLENS_LOG_LEVEL"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Alert     AlertConfig     `yaml:"alert"`
	Ingest    IngestConfig    `yaml:"ingest"`
	RulesPath string          `yaml:"rules_path"`
	ModelPath string          `yaml:"model_path"`
	LogLevel  string          `yaml:"log_level"`
}

// StoreConfig selects and locates the article store.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Host       string `yaml:"host"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	TopK          int      `yaml:"top_k"`
	MinSimilarity *float32 `yaml:"min_similarity"`
	Candidates    int      `yaml:"candidates"`
}

// AlertConfig holds the alert policy.
type AlertConfig struct {
	HighRisk    []string `yaml:"high_risk"`
	MLThreshold float64  `yaml:"ml_threshold"`
}

// IngestConfig tunes batch ingestion.
type IngestConfig struct {
	Workers       int `yaml:"workers"`
	MaxEmbedChars int `yaml:"max_embed_chars"`
}

// Default returns the built-in configuration.
func Default() *Config {
	highRisk := make([]string, 0, 4)
	for _, t := range alert.DefaultHighRisk() {
		highRisk = append(highRisk, string(t))
	}
	return &Config{
		Store: StoreConfig{
			Driver: DriverBadger,
			Path:   "fraudlens.db",
		},
		Embedding: EmbeddingConfig{
			Host:       ai.DefaultEmbeddingHost,
			Model:      ai.DefaultEmbeddingModel,
			Dimensions: core.EmbeddingDimensions,
		},
		Search: SearchConfig{
			TopK:       10,
			Candidates: 100,
		},
		Alert: AlertConfig{
			HighRisk:    highRisk,
			MLThreshold: alert.DefaultMLThreshold,
		},
		Ingest: IngestConfig{
			Workers:       4,
			MaxEmbedChars: 6000,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration. path names an optional YAML file; an empty path
// skips it. The result is validated.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to parse YAML: %w", ErrInvalidConfig, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables found by lookup.
// DATABASE_URL also switches the driver to postgres.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvAPIKey, &c.Embedding.APIKey)
	set(EnvEmbeddingHost, &c.Embedding.Host)
	set(EnvEmbeddingModel, &c.Embedding.Model)
	set(EnvDBPath, &c.Store.Path)
	set(EnvLogLevel, &c.LogLevel)
	if v, ok := lookup(EnvDatabaseURL); ok && v != "" {
		c.Store.DSN = v
		c.Store.Driver = DriverPostgres
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch c.Store.Driver {
	case DriverBadger:
		if c.Store.Path == "" {
			return invalid("store.path is required for the badger driver")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return invalid("store.dsn is required for the postgres driver")
		}
	default:
		return invalid("store.driver must be %q or %q, got %q", DriverBadger, DriverPostgres, c.Store.Driver)
	}

	if err := c.AI().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Search.TopK < 1 {
		return invalid("search.top_k must be at least 1")
	}
	if c.Search.Candidates < 1 {
		return invalid("search.candidates must be at least 1")
	}
	if ms := c.Search.MinSimilarity; ms != nil && (*ms < -1 || *ms > 1) {
		return invalid("search.min_similarity must be within [-1, 1]")
	}
	if c.Alert.MLThreshold < 0 || c.Alert.MLThreshold > 1 {
		return invalid("alert.ml_threshold must be within [0, 1]")
	}
	if c.Ingest.Workers < 1 {
		return invalid("ingest.workers must be at least 1")
	}
	if c.Ingest.MaxEmbedChars < 1 {
		return invalid("ingest.max_embed_chars must be at least 1")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AI returns the embedding provider configuration.
func (c *Config) AI() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIKey(c.Embedding.APIKey),
		ai.WithDimensions(c.Embedding.Dimensions),
	)
}

// AlertPolicy returns the alert evaluator configuration.
func (c *Config) AlertPolicy() alert.Config {
	types := make([]core.FraudType, len(c.Alert.HighRisk))
	for i, t := range c.Alert.HighRisk {
		types[i] = core.FraudType(strings.TrimSpace(t))
	}
	return alert.Config{HighRisk: types, MLThreshold: c.Alert.MLThreshold}
}

var logLevels = []string{"debug", "info", "warn", "error"}

// ParseLogLevel validates a level name, case-insensitively.
func ParseLogLevel(level string) (string, error) {
	l := strings.ToLower(strings.TrimSpace(level))
	if !slices.Contains(logLevels, l) {
		return "", fmt.Errorf("log level must be one of %s, got %s", strings.Join(logLevels, ", "), strconv.Quote(level))
	}
	return l, nil
}
