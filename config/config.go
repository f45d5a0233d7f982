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

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/rapport/ai"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// AI providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// EnvPrefix prefixes every environment override, e.g. RAPPORT_STORAGE_BACKEND.
const EnvPrefix = "RAPPORT"

// Config is the complete application configuration.
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	AI         AIConfig         `mapstructure:"ai"`
	Matching   MatchingConfig   `mapstructure:"matching"`
	Server     ServerConfig     `mapstructure:"server"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Log        LogConfig        `mapstructure:"log"`
}

// StorageConfig selects and locates the profile store.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`

	// Path is the badger directory.
	Path string `mapstructure:"path"`

	// DSN is the sqlite file or postgres connection string.
	DSN     string `mapstructure:"dsn"`
	DSNFile string `mapstructure:"dsn_file"`
}

// AIConfig selects the embedding and narrative provider.
type AIConfig struct {
	Provider          string  `mapstructure:"provider"`
	EmbeddingHost     string  `mapstructure:"embedding_host"`
	NarrativeHost     string  `mapstructure:"narrative_host"`
	EmbeddingModel    string  `mapstructure:"embedding_model"`
	NarrativeModel    string  `mapstructure:"narrative_model"`
	APIKey            string  `mapstructure:"api_key"`
	APIKeyFile        string  `mapstructure:"api_key_file"`
	Temperature       float64 `mapstructure:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	MaxBatchSize      int     `mapstructure:"max_batch_size"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// MatchingConfig tunes the match engine.
type MatchingConfig struct {
	// PoolSize is the number of scoring workers; zero means one per CPU.
	PoolSize      int  `mapstructure:"pool_size"`
	LiveEmbedding bool `mapstructure:"live_embedding"`
	Explain       bool `mapstructure:"explain"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// EnrichmentConfig enables Diffbot lookups at signup when a token is set.
type EnrichmentConfig struct {
	DiffbotToken     string        `mapstructure:"diffbot_token"`
	DiffbotTokenFile string        `mapstructure:"diffbot_token_file"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// LogConfig configures the default slog logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

func setDefaults(v *viper.Viper) {
	d := ai.DefaultConfig()

	v.SetDefault("storage.backend", BackendBadger)
	v.SetDefault("storage.path", "rapport.db")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.dsn_file", "")

	v.SetDefault("ai.provider", ProviderOpenAI)
	v.SetDefault("ai.embedding_host", d.EmbeddingHost)
	v.SetDefault("ai.narrative_host", d.NarrativeHost)
	v.SetDefault("ai.embedding_model", d.EmbeddingModel)
	v.SetDefault("ai.narrative_model", d.NarrativeModel)
	v.SetDefault("ai.api_key", d.APIKey)
	v.SetDefault("ai.api_key_file", "")
	v.SetDefault("ai.temperature", d.Temperature)
	v.SetDefault("ai.max_tokens", d.MaxTokens)
	v.SetDefault("ai.max_batch_size", d.MaxBatchSize)
	v.SetDefault("ai.requests_per_second", d.RequestsPerSecond)

	v.SetDefault("matching.pool_size", 0)
	v.SetDefault("matching.live_embedding", false)
	v.SetDefault("matching.explain", true)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", 30*time.Second)

	v.SetDefault("enrichment.diffbot_token", "")
	v.SetDefault("enrichment.diffbot_token_file", "")
	v.SetDefault("enrichment.timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// Load reads configuration from path, or from rapport.yaml in the working
// directory when path is empty, then applies RAPPORT_* environment
// overrides and resolves secret files. A missing default file is not an
// error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("rapport")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.resolveSecrets(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolveSecrets() error {
	var err error
	if c.AI.APIKeyFile != "" {
		if c.AI.APIKey, err = loadSecret("ai api key", c.AI.APIKey, c.AI.APIKeyFile); err != nil {
			return err
		}
	}
	if c.Storage.DSNFile != "" {
		if c.Storage.DSN, err = loadSecret("storage dsn", c.Storage.DSN, c.Storage.DSNFile); err != nil {
			return err
		}
	}
	if c.Enrichment.DiffbotTokenFile != "" {
		if c.Enrichment.DiffbotToken, err = loadSecret("diffbot token", c.Enrichment.DiffbotToken, c.Enrichment.DiffbotTokenFile); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks backend and provider selections and the AI settings.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendBadger:
		if c.Storage.Path == "" {
			return errors.New("config: storage.path is required for badger")
		}
	case BackendSQLite, BackendPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: storage.dsn is required for %s", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}

	switch c.AI.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderMock:
	default:
		return fmt.Errorf("config: unknown ai provider %q", c.AI.Provider)
	}
	if c.AI.RequestsPerSecond < 0 {
		return errors.New("config: ai.requests_per_second cannot be negative")
	}
	if c.Matching.PoolSize < 0 {
		return errors.New("config: matching.pool_size cannot be negative")
	}
	if c.Server.RequestTimeout < 0 {
		return errors.New("config: server.request_timeout cannot be negative")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return c.AI.ProviderConfig().Validate()
}

// ProviderConfig converts the AI section into provider settings.
func (a AIConfig) ProviderConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(a.EmbeddingHost),
		ai.WithNarrativeHost(a.NarrativeHost),
		ai.WithEmbeddingModel(a.EmbeddingModel),
		ai.WithNarrativeModel(a.NarrativeModel),
		ai.WithAPIKey(a.APIKey),
		ai.WithTemperature(a.Temperature),
		ai.WithMaxTokens(a.MaxTokens),
		ai.WithMaxBatchSize(a.MaxBatchSize),
		ai.WithRequestsPerSecond(a.RequestsPerSecond),
	)
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}
