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

package rapport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/rapport/ai"
	"github.com/poiesic/rapport/ai/gemini"
	"github.com/poiesic/rapport/ai/mock"
	"github.com/poiesic/rapport/ai/openai"
	"github.com/poiesic/rapport/config"
	"github.com/poiesic/rapport/enrich/diffbot"
	"github.com/poiesic/rapport/explain"
	"github.com/poiesic/rapport/matching"
	"github.com/poiesic/rapport/reembed"
	"github.com/poiesic/rapport/signup"
	"github.com/poiesic/rapport/storage"
	"github.com/poiesic/rapport/storage/badger"
	"github.com/poiesic/rapport/storage/sqlstore"
)

// Database bundles the configured profile store and AI provider.
type Database struct {
	config   *config.Config
	profiles storage.ProfileRepository
	matches  storage.MatchRepository
	closers  []func() error
	provider ai.AIProvider
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithProvider uses provider instead of the one named in the config.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// Open connects the storage backend and AI provider selected by cfg.
func Open(ctx context.Context, cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	db := &Database{config: cfg, logger: options.logger}
	if err := db.openStorage(ctx); err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		var err error
		if provider, err = newProvider(ctx, cfg.AI); err != nil {
			db.closeStorage()
			return nil, err
		}
	}
	db.provider = provider

	db.logger.Debug("database opened",
		"backend", cfg.Storage.Backend,
		"provider", cfg.AI.Provider,
		"embedding_model", cfg.AI.EmbeddingModel)
	return db, nil
}

func (db *Database) openStorage(ctx context.Context) error {
	switch db.config.Storage.Backend {
	case config.BackendBadger:
		backend, err := badger.OpenBackend(db.config.Storage.Path, false)
		if err != nil {
			return err
		}
		profiles, err := badger.NewProfileRepository(backend)
		if err != nil {
			backend.Close()
			return err
		}
		matches, err := badger.NewMatchRepository(backend)
		if err != nil {
			profiles.Close()
			backend.Close()
			return err
		}
		db.profiles, db.matches = profiles, matches
		db.closers = []func() error{matches.Close, profiles.Close, backend.Close}

	case config.BackendSQLite, config.BackendPostgres:
		dialect, err := sqlstore.ParseDialect(db.config.Storage.Backend)
		if err != nil {
			return err
		}
		store, err := sqlstore.Open(ctx, dialect, db.config.Storage.DSN)
		if err != nil {
			return err
		}
		db.profiles = sqlstore.NewProfileRepository(store)
		db.matches = sqlstore.NewMatchRepository(store)
		db.closers = []func() error{db.matches.Close, db.profiles.Close, store.Close}

	default:
		return fmt.Errorf("unknown storage backend %q", db.config.Storage.Backend)
	}
	return nil
}

func newProvider(ctx context.Context, cfg config.AIConfig) (ai.AIProvider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewProvider(cfg.ProviderConfig())
	case config.ProviderGemini:
		return gemini.NewProvider(ctx, cfg.ProviderConfig())
	case config.ProviderMock:
		return mock.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

// Close releases the provider and the storage backend.
func (db *Database) Close() error {
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	return db.closeStorage()
}

func (db *Database) closeStorage() error {
	var errs []error
	for _, c := range db.closers {
		if err := c(); err != nil {
			db.logger.Error("error closing storage", "err", err)
			errs = append(errs, err)
		}
	}
	db.closers = nil
	return errors.Join(errs...)
}

func (db *Database) ProfileRepository() storage.ProfileRepository {
	return db.profiles
}

func (db *Database) MatchRepository() storage.MatchRepository {
	return db.matches
}

func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// NewEngine creates a match engine configured from the matching and AI
// sections. opts are applied after the configured ones. Call Release on
// the engine when done.
func (db *Database) NewEngine(opts ...matching.Option) (*matching.Engine, error) {
	cfg := db.config
	base := []matching.Option{
		matching.WithPoolSize(cfg.Matching.PoolSize),
		matching.WithBatchLimit(cfg.AI.MaxBatchSize, cfg.AI.RequestsPerSecond),
		matching.WithLiveEmbedding(cfg.Matching.LiveEmbedding),
		matching.WithLogger(db.logger),
	}
	if cfg.Matching.Explain {
		assembler, err := explain.NewAssembler(db.provider.Narrator(), explain.WithLogger(db.logger))
		if err != nil {
			return nil, err
		}
		base = append(base, matching.WithExplainer(assembler))
	}
	return matching.NewEngine(db.profiles, db.matches, db.provider.Embedder(), append(base, opts...)...)
}

// NewSignupService creates the survey signup service. Diffbot enrichment is
// enabled when a token is configured.
func (db *Database) NewSignupService(opts ...signup.Option) (*signup.Service, error) {
	base := []signup.Option{signup.WithLogger(db.logger)}
	if token := db.config.Enrichment.DiffbotToken; token != "" {
		client, err := diffbot.NewClient(diffbot.Config{
			Token:   token,
			Timeout: db.config.Enrichment.Timeout,
			Logger:  db.logger,
		})
		if err != nil {
			return nil, err
		}
		base = append(base, signup.WithEnricher(client))
	}
	return signup.NewService(db.profiles, db.provider.Embedder(), append(base, opts...)...)
}

// NewReembedder creates a Reembedder over every stored profile.
func (db *Database) NewReembedder(cfg *reembed.Config, opts ...reembed.Option) (*reembed.Reembedder, error) {
	base := []reembed.Option{reembed.WithLogger(db.logger)}
	return reembed.NewReembedder(db.profiles, db.provider.Embedder(), cfg, append(base, opts...)...)
}
