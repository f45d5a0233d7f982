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

package reembed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/rapport/ai"
	"github.com/poiesic/rapport/core"
	"github.com/poiesic/rapport/storage"
)

// Config holds configuration for a reembedding run.
type Config struct {
	// BatchSize is the number of profiles embedded per provider call
	BatchSize int

	// ReportInterval is how often to report progress, in profiles
	ReportInterval int

	// MaxRetries is the number of attempts for each provider call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

// Stats summarizes a completed run.
type Stats struct {
	Profiles int
	Texts    int
	Elapsed  time.Duration
}

// Reembedder re-embeds every stored profile.
type Reembedder struct {
	config    *Config
	progress  io.Writer
	logger    *slog.Logger
	iterator  *ProfileIterator
	processor *BatchProcessor
}

// Option configures a Reembedder.
type Option func(*Reembedder)

// WithProgress writes a progress line to w, typically os.Stderr.
func WithProgress(w io.Writer) Option {
	return func(r *Reembedder) {
		if w != nil {
			r.progress = w
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReembedder creates a Reembedder. A nil config uses DefaultConfig.
func NewReembedder(repo storage.ProfileRepository, embedder ai.Embedder, config *Config, opts ...Option) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrProfileRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRetries <= 0 {
		return nil, ErrInvalidMaxAttempts
	}

	r := &Reembedder{
		config:   config,
		progress: io.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reembed")
	r.iterator = NewProfileIterator(repo, config.BatchSize)
	r.processor = NewBatchProcessor(repo, embedder,
		RetryPolicy{MaxAttempts: config.MaxRetries, BaseDelay: config.RetryDelay},
		r.logger)
	return r, nil
}

// Run re-embeds all profiles. Profiles in batches that completed before a
// failure keep their new vectors.
func (r *Reembedder) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	total, err := r.iterator.Count(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to count profiles: %w", err)
	}
	if total == 0 {
		r.logger.Info("no profiles to reembed")
		return stats, nil
	}
	r.logger.Info("reembedding profiles", "profiles", total, "batch_size", r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	err = r.iterator.ForEach(ctx, func(page []*core.UserProfile) error {
		n, err := r.processor.Process(ctx, page)
		if err != nil {
			return fmt.Errorf("failed to process batch starting at %s: %w", page[0].UserID, err)
		}
		stats.Profiles += len(page)
		stats.Texts += n
		tracker.Add(len(page))
		return nil
	})
	stats.Elapsed = tracker.Elapsed()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Error("reembedding stopped", "completed", stats.Profiles, "err", err)
		}
		return stats, err
	}

	tracker.Finish()
	r.logger.Info("reembedding complete",
		"profiles", stats.Profiles,
		"texts", stats.Texts,
		"elapsed", stats.Elapsed.Round(time.Millisecond))
	return stats, nil
}
