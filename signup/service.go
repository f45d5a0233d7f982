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

package signup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/rapport/ai"
	"github.com/poiesic/rapport/core"
	"github.com/poiesic/rapport/storage"
)

var (
	// ErrProfileRepositoryRequired is returned by NewService without a repository.
	ErrProfileRepositoryRequired = errors.New("profile repository is required")

	// ErrEmbedderRequired is returned by NewService without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")
)

// Enricher finds a public description of a person.
// An empty description with a nil error means nothing was found.
type Enricher interface {
	Describe(ctx context.Context, name, email string) (string, error)
}

// Submission is a completed survey.
type Submission struct {
	Name       string
	Email      string
	Profession string
	Location   string
	Answers    [core.FieldCount]string
}

// Service turns survey submissions into stored, embedded profiles.
type Service struct {
	profiles storage.ProfileRepository
	embedder ai.Embedder
	enricher Enricher
	newID    func() string
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithEnricher adds a background description to new profiles.
func WithEnricher(enricher Enricher) Option {
	return func(s *Service) error {
		s.enricher = enricher
		return nil
	}
}

// WithIDGenerator overrides the userId source.
// Default is uuid.NewString.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) error {
		if newID == nil {
			return errors.New("id generator cannot be nil")
		}
		s.newID = newID
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates a signup Service.
func NewService(profiles storage.ProfileRepository, embedder ai.Embedder, opts ...Option) (*Service, error) {
	if profiles == nil {
		return nil, ErrProfileRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Service{
		profiles: profiles,
		embedder: embedder,
		newID:    uuid.NewString,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "signup")
	return s, nil
}

// CreateProfile validates a submission, embeds its answers and stores the
// resulting profile under a fresh userId.
//
// Enrichment failures are logged and the profile is stored without an
// auxiliary vector. Embedding and storage failures wrap core.ErrDependency.
func (s *Service) CreateProfile(ctx context.Context, sub Submission) (*core.UserProfile, error) {
	profile := &core.UserProfile{
		UserID:     s.newID(),
		Name:       strings.TrimSpace(sub.Name),
		Email:      strings.TrimSpace(sub.Email),
		Profession: strings.TrimSpace(sub.Profession),
		Location:   strings.TrimSpace(sub.Location),
	}
	for i, answer := range sub.Answers {
		profile.Answers[i] = strings.TrimSpace(answer)
	}
	if err := core.ValidateProfile(profile); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrValidation, err)
	}

	profile.AuxiliaryText = s.describe(ctx, profile)

	texts := make([]string, 0, core.FieldCount+1)
	for i, answer := range profile.Answers {
		texts = append(texts, core.SurveyInput(i, answer))
	}
	if profile.AuxiliaryText != "" {
		texts = append(texts, profile.AuxiliaryText)
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding answers: %w", core.ErrDependency, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %w: expected %d, received %d",
			core.ErrDependency, ai.ErrEmbeddingCountMismatch, len(texts), len(vectors))
	}
	profile.FieldEmbeddings = vectors[:core.FieldCount:core.FieldCount]
	if profile.AuxiliaryText != "" {
		profile.AuxiliaryEmbedding = vectors[core.FieldCount]
	}

	stored, err := s.profiles.AddProfiles(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("%w: storing profile: %w", core.ErrDependency, err)
	}

	s.logger.Info("profile created", "user", profile.UserID, "enriched", profile.HasAuxiliary())
	return stored[0], nil
}

func (s *Service) describe(ctx context.Context, profile *core.UserProfile) string {
	if s.enricher == nil {
		return ""
	}
	desc, err := s.enricher.Describe(ctx, profile.Name, profile.Email)
	if err != nil {
		s.logger.Warn("enrichment failed", "user", profile.UserID, "err", err)
		return ""
	}
	return strings.TrimSpace(desc)
}
