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

package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/rapport/ai"
	"github.com/poiesic/rapport/core"
	"github.com/poiesic/rapport/storage"
)

const defaultMaxBatchSize = 2048

// Explainer produces the narrative for a selected pair.
type Explainer interface {
	Explain(ctx context.Context, current, matched *core.UserProfile, score core.MatchCandidateScore) (*core.Explanation, error)
}

// Outcome is the result of one match request.
type Outcome struct {
	Requester   *core.UserProfile
	Candidate   *core.UserProfile
	Match       core.MatchCandidateScore
	Explanation *core.Explanation

	// Persisted is false when the edge could not be stored; Warning says why.
	Persisted bool
	Warning   string

	PolicyVersion string
}

// Engine finds the best match for a user, records it and explains it.
type Engine struct {
	profiles  storage.ProfileRepository
	matches   storage.MatchRepository
	embedder  ai.Embedder
	explainer Explainer
	selector  *Selector
	monitor   Monitor
	logger    *slog.Logger
	now       func() time.Time

	poolSize          int
	maxBatchSize      int
	requestsPerSecond float64
	liveEmbedding     bool
}

// Option configures an Engine.
type Option func(*Engine) error

// WithPoolSize sets the number of scoring workers.
// Default is runtime.NumCPU().
func WithPoolSize(size int) Option {
	return func(e *Engine) error {
		e.poolSize = size
		return nil
	}
}

// WithBatchLimit caps the inputs per embedding call and paces calls.
// Larger batches are split and reassembled in order.
func WithBatchLimit(maxBatchSize int, requestsPerSecond float64) Option {
	return func(e *Engine) error {
		if maxBatchSize < 1 {
			return fmt.Errorf("max batch size must be positive, got %d", maxBatchSize)
		}
		e.maxBatchSize = maxBatchSize
		e.requestsPerSecond = requestsPerSecond
		return nil
	}
}

// WithLiveEmbedding re-embeds every answer on each request instead of
// using stored vectors.
func WithLiveEmbedding(live bool) Option {
	return func(e *Engine) error {
		e.liveEmbedding = live
		return nil
	}
}

// WithExplainer sets the narrative generator. Without one, outcomes carry
// no explanation.
func WithExplainer(explainer Explainer) Option {
	return func(e *Engine) error {
		e.explainer = explainer
		return nil
	}
}

// WithMonitor sets a request observer.
func WithMonitor(monitor Monitor) Option {
	return func(e *Engine) error {
		if monitor == nil {
			monitor = NopMonitor{}
		}
		e.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithClock overrides the timestamp source for persisted edges.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) error {
		e.now = now
		return nil
	}
}

// NewEngine creates an Engine. Call Release when done.
func NewEngine(profiles storage.ProfileRepository, matches storage.MatchRepository, embedder ai.Embedder, opts ...Option) (*Engine, error) {
	if profiles == nil {
		return nil, ErrProfileRepositoryRequired
	}
	if matches == nil {
		return nil, ErrMatchRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Engine{
		profiles:     profiles,
		matches:      matches,
		monitor:      NopMonitor{},
		logger:       slog.Default(),
		now:          func() time.Time { return time.Now().UTC() },
		maxBatchSize: defaultMaxBatchSize,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	e.logger = e.logger.With("component", "matching")
	e.embedder = ai.NewChunkedEmbedder(embedder, e.maxBatchSize, e.requestsPerSecond)

	selector, err := NewSelector(e.poolSize, e.logger)
	if err != nil {
		return nil, err
	}
	e.selector = selector
	return e, nil
}

// Release stops the scoring workers.
func (e *Engine) Release() {
	e.selector.Release()
}

// FindBestMatch selects the best candidate for userID, upserts the directed
// edge and asks the explainer for a rationale.
//
// Errors wrap core.ErrValidation, core.ErrNotFound (core.ErrNoCandidates for
// an empty pool) or core.ErrDependency. A failed upsert does not fail the
// request; the outcome reports Persisted=false with a warning instead.
func (e *Engine) FindBestMatch(ctx context.Context, userID string) (outcome *Outcome, err error) {
	e.monitor.Start(userID)
	defer func() { e.monitor.Finish(err) }()

	if err := core.ValidateUserID(userID); err != nil {
		return nil, err
	}

	requester, err := e.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", core.ErrNotFound, userID)
		}
		return nil, e.dependency("loading user", err)
	}

	candidates, err := e.profiles.ListOthers(ctx, userID)
	if err != nil {
		return nil, e.dependency("loading candidates", err)
	}
	e.monitor.AfterCandidatesLoaded(requester, len(candidates))
	if len(candidates) == 0 {
		return nil, core.ErrNoCandidates
	}

	if err := e.resolveEmbeddings(ctx, requester, candidates); err != nil {
		return nil, e.dependency("embedding answers", err)
	}

	best, err := e.selector.Best(ctx, requester, candidates, e.monitor.CandidateScored)
	if err != nil {
		if errors.Is(err, core.ErrNoCandidates) {
			return nil, err
		}
		if errors.Is(err, core.ErrDimensionMismatch) {
			e.logger.Error("embedding provider returned vectors of different sizes", "user", userID, "err", err)
		}
		return nil, e.dependency("scoring candidates", err)
	}
	e.monitor.Selected(best)

	// Nothing is written for a request abandoned during selection
	if err := ctx.Err(); err != nil {
		return nil, e.dependency("match request", err)
	}

	outcome = &Outcome{
		Requester:     requester,
		Candidate:     findProfile(candidates, best.CandidateUserID),
		Match:         best,
		PolicyVersion: AggregationPolicyVersion,
	}

	edge := &core.MatchEdge{
		SourceUserID:   requester.UserID,
		TargetUserID:   best.CandidateUserID,
		CompositeScore: best.CompositeScore,
		CreatedAt:      e.now(),
	}
	perr := e.matches.UpsertMatch(ctx, edge)
	e.monitor.Persisted(edge, perr)
	if perr != nil {
		e.logger.Error("failed to persist match", "source", edge.SourceUserID, "target", edge.TargetUserID, "err", perr)
		outcome.Warning = "match was not recorded: " + perr.Error()
	} else {
		outcome.Persisted = true
	}

	if e.explainer != nil {
		explanation, err := e.explainer.Explain(ctx, requester, outcome.Candidate, best)
		if err != nil {
			return nil, e.dependency("explaining match", err)
		}
		outcome.Explanation = explanation
	}

	e.logger.Debug("match selected",
		"user", userID,
		"match", best.CandidateUserID,
		"score", best.CompositeScore,
		"candidates", len(candidates))
	return outcome, nil
}

// resolveEmbeddings fills in missing vectors with one batched call covering
// the requester and every candidate. With live embedding on, every answer
// is embedded again. Nothing is written back to the store.
func (e *Engine) resolveEmbeddings(ctx context.Context, requester *core.UserProfile, candidates []*core.UserProfile) error {
	type target struct {
		profile   *core.UserProfile
		auxiliary bool
	}
	var (
		texts   []string
		targets []target
	)

	for _, p := range append([]*core.UserProfile{requester}, candidates...) {
		if e.liveEmbedding || !p.HasFieldEmbeddings() {
			for i, answer := range p.Answers {
				texts = append(texts, core.SurveyInput(i, answer))
			}
			targets = append(targets, target{profile: p})
		}
		if p.AuxiliaryText != "" && (e.liveEmbedding || !p.HasAuxiliary()) {
			texts = append(texts, p.AuxiliaryText)
			targets = append(targets, target{profile: p, auxiliary: true})
		}
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := e.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: expected %d, received %d", ai.ErrEmbeddingCountMismatch, len(texts), len(vectors))
	}
	e.monitor.Embedded(len(texts))

	next := 0
	for _, t := range targets {
		if t.auxiliary {
			t.profile.AuxiliaryEmbedding = vectors[next]
			next++
			continue
		}
		t.profile.FieldEmbeddings = vectors[next : next+core.FieldCount : next+core.FieldCount]
		next += core.FieldCount
	}
	return nil
}

func (e *Engine) dependency(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrDependency, op, err)
}

func findProfile(profiles []*core.UserProfile, userID string) *core.UserProfile {
	for _, p := range profiles {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}
