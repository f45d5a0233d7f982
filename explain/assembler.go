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

package explain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/rapport/ai"
	"github.com/poiesic/rapport/core"
)

var (
	// ErrNarratorRequired is returned by NewAssembler without a narrator.
	ErrNarratorRequired = errors.New("narrator is required")

	// ErrEmptyNarrative indicates the narrator returned no text.
	ErrEmptyNarrative = errors.New("narrator returned an empty response")
)

// Assembler asks a narrator why two users fit and parses the answer.
type Assembler struct {
	narrator ai.Narrator
	logger   *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAssembler creates an Assembler backed by narrator.
func NewAssembler(narrator ai.Narrator, opts ...Option) (*Assembler, error) {
	if narrator == nil {
		return nil, ErrNarratorRequired
	}
	a := &Assembler{narrator: narrator, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "explain")
	return a, nil
}

// Explain builds the prompt for the pair, calls the narrator and parses
// its response. Narrator errors are returned unchanged.
func (a *Assembler) Explain(ctx context.Context, current, matched *core.UserProfile, score core.MatchCandidateScore) (*core.Explanation, error) {
	if current == nil || matched == nil {
		return nil, fmt.Errorf("%w: both profiles are required", core.ErrValidation)
	}

	text, err := a.narrator.Complete(ctx, BuildPrompt(current, matched, score))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyNarrative
	}

	explanation := Parse(text)
	a.logger.Debug("explanation parsed",
		"user", current.UserID,
		"match", matched.UserID,
		"similarities", len(explanation.Similarities),
		"differences", len(explanation.Differences))
	return &explanation, nil
}
