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
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/rapport/core"
)

// ScoreCandidate scores candidate against requester. Both profiles must
// carry one vector per answer. The auxiliary score is set only when both
// profiles have an auxiliary vector.
func ScoreCandidate(requester, candidate *core.UserProfile) (core.MatchCandidateScore, error) {
	score := core.MatchCandidateScore{CandidateUserID: candidate.UserID}

	for _, p := range []*core.UserProfile{requester, candidate} {
		if !p.HasFieldEmbeddings() {
			return score, fmt.Errorf("%w: %s", ErrMissingEmbeddings, p.UserID)
		}
	}

	for i := range score.PerFieldScores {
		pct, err := Percent(requester.FieldEmbeddings[i], candidate.FieldEmbeddings[i])
		if err != nil {
			return score, fmt.Errorf("field %d of %s: %w", i, candidate.UserID, err)
		}
		score.PerFieldScores[i] = pct
	}

	if requester.HasAuxiliary() && candidate.HasAuxiliary() {
		pct, err := Percent(requester.AuxiliaryEmbedding, candidate.AuxiliaryEmbedding)
		if err != nil {
			return score, fmt.Errorf("auxiliary of %s: %w", candidate.UserID, err)
		}
		score.AuxiliaryScore = &pct
	}

	score.CompositeScore = Aggregate(score.PerFieldScores[:], score.AuxiliaryScore)
	return score, nil
}

// Pick returns the highest composite score. Ties go to the lexicographically
// smaller candidate id, so the result does not depend on input order.
func Pick(scores []core.MatchCandidateScore) (core.MatchCandidateScore, error) {
	if len(scores) == 0 {
		return core.MatchCandidateScore{}, core.ErrNoCandidates
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.CompositeScore > best.CompositeScore ||
			(s.CompositeScore == best.CompositeScore && s.CandidateUserID < best.CandidateUserID) {
			best = s
		}
	}
	return best, nil
}

// Selector scores candidate pools on a worker pool.
type Selector struct {
	pool   *ants.Pool
	logger *slog.Logger
}

// NewSelector creates a Selector with poolSize workers.
// A poolSize below 1 uses runtime.NumCPU().
func NewSelector(poolSize int, logger *slog.Logger) (*Selector, error) {
	if poolSize < 1 {
		poolSize = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &Selector{pool: pool, logger: logger}, nil
}

// ScoreAll scores every candidate concurrently and returns the scores in
// candidate order. The first error wins; remaining work is skipped.
// onScored, if set, is called from worker goroutines.
func (s *Selector) ScoreAll(ctx context.Context, requester *core.UserProfile, candidates []*core.UserProfile, onScored func(core.MatchCandidateScore)) ([]core.MatchCandidateScore, error) {
	scores := make([]core.MatchCandidateScore, len(candidates))

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() { firstErr = err })
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i, candidate := range candidates {
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			score, err := ScoreCandidate(requester, candidate)
			if err != nil {
				fail(err)
				cancel()
				return
			}
			scores[i] = score
			if onScored != nil {
				onScored(score)
			}
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}

// Best scores the pool and picks the winner. onScored, when non-nil, sees
// every candidate's score as it is computed.
func (s *Selector) Best(ctx context.Context, requester *core.UserProfile, candidates []*core.UserProfile, onScored func(core.MatchCandidateScore)) (core.MatchCandidateScore, error) {
	if len(candidates) == 0 {
		return core.MatchCandidateScore{}, core.ErrNoCandidates
	}
	scores, err := s.ScoreAll(ctx, requester, candidates, onScored)
	if err != nil {
		return core.MatchCandidateScore{}, err
	}
	return Pick(scores)
}

// Release stops the worker pool. The Selector must not be used afterwards.
func (s *Selector) Release() {
	s.pool.Release()
}
