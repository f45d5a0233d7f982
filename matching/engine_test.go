package matching

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/rapport/ai/mock"
	"github.com/poiesic/rapport/core"
	"github.com/poiesic/rapport/storage"
	"github.com/poiesic/rapport/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExplainer struct {
	err   error
	calls int
}

func (s *stubExplainer) Explain(ctx context.Context, current, matched *core.UserProfile, score core.MatchCandidateScore) (*core.Explanation, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &core.Explanation{Narrative: current.Name + " meets " + matched.Name}, nil
}

type failingMatches struct {
	storage.MatchRepository
	err error
}

func (f *failingMatches) UpsertMatch(ctx context.Context, edge *core.MatchEdge) error {
	return f.err
}

type recordingMonitor struct {
	NopMonitor
	mu     sync.Mutex
	events []string
	scored int
}

func (m *recordingMonitor) record(e string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *recordingMonitor) Start(string)                                 { m.record("start") }
func (m *recordingMonitor) AfterCandidatesLoaded(*core.UserProfile, int) { m.record("loaded") }
func (m *recordingMonitor) Selected(core.MatchCandidateScore)            { m.record("selected") }
func (m *recordingMonitor) Persisted(*core.MatchEdge, error)             { m.record("persisted") }
func (m *recordingMonitor) Finish(error)                                 { m.record("finish") }
func (m *recordingMonitor) CandidateScored(core.MatchCandidateScore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scored++
}

type fixture struct {
	profiles storage.ProfileRepository
	matches  storage.MatchRepository
	embedder *mock.MockEmbedder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	profiles, matches, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		matches.Close()
		profiles.Close()
		backend.Close()
	})
	return &fixture{profiles: profiles, matches: matches, embedder: mock.NewMockEmbedder()}
}

func (f *fixture) add(t *testing.T, profiles ...*core.UserProfile) {
	t.Helper()
	_, err := f.profiles.AddProfiles(context.Background(), profiles...)
	require.NoError(t, err)
}

func (f *fixture) engine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(f.profiles, f.matches, f.embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e
}

func legacyProfile(userID string, answers ...string) *core.UserProfile {
	p := &core.UserProfile{UserID: userID, Name: userID}
	copy(p.Answers[:], answers)
	return p
}

func TestNewEngine_RequiresDependencies(t *testing.T) {
	f := newFixture(t)

	_, err := NewEngine(nil, f.matches, f.embedder)
	assert.ErrorIs(t, err, ErrProfileRepositoryRequired)
	_, err = NewEngine(f.profiles, nil, f.embedder)
	assert.ErrorIs(t, err, ErrMatchRepositoryRequired)
	_, err = NewEngine(f.profiles, f.matches, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewEngine(f.profiles, f.matches, f.embedder, WithBatchLimit(0, 0))
	assert.Error(t, err)
}

func TestFindBestMatch_Validation(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t)

	for _, id := range []string{"", "   ", "bad\x00id"} {
		_, err := e.FindBestMatch(context.Background(), id)
		assert.ErrorIs(t, err, core.ErrValidation, "id %q", id)
	}
	assert.Zero(t, f.embedder.CallCount())
}

func TestFindBestMatch_UnknownUser(t *testing.T) {
	f := newFixture(t)
	f.add(t, profileWith("b", uniform([]float32{1, 0})...))
	e := f.engine(t)

	_, err := e.FindBestMatch(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NotErrorIs(t, err, core.ErrNoCandidates)
}

func TestFindBestMatch_NoCandidates(t *testing.T) {
	f := newFixture(t)
	f.add(t, profileWith("alone", uniform([]float32{1, 0})...))
	e := f.engine(t)

	_, err := e.FindBestMatch(context.Background(), "alone")
	assert.ErrorIs(t, err, core.ErrNoCandidates)
	assert.Zero(t, f.embedder.CallCount())
}

func TestFindBestMatch_IdenticalProfilesScore100(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		profileWith("a", uniform([]float32{0.2, 0.9, 0.1})...),
		profileWith("b", uniform([]float32{0.2, 0.9, 0.1})...),
		profileWith("c", uniform([]float32{0.9, 0.1, 0.3})...),
	)
	explainer := &stubExplainer{}
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	e := f.engine(t, WithExplainer(explainer), WithClock(func() time.Time { return at }))

	outcome, err := e.FindBestMatch(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, "b", outcome.Match.CandidateUserID)
	assert.Equal(t, 100, outcome.Match.CompositeScore)
	assert.Equal(t, [core.FieldCount]int{100, 100, 100}, outcome.Match.PerFieldScores)
	assert.Equal(t, "b", outcome.Candidate.UserID)
	assert.Equal(t, "a", outcome.Requester.UserID)
	assert.True(t, outcome.Persisted)
	assert.Empty(t, outcome.Warning)
	assert.Equal(t, AggregationPolicyVersion, outcome.PolicyVersion)
	require.NotNil(t, outcome.Explanation)
	assert.Equal(t, "a meets b", outcome.Explanation.Narrative)

	edge, err := f.matches.GetMatch(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 100, edge.CompositeScore)
	assert.Equal(t, at, edge.CreatedAt)

	// stored vectors need no provider call
	assert.Zero(t, f.embedder.CallCount())

	// directed: nothing recorded for b
	edges, err := f.matches.ListMatches(context.Background(), "b")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestFindBestMatch_RematchOverwritesEdge(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		profileWith("a", uniform([]float32{1, 0})...),
		profileWith("b", uniform([]float32{1, 1})...),
	)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e := f.engine(t, WithClock(func() time.Time { return now }))

	_, err := e.FindBestMatch(context.Background(), "a")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = e.FindBestMatch(context.Background(), "a")
	require.NoError(t, err)

	edges, err := f.matches.ListMatches(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, now, edges[0].CreatedAt)
}

func TestFindBestMatch_LegacyProfilesEmbeddedInOneBatch(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		legacyProfile("a", "kind", "trains", "noise"),
		legacyProfile("b", "kind", "trains", "noise"),
		legacyProfile("c", "grumpy", "taxes", "everything"),
		profileWith("d", uniform(make([]float32, mock.DefaultDimension))...),
	)
	e := f.engine(t)

	outcome, err := e.FindBestMatch(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "b", outcome.Match.CandidateUserID)
	assert.Equal(t, 100, outcome.Match.CompositeScore)

	// a, b and c need vectors; d already has them
	assert.Equal(t, 1, f.embedder.CallCount())
	assert.Equal(t, 3*core.FieldCount, f.embedder.InputCount())
	batch := f.embedder.Batches()[0]
	assert.Equal(t, core.SurveyInput(0, "kind"), batch[0])

	// nothing is written back
	stored, err := f.profiles.GetProfile(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, stored.HasFieldEmbeddings())
}

func TestFindBestMatch_LiveEmbeddingChunked(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		profileWith("a", uniform([]float32{1, 0})...),
		profileWith("b", uniform([]float32{1, 0})...),
		profileWith("c", uniform([]float32{1, 0})...),
	)
	e := f.engine(t, WithLiveEmbedding(true), WithBatchLimit(4, 0))

	_, err := e.FindBestMatch(context.Background(), "a")
	require.NoError(t, err)

	// 9 inputs in chunks of at most 4
	assert.Equal(t, 9, f.embedder.InputCount())
	assert.Equal(t, 3, f.embedder.CallCount())
	for _, b := range f.embedder.Batches() {
		assert.LessOrEqual(t, len(b), 4)
	}
}

func TestFindBestMatch_AuxiliaryTextEmbedded(t *testing.T) {
	f := newFixture(t)
	a := legacyProfile("a", "x", "y", "z")
	a.AuxiliaryText = "Chess coach in Oslo."
	b := legacyProfile("b", "x", "y", "z")
	b.AuxiliaryText = "Chess coach in Oslo."
	f.add(t, a, b)
	e := f.engine(t)

	outcome, err := e.FindBestMatch(context.Background(), "a")
	require.NoError(t, err)
	require.NotNil(t, outcome.Match.AuxiliaryScore)
	assert.Equal(t, 100, *outcome.Match.AuxiliaryScore)
	assert.Equal(t, 2*(core.FieldCount+1), f.embedder.InputCount())
}

func TestFindBestMatch_EmbedderFailure(t *testing.T) {
	f := newFixture(t)
	f.add(t, legacyProfile("a", "1", "2", "3"), legacyProfile("b", "1", "2", "3"))
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("429 too many requests")
	}
	e := f.engine(t)

	_, err := e.FindBestMatch(context.Background(), "a")
	assert.ErrorIs(t, err, core.ErrDependency)

	edges, err := f.matches.ListMatches(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestFindBestMatch_DimensionMismatch(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		profileWith("a", uniform([]float32{1, 0})...),
		profileWith("b", uniform([]float32{1, 0, 0})...),
	)
	e := f.engine(t)

	_, err := e.FindBestMatch(context.Background(), "a")
	assert.ErrorIs(t, err, core.ErrDependency)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	edges, err := f.matches.ListMatches(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestFindBestMatch_PersistFailureReturnsWarning(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		profileWith("a", uniform([]float32{1, 0})...),
		profileWith("b", uniform([]float32{1, 0})...),
	)
	f.matches = &failingMatches{MatchRepository: f.matches, err: errors.New("disk full")}
	explainer := &stubExplainer{}
	e := f.engine(t, WithExplainer(explainer))

	outcome, err := e.FindBestMatch(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, outcome.Persisted)
	assert.Contains(t, outcome.Warning, "disk full")
	assert.Equal(t, "b", outcome.Match.CandidateUserID)
	assert.Equal(t, 1, explainer.calls)
}

func TestFindBestMatch_ExplainerFailure(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		profileWith("a", uniform([]float32{1, 0})...),
		profileWith("b", uniform([]float32{1, 0})...),
	)
	e := f.engine(t, WithExplainer(&stubExplainer{err: errors.New("narrative timeout")}))

	_, err := e.FindBestMatch(context.Background(), "a")
	assert.ErrorIs(t, err, core.ErrDependency)
}

func TestFindBestMatch_CanceledWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.add(t, legacyProfile("a", "1", "2", "3"), legacyProfile("b", "1", "2", "3"))

	ctx, cancel := context.WithCancel(context.Background())
	f.embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		cancel()
		return nil, context.Canceled
	}
	e := f.engine(t)

	_, err := e.FindBestMatch(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)

	edges, err := f.matches.ListMatches(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestFindBestMatch_Monitor(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		profileWith("a", uniform([]float32{1, 0})...),
		profileWith("b", uniform([]float32{1, 0})...),
		profileWith("c", uniform([]float32{0, 1})...),
	)
	monitor := &recordingMonitor{}
	e := f.engine(t, WithMonitor(monitor))

	_, err := e.FindBestMatch(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "loaded", "selected", "persisted", "finish"}, monitor.events)
	assert.Equal(t, 2, monitor.scored)
}
