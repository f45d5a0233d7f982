package matching

import "github.com/poiesic/rapport/core"

// Monitor observes a match request as it runs. CandidateScored is called
// from worker goroutines, so implementations must be safe for concurrent use.
type Monitor interface {
	Start(userID string)
	AfterCandidatesLoaded(requester *core.UserProfile, candidates int)
	Embedded(inputs int)
	CandidateScored(score core.MatchCandidateScore)
	Selected(best core.MatchCandidateScore)
	Persisted(edge *core.MatchEdge, err error)
	Finish(err error)
}

// NopMonitor ignores every event.
type NopMonitor struct{}

var _ Monitor = NopMonitor{}

func (NopMonitor) Start(string) {}
func (NopMonitor) AfterCandidatesLoaded(*core.UserProfile, int) {}
func (NopMonitor) Embedded(int) {}
func (NopMonitor) CandidateScored(core.MatchCandidateScore) {}
func (NopMonitor) Selected(core.MatchCandidateScore) {}
func (NopMonitor) Persisted(*core.MatchEdge, error) {}
func (NopMonitor) Finish(error) {}
