package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// FieldCount is the number of survey questions every profile answers.
const FieldCount = 3

// ID is a content-derived identifier used for storage keys.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SurveyQuestions are the fixed questions answered at signup, in field order.
var SurveyQuestions = [FieldCount]string{
	"How would close friends describe you?",
	"What are some random things you geek out on (unrelated to your job)?",
	"Describe your pet peeves or things that bug you.",
}

// SurveyInput returns the text embedded for the answer to question i.
// The question is included so that short answers keep their context.
func SurveyInput(i int, answer string) string {
	return "Q: " + SurveyQuestions[i] + "\nA: " + answer
}

// UserProfile is a user's survey submission together with its embeddings.
type UserProfile struct {
	UserID     string
	Name       string
	Email      string
	Profession string
	Location   string // Free text or postal code
	Answers    [FieldCount]string

	// FieldEmbeddings holds one vector per answer, in field order.
	FieldEmbeddings [][]float32

	// AuxiliaryEmbedding is nil when no enrichment description was found.
	AuxiliaryEmbedding []float32
	AuxiliaryText      string

	CreatedAt time.Time
}

// HasAuxiliary reports whether the profile carries an enrichment vector.
func (p *UserProfile) HasAuxiliary() bool {
	return len(p.AuxiliaryEmbedding) > 0
}

// HasFieldEmbeddings reports whether every survey answer has a stored vector.
func (p *UserProfile) HasFieldEmbeddings() bool {
	if len(p.FieldEmbeddings) != FieldCount {
		return false
	}
	for _, v := range p.FieldEmbeddings {
		if len(v) == 0 {
			return false
		}
	}
	return true
}

// MatchCandidateScore is the score of one candidate against the requesting user.
// It is computed fresh for every match request.
type MatchCandidateScore struct {
	CandidateUserID string
	PerFieldScores  [FieldCount]int
	AuxiliaryScore  *int // nil unless both profiles carry an auxiliary vector
	CompositeScore  int
}

// MatchEdge is the persisted, directed relationship source -> target.
// At most one edge exists per (SourceUserID, TargetUserID) pair.
type MatchEdge struct {
	SourceUserID   string
	TargetUserID   string
	CompositeScore int
	CreatedAt      time.Time
}

// Key returns the content-derived ID of the (source, target) pair.
func (e *MatchEdge) Key() ID {
	return IDFromContent(e.SourceUserID + "->" + e.TargetUserID)
}

// Explanation is the parsed rationale for a match.
type Explanation struct {
	Narrative    string
	Similarities []string
	Differences  []string
}
