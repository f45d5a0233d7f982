package server

import (
	"time"

	"github.com/poiesic/rapport/core"
	"github.com/poiesic/rapport/matching"
)

type questionScores struct {
	Score1 int `json:"score1"`
	Score2 int `json:"score2"`
	Score3 int `json:"score3"`
}

type matchJSON struct {
	UserID         string         `json:"userId"`
	Name           string         `json:"name"`
	Profession     string         `json:"profession"`
	Location       string         `json:"location"`
	MatchScore     int            `json:"matchScore"`
	QuestionScores questionScores `json:"questionScores"`
	AuxiliaryScore *int           `json:"auxiliaryScore,omitempty"`
}

type explanationJSON struct {
	Narrative    string   `json:"narrative"`
	Similarities []string `json:"similarities"`
	Differences  []string `json:"differences"`
}

type matchResponse struct {
	Match               matchJSON        `json:"match"`
	Explanation         *explanationJSON `json:"explanation"`
	CurrentUserLocation string           `json:"currentUserLocation"`
	Warning             string           `json:"warning,omitempty"`
	PolicyVersion       string           `json:"policyVersion"`
}

func newMatchResponse(o *matching.Outcome) matchResponse {
	resp := matchResponse{
		Match: matchJSON{
			UserID:     o.Match.CandidateUserID,
			MatchScore: o.Match.CompositeScore,
			QuestionScores: questionScores{
				Score1: o.Match.PerFieldScores[0],
				Score2: o.Match.PerFieldScores[1],
				Score3: o.Match.PerFieldScores[2],
			},
			AuxiliaryScore: o.Match.AuxiliaryScore,
		},
		CurrentUserLocation: o.Requester.Location,
		Warning:             o.Warning,
		PolicyVersion:       o.PolicyVersion,
	}
	if o.Candidate != nil {
		resp.Match.Name = o.Candidate.Name
		resp.Match.Profession = o.Candidate.Profession
		resp.Match.Location = o.Candidate.Location
	}
	if o.Explanation != nil {
		resp.Explanation = &explanationJSON{
			Narrative:    o.Explanation.Narrative,
			Similarities: nonNil(o.Explanation.Similarities),
			Differences:  nonNil(o.Explanation.Differences),
		}
	}
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type createUserRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Profession string `json:"profession"`
	Location   string `json:"location"`
	Answer1    string `json:"answer1"`
	Answer2    string `json:"answer2"`
	Answer3    string `json:"answer3"`
}

type createUserResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type edgeJSON struct {
	TargetUserID string    `json:"targetUserId"`
	MatchScore   int       `json:"matchScore"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newEdgesResponse(edges []*core.MatchEdge) []edgeJSON {
	out := make([]edgeJSON, 0, len(edges))
	for _, e := range edges {
		out = append(out, edgeJSON{
			TargetUserID: e.TargetUserID,
			MatchScore:   e.CompositeScore,
			CreatedAt:    e.CreatedAt,
		})
	}
	return out
}
