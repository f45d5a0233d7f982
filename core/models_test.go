package core

import (
	"strings"
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "alice->bob"},
		{name: "empty string", content: ""},
		{name: "long content", content: strings.Repeat("a much longer identifier pair ", 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestMatchEdge_KeyIsDirected(t *testing.T) {
	ab := &MatchEdge{SourceUserID: "a", TargetUserID: "b"}
	ba := &MatchEdge{SourceUserID: "b", TargetUserID: "a"}
	again := &MatchEdge{SourceUserID: "a", TargetUserID: "b", CompositeScore: 42}

	if ab.Key() == ba.Key() {
		t.Errorf("reverse edge must have a different key")
	}
	if ab.Key() != again.Key() {
		t.Errorf("score must not influence the edge key")
	}
}

func TestSurveyInput(t *testing.T) {
	got := SurveyInput(1, "board games")
	want := "Q: What are some random things you geek out on (unrelated to your job)?\nA: board games"
	if got != want {
		t.Errorf("SurveyInput() = %q, want %q", got, want)
	}
}

func TestUserProfile_Embeddings(t *testing.T) {
	tests := []struct {
		name          string
		profile       UserProfile
		wantFields    bool
		wantAuxiliary bool
	}{
		{
			name:    "no vectors",
			profile: UserProfile{},
		},
		{
			name: "all fields",
			profile: UserProfile{
				FieldEmbeddings: [][]float32{{1}, {2}, {3}},
			},
			wantFields: true,
		},
		{
			name: "one field empty",
			profile: UserProfile{
				FieldEmbeddings: [][]float32{{1}, {}, {3}},
			},
		},
		{
			name: "auxiliary only",
			profile: UserProfile{
				AuxiliaryEmbedding: []float32{0.5},
			},
			wantAuxiliary: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.HasFieldEmbeddings(); got != tt.wantFields {
				t.Errorf("HasFieldEmbeddings() = %v, want %v", got, tt.wantFields)
			}
			if got := tt.profile.HasAuxiliary(); got != tt.wantAuxiliary {
				t.Errorf("HasAuxiliary() = %v, want %v", got, tt.wantAuxiliary)
			}
		})
	}
}
