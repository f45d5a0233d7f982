package storage

import (
	"testing"
	"time"

	"github.com/poiesic/rapport/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Empty(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrTruncatedData)
}

func TestMarshalUnmarshalProfile(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name    string
		profile *core.UserProfile
	}{
		{
			name: "full profile",
			profile: &core.UserProfile{
				UserID:             "2b1f6c1e-5c1a-4d39-8f0e-4b7f7a9d0c11",
				Name:               "Ada",
				Email:              "ada@example.com",
				Profession:         "Engineer",
				Location:           "94110",
				Answers:            [core.FieldCount]string{"kind", "trains", "loud chewing"},
				FieldEmbeddings:    [][]float32{{0.1, -0.2}, {0.3, 0.4}, {1, 0}},
				AuxiliaryEmbedding: []float32{0.5, 0.5},
				AuxiliaryText:      "Mathematician and writer.",
				CreatedAt:          now,
			},
		},
		{
			name: "no auxiliary",
			profile: &core.UserProfile{
				UserID:          "u1",
				Name:            "Grace",
				Answers:         [core.FieldCount]string{"a", "b", "c"},
				FieldEmbeddings: [][]float32{{1}, {2}, {3}},
				CreatedAt:       now,
			},
		},
		{
			name: "legacy record without vectors",
			profile: &core.UserProfile{
				UserID:  "u2",
				Name:    "Linus",
				Answers: [core.FieldCount]string{"a", "b", "c"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalProfile(tt.profile)

			decoded, err := UnmarshalProfile(data)
			require.NoError(t, err)
			assert.Equal(t, tt.profile, decoded)
		})
	}
}

func TestUnmarshalProfile_Truncated(t *testing.T) {
	data := MarshalProfile(&core.UserProfile{
		UserID:          "u1",
		Name:            "Ada",
		Answers:         [core.FieldCount]string{"a", "b", "c"},
		FieldEmbeddings: [][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
	})

	for _, cut := range []int{0, 1, len(data) / 2, len(data) - 1} {
		_, err := UnmarshalProfile(data[:cut])
		assert.Error(t, err, "cut at %d", cut)
	}
}

func TestUnmarshalProfile_UnknownVersion(t *testing.T) {
	data := MarshalProfile(&core.UserProfile{UserID: "u1"})
	data[0] = 0x7e // varint zigzag for a far future version

	_, err := UnmarshalProfile(data)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalMatchEdge(t *testing.T) {
	edge := &core.MatchEdge{
		SourceUserID:   "a",
		TargetUserID:   "b",
		CompositeScore: 87,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}

	decoded, err := UnmarshalMatchEdge(MarshalMatchEdge(edge))
	require.NoError(t, err)
	assert.Equal(t, edge, decoded)
}

func TestUnmarshalMatchEdge_Invalid(t *testing.T) {
	_, err := UnmarshalMatchEdge(nil)
	assert.Error(t, err)
}
