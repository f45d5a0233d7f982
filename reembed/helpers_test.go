package reembed

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/poiesic/rapport/core"
	"github.com/poiesic/rapport/storage"
	"github.com/poiesic/rapport/storage/badger"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T, n int) storage.ProfileRepository {
	t.Helper()
	profiles, matches, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		matches.Close()
		profiles.Close()
		backend.Close()
	})

	for i := range n {
		p := &core.UserProfile{
			UserID:          fmt.Sprintf("user-%03d", i),
			Name:            fmt.Sprintf("User %d", i),
			Answers:         [core.FieldCount]string{"kind", "chess", "noise"},
			FieldEmbeddings: [][]float32{{1, 0}, {1, 0}, {1, 0}},
		}
		if i%2 == 0 {
			p.AuxiliaryText = "Plays in a band."
		}
		_, err := profiles.AddProfiles(context.Background(), p)
		require.NoError(t, err)
	}
	return profiles
}

func magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
