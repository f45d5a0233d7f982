package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/rapport/core"
	"github.com/poiesic/rapport/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProfile(userID string) *core.UserProfile {
	return &core.UserProfile{
		UserID:          userID,
		Name:            "Name " + userID,
		Email:           userID + "@example.com",
		Location:        "Portland",
		Answers:         [core.FieldCount]string{"kind", "board games", "lateness"},
		FieldEmbeddings: [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}},
	}
}

func setupRepos(t *testing.T) (storage.ProfileRepository, storage.MatchRepository) {
	t.Helper()
	profiles, matches, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		matches.Close()
		profiles.Close()
		backend.Close()
	})
	return profiles, matches
}

func TestProfileRepository_AddAndGet(t *testing.T) {
	profiles, _ := setupRepos(t)
	ctx := context.Background()

	added, err := profiles.AddProfiles(ctx, newTestProfile("alice"))
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.False(t, added[0].CreatedAt.IsZero())

	got, err := profiles.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Name alice", got.Name)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}}, got.FieldEmbeddings)
	assert.Equal(t, added[0].CreatedAt.Truncate(time.Microsecond), got.CreatedAt)
}

func TestProfileRepository_GetMissing(t *testing.T) {
	profiles, _ := setupRepos(t)

	_, err := profiles.GetProfile(context.Background(), "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProfileRepository_AddDuplicate(t *testing.T) {
	profiles, _ := setupRepos(t)
	ctx := context.Background()

	_, err := profiles.AddProfiles(ctx, newTestProfile("alice"))
	require.NoError(t, err)

	_, err = profiles.AddProfiles(ctx, newTestProfile("alice"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestProfileRepository_AddInvalid(t *testing.T) {
	profiles, _ := setupRepos(t)

	p := newTestProfile("alice")
	p.Answers[1] = ""
	_, err := profiles.AddProfiles(context.Background(), p)
	assert.ErrorIs(t, err, core.ErrInvalidProfile)
}

func TestProfileRepository_Update(t *testing.T) {
	profiles, _ := setupRepos(t)
	ctx := context.Background()

	added, err := profiles.AddProfiles(ctx, newTestProfile("alice"))
	require.NoError(t, err)
	created := added[0].CreatedAt

	updated := newTestProfile("alice")
	updated.FieldEmbeddings = [][]float32{{1, 1, 1}, {2, 2, 2}, {3, 3, 3}}
	_, err = profiles.UpdateProfiles(ctx, updated)
	require.NoError(t, err)

	got, err := profiles.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, got.FieldEmbeddings[0], 3)
	assert.Equal(t, created.Truncate(time.Microsecond), got.CreatedAt)

	_, err = profiles.UpdateProfiles(ctx, newTestProfile("bob"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProfileRepository_ListOthers(t *testing.T) {
	profiles, _ := setupRepos(t)
	ctx := context.Background()

	for _, id := range []string{"carol", "alice", "bob"} {
		_, err := profiles.AddProfiles(ctx, newTestProfile(id))
		require.NoError(t, err)
	}

	others, err := profiles.ListOthers(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, others, 2)
	assert.Equal(t, "alice", others[0].UserID)
	assert.Equal(t, "carol", others[1].UserID)

	all, err := profiles.ListOthers(ctx, "nobody")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestProfileRepository_ListOthers_Empty(t *testing.T) {
	profiles, _ := setupRepos(t)
	ctx := context.Background()

	_, err := profiles.AddProfiles(ctx, newTestProfile("alice"))
	require.NoError(t, err)

	others, err := profiles.ListOthers(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestProfileRepository_ListProfiles_Paging(t *testing.T) {
	profiles, _ := setupRepos(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := profiles.AddProfiles(ctx, newTestProfile(fmt.Sprintf("user-%02d", i)))
		require.NoError(t, err)
	}

	var seen []string
	after := ""
	for {
		page, err := profiles.ListProfiles(ctx, after, 3)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, p := range page {
			seen = append(seen, p.UserID)
		}
		after = page[len(page)-1].UserID
	}

	require.Len(t, seen, 7)
	assert.Equal(t, "user-00", seen[0])
	assert.Equal(t, "user-06", seen[6])

	_, err := profiles.ListProfiles(ctx, "", 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}
