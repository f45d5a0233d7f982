package storage

import (
	"context"

	"github.com/poiesic/rapport/core"
)

// Repository holds the lifecycle operations shared by every repository.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases the repository. The shared backend is closed separately.
	Close() error
}

type ProfileRepository interface {
	Repository
	// AddProfiles stores new profiles.
	// Sets CreatedAt if not already set.
	// Returns ErrDuplicateKey if a profile with the same UserID exists.
	AddProfiles(ctx context.Context, profiles ...*core.UserProfile) ([]*core.UserProfile, error)

	// UpdateProfiles replaces existing profiles, keeping their CreatedAt.
	// Returns ErrNotFound if any profile doesn't exist.
	UpdateProfiles(ctx context.Context, profiles ...*core.UserProfile) ([]*core.UserProfile, error)

	// GetProfile retrieves a single profile by user id.
	// Returns ErrNotFound if the profile doesn't exist.
	GetProfile(ctx context.Context, userID string) (*core.UserProfile, error)

	// ListOthers returns every profile except the one with excludingUserID,
	// ordered by user id. The excluded id need not exist.
	ListOthers(ctx context.Context, excludingUserID string) ([]*core.UserProfile, error)

	// ListProfiles returns up to limit profiles with user id greater than
	// afterUserID, ordered by user id. An empty afterUserID starts at the beginning.
	ListProfiles(ctx context.Context, afterUserID string, limit int) ([]*core.UserProfile, error)
}

type MatchRepository interface {
	Repository
	// UpsertMatch creates the directed edge source→target or overwrites its
	// score and timestamp. It is a single atomic write; concurrent calls for
	// the same pair never produce two edges.
	// Returns ErrNotFound if either profile doesn't exist.
	UpsertMatch(ctx context.Context, edge *core.MatchEdge) error

	// GetMatch retrieves the edge source→target.
	// Returns ErrNotFound if no such edge exists.
	GetMatch(ctx context.Context, sourceUserID, targetUserID string) (*core.MatchEdge, error)

	// ListMatches returns every outgoing edge of sourceUserID.
	ListMatches(ctx context.Context, sourceUserID string) ([]*core.MatchEdge, error)
}
