package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/rapport/core"
	"github.com/poiesic/rapport/storage"
)

// ErrMatchKeyCollision is returned when another pair's edge already occupies
// the hashed key of the edge being written.
var ErrMatchKeyCollision = errors.New("match key collision")

// MatchRepository stores directed match edges.
type MatchRepository struct {
	backend *Backend
}

var _ storage.MatchRepository = (*MatchRepository)(nil)

func newMatchRepository(backend *Backend) *MatchRepository {
	return &MatchRepository{
		backend: backend,
	}
}

// NewMatchRepository creates a match repository on backend.
func NewMatchRepository(backend *Backend) (storage.MatchRepository, error) {
	return newMatchRepository(backend), nil
}

// Close releases resources. MatchRepository has no resources to release.
func (r *MatchRepository) Close() error {
	return nil
}

// UpsertMatch writes the edge under its deterministic key, so the last
// committed transaction wins and no duplicate can exist. Both endpoints and
// the current occupant of the key are checked inside the same transaction;
// concurrent writers of one pair conflict and are retried.
func (r *MatchRepository) UpsertMatch(ctx context.Context, edge *core.MatchEdge) error {
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now().UTC()
	}
	value := storage.MarshalMatchEdge(edge)
	key := makeMatchKey(edge.SourceUserID, edge.TargetUserID)

	return r.backend.withRetries(ctx, maxUpsertRetries, func(tx *badger.Txn) error {
		for _, userID := range []string{edge.SourceUserID, edge.TargetUserID} {
			if _, err := tx.Get(makeProfileKey(userID)); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("%w: profile %s", storage.ErrNotFound, userID)
				}
				return err
			}
		}
		if err := checkMatchKey(tx, key, edge); err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// checkMatchKey rejects a write whose hashed key already holds an edge for
// a different pair.
func checkMatchKey(tx *badger.Txn, key []byte, edge *core.MatchEdge) error {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		existing, err := storage.UnmarshalMatchEdge(val)
		if err != nil {
			return err
		}
		if existing.SourceUserID != edge.SourceUserID || existing.TargetUserID != edge.TargetUserID {
			return fmt.Errorf("%w: %s->%s collides with %s->%s", ErrMatchKeyCollision,
				edge.SourceUserID, edge.TargetUserID, existing.SourceUserID, existing.TargetUserID)
		}
		return nil
	})
}

// GetMatch retrieves the edge source→target.
func (r *MatchRepository) GetMatch(ctx context.Context, sourceUserID, targetUserID string) (*core.MatchEdge, error) {
	var result *core.MatchEdge
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		item, err := tx.Get(makeMatchKey(sourceUserID, targetUserID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		err = item.Value(func(val []byte) error {
			result, err = storage.UnmarshalMatchEdge(val)
			return err
		})
		if err != nil {
			return err
		}
		// Keys are hashes; guard against a collision with another pair
		if result.SourceUserID != sourceUserID || result.TargetUserID != targetUserID {
			result = nil
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListMatches returns every outgoing edge of sourceUserID.
func (r *MatchRepository) ListMatches(ctx context.Context, sourceUserID string) ([]*core.MatchEdge, error) {
	var results []*core.MatchEdge
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialMatchKey(sourceUserID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var edge *core.MatchEdge
			err := iter.Item().Value(func(val []byte) error {
				var err error
				edge, err = storage.UnmarshalMatchEdge(val)
				return err
			})
			if err != nil {
				return err
			}
			if edge.SourceUserID == sourceUserID {
				results = append(results, edge)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}
