package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/rapport/core"
	"github.com/poiesic/rapport/storage"
)

// ProfileRepository stores survey profiles keyed by user id.
type ProfileRepository struct {
	backend *Backend
}

var _ storage.ProfileRepository = (*ProfileRepository)(nil)

// newProfileRepository is the internal constructor returning the concrete type.
func newProfileRepository(backend *Backend) *ProfileRepository {
	return &ProfileRepository{
		backend: backend,
	}
}

// NewProfileRepository creates a profile repository on backend.
func NewProfileRepository(backend *Backend) (storage.ProfileRepository, error) {
	return newProfileRepository(backend), nil
}

// Close releases resources. ProfileRepository has no resources to release.
func (r *ProfileRepository) Close() error {
	return nil
}

// AddProfiles adds one or more profiles to storage.
func (r *ProfileRepository) AddProfiles(ctx context.Context, profiles ...*core.UserProfile) ([]*core.UserProfile, error) {
	for _, p := range profiles {
		if err := core.ValidateProfile(p); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, p := range profiles {
			key := makeProfileKey(p.UserID)

			existing, err := readProfile(tx, key)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("%w: profile %s", storage.ErrDuplicateKey, p.UserID)
			}

			if p.CreatedAt.IsZero() {
				p.CreatedAt = now
			}
			if err := tx.Set(key, storage.MarshalProfile(p)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return profiles, nil
}

// UpdateProfiles replaces existing profiles.
func (r *ProfileRepository) UpdateProfiles(ctx context.Context, profiles ...*core.UserProfile) ([]*core.UserProfile, error) {
	for _, p := range profiles {
		if err := core.ValidateProfile(p); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		for _, p := range profiles {
			key := makeProfileKey(p.UserID)

			old, err := readProfile(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return fmt.Errorf("%w: profile %s", storage.ErrNotFound, p.UserID)
			}

			p.CreatedAt = old.CreatedAt
			if err := tx.Set(key, storage.MarshalProfile(p)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return profiles, nil
}

// GetProfile retrieves a single profile by user id.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	var result *core.UserProfile
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = readProfile(tx, makeProfileKey(userID))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListOthers returns every profile except excludingUserID, in user id order.
func (r *ProfileRepository) ListOthers(ctx context.Context, excludingUserID string) ([]*core.UserProfile, error) {
	var results []*core.UserProfile
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		return scanProfiles(ctx, tx, nil, func(p *core.UserProfile) bool {
			if p.UserID != excludingUserID {
				results = append(results, p)
			}
			return true
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ListProfiles pages through profiles in user id order.
func (r *ProfileRepository) ListProfiles(ctx context.Context, afterUserID string, limit int) ([]*core.UserProfile, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	var start []byte
	if afterUserID != "" {
		start = makeProfileKey(afterUserID)
	}

	results := make([]*core.UserProfile, 0, limit)
	err := r.backend.WithTx(ctx, func(tx *badger.Txn) error {
		return scanProfiles(ctx, tx, start, func(p *core.UserProfile) bool {
			if p.UserID == afterUserID {
				return true
			}
			results = append(results, p)
			return len(results) < limit
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// scanProfiles visits profiles from start (or the first profile) until
// visit returns false.
func scanProfiles(ctx context.Context, tx *badger.Txn, start []byte, visit func(*core.UserProfile) bool) error {
	prefix := []byte(profileRecordPrefix)
	if start == nil {
		start = prefix
	}

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Seek(start); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := iter.Item()
		if !bytes.HasPrefix(item.Key(), prefix) {
			break
		}

		var profile *core.UserProfile
		err := item.Value(func(val []byte) error {
			var err error
			profile, err = storage.UnmarshalProfile(val)
			return err
		})
		if err != nil {
			return fmt.Errorf("profile %s: %w", userIDFromProfileKey(item.Key()), err)
		}
		if !visit(profile) {
			return nil
		}
	}
	return nil
}

// readProfile reads a profile from the transaction, returning nil if absent.
func readProfile(tx *badger.Txn, key []byte) (*core.UserProfile, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var profile *core.UserProfile
	err = item.Value(func(val []byte) error {
		var err error
		profile, err = storage.UnmarshalProfile(val)
		return err
	})
	return profile, err
}
