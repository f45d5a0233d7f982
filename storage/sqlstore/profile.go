package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/rapport/core"
	"github.com/poiesic/rapport/storage"
)

// ProfileRepository stores profiles in the profiles table. Scalar columns
// support ad-hoc queries; the full record, vectors included, lives in the
// record column in the storage package encoding.
type ProfileRepository struct {
	store *Store
}

var _ storage.ProfileRepository = (*ProfileRepository)(nil)

// NewProfileRepository creates a profile repository on store.
func NewProfileRepository(store *Store) storage.ProfileRepository {
	return &ProfileRepository{store: store}
}

// Close releases resources. The Store is closed separately.
func (r *ProfileRepository) Close() error {
	return nil
}

// AddProfiles inserts profiles in one transaction.
func (r *ProfileRepository) AddProfiles(ctx context.Context, profiles ...*core.UserProfile) ([]*core.UserProfile, error) {
	for _, p := range profiles {
		if err := core.ValidateProfile(p); err != nil {
			return nil, err
		}
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for _, p := range profiles {
			var exists int
			err := tx.QueryRowContext(ctx, r.store.rebind(`SELECT COUNT(*) FROM profiles WHERE user_id = ?`), p.UserID).Scan(&exists)
			if err != nil {
				return err
			}
			if exists > 0 {
				return fmt.Errorf("%w: profile %s", storage.ErrDuplicateKey, p.UserID)
			}

			if p.CreatedAt.IsZero() {
				p.CreatedAt = now
			}
			_, err = tx.ExecContext(ctx, r.store.rebind(
				`INSERT INTO profiles (user_id, name, email, created_at, record) VALUES (?, ?, ?, ?, ?)`),
				p.UserID, p.Name, p.Email, p.CreatedAt.UnixMicro(), storage.MarshalProfile(p))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// UpdateProfiles replaces existing profiles, keeping their CreatedAt.
func (r *ProfileRepository) UpdateProfiles(ctx context.Context, profiles ...*core.UserProfile) ([]*core.UserProfile, error) {
	for _, p := range profiles {
		if err := core.ValidateProfile(p); err != nil {
			return nil, err
		}
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for _, p := range profiles {
			var createdAt int64
			err := tx.QueryRowContext(ctx, r.store.rebind(`SELECT created_at FROM profiles WHERE user_id = ?`), p.UserID).Scan(&createdAt)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: profile %s", storage.ErrNotFound, p.UserID)
			}
			if err != nil {
				return err
			}

			p.CreatedAt = time.UnixMicro(createdAt).UTC()
			_, err = tx.ExecContext(ctx, r.store.rebind(
				`UPDATE profiles SET name = ?, email = ?, record = ? WHERE user_id = ?`),
				p.Name, p.Email, storage.MarshalProfile(p), p.UserID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetProfile retrieves a single profile by user id.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	var record []byte
	err := r.store.db.QueryRowContext(ctx, r.store.rebind(`SELECT record FROM profiles WHERE user_id = ?`), userID).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return storage.UnmarshalProfile(record)
}

// ListOthers returns every profile except excludingUserID, in user id order.
func (r *ProfileRepository) ListOthers(ctx context.Context, excludingUserID string) ([]*core.UserProfile, error) {
	return r.query(ctx, `SELECT record FROM profiles WHERE user_id <> ? ORDER BY user_id`, excludingUserID)
}

// ListProfiles pages through profiles in user id order.
func (r *ProfileRepository) ListProfiles(ctx context.Context, afterUserID string, limit int) ([]*core.UserProfile, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	return r.query(ctx, `SELECT record FROM profiles WHERE user_id > ? ORDER BY user_id LIMIT ?`, afterUserID, limit)
}

func (r *ProfileRepository) query(ctx context.Context, query string, args ...any) ([]*core.UserProfile, error) {
	rows, err := r.store.db.QueryContext(ctx, r.store.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*core.UserProfile
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, err
		}
		p, err := storage.UnmarshalProfile(record)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

func (r *ProfileRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
