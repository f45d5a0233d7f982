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

// upsertMatchSQL inserts the edge only when both profiles exist and
// overwrites score and timestamp on a key conflict. Casts give PostgreSQL
// concrete types for the bare SELECT parameters.
const upsertMatchSQL = `INSERT INTO matches (source_user_id, target_user_id, composite_score, created_at)
SELECT CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS INTEGER), CAST(? AS BIGINT)
WHERE EXISTS (SELECT 1 FROM profiles WHERE user_id = ?)
  AND EXISTS (SELECT 1 FROM profiles WHERE user_id = ?)
ON CONFLICT (source_user_id, target_user_id) DO UPDATE
SET composite_score = excluded.composite_score, created_at = excluded.created_at`

// MatchRepository stores directed edges in the matches table.
type MatchRepository struct {
	store *Store
}

var _ storage.MatchRepository = (*MatchRepository)(nil)

// NewMatchRepository creates a match repository on store.
func NewMatchRepository(store *Store) storage.MatchRepository {
	return &MatchRepository{store: store}
}

// Close releases resources. The Store is closed separately.
func (r *MatchRepository) Close() error {
	return nil
}

// UpsertMatch creates or overwrites the edge in a single statement.
func (r *MatchRepository) UpsertMatch(ctx context.Context, edge *core.MatchEdge) error {
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now().UTC()
	}

	res, err := r.store.db.ExecContext(ctx, r.store.rebind(upsertMatchSQL),
		edge.SourceUserID, edge.TargetUserID, edge.CompositeScore, edge.CreatedAt.UnixMicro(),
		edge.SourceUserID, edge.TargetUserID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: profile %s or %s", storage.ErrNotFound, edge.SourceUserID, edge.TargetUserID)
	}
	return nil
}

// GetMatch retrieves the edge source→target.
func (r *MatchRepository) GetMatch(ctx context.Context, sourceUserID, targetUserID string) (*core.MatchEdge, error) {
	edge := &core.MatchEdge{SourceUserID: sourceUserID, TargetUserID: targetUserID}
	var createdAt int64
	err := r.store.db.QueryRowContext(ctx, r.store.rebind(
		`SELECT composite_score, created_at FROM matches WHERE source_user_id = ? AND target_user_id = ?`),
		sourceUserID, targetUserID).Scan(&edge.CompositeScore, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	edge.CreatedAt = time.UnixMicro(createdAt).UTC()
	return edge, nil
}

// ListMatches returns every outgoing edge of sourceUserID, by target.
func (r *MatchRepository) ListMatches(ctx context.Context, sourceUserID string) ([]*core.MatchEdge, error) {
	rows, err := r.store.db.QueryContext(ctx, r.store.rebind(
		`SELECT target_user_id, composite_score, created_at FROM matches WHERE source_user_id = ? ORDER BY target_user_id`),
		sourceUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*core.MatchEdge
	for rows.Next() {
		edge := &core.MatchEdge{SourceUserID: sourceUserID}
		var createdAt int64
		if err := rows.Scan(&edge.TargetUserID, &edge.CompositeScore, &createdAt); err != nil {
			return nil, err
		}
		edge.CreatedAt = time.UnixMicro(createdAt).UTC()
		results = append(results, edge)
	}
	return results, rows.Err()
}
