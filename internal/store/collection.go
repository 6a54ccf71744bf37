package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/markhaven/markhaven/internal/model"
)

const collectionColumns = `id, name, description, icon, color, parent_id,
	sort_order, is_deleted, deleted_at, created_at, last_modified_at`

// GetCollection retrieves a collection by id, tombstoned or not.
// Returns ErrNotFound if no row exists.
func (s *Store) GetCollection(ctx context.Context, id string) (*model.Collection, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id)

	c, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collection %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %s: %w", id, err)
	}
	return c, nil
}

// PutCollection inserts or replaces a collection keyed by id.
//
// Returns ErrDuplicateName when the write would leave two active
// collections sharing a name (enforced by the partial unique index).
func (s *Store) PutCollection(ctx context.Context, c *model.Collection) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid collection: %w", err)
	}

	query := `
	INSERT INTO collections (
		id, name, description, icon, color, parent_id,
		sort_order, is_deleted, deleted_at, created_at, last_modified_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		icon = excluded.icon,
		color = excluded.color,
		parent_id = excluded.parent_id,
		sort_order = excluded.sort_order,
		is_deleted = excluded.is_deleted,
		deleted_at = excluded.deleted_at,
		last_modified_at = excluded.last_modified_at
	`

	_, err := s.conn.ExecContext(ctx, query,
		c.ID, c.Name, c.Description, c.Icon, c.Color, c.ParentID,
		c.Order, boolToInt(c.IsDeleted), nullableMillis(c.DeletedAt),
		c.CreatedAt, c.LastModifiedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("collection %q: %w", c.Name, ErrDuplicateName)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert collection %s: %w", c.ID, err)
	}
	return nil
}

// DeleteCollection physically removes a collection. Only permanent-delete
// and purge paths call this. Returns nil if absent (idempotent).
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", id, err)
	}
	return nil
}

// ListCollections returns every collection including tombstoned ones.
func (s *Store) ListCollections(ctx context.Context) ([]*model.Collection, error) {
	return s.queryCollections(ctx,
		`SELECT `+collectionColumns+` FROM collections ORDER BY sort_order ASC, created_at ASC`)
}

// ListActiveCollections returns collections that are not tombstoned.
func (s *Store) ListActiveCollections(ctx context.Context) ([]*model.Collection, error) {
	return s.queryCollections(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE is_deleted = 0 ORDER BY sort_order ASC, created_at ASC`)
}

// ListDeletedCollections returns only tombstoned collections.
func (s *Store) ListDeletedCollections(ctx context.Context) ([]*model.Collection, error) {
	return s.queryCollections(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE is_deleted = 1 ORDER BY deleted_at DESC`)
}

// ListCollectionsByParent returns children of the given parent id,
// tombstones included.
func (s *Store) ListCollectionsByParent(ctx context.Context, parentID string) ([]*model.Collection, error) {
	return s.queryCollections(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE parent_id = ? ORDER BY sort_order ASC, created_at ASC`,
		parentID)
}

// FindActiveCollectionByName does a case-insensitive lookup among active
// collections. Returns ErrNotFound on miss.
func (s *Store) FindActiveCollectionByName(ctx context.Context, name string) (*model.Collection, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE lower(name) = lower(?) AND is_deleted = 0`,
		name)

	c, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collection %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find collection %q: %w", name, err)
	}
	return c, nil
}

// BatchDeleteCollections physically removes the given ids in one transaction.
func (s *Store) BatchDeleteCollections(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch delete: %w", err)
	}
	return nil
}

func (s *Store) queryCollections(ctx context.Context, query string, args ...any) ([]*model.Collection, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var collections []*model.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collections: %w", err)
	}
	return collections, nil
}

func scanCollection(row rowScanner) (*model.Collection, error) {
	var (
		c         model.Collection
		isDeleted int
		deletedAt sql.NullInt64
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Icon, &c.Color, &c.ParentID,
		&c.Order, &isDeleted, &deletedAt, &c.CreatedAt, &c.LastModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	c.IsDeleted = isDeleted != 0
	c.DeletedAt = millisFromNull(deletedAt)
	return &c, nil
}
