package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/markhaven/markhaven/internal/model"
)

const bookmarkColumns = `id, url, title, description, favicon, thumbnail,
	collection_id, is_favorite, is_deleted, deleted_at, created_at, last_modified_at`

// GetBookmark retrieves a bookmark by id, tombstoned or not.
// Returns ErrNotFound if no row exists.
func (s *Store) GetBookmark(ctx context.Context, id string) (*model.Bookmark, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = ?`, id)

	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bookmark %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark %s: %w", id, err)
	}
	return b, nil
}

// PutBookmark inserts or replaces a bookmark keyed by id. Idempotent.
func (s *Store) PutBookmark(ctx context.Context, b *model.Bookmark) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("invalid bookmark: %w", err)
	}
	return execPutBookmark(ctx, s.conn, b)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execPutBookmark(ctx context.Context, db execer, b *model.Bookmark) error {
	query := `
	INSERT INTO bookmarks (
		id, url, title, description, favicon, thumbnail,
		collection_id, is_favorite, is_deleted, deleted_at,
		created_at, last_modified_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		url = excluded.url,
		title = excluded.title,
		description = excluded.description,
		favicon = excluded.favicon,
		thumbnail = excluded.thumbnail,
		collection_id = excluded.collection_id,
		is_favorite = excluded.is_favorite,
		is_deleted = excluded.is_deleted,
		deleted_at = excluded.deleted_at,
		last_modified_at = excluded.last_modified_at
	`

	_, err := db.ExecContext(ctx, query,
		b.ID, b.URL, b.Title, b.Description, b.Favicon, b.Thumbnail,
		b.CollectionID, boolToInt(b.IsFavorite), boolToInt(b.IsDeleted),
		nullableMillis(b.DeletedAt), b.CreatedAt, b.LastModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert bookmark %s: %w", b.ID, err)
	}
	return nil
}

// DeleteBookmark physically removes a bookmark. Only the permanent-delete
// and purge paths call this; regular deletion tombstones instead.
// Returns nil if the bookmark doesn't exist (idempotent).
func (s *Store) DeleteBookmark(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete bookmark %s: %w", id, err)
	}
	return nil
}

// ListBookmarks returns every bookmark including tombstoned ones,
// ordered by creation time.
func (s *Store) ListBookmarks(ctx context.Context) ([]*model.Bookmark, error) {
	return s.queryBookmarks(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks ORDER BY created_at DESC`)
}

// ListActiveBookmarks returns bookmarks that are not tombstoned.
func (s *Store) ListActiveBookmarks(ctx context.Context) ([]*model.Bookmark, error) {
	return s.queryBookmarks(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE is_deleted = 0 ORDER BY created_at DESC`)
}

// ListDeletedBookmarks returns only tombstoned bookmarks.
func (s *Store) ListDeletedBookmarks(ctx context.Context) ([]*model.Bookmark, error) {
	return s.queryBookmarks(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE is_deleted = 1 ORDER BY deleted_at DESC`)
}

// ListBookmarksByCollection returns every bookmark in the collection,
// including tombstoned ones; callers filter.
func (s *Store) ListBookmarksByCollection(ctx context.Context, collectionID string) ([]*model.Bookmark, error) {
	return s.queryBookmarks(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE collection_id = ? ORDER BY created_at DESC`,
		collectionID)
}

// ListFavoriteBookmarks returns active favorites.
func (s *Store) ListFavoriteBookmarks(ctx context.Context) ([]*model.Bookmark, error) {
	return s.queryBookmarks(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE is_favorite = 1 AND is_deleted = 0 ORDER BY created_at DESC`)
}

// BatchPutBookmarks upserts all bookmarks in one transaction; either every
// row is written or none is.
func (s *Store) BatchPutBookmarks(ctx context.Context, bookmarks []*model.Bookmark) error {
	if len(bookmarks) == 0 {
		return nil
	}
	for _, b := range bookmarks {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("invalid bookmark %s: %w", b.ID, err)
		}
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, b := range bookmarks {
		if err := execPutBookmark(ctx, tx, b); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch put: %w", err)
	}
	return nil
}

// BatchDeleteBookmarks physically removes the given ids in one transaction.
func (s *Store) BatchDeleteBookmarks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete bookmark %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch delete: %w", err)
	}
	return nil
}

func (s *Store) queryBookmarks(ctx context.Context, query string, args ...any) ([]*model.Bookmark, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []*model.Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookmarks: %w", err)
	}
	return bookmarks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookmark(row rowScanner) (*model.Bookmark, error) {
	var (
		b                     model.Bookmark
		isFavorite, isDeleted int
		deletedAt             sql.NullInt64
	)
	err := row.Scan(
		&b.ID, &b.URL, &b.Title, &b.Description, &b.Favicon, &b.Thumbnail,
		&b.CollectionID, &isFavorite, &isDeleted, &deletedAt,
		&b.CreatedAt, &b.LastModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	b.IsFavorite = isFavorite != 0
	b.IsDeleted = isDeleted != 0
	b.DeletedAt = millisFromNull(deletedAt)
	return &b, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
