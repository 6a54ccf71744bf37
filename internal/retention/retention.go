// Package retention layers tombstone semantics on the local store.
//
// Deletion is soft by default: records are marked deleted in place with a
// deletion timestamp and stay restorable until physically purged. Purging
// happens either when a tombstone outlives the retention window (swept once
// at process start) or when the user explicitly empties the recycle bin.
package retention

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/markhaven/markhaven/internal/model"
	"github.com/markhaven/markhaven/internal/store"
)

// DefaultRetentionDays is how long tombstones are kept before the startup
// sweep removes them.
const DefaultRetentionDays = 7

const dayMillis = 24 * 60 * 60 * 1000

// Manager applies soft-delete, restore and purge operations.
type Manager struct {
	store *store.Store
	log   *zap.Logger
}

// New creates a retention manager. If logger is nil, a no-op logger is used.
func New(st *store.Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: st, log: logger}
}

// SoftDeleteBookmark tombstones a single bookmark.
// Returns store.ErrNotFound if the bookmark doesn't exist.
func (m *Manager) SoftDeleteBookmark(ctx context.Context, id string) error {
	b, err := m.store.GetBookmark(ctx, id)
	if err != nil {
		return err
	}

	b.Tombstone(model.NowMillis())
	if err := m.store.PutBookmark(ctx, b); err != nil {
		return fmt.Errorf("failed to tombstone bookmark %s: %w", id, err)
	}
	return nil
}

// SoftDeleteCollection tombstones a collection and cascades to every
// bookmark referencing it. The parent is marked first, then all children
// are marked with the same timestamp in one batch transaction; the store
// has no native cascade support so the two steps are explicit.
func (m *Manager) SoftDeleteCollection(ctx context.Context, id string) error {
	c, err := m.store.GetCollection(ctx, id)
	if err != nil {
		return err
	}

	now := model.NowMillis()
	c.Tombstone(now)
	if err := m.store.PutCollection(ctx, c); err != nil {
		return fmt.Errorf("failed to tombstone collection %s: %w", id, err)
	}

	members, err := m.store.ListBookmarksByCollection(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list collection members: %w", err)
	}

	var cascade []*model.Bookmark
	for _, b := range members {
		if b.IsDeleted {
			continue
		}
		b.Tombstone(now)
		cascade = append(cascade, b)
	}
	if err := m.store.BatchPutBookmarks(ctx, cascade); err != nil {
		return fmt.Errorf("failed to cascade delete to bookmarks: %w", err)
	}

	m.log.Debug("soft-deleted collection",
		zap.String("id", id), zap.Int("cascaded", len(cascade)))
	return nil
}

// RestoreBookmark clears a bookmark's tombstone. No-op if the bookmark is
// not currently tombstoned.
func (m *Manager) RestoreBookmark(ctx context.Context, id string) error {
	b, err := m.store.GetBookmark(ctx, id)
	if err != nil {
		return err
	}
	if !b.IsDeleted {
		return nil
	}

	b.Revive(model.NowMillis())
	if err := m.store.PutBookmark(ctx, b); err != nil {
		return fmt.Errorf("failed to restore bookmark %s: %w", id, err)
	}
	return nil
}

// RestoreCollection clears a collection's tombstone. No-op if the
// collection is not currently tombstoned. Restoring can fail with
// store.ErrDuplicateName when an active collection has since taken the name.
func (m *Manager) RestoreCollection(ctx context.Context, id string) error {
	c, err := m.store.GetCollection(ctx, id)
	if err != nil {
		return err
	}
	if !c.IsDeleted {
		return nil
	}

	c.Revive(model.NowMillis())
	if err := m.store.PutCollection(ctx, c); err != nil {
		return fmt.Errorf("failed to restore collection %s: %w", id, err)
	}
	return nil
}

// PurgeExpired physically deletes tombstones whose deleted_at is older than
// the retention window. Runs once at process start; idempotent, and safe to
// run concurrently with other operations since it only targets rows already
// past the cutoff.
func (m *Manager) PurgeExpired(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := model.NowMillis() - int64(retentionDays)*dayMillis

	bookmarks, err := m.store.ListBookmarks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	collections, err := m.store.ListCollections(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list collections: %w", err)
	}

	var bookmarkIDs, collectionIDs []string
	for _, b := range bookmarks {
		if b.IsDeleted && b.DeletedAt > 0 && b.DeletedAt < cutoff {
			bookmarkIDs = append(bookmarkIDs, b.ID)
		}
	}
	for _, c := range collections {
		if c.IsDeleted && c.DeletedAt > 0 && c.DeletedAt < cutoff {
			collectionIDs = append(collectionIDs, c.ID)
		}
	}

	if err := m.store.BatchDeleteBookmarks(ctx, bookmarkIDs); err != nil {
		return 0, fmt.Errorf("failed to purge bookmarks: %w", err)
	}
	if err := m.store.BatchDeleteCollections(ctx, collectionIDs); err != nil {
		return 0, fmt.Errorf("failed to purge collections: %w", err)
	}

	purged := len(bookmarkIDs) + len(collectionIDs)
	if purged > 0 {
		m.log.Info("purged expired tombstones",
			zap.Int("bookmarks", len(bookmarkIDs)),
			zap.Int("collections", len(collectionIDs)),
			zap.Int("retention_days", retentionDays))
	}
	return purged, nil
}

// EmptyBin physically deletes every tombstoned record regardless of age.
// Explicit user action, not time-triggered.
func (m *Manager) EmptyBin(ctx context.Context) (int, error) {
	bookmarks, err := m.store.ListDeletedBookmarks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list deleted bookmarks: %w", err)
	}
	collections, err := m.store.ListDeletedCollections(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list deleted collections: %w", err)
	}

	bookmarkIDs := make([]string, 0, len(bookmarks))
	for _, b := range bookmarks {
		bookmarkIDs = append(bookmarkIDs, b.ID)
	}
	collectionIDs := make([]string, 0, len(collections))
	for _, c := range collections {
		collectionIDs = append(collectionIDs, c.ID)
	}

	if err := m.store.BatchDeleteBookmarks(ctx, bookmarkIDs); err != nil {
		return 0, fmt.Errorf("failed to empty bookmark bin: %w", err)
	}
	if err := m.store.BatchDeleteCollections(ctx, collectionIDs); err != nil {
		return 0, fmt.Errorf("failed to empty collection bin: %w", err)
	}

	return len(bookmarkIDs) + len(collectionIDs), nil
}
