package controller

import (
	"context"
	"fmt"
	"strings"
	gosync "sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/markhaven/markhaven/internal/jobs"
	"github.com/markhaven/markhaven/internal/model"
	"github.com/markhaven/markhaven/internal/retention"
	"github.com/markhaven/markhaven/internal/store"
	"github.com/markhaven/markhaven/internal/sync"
)

// BookmarkInput carries the user-editable fields for a new bookmark.
// An empty CollectionID resolves to the default collection.
type BookmarkInput struct {
	URL          string
	Title        string
	Description  string
	Favicon      string
	Thumbnail    string
	CollectionID string
	IsFavorite   bool
}

// BookmarkUpdate is a partial update; nil fields are left unchanged.
type BookmarkUpdate struct {
	URL          *string
	Title        *string
	Description  *string
	Favicon      *string
	Thumbnail    *string
	CollectionID *string
	IsFavorite   *bool
}

// Bookmarks is the in-memory reactive cache of active bookmarks.
type Bookmarks struct {
	mu     gosync.RWMutex
	items  []*model.Bookmark
	userID string

	store     *store.Store
	retention *retention.Manager
	engine    sync.Syncer
	runner    *jobs.Runner
	log       *zap.Logger
	unsub     func()
}

// NewBookmarks creates the bookmark controller and subscribes it to sync
// completion.
func NewBookmarks(st *store.Store, ret *retention.Manager, engine sync.Syncer, runner *jobs.Runner, logger *zap.Logger) *Bookmarks {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Bookmarks{
		store:     st,
		retention: ret,
		engine:    engine,
		runner:    runner,
		log:       logger,
	}
	if engine != nil {
		b.unsub = engine.OnSyncComplete(func() {
			if err := b.LoadAll(context.Background()); err != nil {
				b.log.Warn("failed to reload bookmarks after sync", zap.Error(err))
			}
		})
	}
	return b
}

// Close unsubscribes from sync notifications.
func (b *Bookmarks) Close() {
	if b.unsub != nil {
		b.unsub()
	}
}

// LoadAll replaces the in-memory list with the store's active bookmarks.
func (b *Bookmarks) LoadAll(ctx context.Context) error {
	items, err := b.store.ListActiveBookmarks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bookmarks: %w", err)
	}

	b.mu.Lock()
	b.items = items
	b.mu.Unlock()
	return nil
}

// SetUser switches the authenticated user; an empty id clears the cache.
func (b *Bookmarks) SetUser(ctx context.Context, userID string) error {
	b.mu.Lock()
	b.userID = userID
	b.mu.Unlock()

	if userID == "" {
		b.Reset()
		return nil
	}
	return b.LoadAll(ctx)
}

// Reset clears all in-memory state.
func (b *Bookmarks) Reset() {
	b.mu.Lock()
	b.items = nil
	b.mu.Unlock()
}

// List returns the active bookmarks, newest first.
func (b *Bookmarks) List() []*model.Bookmark {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*model.Bookmark, len(b.items))
	copy(out, b.items)
	return out
}

// ListByCollection filters the cache by collection id.
func (b *Bookmarks) ListByCollection(collectionID string) []*model.Bookmark {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*model.Bookmark
	for _, bm := range b.items {
		if bm.CollectionID == collectionID {
			out = append(out, bm)
		}
	}
	return out
}

// Favorites returns the cached favorites.
func (b *Bookmarks) Favorites() []*model.Bookmark {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*model.Bookmark
	for _, bm := range b.items {
		if bm.IsFavorite {
			out = append(out, bm)
		}
	}
	return out
}

// Get returns the active bookmark with the given id.
func (b *Bookmarks) Get(id string) (*model.Bookmark, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, bm := range b.items {
		if bm.ID == id {
			return bm, nil
		}
	}
	return nil, fmt.Errorf("bookmark %s: %w", id, store.ErrNotFound)
}

// Add creates a bookmark with a client-assigned id, applies it
// optimistically and persists it. The target collection must exist and be
// active; an empty collection id resolves to the default collection.
func (b *Bookmarks) Add(ctx context.Context, in BookmarkInput) (*model.Bookmark, error) {
	url := strings.TrimSpace(in.URL)
	if url == "" {
		return nil, fmt.Errorf("bookmark url is required")
	}

	collectionID, err := b.resolveCollection(ctx, in.CollectionID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = url
	}

	now := model.NowMillis()
	bm := &model.Bookmark{
		ID:             uuid.NewString(),
		URL:            url,
		Title:          title,
		Description:    in.Description,
		Favicon:        in.Favicon,
		Thumbnail:      in.Thumbnail,
		CollectionID:   collectionID,
		IsFavorite:     in.IsFavorite,
		CreatedAt:      now,
		LastModifiedAt: now,
	}
	if err := bm.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bookmark: %w", err)
	}

	err = mutate(
		func() {
			b.mu.Lock()
			b.items = append([]*model.Bookmark{bm}, b.items...)
			b.mu.Unlock()
		},
		func() error { return b.store.PutBookmark(ctx, bm) },
		func() {
			b.mu.Lock()
			b.items = removeBookmark(b.items, bm.ID)
			b.mu.Unlock()
		},
	)
	if err != nil {
		return nil, err
	}

	b.triggerPush()
	return bm, nil
}

// Update merges the partial update, bumps the modification timestamp and
// persists with rollback on failure.
func (b *Bookmarks) Update(ctx context.Context, id string, upd BookmarkUpdate) (*model.Bookmark, error) {
	existing, err := b.Get(id)
	if err != nil {
		return nil, err
	}

	prev := existing.Clone()
	next := existing.Clone()
	if upd.URL != nil {
		next.URL = strings.TrimSpace(*upd.URL)
	}
	if upd.Title != nil {
		next.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		next.Description = *upd.Description
	}
	if upd.Favicon != nil {
		next.Favicon = *upd.Favicon
	}
	if upd.Thumbnail != nil {
		next.Thumbnail = *upd.Thumbnail
	}
	if upd.CollectionID != nil && *upd.CollectionID != existing.CollectionID {
		collectionID, err := b.resolveCollection(ctx, *upd.CollectionID)
		if err != nil {
			return nil, err
		}
		next.CollectionID = collectionID
	}
	if upd.IsFavorite != nil {
		next.IsFavorite = *upd.IsFavorite
	}
	next.Touch(model.NowMillis())

	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bookmark: %w", err)
	}

	err = mutate(
		func() { b.replace(next) },
		func() error { return b.store.PutBookmark(ctx, next) },
		func() { b.replace(prev) },
	)
	if err != nil {
		return nil, err
	}

	b.triggerPush()
	return next, nil
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (b *Bookmarks) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	existing, err := b.Get(id)
	if err != nil {
		return false, err
	}

	fav := !existing.IsFavorite
	if _, err := b.Update(ctx, id, BookmarkUpdate{IsFavorite: &fav}); err != nil {
		return false, err
	}
	return fav, nil
}

// MoveToCollection reassigns the bookmark to another collection.
func (b *Bookmarks) MoveToCollection(ctx context.Context, id, collectionID string) error {
	_, err := b.Update(ctx, id, BookmarkUpdate{CollectionID: &collectionID})
	return err
}

// Remove soft-deletes the bookmark and drops it from the cache. The local
// tombstone is already committed when the background push runs, so a
// failed push is not rolled back.
func (b *Bookmarks) Remove(ctx context.Context, id string) error {
	if _, err := b.Get(id); err != nil {
		return err
	}

	if err := b.retention.SoftDeleteBookmark(ctx, id); err != nil {
		return err
	}

	b.mu.Lock()
	b.items = removeBookmark(b.items, id)
	b.mu.Unlock()

	b.triggerPush()
	return nil
}

// Restore revives a tombstoned bookmark and reloads the cache.
func (b *Bookmarks) Restore(ctx context.Context, id string) error {
	if err := b.retention.RestoreBookmark(ctx, id); err != nil {
		return err
	}
	if err := b.LoadAll(ctx); err != nil {
		return err
	}
	b.triggerPush()
	return nil
}

// resolveCollection validates that the target collection exists and is
// active, resolving an empty id to the default collection.
func (b *Bookmarks) resolveCollection(ctx context.Context, id string) (string, error) {
	if id == "" {
		def, err := b.store.FindActiveCollectionByName(ctx, model.DefaultCollectionName)
		if err != nil {
			return "", fmt.Errorf("no collection given and default collection missing: %w", err)
		}
		return def.ID, nil
	}

	col, err := b.store.GetCollection(ctx, id)
	if err != nil {
		return "", err
	}
	if col.IsDeleted {
		return "", fmt.Errorf("collection %s: %w", id, store.ErrNotFound)
	}
	return col.ID, nil
}

func (b *Bookmarks) replace(bm *model.Bookmark) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, item := range b.items {
		if item.ID == bm.ID {
			b.items[i] = bm
			return
		}
	}
}

func (b *Bookmarks) user() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.userID
}

func (b *Bookmarks) triggerPush() {
	userID := b.user()
	if userID == "" || b.runner == nil || b.engine == nil {
		return
	}

	b.runner.Submit(func(ctx context.Context) {
		if err := b.engine.PushBookmarks(ctx, userID); err != nil {
			b.log.Warn("background bookmark push failed", zap.Error(err))
		}
	})
}

func removeBookmark(items []*model.Bookmark, id string) []*model.Bookmark {
	out := items[:0]
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}
