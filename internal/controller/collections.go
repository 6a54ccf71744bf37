package controller

import (
	"context"
	"errors"
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

// ErrDefaultCollection is returned when an operation would rename or
// delete the reserved default collection.
var ErrDefaultCollection = errors.New("default collection cannot be renamed or deleted")

// CollectionInput carries the user-editable fields for a new collection.
type CollectionInput struct {
	Name        string
	Description string
	Icon        string
	Color       string
	ParentID    string
	Order       int
}

// CollectionUpdate is a partial update; nil fields are left unchanged.
type CollectionUpdate struct {
	Name        *string
	Description *string
	Icon        *string
	Color       *string
	ParentID    *string
	Order       *int
}

// Collections is the in-memory reactive cache of active collections.
type Collections struct {
	mu     gosync.RWMutex
	items  []*model.Collection
	userID string

	store     *store.Store
	retention *retention.Manager
	engine    sync.Syncer
	runner    *jobs.Runner
	log       *zap.Logger
	unsub     func()
}

// NewCollections creates the collection controller and subscribes it to
// sync completion so merged remote data shows up without a restart.
func NewCollections(st *store.Store, ret *retention.Manager, engine sync.Syncer, runner *jobs.Runner, logger *zap.Logger) *Collections {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Collections{
		store:     st,
		retention: ret,
		engine:    engine,
		runner:    runner,
		log:       logger,
	}
	if engine != nil {
		c.unsub = engine.OnSyncComplete(func() {
			if err := c.LoadAll(context.Background()); err != nil {
				c.log.Warn("failed to reload collections after sync", zap.Error(err))
			}
		})
	}
	return c
}

// Close unsubscribes from sync notifications.
func (c *Collections) Close() {
	if c.unsub != nil {
		c.unsub()
	}
}

// LoadAll replaces the in-memory list with the store's active collections.
func (c *Collections) LoadAll(ctx context.Context) error {
	items, err := c.store.ListActiveCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to load collections: %w", err)
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}

// SetUser switches the authenticated user. An empty id clears the cache
// (sign-out); otherwise the cache reloads from the local store.
func (c *Collections) SetUser(ctx context.Context, userID string) error {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()

	if userID == "" {
		c.Reset()
		return nil
	}
	return c.LoadAll(ctx)
}

// Reset clears all in-memory state. Called on sign-out.
func (c *Collections) Reset() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// List returns the active collections in sibling order.
func (c *Collections) List() []*model.Collection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Collection, len(c.items))
	copy(out, c.items)
	return out
}

// Get returns the active collection with the given id.
func (c *Collections) Get(id string) (*model.Collection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, col := range c.items {
		if col.ID == id {
			return col, nil
		}
	}
	return nil, fmt.Errorf("collection %s: %w", id, store.ErrNotFound)
}

// FindByName does a case-insensitive lookup among cached collections.
func (c *Collections) FindByName(name string) *model.Collection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, col := range c.items {
		if strings.EqualFold(col.Name, name) {
			return col
		}
	}
	return nil
}

// EnsureDefault creates the reserved default collection if it doesn't
// exist yet. Runs at startup before any bookmark can be added.
func (c *Collections) EnsureDefault(ctx context.Context) (*model.Collection, error) {
	existing, err := c.store.FindActiveCollectionByName(ctx, model.DefaultCollectionName)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := model.NowMillis()
	def := &model.Collection{
		ID:             uuid.NewString(),
		Name:           model.DefaultCollectionName,
		Icon:           "folder",
		Color:          model.DefaultCollectionColor,
		CreatedAt:      now,
		LastModifiedAt: now,
	}
	if err := c.store.PutCollection(ctx, def); err != nil {
		return nil, fmt.Errorf("failed to create default collection: %w", err)
	}

	c.mu.Lock()
	c.items = append(c.items, def)
	c.mu.Unlock()

	c.log.Info("created default collection", zap.String("id", def.ID))
	return def, nil
}

// Add creates a collection with a client-assigned id, applies it
// optimistically and persists it. The duplicate-name check runs both here
// (fast, in-memory) and at the store layer (authoritative unique index),
// so racing adds cannot both succeed.
func (c *Collections) Add(ctx context.Context, in CollectionInput) (*model.Collection, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if c.FindByName(name) != nil {
		return nil, fmt.Errorf("collection %q: %w", name, store.ErrDuplicateName)
	}

	now := model.NowMillis()
	col := &model.Collection{
		ID:             uuid.NewString(),
		Name:           name,
		Description:    in.Description,
		Icon:           in.Icon,
		Color:          in.Color,
		ParentID:       in.ParentID,
		Order:          in.Order,
		CreatedAt:      now,
		LastModifiedAt: now,
	}
	if col.Icon == "" {
		col.Icon = "folder"
	}
	if col.Color == "" {
		col.Color = model.DefaultCollectionColor
	}
	if err := col.Validate(); err != nil {
		return nil, fmt.Errorf("invalid collection: %w", err)
	}

	err := mutate(
		func() {
			c.mu.Lock()
			c.items = append(c.items, col)
			c.mu.Unlock()
		},
		func() error { return c.store.PutCollection(ctx, col) },
		func() {
			c.mu.Lock()
			c.items = removeCollection(c.items, col.ID)
			c.mu.Unlock()
		},
	)
	if err != nil {
		return nil, err
	}

	c.triggerPush(false)
	return col, nil
}

// Update merges the partial update into the collection, bumps its
// modification timestamp, and persists with rollback on failure.
func (c *Collections) Update(ctx context.Context, id string, upd CollectionUpdate) (*model.Collection, error) {
	existing, err := c.Get(id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		newName := strings.TrimSpace(*upd.Name)
		if newName == "" {
			return nil, fmt.Errorf("collection name is required")
		}
		if existing.IsDefault() && !strings.EqualFold(newName, existing.Name) {
			return nil, ErrDefaultCollection
		}
		if dup := c.FindByName(newName); dup != nil && dup.ID != id {
			return nil, fmt.Errorf("collection %q: %w", newName, store.ErrDuplicateName)
		}
	}

	prev := existing.Clone()
	next := existing.Clone()
	if upd.Name != nil {
		next.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		next.Description = *upd.Description
	}
	if upd.Icon != nil {
		next.Icon = *upd.Icon
	}
	if upd.Color != nil {
		next.Color = *upd.Color
	}
	if upd.ParentID != nil {
		next.ParentID = *upd.ParentID
	}
	if upd.Order != nil {
		next.Order = *upd.Order
	}
	next.Touch(model.NowMillis())

	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("invalid collection: %w", err)
	}

	err = mutate(
		func() { c.replace(next) },
		func() error { return c.store.PutCollection(ctx, next) },
		func() { c.replace(prev) },
	)
	if err != nil {
		return nil, err
	}

	c.triggerPush(false)
	return next, nil
}

// Remove soft-deletes the collection, cascading to its bookmarks, and
// drops it from the cache. The local tombstone is already committed when
// the background push runs, so a failed push is not rolled back.
func (c *Collections) Remove(ctx context.Context, id string) error {
	existing, err := c.Get(id)
	if err != nil {
		return err
	}
	if existing.IsDefault() {
		return ErrDefaultCollection
	}

	if err := c.retention.SoftDeleteCollection(ctx, id); err != nil {
		return err
	}

	c.mu.Lock()
	c.items = removeCollection(c.items, id)
	c.mu.Unlock()

	// Cascade touched bookmarks too, so push both entity types.
	c.triggerPush(true)
	return nil
}

// Restore revives a tombstoned collection and reloads the cache. Fails
// with store.ErrDuplicateName when an active collection has since taken
// the name.
func (c *Collections) Restore(ctx context.Context, id string) error {
	if err := c.retention.RestoreCollection(ctx, id); err != nil {
		return err
	}
	if err := c.LoadAll(ctx); err != nil {
		return err
	}
	c.triggerPush(false)
	return nil
}

func (c *Collections) replace(col *model.Collection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, item := range c.items {
		if item.ID == col.ID {
			c.items[i] = col
			return
		}
	}
}

func (c *Collections) user() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// triggerPush submits a fire-and-forget background push. withBookmarks
// also pushes bookmarks, for mutations that cascade.
func (c *Collections) triggerPush(withBookmarks bool) {
	userID := c.user()
	if userID == "" || c.runner == nil || c.engine == nil {
		return
	}

	c.runner.Submit(func(ctx context.Context) {
		if err := c.engine.PushCollections(ctx, userID); err != nil {
			c.log.Warn("background collection push failed", zap.Error(err))
		}
		if withBookmarks {
			if err := c.engine.PushBookmarks(ctx, userID); err != nil {
				c.log.Warn("background bookmark push failed", zap.Error(err))
			}
		}
	})
}

func removeCollection(items []*model.Collection, id string) []*model.Collection {
	out := items[:0]
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}
