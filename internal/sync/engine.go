package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/markhaven/markhaven/internal/model"
	"github.com/markhaven/markhaven/internal/remote"
	"github.com/markhaven/markhaven/internal/store"
)

// engine implements Syncer. Construct one per process and pass it by
// reference to whatever owns the session lifecycle; the "one sync at a
// time" rule lives in the syncing flag, not in package state.
type engine struct {
	store  *store.Store
	remote remote.Store
	log    *zap.Logger

	mu          gosync.Mutex
	syncing     bool
	initialDone bool
	lastSync    int64
	nextSubID   int
	subs        map[int]func()
}

// New creates a sync engine. The store must be opened and have its schema
// initialized. If logger is nil, a no-op logger is used.
//
// The last-sync timestamp is recovered from the store's metadata table so
// Status is meaningful across restarts.
func New(st *store.Store, rs remote.Store, logger *zap.Logger) Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &engine{
		store:  st,
		remote: rs,
		log:    logger,
		subs:   make(map[int]func()),
	}

	if raw, err := st.GetMeta(context.Background(), store.MetaLastSync); err == nil && raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			e.lastSync = ms
		}
	}

	return e
}

// tryBegin claims the syncing flag. Returns false when a sync is already
// in flight.
func (e *engine) tryBegin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.syncing {
		return false
	}
	e.syncing = true
	return true
}

func (e *engine) end() {
	e.mu.Lock()
	e.syncing = false
	e.mu.Unlock()
}

// FullSync implements Syncer.
func (e *engine) FullSync(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required for sync")
	}
	if !e.tryBegin() {
		e.log.Debug("sync already in progress, skipping full sync")
		return nil
	}
	defer e.end()

	start := time.Now()
	var stats passStats

	// Collections reconcile fully before bookmarks so that bookmark
	// collection references resolve after the pass.
	if err := e.pullCollections(ctx, userID, &stats); err != nil {
		return err
	}
	if err := e.pushCollections(ctx, userID, &stats); err != nil {
		return err
	}
	if err := e.pullBookmarks(ctx, userID, &stats); err != nil {
		return err
	}
	if err := e.pushBookmarks(ctx, userID, &stats); err != nil {
		return err
	}

	e.finish(ctx)
	e.log.Info("full sync complete",
		zap.Int("pulled", stats.pulled),
		zap.Int("pushed", stats.pushed),
		zap.Int("failed", stats.failed),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// InitialSync implements Syncer. Pull both entity types before pushing
// anything, so a fresh device converges on the account state before its
// (usually empty) local state is considered for push.
func (e *engine) InitialSync(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required for sync")
	}

	e.mu.Lock()
	done := e.initialDone
	e.mu.Unlock()
	if done {
		return nil
	}

	if !e.tryBegin() {
		e.log.Debug("sync already in progress, skipping initial sync")
		return nil
	}
	defer e.end()

	start := time.Now()
	var stats passStats

	if err := e.pullCollections(ctx, userID, &stats); err != nil {
		return err
	}
	if err := e.pullBookmarks(ctx, userID, &stats); err != nil {
		return err
	}
	if err := e.pushCollections(ctx, userID, &stats); err != nil {
		return err
	}
	if err := e.pushBookmarks(ctx, userID, &stats); err != nil {
		return err
	}

	e.mu.Lock()
	e.initialDone = true
	e.mu.Unlock()

	e.finish(ctx)
	e.log.Info("initial sync complete",
		zap.Int("pulled", stats.pulled),
		zap.Int("pushed", stats.pushed),
		zap.Int("failed", stats.failed),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// PushCollections implements Syncer.
func (e *engine) PushCollections(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if !e.tryBegin() {
		return nil
	}
	defer e.end()

	var stats passStats
	return e.pushCollections(ctx, userID, &stats)
}

// PushBookmarks implements Syncer.
func (e *engine) PushBookmarks(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if !e.tryBegin() {
		return nil
	}
	defer e.end()

	var stats passStats
	return e.pushBookmarks(ctx, userID, &stats)
}

// OnSyncComplete implements Syncer.
func (e *engine) OnSyncComplete(fn func()) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSubID
	e.nextSubID++
	e.subs[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

// Status implements Syncer.
func (e *engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{Syncing: e.syncing, LastSync: e.lastSync}
}

// ResetSession implements Syncer.
func (e *engine) ResetSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initialDone = false
}

type passStats struct {
	pulled int
	pushed int
	failed int
}

// pullCollections overlays remote collection state onto the local store.
// Remote rows absent locally are inserted as-is, tombstone state included.
// For rows present in both replicas the strictly newer modification
// timestamp wins; ties keep local. Equal timestamps with different content
// are never reconciled by content - accepted coarse-LWW limitation.
func (e *engine) pullCollections(ctx context.Context, userID string, stats *passStats) error {
	rows, err := e.remote.ListCollections(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch remote collections: %w", err)
	}

	locals, err := e.store.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list local collections: %w", err)
	}
	localByID := make(map[string]*model.Collection, len(locals))
	for _, c := range locals {
		localByID[c.ID] = c
	}

	for _, row := range rows {
		m, err := row.ToModel()
		if err != nil {
			e.log.Warn("skipping malformed remote collection",
				zap.String("id", row.ID), zap.Error(err))
			stats.failed++
			continue
		}

		local, ok := localByID[m.ID]
		if !ok {
			if err := e.store.PutCollection(ctx, m); err != nil {
				e.log.Warn("failed to insert pulled collection",
					zap.String("id", m.ID), zap.Error(err))
				stats.failed++
				continue
			}
			stats.pulled++
			continue
		}

		if m.LastModifiedAt <= local.LastModifiedAt {
			continue
		}

		merged := local.Clone()
		merged.Name = m.Name
		merged.Description = m.Description
		merged.Icon = m.Icon
		merged.Color = m.Color
		merged.ParentID = m.ParentID
		merged.Order = m.Order
		merged.IsDeleted = m.IsDeleted
		merged.DeletedAt = m.DeletedAt
		merged.LastModifiedAt = m.LastModifiedAt
		// CreatedAt is immutable and stays local.

		if err := e.store.PutCollection(ctx, merged); err != nil {
			e.log.Warn("failed to apply pulled collection",
				zap.String("id", m.ID), zap.Error(err))
			stats.failed++
			continue
		}
		stats.pulled++
	}

	return nil
}

// pushCollections pushes local collections the remote replica is missing
// or holds stale. Ties favor no write.
func (e *engine) pushCollections(ctx context.Context, userID string, stats *passStats) error {
	locals, err := e.store.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list local collections: %w", err)
	}

	for _, c := range locals {
		row, err := e.remote.GetCollection(ctx, userID, c.ID)
		if errors.Is(err, remote.ErrRowNotFound) {
			if err := e.remote.InsertCollection(ctx, remote.CollectionRowFrom(userID, c)); err != nil {
				e.log.Warn("failed to push new collection",
					zap.String("id", c.ID), zap.Error(err))
				stats.failed++
				continue
			}
			stats.pushed++
			continue
		}
		if err != nil {
			e.log.Warn("failed to look up remote collection",
				zap.String("id", c.ID), zap.Error(err))
			stats.failed++
			continue
		}

		remoteMs, err := row.ModifiedMillis()
		if err != nil {
			e.log.Warn("remote collection has malformed timestamp",
				zap.String("id", c.ID), zap.Error(err))
			stats.failed++
			continue
		}
		if c.LastModifiedAt <= remoteMs {
			continue
		}

		if err := e.remote.UpdateCollection(ctx, remote.CollectionRowFrom(userID, c)); err != nil {
			e.log.Warn("failed to push updated collection",
				zap.String("id", c.ID), zap.Error(err))
			stats.failed++
			continue
		}
		stats.pushed++
	}

	return nil
}

// pullBookmarks mirrors pullCollections for bookmarks.
func (e *engine) pullBookmarks(ctx context.Context, userID string, stats *passStats) error {
	rows, err := e.remote.ListBookmarks(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch remote bookmarks: %w", err)
	}

	locals, err := e.store.ListBookmarks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list local bookmarks: %w", err)
	}
	localByID := make(map[string]*model.Bookmark, len(locals))
	for _, b := range locals {
		localByID[b.ID] = b
	}

	for _, row := range rows {
		m, err := row.ToModel()
		if err != nil {
			e.log.Warn("skipping malformed remote bookmark",
				zap.String("id", row.ID), zap.Error(err))
			stats.failed++
			continue
		}

		local, ok := localByID[m.ID]
		if !ok {
			if err := e.store.PutBookmark(ctx, m); err != nil {
				e.log.Warn("failed to insert pulled bookmark",
					zap.String("id", m.ID), zap.Error(err))
				stats.failed++
				continue
			}
			stats.pulled++
			continue
		}

		if m.LastModifiedAt <= local.LastModifiedAt {
			continue
		}

		merged := local.Clone()
		merged.URL = m.URL
		merged.Title = m.Title
		merged.Description = m.Description
		merged.Favicon = m.Favicon
		merged.Thumbnail = m.Thumbnail
		merged.CollectionID = m.CollectionID
		merged.IsFavorite = m.IsFavorite
		merged.IsDeleted = m.IsDeleted
		merged.DeletedAt = m.DeletedAt
		merged.LastModifiedAt = m.LastModifiedAt

		if err := e.store.PutBookmark(ctx, merged); err != nil {
			e.log.Warn("failed to apply pulled bookmark",
				zap.String("id", m.ID), zap.Error(err))
			stats.failed++
			continue
		}
		stats.pulled++
	}

	return nil
}

// pushBookmarks mirrors pushCollections for bookmarks.
func (e *engine) pushBookmarks(ctx context.Context, userID string, stats *passStats) error {
	locals, err := e.store.ListBookmarks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list local bookmarks: %w", err)
	}

	for _, b := range locals {
		row, err := e.remote.GetBookmark(ctx, userID, b.ID)
		if errors.Is(err, remote.ErrRowNotFound) {
			if err := e.remote.InsertBookmark(ctx, remote.BookmarkRowFrom(userID, b)); err != nil {
				e.log.Warn("failed to push new bookmark",
					zap.String("id", b.ID), zap.Error(err))
				stats.failed++
				continue
			}
			stats.pushed++
			continue
		}
		if err != nil {
			e.log.Warn("failed to look up remote bookmark",
				zap.String("id", b.ID), zap.Error(err))
			stats.failed++
			continue
		}

		remoteMs, err := row.ModifiedMillis()
		if err != nil {
			e.log.Warn("remote bookmark has malformed timestamp",
				zap.String("id", b.ID), zap.Error(err))
			stats.failed++
			continue
		}
		if b.LastModifiedAt <= remoteMs {
			continue
		}

		if err := e.remote.UpdateBookmark(ctx, remote.BookmarkRowFrom(userID, b)); err != nil {
			e.log.Warn("failed to push updated bookmark",
				zap.String("id", b.ID), zap.Error(err))
			stats.failed++
			continue
		}
		stats.pushed++
	}

	return nil
}

// finish records the completion time and fires the completion callbacks.
func (e *engine) finish(ctx context.Context) {
	now := model.NowMillis()

	e.mu.Lock()
	e.lastSync = now
	callbacks := make([]func(), 0, len(e.subs))
	for _, fn := range e.subs {
		callbacks = append(callbacks, fn)
	}
	e.mu.Unlock()

	if err := e.store.SetMeta(ctx, store.MetaLastSync, strconv.FormatInt(now, 10)); err != nil {
		e.log.Warn("failed to persist last-sync timestamp", zap.Error(err))
	}

	for _, fn := range callbacks {
		fn()
	}
}
