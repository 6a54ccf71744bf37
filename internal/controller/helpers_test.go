package controller

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/markhaven/markhaven/internal/model"
	"github.com/markhaven/markhaven/internal/retention"
	"github.com/markhaven/markhaven/internal/store"
	"github.com/markhaven/markhaven/internal/sync"
)

const testUser = "user-1"

// fixture wires controllers over a real store. The engine is nil unless
// the test supplies one via setupWithEngineFactory; no background runner
// is attached, so pushes are inert and tests stay deterministic.
type fixture struct {
	store       *store.Store
	retention   *retention.Manager
	engine      sync.Syncer
	collections *Collections
	bookmarks   *Bookmarks
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWithEngineFactory(t, nil)
}

func setupWithEngineFactory(t *testing.T, makeEngine func(*store.Store) sync.Syncer) *fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}

	var engine sync.Syncer
	if makeEngine != nil {
		engine = makeEngine(s)
	}

	ret := retention.New(s, nil)
	cols := NewCollections(s, ret, engine, nil, nil)
	bms := NewBookmarks(s, ret, engine, nil, nil)
	t.Cleanup(func() {
		cols.Close()
		bms.Close()
	})

	ctx := context.Background()
	if err := cols.SetUser(ctx, testUser); err != nil {
		t.Fatalf("failed to set user: %v", err)
	}
	if err := bms.SetUser(ctx, testUser); err != nil {
		t.Fatalf("failed to set user: %v", err)
	}

	return &fixture{store: s, retention: ret, engine: engine, collections: cols, bookmarks: bms}
}

func localTestCollection(id, name string, modified int64) *model.Collection {
	return &model.Collection{
		ID:             id,
		Name:           name,
		Icon:           "folder",
		Color:          model.DefaultCollectionColor,
		CreatedAt:      modified,
		LastModifiedAt: modified,
	}
}
