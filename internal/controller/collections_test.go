package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/markhaven/markhaven/internal/model"
	"github.com/markhaven/markhaven/internal/store"
)

func TestCollectionsAddAndList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	col, err := f.collections.Add(ctx, CollectionInput{Name: "  Reading  ", Color: "#ff0000"})
	if err != nil {
		t.Fatalf("failed to add: %v", err)
	}
	if col.Name != "Reading" {
		t.Errorf("name not trimmed: %q", col.Name)
	}
	if col.Icon != "folder" {
		t.Errorf("icon default not applied: %q", col.Icon)
	}
	if col.ID == "" || col.CreatedAt == 0 || col.LastModifiedAt == 0 {
		t.Errorf("identity fields not set: %+v", col)
	}

	if len(f.collections.List()) != 1 {
		t.Errorf("cache not updated after add")
	}

	// Persisted, not just cached.
	if _, err := f.store.GetCollection(ctx, col.ID); err != nil {
		t.Errorf("collection not persisted: %v", err)
	}
}

func TestCollectionsAddRejectsDuplicateName(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.collections.Add(ctx, CollectionInput{Name: "Reading"}); err != nil {
		t.Fatalf("failed to add: %v", err)
	}

	_, err := f.collections.Add(ctx, CollectionInput{Name: "reading"})
	if !errors.Is(err, store.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestCollectionsAddRollsBackOnStoreConflict(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// A row the controller cache has not seen, as if another process
	// wrote it. The in-memory duplicate check passes; the store's unique
	// index rejects, and the optimistic entry must be rolled back.
	now := model.NowMillis()
	hidden := &model.Collection{
		ID: "col-hidden", Name: "Reading", Icon: "folder",
		Color: model.DefaultCollectionColor, CreatedAt: now, LastModifiedAt: now,
	}
	if err := f.store.PutCollection(ctx, hidden); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	_, err := f.collections.Add(ctx, CollectionInput{Name: "Reading"})
	if !errors.Is(err, store.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if len(f.collections.List()) != 0 {
		t.Error("failed add left a phantom entry in the cache")
	}
}

func TestEnsureDefaultIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.collections.EnsureDefault(ctx)
	if err != nil {
		t.Fatalf("failed to ensure default: %v", err)
	}
	if first.Name != model.DefaultCollectionName {
		t.Errorf("name = %q", first.Name)
	}

	second, err := f.collections.EnsureDefault(ctx)
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if second.ID != first.ID {
		t.Error("ensure created a second default collection")
	}
}

func TestCollectionsUpdate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	col, err := f.collections.Add(ctx, CollectionInput{Name: "Reading"})
	if err != nil {
		t.Fatalf("failed to add: %v", err)
	}
	before := col.LastModifiedAt

	name := "Articles"
	desc := "long reads"
	updated, err := f.collections.Update(ctx, col.ID, CollectionUpdate{Name: &name, Description: &desc})
	if err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	if updated.Name != "Articles" || updated.Description != "long reads" {
		t.Errorf("update not applied: %+v", updated)
	}
	if updated.LastModifiedAt < before {
		t.Error("update must bump the modification timestamp")
	}
	if updated.Icon != col.Icon {
		t.Error("unspecified fields must be preserved")
	}
}

func TestCollectionsUpdateRejectsTakenName(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.collections.Add(ctx, CollectionInput{Name: "Reading"}); err != nil {
		t.Fatalf("failed to add: %v", err)
	}
	col, err := f.collections.Add(ctx, CollectionInput{Name: "Work"})
	if err != nil {
		t.Fatalf("failed to add: %v", err)
	}

	name := "READING"
	_, err = f.collections.Update(ctx, col.ID, CollectionUpdate{Name: &name})
	if !errors.Is(err, store.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}

	// Renaming to its own name (case change) is allowed.
	self := "WORK"
	if _, err := f.collections.Update(ctx, col.ID, CollectionUpdate{Name: &self}); err != nil {
		t.Errorf("case-only self-rename should succeed: %v", err)
	}
}

func TestDefaultCollectionIsProtected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	def, err := f.collections.EnsureDefault(ctx)
	if err != nil {
		t.Fatalf("failed to ensure default: %v", err)
	}

	name := "Renamed"
	if _, err := f.collections.Update(ctx, def.ID, CollectionUpdate{Name: &name}); !errors.Is(err, ErrDefaultCollection) {
		t.Errorf("rename: expected ErrDefaultCollection, got %v", err)
	}
	if err := f.collections.Remove(ctx, def.ID); !errors.Is(err, ErrDefaultCollection) {
		t.Errorf("remove: expected ErrDefaultCollection, got %v", err)
	}

	// Non-name updates stay allowed.
	color := "#00ff00"
	if _, err := f.collections.Update(ctx, def.ID, CollectionUpdate{Color: &color}); err != nil {
		t.Errorf("default recolor should succeed: %v", err)
	}
}

func TestCollectionsRemoveCascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	col, err := f.collections.Add(ctx, CollectionInput{Name: "Reading"})
	if err != nil {
		t.Fatalf("failed to add collection: %v", err)
	}
	bm, err := f.bookmarks.Add(ctx, BookmarkInput{URL: "https://example.com", CollectionID: col.ID})
	if err != nil {
		t.Fatalf("failed to add bookmark: %v", err)
	}

	if err := f.collections.Remove(ctx, col.ID); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}

	if _, err := f.collections.Get(col.ID); !errors.Is(err, store.ErrNotFound) {
		t.Error("removed collection still in cache")
	}

	stored, err := f.store.GetBookmark(ctx, bm.ID)
	if err != nil {
		t.Fatalf("failed to get bookmark: %v", err)
	}
	if !stored.IsDeleted {
		t.Error("member bookmark not cascaded to bin")
	}
}

func TestCollectionsRestore(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	col, err := f.collections.Add(ctx, CollectionInput{Name: "Reading"})
	if err != nil {
		t.Fatalf("failed to add: %v", err)
	}
	if err := f.collections.Remove(ctx, col.ID); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}

	if err := f.collections.Restore(ctx, col.ID); err != nil {
		t.Fatalf("failed to restore: %v", err)
	}
	if _, err := f.collections.Get(col.ID); err != nil {
		t.Errorf("restored collection missing from cache: %v", err)
	}
}
