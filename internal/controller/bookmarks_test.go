package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/markhaven/markhaven/internal/remote"
	"github.com/markhaven/markhaven/internal/store"
	"github.com/markhaven/markhaven/internal/sync"
)

func TestBookmarksAddDefaultsToDefaultCollection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	def, err := f.collections.EnsureDefault(ctx)
	if err != nil {
		t.Fatalf("failed to ensure default: %v", err)
	}

	bm, err := f.bookmarks.Add(ctx, BookmarkInput{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("failed to add: %v", err)
	}
	if bm.CollectionID != def.ID {
		t.Errorf("CollectionID = %q, want default %q", bm.CollectionID, def.ID)
	}
	if bm.Title != "https://example.com" {
		t.Errorf("title should default to the URL, got %q", bm.Title)
	}
}

func TestBookmarksAddRequiresURL(t *testing.T) {
	f := setup(t)

	if _, err := f.bookmarks.Add(context.Background(), BookmarkInput{URL: "   "}); err == nil {
		t.Error("expected error for blank URL")
	}
}

func TestBookmarksAddRejectsUnknownCollection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.bookmarks.Add(ctx, BookmarkInput{URL: "https://example.com", CollectionID: "nope"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBookmarksAddRejectsBinnedCollection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	col, err := f.collections.Add(ctx, CollectionInput{Name: "Reading"})
	if err != nil {
		t.Fatalf("failed to add collection: %v", err)
	}
	if err := f.collections.Remove(ctx, col.ID); err != nil {
		t.Fatalf("failed to remove collection: %v", err)
	}

	_, err = f.bookmarks.Add(ctx, BookmarkInput{URL: "https://example.com", CollectionID: col.ID})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("binned collection must not accept bookmarks, got %v", err)
	}
}

func TestBookmarksUpdatePartial(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.collections.EnsureDefault(ctx); err != nil {
		t.Fatalf("failed to ensure default: %v", err)
	}
	bm, err := f.bookmarks.Add(ctx, BookmarkInput{URL: "https://example.com", Title: "Example", Description: "old"})
	if err != nil {
		t.Fatalf("failed to add: %v", err)
	}

	title := "Renamed"
	updated, err := f.bookmarks.Update(ctx, bm.ID, BookmarkUpdate{Title: &title})
	if err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Errorf("title not updated: %q", updated.Title)
	}
	if updated.Description != "old" || updated.URL != bm.URL {
		t.Errorf("unspecified fields must be preserved: %+v", updated)
	}
	if updated.LastModifiedAt < bm.LastModifiedAt {
		t.Error("update must bump the modification timestamp")
	}
}

func TestBookmarksToggleFavorite(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.collections.EnsureDefault(ctx); err != nil {
		t.Fatalf("failed to ensure default: %v", err)
	}
	bm, err := f.bookmarks.Add(ctx, BookmarkInput{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("failed to add: %v", err)
	}

	fav, err := f.bookmarks.ToggleFavorite(ctx, bm.ID)
	if err != nil {
		t.Fatalf("failed to toggle: %v", err)
	}
	if !fav {
		t.Error("first toggle should favorite")
	}
	if len(f.bookmarks.Favorites()) != 1 {
		t.Error("favorites cache not updated")
	}

	fav, err = f.bookmarks.ToggleFavorite(ctx, bm.ID)
	if err != nil {
		t.Fatalf("failed to toggle back: %v", err)
	}
	if fav {
		t.Error("second toggle should unfavorite")
	}
}

func TestBookmarksMoveToCollection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.collections.Add(ctx, CollectionInput{Name: "A"})
	if err != nil {
		t.Fatalf("failed to add collection: %v", err)
	}
	b, err := f.collections.Add(ctx, CollectionInput{Name: "B"})
	if err != nil {
		t.Fatalf("failed to add collection: %v", err)
	}

	bm, err := f.bookmarks.Add(ctx, BookmarkInput{URL: "https://example.com", CollectionID: a.ID})
	if err != nil {
		t.Fatalf("failed to add bookmark: %v", err)
	}

	if err := f.bookmarks.MoveToCollection(ctx, bm.ID, b.ID); err != nil {
		t.Fatalf("failed to move: %v", err)
	}

	if got := f.bookmarks.ListByCollection(b.ID); len(got) != 1 {
		t.Errorf("bookmark not in target collection, got %d", len(got))
	}
	if got := f.bookmarks.ListByCollection(a.ID); len(got) != 0 {
		t.Errorf("bookmark still in source collection, got %d", len(got))
	}
}

func TestBookmarksRemoveAndRestore(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.collections.EnsureDefault(ctx); err != nil {
		t.Fatalf("failed to ensure default: %v", err)
	}
	bm, err := f.bookmarks.Add(ctx, BookmarkInput{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("failed to add: %v", err)
	}

	if err := f.bookmarks.Remove(ctx, bm.ID); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}
	if _, err := f.bookmarks.Get(bm.ID); !errors.Is(err, store.ErrNotFound) {
		t.Error("removed bookmark still in cache")
	}

	if err := f.bookmarks.Restore(ctx, bm.ID); err != nil {
		t.Fatalf("failed to restore: %v", err)
	}
	if _, err := f.bookmarks.Get(bm.ID); err != nil {
		t.Errorf("restored bookmark missing from cache: %v", err)
	}
}

func TestControllersReloadAfterSync(t *testing.T) {
	rs := remote.NewMemory()

	// Build the engine over the same store as the controllers so the
	// completion callback reload sees merged data.
	f := setupWithEngineFactory(t, func(st *store.Store) sync.Syncer {
		return sync.New(st, rs, nil)
	})
	ctx := context.Background()

	col := localTestCollection("col-remote", "Pulled", 1000)
	rs.SeedCollection(remote.CollectionRowFrom(testUser, col))

	if err := f.engine.FullSync(ctx, testUser); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	// The callback fires synchronously inside FullSync.
	if _, err := f.collections.Get("col-remote"); err != nil {
		t.Errorf("pulled collection not visible in cache: %v", err)
	}
}
