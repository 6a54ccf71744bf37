package sync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/markhaven/markhaven/internal/model"
	"github.com/markhaven/markhaven/internal/remote"
	"github.com/markhaven/markhaven/internal/store"
)

const testUser = "user-1"

func setupStore(t *testing.T) *store.Store {
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
	return s
}

func localCollection(id, name string, modified int64) *model.Collection {
	return &model.Collection{
		ID:             id,
		Name:           name,
		Icon:           "folder",
		Color:          model.DefaultCollectionColor,
		CreatedAt:      modified,
		LastModifiedAt: modified,
	}
}

func localBookmark(id, collectionID string, modified int64) *model.Bookmark {
	return &model.Bookmark{
		ID:             id,
		URL:            "https://example.com/" + id,
		Title:          "Bookmark " + id,
		CollectionID:   collectionID,
		CreatedAt:      modified,
		LastModifiedAt: modified,
	}
}

func remoteCollection(id, name string, modified int64) remote.CollectionRow {
	return remote.CollectionRowFrom(testUser, localCollection(id, name, modified))
}

func remoteBookmark(id, collectionID string, modified int64) remote.BookmarkRow {
	return remote.BookmarkRowFrom(testUser, localBookmark(id, collectionID, modified))
}

func TestFullSyncPullsRemoteOnlyRecords(t *testing.T) {
	st := setupStore(t)
	rs := remote.NewMemory()
	ctx := context.Background()

	rs.SeedCollection(remoteCollection("col-1", "Reading", 1000))
	rs.SeedBookmark(remoteBookmark("bm-1", "col-1", 1000))

	e := New(st, rs, nil)
	if err := e.FullSync(ctx, testUser); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if _, err := st.GetCollection(ctx, "col-1"); err != nil {
		t.Errorf("remote collection not pulled: %v", err)
	}
	if _, err := st.GetBookmark(ctx, "bm-1"); err != nil {
		t.Errorf("remote bookmark not pulled: %v", err)
	}
}

func TestFullSyncPushesLocalOnlyRecords(t *testing.T) {
	st := setupStore(t)
	rs := remote.NewMemory()
	ctx := context.Background()

	if err := st.PutCollection(ctx, localCollection("col-1", "Reading", 1000)); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
	if err := st.PutBookmark(ctx, localBookmark("bm-1", "col-1", 1000)); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	e := New(st, rs, nil)
	if err := e.FullSync(ctx, testUser); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if _, err := rs.GetCollection(ctx, testUser, "col-1"); err != nil {
		t.Errorf("local collection not pushed: %v", err)
	}
	if _, err := rs.GetBookmark(ctx, testUser, "bm-1"); err != nil {
		t.Errorf("local bookmark not pushed: %v", err)
	}
}

func TestFullSyncIsIdempotent(t *testing.T) {
	st := setupStore(t)
	rs := remote.NewMemory()
	ctx := context.Background()

	if err := st.PutCollection(ctx, localCollection("col-1", "Reading", 1000)); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
	rs.SeedBookmark(remoteBookmark("bm-1", "col-1", 1000))

	e := New(st, rs, nil)
	if err := e.FullSync(ctx, testUser); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	// Converged replicas: a second pass must not write anywhere.
	rs.ResetCounters()
	if err := e.FullSync(ctx, testUser); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if n := rs.WriteCount(); n != 0 {
		t.Errorf("idempotent sync produced %d remote writes", n)
	}
}

func TestPullNewerRemoteWins(t *testing.T) {
	st := setupStore(t)
	rs := remote.NewMemory()
	ctx := context.Background()

	local := localBookmark("bm-1", "col-1", 1000)
	local.Title = "Local title"
	if err := st.PutBookmark(ctx, local); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	newer := localBookmark("bm-1", "col-2", 5000)
	newer.Title = "Remote title"
	newer.CreatedAt = 4000 // remote disagrees about creation; local wins that field
	rs.SeedBookmark(remote.BookmarkRowFrom(testUser, newer))

	e := New(st, rs, nil)
	if err := e.FullSync(ctx, testUser); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	got, err := st.GetBookmark(ctx, "bm-1")
	if err != nil {
		t.Fatalf("failed to get bookmark: %v", err)
	}
	if got.Title != "Remote title" || got.CollectionID != "col-2" {
		t.Errorf("newer remote fields not applied: %+v", got)
	}
	if got.LastModifiedAt != 5000 {
		t.Errorf("LastModifiedAt = %d, want adopted 5000", got.LastModifiedAt)
	}
	if got.CreatedAt != 1000 {
		t.Errorf("CreatedAt = %d, want local 1000 (immutable)", got.CreatedAt)
	}
}

func TestPullOlderRemoteLoses(t *testing.T) {
	st := setupStore(t)
	rs := remote.NewMemory()
	ctx := context.Background()

	local := localBookmark("bm-1", "col-1", 5000)
	local.Title = "Local title"
	if err := st.PutBookmark(ctx, local); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	stale := localBookmark("bm-1", "col-1", 1000)
	stale.Title = "Stale remote title"
	rs.SeedBookmark(remote.BookmarkRowFrom(testUser, stale))

	e := New(st, rs, nil)
	if err := e.FullSync(ctx, testUser); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	got, err := st.GetBookmark(ctx, "bm-1")
	if err != nil {
		t.Fatalf("failed to get bookmark: %v", err)
	}
	if got.Title != "Local title" {
		t.Errorf("stale remote overwrote local: %+v", got)
	}

	// And the push half must have updated the remote replica.
	row, err := rs.GetBookmark(ctx, testUser, "bm-1")
	if err != nil {
		t.Fatalf("failed to get remote row: %v", err)
	}
	if row.Title != "Local title" {
		t.Errorf("newer local not pushed: %+v", row)
	}
}

func TestEqualTimestampsWriteNothing(t *testing.T) {
	st := setupStore(t)
	rs := remote.NewMemory()
	ctx := context.Background()

	local := localBookmark("bm-1", "col-1", 3000)
	local.Title = "Local variant"
	if err := st.PutBookmark(ctx, local); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	other := localBookmark("bm-1", "col-1", 3000)
	other.Title = "Remote variant"
	rs.SeedBookmark(remote.BookmarkRowFrom(testUser, other))

	e := New(st, rs, nil)
	if err := e.FullSync(ctx, testUser); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	got, err := st.GetBookmark(ctx, "bm-1")
	if err != nil {
		t.Fatalf("failed to get bookmark: %v", err)
	}
	if got.Title != "Local variant" {
		t.Errorf("tie must keep local content: %+v", got)
	}
	if n := rs.WriteCount(); n != 0 {
		t.Errorf("tie produced %d remote writes, want 0", n)
	}
}

func TestTombstonePropagatesToRemote(t *testing.T) {
	st := setupStore(t)
	rs := remote.NewMemory()
	ctx := context.Background()

	rs.SeedBookmark(remoteBookmark("bm-1", "col-1", 1000))

	local := localBookmark("bm-1", "col-1", 1000)
	local.Tombstone(5000)
	if err := st.PutBookmark(ctx, local); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	e := New(st, rs, nil)
	if err := e.FullSync(ctx, testUser); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	row, err := rs.GetBookmark(ctx, testUser, "bm-1")
	if err != nil {
		t.Fatalf("failed to get remote row: %v", err)
	}
	if !row.IsDeleted || row.DeletedAt == nil {
		t.Errorf("tombstone not propagated: %+v", row)
	}
}

func TestTombstonePropagatesFromRemote(t *testing.T) {
	st := setupStore(t)
	rs := remote.NewMemory()
	ctx := context.Background()

	if err := st.PutBookmark(ctx, localBookmark("bm-1", "col-1", 1000)); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	deleted := localBookmark("bm-1", "col-1", 1000)
	deleted.Tombstone(5000)
	rs.SeedBookmark(remote.BookmarkRowFrom(testUser, deleted))

	e := New(st, rs, nil)
	if err := e.FullSync(ctx, testUser); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	got, err := st.GetBookmark(ctx, "bm-1")
	if err != nil {
		t.Fatalf("failed to get bookmark: %v", err)
	}
	if !got.IsDeleted || got.DeletedAt != 5000 {
		t.Errorf("remote tombstone not applied: %+v", got)
	}
}

func TestPerRecordFailuresDoNotAbortThePass(t *testing.T) {
	st := setupStore(t)
	rs := remote.NewMemory()
	ctx := context.Background()

	if err := st.PutBookmark(ctx, localBookmark("bm-bad", "col-1", 1000)); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
	if err := st.PutBookmark(ctx, localBookmark("bm-good", "col-1", 1000)); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
	rs.RecordErrs = map[string]error{"bm-bad": errors.New("row rejected")}

	e := New(st, rs, nil)
	if err := e.FullSync(ctx, testUser); err != nil {
		t.Fatalf("sync must tolerate per-record failures: %v", err)
	}

	if _, err := rs.GetBookmark(ctx, testUser, "bm-good"); err != nil {
		t.Errorf("healthy record should still be pushed: %v", err)
	}
	if _, err := rs.GetBookmark(ctx, testUser, "bm-bad"); !errors.Is(err, remote.ErrRowNotFound) {
		t.Errorf("failing record should be absent remotely, got %v", err)
	}
}

func TestListFailureAbortsAndClearsFlag(t *testing.T) {
	st := setupStore(t)
	rs := remote.NewMemory()
	ctx := context.Background()

	rs.ListErr = errors.New("remote unreachable")

	e := New(st, rs, nil)
	if err := e.FullSync(ctx, testUser); err == nil {
		t.Fatal("expected list failure to propagate")
	}
	if e.Status().Syncing {
		t.Error("syncing flag must be cleared after a failed pass")
	}

	// The engine recovers once the remote is reachable again.
	rs.ListErr = nil
	if err := e.FullSync(ctx, testUser); err != nil {
		t.Errorf("sync after recovery failed: %v", err)
	}
}

func TestInitialSyncRunsOncePerSession(t *testing.T) {
	st := setupStore(t)
	rs := remote.NewMemory()
	ctx := context.Background()

	e := New(st, rs, nil)
	if err := e.InitialSync(ctx, testUser); err != nil {
		t.Fatalf("initial sync failed: %v", err)
	}

	// Seeding after the first initial sync: a repeat must be a no-op.
	rs.SeedBookmark(remoteBookmark("bm-late", "col-1", 1000))
	if err := e.InitialSync(ctx, testUser); err != nil {
		t.Fatalf("repeat initial sync failed: %v", err)
	}
	if _, err := st.GetBookmark(ctx, "bm-late"); !errors.Is(err, store.ErrNotFound) {
		t.Error("repeat initial sync must not run")
	}

	// After a session reset it runs again.
	e.ResetSession()
	if err := e.InitialSync(ctx, testUser); err != nil {
		t.Fatalf("initial sync after reset failed: %v", err)
	}
	if _, err := st.GetBookmark(ctx, "bm-late"); err != nil {
		t.Errorf("initial sync after reset should pull: %v", err)
	}
}

func TestFailedInitialSyncCanRetry(t *testing.T) {
	st := setupStore(t)
	rs := remote.NewMemory()
	ctx := context.Background()

	rs.ListErr = errors.New("remote unreachable")

	e := New(st, rs, nil)
	if err := e.InitialSync(ctx, testUser); err == nil {
		t.Fatal("expected initial sync to fail")
	}

	// The once-per-session latch must not be set by a failed attempt.
	rs.ListErr = nil
	rs.SeedBookmark(remoteBookmark("bm-1", "col-1", 1000))
	if err := e.InitialSync(ctx, testUser); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if _, err := st.GetBookmark(ctx, "bm-1"); err != nil {
		t.Errorf("retry should have pulled: %v", err)
	}
}

func TestOnSyncCompleteNotifies(t *testing.T) {
	st := setupStore(t)
	rs := remote.NewMemory()
	ctx := context.Background()

	e := New(st, rs, nil)

	calls := 0
	unsub := e.OnSyncComplete(func() { calls++ })

	if err := e.FullSync(ctx, testUser); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	// Opportunistic pushes complete without firing notifications.
	if err := e.PushBookmarks(ctx, testUser); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("push must not notify, calls = %d", calls)
	}

	unsub()
	if err := e.FullSync(ctx, testUser); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("unsubscribed callback fired, calls = %d", calls)
	}
}

func TestLastSyncSurvivesRestart(t *testing.T) {
	st := setupStore(t)
	rs := remote.NewMemory()
	ctx := context.Background()

	e := New(st, rs, nil)
	if err := e.FullSync(ctx, testUser); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	first := e.Status().LastSync
	if first == 0 {
		t.Fatal("LastSync not recorded")
	}

	// A fresh engine over the same store recovers the timestamp.
	e2 := New(st, rs, nil)
	if got := e2.Status().LastSync; got != first {
		t.Errorf("recovered LastSync = %d, want %d", got, first)
	}
}

func TestSyncRequiresUser(t *testing.T) {
	st := setupStore(t)
	rs := remote.NewMemory()
	ctx := context.Background()

	e := New(st, rs, nil)
	if err := e.FullSync(ctx, ""); err == nil {
		t.Error("full sync without a user must fail")
	}
	if err := e.InitialSync(ctx, ""); err == nil {
		t.Error("initial sync without a user must fail")
	}
	// Opportunistic pushes are silently skipped when signed out.
	if err := e.PushBookmarks(ctx, ""); err != nil {
		t.Errorf("push without user should no-op, got %v", err)
	}
}
