// Package sync reconciles the local store with the remote replica in both
// directions using last-write-wins resolution.
package sync

import "context"

// Status is a snapshot of the engine's state.
type Status struct {
	// Syncing is true while a sync pass is in flight.
	Syncing bool
	// LastSync is the epoch-millis completion time of the last successful
	// pass, 0 if none has completed.
	LastSync int64
}

// Syncer reconciles the two replicas for an authenticated user.
//
// All entry points share a single mutual-exclusion flag: at most one sync
// runs at a time, and a request arriving while one is in flight is a no-op
// rather than an error. The engine is resilient at record granularity -
// a single failing insert or update is logged and skipped, and the record
// is retried naturally on the next pass because the replicas remain
// divergent. A failure before any record is processed (an unreachable
// remote, a failed list fetch) aborts the pass and propagates to the
// caller, always leaving the engine unlocked for a future attempt.
type Syncer interface {
	// InitialSync performs the sign-in reconciliation: pull everything
	// from the remote replica first, then push local state. It runs at
	// most once per session; later calls are no-ops until ResetSession.
	InitialSync(ctx context.Context, userID string) error

	// FullSync performs a bidirectional pass. Collections reconcile fully
	// (pull then push) before bookmarks begin so that a bookmark's
	// collection reference always resolves after the pass. A FullSync
	// requested while another sync is running returns nil immediately.
	FullSync(ctx context.Context, userID string) error

	// PushCollections opportunistically pushes local collections to the
	// remote replica. Triggered after local mutations, fire-and-forget.
	PushCollections(ctx context.Context, userID string) error

	// PushBookmarks opportunistically pushes local bookmarks.
	PushBookmarks(ctx context.Context, userID string) error

	// OnSyncComplete registers a callback fired exactly once per completed
	// full or initial sync pass. The returned function unsubscribes.
	OnSyncComplete(fn func()) (unsubscribe func())

	// Status returns the current engine state.
	Status() Status

	// ResetSession clears the once-per-session InitialSync guard.
	// Called on sign-out.
	ResetSession()
}
