// Package controller holds the in-memory reactive caches, one per entity
// type. Controllers apply mutations optimistically, delegate persistence
// to the local store, and hand the follow-up sync push to the background
// job runner. They reload from the store whenever a sync pass completes.
package controller

// mutate is the optimistic-update protocol: apply the tentative in-memory
// state, persist it, and restore the snapshot when persistence fails. The
// caller captures whatever snapshot rollback needs before invoking.
func mutate(apply func(), persist func() error, rollback func()) error {
	apply()
	if err := persist(); err != nil {
		rollback()
		return err
	}
	return nil
}
