// Package model defines the bookmark and collection records shared by the
// local store, the sync engine and the remote replica boundary.
//
// Records are deliberately flat with last-write-wins semantics: every
// mutation rewrites LastModifiedAt, and that single timestamp is the only
// signal used to resolve conflicts between replicas. Timestamps are epoch
// milliseconds; the remote boundary converts to RFC3339 strings.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Bookmark is a saved link belonging to exactly one collection.
//
// IDs are assigned client-side at creation time so the same id is valid in
// both replicas. A tombstoned bookmark (IsDeleted) stays physically present
// until purged and is excluded from active read paths.
type Bookmark struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Favicon      string `json:"favicon,omitempty"`
	Thumbnail    string `json:"thumbnail,omitempty"`
	CollectionID string `json:"collectionId"`
	IsFavorite   bool   `json:"isFavorite"`

	IsDeleted bool  `json:"isDeleted,omitempty"`
	DeletedAt int64 `json:"deletedAt,omitempty"` // epoch millis, set iff tombstoned

	CreatedAt      int64 `json:"createdAt"`      // immutable
	LastModifiedAt int64 `json:"lastModifiedAt"` // bumped on every mutation
}

// Validate checks that the bookmark has valid field values.
func (b *Bookmark) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(b.URL) == "" {
		return fmt.Errorf("url is required")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if b.CollectionID == "" {
		return fmt.Errorf("collection id is required")
	}
	if b.CreatedAt == 0 {
		return fmt.Errorf("created_at is required")
	}
	if b.LastModifiedAt == 0 {
		return fmt.Errorf("last_modified_at is required")
	}
	if b.IsDeleted && b.DeletedAt == 0 {
		return fmt.Errorf("deleted_at is required for tombstoned bookmarks")
	}
	return nil
}

// Touch bumps the modification timestamp.
func (b *Bookmark) Touch(now int64) {
	b.LastModifiedAt = now
}

// Tombstone marks the bookmark soft-deleted at the given instant.
func (b *Bookmark) Tombstone(now int64) {
	b.IsDeleted = true
	b.DeletedAt = now
	b.LastModifiedAt = now
}

// Revive clears the tombstone. The caller is responsible for checking that
// the bookmark is currently tombstoned.
func (b *Bookmark) Revive(now int64) {
	b.IsDeleted = false
	b.DeletedAt = 0
	b.LastModifiedAt = now
}

// Clone returns a deep copy. Records only hold value fields, so a shallow
// copy is sufficient.
func (b *Bookmark) Clone() *Bookmark {
	c := *b
	return &c
}

// NowMillis returns the current time as epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
