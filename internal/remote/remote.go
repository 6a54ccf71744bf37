// Package remote defines the boundary to the account-scoped remote replica.
//
// The remote store is row-oriented: per-user collections of bookmark and
// collection rows, each addressable by id plus owning user id, with point
// lookup, list-by-user, insert and field-level update. Rows exchange
// timestamps as RFC3339 strings; the conversion to and from the local
// epoch-millisecond representation happens here, at the boundary crossing.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/markhaven/markhaven/internal/model"
)

// ErrRowNotFound is returned by point lookups when no row matches the
// id/user pair.
var ErrRowNotFound = errors.New("remote row not found")

// Store is the remote replica. Visibility is eventual, not transactional:
// a read immediately after a write may not observe it.
type Store interface {
	ListCollections(ctx context.Context, userID string) ([]CollectionRow, error)
	GetCollection(ctx context.Context, userID, id string) (*CollectionRow, error)
	InsertCollection(ctx context.Context, row CollectionRow) error
	UpdateCollection(ctx context.Context, row CollectionRow) error

	ListBookmarks(ctx context.Context, userID string) ([]BookmarkRow, error)
	GetBookmark(ctx context.Context, userID, id string) (*BookmarkRow, error)
	InsertBookmark(ctx context.Context, row BookmarkRow) error
	UpdateBookmark(ctx context.Context, row BookmarkRow) error
}

// BookmarkRow is the wire shape of a bookmark in the remote store.
type BookmarkRow struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Favicon        string  `json:"favicon,omitempty"`
	Thumbnail      string  `json:"thumbnail,omitempty"`
	CollectionID   string  `json:"collection_id"`
	IsFavorite     bool    `json:"is_favorite"`
	IsDeleted      bool    `json:"is_deleted"`
	DeletedAt      *string `json:"deleted_at"`
	CreatedAt      string  `json:"created_at"`
	LastModifiedAt string  `json:"last_modified_at"`
}

// CollectionRow is the wire shape of a collection in the remote store.
type CollectionRow struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Icon           string  `json:"icon,omitempty"`
	Color          string  `json:"color"`
	ParentID       string  `json:"parent_id,omitempty"`
	Order          int     `json:"sort_order"`
	IsDeleted      bool    `json:"is_deleted"`
	DeletedAt      *string `json:"deleted_at"`
	CreatedAt      string  `json:"created_at"`
	LastModifiedAt string  `json:"last_modified_at"`
}

// MillisToStamp converts epoch milliseconds to the remote timestamp format.
func MillisToStamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

// StampToMillis parses a remote timestamp into epoch milliseconds.
func StampToMillis(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("invalid remote timestamp %q: %w", s, err)
	}
	return t.UnixMilli(), nil
}

func optionalStamp(ms int64) *string {
	if ms == 0 {
		return nil
	}
	s := MillisToStamp(ms)
	return &s
}

func optionalMillis(s *string) (int64, error) {
	if s == nil || *s == "" {
		return 0, nil
	}
	return StampToMillis(*s)
}

// BookmarkRowFrom builds the wire row for a local bookmark owned by userID.
func BookmarkRowFrom(userID string, b *model.Bookmark) BookmarkRow {
	return BookmarkRow{
		ID:             b.ID,
		UserID:         userID,
		URL:            b.URL,
		Title:          b.Title,
		Description:    b.Description,
		Favicon:        b.Favicon,
		Thumbnail:      b.Thumbnail,
		CollectionID:   b.CollectionID,
		IsFavorite:     b.IsFavorite,
		IsDeleted:      b.IsDeleted,
		DeletedAt:      optionalStamp(b.DeletedAt),
		CreatedAt:      MillisToStamp(b.CreatedAt),
		LastModifiedAt: MillisToStamp(b.LastModifiedAt),
	}
}

// ToModel converts the wire row into a local bookmark record.
func (r BookmarkRow) ToModel() (*model.Bookmark, error) {
	createdAt, err := StampToMillis(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	modifiedAt, err := StampToMillis(r.LastModifiedAt)
	if err != nil {
		return nil, err
	}
	deletedAt, err := optionalMillis(r.DeletedAt)
	if err != nil {
		return nil, err
	}

	return &model.Bookmark{
		ID:             r.ID,
		URL:            r.URL,
		Title:          r.Title,
		Description:    r.Description,
		Favicon:        r.Favicon,
		Thumbnail:      r.Thumbnail,
		CollectionID:   r.CollectionID,
		IsFavorite:     r.IsFavorite,
		IsDeleted:      r.IsDeleted,
		DeletedAt:      deletedAt,
		CreatedAt:      createdAt,
		LastModifiedAt: modifiedAt,
	}, nil
}

// ModifiedMillis returns the row's modification timestamp in millis.
func (r BookmarkRow) ModifiedMillis() (int64, error) {
	return StampToMillis(r.LastModifiedAt)
}

// CollectionRowFrom builds the wire row for a local collection.
func CollectionRowFrom(userID string, c *model.Collection) CollectionRow {
	color := c.Color
	if color == "" {
		color = model.DefaultCollectionColor
	}
	return CollectionRow{
		ID:             c.ID,
		UserID:         userID,
		Name:           c.Name,
		Description:    c.Description,
		Icon:           c.Icon,
		Color:          color,
		ParentID:       c.ParentID,
		Order:          c.Order,
		IsDeleted:      c.IsDeleted,
		DeletedAt:      optionalStamp(c.DeletedAt),
		CreatedAt:      MillisToStamp(c.CreatedAt),
		LastModifiedAt: MillisToStamp(c.LastModifiedAt),
	}
}

// ToModel converts the wire row into a local collection record.
func (r CollectionRow) ToModel() (*model.Collection, error) {
	createdAt, err := StampToMillis(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	modifiedAt, err := StampToMillis(r.LastModifiedAt)
	if err != nil {
		return nil, err
	}
	deletedAt, err := optionalMillis(r.DeletedAt)
	if err != nil {
		return nil, err
	}

	icon := r.Icon
	if icon == "" {
		icon = "folder"
	}

	return &model.Collection{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		Icon:           icon,
		Color:          r.Color,
		ParentID:       r.ParentID,
		Order:          r.Order,
		IsDeleted:      r.IsDeleted,
		DeletedAt:      deletedAt,
		CreatedAt:      createdAt,
		LastModifiedAt: modifiedAt,
	}, nil
}

// ModifiedMillis returns the row's modification timestamp in millis.
func (r CollectionRow) ModifiedMillis() (int64, error) {
	return StampToMillis(r.LastModifiedAt)
}
