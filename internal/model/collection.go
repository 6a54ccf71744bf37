package model

import (
	"fmt"
	"strings"
)

// DefaultCollectionName is the reserved name of the collection created at
// first run. It cannot be renamed or deleted, and imports skip it.
const DefaultCollectionName = "Miscellaneous"

// DefaultCollectionColor is used when a collection carries no explicit color.
const DefaultCollectionColor = "#6366f1"

// Collection groups bookmarks. Collections form a tree via ParentID; Order
// is the sibling sort key and is unique only by convention.
type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Color       string `json:"color,omitempty"`
	ParentID    string `json:"parentId,omitempty"`
	Order       int    `json:"order"`

	IsDeleted bool  `json:"isDeleted,omitempty"`
	DeletedAt int64 `json:"deletedAt,omitempty"`

	CreatedAt      int64 `json:"createdAt"`
	LastModifiedAt int64 `json:"lastModifiedAt"`
}

// collectionIcons is the closed set of symbolic icon names.
var collectionIcons = map[string]bool{
	"folder": true, "star": true, "heart": true, "bookmark": true,
	"book": true, "film": true, "music": true, "shopping": true,
	"coffee": true, "food": true, "travel": true, "car": true,
	"home": true, "work": true, "code": true, "laptop": true,
	"phone": true, "camera": true, "game": true, "fitness": true,
	"bike": true, "art": true, "fashion": true, "education": true,
	"sparkles": true, "idea": true, "rocket": true, "trophy": true,
	"gift": true,
}

// ValidIcon reports whether name is a known collection icon.
func ValidIcon(name string) bool {
	return collectionIcons[name]
}

// Validate checks that the collection has valid field values.
func (c *Collection) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if c.Icon != "" && !ValidIcon(c.Icon) {
		return fmt.Errorf("unknown icon %q", c.Icon)
	}
	if c.Color != "" && !validHexColor(c.Color) {
		return fmt.Errorf("invalid color %q", c.Color)
	}
	if c.CreatedAt == 0 {
		return fmt.Errorf("created_at is required")
	}
	if c.LastModifiedAt == 0 {
		return fmt.Errorf("last_modified_at is required")
	}
	if c.IsDeleted && c.DeletedAt == 0 {
		return fmt.Errorf("deleted_at is required for tombstoned collections")
	}
	return nil
}

func validHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// Touch bumps the modification timestamp.
func (c *Collection) Touch(now int64) {
	c.LastModifiedAt = now
}

// Tombstone marks the collection soft-deleted at the given instant.
func (c *Collection) Tombstone(now int64) {
	c.IsDeleted = true
	c.DeletedAt = now
	c.LastModifiedAt = now
}

// Revive clears the tombstone.
func (c *Collection) Revive(now int64) {
	c.IsDeleted = false
	c.DeletedAt = 0
	c.LastModifiedAt = now
}

// Clone returns a copy of the collection.
func (c *Collection) Clone() *Collection {
	cp := *c
	return &cp
}

// IsDefault reports whether this is the reserved default collection.
func (c *Collection) IsDefault() bool {
	return strings.EqualFold(c.Name, DefaultCollectionName)
}
