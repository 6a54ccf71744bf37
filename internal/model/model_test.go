package model

import (
	"strings"
	"testing"
)

func validBookmark() *Bookmark {
	return &Bookmark{
		ID:             "bm-1",
		URL:            "https://example.com",
		Title:          "Example",
		CollectionID:   "col-1",
		CreatedAt:      1000,
		LastModifiedAt: 1000,
	}
}

func validCollection() *Collection {
	return &Collection{
		ID:             "col-1",
		Name:           "Reading",
		Icon:           "folder",
		Color:          DefaultCollectionColor,
		CreatedAt:      1000,
		LastModifiedAt: 1000,
	}
}

func TestBookmarkValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Bookmark)
		wantErr string
	}{
		{"valid", func(b *Bookmark) {}, ""},
		{"missing id", func(b *Bookmark) { b.ID = "" }, "id"},
		{"blank url", func(b *Bookmark) { b.URL = "   " }, "url"},
		{"blank title", func(b *Bookmark) { b.Title = " " }, "title"},
		{"missing collection", func(b *Bookmark) { b.CollectionID = "" }, "collection"},
		{"missing created", func(b *Bookmark) { b.CreatedAt = 0 }, "created_at"},
		{"tombstone without stamp", func(b *Bookmark) { b.IsDeleted = true }, "deleted_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBookmark()
			tt.mutate(b)
			err := b.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestCollectionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Collection)
		wantErr bool
	}{
		{"valid", func(c *Collection) {}, false},
		{"empty icon allowed", func(c *Collection) { c.Icon = "" }, false},
		{"unknown icon", func(c *Collection) { c.Icon = "dragon" }, true},
		{"empty color allowed", func(c *Collection) { c.Color = "" }, false},
		{"bad color", func(c *Collection) { c.Color = "red" }, true},
		{"short hex", func(c *Collection) { c.Color = "#fff" }, true},
		{"uppercase hex ok", func(c *Collection) { c.Color = "#AABBCC" }, false},
		{"blank name", func(c *Collection) { c.Name = "  " }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCollection()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTombstoneAndRevive(t *testing.T) {
	b := validBookmark()

	b.Tombstone(5000)
	if !b.IsDeleted || b.DeletedAt != 5000 || b.LastModifiedAt != 5000 {
		t.Errorf("tombstone state wrong: %+v", b)
	}

	b.Revive(6000)
	if b.IsDeleted || b.DeletedAt != 0 || b.LastModifiedAt != 6000 {
		t.Errorf("revive state wrong: %+v", b)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := validBookmark()
	c := b.Clone()
	c.Title = "changed"
	if b.Title == "changed" {
		t.Error("clone shares state with the original")
	}
}

func TestIsDefault(t *testing.T) {
	c := validCollection()
	if c.IsDefault() {
		t.Error("ordinary collection reported as default")
	}
	c.Name = "miscellaneous" // case-insensitive
	if !c.IsDefault() {
		t.Error("default name not recognized")
	}
}
