// Package transfer implements the JSON import/export document format and
// the collection-share export variant.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/markhaven/markhaven/internal/controller"
	"github.com/markhaven/markhaven/internal/model"
	"github.com/markhaven/markhaven/internal/store"
)

// Version identifies the export document format.
const Version = "1.0.0"

// TypeCollectionShare marks a single-collection share export.
const TypeCollectionShare = "collection-share"

// ShareStats summarizes a shared collection.
type ShareStats struct {
	Bookmarks int `json:"bookmarks"`
	Favorites int `json:"favorites"`
}

// Document is the top-level export format. Type, SharedBy and Stats are
// only present on collection-share exports.
type Document struct {
	Version     string              `json:"version"`
	ExportedAt  string              `json:"exportedAt"`
	Type        string              `json:"type,omitempty"`
	SharedBy    string              `json:"sharedBy,omitempty"`
	Stats       *ShareStats         `json:"stats,omitempty"`
	Collections []*model.Collection `json:"collections"`
	Bookmarks   []*model.Bookmark   `json:"bookmarks"`
}

// Result reports the outcome of an import.
type Result struct {
	Collections int
	Bookmarks   int
	Duplicates  int
	Failed      int
	Errors      []string
}

// Export builds a full-library document from the store's active records.
func Export(ctx context.Context, st *store.Store) (*Document, error) {
	collections, err := st.ListActiveCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export collections: %w", err)
	}
	bookmarks, err := st.ListActiveBookmarks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export bookmarks: %w", err)
	}

	return &Document{
		Version:     Version,
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		Collections: collections,
		Bookmarks:   bookmarks,
	}, nil
}

// ExportCollection builds a share document for one collection and its
// active bookmarks, with a stats summary block.
func ExportCollection(ctx context.Context, st *store.Store, collectionID, sharedBy string) (*Document, error) {
	col, err := st.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if col.IsDeleted {
		return nil, fmt.Errorf("collection %s: %w", collectionID, store.ErrNotFound)
	}

	members, err := st.ListBookmarksByCollection(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection bookmarks: %w", err)
	}

	stats := &ShareStats{}
	var bookmarks []*model.Bookmark
	for _, b := range members {
		if b.IsDeleted {
			continue
		}
		bookmarks = append(bookmarks, b)
		stats.Bookmarks++
		if b.IsFavorite {
			stats.Favorites++
		}
	}

	return &Document{
		Version:     Version,
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		Type:        TypeCollectionShare,
		SharedBy:    sharedBy,
		Stats:       stats,
		Collections: []*model.Collection{col},
		Bookmarks:   bookmarks,
	}, nil
}

// Import replays a document through the controllers so every record goes
// through the normal validation paths: uniqueness checks re-run, the
// reserved default collection is skipped, and imported records get fresh
// client-assigned ids. Bookmarks are remapped to the newly created
// collections; a bookmark whose collection was a duplicate lands in the
// existing collection of the same name.
func Import(ctx context.Context, cols *controller.Collections, bms *controller.Bookmarks, doc *Document) *Result {
	res := &Result{}

	// Old collection id -> id to use for imported bookmarks.
	idMap := make(map[string]string, len(doc.Collections))

	for _, col := range doc.Collections {
		if col.IsDefault() {
			if def := cols.FindByName(col.Name); def != nil {
				idMap[col.ID] = def.ID
			}
			continue
		}

		created, err := cols.Add(ctx, controller.CollectionInput{
			Name:        col.Name,
			Description: col.Description,
			Icon:        col.Icon,
			Color:       col.Color,
			Order:       col.Order,
		})
		if errors.Is(err, store.ErrDuplicateName) {
			res.Duplicates++
			if dup := cols.FindByName(col.Name); dup != nil {
				idMap[col.ID] = dup.ID
			}
			continue
		}
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("collection %q: %v", col.Name, err))
			continue
		}

		idMap[col.ID] = created.ID
		res.Collections++
	}

	for _, bm := range doc.Bookmarks {
		collectionID := idMap[bm.CollectionID]

		_, err := bms.Add(ctx, controller.BookmarkInput{
			URL:          bm.URL,
			Title:        bm.Title,
			Description:  bm.Description,
			Favicon:      bm.Favicon,
			Thumbnail:    bm.Thumbnail,
			CollectionID: collectionID,
			IsFavorite:   bm.IsFavorite,
		})
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("bookmark %q: %v", bm.URL, err))
			continue
		}
		res.Bookmarks++
	}

	return res
}

// WriteFile writes the document as indented JSON.
func WriteFile(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

// ReadFile parses an export document from disk.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse import file: %w", err)
	}
	if doc.Version == "" {
		return nil, fmt.Errorf("import file has no version field")
	}
	return &doc, nil
}
