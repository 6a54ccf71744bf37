package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/markhaven/markhaven/internal/controller"
	"github.com/markhaven/markhaven/internal/model"
)

var bookmarkCmd = &cobra.Command{
	Use:     "bookmark",
	Aliases: []string{"bm"},
	Short:   "Manage bookmarks",
}

var (
	bmAddTitle       string
	bmAddDescription string
	bmAddCollection  string
	bmAddFavorite    bool
)

var bookmarkAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a bookmark",
	Long: `Add a bookmark to the library.

The title defaults to the URL when omitted. Without --collection the
bookmark lands in the default collection.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		collectionID := ""
		if bmAddCollection != "" {
			col, err := resolveCollectionRef(a, bmAddCollection)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			collectionID = col.ID
		}

		bm, err := a.bookmarks.Add(ctx, controller.BookmarkInput{
			URL:          args[0],
			Title:        bmAddTitle,
			Description:  bmAddDescription,
			CollectionID: collectionID,
			IsFavorite:   bmAddFavorite,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error adding bookmark: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Added %s (%s)\n", bm.Title, bm.ID)
	},
}

var (
	bmListCollection string
	bmListFavorites  bool
)

var bookmarkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bookmarks",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		var items []*model.Bookmark
		switch {
		case bmListCollection != "":
			col, err := resolveCollectionRef(a, bmListCollection)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			items = a.bookmarks.ListByCollection(col.ID)
		case bmListFavorites:
			items = a.bookmarks.Favorites()
		default:
			items = a.bookmarks.List()
		}

		if len(items) == 0 {
			fmt.Println("No bookmarks")
			return
		}
		for _, bm := range items {
			marker := " "
			if bm.IsFavorite {
				marker = "*"
			}
			fmt.Printf("%s %-36s  %-30s  %s\n", marker, bm.ID, truncate(bm.Title, 30), bm.URL)
		}
	},
}

var (
	bmUpdateURL         string
	bmUpdateTitle       string
	bmUpdateDescription string
)

var bookmarkUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a bookmark's fields",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		var upd controller.BookmarkUpdate
		if cmd.Flags().Changed("url") {
			upd.URL = &bmUpdateURL
		}
		if cmd.Flags().Changed("title") {
			upd.Title = &bmUpdateTitle
		}
		if cmd.Flags().Changed("description") {
			upd.Description = &bmUpdateDescription
		}

		bm, err := a.bookmarks.Update(ctx, args[0], upd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error updating bookmark: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated %s\n", bm.ID)
	},
}

var bookmarkFavoriteCmd = &cobra.Command{
	Use:   "favorite <id>",
	Short: "Toggle a bookmark's favorite flag",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		fav, err := a.bookmarks.ToggleFavorite(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if fav {
			fmt.Println("Marked as favorite")
		} else {
			fmt.Println("Removed from favorites")
		}
	},
}

var bookmarkMoveCmd = &cobra.Command{
	Use:   "move <id> <collection>",
	Short: "Move a bookmark to another collection",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		col, err := resolveCollectionRef(a, args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := a.bookmarks.MoveToCollection(ctx, args[0], col.ID); err != nil {
			fmt.Fprintf(os.Stderr, "Error moving bookmark: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Moved to %s\n", col.Name)
	},
}

var bookmarkRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Move a bookmark to the bin",
	Long: `Soft-delete a bookmark. Binned bookmarks can be restored with
'mh bin restore' until the retention window expires.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		if err := a.bookmarks.Remove(ctx, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error removing bookmark: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Moved to bin")
	},
}

func init() {
	bookmarkAddCmd.Flags().StringVar(&bmAddTitle, "title", "", "bookmark title (defaults to the URL)")
	bookmarkAddCmd.Flags().StringVar(&bmAddDescription, "description", "", "bookmark description")
	bookmarkAddCmd.Flags().StringVar(&bmAddCollection, "collection", "", "target collection name or id")
	bookmarkAddCmd.Flags().BoolVar(&bmAddFavorite, "favorite", false, "mark as favorite")

	bookmarkListCmd.Flags().StringVar(&bmListCollection, "collection", "", "filter by collection name or id")
	bookmarkListCmd.Flags().BoolVar(&bmListFavorites, "favorites", false, "only favorites")

	bookmarkUpdateCmd.Flags().StringVar(&bmUpdateURL, "url", "", "new URL")
	bookmarkUpdateCmd.Flags().StringVar(&bmUpdateTitle, "title", "", "new title")
	bookmarkUpdateCmd.Flags().StringVar(&bmUpdateDescription, "description", "", "new description")

	bookmarkCmd.AddCommand(bookmarkAddCmd)
	bookmarkCmd.AddCommand(bookmarkListCmd)
	bookmarkCmd.AddCommand(bookmarkUpdateCmd)
	bookmarkCmd.AddCommand(bookmarkFavoriteCmd)
	bookmarkCmd.AddCommand(bookmarkMoveCmd)
	bookmarkCmd.AddCommand(bookmarkRemoveCmd)
}

// resolveCollectionRef accepts a collection id or name.
func resolveCollectionRef(a *app, ref string) (*model.Collection, error) {
	if col, err := a.collections.Get(ref); err == nil {
		return col, nil
	}
	if col := a.collections.FindByName(ref); col != nil {
		return col, nil
	}
	return nil, fmt.Errorf("collection %q not found", ref)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04:05")
}
