package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/markhaven/markhaven/internal/transfer"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the library to a JSON file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		doc, err := transfer.Export(ctx, a.store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
			os.Exit(1)
		}
		if err := transfer.WriteFile(args[0], doc); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Exported %d collections and %d bookmarks to %s\n",
			len(doc.Collections), len(doc.Bookmarks), args[0])
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a library or share file",
	Long: `Import an export document. Collections whose name is already taken are
skipped and counted as duplicates; their bookmarks land in the existing
collection of that name. The default collection is never duplicated.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		doc, err := transfer.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		res := transfer.Import(ctx, a.collections, a.bookmarks, doc)
		fmt.Printf("Imported %d collections, %d bookmarks (%d duplicates skipped, %d failed)\n",
			res.Collections, res.Bookmarks, res.Duplicates, res.Failed)
		for _, msg := range res.Errors {
			fmt.Fprintf(os.Stderr, "  %s\n", msg)
		}
		if res.Failed > 0 {
			os.Exit(1)
		}
	},
}

var shareBy string

var shareCmd = &cobra.Command{
	Use:   "share <collection> <file>",
	Short: "Export one collection as a shareable file",
	Long: `Write a single collection and its bookmarks as a share document that
another library can import. The document carries a bookmark and
favorite count summary.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		col, err := resolveCollectionRef(a, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		sharedBy := shareBy
		if sharedBy == "" {
			sharedBy = a.userID
		}

		doc, err := transfer.ExportCollection(ctx, a.store, col.ID, sharedBy)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error sharing collection: %v\n", err)
			os.Exit(1)
		}
		if err := transfer.WriteFile(args[1], doc); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Shared %s (%d bookmarks, %d favorites) to %s\n",
			col.Name, doc.Stats.Bookmarks, doc.Stats.Favorites, args[1])
	},
}

func init() {
	shareCmd.Flags().StringVar(&shareBy, "by", "", "name to record as the sharer (defaults to the signed-in user)")
}
