package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var binCmd = &cobra.Command{
	Use:   "bin",
	Short: "Manage soft-deleted records",
	Long: `Binned bookmarks and collections stay restorable for the retention
window (7 days by default) and are purged automatically afterwards.`,
}

var binListCmd = &cobra.Command{
	Use:   "list",
	Short: "List binned records",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		cols, err := a.store.ListDeletedCollections(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		bms, err := a.store.ListDeletedBookmarks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(cols) == 0 && len(bms) == 0 {
			fmt.Println("Bin is empty")
			return
		}
		for _, col := range cols {
			fmt.Printf("collection  %-36s  %-24s  deleted %s\n",
				col.ID, truncate(col.Name, 24), formatMillis(col.DeletedAt))
		}
		for _, bm := range bms {
			fmt.Printf("bookmark    %-36s  %-24s  deleted %s\n",
				bm.ID, truncate(bm.Title, 24), formatMillis(bm.DeletedAt))
		}
	},
}

var binRestoreCollection bool

var binRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a binned record",
	Long: `Restore a binned bookmark, or with --collection a binned collection.
Restoring a collection does not automatically restore its bookmarks.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		if binRestoreCollection {
			err = a.collections.Restore(ctx, args[0])
		} else {
			err = a.bookmarks.Restore(ctx, args[0])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error restoring: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Restored")
	},
}

var binEmptyCmd = &cobra.Command{
	Use:   "empty",
	Short: "Permanently delete everything in the bin",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		n, err := a.retention.EmptyBin(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error emptying bin: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Permanently deleted %d records\n", n)
	},
}

func init() {
	binRestoreCmd.Flags().BoolVar(&binRestoreCollection, "collection", false, "restore a collection instead of a bookmark")

	binCmd.AddCommand(binListCmd)
	binCmd.AddCommand(binRestoreCmd)
	binCmd.AddCommand(binEmptyCmd)
}
