package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a full sync against the remote store",
	Long: `Reconcile the local library with the remote account store.

Collections reconcile before bookmarks; within each type the record with
the newer modification timestamp wins in both directions. Deletions
carry over as tombstones, never as missing rows.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		engine, userID, err := a.requireSync()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := engine.FullSync(ctx, userID); err != nil {
			fmt.Fprintf(os.Stderr, "Error during sync: %v\n", err)
			os.Exit(1)
		}

		status := engine.Status()
		fmt.Printf("Sync complete (last sync: %s)\n", formatMillis(status.LastSync))
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		if a.userID == "" {
			fmt.Println("Signed out")
		} else {
			fmt.Printf("Signed in as %s\n", a.userID)
		}

		if a.engine == nil {
			fmt.Println("Remote: not configured")
			return
		}

		status := a.engine.Status()
		fmt.Printf("Remote: %s\n", a.cfg.RemoteURL)
		fmt.Printf("Last sync: %s\n", formatMillis(status.LastSync))
		if status.Syncing {
			fmt.Println("A sync is currently in progress")
		}
	},
}

func init() {
	syncCmd.AddCommand(syncStatusCmd)
}
