package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/markhaven/markhaven/internal/store"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the signed-in account",
}

var sessionSigninCmd = &cobra.Command{
	Use:   "signin <user-id>",
	Short: "Sign in and run the initial sync",
	Long: `Record the account id and, when a remote is configured, run the
session's initial sync: remote state is pulled for both entity types
before any local record is pushed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		userID := args[0]
		if err := a.store.SetMeta(ctx, store.MetaUserID, userID); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving session: %v\n", err)
			os.Exit(1)
		}
		if err := a.collections.SetUser(ctx, userID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := a.bookmarks.SetUser(ctx, userID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Signed in as %s\n", userID)

		if a.engine == nil {
			fmt.Println("No remote configured; working locally")
			return
		}
		if err := a.engine.InitialSync(ctx, userID); err != nil {
			fmt.Fprintf(os.Stderr, "Error during initial sync: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Initial sync complete")
	},
}

var sessionSignoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out and wipe local data",
	Long: `Clear the local database and session state. Unsynced local changes
are lost; run 'mh sync' first if in doubt.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		if err := a.store.ClearAll(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing local data: %v\n", err)
			os.Exit(1)
		}
		if a.engine != nil {
			a.engine.ResetSession()
		}
		a.collections.Reset()
		a.bookmarks.Reset()

		fmt.Println("Signed out; local data cleared")
	},
}

func init() {
	sessionCmd.AddCommand(sessionSigninCmd)
	sessionCmd.AddCommand(sessionSignoutCmd)
}
