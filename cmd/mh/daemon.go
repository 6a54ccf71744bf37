package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/markhaven/markhaven/internal/daemon"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background sync daemon",
	Long: `Run in the foreground, syncing with the remote store on an interval
and importing any export files dropped into the share inbox directory.

Stops cleanly on SIGINT or SIGTERM.`,
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

		cfg := daemon.DefaultConfig()
		if a.cfg.SyncInterval != "" {
			interval, err := time.ParseDuration(a.cfg.SyncInterval)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid sync_interval %q: %v\n", a.cfg.SyncInterval, err)
				os.Exit(1)
			}
			cfg.SyncInterval = interval
		}

		d, err := daemon.New(engine, a.collections, a.bookmarks, userID, a.cfg.ShareInbox, cfg, a.log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := d.Start(runCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}
