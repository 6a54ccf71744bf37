// Command mh is the bookmark manager CLI: a local SQLite library of
// bookmarks and collections that syncs against a remote account-scoped
// row store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/markhaven/markhaven/internal/config"
	"github.com/markhaven/markhaven/internal/controller"
	"github.com/markhaven/markhaven/internal/jobs"
	"github.com/markhaven/markhaven/internal/logging"
	"github.com/markhaven/markhaven/internal/remote"
	"github.com/markhaven/markhaven/internal/retention"
	"github.com/markhaven/markhaven/internal/store"
	"github.com/markhaven/markhaven/internal/sync"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mh",
	Short: "Bookmark manager with offline-first sync",
	Long: `mh keeps your bookmarks and collections in a local SQLite database
and reconciles them with your account's remote store using per-record
last-write-wins merging. Everything works offline; sync catches up when
a remote is configured.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: markhaven.yaml in the user config dir)")

	rootCmd.AddCommand(bookmarkCmd)
	rootCmd.AddCommand(collectionCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(binCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(daemonCmd)
}

// app bundles the wired-up components every subcommand needs.
type app struct {
	cfg         *config.Config
	log         *zap.Logger
	store       *store.Store
	retention   *retention.Manager
	engine      sync.Syncer
	runner      *jobs.Runner
	collections *controller.Collections
	bookmarks   *controller.Bookmarks
	userID      string
}

// openApp loads config, opens the store, purges expired tombstones and
// wires the controllers. Callers must invoke close() when done.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.PrettyLog,
		File:   cfg.LogFile,
	})

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.InitSchema(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	ret := retention.New(st, logger)
	if purged, err := ret.PurgeExpired(ctx, cfg.RetentionDays); err != nil {
		logger.Warn("failed to purge expired tombstones", zap.Error(err))
	} else if purged > 0 {
		logger.Info("purged expired tombstones", zap.Int("count", purged))
	}

	var engine sync.Syncer
	if cfg.RemoteURL != "" {
		client, err := remote.NewClient(cfg.RemoteURL, cfg.RemoteToken)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		engine = sync.New(st, client, logger)
	}

	runner := jobs.New(logger, 32)
	collections := controller.NewCollections(st, ret, engine, runner, logger)
	bookmarks := controller.NewBookmarks(st, ret, engine, runner, logger)

	if _, err := collections.EnsureDefault(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	userID := cfg.UserID
	if userID == "" {
		if stored, err := st.GetMeta(ctx, store.MetaUserID); err == nil {
			userID = stored
		}
	}
	if err := collections.SetUser(ctx, userID); err != nil {
		_ = st.Close()
		return nil, err
	}
	if err := bookmarks.SetUser(ctx, userID); err != nil {
		_ = st.Close()
		return nil, err
	}

	return &app{
		cfg:         cfg,
		log:         logger,
		store:       st,
		retention:   ret,
		engine:      engine,
		runner:      runner,
		collections: collections,
		bookmarks:   bookmarks,
		userID:      userID,
	}, nil
}

// close drains pending background pushes and releases everything.
func (a *app) close() {
	a.runner.Wait()
	a.runner.Close()
	a.collections.Close()
	a.bookmarks.Close()
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	_ = a.log.Sync()
}

// requireSync returns the engine and user id, or an error explaining
// which half of the sync setup is missing.
func (a *app) requireSync() (sync.Syncer, string, error) {
	if a.engine == nil {
		return nil, "", fmt.Errorf("no remote configured; set remote_url in the config or MH_REMOTE_URL")
	}
	if a.userID == "" {
		return nil, "", fmt.Errorf("not signed in; run 'mh session signin <user-id>' first")
	}
	return a.engine, a.userID, nil
}
