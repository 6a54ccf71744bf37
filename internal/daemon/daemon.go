// Package daemon runs the background sync loop and the share-inbox
// watcher.
//
// The daemon:
// 1. Runs an initial sync against the remote row store
// 2. Periodically triggers a full sync
// 3. Watches the share inbox for dropped export files and imports them
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/markhaven/markhaven/internal/controller"
	"github.com/markhaven/markhaven/internal/sync"
	"github.com/markhaven/markhaven/internal/transfer"
)

// Config holds daemon tuning knobs.
type Config struct {
	// SyncInterval is how often to run a full sync.
	SyncInterval time.Duration

	// DebounceInterval is how long a dropped file must sit unchanged
	// before it is imported. Batches editors that write in several
	// chunks.
	DebounceInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval:     5 * time.Minute,
		DebounceInterval: 500 * time.Millisecond,
	}
}

// Daemon drives periodic sync and inbox imports.
type Daemon struct {
	engine      sync.Syncer
	collections *controller.Collections
	bookmarks   *controller.Bookmarks
	userID      string
	inboxDir    string
	config      *Config
	log         *zap.Logger

	watcher *fsnotify.Watcher

	pending   map[string]time.Time // path -> last event time
	pendingMu gosync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     gosync.WaitGroup
}

// New creates a daemon. inboxDir may be empty, which disables the file
// watcher and leaves only the periodic sync loop.
func New(engine sync.Syncer, cols *controller.Collections, bms *controller.Bookmarks, userID, inboxDir string, config *Config, logger *zap.Logger) (*Daemon, error) {
	if engine == nil {
		return nil, fmt.Errorf("sync engine cannot be nil")
	}
	if userID == "" {
		return nil, fmt.Errorf("userID cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		engine:      engine,
		collections: cols,
		bookmarks:   bms,
		userID:      userID,
		inboxDir:    inboxDir,
		config:      config,
		log:         logger,
		pending:     make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start runs the daemon until ctx is cancelled. The initial sync happens
// before the watcher starts so imports land on merged state.
func (d *Daemon) Start(ctx context.Context) error {
	d.log.Info("starting daemon",
		zap.Duration("sync_interval", d.config.SyncInterval),
		zap.String("inbox", d.inboxDir))

	if err := d.engine.InitialSync(ctx, d.userID); err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}

	if d.inboxDir != "" {
		if err := os.MkdirAll(d.inboxDir, 0755); err != nil {
			return fmt.Errorf("failed to create inbox directory: %w", err)
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		if err := watcher.Add(d.inboxDir); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch inbox %s: %w", d.inboxDir, err)
		}
		d.watcher = watcher

		// Pick up files dropped while the daemon was down.
		d.queueExisting()

		d.wg.Add(2)
		go d.watchInbox()
		go d.drainPending()
	}

	d.wg.Add(1)
	go d.syncLoop()

	select {
	case <-ctx.Done():
		d.log.Info("shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop shuts the daemon down and waits for its goroutines.
func (d *Daemon) Stop() error {
	d.cancel()

	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			d.log.Warn("error closing watcher", zap.Error(err))
		}
	}

	d.wg.Wait()
	d.log.Info("daemon stopped")
	return nil
}

// syncLoop triggers a full sync on every tick.
func (d *Daemon) syncLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if err := d.engine.FullSync(d.ctx, d.userID); err != nil {
				d.log.Warn("periodic sync failed", zap.Error(err))
			}
		}
	}
}

// watchInbox queues filesystem events from the inbox directory.
func (d *Daemon) watchInbox() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			d.queue(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// queueExisting queues .json files already sitting in the inbox.
func (d *Daemon) queueExisting() {
	entries, err := os.ReadDir(d.inboxDir)
	if err != nil {
		d.log.Warn("failed to scan inbox", zap.Error(err))
		return
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		d.queue(filepath.Join(d.inboxDir, e.Name()))
	}
}

func (d *Daemon) queue(path string) {
	d.pendingMu.Lock()
	d.pending[path] = time.Now()
	d.pendingMu.Unlock()
}

// drainPending imports files once they have been quiet for the debounce
// interval.
func (d *Daemon) drainPending() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.importReady()
		}
	}
}

func (d *Daemon) importReady() {
	d.pendingMu.Lock()
	var ready []string
	now := time.Now()
	for path, queuedAt := range d.pending {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}
		ready = append(ready, path)
		delete(d.pending, path)
	}
	d.pendingMu.Unlock()

	for _, path := range ready {
		d.importFile(path)
	}
}

// importFile imports one dropped export file and renames it so it is not
// processed twice. Failed files keep their name with a .failed suffix for
// inspection.
func (d *Daemon) importFile(path string) {
	doc, err := transfer.ReadFile(path)
	if err != nil {
		d.log.Warn("skipping unreadable inbox file", zap.String("path", path), zap.Error(err))
		d.markFile(path, ".failed")
		return
	}

	res := transfer.Import(d.ctx, d.collections, d.bookmarks, doc)
	d.log.Info("imported inbox file",
		zap.String("path", path),
		zap.Int("collections", res.Collections),
		zap.Int("bookmarks", res.Bookmarks),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("failed", res.Failed))
	for _, msg := range res.Errors {
		d.log.Warn("import error", zap.String("detail", msg))
	}

	d.markFile(path, ".imported")
}

func (d *Daemon) markFile(path, suffix string) {
	if err := os.Rename(path, path+suffix); err != nil {
		d.log.Warn("failed to rename processed inbox file",
			zap.String("path", path), zap.Error(err))
	}
}
