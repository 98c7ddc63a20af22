// Package watch republishes the site when the catalog document is edited by hand.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dirneetapp/carta2026.io/internal/domain"
	"github.com/dirneetapp/carta2026.io/internal/service"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const defaultDebounce = 500 * time.Millisecond

type Syncer interface {
	Sync(ctx context.Context, force bool) (*service.PublishResult, error)
}

// Watcher syncs after the catalog file changes. Saves made by carta itself trigger a
// sync too; it finds the revision already published and does nothing.
type Watcher struct {
	path     string
	syncer   Syncer
	debounce time.Duration
}

func NewWatcher(path string, syncer Syncer, debounce time.Duration) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog path: %w", err)
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{path: absPath, syncer: syncer, debounce: debounce}, nil
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	// Atomic saves replace the file, so watch the directory instead of the inode.
	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	log.Infof("🔄 Watching %s for changes", w.path)

	name := filepath.Base(w.path)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("🛑 Watcher stopping")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				log.Debugf("Catalog change detected: %s", event)
				timer.Reset(w.debounce)
			} else if event.Has(fsnotify.Remove) {
				log.Warnf("❌ Catalog file %s removed", event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Errorf("❌ Watcher error: %v", err)
		case <-timer.C:
			w.sync(ctx)
		}
	}
}

// Poll syncs on a fixed interval, for catalogs that live in a database.
func Poll(ctx context.Context, syncer Syncer, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("🔄 Polling catalog every %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Info("🛑 Poller stopping")
			return nil
		case <-ticker.C:
			runSync(ctx, syncer)
		}
	}
}

func (w *Watcher) sync(ctx context.Context) {
	runSync(ctx, w.syncer)
}

func runSync(ctx context.Context, syncer Syncer) {
	result, err := syncer.Sync(ctx, false)
	switch {
	case errors.Is(err, domain.ErrCorruptData):
		// Already reported; wait for the next edit.
	case err != nil:
		log.Errorf("❌ Sync failed: %v", err)
	case !result.Skipped:
		log.Infof("✅ Site republished after catalog change")
	}
}
