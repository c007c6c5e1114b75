// Package watch runs the ingestion daemon: a spool directory watched for
// incoming documentation archives, plus a periodic search-index reconcile.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/dochost/internal/importer"
	"git.home.luguber.info/inful/dochost/internal/lifecycle"
)

// archiveSuffix marks spool files the daemon imports.
const archiveSuffix = ".tar.gz"

// failedSuffix is appended to spool files whose import failed, so they are
// kept for inspection without being retried on every event.
const failedSuffix = ".failed"

// Daemon watches a spool directory and imports every archive dropped into
// it. Imports run with force enabled, so re-dropping an archive replaces
// the version. An optional periodic reconcile reindexes all projects.
type Daemon struct {
	importer  *importer.Importer
	lifecycle *lifecycle.Service
	spool     string
	reconcile time.Duration

	// debounce delays an import until the file has stopped changing, since
	// spool files arrive over slow copies.
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a daemon for the given spool directory. reconcile <= 0
// disables the periodic reindex.
func New(imp *importer.Importer, svc *lifecycle.Service, spool string, reconcile time.Duration) *Daemon {
	return &Daemon{
		importer:  imp,
		lifecycle: svc,
		spool:     spool,
		reconcile: reconcile,
		debounce:  2 * time.Second,
		timers:    make(map[string]*time.Timer),
	}
}

// Run blocks until ctx is canceled. Archives already in the spool are
// imported on startup; new ones as they arrive.
func (d *Daemon) Run(ctx context.Context) error {
	if err := os.MkdirAll(d.spool, 0o755); err != nil {
		return fmt.Errorf("create spool directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(d.spool); err != nil {
		return fmt.Errorf("watch spool directory %s: %w", d.spool, err)
	}

	scheduler, err := d.startReconcile(ctx)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				slog.Error("scheduler shutdown", "error", err)
			}
		}()
	}

	defer d.stopTimers()

	slog.Info("watching spool directory", "spool", d.spool)
	if err := d.DrainSpool(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isArchive(event.Name) {
				continue
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				d.scheduleImport(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("spool watcher error", "error", err)
		}
	}
}

// DrainSpool imports every archive currently in the spool directory.
func (d *Daemon) DrainSpool(ctx context.Context) error {
	entries, err := os.ReadDir(d.spool)
	if err != nil {
		return fmt.Errorf("read spool directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isArchive(entry.Name()) {
			continue
		}
		d.importArchive(ctx, filepath.Join(d.spool, entry.Name()))
	}
	return nil
}

// scheduleImport (re)arms the debounce timer for one spool file.
func (d *Daemon) scheduleImport(ctx context.Context, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[path]; ok {
		t.Stop()
	}
	d.timers[path] = time.AfterFunc(d.debounce, func() {
		d.mu.Lock()
		delete(d.timers, path)
		d.mu.Unlock()
		d.importArchive(ctx, path)
	})
}

// stopTimers cancels every pending debounce timer, so no import fires after
// Run has returned.
func (d *Daemon) stopTimers() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, t := range d.timers {
		t.Stop()
		delete(d.timers, path)
	}
}

// importArchive imports one spool file. The file is deleted on success and
// renamed aside on failure so it is not retried on every event.
func (d *Daemon) importArchive(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return // shutting down; the archive stays for the next start
	}
	if _, err := os.Stat(path); err != nil {
		return // picked up and removed already
	}

	version, err := d.importer.Import(ctx, path, true)
	if err != nil {
		slog.Error("spool import failed", "archive", path, "error", err)
		if renameErr := os.Rename(path, path+failedSuffix); renameErr != nil {
			slog.Error("could not set aside failed archive", "archive", path, "error", renameErr)
		}
		return
	}

	slog.Info("spool import complete", "archive", path, "version", version.Label)
	if err := os.Remove(path); err != nil {
		slog.Error("could not remove imported archive", "archive", path, "error", err)
	}
}

// startReconcile schedules the periodic full reindex, if enabled.
func (d *Daemon) startReconcile(ctx context.Context) (gocron.Scheduler, error) {
	if d.reconcile <= 0 {
		return nil, nil
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(d.reconcile),
		gocron.NewTask(func() {
			if err := d.lifecycle.ReindexAll(ctx); err != nil {
				slog.Error("periodic reindex failed", "error", err)
			}
		}),
		gocron.WithName("search-reconcile"),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule reconcile job: %w", err)
	}
	scheduler.Start()
	slog.Info("scheduled periodic search reconcile", "interval", d.reconcile)
	return scheduler, nil
}

func isArchive(name string) bool {
	return strings.HasSuffix(name, archiveSuffix) && !strings.HasSuffix(name, failedSuffix)
}
