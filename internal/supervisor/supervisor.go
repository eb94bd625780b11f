// Package supervisor keeps the relationship index synchronized with the
// vault on disk. It performs the initial full scan, installs one
// change-notification watch per tracked directory, debounces bursts of
// filesystem events into single reconciliation passes, and resolves
// duplicate-identifier collisions without destroying the canonical
// entity.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pcanham/gantry/internal/index"
	"github.com/pcanham/gantry/internal/telemetry"
	"github.com/pcanham/gantry/internal/vault"
)

// DefaultDebounce is the quiet period required after the last event for a
// path before its reconciliation runs. External editors save in bursts;
// 100ms collapses a burst into one reparse.
const DefaultDebounce = 100 * time.Millisecond

// Options tunes a Supervisor. The zero value is usable.
type Options struct {
	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration
	// Emitter receives lifecycle events; nil disables telemetry.
	Emitter *telemetry.Emitter
	// Logger receives reconciliation warnings; nil uses slog.Default.
	Logger *slog.Logger
}

// Supervisor owns the scan → watch → debounce → reconcile loop for one
// vault. All index mutations made by external file changes funnel
// through it.
type Supervisor struct {
	store    *vault.Store
	idx      *index.Index
	emitter  *telemetry.Emitter
	log      *slog.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New creates a Supervisor over the given store and index.
func New(store *vault.Store, idx *index.Index, opts Options) *Supervisor {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		store:    store,
		idx:      idx,
		emitter:  opts.Emitter,
		log:      logger,
		debounce: debounce,
	}
}

// ScanVault walks every tracked directory, parses every record, and
// populates the index. Files that fail to read or parse are logged and
// skipped; one bad record never aborts the scan. The index fully
// reflects the scan before ScanVault returns.
func (s *Supervisor) ScanVault(ctx context.Context) error {
	_ = s.emitter.Emit(telemetry.Event{Kind: telemetry.KindScanStart})
	indexed := 0
	for _, dir := range s.store.TrackedDirs() {
		err := s.store.WalkRecords(dir, func(path string) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.applyPath(path); err == nil {
				indexed++
			}
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("scanning %s: %w", dir, err)
		}
	}
	_ = s.emitter.Emit(telemetry.Event{
		Kind: telemetry.KindScanDone,
		Data: map[string]int{"indexed": indexed},
	})
	return nil
}

// Start installs filesystem watches on every tracked directory (created
// if missing, recursively including subdirectories) and launches the
// debounce loop. Call ScanVault first; Start only keeps an
// already-populated index current.
func (s *Supervisor) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	for _, dir := range s.store.TrackedDirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			w.Close()
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return w.Add(path)
			}
			return nil
		})
		if err != nil {
			w.Close()
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	s.watcher = w
	s.done = make(chan struct{})
	go s.loop()
	_ = s.emitter.Emit(telemetry.Event{Kind: telemetry.KindWatchStarted})
	return nil
}

// Stop shuts down the watcher. Pending debounce entries are dropped
// without running reconciliation: an in-flight change may be missed
// until the next process start, which re-runs the full scan.
func (s *Supervisor) Stop() {
	if s.watcher == nil {
		return
	}
	s.watcher.Close()
	<-s.done
	s.watcher = nil
	_ = s.emitter.Emit(telemetry.Event{Kind: telemetry.KindWatchStopped})
}

// loop is the debounce engine: a single pending map keyed by path plus
// one ticker, instead of one timer handle per path. A new event for a
// path resets its deadline; only after the quiet period elapses does the
// path reconcile. Events on different paths reconcile independently,
// events on the same path are serialized by the map key.
func (s *Supervisor) loop() {
	defer close(s.done)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(s.debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// New subdirectory: extend the watch.
					if err := s.watcher.Add(event.Name); err != nil {
						s.log.Warn("watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !vault.IsRecordFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for path, last := range pending {
				if now.Sub(last) >= s.debounce {
					delete(pending, path)
					s.Reconcile(path)
				}
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("watcher error", "error", err)
		}
	}
}

// Reconcile brings the index in line with the current filesystem state
// of one path: reparse-and-set if the file exists, safe delete if it is
// gone. A storage failure is logged and the path skipped; it never halts
// the supervisor.
func (s *Supervisor) Reconcile(path string) {
	if s.store.Exists(path) {
		if err := s.applyPath(path); err != nil {
			s.log.Warn("reconcile failed", "path", path, "error", err)
		}
		return
	}
	s.safeDelete(path)
}

// applyPath parses the record at path and installs it in the index:
// full metadata replace plus clear-then-add relationship registration.
// If the identifier is already indexed under a different path, the new
// path is recorded as a non-canonical duplicate and the canonical entity
// is left untouched.
func (s *Supervisor) applyPath(path string) error {
	mtime := s.store.ModTime(path)

	// Staleness gate: skip the reparse when the canonical file's mtime
	// matches what the index already recorded.
	if id, ok := s.idx.IDByPath(path); ok {
		if meta, ok := s.idx.Get(id); ok && meta.Path == path &&
			!mtime.IsZero() && meta.FileModTime.Equal(mtime) {
			return nil
		}
	}

	e, err := s.store.Load(path)
	if err != nil {
		_ = s.emitter.Emit(telemetry.Event{
			Kind: telemetry.KindStorageFailure,
			Path: path,
			Data: map[string]string{"error": err.Error()},
		})
		return err
	}

	if existing, ok := s.idx.Get(e.ID); ok && existing.Path != path {
		s.idx.RecordDuplicate(e.ID, path)
		s.log.Warn("duplicate entity id",
			"id", e.ID, "canonical", existing.Path, "duplicate", path)
		_ = s.emitter.Emit(telemetry.Event{
			Kind:     telemetry.KindDuplicateID,
			EntityID: e.ID,
			Path:     path,
			Data:     map[string]string{"canonical": existing.Path},
		})
		return nil
	}

	s.idx.Set(index.MetadataFor(e, path, mtime))
	s.idx.ReplaceRelations(e.ID, e.Relations())
	_ = s.emitter.Emit(telemetry.Event{
		Kind:     telemetry.KindReconciled,
		EntityID: e.ID,
		Path:     path,
	})
	return nil
}

// safeDelete handles a vanished file. If the path was canonical for its
// identifier, the entity and all of its edges are removed. If it was a
// stale duplicate, only the path mapping goes; the canonical entity
// survives the loss of its impostor.
func (s *Supervisor) safeDelete(path string) {
	id, ok := s.idx.IDByPath(path)
	if !ok {
		return
	}
	if s.idx.IsCanonical(path) {
		s.idx.Delete(id)
		_ = s.emitter.Emit(telemetry.Event{
			Kind:     telemetry.KindEntityRemoved,
			EntityID: id,
			Path:     path,
		})
		return
	}
	s.idx.RemovePathMapping(path)
	_ = s.emitter.Emit(telemetry.Event{
		Kind:     telemetry.KindPathUnmapped,
		EntityID: id,
		Path:     path,
	})
}
