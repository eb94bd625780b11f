package tracker

import (
	"fmt"

	"github.com/pcanham/gantry/internal/index"
	"github.com/pcanham/gantry/internal/telemetry"
)

// ArchiveOptions controls an archive transition.
type ArchiveOptions struct {
	// Cascade archives every descendant (children before parents) and
	// the entity itself last.
	Cascade bool
	// Force bypasses the terminal-status and has-children gates on the
	// root of the transition.
	Force bool
}

// MoveToArchive relocates an entity (and, in cascade mode, its
// descendants) into the archive tree. The root must be in a
// terminal-for-its-type status unless forced, and an entity with
// children is rejected unless cascading or forced. Returns the archived
// identifiers in transition order, leaves first.
//
// Each transition rewrites the record with the archived flag and
// relocates the file before the index is touched, so a failed move never
// leaves the index pointing at a non-existent path.
func (t *Tracker) MoveToArchive(id string, opts ArchiveOptions) ([]string, error) {
	meta, ok := t.idx.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if meta.Archived {
		return nil, fmt.Errorf("%w: %s is already archived", ErrValidation, id)
	}
	if !opts.Force && !meta.Type.TerminalStatus(meta.Status) {
		return nil, fmt.Errorf("%w: %s has status %q, not terminal for %s (use force to override)",
			ErrValidation, id, meta.Status, meta.Type)
	}
	if t.idx.ChildCount(id) > 0 && !opts.Cascade && !opts.Force {
		return nil, fmt.Errorf("%w: %s has children; archive with cascade or force",
			ErrValidation, id)
	}

	order := []string{id}
	if opts.Cascade {
		order = append(t.descendantsPostorder(id), id)
	}

	archived := make([]string, 0, len(order))
	for _, cur := range order {
		if m, ok := t.idx.Get(cur); !ok || m.Archived {
			continue
		}
		if err := t.relocate(cur, true); err != nil {
			return archived, err
		}
		archived = append(archived, cur)
	}
	return archived, nil
}

// RestoreFromArchive moves an archived entity back to its active path.
// Restore is single-entity and does not reopen status; archived
// descendants stay archived.
func (t *Tracker) RestoreFromArchive(id string) error {
	meta, ok := t.idx.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !meta.Archived {
		return fmt.Errorf("%w: %s is not archived", ErrValidation, id)
	}
	return t.relocate(id, false)
}

// descendantsPostorder walks children-of-children depth-first and
// returns them leaves first, so a milestone cascade archives all tasks,
// then all stories, then (appended by the caller) itself. Parent edges
// come from unvalidated external edits, so the walk tracks visited
// identifiers: a corrupt parent loop is skipped, not recursed into.
func (t *Tracker) descendantsPostorder(id string) []string {
	var order []string
	visited := map[string]bool{id: true}
	var walk func(cur string)
	walk = func(cur string) {
		for _, child := range t.idx.Children(cur) {
			if visited[child] {
				continue
			}
			visited[child] = true
			walk(child)
			order = append(order, child)
		}
	}
	walk(id)
	return order
}

// relocate flips the archived flag on one entity, moves its backing
// file, and updates the index — file first, index second.
func (t *Tracker) relocate(id string, toArchive bool) error {
	path, ok := t.idx.PathByID(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e, err := t.store.Load(path)
	if err != nil {
		return fmt.Errorf("%w: loading %s: %v", ErrStorage, path, err)
	}

	now := t.now()
	e.Archived = toArchive
	e.Updated = now
	if toArchive {
		stamp := now
		e.ArchivedAt = &stamp
	} else {
		e.ArchivedAt = nil
	}

	newPath, err := t.store.Relocate(e, path)
	if err != nil {
		// Index untouched: it still points at the old, existing file.
		return fmt.Errorf("%w: relocating %s: %v", ErrStorage, id, err)
	}
	t.idx.Set(index.MetadataFor(e, newPath, t.store.ModTime(newPath)))

	kind := telemetry.KindEntityArchived
	if !toArchive {
		kind = telemetry.KindEntityRestored
	}
	_ = t.emitter.Emit(telemetry.Event{Kind: kind, EntityID: id, Path: newPath})
	return nil
}
