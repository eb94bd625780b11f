// Package idgen allocates collision-free entity identifiers by scanning
// the vault rather than trusting in-memory state. An external editor can
// create records between calls, so a cached counter would silently hand
// out colliding identifiers; a full re-scan per allocation is the safe
// default, and allocation is not a hot path.
package idgen

import (
	"fmt"

	"github.com/pcanham/gantry/internal/vault"
)

// Allocator derives the next free identifier for a type from storage.
type Allocator struct {
	store *vault.Store
}

// New creates an Allocator over the given store.
func New(store *vault.Store) *Allocator {
	return &Allocator{store: store}
}

// NextID scans every record under the type's active and archive
// directories, tracks the highest numeric suffix among entities of that
// type, and returns {prefix}-{max+1} zero-padded to at least three
// digits. Calling it twice with no intervening writes returns the same
// value. Unparseable files are skipped; they cannot claim a suffix.
func (a *Allocator) NextID(t vault.EntityType) (string, error) {
	max := 0
	scan := func(path string) error {
		e, err := a.store.Load(path)
		if err != nil {
			return nil // not a valid record, ignore
		}
		et, err := e.Type()
		if err != nil || et != t {
			return nil
		}
		n, err := vault.IDSuffix(e.ID)
		if err != nil {
			return nil
		}
		if n > max {
			max = n
		}
		return nil
	}

	for _, dir := range []string{a.store.TypeDir(t), a.store.ArchiveTypeDir(t)} {
		if err := a.store.WalkRecords(dir, scan); err != nil {
			return "", fmt.Errorf("scanning %s: %w", dir, err)
		}
	}
	return vault.FormatID(t, max+1), nil
}
