// Package index holds the in-memory relationship index: entity metadata,
// the bidirectional typed-edge graph, and the identifier↔path mapping.
// It is a pure data structure — no I/O — mutated by the supervisor's
// reconciliation and by direct tracker writes, and read by everything.
package index

import (
	"sort"
	"sync"
	"time"

	"github.com/pcanham/gantry/internal/vault"
)

// Metadata is the lightweight projection of an entity kept in the index.
// Reparses replace the whole record; nothing is merged field-by-field.
type Metadata struct {
	ID         string
	Type       vault.EntityType
	Title      string
	Workstream string
	Status     string
	Archived   bool
	InProgress bool
	Parent     string
	Path       string
	UpdatedAt  time.Time
	// FileModTime is the last-known mtime of the backing file, used to
	// detect staleness before a full reparse.
	FileModTime time.Time
}

// MetadataFor builds the index projection of a parsed entity.
func MetadataFor(e *vault.Entity, path string, mtime time.Time) Metadata {
	t, _ := e.Type()
	return Metadata{
		ID:          e.ID,
		Type:        t,
		Title:       e.Title,
		Workstream:  e.Workstream,
		Status:      e.Status,
		Archived:    e.Archived,
		InProgress:  e.Status == vault.StatusInProgress,
		Parent:      e.Parent,
		Path:        path,
		UpdatedAt:   e.Updated,
		FileModTime: mtime,
	}
}

// DuplicateWarning reports two or more files claiming one identifier.
// Paths lists the canonical path first, then the stale duplicates.
type DuplicateWarning struct {
	ID    string
	Paths []string
}

// edgeSet maps relationship kind → set of entity IDs.
type edgeSet map[vault.RelationKind]map[string]bool

// Index is the central mapping from identifier to metadata plus the
// forward/reverse edge graph. Safe for concurrent use: the supervisor
// goroutine writes while tool handlers read.
type Index struct {
	mu sync.RWMutex

	entities map[string]*Metadata
	// forward maps source ID → kind → set of target IDs.
	forward map[string]edgeSet
	// reverse maps target ID → kind → set of source IDs.
	reverse map[string]edgeSet

	pathByID map[string]string
	idByPath map[string]string
	// duplicates maps ID → non-canonical paths claiming that ID.
	duplicates map[string][]string
}

// New creates an empty index.
func New() *Index {
	return &Index{
		entities:   make(map[string]*Metadata),
		forward:    make(map[string]edgeSet),
		reverse:    make(map[string]edgeSet),
		pathByID:   make(map[string]string),
		idByPath:   make(map[string]string),
		duplicates: make(map[string][]string),
	}
}

// Set inserts or replaces metadata by identifier and records its path as
// canonical. A previous canonical path that differs (the file moved) is
// unmapped first.
func (ix *Index) Set(meta Metadata) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.pathByID[meta.ID]; ok && old != meta.Path {
		delete(ix.idByPath, old)
	}
	// A path previously recorded as a duplicate is being promoted to
	// canonical; drop it from the duplicate ledger.
	dups := ix.duplicates[meta.ID]
	for i, p := range dups {
		if p == meta.Path {
			ix.duplicates[meta.ID] = append(dups[:i], dups[i+1:]...)
			break
		}
	}
	if len(ix.duplicates[meta.ID]) == 0 {
		delete(ix.duplicates, meta.ID)
	}
	m := meta
	ix.entities[meta.ID] = &m
	ix.pathByID[meta.ID] = meta.Path
	ix.idByPath[meta.Path] = meta.ID
}

// Get returns the metadata for id, or false if absent.
func (ix *Index) Get(id string) (Metadata, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	m, ok := ix.entities[id]
	if !ok {
		return Metadata{}, false
	}
	return *m, true
}

// Has reports whether id is present.
func (ix *Index) Has(id string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.entities[id]
	return ok
}

// Len returns the number of indexed entities.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entities)
}

// All returns every metadata record, sorted by identifier.
func (ix *Index) All() []Metadata {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Metadata, 0, len(ix.entities))
	for _, m := range ix.entities {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Delete removes the entity: metadata, every forward edge from it, every
// reverse edge pointing at it, and all of its path mappings.
func (ix *Index) Delete(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.deleteLocked(id)
}

func (ix *Index) deleteLocked(id string) {
	// Forward edges: clean the reverse side of each.
	for kind, targets := range ix.forward[id] {
		for target := range targets {
			ix.removeReverseLocked(target, kind, id)
		}
	}
	delete(ix.forward, id)

	// Reverse edges: clean the forward side of each.
	for kind, sources := range ix.reverse[id] {
		for source := range sources {
			ix.removeForwardLocked(source, kind, id)
		}
	}
	delete(ix.reverse, id)

	if path, ok := ix.pathByID[id]; ok {
		delete(ix.idByPath, path)
		delete(ix.pathByID, id)
	}
	for _, path := range ix.duplicates[id] {
		delete(ix.idByPath, path)
	}
	delete(ix.duplicates, id)
	delete(ix.entities, id)
}

// AddRelation records a typed edge subject→object in both directions.
// Both sides are written under one lock acquisition, so no reader ever
// observes a half-added edge.
func (ix *Index) AddRelation(subject string, kind vault.RelationKind, object string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.addRelationLocked(subject, kind, object)
}

func (ix *Index) addRelationLocked(subject string, kind vault.RelationKind, object string) {
	if ix.forward[subject] == nil {
		ix.forward[subject] = make(edgeSet)
	}
	if ix.forward[subject][kind] == nil {
		ix.forward[subject][kind] = make(map[string]bool)
	}
	ix.forward[subject][kind][object] = true

	if ix.reverse[object] == nil {
		ix.reverse[object] = make(edgeSet)
	}
	if ix.reverse[object][kind] == nil {
		ix.reverse[object][kind] = make(map[string]bool)
	}
	ix.reverse[object][kind][subject] = true
}

// ReplaceRelations removes every previously recorded edge originating at
// id and records the current set. Re-indexing always goes through here so
// stale edges never outlive a content change.
func (ix *Index) ReplaceRelations(id string, rels map[vault.RelationKind][]string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for kind, targets := range ix.forward[id] {
		for target := range targets {
			ix.removeReverseLocked(target, kind, id)
		}
	}
	delete(ix.forward, id)

	for kind, targets := range rels {
		for _, target := range targets {
			ix.addRelationLocked(id, kind, target)
		}
	}
}

func (ix *Index) removeForwardLocked(source string, kind vault.RelationKind, target string) {
	if set := ix.forward[source][kind]; set != nil {
		delete(set, target)
		if len(set) == 0 {
			delete(ix.forward[source], kind)
		}
	}
}

func (ix *Index) removeReverseLocked(target string, kind vault.RelationKind, source string) {
	if set := ix.reverse[target][kind]; set != nil {
		delete(set, source)
		if len(set) == 0 {
			delete(ix.reverse[target], kind)
		}
	}
}

// Related returns the forward targets of id for one relationship kind,
// sorted. O(edges touching the node).
func (ix *Index) Related(id string, kind vault.RelationKind) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return sortedKeys(ix.forward[id][kind])
}

// RelatedReverse returns the sources pointing at id for one relationship
// kind, sorted.
func (ix *Index) RelatedReverse(id string, kind vault.RelationKind) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return sortedKeys(ix.reverse[id][kind])
}

// Children returns the IDs whose parent edge points at id, sorted.
func (ix *Index) Children(id string) []string {
	return ix.RelatedReverse(id, vault.RelParent)
}

// ChildCount returns how many entities name id as their parent.
func (ix *Index) ChildCount(id string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.reverse[id][vault.RelParent])
}

// DependsOn returns id's direct depends_on targets, sorted. This is the
// edge accessor handed to the cycle detector and transitive reducer.
func (ix *Index) DependsOn(id string) []string {
	return ix.Related(id, vault.RelDependsOn)
}

// PathByID returns the canonical storage path for id.
func (ix *Index) PathByID(id string) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	p, ok := ix.pathByID[id]
	return p, ok
}

// IDByPath returns the identifier mapped to path — canonical or duplicate.
func (ix *Index) IDByPath(path string) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	id, ok := ix.idByPath[path]
	return id, ok
}

// IsCanonical reports whether path is the canonical path for the
// identifier it maps to.
func (ix *Index) IsCanonical(path string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	id, ok := ix.idByPath[path]
	if !ok {
		return false
	}
	return ix.pathByID[id] == path
}

// RecordDuplicate tracks a non-canonical path claiming an already-indexed
// identifier. The canonical entity is left untouched; the extra path is
// kept only so its later deletion can be handled safely and so callers
// can surface a warning.
func (ix *Index) RecordDuplicate(id, path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.pathByID[id] == path {
		return
	}
	ix.idByPath[path] = id
	for _, p := range ix.duplicates[id] {
		if p == path {
			return
		}
	}
	ix.duplicates[id] = append(ix.duplicates[id], path)
}

// RemovePathMapping drops the identifier↔path mapping for one path
// without touching entity metadata. This is the safe-delete branch for a
// vanished non-canonical duplicate. If the path happened to be canonical
// the canonical mapping is cleared too (self-heal); the caller is
// expected to have taken the Delete branch in that case.
func (ix *Index) RemovePathMapping(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	id, ok := ix.idByPath[path]
	if !ok {
		return
	}
	delete(ix.idByPath, path)
	if ix.pathByID[id] == path {
		delete(ix.pathByID, id)
	}
	dups := ix.duplicates[id]
	for i, p := range dups {
		if p == path {
			ix.duplicates[id] = append(dups[:i], dups[i+1:]...)
			break
		}
	}
	if len(ix.duplicates[id]) == 0 {
		delete(ix.duplicates, id)
	}
}

// Duplicates returns every duplicate-identifier warning, sorted by ID.
// Each warning lists the canonical path first.
func (ix *Index) Duplicates() []DuplicateWarning {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]DuplicateWarning, 0, len(ix.duplicates))
	for id, extra := range ix.duplicates {
		paths := make([]string, 0, len(extra)+1)
		if canonical, ok := ix.pathByID[id]; ok {
			paths = append(paths, canonical)
		}
		paths = append(paths, extra...)
		out = append(out, DuplicateWarning{ID: id, Paths: paths})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
