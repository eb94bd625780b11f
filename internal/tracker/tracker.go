// Package tracker is the operation surface exposed to calling tools:
// entity queries, validated writes, identifier allocation, dependency
// analysis, and the archive/restore lifecycle. It owns no algorithm of
// its own — it composes the store, the index, and the graph routines and
// enforces the write-path ordering (validate, then cycle-check, then
// file, then index).
package tracker

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/pcanham/gantry/internal/graph"
	"github.com/pcanham/gantry/internal/idgen"
	"github.com/pcanham/gantry/internal/index"
	"github.com/pcanham/gantry/internal/telemetry"
	"github.com/pcanham/gantry/internal/vault"
)

// Tracker combines the store and index behind the tool-facing API.
type Tracker struct {
	store   *vault.Store
	idx     *index.Index
	alloc   *idgen.Allocator
	emitter *telemetry.Emitter
	log     *slog.Logger
	now     func() time.Time
}

// Options tunes a Tracker. The zero value is usable.
type Options struct {
	Emitter *telemetry.Emitter
	Logger  *slog.Logger
}

// New creates a Tracker over an already-opened store and index.
func New(store *vault.Store, idx *index.Index, opts Options) *Tracker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:   store,
		idx:     idx,
		alloc:   idgen.New(store),
		emitter: opts.Emitter,
		log:     logger,
		now:     time.Now,
	}
}

// Index exposes the underlying index for read-side composition (the
// supervisor and CLI share it).
func (t *Tracker) Index() *index.Index { return t.idx }

// Store exposes the underlying vault store.
func (t *Tracker) Store() *vault.Store { return t.store }

// Filter narrows GetAllEntities results. Zero-valued fields match
// everything.
type Filter struct {
	Type       vault.EntityType
	Status     string
	Workstream string
	Archived   *bool
	InProgress *bool
}

func (f Filter) matches(m index.Metadata) bool {
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.Workstream != "" && m.Workstream != f.Workstream {
		return false
	}
	if f.Archived != nil && m.Archived != *f.Archived {
		return false
	}
	if f.InProgress != nil && m.InProgress != *f.InProgress {
		return false
	}
	return true
}

// EntityExists reports whether id is indexed.
func (t *Tracker) EntityExists(id string) bool {
	return t.idx.Has(id)
}

// GetMetadata returns the index projection for id.
func (t *Tracker) GetMetadata(id string) (index.Metadata, error) {
	m, ok := t.idx.Get(id)
	if !ok {
		return index.Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m, nil
}

// GetEntity loads the full record behind id from its canonical path. A
// canonical file that vanished between calls self-heals: the stale index
// entry is deleted and ErrNotFound returned.
func (t *Tracker) GetEntity(id string) (*vault.Entity, error) {
	path, ok := t.idx.PathByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e, err := t.store.Load(path)
	if err != nil {
		if !t.store.Exists(path) {
			t.idx.Delete(id)
			t.log.Warn("stale index entry healed", "id", id, "path", path)
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: loading %s: %v", ErrStorage, path, err)
	}
	return e, nil
}

// GetAllEntities returns metadata for every entity matching the filter,
// sorted by identifier.
func (t *Tracker) GetAllEntities(f Filter) []index.Metadata {
	all := t.idx.All()
	out := make([]index.Metadata, 0, len(all))
	for _, m := range all {
		if f.matches(m) {
			out = append(out, m)
		}
	}
	return out
}

// GetChildren returns metadata for the entities whose parent is id.
func (t *Tracker) GetChildren(id string) ([]index.Metadata, error) {
	if !t.idx.Has(id) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.metadataFor(t.idx.Children(id)), nil
}

// GetDependencies returns metadata for id's direct depends_on targets.
func (t *Tracker) GetDependencies(id string) ([]index.Metadata, error) {
	if !t.idx.Has(id) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.metadataFor(t.idx.DependsOn(id)), nil
}

// GetDependents returns metadata for the entities that depend on id.
func (t *Tracker) GetDependents(id string) ([]index.Metadata, error) {
	if !t.idx.Has(id) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.metadataFor(t.idx.RelatedReverse(id, vault.RelDependsOn)), nil
}

func (t *Tracker) metadataFor(ids []string) []index.Metadata {
	out := make([]index.Metadata, 0, len(ids))
	for _, id := range ids {
		if m, ok := t.idx.Get(id); ok {
			out = append(out, m)
		}
	}
	return out
}

// GetDuplicateIDs returns every duplicate-identifier warning currently
// tracked, canonical path first in each.
func (t *Tracker) GetDuplicateIDs() []index.DuplicateWarning {
	return t.idx.Duplicates()
}

// NextID allocates the next free identifier for a type by re-scanning
// storage. See idgen for why no in-memory counter is trusted.
func (t *Tracker) NextID(typ vault.EntityType) (string, error) {
	id, err := t.alloc.NextID(typ)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return id, nil
}

// WriteEntity validates and persists an entity, then updates the index.
// Order of operations: validation, cycle pre-check (against the pre-edge
// graph), file write, index metadata replace, relationship rewrite. A
// CycleError or validation failure leaves both file and index untouched.
func (t *Tracker) WriteEntity(e *vault.Entity) (string, error) {
	issues := validateEntity(e, t.lookupType)
	for _, issue := range issues {
		if issue.Warning {
			t.log.Warn("validation warning", "id", e.ID, "field", issue.Field, "message", issue.Message)
		}
	}
	if hasBlockingIssue(issues) {
		return "", fmt.Errorf("%w: %s", ErrValidation, firstBlocking(issues).Message)
	}

	if err := t.checkCycles(e); err != nil {
		return "", err
	}

	now := t.now()
	if e.Created.IsZero() {
		e.Created = now
	}
	e.Updated = now

	path, err := t.store.Write(e)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	t.idx.Set(index.MetadataFor(e, path, t.store.ModTime(path)))
	t.idx.ReplaceRelations(e.ID, e.Relations())
	_ = t.emitter.Emit(telemetry.Event{
		Kind:     telemetry.KindEntityWritten,
		EntityID: e.ID,
		Path:     path,
	})
	return path, nil
}

// checkCycles verifies that none of the entity's depends_on edges would
// close a loop. The check runs against the pre-edge state: the subject's
// previously indexed edges are masked out, exactly as a re-index would
// clear them before re-adding.
func (t *Tracker) checkCycles(e *vault.Entity) error {
	edges := func(id string) []string {
		if id == e.ID {
			return nil
		}
		return t.idx.DependsOn(id)
	}
	for _, dep := range e.DependsOn {
		if !graph.WouldCreateCycle(e.ID, dep, edges) {
			continue
		}
		cyclePath := graph.FindCyclePath(e.ID, dep, edges)
		cerr := &CycleError{
			Path:        cyclePath,
			Suggestions: graph.SuggestBreaks(graph.Cycle{Path: cyclePath}),
		}
		_ = t.emitter.Emit(telemetry.Event{
			Kind:     telemetry.KindCycleRejected,
			EntityID: e.ID,
			Data:     map[string]any{"cycle": cyclePath},
		})
		return cerr
	}
	return nil
}

// lookupType resolves an identifier through the index.
func (t *Tracker) lookupType(id string) (vault.EntityType, bool) {
	m, ok := t.idx.Get(id)
	if !ok {
		return "", false
	}
	return m.Type, true
}

// ValidateAll runs relationship validation over every indexed entity,
// loading each record from disk. Unloadable records are reported as
// issues rather than aborting the pass.
func (t *Tracker) ValidateAll() []Issue {
	var issues []Issue
	for _, m := range t.idx.All() {
		e, err := t.store.Load(m.Path)
		if err != nil {
			issues = append(issues, Issue{
				EntityID: m.ID, Field: "file",
				Message: fmt.Sprintf("unreadable record at %s: %v", m.Path, err),
			})
			continue
		}
		issues = append(issues, validateEntity(e, t.lookupType)...)
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].EntityID < issues[j].EntityID })
	return issues
}

// CycleReport pairs a detected cycle with its ranked break suggestions.
type CycleReport struct {
	Cycle       graph.Cycle
	Suggestions []graph.BreakSuggestion
}

// DetectCycles runs full-graph cycle detection over the depends_on
// graph and returns every cycle found. Detection never removes an edge;
// suggestions only inform the caller.
func (t *Tracker) DetectCycles() []CycleReport {
	all := t.idx.All()
	ids := make([]string, 0, len(all))
	for _, m := range all {
		ids = append(ids, m.ID)
	}
	cycles := graph.DetectCycles(ids, t.idx.DependsOn)
	out := make([]CycleReport, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, CycleReport{Cycle: c, Suggestions: graph.SuggestBreaks(c)})
	}
	return out
}

// AnalyzeDependencies runs transitive-redundancy analysis for one
// entity. Read-only: the caller decides whether to apply.
func (t *Tracker) AnalyzeDependencies(id string) (graph.Reduction, error) {
	if !t.idx.Has(id) {
		return graph.Reduction{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return graph.FindTransitiveDependencies(id, t.idx.DependsOn), nil
}

// ApplyReduction removes the redundant direct dependencies found by
// AnalyzeDependencies and persists the filtered entity. The stored
// record is replaced; the in-memory entity handed to WriteEntity is a
// copy, never the caller's.
func (t *Tracker) ApplyReduction(id string) (*vault.Entity, graph.Reduction, error) {
	reduction, err := t.AnalyzeDependencies(id)
	if err != nil {
		return nil, graph.Reduction{}, err
	}
	if len(reduction.Redundant) == 0 {
		return nil, reduction, nil
	}
	e, err := t.GetEntity(id)
	if err != nil {
		return nil, graph.Reduction{}, err
	}
	reduced := e.WithoutDependencies(reduction.RemovableSet())
	if _, err := t.WriteEntity(reduced); err != nil {
		return nil, graph.Reduction{}, err
	}
	return reduced, reduction, nil
}

func firstBlocking(issues []Issue) Issue {
	for _, i := range issues {
		if !i.Warning {
			return i
		}
	}
	return Issue{}
}
