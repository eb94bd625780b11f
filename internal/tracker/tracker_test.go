package tracker

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"reflect"
	"testing"

	"github.com/pcanham/gantry/internal/index"
	"github.com/pcanham/gantry/internal/vault"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	store, err := vault.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, index.New(), Options{Logger: logger})
}

func mustWrite(t *testing.T, tr *Tracker, e *vault.Entity) string {
	t.Helper()
	path, err := tr.WriteEntity(e)
	if err != nil {
		t.Fatalf("WriteEntity(%s): %v", e.ID, err)
	}
	return path
}

func TestWriteEntity(t *testing.T) {
	t.Parallel()
	tr := newTestTracker(t)

	e := &vault.Entity{ID: "T-001", Title: "First", Status: "Todo"}
	path := mustWrite(t, tr, e)

	if !tr.Store().Exists(path) {
		t.Fatalf("no file at %s", path)
	}
	if e.Created.IsZero() || e.Updated.IsZero() {
		t.Errorf("timestamps not stamped: created=%v updated=%v", e.Created, e.Updated)
	}
	m, err := tr.GetMetadata("T-001")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if m.Title != "First" || m.Path != path {
		t.Errorf("metadata = %+v", m)
	}

	// An update keeps the original created stamp.
	created := e.Created
	e.Title = "Renamed"
	mustWrite(t, tr, e)
	if !e.Created.Equal(created) {
		t.Errorf("update rewrote created: %v != %v", e.Created, created)
	}
	if m, _ := tr.GetMetadata("T-001"); m.Title != "Renamed" {
		t.Errorf("update not indexed: %+v", m)
	}
}

func TestWriteEntity_RegistersRelations(t *testing.T) {
	t.Parallel()
	tr := newTestTracker(t)

	mustWrite(t, tr, &vault.Entity{ID: "S-001", Title: "s", Status: "Not Started"})
	mustWrite(t, tr, &vault.Entity{ID: "T-001", Title: "t", Status: "Todo"})
	mustWrite(t, tr, &vault.Entity{
		ID: "T-002", Title: "t", Status: "Todo",
		Parent: "S-001", DependsOn: []string{"T-001"},
	})

	if got := tr.Index().DependsOn("T-002"); !reflect.DeepEqual(got, []string{"T-001"}) {
		t.Errorf("DependsOn = %v", got)
	}
	if got := tr.Index().Children("S-001"); !reflect.DeepEqual(got, []string{"T-002"}) {
		t.Errorf("Children = %v", got)
	}
}

func TestWriteEntity_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		entity *vault.Entity
	}{
		{"missing title", &vault.Entity{ID: "T-010", Status: "Todo"}},
		{"missing status", &vault.Entity{ID: "T-010", Title: "x"}},
		{"status from another type", &vault.Entity{ID: "T-010", Title: "x", Status: "Completed"}},
		{"malformed id", &vault.Entity{ID: "T-10", Title: "x", Status: "Todo"}},
		{"dangling depends_on", &vault.Entity{
			ID: "T-010", Title: "x", Status: "Todo", DependsOn: []string{"T-404"},
		}},
		{"self reference", &vault.Entity{
			ID: "T-010", Title: "x", Status: "Todo", DependsOn: []string{"T-010"},
		}},
		{"task parented to milestone", &vault.Entity{
			ID: "T-010", Title: "x", Status: "Todo", Parent: "M-001",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := newTestTracker(t)
			mustWrite(t, tr, &vault.Entity{ID: "M-001", Title: "m", Status: "Not Started"})

			_, err := tr.WriteEntity(tt.entity)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("WriteEntity error = %v, want ErrValidation", err)
			}
			if tr.EntityExists("T-010") {
				t.Error("rejected entity was indexed")
			}
			if p, perr := tr.Store().PathFor(tt.entity); perr == nil && tr.Store().Exists(p) {
				t.Error("rejected entity was written to disk")
			}
		})
	}
}

func TestWriteEntity_DanglingBlockedByIsWarning(t *testing.T) {
	t.Parallel()
	tr := newTestTracker(t)

	e := &vault.Entity{ID: "T-001", Title: "x", Status: "Todo", BlockedBy: []string{"T-404"}}
	if _, err := tr.WriteEntity(e); err != nil {
		t.Fatalf("advisory blocked_by should not block the write: %v", err)
	}
}

func TestWriteEntity_CycleRejected(t *testing.T) {
	t.Parallel()
	tr := newTestTracker(t)

	mustWrite(t, tr, &vault.Entity{ID: "T-002", Title: "b", Status: "Todo"})
	mustWrite(t, tr, &vault.Entity{
		ID: "T-001", Title: "a", Status: "Todo", DependsOn: []string{"T-002"},
	})

	// Closing the loop is rejected with the full path and suggestions.
	closing := &vault.Entity{ID: "T-002", Title: "b", Status: "Todo", DependsOn: []string{"T-001"}}
	_, err := tr.WriteEntity(closing)
	var cerr *CycleError
	if !errors.As(err, &cerr) {
		t.Fatalf("WriteEntity error = %v, want *CycleError", err)
	}
	want := []string{"T-002", "T-001", "T-002"}
	if !reflect.DeepEqual(cerr.Path, want) {
		t.Errorf("cycle path = %v, want %v", cerr.Path, want)
	}
	if len(cerr.Suggestions) == 0 {
		t.Error("cycle error carries no break suggestions")
	}

	// Neither file nor index changed.
	if got := tr.Index().DependsOn("T-002"); got != nil {
		t.Errorf("rejected edge landed in the index: %v", got)
	}
	reloaded, err := tr.GetEntity("T-002")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if len(reloaded.DependsOn) != 0 {
		t.Errorf("rejected edge landed on disk: %v", reloaded.DependsOn)
	}
}

func TestWriteEntity_SelfUpdateIsNotACycle(t *testing.T) {
	t.Parallel()
	tr := newTestTracker(t)

	mustWrite(t, tr, &vault.Entity{ID: "T-002", Title: "b", Status: "Todo"})
	e := &vault.Entity{ID: "T-001", Title: "a", Status: "Todo", DependsOn: []string{"T-002"}}
	mustWrite(t, tr, e)

	// Rewriting an entity with its existing dependencies must not trip
	// over its own indexed edges.
	e.Title = "a, renamed"
	if _, err := tr.WriteEntity(e); err != nil {
		t.Fatalf("self-update rejected: %v", err)
	}
}

func TestNextID(t *testing.T) {
	t.Parallel()
	tr := newTestTracker(t)

	mustWrite(t, tr, &vault.Entity{ID: "T-003", Title: "x", Status: "Todo"})

	id, err := tr.NextID(vault.TypeTask)
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if id != "T-004" {
		t.Errorf("NextID = %q, want T-004", id)
	}
}

func TestRelationshipQueries(t *testing.T) {
	t.Parallel()
	tr := newTestTracker(t)

	mustWrite(t, tr, &vault.Entity{ID: "M-001", Title: "m", Status: "Not Started"})
	mustWrite(t, tr, &vault.Entity{ID: "S-001", Title: "s1", Status: "Done", Parent: "M-001"})
	mustWrite(t, tr, &vault.Entity{
		ID: "S-002", Title: "s2", Status: "Not Started",
		Parent: "M-001", DependsOn: []string{"S-001"},
	})

	children, err := tr.GetChildren("M-001")
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	if len(children) != 2 || children[0].ID != "S-001" || children[1].ID != "S-002" {
		t.Errorf("GetChildren = %v", children)
	}

	deps, err := tr.GetDependencies("S-002")
	if err != nil {
		t.Fatalf("GetDependencies: %v", err)
	}
	if len(deps) != 1 || deps[0].ID != "S-001" {
		t.Errorf("GetDependencies = %v", deps)
	}

	dependents, err := tr.GetDependents("S-001")
	if err != nil {
		t.Fatalf("GetDependents: %v", err)
	}
	if len(dependents) != 1 || dependents[0].ID != "S-002" {
		t.Errorf("GetDependents = %v", dependents)
	}

	if _, err := tr.GetChildren("M-404"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetChildren on unknown id = %v, want ErrNotFound", err)
	}
}

func TestGetAllEntities_Filter(t *testing.T) {
	t.Parallel()
	tr := newTestTracker(t)

	mustWrite(t, tr, &vault.Entity{ID: "T-001", Title: "a", Status: "Done", Workstream: "core"})
	mustWrite(t, tr, &vault.Entity{ID: "T-002", Title: "b", Status: "In Progress", Workstream: "infra"})
	mustWrite(t, tr, &vault.Entity{ID: "S-001", Title: "c", Status: "In Progress"})

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"S-001", "T-001", "T-002"}},
		{"by type", Filter{Type: vault.TypeTask}, []string{"T-001", "T-002"}},
		{"by status", Filter{Status: "Done"}, []string{"T-001"}},
		{"by workstream", Filter{Workstream: "infra"}, []string{"T-002"}},
		{"in progress", Filter{InProgress: ptr(true)}, []string{"S-001", "T-002"}},
		{"active only", Filter{Archived: ptr(false)}, []string{"S-001", "T-001", "T-002"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(tr.GetAllEntities(tt.filter))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("filter %+v = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestGetEntity_SelfHealsStaleEntry(t *testing.T) {
	t.Parallel()
	tr := newTestTracker(t)

	path := mustWrite(t, tr, &vault.Entity{ID: "T-001", Title: "x", Status: "Todo"})
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	if _, err := tr.GetEntity("T-001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetEntity after file loss = %v, want ErrNotFound", err)
	}
	if tr.EntityExists("T-001") {
		t.Error("stale index entry was not healed")
	}
}

func TestValidateAll(t *testing.T) {
	t.Parallel()
	tr := newTestTracker(t)

	mustWrite(t, tr, &vault.Entity{ID: "S-001", Title: "ok", Status: "Done"})
	if issues := tr.ValidateAll(); len(issues) != 0 {
		t.Fatalf("clean vault reported issues: %v", issues)
	}

	// A record edited behind the tracker's back picks up a dangling
	// reference; the next validation pass reports it.
	bad := &vault.Entity{
		ID: "T-009", Title: "bad", Status: "Todo", DependsOn: []string{"T-404"},
	}
	path, err := tr.Store().Write(bad)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	tr.Index().Set(index.MetadataFor(bad, path, tr.Store().ModTime(path)))
	tr.Index().ReplaceRelations(bad.ID, bad.Relations())

	issues := tr.ValidateAll()
	if len(issues) != 1 {
		t.Fatalf("ValidateAll = %v, want one issue", issues)
	}
	if issues[0].EntityID != "T-009" || issues[0].Field != string(vault.RelDependsOn) || issues[0].Warning {
		t.Errorf("issue = %+v", issues[0])
	}
}

func ptr(b bool) *bool { return &b }

func ids(metas []index.Metadata) []string {
	out := make([]string, 0, len(metas))
	for _, m := range metas {
		out = append(out, m.ID)
	}
	return out
}
