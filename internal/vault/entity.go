// Package vault models project-tracking records stored as markdown files
// with YAML front-matter, and provides the file store that reads and
// writes them. A vault is a directory tree with one folder per entity
// type and a parallel archive/ tree for retired records.
package vault

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedID is returned when an identifier does not match the
// <PREFIX>-<digits> shape of any known entity type.
var ErrMalformedID = errors.New("malformed entity id")

// EntityType identifies one of the five record kinds.
type EntityType string

const (
	TypeMilestone EntityType = "milestone"
	TypeStory     EntityType = "story"
	TypeTask      EntityType = "task"
	TypeDecision  EntityType = "decision"
	TypeDocument  EntityType = "document"
)

// Types lists every entity type in a stable order.
var Types = []EntityType{TypeMilestone, TypeStory, TypeTask, TypeDecision, TypeDocument}

// prefixes maps identifier prefixes to entity types. Longer prefixes are
// matched first by TypeForID so DEC/DOC never collide with single letters.
var prefixes = map[string]EntityType{
	"M":   TypeMilestone,
	"S":   TypeStory,
	"T":   TypeTask,
	"DEC": TypeDecision,
	"DOC": TypeDocument,
}

// Prefix returns the identifier prefix for an entity type ("M", "DEC", ...).
func (t EntityType) Prefix() string {
	for p, typ := range prefixes {
		if typ == t {
			return p
		}
	}
	return ""
}

// Dir returns the default vault directory name for the type.
func (t EntityType) Dir() string {
	switch t {
	case TypeMilestone:
		return "milestones"
	case TypeStory:
		return "stories"
	case TypeTask:
		return "tasks"
	case TypeDecision:
		return "decisions"
	case TypeDocument:
		return "documents"
	}
	return ""
}

// ParseType resolves a type name ("milestone", "task", ...) to an EntityType.
func ParseType(s string) (EntityType, error) {
	for _, t := range Types {
		if string(t) == strings.ToLower(strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

var idPattern = regexp.MustCompile(`^(M|S|T|DEC|DOC)-(\d{3,})$`)

// TypeForID derives the entity type from an identifier prefix.
// Returns ErrMalformedID if the identifier has no valid shape.
func TypeForID(id string) (EntityType, error) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	return prefixes[m[1]], nil
}

// IDSuffix extracts the numeric suffix of an identifier.
func IDSuffix(id string) (int, error) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	return strconv.Atoi(m[2])
}

// FormatID builds a type-prefixed identifier with the suffix zero-padded
// to at least three digits.
func FormatID(t EntityType, n int) string {
	return fmt.Sprintf("%s-%03d", t.Prefix(), n)
}

// RelationKind is a typed relationship between two entities.
type RelationKind string

const (
	RelDependsOn     RelationKind = "depends_on"
	RelBlockedBy     RelationKind = "blocked_by"
	RelParent        RelationKind = "parent"
	RelImplements    RelationKind = "implements"
	RelImplementedBy RelationKind = "implemented_by"
	RelEnables       RelationKind = "enables"
	RelSupersedes    RelationKind = "supersedes"
)

// RelationKinds lists every relationship kind in a stable order.
var RelationKinds = []RelationKind{
	RelDependsOn, RelBlockedBy, RelParent, RelImplements,
	RelImplementedBy, RelEnables, RelSupersedes,
}

// typeSet is a small helper for constraint-table literals.
type typeSet map[EntityType]bool

// relationTargets is the fixed table of valid (source type, kind, target
// type) triples. A missing (kind, source) entry means the source type may
// not carry that relationship at all. RelBlockedBy is absent: it is
// advisory and only existence-checked.
var relationTargets = map[RelationKind]map[EntityType]typeSet{
	RelDependsOn: {
		TypeMilestone: {TypeMilestone: true, TypeDecision: true},
		TypeStory:     {TypeStory: true, TypeDecision: true, TypeDocument: true},
		TypeTask:      {TypeTask: true, TypeDecision: true},
		TypeDecision:  {TypeDecision: true},
		TypeDocument:  {TypeDocument: true, TypeDecision: true},
	},
	RelParent: {
		TypeStory: {TypeMilestone: true},
		TypeTask:  {TypeStory: true},
	},
	RelImplements: {
		TypeMilestone: {TypeDocument: true},
		TypeStory:     {TypeDocument: true},
		TypeTask:      {TypeDocument: true},
	},
	RelImplementedBy: {
		TypeDocument: {TypeStory: true, TypeTask: true},
	},
	RelEnables: {
		TypeDecision: {TypeDocument: true, TypeStory: true, TypeTask: true},
	},
	RelSupersedes: {
		TypeDecision: {TypeDecision: true},
		TypeDocument: {TypeDocument: true},
	},
}

// ValidTarget reports whether an entity of type src may carry a kind
// relationship pointing at an entity of type dst. RelBlockedBy is always
// valid (advisory).
func ValidTarget(src EntityType, kind RelationKind, dst EntityType) bool {
	if kind == RelBlockedBy {
		return true
	}
	bySource, ok := relationTargets[kind]
	if !ok {
		return false
	}
	targets, ok := bySource[src]
	if !ok {
		return false
	}
	return targets[dst]
}

// Statuses returns the allowed status values for a type, in workflow order.
func (t EntityType) Statuses() []string {
	switch t {
	case TypeMilestone:
		return []string{"Not Started", "In Progress", "Completed"}
	case TypeStory:
		return []string{"Not Started", "In Progress", "Done"}
	case TypeTask:
		return []string{"Todo", "In Progress", "Done"}
	case TypeDecision:
		return []string{"Proposed", "Accepted", "Superseded"}
	case TypeDocument:
		return []string{"Draft", "Approved", "Deprecated"}
	}
	return nil
}

// terminalStatuses marks statuses from which an entity may be archived
// without force.
var terminalStatuses = map[EntityType]map[string]bool{
	TypeMilestone: {"Completed": true},
	TypeStory:     {"Done": true},
	TypeTask:      {"Done": true},
	TypeDecision:  {"Accepted": true, "Superseded": true},
	TypeDocument:  {"Approved": true, "Deprecated": true},
}

// TerminalStatus reports whether status is terminal for the type.
func (t EntityType) TerminalStatus(status string) bool {
	return terminalStatuses[t][status]
}

// ValidStatus reports whether status belongs to the type's enumeration.
func (t EntityType) ValidStatus(status string) bool {
	for _, s := range t.Statuses() {
		if s == status {
			return true
		}
	}
	return false
}

// StatusInProgress is the shared in-flight status value across all types.
const StatusInProgress = "In Progress"

// Entity is one tracked record: the parsed front-matter plus the markdown
// body and the path it was loaded from.
type Entity struct {
	ID         string `yaml:"id"`
	Title      string `yaml:"title"`
	Status     string `yaml:"status"`
	Workstream string `yaml:"workstream,omitempty"`
	Parent     string `yaml:"parent,omitempty"`

	DependsOn     []string `yaml:"depends_on,omitempty"`
	BlockedBy     []string `yaml:"blocked_by,omitempty"`
	Implements    []string `yaml:"implements,omitempty"`
	Enables       []string `yaml:"enables,omitempty"`
	ImplementedBy []string `yaml:"implemented_by,omitempty"`
	Supersedes    string   `yaml:"supersedes,omitempty"`

	Archived   bool       `yaml:"archived,omitempty"`
	Created    time.Time  `yaml:"created,omitempty"`
	Updated    time.Time  `yaml:"updated,omitempty"`
	ArchivedAt *time.Time `yaml:"archived_at,omitempty"`

	// Body is the markdown below the front-matter, preserved verbatim.
	Body string `yaml:"-"`
	// Path is where the record was loaded from, empty for new entities.
	Path string `yaml:"-"`
}

// Type derives the entity type from the identifier prefix.
func (e *Entity) Type() (EntityType, error) {
	return TypeForID(e.ID)
}

// Relations returns the entity's typed relationship lists keyed by kind.
// Scalar fields (parent, supersedes) appear as one-element lists. Empty
// lists are omitted.
func (e *Entity) Relations() map[RelationKind][]string {
	rels := make(map[RelationKind][]string)
	add := func(kind RelationKind, ids []string) {
		if len(ids) > 0 {
			rels[kind] = ids
		}
	}
	add(RelDependsOn, e.DependsOn)
	add(RelBlockedBy, e.BlockedBy)
	add(RelImplements, e.Implements)
	add(RelEnables, e.Enables)
	add(RelImplementedBy, e.ImplementedBy)
	if e.Parent != "" {
		rels[RelParent] = []string{e.Parent}
	}
	if e.Supersedes != "" {
		rels[RelSupersedes] = []string{e.Supersedes}
	}
	return rels
}

// WithoutDependencies returns a copy of the entity with the given
// identifiers filtered out of its depends_on list. The receiver is never
// mutated; transitive-reduction apply builds on this.
func (e *Entity) WithoutDependencies(remove map[string]bool) *Entity {
	clone := *e
	if len(e.DependsOn) > 0 {
		kept := make([]string, 0, len(e.DependsOn))
		for _, id := range e.DependsOn {
			if !remove[id] {
				kept = append(kept, id)
			}
		}
		clone.DependsOn = kept
	}
	return &clone
}
