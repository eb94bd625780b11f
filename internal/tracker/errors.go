package tracker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pcanham/gantry/internal/graph"
)

// ErrNotFound is returned when an identifier is absent from the index.
var ErrNotFound = errors.New("entity not found")

// ErrValidation is returned for malformed identifiers, missing required
// fields, wrong-typed relationship targets, and rejected lifecycle
// transitions. Never retried automatically.
var ErrValidation = errors.New("validation failed")

// ErrStorage wraps an underlying read/write/rename failure.
var ErrStorage = errors.New("storage failure")

// CycleError aborts a mutation that would create a dependency cycle. It
// carries the full cycle path and ranked break suggestions; no index or
// file change has been made when it is returned.
type CycleError struct {
	Path        []string
	Suggestions []graph.BreakSuggestion
}

// Error renders the cycle path in traversal order.
func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle rejected: %s", strings.Join(e.Path, " -> "))
}

// Issue is one finding from relationship validation. Warnings do not
// block a write; errors do.
type Issue struct {
	EntityID string
	Field    string
	Message  string
	Warning  bool
}

// String renders the issue as "<id> [<field>] <severity>: <message>".
func (i Issue) String() string {
	sev := "error"
	if i.Warning {
		sev = "warning"
	}
	return fmt.Sprintf("%s [%s] %s: %s", i.EntityID, i.Field, sev, i.Message)
}
