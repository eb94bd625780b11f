package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pcanham/gantry/internal/graph"
	"github.com/pcanham/gantry/internal/index"
	"github.com/pcanham/gantry/internal/tracker"
)

// ─── DependenciesTool ───────────────────────────────────────────────────────

// DependenciesTool handles vault_get_dependencies and
// vault_get_dependents; the direction flag picks the edge orientation.
type DependenciesTool struct {
	tr      *tracker.Tracker
	reverse bool
}

// NewDependenciesTool creates the vault_get_dependencies tool.
func NewDependenciesTool(tr *tracker.Tracker) *DependenciesTool {
	return &DependenciesTool{tr: tr}
}

// NewDependentsTool creates the vault_get_dependents tool.
func NewDependentsTool(tr *tracker.Tracker) *DependenciesTool {
	return &DependenciesTool{tr: tr, reverse: true}
}

// Definition returns the MCP tool definition.
func (t *DependenciesTool) Definition() mcp.Tool {
	name, desc := "vault_get_dependencies", "List the entities this entity directly depends on."
	if t.reverse {
		name, desc = "vault_get_dependents", "List the entities that directly depend on this entity."
	}
	return mcp.NewTool(name,
		mcp.WithDescription(desc),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Entity identifier"),
		),
	)
}

// Handle processes the tool call.
func (t *DependenciesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	var (
		items []index.Metadata
		err   error
		empty string
	)
	if t.reverse {
		items, err = t.tr.GetDependents(id)
		empty = fmt.Sprintf("Nothing depends on %s.", id)
	} else {
		items, err = t.tr.GetDependencies(id)
		empty = fmt.Sprintf("%s has no dependencies.", id)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(renderMetadataList(items, empty)), nil
}

// ─── AnalyzeDependenciesTool ────────────────────────────────────────────────

// AnalyzeDependenciesTool handles the vault_analyze_dependencies MCP
// tool: transitive-redundancy analysis with an opt-in apply step.
type AnalyzeDependenciesTool struct {
	tr *tracker.Tracker
}

// NewAnalyzeDependenciesTool creates an AnalyzeDependenciesTool.
func NewAnalyzeDependenciesTool(tr *tracker.Tracker) *AnalyzeDependenciesTool {
	return &AnalyzeDependenciesTool{tr: tr}
}

// Definition returns the MCP tool definition for vault_analyze_dependencies.
func (t *AnalyzeDependenciesTool) Definition() mcp.Tool {
	return mcp.NewTool("vault_analyze_dependencies",
		mcp.WithDescription(
			"Find direct dependencies of an entity that are already reachable through "+
				"another direct dependency. Analysis is read-only; pass apply=true to "+
				"rewrite the record with the redundant edges removed.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Entity identifier to analyze"),
		),
		mcp.WithBoolean("apply",
			mcp.Description("Persist the reduction instead of only reporting it"),
		),
	)
}

// Handle processes the vault_analyze_dependencies tool call.
func (t *AnalyzeDependenciesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	if boolArg(req, "apply", false) {
		reduced, reduction, err := t.tr.ApplyReduction(id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if reduced == nil {
			return mcp.NewToolResultText(fmt.Sprintf("%s has no redundant dependencies; nothing applied.", id)), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Reduced %s: removed %d redundant dependencies.\n", id, len(reduction.Redundant))
		fmt.Fprintf(&b, "Remaining depends_on: %s", strings.Join(reduced.DependsOn, ", "))
		return mcp.NewToolResultText(b.String()), nil
	}

	reduction, err := t.tr.AnalyzeDependencies(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(renderReduction(reduction)), nil
}

// renderReduction formats a redundancy analysis for tool output.
func renderReduction(r graph.Reduction) string {
	if len(r.Redundant) == 0 {
		return fmt.Sprintf("%s has no redundant dependencies.", r.Subject)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d of %d direct dependencies are redundant:\n",
		r.Subject, len(r.Redundant), len(r.Direct))
	for _, red := range r.Redundant {
		fmt.Fprintf(&b, "  %s (reachable via %s)\n", red.ID, red.Via)
	}
	b.WriteString("Run again with apply=true to remove them.")
	return b.String()
}
