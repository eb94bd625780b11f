package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pcanham/gantry/internal/tracker"
	"github.com/pcanham/gantry/internal/vault"
)

// ─── GetEntityTool ──────────────────────────────────────────────────────────

// GetEntityTool handles the vault_get_entity MCP tool.
type GetEntityTool struct {
	tr *tracker.Tracker
}

// NewGetEntityTool creates a GetEntityTool with the given tracker.
func NewGetEntityTool(tr *tracker.Tracker) *GetEntityTool {
	return &GetEntityTool{tr: tr}
}

// Definition returns the MCP tool definition for vault_get_entity.
func (t *GetEntityTool) Definition() mcp.Tool {
	return mcp.NewTool("vault_get_entity",
		mcp.WithDescription(
			"Fetch one tracked entity (milestone, story, task, decision, or document) "+
				"by identifier, including its relationships and markdown body.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Entity identifier, e.g. M-001, S-014, DEC-003"),
		),
	)
}

// Handle processes the vault_get_entity tool call.
func (t *GetEntityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	e, err := t.tr.GetEntity(id)
	if err != nil {
		if errors.Is(err, tracker.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("entity %s not found", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(renderEntity(e)), nil
}

// renderEntity formats a full record for tool output.
func renderEntity(e *vault.Entity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n", e.ID, e.Title)
	fmt.Fprintf(&b, "status: %s\n", e.Status)
	if e.Workstream != "" {
		fmt.Fprintf(&b, "workstream: %s\n", e.Workstream)
	}
	if e.Parent != "" {
		fmt.Fprintf(&b, "parent: %s\n", e.Parent)
	}
	writeList := func(name string, ids []string) {
		if len(ids) > 0 {
			fmt.Fprintf(&b, "%s: %s\n", name, strings.Join(ids, ", "))
		}
	}
	writeList("depends_on", e.DependsOn)
	writeList("blocked_by", e.BlockedBy)
	writeList("implements", e.Implements)
	writeList("enables", e.Enables)
	writeList("implemented_by", e.ImplementedBy)
	if e.Supersedes != "" {
		fmt.Fprintf(&b, "supersedes: %s\n", e.Supersedes)
	}
	if e.Archived {
		b.WriteString("archived: true\n")
	}
	fmt.Fprintf(&b, "path: %s\n", e.Path)
	if e.Body != "" {
		b.WriteString("\n")
		b.WriteString(e.Body)
	}
	return b.String()
}

// ─── ListEntitiesTool ───────────────────────────────────────────────────────

// ListEntitiesTool handles the vault_list_entities MCP tool.
type ListEntitiesTool struct {
	tr *tracker.Tracker
}

// NewListEntitiesTool creates a ListEntitiesTool with the given tracker.
func NewListEntitiesTool(tr *tracker.Tracker) *ListEntitiesTool {
	return &ListEntitiesTool{tr: tr}
}

// Definition returns the MCP tool definition for vault_list_entities.
func (t *ListEntitiesTool) Definition() mcp.Tool {
	return mcp.NewTool("vault_list_entities",
		mcp.WithDescription(
			"List tracked entities, optionally filtered by type, status, workstream, "+
				"archived flag, or in-progress flag.",
		),
		mcp.WithString("type",
			mcp.Description("Entity type filter: milestone, story, task, decision, document"),
		),
		mcp.WithString("status",
			mcp.Description("Exact status filter, e.g. 'In Progress'"),
		),
		mcp.WithString("workstream",
			mcp.Description("Workstream label filter"),
		),
		mcp.WithBoolean("archived",
			mcp.Description("When set, only archived (true) or only active (false) entities"),
		),
		mcp.WithBoolean("in_progress",
			mcp.Description("When true, only entities whose status is In Progress"),
		),
	)
}

// Handle processes the vault_list_entities tool call.
func (t *ListEntitiesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := tracker.Filter{
		Status:     req.GetString("status", ""),
		Workstream: req.GetString("workstream", ""),
	}
	if typeName := req.GetString("type", ""); typeName != "" {
		typ, err := vault.ParseType(typeName)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		f.Type = typ
	}
	if _, set := req.GetArguments()["archived"]; set {
		v := boolArg(req, "archived", false)
		f.Archived = &v
	}
	if _, set := req.GetArguments()["in_progress"]; set {
		v := boolArg(req, "in_progress", false)
		f.InProgress = &v
	}
	entities := t.tr.GetAllEntities(f)
	return mcp.NewToolResultText(renderMetadataList(entities, "No entities match the filter.")), nil
}

// ─── ChildrenTool ───────────────────────────────────────────────────────────

// ChildrenTool handles the vault_get_children MCP tool.
type ChildrenTool struct {
	tr *tracker.Tracker
}

// NewChildrenTool creates a ChildrenTool with the given tracker.
func NewChildrenTool(tr *tracker.Tracker) *ChildrenTool {
	return &ChildrenTool{tr: tr}
}

// Definition returns the MCP tool definition for vault_get_children.
func (t *ChildrenTool) Definition() mcp.Tool {
	return mcp.NewTool("vault_get_children",
		mcp.WithDescription(
			"List the direct children of an entity (stories under a milestone, tasks under a story).",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Parent entity identifier"),
		),
	)
}

// Handle processes the vault_get_children tool call.
func (t *ChildrenTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	children, err := t.tr.GetChildren(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(renderMetadataList(children,
		fmt.Sprintf("%s has no children.", id))), nil
}
