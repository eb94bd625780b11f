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

// WriteEntityTool handles the vault_write_entity MCP tool.
type WriteEntityTool struct {
	tr *tracker.Tracker
}

// NewWriteEntityTool creates a WriteEntityTool with the given tracker.
func NewWriteEntityTool(tr *tracker.Tracker) *WriteEntityTool {
	return &WriteEntityTool{tr: tr}
}

// Definition returns the MCP tool definition for vault_write_entity.
func (t *WriteEntityTool) Definition() mcp.Tool {
	return mcp.NewTool("vault_write_entity",
		mcp.WithDescription(
			"Create or update a tracked entity. The record is validated against the "+
				"relationship rules and the dependency graph before anything touches disk; "+
				"a write that would close a dependency cycle is rejected with the cycle path "+
				"and ranked suggestions for which edge to break.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Entity identifier, e.g. T-042. Use vault_next_id to allocate one."),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Entity title"),
		),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("Status value from the entity type's allowed set, e.g. 'In Progress'"),
		),
		mcp.WithString("workstream",
			mcp.Description("Workstream label"),
		),
		mcp.WithString("parent",
			mcp.Description("Parent identifier (stories point at milestones, tasks at stories)"),
		),
		mcp.WithArray("depends_on",
			mcp.Description("Identifiers this entity depends on"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("blocked_by",
			mcp.Description("Identifiers currently blocking this entity"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("implements",
			mcp.Description("Decision or story identifiers this entity implements"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("enables",
			mcp.Description("Identifiers this entity enables"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("implemented_by",
			mcp.Description("Identifiers that implement this entity"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("supersedes",
			mcp.Description("Identifier of the decision this one supersedes"),
		),
		mcp.WithString("body",
			mcp.Description("Markdown body below the front-matter. Omit to keep the existing body on update."),
		),
	)
}

// Handle processes the vault_write_entity tool call.
func (t *WriteEntityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	e := &vault.Entity{
		ID:            id,
		Title:         req.GetString("title", ""),
		Status:        req.GetString("status", ""),
		Workstream:    req.GetString("workstream", ""),
		Parent:        req.GetString("parent", ""),
		DependsOn:     listArg(req, "depends_on"),
		BlockedBy:     listArg(req, "blocked_by"),
		Implements:    listArg(req, "implements"),
		Enables:       listArg(req, "enables"),
		ImplementedBy: listArg(req, "implemented_by"),
		Supersedes:    req.GetString("supersedes", ""),
		Body:          req.GetString("body", ""),
	}

	// Updates keep the original creation time and, when no body was
	// supplied, the existing body.
	if prev, err := t.tr.GetEntity(id); err == nil {
		e.Created = prev.Created
		e.Archived = prev.Archived
		e.ArchivedAt = prev.ArchivedAt
		if _, bodySet := req.GetArguments()["body"]; !bodySet {
			e.Body = prev.Body
		}
	}

	path, err := t.tr.WriteEntity(e)
	if err != nil {
		var cerr *tracker.CycleError
		if errors.As(err, &cerr) {
			return mcp.NewToolResultError(renderCycleError(cerr)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Wrote %s to %s", id, path)), nil
}

// renderCycleError formats a rejected cycle with its break suggestions.
func renderCycleError(cerr *tracker.CycleError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rejected: dependency cycle %s\n", strings.Join(cerr.Path, " -> "))
	if len(cerr.Suggestions) > 0 {
		b.WriteString("Suggested edges to break, lowest-impact first:\n")
		for _, s := range cerr.Suggestions {
			fmt.Fprintf(&b, "  remove %s -> %s\n", s.From, s.To)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
