package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pcanham/gantry/internal/tracker"
)

// ─── ArchiveTool ────────────────────────────────────────────────────────────

// ArchiveTool handles the vault_archive MCP tool.
type ArchiveTool struct {
	tr *tracker.Tracker
}

// NewArchiveTool creates an ArchiveTool with the given tracker.
func NewArchiveTool(tr *tracker.Tracker) *ArchiveTool {
	return &ArchiveTool{tr: tr}
}

// Definition returns the MCP tool definition for vault_archive.
func (t *ArchiveTool) Definition() mcp.Tool {
	return mcp.NewTool("vault_archive",
		mcp.WithDescription(
			"Move an entity into the archive tree. The entity must be in a terminal "+
				"status (Completed, Done, Accepted, Superseded, Approved, or Deprecated "+
				"depending on type) unless forced. An entity with children requires "+
				"cascade, which archives descendants first, leaves up.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Entity identifier to archive"),
		),
		mcp.WithBoolean("cascade",
			mcp.Description("Archive all descendants before the entity itself"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Bypass the terminal-status and has-children gates"),
		),
	)
}

// Handle processes the vault_archive tool call.
func (t *ArchiveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	archived, err := t.tr.MoveToArchive(id, tracker.ArchiveOptions{
		Cascade: boolArg(req, "cascade", false),
		Force:   boolArg(req, "force", false),
	})
	if err != nil {
		if len(archived) > 0 {
			// Partial cascade: report what moved before the failure.
			return mcp.NewToolResultError(fmt.Sprintf(
				"archive stopped after %s: %v", strings.Join(archived, ", "), err)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Archived %s", strings.Join(archived, ", "))), nil
}

// ─── RestoreTool ────────────────────────────────────────────────────────────

// RestoreTool handles the vault_restore MCP tool.
type RestoreTool struct {
	tr *tracker.Tracker
}

// NewRestoreTool creates a RestoreTool with the given tracker.
func NewRestoreTool(tr *tracker.Tracker) *RestoreTool {
	return &RestoreTool{tr: tr}
}

// Definition returns the MCP tool definition for vault_restore.
func (t *RestoreTool) Definition() mcp.Tool {
	return mcp.NewTool("vault_restore",
		mcp.WithDescription(
			"Move an archived entity back to its active directory. Restore is "+
				"single-entity: archived descendants stay archived, and the entity's "+
				"status is left untouched.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Archived entity identifier to restore"),
		),
	)
}

// Handle processes the vault_restore tool call.
func (t *RestoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	if err := t.tr.RestoreFromArchive(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Restored %s", id)), nil
}
