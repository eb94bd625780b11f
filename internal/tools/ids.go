package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pcanham/gantry/internal/tracker"
	"github.com/pcanham/gantry/internal/vault"
)

// ─── NextIDTool ─────────────────────────────────────────────────────────────

// NextIDTool handles the vault_next_id MCP tool.
type NextIDTool struct {
	tr *tracker.Tracker
}

// NewNextIDTool creates a NextIDTool with the given tracker.
func NewNextIDTool(tr *tracker.Tracker) *NextIDTool {
	return &NextIDTool{tr: tr}
}

// Definition returns the MCP tool definition for vault_next_id.
func (t *NextIDTool) Definition() mcp.Tool {
	return mcp.NewTool("vault_next_id",
		mcp.WithDescription(
			"Allocate the next free identifier for an entity type. Storage is "+
				"re-scanned on every call, including the archive tree, so an identifier "+
				"is never reused even after files were edited out of band.",
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Entity type: milestone, story, task, decision, document"),
		),
	)
}

// Handle processes the vault_next_id tool call.
func (t *NextIDTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typeName := req.GetString("type", "")
	if typeName == "" {
		return mcp.NewToolResultError("'type' is required"), nil
	}
	typ, err := vault.ParseType(typeName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := t.tr.NextID(typ)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(id), nil
}

// ─── DuplicateIDsTool ───────────────────────────────────────────────────────

// DuplicateIDsTool handles the vault_duplicate_ids MCP tool.
type DuplicateIDsTool struct {
	tr *tracker.Tracker
}

// NewDuplicateIDsTool creates a DuplicateIDsTool with the given tracker.
func NewDuplicateIDsTool(tr *tracker.Tracker) *DuplicateIDsTool {
	return &DuplicateIDsTool{tr: tr}
}

// Definition returns the MCP tool definition for vault_duplicate_ids.
func (t *DuplicateIDsTool) Definition() mcp.Tool {
	return mcp.NewTool("vault_duplicate_ids",
		mcp.WithDescription(
			"Report identifiers claimed by more than one file. The first path listed "+
				"is the canonical one the index resolves the identifier to.",
		),
	)
}

// Handle processes the vault_duplicate_ids tool call.
func (t *DuplicateIDsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dupes := t.tr.GetDuplicateIDs()
	if len(dupes) == 0 {
		return mcp.NewToolResultText("No duplicate identifiers."), nil
	}
	var b strings.Builder
	for _, d := range dupes {
		fmt.Fprintf(&b, "%s claimed by %d files:\n", d.ID, len(d.Paths))
		for i, p := range d.Paths {
			marker := "  "
			if i == 0 {
				marker = "* " // canonical
			}
			fmt.Fprintf(&b, "  %s%s\n", marker, p)
		}
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}
