// Package tools implements the MCP tool handlers exposed to calling
// agents. Each tool is a struct with the tracker injected via its
// constructor; Definition() returns the mcp.Tool schema and Handle()
// processes the request. Tools translate arguments into tracker calls
// and render plain-text results — no graph or lifecycle logic lives
// here.
package tools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pcanham/gantry/internal/index"
)

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// listArg extracts a string-array argument from a tool request. JSON
// arrays arrive as []any; anything else yields nil.
func listArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// renderMetadata formats one metadata row for list-style tool output.
func renderMetadata(m index.Metadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  [%s] %s", m.ID, m.Status, m.Title)
	if m.Workstream != "" {
		fmt.Fprintf(&b, "  (%s)", m.Workstream)
	}
	if m.Archived {
		b.WriteString("  [archived]")
	}
	return b.String()
}

// renderMetadataList formats a set of metadata rows, one per line, with
// a fallback message for empty results.
func renderMetadataList(items []index.Metadata, empty string) string {
	if len(items) == 0 {
		return empty
	}
	lines := make([]string, 0, len(items))
	for _, m := range items {
		lines = append(lines, renderMetadata(m))
	}
	return strings.Join(lines, "\n")
}
