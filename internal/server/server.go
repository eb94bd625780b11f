// Package server wires the vault components into an MCP server
// instance. This is the composition root: it opens the store, builds
// the index, runs the initial scan, starts the watch loop, and
// registers every tool. No vault logic lives here — only wiring.
package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/pcanham/gantry/internal/config"
	"github.com/pcanham/gantry/internal/index"
	"github.com/pcanham/gantry/internal/supervisor"
	"github.com/pcanham/gantry/internal/telemetry"
	"github.com/pcanham/gantry/internal/tools"
	"github.com/pcanham/gantry/internal/tracker"
	"github.com/pcanham/gantry/internal/vault"
)

// Version is set at build time via ldflags.
var Version = "dev"

func noop() {}

// New builds a fully wired MCP server: store opened at cfg.VaultRoot,
// index populated by an initial scan, watch loop running when
// cfg.Watch is set, and all tools registered against a shared tracker.
//
// The returned cleanup stops the watcher and closes the telemetry
// emitter; it is always non-nil and safe to call after a failed New.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*server.MCPServer, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := vault.Open(cfg.VaultRoot)
	if err != nil {
		return nil, noop, fmt.Errorf("opening vault at %s: %w", cfg.VaultRoot, err)
	}

	var emitter *telemetry.Emitter
	if cfg.Telemetry != "" {
		emitter, err = telemetry.NewEmitter(cfg.Telemetry)
		if err != nil {
			return nil, noop, fmt.Errorf("opening telemetry sink: %w", err)
		}
	}

	idx := index.New()
	sup := supervisor.New(store, idx, supervisor.Options{
		Debounce: cfg.Debounce(),
		Emitter:  emitter,
		Logger:   logger,
	})
	if err := sup.ScanVault(ctx); err != nil {
		emitter.Close()
		return nil, noop, fmt.Errorf("initial scan: %w", err)
	}

	cleanup := func() { emitter.Close() }
	if cfg.Watch {
		if err := sup.Start(); err != nil {
			emitter.Close()
			return nil, noop, fmt.Errorf("starting watcher: %w", err)
		}
		cleanup = func() {
			sup.Stop()
			emitter.Close()
		}
	}

	tr := tracker.New(store, idx, tracker.Options{Emitter: emitter, Logger: logger})

	s := server.NewMCPServer(
		"gantry",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)
	registerTools(s, tr)
	return s, cleanup, nil
}

// registerTools adds every vault tool to the server, sharing one
// tracker.
func registerTools(s *server.MCPServer, tr *tracker.Tracker) {
	getTool := tools.NewGetEntityTool(tr)
	s.AddTool(getTool.Definition(), getTool.Handle)

	listTool := tools.NewListEntitiesTool(tr)
	s.AddTool(listTool.Definition(), listTool.Handle)

	childrenTool := tools.NewChildrenTool(tr)
	s.AddTool(childrenTool.Definition(), childrenTool.Handle)

	writeTool := tools.NewWriteEntityTool(tr)
	s.AddTool(writeTool.Definition(), writeTool.Handle)

	depsTool := tools.NewDependenciesTool(tr)
	s.AddTool(depsTool.Definition(), depsTool.Handle)

	dependentsTool := tools.NewDependentsTool(tr)
	s.AddTool(dependentsTool.Definition(), dependentsTool.Handle)

	analyzeTool := tools.NewAnalyzeDependenciesTool(tr)
	s.AddTool(analyzeTool.Definition(), analyzeTool.Handle)

	archiveTool := tools.NewArchiveTool(tr)
	s.AddTool(archiveTool.Definition(), archiveTool.Handle)

	restoreTool := tools.NewRestoreTool(tr)
	s.AddTool(restoreTool.Definition(), restoreTool.Handle)

	nextIDTool := tools.NewNextIDTool(tr)
	s.AddTool(nextIDTool.Definition(), nextIDTool.Handle)

	duplicatesTool := tools.NewDuplicateIDsTool(tr)
	s.AddTool(duplicatesTool.Definition(), duplicatesTool.Handle)
}

// serverInstructions tells calling agents how to work with the vault.
func serverInstructions() string {
	return `Gantry indexes a project-tracking vault of markdown records:
milestones (M-), stories (S-), tasks (T-), decisions (DEC-), and
documents (DOC-), each a single file with YAML front-matter.

Workflow:
- vault_next_id allocates an identifier before creating a record.
- vault_write_entity creates or updates a record; writes that would
  close a dependency cycle are rejected with the cycle path.
- vault_list_entities / vault_get_entity / vault_get_children browse
  the hierarchy; vault_get_dependencies and vault_get_dependents walk
  the depends_on graph in either direction.
- vault_analyze_dependencies finds redundant direct dependencies;
  pass apply=true to remove them.
- vault_archive moves completed entities into the archive tree
  (cascade archives children first); vault_restore brings one back.
- vault_duplicate_ids lists identifiers claimed by more than one file.

The index follows edits made directly to the files, so records may
change between calls.`
}
