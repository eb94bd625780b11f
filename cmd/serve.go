package cmd

import (
	"context"
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/pcanham/gantry/internal/config"
	"github.com/pcanham/gantry/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	Long: "Scans the vault, starts the filesystem watcher, and serves the vault\n" +
		"tools over the MCP stdio transport. Logs go to stderr; stdout carries\n" +
		"the protocol.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger := newLogger(cfg)

		s, cleanup, err := server.New(context.Background(), cfg, logger)
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}
		defer cleanup()

		logger.Info("serving vault over stdio",
			"vault", cfg.VaultRoot, "watch", cfg.Watch)
		return mcpserver.ServeStdio(s)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
