package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pcanham/gantry/internal/tracker"
)

var (
	archiveCascade bool
	archiveForce   bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Move a completed entity into the archive tree",
	Long: "Relocates an entity's file under archive/. The entity must be in a\n" +
		"terminal status for its type unless --force is given; an entity with\n" +
		"children needs --cascade, which archives descendants first.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, _, cleanup, err := openTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		archived, err := tr.MoveToArchive(args[0], tracker.ArchiveOptions{
			Cascade: archiveCascade,
			Force:   archiveForce,
		})
		if len(archived) > 0 {
			fmt.Fprintf(os.Stderr, "archived %s\n", strings.Join(archived, ", "))
		}
		return err
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Move an archived entity back to its active directory",
	Long: "Restores a single entity from the archive tree. Archived descendants\n" +
		"stay archived and the entity's status is left untouched.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, _, cleanup, err := openTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := tr.RestoreFromArchive(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "restored %s\n", args[0])
		return nil
	},
}

func init() {
	archiveCmd.Flags().BoolVar(&archiveCascade, "cascade", false, "archive all descendants first")
	archiveCmd.Flags().BoolVar(&archiveForce, "force", false, "bypass terminal-status and children gates")
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(restoreCmd)
}
