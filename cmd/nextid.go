package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pcanham/gantry/internal/vault"
)

var nextIDCmd = &cobra.Command{
	Use:   "next-id <type>",
	Short: "Allocate the next free identifier for an entity type",
	Long: "Scans the active and archive trees for the given type (milestone,\n" +
		"story, task, decision, document) and prints the next unused identifier.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := vault.ParseType(args[0])
		if err != nil {
			return err
		}
		tr, _, cleanup, err := openTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		id, err := tr.NextID(typ)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nextIDCmd)
}
