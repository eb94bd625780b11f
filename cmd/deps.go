package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var depsApply bool

var depsCmd = &cobra.Command{
	Use:   "deps <id>",
	Short: "Analyze an entity's dependencies for redundant edges",
	Long: "Reports direct dependencies that are already reachable through another\n" +
		"direct dependency. With --apply, rewrites the record with the redundant\n" +
		"edges removed.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, _, cleanup, err := openTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()
		id := args[0]

		if depsApply {
			reduced, reduction, err := tr.ApplyReduction(id)
			if err != nil {
				return err
			}
			if reduced == nil {
				fmt.Fprintf(os.Stderr, "%s has no redundant dependencies\n", id)
				return nil
			}
			fmt.Fprintf(os.Stderr, "removed %d redundant dependencies from %s\n",
				len(reduction.Redundant), id)
			return nil
		}

		reduction, err := tr.AnalyzeDependencies(id)
		if err != nil {
			return err
		}
		if len(reduction.Redundant) == 0 {
			fmt.Fprintf(os.Stderr, "%s has no redundant dependencies\n", id)
			return nil
		}
		for _, red := range reduction.Redundant {
			fmt.Printf("%s redundant (reachable via %s)\n", red.ID, red.Via)
		}
		return nil
	},
}

func init() {
	depsCmd.Flags().BoolVar(&depsApply, "apply", false, "persist the reduction")
	rootCmd.AddCommand(depsCmd)
}
