package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every record's relationships, cycles, and identifiers",
	Long: "Scans the vault and reports broken relationship targets, dependency\n" +
		"cycles, and identifiers claimed by more than one file. Exits non-zero\n" +
		"when any blocking problem is found.",
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, _, cleanup, err := openTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		failed := false

		issues := tr.ValidateAll()
		for _, issue := range issues {
			marker := "✗"
			if issue.Warning {
				marker = "!"
			} else {
				failed = true
			}
			fmt.Fprintf(os.Stderr, "%s %s\n", marker, issue)
		}

		for _, report := range tr.DetectCycles() {
			failed = true
			fmt.Fprintf(os.Stderr, "✗ dependency cycle: %s\n",
				strings.Join(report.Cycle.Path, " -> "))
			for _, s := range report.Suggestions {
				fmt.Fprintf(os.Stderr, "    consider removing %s -> %s\n", s.From, s.To)
			}
		}

		for _, d := range tr.GetDuplicateIDs() {
			failed = true
			fmt.Fprintf(os.Stderr, "✗ duplicate identifier %s:\n", d.ID)
			for i, p := range d.Paths {
				note := ""
				if i == 0 {
					note = " (canonical)"
				}
				fmt.Fprintf(os.Stderr, "    %s%s\n", p, note)
			}
		}

		if failed {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "✓ %d entities, no blocking problems\n", tr.Index().Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
