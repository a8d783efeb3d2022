package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/redlinehq/redline/internal/guideline"
)

var guidelinesCmd = &cobra.Command{
	Use:   "guidelines",
	Short: "Inspect the project's guideline documents",
}

var guidelinesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the resolved guidelines, one section per document",
	RunE: func(cmd *cobra.Command, args []string) error {
		sets, err := resolveProjectGuidelines()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		for _, set := range sets {
			fmt.Fprintf(os.Stdout, "%s (%d guideline(s))\n", set.Name, set.Len())
			for _, g := range set.Guidelines {
				fmt.Fprintf(os.Stdout, "  %-40s %s\n", g.ID, g.Description)
			}
			fmt.Fprintln(os.Stdout)
		}
		return nil
	},
}

var guidelinesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the guideline documents without running a review",
	RunE: func(cmd *cobra.Command, args []string) error {
		sets, err := resolveProjectGuidelines()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		total := len(guideline.Union(sets))
		fmt.Fprintf(os.Stdout, "OK: %d document(s), %d distinct guideline(s)\n", len(sets), total)
		return nil
	},
}

func resolveProjectGuidelines() ([]guideline.Set, error) {
	sources, err := guideline.LoadDir(guideline.DocumentDir)
	if err != nil {
		return nil, err
	}
	return guideline.Resolve(sources)
}

func init() {
	guidelinesCmd.AddCommand(guidelinesListCmd)
	guidelinesCmd.AddCommand(guidelinesCheckCmd)
}
