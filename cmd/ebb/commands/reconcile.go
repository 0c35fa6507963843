package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/ebb/internal/core/domain"
)

func (c *CLI) newReconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare two sources over their date overlap and report divergences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			tagA, _ := cmd.Flags().GetString("source-a")
			tagB, _ := cmd.Flags().GetString("source-b")
			repair, _ := cmd.Flags().GetBool("repair")
			authoritative, _ := cmd.Flags().GetString("authoritative")
			entitiesArg, _ := cmd.Flags().GetString("entities")

			entities, err := readEntities(entitiesArg)
			if err != nil {
				return err
			}

			outcome, err := c.app.Reconcile(cmd.Context(), configPath, tagA, tagB, repair, authoritative, entities)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			report := outcome.Report
			fmt.Fprintf(out, "reconcile %s: %s vs %s, %d divergences (report: %s)\n",
				report.RunID, report.SourceA, report.SourceB, len(report.Divergences), outcome.ReportPath)
			for _, div := range report.Divergences {
				fmt.Fprintf(out, "diverged: %s %s %s a=%v b=%v\n",
					div.Entity, div.Date, div.Field, div.A, div.B)
			}

			if outcome.Repair != nil {
				fmt.Fprintf(out, "repaired=%d invalidated=%d failed=%d\n",
					outcome.Repair.Repaired, outcome.Repair.Invalidated, len(outcome.Repair.Failures))
				for _, fail := range outcome.Repair.Failures {
					fmt.Fprintf(out, "repair failed: %s %s: %s\n", fail.Entity, fail.Date, fail.Reason)
				}
				if len(outcome.Repair.Failures) > 0 {
					return domain.ErrDivergence
				}
				return nil
			}

			if len(report.Divergences) > 0 {
				return domain.ErrDivergence
			}
			return nil
		},
	}
	cmd.Flags().String("source-a", "", "Tag of the first source")
	cmd.Flags().String("source-b", "", "Tag of the second source")
	cmd.Flags().Bool("repair", false, "Overwrite divergent rows with the authoritative source's values")
	cmd.Flags().String("authoritative", "", "Source tag to repair from (defaults to source-a)")
	cmd.Flags().String("entities", "all", `"all", or a path to a file with one entity code per line`)
	_ = cmd.MarkFlagRequired("source-a")
	_ = cmd.MarkFlagRequired("source-b")
	return cmd
}
