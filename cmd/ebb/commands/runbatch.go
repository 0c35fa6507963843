package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/ebb/internal/core/domain"
	"go.trai.ch/zerr"
)

func (c *CLI) newRunBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run-batch",
		Short: "Update the derived-series cache for one tier and parameter set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			tier, _ := cmd.Flags().GetString("tier")
			params, _ := cmd.Flags().GetString("params")
			entitiesArg, _ := cmd.Flags().GetString("entities")

			entities, err := readEntities(entitiesArg)
			if err != nil {
				return err
			}

			report, err := c.app.RunBatch(cmd.Context(), configPath, tier, params, entities)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: tier=%s params=%s entities=%d\n",
				report.RunID, report.Tier, report.ParameterSet, len(report.Results))
			fmt.Fprintf(out, "valid_noop=%d incremental=%d full=%d failed=%d skipped=%d\n",
				report.Counts.ValidNoop, report.Counts.Incremental, report.Counts.Full,
				report.Counts.Failed, report.Counts.Skipped)
			for _, res := range report.Results {
				if res.Outcome == domain.OutcomeFailed {
					fmt.Fprintf(out, "failed: %s: %s\n", res.Entity, res.Error)
				}
			}

			if report.Counts.Failed > 0 || report.Counts.Skipped > 0 {
				return domain.ErrBatchIncomplete
			}
			return nil
		},
	}
	cmd.Flags().String("tier", "", "Tier to update")
	cmd.Flags().String("params", "", "Parameter set to compute")
	cmd.Flags().String("entities", "all", `"all", or a path to a file with one entity code per line`)
	_ = cmd.MarkFlagRequired("tier")
	_ = cmd.MarkFlagRequired("params")
	return cmd
}

// readEntities resolves the --entities flag: "all" means every entity in the
// source, anything else is a file with one entity code per line.
func readEntities(arg string) ([]string, error) {
	if arg == "" || arg == "all" {
		return nil, nil
	}

	f, err := os.Open(arg) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfig, "failed to open entities file"), "path", arg)
	}
	defer func() { _ = f.Close() }()

	var entities []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entities = append(entities, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfig, "failed to read entities file"), "path", arg)
	}
	if len(entities) == 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfig, "entities file is empty"), "path", arg)
	}
	return entities, nil
}
