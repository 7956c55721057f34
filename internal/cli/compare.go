package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/piwi3910/cutopt/internal/engine"
	"github.com/piwi3910/cutopt/internal/model"
)

// compareCommand creates the compare command: run automatic what-if
// scenarios over the same input and show the results side by side.
func (c *CLI) compareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [file]",
		Short: "Run what-if scenarios and compare the results",
		Long: `Compare packs the same box list under several parameter variations
(optimization level, kerf, trim, stacking) and prints a side-by-side
table so you can see which setting changes actually pay off.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCompare(cmd, args[0])
		},
	}
	return cmd
}

func (c *CLI) runCompare(cmd *cobra.Command, path string) error {
	cfg, boxes, bins, err := loadUniverse(path, c.Logger)
	if err != nil {
		return err
	}

	scenarios := engine.BuildDefaultScenarios(cfg)
	c.Logger.Info("comparing scenarios", "count", len(scenarios), "boxes", len(boxes))

	prog := newProgress(c.Logger)
	results := engine.CompareScenarios(cmd.Context(), scenarios, boxes, bins)
	prog.done(fmt.Sprintf("Ran %d scenarios", len(results)))

	printScenarios(cmd.OutOrStdout(), results)
	return nil
}

// printScenarios renders the comparison table, flagging the most
// efficient successful scenario.
func printScenarios(w io.Writer, results []engine.ScenarioResult) {
	best := -1
	for i, r := range results {
		if r.Solution == nil {
			continue
		}
		if best < 0 || r.Efficiency > results[best].Efficiency {
			best = i
		}
	}

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Scenario\tBins\tEfficiency\tCuts\tUnplaced\tStatus\t")
	for i, r := range results {
		mark := ""
		if i == best {
			mark = "<- best"
		}
		if r.Solution == nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%s\t\n", r.Scenario.Name, r.Status)
			continue
		}
		status := "ok"
		if r.Status != model.StatusNone {
			status = r.Status.String()
		}
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%d\t%d\t%s\t%s\n",
			r.Scenario.Name, r.BinsUsed, r.Efficiency, r.TotalCuts, r.Unplaced, status, mark)
	}
	tw.Flush()
}
