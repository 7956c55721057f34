package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/piwi3910/cutopt/internal/model"
)

// estimateCommand creates the estimate command: a quick area-based bin
// purchase estimate without running the packing search.
func (c *CLI) estimateCommand() *cobra.Command {
	var (
		waste   float64
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "estimate [file]",
		Short: "Estimate how many standard bins a box list needs",
		Long: `Estimate sums box areas (with a kerf allowance per box) against the
usable area of one standard bin. It is a pre-purchase ballpark, not a
packing: real layouts need more material than the area alone suggests,
so the advised count applies a waste percentage on top.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEstimate(cmd, args[0], waste, jsonOut)
		},
	}

	cmd.Flags().Float64Var(&waste, "waste", 15, "waste allowance percent on top of the exact count")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the estimate as JSON")

	return cmd
}

func (c *CLI) runEstimate(cmd *cobra.Command, path string, waste float64, jsonOut bool) error {
	cfg, boxes, _, err := loadUniverse(path, c.Logger)
	if err != nil {
		return err
	}
	if !cfg.HasBase() {
		return fmt.Errorf("no usable standard bin dimensions (%.0f x %.0f mm with %.0f mm trim)",
			cfg.BaseLength, cfg.BaseWidth, cfg.Trim)
	}

	est := model.EstimateBins(boxes, cfg, waste)

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(est)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Boxes:          %d\n", len(boxes))
	fmt.Fprintf(out, "Box area:       %.2f m2 (incl. kerf allowance)\n", est.TotalBoxArea/1e6)
	fmt.Fprintf(out, "Bin area:       %.2f m2 (%.0f x %.0f mm, %.0f mm trim)\n",
		est.BinArea/1e6, cfg.BaseLength, cfg.BaseWidth, cfg.Trim)
	fmt.Fprintf(out, "Exact:          %.2f bins\n", est.BinsExact)
	fmt.Fprintf(out, "Minimum:        %d bins\n", est.BinsMin)
	fmt.Fprintf(out, "Advised:        %d bins (+%.0f%% waste)\n", est.BinsAdvised, est.WastePercent)
	return nil
}
