package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/piwi3910/cutopt/internal/engine"
	"github.com/piwi3910/cutopt/internal/export"
	"github.com/piwi3910/cutopt/internal/inventory"
	"github.com/piwi3910/cutopt/internal/model"
)

// packOpts holds the command-line flags for the pack command.
type packOpts struct {
	kerf         float64
	trim         float64
	baseLength   float64
	baseWidth    float64
	rotate       bool
	optimization string
	stacking     string
	timeout      time.Duration

	jsonOut     bool
	offcuts     bool
	pdfPath     string
	labelsPath  string
	listPath    string
	invPath     string
	saveOffcuts bool
}

// packCommand creates the pack command: load an input, run the optimizer
// and print or export the winning layout.
func (c *CLI) packCommand() *cobra.Command {
	var opts packOpts

	cmd := &cobra.Command{
		Use:   "pack [file]",
		Short: "Pack a box list onto bins and report the best layout",
		Long: `Pack reads boxes from a TOML job file, CSV, Excel sheet or DXF drawing,
runs the guillotine packing search and prints the resulting layout.
Flags override the corresponding job file settings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPack(cmd, args[0], &opts)
		},
	}

	cmd.Flags().Float64Var(&opts.kerf, "kerf", 0, "saw kerf in mm")
	cmd.Flags().Float64Var(&opts.trim, "trim", 0, "edge trim per bin side in mm")
	cmd.Flags().Float64Var(&opts.baseLength, "base-length", 0, "standard bin length in mm (0 disables synthesis)")
	cmd.Flags().Float64Var(&opts.baseWidth, "base-width", 0, "standard bin width in mm (0 disables synthesis)")
	cmd.Flags().BoolVar(&opts.rotate, "rotate", true, "allow 90 degree rotation")
	cmd.Flags().StringVar(&opts.optimization, "optimization", "", "optimization level: medium (default), advanced")
	cmd.Flags().StringVar(&opts.stacking, "stacking", "", "stacking preference: none (default), length, width, all")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "search time limit (0 keeps the job/default setting)")

	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the solution as JSON")
	cmd.Flags().BoolVar(&opts.offcuts, "offcuts", false, "list reusable offcuts")
	cmd.Flags().StringVar(&opts.pdfPath, "pdf", "", "write a PDF layout drawing to this path")
	cmd.Flags().StringVar(&opts.labelsPath, "labels", "", "write QR-coded box labels to this path")
	cmd.Flags().StringVar(&opts.listPath, "cutlist", "", "write an Excel cut list to this path")
	cmd.Flags().StringVar(&opts.invPath, "inventory", "", "offcut inventory file to draw stock from")
	cmd.Flags().BoolVar(&opts.saveOffcuts, "save-offcuts", false, "store this run's reusable offcuts in the inventory")

	return cmd
}

// applyOverrides merges explicitly set flags into the loaded config.
func (o *packOpts) applyOverrides(cmd *cobra.Command, cfg model.Config) (model.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("kerf") {
		cfg.Kerf = o.kerf
	}
	if flags.Changed("trim") {
		cfg.Trim = o.trim
	}
	if flags.Changed("base-length") {
		cfg.BaseLength = o.baseLength
	}
	if flags.Changed("base-width") {
		cfg.BaseWidth = o.baseWidth
	}
	if flags.Changed("rotate") {
		cfg.Rotatable = o.rotate
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.timeout
	}
	if o.optimization != "" {
		level, err := model.ParseOptimizationLevel(o.optimization)
		if err != nil {
			return cfg, err
		}
		cfg.Optimization = level
	}
	if o.stacking != "" {
		pref, err := model.ParseStackingPref(o.stacking)
		if err != nil {
			return cfg, err
		}
		cfg.Stacking = pref
	}
	return cfg, nil
}

func (c *CLI) runPack(cmd *cobra.Command, path string, opts *packOpts) error {
	cfg, boxes, bins, err := loadUniverse(path, c.Logger)
	if err != nil {
		return err
	}
	cfg, err = opts.applyOverrides(cmd, cfg)
	if err != nil {
		return err
	}
	cfg.Debug = c.Logger.GetLevel() <= LogDebug

	var inv *inventory.Inventory
	invPath := opts.invPath
	if invPath == "" && opts.saveOffcuts {
		invPath, err = inventory.DefaultPath()
		if err != nil {
			return err
		}
	}
	if invPath != "" {
		inv, err = inventory.Load(invPath)
		if err != nil {
			return fmt.Errorf("load inventory: %w", err)
		}
		if stock := inv.Bins(); len(stock) > 0 {
			c.Logger.Info("drawing offcuts from inventory", "count", len(stock), "path", invPath)
			bins = append(bins, stock...)
		}
	}

	c.Logger.Info("packing", "boxes", len(boxes), "bins", len(bins),
		"optimization", cfg.Optimization, "stacking", cfg.Stacking)

	prog := newProgress(c.Logger)
	eng := engine.NewPackEngine(cfg, boxes, bins)
	eng.SetLogger(c.Logger)

	sol, err := eng.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("packing failed (%s): %w", engine.StatusOf(err), err)
	}
	prog.done(fmt.Sprintf("Packed %d boxes onto %d bins", sol.PlacedCount(), len(sol.Bins)))

	for _, w := range sol.Warnings {
		c.Logger.Warn(w)
	}

	if inv != nil {
		if removed := inv.Consume(sol); removed > 0 {
			c.Logger.Info("consumed inventory offcuts", "count", removed)
		}
		if opts.saveOffcuts {
			found := model.DetectOffcuts(sol)
			inv.Add(found)
			c.Logger.Info("stored reusable offcuts", "count", len(found))
		}
		if err := inventory.Save(invPath, inv); err != nil {
			return fmt.Errorf("save inventory: %w", err)
		}
	}

	if opts.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(sol); err != nil {
			return err
		}
	} else {
		printSolution(cmd.OutOrStdout(), sol)
	}

	if opts.offcuts {
		printOffcuts(cmd.OutOrStdout(), sol)
	}

	if opts.pdfPath != "" {
		if err := export.ExportPDF(opts.pdfPath, sol, cfg); err != nil {
			return fmt.Errorf("pdf export: %w", err)
		}
		c.Logger.Info("wrote layout drawing", "path", opts.pdfPath)
	}
	if opts.labelsPath != "" {
		if err := export.ExportLabels(opts.labelsPath, sol); err != nil {
			return fmt.Errorf("label export: %w", err)
		}
		c.Logger.Info("wrote box labels", "path", opts.labelsPath)
	}
	if opts.listPath != "" {
		if err := export.ExportCutList(opts.listPath, sol, cfg); err != nil {
			return fmt.Errorf("cut list export: %w", err)
		}
		c.Logger.Info("wrote cut list", "path", opts.listPath)
	}

	return nil
}

// printSolution writes a human-readable layout report.
func printSolution(w io.Writer, sol *model.Solution) {
	fmt.Fprintf(w, "Efficiency %.1f%% | %d cuts, %.0f mm total | l-measure %.3f\n\n",
		sol.Efficiency, sol.TotalCuts, sol.TotalCutLength, sol.LMeasure)

	for _, bl := range sol.Bins {
		fmt.Fprintf(w, "Bin %d (%s, %.0f x %.0f mm): %d boxes, %.1f%% used\n",
			bl.Bin.Index, bl.Bin.Type, bl.Bin.Length, bl.Bin.Width, len(bl.Placements), bl.Efficiency)

		tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  Box\tSize\tPosition\tRotated")
		for _, p := range bl.Placements {
			rotated := ""
			if p.Rotated {
				rotated = "yes"
			}
			fmt.Fprintf(tw, "  %s\t%.0f x %.0f\t(%.0f, %.0f)\t%s\n",
				export.BoxLabel(p.Box), p.Box.Length, p.Box.Width, p.X, p.Y, rotated)
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	if len(sol.Unplaced) > 0 {
		fmt.Fprintf(w, "Unplaced boxes (%d):\n", len(sol.Unplaced))
		for _, b := range sol.Unplaced {
			fmt.Fprintf(w, "  %s: %.0f x %.0f mm\n", export.BoxLabel(b), b.Length, b.Width)
		}
		fmt.Fprintln(w)
	}
	if len(sol.UnusedBins) > 0 {
		fmt.Fprintf(w, "Unused bins (%d):\n", len(sol.UnusedBins))
		for _, bin := range sol.UnusedBins {
			fmt.Fprintf(w, "  %s: %.0f x %.0f mm\n", bin.Type, bin.Length, bin.Width)
		}
		fmt.Fprintln(w)
	}
}

// printOffcuts lists the remnants worth keeping for a later run.
func printOffcuts(w io.Writer, sol *model.Solution) {
	offcuts := model.DetectOffcuts(sol)
	if len(offcuts) == 0 {
		fmt.Fprintln(w, "No reusable offcuts.")
		return
	}
	fmt.Fprintf(w, "Reusable offcuts (%d):\n", len(offcuts))
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  Bin\tSize\tPosition\tArea")
	for _, o := range offcuts {
		fmt.Fprintf(tw, "  %d\t%.0f x %.0f\t(%.0f, %.0f)\t%.0f mm2\n",
			o.BinIndex, o.Length, o.Width, o.X, o.Y, o.Area())
	}
	tw.Flush()
}
