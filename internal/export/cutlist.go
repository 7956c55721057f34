package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/cutopt/internal/model"
)

// ExportCutList writes an Excel workbook with the saw schedule: a summary
// sheet, the ordered cut sequence per bin, the box placements and the
// reusable leftovers.
func ExportCutList(path string, sol *model.Solution, cfg model.Config) error {
	if sol == nil || len(sol.Bins) == 0 {
		return fmt.Errorf("no bins to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), "Summary"); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	writeSummarySheet(f, sol, cfg)

	if err := writeCutsSheet(f, sol); err != nil {
		return err
	}
	if err := writeBoxesSheet(f, sol); err != nil {
		return err
	}
	if err := writeLeftoversSheet(f, sol); err != nil {
		return err
	}

	return f.SaveAs(path)
}

func writeSummarySheet(f *excelize.File, sol *model.Solution, cfg model.Config) {
	rows := [][]interface{}{
		{"Bins used", len(sol.Bins)},
		{"Boxes placed", sol.PlacedCount()},
		{"Unplaced boxes", len(sol.Unplaced)},
		{"Efficiency (%)", sol.Efficiency},
		{"Total cuts", sol.TotalCuts},
		{"Total cut length (mm)", sol.TotalCutLength},
		{},
		{"Kerf (mm)", cfg.Kerf},
		{"Trim (mm)", cfg.Trim},
		{"Standard bin (mm)", fmt.Sprintf("%.0f x %.0f", cfg.BaseLength, cfg.BaseWidth)},
		{"Optimization", cfg.Optimization.String()},
		{"Stacking", cfg.Stacking.String()},
	}
	writeRows(f, "Summary", rows)

	if len(sol.Warnings) > 0 {
		start := len(rows) + 2
		f.SetCellValue("Summary", cellRef(1, start), "Warnings")
		for i, w := range sol.Warnings {
			f.SetCellValue("Summary", cellRef(1, start+1+i), w)
		}
	}
}

func writeCutsSheet(f *excelize.File, sol *model.Solution) error {
	if _, err := f.NewSheet("Cuts"); err != nil {
		return fmt.Errorf("create cuts sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Bin", "Seq", "Axis", "Position (mm)", "Start (mm)", "Length (mm)", "Through", "Shared Setting"},
	}
	for _, bl := range sol.Bins {
		for i, c := range bl.Cuts {
			start := c.X
			if !c.Horizontal {
				start = c.Y
			}
			rows = append(rows, []interface{}{
				bl.Bin.Index, i + 1, c.Axis(), c.Position(), start, c.Length,
				boolCell(c.Through), boolCell(c.Together),
			})
		}
	}
	writeRows(f, "Cuts", rows)
	return nil
}

func writeBoxesSheet(f *excelize.File, sol *model.Solution) error {
	if _, err := f.NewSheet("Boxes"); err != nil {
		return fmt.Errorf("create boxes sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Bin", "Label", "Length (mm)", "Width (mm)", "X (mm)", "Y (mm)", "Rotated"},
	}
	for _, bl := range sol.Bins {
		for _, p := range bl.Placements {
			rows = append(rows, []interface{}{
				bl.Bin.Index, BoxLabel(p.Box), p.Box.Length, p.Box.Width,
				p.X, p.Y, boolCell(p.Rotated),
			})
		}
	}
	for _, b := range sol.Unplaced {
		rows = append(rows, []interface{}{
			"unplaced", BoxLabel(b), b.Length, b.Width, "", "", "",
		})
	}
	writeRows(f, "Boxes", rows)
	return nil
}

func writeLeftoversSheet(f *excelize.File, sol *model.Solution) error {
	if _, err := f.NewSheet("Leftovers"); err != nil {
		return fmt.Errorf("create leftovers sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Bin", "X (mm)", "Y (mm)", "Length (mm)", "Width (mm)", "Area (mm2)", "Usable Offcut"},
	}
	for _, o := range model.DetectOffcuts(sol) {
		rows = append(rows, []interface{}{
			o.BinIndex, o.X, o.Y, o.Length, o.Width, o.Area(), "yes",
		})
	}
	for _, bl := range sol.Bins {
		for _, lo := range bl.Leftovers {
			if lo.Length >= model.MinOffcutDimension && lo.Width >= model.MinOffcutDimension &&
				lo.Area() >= model.MinOffcutArea {
				continue // already listed as an offcut
			}
			rows = append(rows, []interface{}{
				bl.Bin.Index, lo.X, lo.Y, lo.Length, lo.Width, lo.Area(), "no",
			})
		}
	}
	writeRows(f, "Leftovers", rows)
	return nil
}

// writeRows fills a sheet from row-major data starting at A1.
func writeRows(f *excelize.File, sheet string, rows [][]interface{}) {
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			f.SetCellValue(sheet, cellRef(c+1, r+1), v)
		}
	}
}

func cellRef(col, row int) string {
	ref, _ := excelize.CoordinatesToCellName(col, row)
	return ref
}

func boolCell(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
