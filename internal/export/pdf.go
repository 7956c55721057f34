// Package export renders packing solutions into shareable file formats:
// PDF layout drawings, QR-coded box labels and Excel cut lists.
package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/cutopt/internal/model"
)

// boxColor represents an RGB fill color for a placed box.
type boxColor struct {
	R, G, B int
}

var boxColors = []boxColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	legendHeight = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// BoxLabel returns the display label of a box: its Data payload when that
// is a string, otherwise the box ID.
func BoxLabel(b model.Box) string {
	if s, ok := b.Data.(string); ok && s != "" {
		return s
	}
	return b.ID
}

// ExportPDF renders a packing solution as a PDF: one page per bin with
// the placed boxes, saw cuts and leftovers drawn to scale, followed by a
// summary page.
func ExportPDF(path string, sol *model.Solution, cfg model.Config) error {
	if sol == nil || len(sol.Bins) == 0 {
		return fmt.Errorf("no bins to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for _, bl := range sol.Bins {
		pdf.AddPage()
		renderBinPage(pdf, bl, cfg)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, sol, cfg)

	return pdf.OutputFileAndClose(path)
}

// renderBinPage draws a single bin layout on the current page.
func renderBinPage(pdf *fpdf.Fpdf, bl model.BinLayout, cfg model.Config) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Bin %d: %s (%.0f x %.0f mm)", bl.Bin.Index, bl.Bin.Type, bl.Bin.Length, bl.Bin.Width)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Boxes: %d | Cuts: %d (%.0f mm) | Efficiency: %.1f%%",
		len(bl.Placements), len(bl.Cuts), bl.CutLength, bl.Efficiency)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - legendHeight

	scale := math.Min(drawWidth/bl.Bin.Length, drawHeight/bl.Bin.Width)
	canvasW := bl.Bin.Length * scale
	canvasH := bl.Bin.Width * scale

	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	// Raw bin outline, wood colored.
	pdf.SetFillColor(210, 180, 140)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	// Trimmed interior. Placements and cuts are relative to it.
	inX := offsetX + cfg.Trim*scale
	inY := offsetY + cfg.Trim*scale
	if cfg.Trim > 0 {
		ul, uw := bl.Bin.Usable(cfg.Trim)
		pdf.SetDrawColor(160, 130, 90)
		pdf.SetLineWidth(0.2)
		pdf.Rect(inX, inY, ul*scale, uw*scale, "D")
	}

	// Leftovers as hatched light gray regions.
	for _, lo := range bl.Leftovers {
		lx := inX + lo.X*scale
		ly := inY + lo.Y*scale
		pdf.SetFillColor(235, 235, 235)
		pdf.SetDrawColor(180, 180, 180)
		pdf.SetLineWidth(0.2)
		pdf.Rect(lx, ly, lo.Length*scale, lo.Width*scale, "FD")
	}

	for i, p := range bl.Placements {
		col := boxColors[i%len(boxColors)]
		pw := p.PlacedLength() * scale
		ph := p.PlacedWidth() * scale
		px := inX + p.X*scale
		py := inY + p.Y*scale

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.3)
		pdf.Rect(px, py, pw, ph, "FD")

		if pw > 15 && ph > 8 {
			pdf.SetFont("Helvetica", "", labelFontSize(pw, ph))
			pdf.SetTextColor(0, 0, 0)

			label := BoxLabel(p.Box)
			dims := fmt.Sprintf("%.0fx%.0f", p.Box.Length, p.Box.Width)
			if p.Rotated {
				dims += " R"
			}

			labelW := pdf.GetStringWidth(label)
			dimsW := pdf.GetStringWidth(dims)
			if labelW < pw-2 {
				pdf.SetXY(px+(pw-labelW)/2, py+ph/2-4)
				pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
			}
			if ph > 14 && dimsW < pw-2 {
				pdf.SetXY(px+(pw-dimsW)/2, py+ph/2)
				pdf.CellFormat(dimsW, 4, dims, "", 0, "C", false, 0, "")
			}
		}
	}

	// Saw cuts in red; through cuts drawn heavier.
	for _, c := range bl.Cuts {
		pdf.SetDrawColor(200, 0, 0)
		if c.Through {
			pdf.SetLineWidth(0.4)
		} else {
			pdf.SetLineWidth(0.2)
		}
		x1 := inX + c.X*scale
		y1 := inY + c.Y*scale
		if c.Horizontal {
			pdf.Line(x1, y1, x1+c.Length*scale, y1)
		} else {
			pdf.Line(x1, y1, x1, y1+c.Length*scale)
		}
	}

	drawDimensionAnnotations(pdf, bl.Bin, scale, offsetX, offsetY, canvasW, canvasH)
	drawBoxLegend(pdf, bl, offsetY+canvasH+5)
}

// drawDimensionAnnotations adds the bin dimensions outside the rectangle.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, bin model.Bin, scale, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	lengthLabel := fmt.Sprintf("%.0f mm", bin.Length)
	lw := pdf.GetStringWidth(lengthLabel)
	pdf.SetXY(offsetX+(canvasW-lw)/2, offsetY+canvasH+1)
	pdf.CellFormat(lw, 4, lengthLabel, "", 0, "C", false, 0, "")

	widthLabel := fmt.Sprintf("%.0f mm", bin.Width)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	ww := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX-3-ww/2, offsetY+canvasH/2-2)
	pdf.CellFormat(ww, 4, widthLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawBoxLegend renders a compact legend of placed boxes below the bin.
func drawBoxLegend(pdf *fpdf.Fpdf, bl model.BinLayout, startY float64) {
	if len(bl.Placements) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Boxes placed:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for i, p := range bl.Placements {
		col := boxColors[i%len(boxColors)]
		label := fmt.Sprintf("%s (%.0fx%.0f)", BoxLabel(p.Box), p.Box.Length, p.Box.Width)
		if p.Rotated {
			label += " R"
		}
		labelW := pdf.GetStringWidth(label) + 6

		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

// renderSummaryPage draws the final page with overall statistics.
func renderSummaryPage(pdf *fpdf.Fpdf, sol *model.Solution, cfg model.Config) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Cut Optimization Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	summaryItems := []struct {
		label string
		value string
	}{
		{"Bins Used", fmt.Sprintf("%d", len(sol.Bins))},
		{"Overall Efficiency", fmt.Sprintf("%.1f%%", sol.Efficiency)},
		{"Boxes Placed", fmt.Sprintf("%d", sol.PlacedCount())},
		{"Unplaced Boxes", fmt.Sprintf("%d", len(sol.Unplaced))},
		{"Total Cuts", fmt.Sprintf("%d (%.0f mm)", sol.TotalCuts, sol.TotalCutLength)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Bin Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{20, 40, 50, 30, 35, 60}
	headers := []string{"Bin", "Type", "Dimensions", "Boxes", "Efficiency", "Cut Length"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, bl := range sol.Bins {
		xPos = marginLeft
		rowData := []string{
			fmt.Sprintf("%d", bl.Bin.Index),
			bl.Bin.Type.String(),
			fmt.Sprintf("%.0f x %.0f mm", bl.Bin.Length, bl.Bin.Width),
			fmt.Sprintf("%d", len(bl.Placements)),
			fmt.Sprintf("%.1f%%", bl.Efficiency),
			fmt.Sprintf("%.0f mm", bl.CutLength),
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	if len(sol.Unplaced) > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Unplaced Boxes", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, b := range sol.Unplaced {
			pdf.SetXY(marginLeft+5, y)
			text := fmt.Sprintf("- %s: %.0f x %.0f mm", BoxLabel(b), b.Length, b.Width)
			pdf.CellFormat(200, 5, text, "", 0, "L", false, 0, "")
			y += 5
		}
	}

	y += 8
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Saw Settings", "", 0, "L", false, 0, "")
	y += 9

	settingsItems := []struct {
		label string
		value string
	}{
		{"Kerf", fmt.Sprintf("%.1f mm", cfg.Kerf)},
		{"Edge Trim", fmt.Sprintf("%.1f mm", cfg.Trim)},
		{"Standard Bin", fmt.Sprintf("%.0f x %.0f mm", cfg.BaseLength, cfg.BaseWidth)},
		{"Optimization", cfg.Optimization.String()},
		{"Stacking", cfg.Stacking.String()},
	}

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range settingsItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(50, 5, item.label+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 5, item.value, "", 0, "L", false, 0, "")
		y += 5
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by cutopt - Guillotine Cut Optimizer", "", 0, "C", false, 0, "")
}

// labelFontSize returns a font size proportionate to the rectangle.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
