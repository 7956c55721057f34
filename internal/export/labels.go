package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/cutopt/internal/model"
)

// LabelInfo holds the data encoded into each box label's QR code.
type LabelInfo struct {
	BoxLabel string  `json:"label"`
	BoxID    string  `json:"id"`
	Length   float64 `json:"length_mm"`
	Width    float64 `json:"width_mm"`
	BinIndex int     `json:"bin"`
	BinType  string  `json:"bin_type"`
	Rotated  bool    `json:"rotated"`
	X        float64 `json:"x_mm"`
	Y        float64 `json:"y_mm"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns,
// 10 rows per US Letter page).
const (
	labelMarginTop  = 12.7 // mm
	labelMarginLeft = 4.8  // mm
	labelWidth      = 66.7 // mm per label
	labelHeight     = 25.4 // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// ExportLabels generates a PDF of QR-coded labels, one per placed box.
// Each label carries the box name, dimensions, bin and position; the QR
// code encodes the same data as JSON.
func ExportLabels(path string, sol *model.Solution) error {
	if sol == nil || len(sol.Bins) == 0 {
		return fmt.Errorf("no bins to generate labels for")
	}

	labels := CollectLabelInfos(sol)
	if len(labels) == 0 {
		return fmt.Errorf("no boxes placed to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, label, i); err != nil {
			return fmt.Errorf("failed to render label for %q: %w", label.BoxLabel, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, info LabelInfo, seq int) error {
	// Light border as a cutting guide.
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_%s_%d", info.BoxID, seq)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)

	boxLabel := info.BoxLabel
	if pdf.GetStringWidth(boxLabel) > textW {
		for len(boxLabel) > 0 && pdf.GetStringWidth(boxLabel+"...") > textW {
			boxLabel = boxLabel[:len(boxLabel)-1]
		}
		boxLabel += "..."
	}
	pdf.CellFormat(textW, 4.5, boxLabel, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	dims := fmt.Sprintf("%.0f x %.0f mm", info.Length, info.Width)
	pdf.CellFormat(textW, 3.5, dims, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+9)
	binInfo := fmt.Sprintf("Bin %d @ (%.0f, %.0f)", info.BinIndex, info.X, info.Y)
	pdf.CellFormat(textW, 3, binInfo, "", 1, "L", false, 0, "")

	if info.Rotated {
		pdf.SetXY(textX, y+labelPadding+12.5)
		pdf.SetFont("Helvetica", "I", 6)
		pdf.SetTextColor(150, 100, 0)
		pdf.CellFormat(textW, 3, "Rotated 90\xb0", "", 0, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)
	return nil
}

// CollectLabelInfos extracts label data from a solution in bin order.
func CollectLabelInfos(sol *model.Solution) []LabelInfo {
	var labels []LabelInfo
	for _, bl := range sol.Bins {
		for _, p := range bl.Placements {
			labels = append(labels, LabelInfo{
				BoxLabel: BoxLabel(p.Box),
				BoxID:    p.Box.ID,
				Length:   p.Box.Length,
				Width:    p.Box.Width,
				BinIndex: bl.Bin.Index,
				BinType:  bl.Bin.Type.String(),
				Rotated:  p.Rotated,
				X:        p.X,
				Y:        p.Y,
			})
		}
	}
	return labels
}
