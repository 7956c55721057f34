// Package importer reads box lists from CSV, Excel, DXF and TOML job
// files. CSV import detects the delimiter automatically and maps columns
// by case-insensitive header names.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/piwi3910/cutopt/internal/model"
	"github.com/xuri/excelize/v2"
)

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Boxes    []model.Box
	Errors   []string
	Warnings []string
}

// ColumnMapping maps semantic column roles to their indices in the data.
type ColumnMapping struct {
	Label     int
	Length    int
	Width     int
	Quantity  int
	Rotatable int
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"label":     {"label", "name", "part", "part name", "description", "desc", "piece", "item"},
	"length":    {"length", "len", "l", "x"},
	"width":     {"width", "w", "y"},
	"quantity":  {"quantity", "qty", "count", "num", "amount", "pcs", "pieces"},
	"rotatable": {"rotatable", "rotate", "rot", "grain", "grain direction", "orientation"},
}

// DetectCSVDelimiter determines the most likely CSV delimiter by trying
// comma, semicolon, tab and pipe. The delimiter producing the most
// consistent multi-column layout wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Matching is case-insensitive against the known aliases of each role.
// Returns a default positional mapping and false when no header is found.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{
		Label:     -1,
		Length:    -1,
		Width:     -1,
		Quantity:  -1,
		Rotatable: -1,
	}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				switch role {
				case "label":
					if mapping.Label == -1 {
						mapping.Label = i
					}
				case "length":
					if mapping.Length == -1 {
						mapping.Length = i
					}
				case "width":
					if mapping.Width == -1 {
						mapping.Width = i
					}
				case "quantity":
					if mapping.Quantity == -1 {
						mapping.Quantity = i
					}
				case "rotatable":
					if mapping.Rotatable == -1 {
						mapping.Rotatable = i
					}
				}
			}
		}
	}

	if !isHeader {
		// Positional fallback: Label, Length, Width, Quantity, Rotatable.
		return ColumnMapping{
			Label:     0,
			Length:    1,
			Width:     2,
			Quantity:  3,
			Rotatable: 4,
		}, false
	}

	return mapping, true
}

// parseRotatable converts a rotation or grain cell into a rotation flag.
// A grain direction pins the box orientation, so it maps to false.
// Returns the flag and whether the string was recognized.
func parseRotatable(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yes", "y", "true", "1", "none", "-":
		return true, true
	case "no", "n", "false", "0", "horizontal", "h", "vertical", "v", "fixed":
		return false, true
	default:
		return true, false
	}
}

// getCell safely retrieves a cell value from a row by column index.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseRow extracts the boxes described by one row using the given column
// mapping; the quantity column expands into that many identical boxes.
// Returns the boxes, any error message, and any warning message.
func parseRow(row []string, mapping ColumnMapping, rowLabel string, boxCount int) ([]model.Box, string, string) {
	label := getCell(row, mapping.Label)
	if label == "" {
		label = fmt.Sprintf("Box %d", boxCount+1)
	}

	lengthStr := getCell(row, mapping.Length)
	if lengthStr == "" {
		return nil, fmt.Sprintf("%s: Missing length value", rowLabel), ""
	}
	length, err := strconv.ParseFloat(lengthStr, 64)
	if err != nil {
		return nil, fmt.Sprintf("%s: Invalid length '%s'", rowLabel, lengthStr), ""
	}

	widthStr := getCell(row, mapping.Width)
	if widthStr == "" {
		return nil, fmt.Sprintf("%s: Missing width value", rowLabel), ""
	}
	width, err := strconv.ParseFloat(widthStr, 64)
	if err != nil {
		return nil, fmt.Sprintf("%s: Invalid width '%s'", rowLabel, widthStr), ""
	}

	qty := 1
	if qtyStr := getCell(row, mapping.Quantity); qtyStr != "" {
		qty, err = strconv.Atoi(qtyStr)
		if err != nil {
			return nil, fmt.Sprintf("%s: Invalid quantity '%s'", rowLabel, qtyStr), ""
		}
	}

	if length <= 0 || width <= 0 || qty <= 0 {
		return nil, fmt.Sprintf("%s: Length, width, and quantity must be positive", rowLabel), ""
	}

	rotatable := true
	var warning string
	if rotStr := getCell(row, mapping.Rotatable); rotStr != "" {
		var ok bool
		rotatable, ok = parseRotatable(rotStr)
		if !ok {
			warning = fmt.Sprintf("%s: Unknown rotation value '%s', defaulting to rotatable", rowLabel, rotStr)
		}
	}

	boxes := make([]model.Box, 0, qty)
	for i := 0; i < qty; i++ {
		boxes = append(boxes, model.NewBox(length, width, rotatable, label))
	}
	return boxes, "", warning
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportCSV imports boxes from a CSV file. It detects the delimiter and
// maps columns by header names; comma, semicolon, tab and pipe work.
func ImportCSV(path string) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		result.Warnings = append(result.Warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line", result.Warnings)
}

// ImportCSVFromReader imports boxes from a CSV reader with a known
// delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	result := ImportResult{}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line", nil)
}

// ImportExcel imports boxes from the first sheet of an Excel file,
// auto-detecting the column mapping from headers.
func ImportExcel(path string) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "Sheet is empty")
		return result
	}

	return importFromRows(rows, "Row", nil)
}

// importFromRows is the shared import logic for CSV and Excel data.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{
		Warnings: initialWarnings,
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		missing := []string{}
		if mapping.Length == -1 {
			missing = append(missing, "Length")
		}
		if mapping.Width == -1 {
			missing = append(missing, "Width")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) >= 3 {
		if _, err := strconv.ParseFloat(strings.TrimSpace(rows[0][1]), 64); err != nil {
			// First column after the label is not numeric, so this is
			// likely an unrecognized header. Skip it, keep positional
			// mapping for the rest.
			startRow = 1
			result.Warnings = append(result.Warnings, "Detected header row, skipping")
		}
	}

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		boxes, errMsg, warning := parseRow(row, mapping, rowLabel, len(result.Boxes))

		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}

		result.Boxes = append(result.Boxes, boxes...)
	}

	return result
}
