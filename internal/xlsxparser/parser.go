// =============================================================================
// Spanish Tax Forms - XLSX Parser Module
// =============================================================================
//
// This module reads the aggregated workbook variant of the tax form input.
// Each category lives on its own sheet:
//
//   intracomunitarias   key | base | vat     (Form 349)
//   oss                 key | base | vat     (Form 369, MOSS / VOES)
//   ioss                key | base | vat     (Form 369, IMPO)
//   periods             activity period      (optional, e.g. 2025Q3)
//
// The first row of each sheet is a header and is skipped. Sheet names are
// matched case-insensitively; sheets starting with "_" and unknown sheets are
// ignored. Cell values are read raw, so number formats applied in the
// workbook do not leak thousands separators into the amounts.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/spanish-tax-forms/internal/types"
)

// =============================================================================
// COLUMN CONFIGURATION
// =============================================================================

// Columns defines where each value sits on a data sheet (0-based).
type Columns struct {
	// KeyColumn holds the composite key. Default: 0 (Column A)
	KeyColumn int

	// BaseColumn holds the taxable base. Default: 1 (Column B)
	BaseColumn int

	// VATColumn holds the VAT amount. Default: 2 (Column C)
	VATColumn int

	// DataStartRow is the first data row (0-based). Default: 1 (Row 2)
	DataStartRow int
}

// DefaultColumns returns the default column configuration.
func DefaultColumns() Columns {
	return Columns{
		KeyColumn:    0, // Column A
		BaseColumn:   1, // Column B
		VATColumn:    2, // Column C
		DataStartRow: 1, // Row 2
	}
}

// PeriodsSheet is the optional sheet listing activity periods.
const PeriodsSheet = "periods"

// dataSheets are named after the category they hold.
var dataSheets = map[string]bool{
	types.CategoryIntracom: true,
	types.CategoryOSS:      true,
	types.CategoryIOSS:     true,
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a workbook into a dataset.
//
// PARAMETERS:
//   - path: The path to the XLSX file.
//
// RETURNS:
//   - The dataset built from every recognised sheet.
//   - Rows that could not be used, with sheet name and 1-based row number.
//   - An error if the workbook cannot be opened or a sheet cannot be read.
func Parse(path string) (*types.Dataset, []types.RowError, error) {
	return ParseWithColumns(path, DefaultColumns())
}

// ParseWithColumns is Parse with a custom column layout.
func ParseWithColumns(path string, columns Columns) (*types.Dataset, []types.RowError, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return parseWorkbook(f, filepath.Base(path), columns)
}

// ParseReader reads a workbook from an open stream.
func ParseReader(r io.Reader, source string) (*types.Dataset, []types.RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return parseWorkbook(f, source, DefaultColumns())
}

func parseWorkbook(f *excelize.File, source string, columns Columns) (*types.Dataset, []types.RowError, error) {
	builder := types.NewDatasetBuilder()
	var rowErrors []types.RowError

	for _, sheetName := range f.GetSheetList() {
		if strings.HasPrefix(sheetName, "_") {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(sheetName))
		isData := dataSheets[name]
		if !isData && name != PeriodsSheet {
			continue
		}

		rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read sheet '%s': %w", sheetName, err)
		}

		for i := columns.DataStartRow; i < len(rows); i++ {
			row := rows[i]
			if isRowEmpty(row) {
				continue
			}

			if !isData {
				builder.AddPeriod(cell(row, 0))
				continue
			}

			key := cell(row, columns.KeyColumn)
			if key == "" {
				rowErrors = append(rowErrors, types.RowError{
					Source: source + ":" + sheetName,
					Row:    i + 1,
					Err:    fmt.Errorf("empty key"),
				})
				continue
			}
			if err := builder.Add(name, key, cell(row, columns.BaseColumn), cell(row, columns.VATColumn)); err != nil {
				rowErrors = append(rowErrors, types.RowError{Source: source + ":" + sheetName, Row: i + 1, Err: err})
			}
		}
	}

	return builder.Dataset(), rowErrors, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// cell returns the trimmed value at index, or "" for short rows.
func cell(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// isRowEmpty checks if all cells in a row are empty.
func isRowEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
