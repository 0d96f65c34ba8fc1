// =============================================================================
// Spanish Tax Forms - CSV Parser Module
// =============================================================================
//
// This module reads the aggregated CSV export that feeds the tax forms. Each
// row is one aggregate:
//
//   category;key;base_amount;vat_amount
//   intracomunitarias;FR|ACME Corp|FR12345678901;1234.56;0
//   oss;ES|FR - 20.00%;1000.00;200.00
//   ioss;ES|IT - 22.00%;50.00;11.00
//   period;2025Q3;;
//
// FEATURES:
//   - Configurable delimiter (default ";")
//   - UTF-8 or ISO-8859-1 input, decoded through golang.org/x/text
//   - Optional header row
//   - Bad rows are collected as RowErrors and do not stop the parse
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/spanish-tax-forms/internal/config"
	"github.com/ginjaninja78/spanish-tax-forms/internal/types"
)

const utf8BOM = "\ufeff"

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file into a dataset.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: Delimiter, encoding and header settings.
//
// RETURNS:
//   - The dataset built from every usable row.
//   - The rows that could not be used, with their line numbers.
//   - An error if the file cannot be opened or is not valid CSV.
func Parse(filePath string, settings config.CSVSettings) (*types.Dataset, []types.RowError, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ParseReader(file, filepath.Base(filePath), settings)
}

// ParseReader is Parse for an already open stream. source names the input
// in row errors.
func ParseReader(r io.Reader, source string, settings config.CSVSettings) (*types.Dataset, []types.RowError, error) {
	reader, err := decodingReader(bufio.NewReader(r), settings.Encoding)
	if err != nil {
		return nil, nil, err
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, settings)

	builder := types.NewDatasetBuilder()
	var rowErrors []types.RowError
	first := true

	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		line, _ := csvReader.FieldPos(0)

		if first {
			record[0] = strings.TrimPrefix(record[0], utf8BOM)
			first = false
			if settings.HasHeader {
				continue
			}
		}
		if isBlank(record) {
			continue
		}
		if len(record) < 2 {
			rowErrors = append(rowErrors, types.RowError{Source: source, Row: line, Err: fmt.Errorf("expected at least 2 fields, got %d", len(record))})
			continue
		}

		if err := builder.Add(record[0], record[1], field(record, 2), field(record, 3)); err != nil {
			rowErrors = append(rowErrors, types.RowError{Source: source, Row: line, Err: err})
		}
	}

	return builder.Dataset(), rowErrors, nil
}

// decodingReader wraps r so that the CSV reader always sees UTF-8.
func decodingReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToUpper(strings.TrimSpace(encoding)) {
	case "", "UTF-8", "UTF8":
		return r, nil
	case "ISO-8859-1", "LATIN1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ",", "comma":
		reader.Comma = ','
	default:
		if d := []rune(settings.Delimiter); len(d) > 0 {
			reader.Comma = d[0]
		} else {
			reader.Comma = ';'
		}
	}

	// Period rows carry only two fields.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

func field(record []string, i int) string {
	if i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
