package validation

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/spanish-tax-forms/internal/types"
)

func dataset() *types.Dataset {
	b := types.NewDatasetBuilder()
	_ = b.Add(types.CategoryIntracom, "FR|ACME Corp|FR12345678901", "-10", "0")
	_ = b.Add(types.CategoryIntracom, "IT|Rossi|IT1", "100", "0")
	_ = b.Add(types.CategoryOSS, "ES|XX - 20.00%", "1", "0")
	return b.Dataset()
}

func TestRunEveryForm(t *testing.T) {
	reports := Run(dataset(), []string{"349", "349csv", "369"})
	require.Len(t, reports, 3)

	assert.Equal(t, "349", reports[0].Form)
	assert.Equal(t, []string{"Negative base amount for key: FR|ACME Corp|FR12345678901"}, reports[0].Findings)
	assert.Equal(t, reports[0].Findings, reports[1].Findings)
	assert.Equal(t, []string{"Invalid country code: XX in key: ES|XX - 20.00%"}, reports[2].Findings)

	assert.False(t, IsValid(reports))
	assert.Equal(t, 3, Count(reports))
}

func TestRunUnknownForm(t *testing.T) {
	reports := Run(dataset(), []string{"390"})
	require.Len(t, reports, 1)
	assert.Equal(t, []string{"Unknown form: 390"}, reports[0].Findings)
}

func TestRunCleanData(t *testing.T) {
	b := types.NewDatasetBuilder()
	_ = b.Add(types.CategoryIntracom, "FR|ACME Corp|FR12345678901", "100", "0")

	reports := Run(b.Dataset(), []string{"349", "369"})
	assert.True(t, IsValid(reports))
	assert.Equal(t, "No validation errors.", FormatReports(reports))
}

func TestRowErrorReport(t *testing.T) {
	r := RowErrorReport([]types.RowError{{Source: "a.csv", Row: 4, Err: errors.New("unknown category \"b2c\"")}})
	assert.Equal(t, FormInput, r.Form)
	assert.Equal(t, []string{`a.csv row 4: unknown category "b2c"`}, r.Findings)
	assert.True(t, RowErrorReport(nil).IsValid())
}

func TestFormatReports(t *testing.T) {
	out := FormatReports(Run(dataset(), []string{"349", "369"}))
	assert.Contains(t, out, "Validation completed with 2 error(s):")
	assert.Contains(t, out, "Form 349 (1):\n1. Negative base amount")
	assert.Contains(t, out, "Form 369 (1):\n1. Invalid country code")
}

func TestWriteErrorLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors", "data_errors.log")
	require.NoError(t, WriteErrorLog(Run(dataset(), []string{"349"}), "data.csv", path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Source: data.csv")
	assert.Contains(t, string(content), "Negative base amount")
}
