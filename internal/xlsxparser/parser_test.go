package xlsxparser

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// workbook builds an in-memory workbook with one sheet per entry.
func workbook(t *testing.T, sheets map[string][][]interface{}) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cellName, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			require.NoError(t, f.SetSheetRow(name, cellName, &r))
		}
	}
	return f
}

func sampleSheets() map[string][][]interface{} {
	header := []interface{}{"key", "base", "vat"}
	return map[string][][]interface{}{
		"Intracomunitarias": {
			header,
			{"FR|ACME Corp|FR12345678901", 1234.56, 0},
			{"", 10, 0},
		},
		"oss": {
			header,
			{"ES|FR - 20.00%", 1000.5, 200.1},
			{},
			{"ES|DE - 19.00%", 100, 19},
		},
		"ioss": {
			header,
			{"ES|IT - 22.00%", 50, 11},
		},
		"periods": {
			{"period"},
			{"2025Q3"},
		},
		"_notes": {
			{"ignored", "1", "2"},
		},
	}
}

func TestParseReader(t *testing.T) {
	f := workbook(t, sampleSheets())
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ds, rowErrs, err := ParseReader(bytes.NewReader(buf.Bytes()), "book.xlsx")
	require.NoError(t, err)

	require.Len(t, ds.Intracom, 1)
	assert.Equal(t, "FR|ACME Corp|FR12345678901", ds.Intracom[0].Key)
	assert.Equal(t, int64(123456), ds.Intracom[0].Base.Cents())

	require.Len(t, ds.OSS, 2)
	assert.Equal(t, int64(100050), ds.OSS[0].Base.Cents())
	assert.Equal(t, int64(20010), ds.OSS[0].VAT.Cents())
	assert.Equal(t, "DE", ds.OSS[1].Parsed.Destination)

	require.Len(t, ds.IOSS, 1)
	assert.Equal(t, []string{"2025Q3"}, ds.ActivityPeriods)

	require.Len(t, rowErrs, 1)
	assert.Equal(t, "book.xlsx:Intracomunitarias", rowErrs[0].Source)
	assert.Equal(t, 3, rowErrs[0].Row)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := workbook(t, sampleSheets())
	require.NoError(t, f.SaveAs(path))

	ds, _, err := Parse(path)
	require.NoError(t, err)
	assert.False(t, ds.Empty())
}

func TestParseWithoutDataSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, excelize.NewFile().SaveAs(path))

	ds, rowErrs, err := Parse(path)
	require.NoError(t, err)
	assert.True(t, ds.Empty())
	assert.Empty(t, rowErrs)
}

func TestParseMissingFile(t *testing.T) {
	_, _, err := Parse(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}
