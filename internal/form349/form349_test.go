package form349

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ginjaninja78/spanish-tax-forms/internal/types"
)

func record(key, base, vat string) types.TransactionRecord {
	return types.NewTransactionRecord(key, types.ParseAmount(base), types.ParseAmount(vat))
}

func testConfig() types.FormConfig {
	return types.FormConfig{
		DeclarantNIF: "B1234567",
		CompanyName:  "INNOVTEC E-COMMERCE SL",
		Year:         "2025",
		Period:       "T 3",
		IsQuarterly:  true,
	}
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return zap.New(core), logs
}

func splitLines(t *testing.T, out []byte) []string {
	t.Helper()
	require.NotEmpty(t, out)
	return strings.Split(string(out), "\r\n")
}

// =============================================================================
// FIXED WIDTH
// =============================================================================

func TestFixedWidthEmptyInput(t *testing.T) {
	logger, logs := observedLogger()
	out := NewFixedWidthEncoder(WithLogger(logger)).Generate(nil, testConfig())

	assert.Empty(t, out)
	assert.Equal(t, 1, logs.FilterMessage("No intracomunitarias data found for Form 349").Len())
}

func TestFixedWidthHeaderLayout(t *testing.T) {
	records := []types.TransactionRecord{
		record("FR|ACME Corp|FR12345678901", "1234.56", "0"),
		record("DE|Müller & Söhne S.L.|DE123456789", "100.005", "0"),
	}

	lines := splitLines(t, NewFixedWidthEncoder().Generate(records, testConfig()))
	require.Len(t, lines, 3)

	header := lines[0]
	require.Len(t, header, RecordLength)
	assert.Equal(t, "1", header[0:1])
	assert.Equal(t, "349", header[1:4])
	assert.Equal(t, "2025", header[4:8])
	assert.Equal(t, "0B1234567", header[8:17])
	assert.Equal(t, fmt.Sprintf("%-40s", "INNOVTEC E-COMMERCE SL"), header[17:57])
	assert.Equal(t, " ", header[57:58])
	assert.Equal(t, "000000000", header[58:67])
	assert.Equal(t, fmt.Sprintf("%-40s", "ADMINISTRACION"), header[67:107])
	assert.Equal(t, "3490000000001", header[107:120])
	assert.Equal(t, "  ", header[120:122])
	assert.Equal(t, "0000000000000", header[122:135])
	assert.Equal(t, "3T", header[135:137])
	assert.Equal(t, "000000002", header[137:146])
	assert.Equal(t, "0000000001334", header[146:159])
	assert.Equal(t, "57", header[159:161])
	assert.Equal(t, strings.Repeat("0", 24), header[161:185])
	assert.Equal(t, strings.Repeat(" ", 315), header[185:500])
}

func TestFixedWidthOperatorLayout(t *testing.T) {
	records := []types.TransactionRecord{
		record("DE|Müller & Söhne S.L.|DE123456789", "100.005", "19"),
	}

	lines := splitLines(t, NewFixedWidthEncoder().Generate(records, testConfig()))
	require.Len(t, lines, 2)

	op := lines[1]
	require.Len(t, op, RecordLength)
	assert.Equal(t, "23492025", op[0:8])
	assert.Equal(t, "0B1234567", op[8:17])
	assert.Equal(t, strings.Repeat(" ", 58), op[17:75])
	assert.Equal(t, fmt.Sprintf("%-17s", "DE123456789"), op[75:92])
	assert.Equal(t, fmt.Sprintf("%-40s", "MULLER SOHNE SL"), op[92:132])
	assert.Equal(t, "E", op[132:133])
	assert.Equal(t, "0000000010001", op[133:146])
	assert.Equal(t, strings.Repeat(" ", 354), op[146:500])
}

func TestFixedWidthPageLimit(t *testing.T) {
	records := make([]types.TransactionRecord, 0, 30)
	for i := 0; i < 30; i++ {
		records = append(records, record(fmt.Sprintf("FR|Buyer %d|FR%011d", i, i), "10", "2"))
	}

	logger, logs := observedLogger()
	out := NewFixedWidthEncoder(WithLogger(logger)).Generate(records, testConfig())

	assert.Len(t, out, RecordLength*29+2*28)
	lines := splitLines(t, out)
	require.Len(t, lines, 29)
	for _, line := range lines {
		assert.Len(t, line, RecordLength)
	}
	assert.Equal(t, "000000028", lines[0][137:146])
	// 28 * 10.00 EUR
	assert.Equal(t, "0000000000280", lines[0][146:159])
	assert.Equal(t, "00", lines[0][159:161])
	assert.Equal(t, 1, logs.FilterMessage("Reached maximum records per page for Form 349").Len())
}

func TestFixedWidthRespectsConfiguredPageSize(t *testing.T) {
	records := []types.TransactionRecord{
		record("FR|A|FR1", "1", "0"),
		record("FR|B|FR2", "2", "0"),
		record("FR|C|FR3", "3", "0"),
	}
	cfg := testConfig()
	cfg.MaxRecordsPerPage = 2

	lines := splitLines(t, NewFixedWidthEncoder().Generate(records, cfg))
	require.Len(t, lines, 3)
	assert.Equal(t, "000000002", lines[0][137:146])
	assert.Equal(t, "0000000000003", lines[0][146:159])
}

func TestFixedWidthHeaderTotalRoundsOnce(t *testing.T) {
	tests := []struct {
		name  string
		bases []string
		euros string
		cents string
	}{
		{"sub-cent amounts add up", []string{"0.004", "0.004", "0.004"}, "0000000000000", "01"},
		{"half cents add up", []string{"0.005", "0.005"}, "0000000000000", "01"},
		{"carry into euros", []string{"0.996", "0.004"}, "0000000000001", "00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var records []types.TransactionRecord
			for i, base := range tt.bases {
				records = append(records, record(fmt.Sprintf("FR|Buyer %d|FR%d", i, i), base, "0"))
			}

			lines := splitLines(t, NewFixedWidthEncoder().Generate(records, testConfig()))
			require.Len(t, lines, len(tt.bases)+1)
			assert.Equal(t, tt.euros, lines[0][146:159])
			assert.Equal(t, tt.cents, lines[0][159:161])
		})
	}
}

func TestFixedWidthSkipsMalformedKeys(t *testing.T) {
	records := []types.TransactionRecord{
		record("FR|only two", "5", "0"),
		record("FR|ACME|FR1", "5", "0"),
	}

	logger, logs := observedLogger()
	lines := splitLines(t, NewFixedWidthEncoder(WithLogger(logger)).Generate(records, testConfig()))

	require.Len(t, lines, 2)
	assert.Equal(t, "000000001", lines[0][137:146])
	assert.Equal(t, 1, logs.FilterMessage("Skipping record with unparseable key").Len())
}

func TestFixedWidthEncodesLatin1(t *testing.T) {
	cfg := testConfig()
	cfg.CompanyName = "CAFÉ ÑANDÚ SL"

	out := NewFixedWidthEncoder().Generate([]types.TransactionRecord{record("FR|ACME|FR1", "1", "0")}, cfg)

	header := bytes.Split(out, []byte("\r\n"))[0]
	assert.Len(t, header, RecordLength)
	assert.Equal(t, byte(0xC9), header[17+3])
	assert.Equal(t, byte(0xD1), header[17+5])
}

func TestFixedWidthIsIdempotent(t *testing.T) {
	records := []types.TransactionRecord{
		record("FR|ACME Corp|FR12345678901", "1234.56", "0"),
		record("IT|Rossi SpA|IT12345678901", "99.99", "0"),
	}
	enc := NewFixedWidthEncoder()

	first := enc.Generate(records, testConfig())
	second := enc.Generate(records, testConfig())
	assert.True(t, bytes.Equal(first, second))
}

func TestFixedWidthLogsTruncatedFields(t *testing.T) {
	cfg := testConfig()
	cfg.CompanyName = strings.Repeat("X", 45)

	logger, logs := observedLogger()
	lines := splitLines(t, NewFixedWidthEncoder(WithLogger(logger)).Generate([]types.TransactionRecord{record("FR|A|FR1", "1", "0")}, cfg))

	assert.Len(t, lines[0], RecordLength)
	assert.Equal(t, strings.Repeat("X", 40), lines[0][17:57])
	truncated := logs.FilterMessage("Field truncated to its width").All()
	require.Len(t, truncated, 1)
	assert.Equal(t, "company_name", truncated[0].ContextMap()["field"])
}

// =============================================================================
// CSV
// =============================================================================

func TestCsvEmptyInput(t *testing.T) {
	assert.Empty(t, NewCsvEncoder().Generate(nil, testConfig()))
}

func TestCsvLine(t *testing.T) {
	records := []types.TransactionRecord{
		record("ES|ACME Corp|FR12345678901", "1234.56", "246.91"),
		record("ES|Rossi|IT999", "0.5", "0"),
	}

	lines := splitLines(t, NewCsvEncoder().Generate(records, testConfig()))

	want := []string{
		"FR;31;FOB;11;3;;85182190;ES;1;1234;246;1234,56;1234,56;FR12345678901",
		"IT;31;FOB;11;3;;85182190;ES;1;0;0;0,50;0,50;IT999",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("csv lines mismatch (-want +got):\n%s", diff)
	}
	for _, line := range lines {
		assert.Len(t, strings.Split(line, ";"), 14)
	}
}

func TestCsvHasNoPageLimit(t *testing.T) {
	records := make([]types.TransactionRecord, 0, 40)
	for i := 0; i < 40; i++ {
		records = append(records, record(fmt.Sprintf("FR|Buyer %d|FR%d", i, i), "1", "0"))
	}
	assert.Len(t, splitLines(t, NewCsvEncoder().Generate(records, testConfig())), 40)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidateNegativeAmount(t *testing.T) {
	findings := ValidateFixedWidth([]types.TransactionRecord{record("FR|ACME Corp|FR12345678901", "-10", "0")})
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0], "Negative base amount")

	assert.Empty(t, ValidateFixedWidth([]types.TransactionRecord{record("FR|ACME Corp|FR12345678901", "100", "0")}))
}

func TestValidateCollectsAllFindings(t *testing.T) {
	records := []types.TransactionRecord{
		record("FR|ACME", "1", "0"),
		record("FR||", "abc", "0"),
		record("FR|Zero|FR1", "0", "0"),
	}

	want := []string{
		"Invalid key format: FR|ACME",
		"Empty buyer name for key: FR||",
		"Empty buyer VAT for key: FR||",
		"Invalid base amount for key: FR||",
	}
	if diff := cmp.Diff(want, ValidateCsv(records)); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}
}

func TestValidatorsDoNotMutateInput(t *testing.T) {
	records := []types.TransactionRecord{record("FR|ACME|FR1", "-1", "0")}
	before := records[0]
	_ = ValidateFixedWidth(records)
	_ = ValidateCsv(records)
	assert.Equal(t, before, records[0])
}
