package form369

import (
	"bytes"
	"errors"
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

// Header is 204 characters of fields plus the empty T36900 element.
const headerLength = 204 + len("<T36900></T36900>")

func entry(key, base, vat string) types.OssEntry {
	return types.NewOssEntry(key, types.ParseAmount(base), types.ParseAmount(vat))
}

func testConfig(regime types.Regime) types.FormConfig {
	return types.FormConfig{
		DeclarantNIF: "B12345678",
		CompanyName:  "INNOVTEC E-COMMERCE SL",
		Year:         "2025",
		Period:       "T 3",
		IsQuarterly:  true,
		Regime:       regime,
		IOSSNumber:   "IM7240000001",
	}
}

func generate(t *testing.T, oss, ioss []types.OssEntry, cfg types.FormConfig) string {
	t.Helper()
	out, err := NewEncoder().Generate(oss, ioss, cfg)
	require.NoError(t, err)
	return string(out)
}

// sections splits the body after the header into SectionLength blocks.
func sections(t *testing.T, doc string, n int) []string {
	t.Helper()
	body := doc[headerLength:]
	require.GreaterOrEqual(t, len(body), n*SectionLength)
	out := make([]string, n)
	for i := range out {
		out[i] = body[i*SectionLength : (i+1)*SectionLength]
	}
	return out
}

func sampleOSS() []types.OssEntry {
	return []types.OssEntry{
		entry("ES|FR - 20.00%", "1000.50", "200.10"),
		entry("ES|DE - 7.00%", "50", "3.5"),
	}
}

// =============================================================================
// GENERATION
// =============================================================================

func TestGenerateEmptyInput(t *testing.T) {
	out, err := NewEncoder().Generate(nil, nil, testConfig(types.RegimeMOSS))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGenerateUnsupportedRegime(t *testing.T) {
	out, err := NewEncoder().Generate(sampleOSS(), nil, testConfig("XBRL"))

	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedRegime))

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "XBRL", genErr.Regime)
}

func TestHeaderAndFooter(t *testing.T) {
	doc := generate(t, sampleOSS(), nil, testConfig(types.RegimeMOSS))

	assert.True(t, strings.HasPrefix(doc, "<T36920253T0000>"))
	assert.Equal(t, "B12345678", doc[84:93])
	assert.Equal(t, "<T36900></T36900>", doc[204:221])
	assert.True(t, strings.HasSuffix(doc, "</T36920253T0000>"))
}

func TestHeaderYearComesFromPeriod(t *testing.T) {
	cfg := testConfig(types.RegimeMOSS)
	cfg.Period = "2024 T 1"
	cfg.Year = "2025"

	doc := generate(t, sampleOSS(), nil, cfg)
	assert.True(t, strings.HasPrefix(doc, "<T36920241T0000>"))
}

func TestMonthlyHeader(t *testing.T) {
	cfg := testConfig(types.RegimeMOSS)
	cfg.Period = "2025 M 3"
	cfg.IsQuarterly = false

	doc := generate(t, sampleOSS(), nil, cfg)
	assert.True(t, strings.HasPrefix(doc, "<T3692025030000>"))
	assert.True(t, strings.HasSuffix(doc, "</T3692025030000>"))
	main := sections(t, doc, 1)[0]
	assert.Equal(t, "2025M 03", main[140:148])
}

func TestRegimeSections(t *testing.T) {
	tests := []struct {
		regime types.Regime
		tags   []string
	}{
		{types.RegimeMOSS, []string{"T36904", "T36905", "T36906", "T36907", "T36908", "T36909"}},
		{types.RegimeVOES, []string{"T36901", "T36902", "T36903"}},
		{types.RegimeIMPO, []string{"T36910", "T36911", "T36912"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.regime), func(t *testing.T) {
			doc := generate(t, sampleOSS(), sampleOSS(), testConfig(tt.regime))

			footer := "</T36920253T0000>"
			assert.Len(t, doc, headerLength+len(tt.tags)*SectionLength+len(footer))
			for i, s := range sections(t, doc, len(tt.tags)) {
				assert.Len(t, s, SectionLength)
				assert.True(t, strings.HasPrefix(s, "<"+tt.tags[i]+">"), "section %d", i)
				assert.True(t, strings.HasSuffix(s, "</"+tt.tags[i]+">"), "section %d", i)
			}
		})
	}
}

func TestMossMainSectionLayout(t *testing.T) {
	doc := generate(t, sampleOSS(), nil, testConfig(types.RegimeMOSS))
	main := sections(t, doc, 1)[0]

	assert.Equal(t, "<T36904>MOSS DO", main[0:15])
	assert.Equal(t, strings.Repeat(" ", 26), main[15:41])
	assert.Equal(t, " ", main[41:42])
	assert.Equal(t, " ESB12345678", main[42:54])
	assert.Equal(t, strings.Repeat(" ", 6), main[54:60])
	assert.Equal(t, fmt.Sprintf("%-80s", "INNOVTEC E-COMMERCE SL"), main[60:140])
	assert.Equal(t, "2025T 3", main[140:147])
	assert.Equal(t, strings.Repeat(" ", 15), main[147:162])
	assert.Equal(t, "0", main[162:163])

	first := main[163:214]
	assert.Equal(t, "FR 2000S", first[0:8])
	assert.Equal(t, strings.Repeat(" ", 12), first[8:20])
	assert.Equal(t, "0000100050", first[20:30])
	assert.Equal(t, strings.Repeat(" ", 13), first[30:43])
	assert.Equal(t, "00020010", first[43:51])

	second := main[214:265]
	assert.Equal(t, "DE 0700R", second[0:8])
	assert.Equal(t, "0000005000", second[20:30])
	assert.Equal(t, "00000350", second[43:51])

	assert.Equal(t, strings.Repeat(" ", SectionLength-265-len("</T36904>")), main[265:SectionLength-len("</T36904>")])
}

func TestVoesCarriesIOSSNumber(t *testing.T) {
	doc := generate(t, sampleOSS(), nil, testConfig(types.RegimeVOES))
	main := sections(t, doc, 1)[0]

	assert.Equal(t, "<T36901>VOES DO", main[0:15])
	assert.Equal(t, " ESB12345678", main[42:54])
	assert.Equal(t, strings.Repeat(" ", 6), main[54:60])
	assert.Equal(t, "IM7240000001", main[60:72])
	assert.Equal(t, fmt.Sprintf("%-80s", "INNOVTEC E-COMMERCE SL"), main[72:152])
}

func TestImpoUsesIOSSEntries(t *testing.T) {
	ioss := []types.OssEntry{entry("ES|IT - 22.00%", "10", "2.2")}
	doc := generate(t, sampleOSS(), ioss, testConfig(types.RegimeIMPO))
	main := sections(t, doc, 1)[0]

	assert.Equal(t, "<T36910>IMPO DO", main[0:15])
	assert.Equal(t, " ESB12345678", main[42:54])
	assert.Equal(t, "   ", main[54:57])
	assert.Equal(t, "IM7240000001", main[57:69])
	assert.Equal(t, "IT 2200S", main[69+80+7+15+1:][0:8])
}

func TestImpoPlaceholderIOSSNumber(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := testConfig(types.RegimeIMPO)
	cfg.IOSSNumber = ""

	out, err := NewEncoder(WithLogger(zap.New(core))).Generate(nil, sampleOSS(), cfg)
	require.NoError(t, err)

	main := sections(t, string(out), 1)[0]
	assert.Equal(t, PlaceholderIOSSNumber, main[57:69])
	assert.Equal(t, 1, logs.FilterMessage("IOSS number missing for IMPO regime, using placeholder").Len())
}

func TestSectionCapAndComplementaryFlag(t *testing.T) {
	oss := make([]types.OssEntry, 0, 30)
	for i := 0; i < 30; i++ {
		oss = append(oss, entry(fmt.Sprintf("ES|FR - %d.00%%", i+1), "1", "0.2"))
	}

	core, logs := observer.New(zapcore.WarnLevel)
	out, err := NewEncoder(WithLogger(zap.New(core))).Generate(oss, nil, testConfig(types.RegimeMOSS))
	require.NoError(t, err)

	main := sections(t, string(out), 1)[0]
	assert.Len(t, main, SectionLength)
	assert.Equal(t, "C", main[41:42])
	assert.Equal(t, MaxRecordsPerSection, strings.Count(main, "FR "))
	assert.Equal(t, 1, logs.FilterMessage("Reached maximum VAT entries for Form 369 section").Len())
}

func TestComplementaryFlagCountsBothCollections(t *testing.T) {
	oss := make([]types.OssEntry, 20)
	ioss := make([]types.OssEntry, 9)
	for i := range oss {
		oss[i] = entry("ES|FR - 20.00%", "1", "0")
	}
	for i := range ioss {
		ioss[i] = entry("ES|DE - 19.00%", "1", "0")
	}

	main := sections(t, generate(t, oss, ioss, testConfig(types.RegimeMOSS)), 1)[0]
	assert.Equal(t, "C", main[41:42])
	assert.Equal(t, 20, strings.Count(main, "FR 2000S"))
}

func TestNoActivityFlag(t *testing.T) {
	oss := []types.OssEntry{entry("ES|FR - 20.00%", "0", "0")}
	main := sections(t, generate(t, oss, nil, testConfig(types.RegimeMOSS)), 1)[0]
	assert.Equal(t, "1", main[162:163])
}

func TestUnparseableEntriesAreSkipped(t *testing.T) {
	oss := []types.OssEntry{
		entry("garbage", "1", "0"),
		entry("ES|FR - 20.00%", "1", "0"),
	}
	main := sections(t, generate(t, oss, nil, testConfig(types.RegimeMOSS)), 1)[0]
	assert.Equal(t, "FR 2000S", main[163:171])
	assert.Equal(t, " ", main[214:215])
}

func TestGenerateIsIdempotent(t *testing.T) {
	enc := NewEncoder()
	first, err := enc.Generate(sampleOSS(), nil, testConfig(types.RegimeMOSS))
	require.NoError(t, err)
	second, err := enc.Generate(sampleOSS(), nil, testConfig(types.RegimeMOSS))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second))
}

func TestMossWithOnlyIOSSDataStillPadsSections(t *testing.T) {
	doc := generate(t, nil, sampleOSS(), testConfig(types.RegimeMOSS))
	main := sections(t, doc, 6)[0]
	assert.Equal(t, "1", main[162:163])
	assert.Equal(t, strings.Repeat(" ", SectionLength-163-len("</T36904>")), main[163:SectionLength-len("</T36904>")])
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	oss := []types.OssEntry{
		entry("ES|FR - 20.00%", "100", "20"),
		entry("no separator", "1", "0"),
		entry("ES|FR 20%", "1", "0"),
		entry("ES|XX - 20.00%", "1", "0"),
		entry("ES|IT - 22.00%", "abc", "xyz"),
	}
	ioss := []types.OssEntry{
		entry("", "1", "0"),
		entry("ES|DE - 19.00%", "n/a", "0"),
	}

	want := []string{
		"Invalid OSS key format: no separator",
		"Could not parse OSS key: ES|FR 20%",
		"Invalid country code: XX in key: ES|XX - 20.00%",
		"Invalid base amount for OSS key: ES|IT - 22.00%",
		"Invalid VAT amount for OSS key: ES|IT - 22.00%",
		"Invalid IOSS data structure for key: ",
		"Invalid IOSS base amount for key: ES|DE - 19.00%",
	}
	if diff := cmp.Diff(want, Validate(oss, ioss)); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateCleanData(t *testing.T) {
	findings := Validate(sampleOSS(), []types.OssEntry{entry("ES|FR - 20.00%", "1", "0")})
	assert.NotNil(t, findings)
	assert.Empty(t, findings)
}

func TestIsEUCountry(t *testing.T) {
	assert.True(t, IsEUCountry("ES"))
	assert.True(t, IsEUCountry("SE"))
	assert.False(t, IsEUCountry("GB"))
	assert.False(t, IsEUCountry("XI"))
	assert.Len(t, euCountries, 27)
}
