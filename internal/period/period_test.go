package period

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForm349Code(t *testing.T) {
	tests := map[string]string{
		"T 3":      "3T",
		"T1":       "1T",
		"2025 T 4": "4T",
		"M 3":      "03",
		"M12":      "12",
		"2":        "02",
		"1T":       "1T",
		"garbage":  "1T",
		"":         "1T",
	}
	for in, want := range tests {
		assert.Equal(t, want, Form349Code(in), "input %q", in)
	}
}

func TestHeaderCode(t *testing.T) {
	assert.Equal(t, "3T", HeaderCode("2025 T 3", true))
	assert.Equal(t, "1T", HeaderCode("2025", true))
	assert.Equal(t, "03", HeaderCode("2025 M 3", false))
	assert.Equal(t, "11", HeaderCode("2025 11", false))
	assert.Equal(t, "01", HeaderCode("2025", false))
}

func TestDataPeriod(t *testing.T) {
	assert.Equal(t, "2025T 2", DataPeriod("2025 T 2", true, "2025"))
	assert.Equal(t, "2025T 1", DataPeriod("", true, "2025"))
	assert.Equal(t, "2025M 07", DataPeriod("2025 M 7", false, "2025"))
	assert.Equal(t, "2025M 01", DataPeriod("", false, "2025"))
}

func TestExtractYear(t *testing.T) {
	assert.Equal(t, "2025", ExtractYear("2025 T 1", "1999"))
	assert.Equal(t, "1999", ExtractYear("T 1", "1999"))
}

func TestFromActivityPeriod(t *testing.T) {
	info, ok := FromActivityPeriod("2023Q2")
	assert.True(t, ok)
	assert.Equal(t, Info{Year: "2023", Period: "T 2", Quarterly: true}, info)
	assert.Equal(t, "2023 T 2", info.Label())

	info, ok = FromActivityPeriod("2024-MAR")
	assert.True(t, ok)
	assert.Equal(t, Info{Year: "2024", Period: "M 3", Quarterly: false}, info)

	info, ok = FromActivityPeriod("2024-XYZ")
	assert.True(t, ok)
	assert.Equal(t, "M 1", info.Period)

	_, ok = FromActivityPeriod("last quarter")
	assert.False(t, ok)
}

func TestDefault(t *testing.T) {
	assert.Equal(t, Info{Year: "2026", Period: "T 1", Quarterly: true}, Default(2026))
}
