package form369

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/spanish-tax-forms/internal/types"
)

// euCountries are the valid OSS destination codes, Spain included.
var euCountries = map[string]bool{
	"AT": true, "BE": true, "BG": true, "HR": true, "CY": true, "CZ": true,
	"DK": true, "EE": true, "ES": true, "FI": true, "FR": true, "DE": true,
	"GR": true, "HU": true, "IE": true, "IT": true, "LV": true, "LT": true,
	"LU": true, "MT": true, "NL": true, "PL": true, "PT": true, "RO": true,
	"SK": true, "SI": true, "SE": true,
}

// IsEUCountry reports whether code is one of the 27 member state codes.
func IsEUCountry(code string) bool {
	return euCountries[code]
}

// Validate checks OSS and IOSS entries and returns every finding.
// An empty slice means the data can be filed.
func Validate(oss, ioss []types.OssEntry) []string {
	findings := []string{}

	for _, entry := range oss {
		if !strings.Contains(entry.Key, "|") {
			findings = append(findings, fmt.Sprintf("Invalid OSS key format: %s", entry.Key))
			continue
		}
		if entry.KeyErr != nil {
			findings = append(findings, fmt.Sprintf("Could not parse OSS key: %s", entry.Key))
			continue
		}
		if !IsEUCountry(entry.Parsed.Destination) {
			findings = append(findings, fmt.Sprintf("Invalid country code: %s in key: %s", entry.Parsed.Destination, entry.Key))
			continue
		}
		if !entry.Base.Valid {
			findings = append(findings, fmt.Sprintf("Invalid base amount for OSS key: %s", entry.Key))
		}
		if !entry.VAT.Valid {
			findings = append(findings, fmt.Sprintf("Invalid VAT amount for OSS key: %s", entry.Key))
		}
	}

	for _, entry := range ioss {
		if strings.TrimSpace(entry.Key) == "" {
			findings = append(findings, fmt.Sprintf("Invalid IOSS data structure for key: %s", entry.Key))
			continue
		}
		if !entry.Base.Valid {
			findings = append(findings, fmt.Sprintf("Invalid IOSS base amount for key: %s", entry.Key))
		}
	}

	return findings
}
