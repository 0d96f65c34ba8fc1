package form349

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/spanish-tax-forms/internal/types"
)

// ValidateFixedWidth checks records before fixed-width generation.
// It returns every finding; an empty slice means the data is valid.
func ValidateFixedWidth(records []types.TransactionRecord) []string {
	return validate(records)
}

// ValidateCsv checks records before CSV generation. The rules are the same
// as for the fixed-width file.
func ValidateCsv(records []types.TransactionRecord) []string {
	return validate(records)
}

func validate(records []types.TransactionRecord) []string {
	findings := []string{}

	for _, rec := range records {
		parts := strings.Split(rec.Key, "|")
		if len(parts) != 3 {
			findings = append(findings, fmt.Sprintf("Invalid key format: %s", rec.Key))
			continue
		}

		if parts[1] == "" {
			findings = append(findings, fmt.Sprintf("Empty buyer name for key: %s", rec.Key))
		}
		if parts[2] == "" {
			findings = append(findings, fmt.Sprintf("Empty buyer VAT for key: %s", rec.Key))
		}

		if !rec.Base.Valid {
			findings = append(findings, fmt.Sprintf("Invalid base amount for key: %s", rec.Key))
			continue
		}
		// Zero is allowed.
		if rec.Base.IsNegative() {
			findings = append(findings, fmt.Sprintf("Negative base amount for key: %s", rec.Key))
		}
	}

	return findings
}
