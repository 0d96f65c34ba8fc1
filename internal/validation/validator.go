// =============================================================================
// Spanish Tax Forms - Validation Engine
// =============================================================================
//
// This module runs the per-form validators over an ingested dataset and
// collects their findings into reports, one per form.
//
// VALIDATION STRATEGY:
//   - Every requested form is validated; nothing short-circuits
//   - Findings are plain messages, never truncated
//   - Input rows the parsers rejected are reported under the "input" form
//
// ERROR HANDLING:
//   Findings are collected, not returned as errors. The caller decides what a
//   finding means: the converter logs them, or aborts the file when strict
//   validation is enabled.
//
// =============================================================================

package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/spanish-tax-forms/internal/config"
	"github.com/ginjaninja78/spanish-tax-forms/internal/form349"
	"github.com/ginjaninja78/spanish-tax-forms/internal/form369"
	"github.com/ginjaninja78/spanish-tax-forms/internal/types"
)

// FormInput names the report that carries ingestion row errors.
const FormInput = "input"

// =============================================================================
// VALIDATION REPORT
// =============================================================================

// Report holds the findings for one form.
type Report struct {
	// Form is the form identifier: "349", "349csv", "369" or "input".
	Form string

	// Findings is empty when the form's data is valid.
	Findings []string
}

// IsValid is true when the report has no findings.
func (r Report) IsValid() bool {
	return len(r.Findings) == 0
}

// =============================================================================
// RUNNING VALIDATORS
// =============================================================================

// Run validates dataset for each requested form, in the order given.
// Unknown form identifiers produce a report with a single finding.
func Run(dataset *types.Dataset, forms []string) []Report {
	reports := make([]Report, 0, len(forms))
	for _, form := range forms {
		reports = append(reports, Report{Form: form, Findings: validateForm(dataset, form)})
	}
	return reports
}

func validateForm(dataset *types.Dataset, form string) []string {
	switch form {
	case config.FormModel349:
		return form349.ValidateFixedWidth(dataset.Intracom)
	case config.FormModel349CSV:
		return form349.ValidateCsv(dataset.Intracom)
	case config.FormModel369:
		return form369.Validate(dataset.OSS, dataset.IOSS)
	default:
		return []string{fmt.Sprintf("Unknown form: %s", form)}
	}
}

// RowErrorReport turns ingestion row errors into a report.
func RowErrorReport(rowErrors []types.RowError) Report {
	findings := make([]string, 0, len(rowErrors))
	for _, e := range rowErrors {
		findings = append(findings, e.Error())
	}
	return Report{Form: FormInput, Findings: findings}
}

// IsValid is true when no report has findings.
func IsValid(reports []Report) bool {
	return Count(reports) == 0
}

// Count returns the total number of findings.
func Count(reports []Report) int {
	n := 0
	for _, r := range reports {
		n += len(r.Findings)
	}
	return n
}

// =============================================================================
// ERROR REPORTING
// =============================================================================

// FormatReports formats the reports for display or logging.
//
// PARAMETERS:
//   - reports: The validation reports to format.
//
// RETURNS:
//   - A formatted string listing every finding, grouped by form.
func FormatReports(reports []Report) string {
	total := Count(reports)
	if total == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d error(s):\n", total))

	for _, r := range reports {
		if r.IsValid() {
			continue
		}
		builder.WriteString(fmt.Sprintf("\nForm %s (%d):\n", r.Form, len(r.Findings)))
		for i, finding := range r.Findings {
			builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, finding))
		}
	}

	return builder.String()
}

// WriteErrorLog writes the reports of one input file to filePath.
//
// PARAMETERS:
//   - reports: The validation reports to write.
//   - source: The input file the reports belong to.
//   - filePath: The path to the output file.
//
// RETURNS:
//   - An error if writing fails.
func WriteErrorLog(reports []Report, source, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create error log directory: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Source: %s\n", source))
	builder.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format(time.RFC3339)))
	builder.WriteString(FormatReports(reports))

	if err := os.WriteFile(filePath, []byte(builder.String()), 0644); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}
	return nil
}
