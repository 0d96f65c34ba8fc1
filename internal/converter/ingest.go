package converter

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/spanish-tax-forms/internal/config"
	"github.com/ginjaninja78/spanish-tax-forms/internal/csvparser"
	"github.com/ginjaninja78/spanish-tax-forms/internal/period"
	"github.com/ginjaninja78/spanish-tax-forms/internal/types"
	"github.com/ginjaninja78/spanish-tax-forms/internal/xlsxparser"
)

// Ingest reads an input file, choosing the parser by extension.
func Ingest(path string, settings config.CSVSettings) (*types.Dataset, []types.RowError, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return csvparser.Parse(path, settings)
	case ".xlsx":
		return xlsxparser.Parse(path)
	default:
		return nil, nil, fmt.Errorf("unsupported input file type: %s", filepath.Ext(path))
	}
}

// ResolvePeriod picks the reporting period: the configured period wins, then
// the first activity period in the data, then the first quarter of now.
func ResolvePeriod(declarant config.DeclarantConfig, dataset *types.Dataset, now time.Time) period.Info {
	fallbackYear := fmt.Sprintf("%04d", now.Year())

	if declarant.Period != "" {
		// A year written into the period ("2025 T 3") wins over the year field.
		p, year := declarant.Period, declarant.Year
		if embedded := period.ExtractYear(p, ""); embedded != "" {
			year = embedded
			p = strings.TrimSpace(strings.Replace(p, embedded, "", 1))
		}
		if year == "" {
			year = fallbackYear
		}
		return period.Info{Year: year, Period: p, Quarterly: declarant.Quarterly()}
	}

	if dataset != nil {
		for _, activity := range dataset.ActivityPeriods {
			if info, ok := period.FromActivityPeriod(activity); ok {
				return info
			}
		}
	}

	info := period.Default(now.Year())
	if declarant.Year != "" {
		info.Year = declarant.Year
	}
	return info
}

// SelectRegime returns the configured regime, or IMPO when the data carries
// IOSS entries and MOSS otherwise.
func SelectRegime(configured string, dataset *types.Dataset) types.Regime {
	if configured != "" {
		return types.Regime(configured)
	}
	if len(dataset.IOSS) > 0 {
		return types.RegimeIMPO
	}
	return types.RegimeMOSS
}

// =============================================================================
// DATA SUMMARY
// =============================================================================

// DataSummary describes an ingested file without generating anything.
type DataSummary struct {
	ActivityPeriods []string
	Period          period.Info
	IntracomCount   int
	OSSCount        int
	IOSSCount       int
	RowErrors       int
	Form349         bool
	Form369         bool
}

// Summarize builds the summary of dataset.
func Summarize(dataset *types.Dataset, rowErrors []types.RowError, declarant config.DeclarantConfig, now time.Time) DataSummary {
	return DataSummary{
		ActivityPeriods: dataset.ActivityPeriods,
		Period:          ResolvePeriod(declarant, dataset, now),
		IntracomCount:   len(dataset.Intracom),
		OSSCount:        len(dataset.OSS),
		IOSSCount:       len(dataset.IOSS),
		RowErrors:       len(rowErrors),
		Form349:         len(dataset.Intracom) > 0,
		Form369:         len(dataset.OSS) > 0 || len(dataset.IOSS) > 0,
	}
}

// String renders the summary for the terminal.
func (s DataSummary) String() string {
	var b strings.Builder
	periods := "none"
	if len(s.ActivityPeriods) > 0 {
		periods = strings.Join(s.ActivityPeriods, ", ")
	}
	fmt.Fprintf(&b, "Activity periods:   %s\n", periods)
	fmt.Fprintf(&b, "Reporting period:   %s\n", s.Period.Label())
	fmt.Fprintf(&b, "Intracomunitarias:  %d\n", s.IntracomCount)
	fmt.Fprintf(&b, "OSS entries:        %d\n", s.OSSCount)
	fmt.Fprintf(&b, "IOSS entries:       %d\n", s.IOSSCount)
	fmt.Fprintf(&b, "Rejected rows:      %d\n", s.RowErrors)
	fmt.Fprintf(&b, "Form 349:           %s\n", applicable(s.Form349))
	fmt.Fprintf(&b, "Form 369:           %s\n", applicable(s.Form369))
	return b.String()
}

func applicable(ok bool) string {
	if ok {
		return "applicable"
	}
	return "not applicable"
}
