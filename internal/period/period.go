// Package period normalizes the free-text reporting periods supplied by callers
// ("T 1", "2025 T 1", "M 3", "1T") into the codes used by the AEAT formats.
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	quarterPattern  = regexp.MustCompile(`T\s*(\d)`)
	monthPattern    = regexp.MustCompile(`M\s*(\d{1,2})`)
	bareCodePattern = regexp.MustCompile(`^\d{1,2}T?$`)
	yearPattern     = regexp.MustCompile(`(\d{4})`)
	digitsPattern   = regexp.MustCompile(`(\d{1,2})`)
	activityQuarter = regexp.MustCompile(`(\d{4})Q(\d)`)
	activityMonth   = regexp.MustCompile(`(\d{4})-(\w{3})`)
)

// Form349Code returns the two-character period of the Modelo 349 header.
// "T 1" -> "1T", "M 3" -> "03", "4" -> "04". Anything else falls back to "1T".
func Form349Code(period string) string {
	if m := quarterPattern.FindStringSubmatch(period); m != nil {
		return m[1] + "T"
	}
	if m := monthPattern.FindStringSubmatch(period); m != nil {
		return zeroPad2(m[1])
	}
	if bareCodePattern.MatchString(period) {
		return zeroPad2(period)
	}
	return "1T"
}

// HeaderCode returns the period part of the Modelo 369 header tag:
// "1T".."4T" for quarterly filings and "01".."12" for monthly ones.
func HeaderCode(period string, quarterly bool) string {
	if quarterly {
		if m := quarterPattern.FindStringSubmatch(period); m != nil {
			return m[1] + "T"
		}
		return "1T"
	}
	if month, ok := monthOf(period); ok {
		return month
	}
	return "01"
}

// DataPeriod returns the period as written inside a Modelo 369 main section:
// "2025T 1" or "2025M 03".
func DataPeriod(period string, quarterly bool, year string) string {
	if quarterly {
		q := "1"
		if m := quarterPattern.FindStringSubmatch(period); m != nil {
			q = m[1]
		}
		return year + "T " + q
	}
	month, ok := monthOf(period)
	if !ok {
		month = "01"
	}
	return year + "M " + month
}

// ExtractYear returns the first four-digit group of period, or fallback.
func ExtractYear(period, fallback string) string {
	if m := yearPattern.FindStringSubmatch(period); m != nil {
		return m[1]
	}
	return fallback
}

// monthOf finds the month number in a monthly period. The year is removed
// first so that "2025 M 3" does not yield "20".
func monthOf(period string) (string, bool) {
	if m := monthPattern.FindStringSubmatch(period); m != nil {
		return zeroPad2(m[1]), true
	}
	rest := yearPattern.ReplaceAllString(period, "")
	if m := digitsPattern.FindStringSubmatch(rest); m != nil {
		return zeroPad2(m[1]), true
	}
	return "", false
}

func zeroPad2(s string) string {
	if len(s) >= 2 {
		return s
	}
	return strings.Repeat("0", 2-len(s)) + s
}

// =============================================================================
// ACTIVITY PERIODS
// =============================================================================

// Info is a reporting period derived from the activity periods of the data.
type Info struct {
	Year      string
	Period    string
	Quarterly bool
}

// Label renders the period as "2025 T 1", the form the Modelo 369 config expects.
func (i Info) Label() string {
	return i.Year + " " + i.Period
}

var monthNumbers = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

// FromActivityPeriod reads "2023Q1" or "2023-JAN" style markers.
// Unknown month abbreviations map to January.
func FromActivityPeriod(activity string) (Info, bool) {
	if m := activityQuarter.FindStringSubmatch(activity); m != nil {
		return Info{Year: m[1], Period: "T " + m[2], Quarterly: true}, true
	}
	if m := activityMonth.FindStringSubmatch(activity); m != nil {
		month, ok := monthNumbers[strings.ToUpper(m[2])]
		if !ok {
			month = 1
		}
		return Info{Year: m[1], Period: "M " + strconv.Itoa(month), Quarterly: false}, true
	}
	return Info{}, false
}

// Default is the fallback used when no period can be derived.
func Default(year int) Info {
	return Info{Year: fmt.Sprintf("%04d", year), Period: "T 1", Quarterly: true}
}
