package types

import (
	"fmt"
	"slices"
	"strings"
)

// Category names used by the aggregated input files.
const (
	CategoryIntracom = "intracomunitarias"
	CategoryOSS      = "oss"
	CategoryIOSS     = "ioss"
	CategoryPeriod   = "period"
)

// RowError is a row the ingestion layer could not use. It is reported, not
// fatal: the rest of the file is still processed.
type RowError struct {
	// Source is the file name, or the sheet name for workbooks.
	Source string

	// Row is 1-based, counting header rows.
	Row int

	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.Source, e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// DatasetBuilder accumulates rows into a Dataset, keeping input order.
// Rows repeating a key within a category are merged into the first one by
// adding up their base and VAT amounts.
type DatasetBuilder struct {
	dataset Dataset
	periods map[string]bool

	intracom map[string]int
	oss      map[string]int
	ioss     map[string]int
}

// NewDatasetBuilder returns an empty builder.
func NewDatasetBuilder() *DatasetBuilder {
	return &DatasetBuilder{
		periods:  make(map[string]bool),
		intracom: make(map[string]int),
		oss:      make(map[string]int),
		ioss:     make(map[string]int),
	}
}

// Add routes one row by category. Category matching ignores case and
// surrounding spaces. Period rows only use the key.
func (b *DatasetBuilder) Add(category, key, base, vat string) error {
	key = strings.TrimSpace(key)
	baseAmount, vatAmount := ParseAmount(base), ParseAmount(vat)

	switch strings.ToLower(strings.TrimSpace(category)) {
	case CategoryIntracom:
		if i, ok := b.intracom[key]; ok {
			rec := &b.dataset.Intracom[i]
			rec.Base = rec.Base.Add(baseAmount)
			rec.VAT = rec.VAT.Add(vatAmount)
			return nil
		}
		b.intracom[key] = len(b.dataset.Intracom)
		b.dataset.Intracom = append(b.dataset.Intracom, NewTransactionRecord(key, baseAmount, vatAmount))
	case CategoryOSS:
		b.dataset.OSS = addOssEntry(b.dataset.OSS, b.oss, key, baseAmount, vatAmount)
	case CategoryIOSS:
		b.dataset.IOSS = addOssEntry(b.dataset.IOSS, b.ioss, key, baseAmount, vatAmount)
	case CategoryPeriod:
		b.AddPeriod(key)
	default:
		return fmt.Errorf("unknown category %q", category)
	}
	return nil
}

func addOssEntry(entries []OssEntry, index map[string]int, key string, base, vat Amount) []OssEntry {
	if i, ok := index[key]; ok {
		entries[i].Base = entries[i].Base.Add(base)
		entries[i].VAT = entries[i].VAT.Add(vat)
		return entries
	}
	index[key] = len(entries)
	return append(entries, NewOssEntry(key, base, vat))
}

// AddPeriod records an activity period once.
func (b *DatasetBuilder) AddPeriod(activity string) {
	activity = strings.TrimSpace(activity)
	if activity == "" || b.periods[activity] {
		return
	}
	b.periods[activity] = true
	b.dataset.ActivityPeriods = append(b.dataset.ActivityPeriods, activity)
}

// Dataset returns the accumulated data.
func (b *DatasetBuilder) Dataset() *Dataset {
	return &Dataset{
		Intracom:        slices.Clone(b.dataset.Intracom),
		OSS:             slices.Clone(b.dataset.OSS),
		IOSS:            slices.Clone(b.dataset.IOSS),
		ActivityPeriods: slices.Clone(b.dataset.ActivityPeriods),
	}
}
