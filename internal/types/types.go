// =============================================================================
// Spanish Tax Forms - Shared Types
// =============================================================================
//
// This package contains the record and configuration types shared by the
// encoders, the validators and the ingestion layer. Keeping them here avoids
// import cycles between:
//   - form349
//   - form369
//   - validation
//   - converter
//
// Records are always constructed through the New* functions, which run the
// typed key parsers and carry the parse outcome with the record.
//
// =============================================================================

package types

// =============================================================================
// FORM 349 RECORDS
// =============================================================================

// TransactionRecord is one aggregated intra-community sale.
// The key has the shape "country|buyerName|buyerVat".
type TransactionRecord struct {
	// Key is the composite key exactly as supplied by the caller.
	Key string

	// Parsed holds the key parts. Zero value when KeyErr is set.
	Parsed TransactionKey

	// KeyErr is the parse failure for Key, or nil.
	KeyErr error

	// Base is the taxable base in euros.
	Base Amount

	// VAT is the VAT amount in euros.
	VAT Amount
}

// NewTransactionRecord builds a record and parses its key.
func NewTransactionRecord(key string, base, vat Amount) TransactionRecord {
	parsed, err := ParseTransactionKey(key)
	return TransactionRecord{
		Key:    key,
		Parsed: parsed,
		KeyErr: err,
		Base:   base,
		VAT:    vat,
	}
}

// =============================================================================
// FORM 369 RECORDS
// =============================================================================

// OssEntry is one aggregated OSS or IOSS line.
// The key has the shape "ES|FR - 20.00%".
type OssEntry struct {
	Key    string
	Parsed OssKey
	KeyErr error
	Base   Amount
	VAT    Amount
}

// NewOssEntry builds an entry and parses its key.
func NewOssEntry(key string, base, vat Amount) OssEntry {
	parsed, err := ParseOssKey(key)
	return OssEntry{
		Key:    key,
		Parsed: parsed,
		KeyErr: err,
		Base:   base,
		VAT:    vat,
	}
}

// HasActivity reports whether the entry carries a non-zero base or VAT amount.
func (e OssEntry) HasActivity() bool {
	return !e.Base.IsZero() || !e.VAT.IsZero()
}

// =============================================================================
// DATASET
// =============================================================================

// Dataset is everything the ingestion layer extracted from one input file.
type Dataset struct {
	// Intracom feeds Form 349.
	Intracom []TransactionRecord

	// OSS feeds the MOSS and VOES regimes of Form 369.
	OSS []OssEntry

	// IOSS feeds the IMPO regime of Form 369.
	IOSS []OssEntry

	// ActivityPeriods lists the periods detected in the source data,
	// e.g. "2023Q1" or "2023-JAN", in the order they were found.
	ActivityPeriods []string
}

// Empty reports whether the dataset has nothing to file.
func (d *Dataset) Empty() bool {
	return len(d.Intracom) == 0 && len(d.OSS) == 0 && len(d.IOSS) == 0
}
