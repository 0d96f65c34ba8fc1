package form349

import (
	"strings"

	"github.com/ginjaninja78/spanish-tax-forms/internal/fixedwidth"
	"github.com/ginjaninja78/spanish-tax-forms/internal/types"
	"go.uber.org/zap"
)

// Constant columns of the semicolon-delimited layout.
const (
	csvSeparator     = ";"
	csvTransportCode = "31"
	csvIncoterm      = "FOB"
	csvNatureCode    = "11"
	csvTransportMode = "3"
	csvCommodityCode = "85182190"
	csvQuantity      = "1"
)

// CsvEncoder writes the semicolon-delimited Modelo 349 alternative.
type CsvEncoder struct {
	opts options
}

// NewCsvEncoder creates an encoder.
func NewCsvEncoder(opts ...Option) *CsvEncoder {
	return &CsvEncoder{opts: buildOptions(opts)}
}

// Generate encodes one line per record, CRLF joined, ISO-8859-1.
// There is no header line and no page limit.
func (e *CsvEncoder) Generate(records []types.TransactionRecord, cfg types.FormConfig) []byte {
	log := e.opts.logger.With(zap.String("form", "349_csv"))

	log.Info("Starting Form 349 CSV generation", zap.Int("records", len(records)))
	if len(records) == 0 {
		log.Warn("No intracomunitarias data found for Form 349 CSV")
		return nil
	}

	lines := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.KeyErr != nil {
			log.Warn("Skipping record with unparseable key", zap.String("key", rec.Key), zap.Error(rec.KeyErr))
			continue
		}
		lines = append(lines, csvLine(rec))
	}

	content := fixedwidth.EncodeLatin1(strings.Join(lines, lineSeparator))
	log.Info("Form 349 CSV generation completed",
		zap.Int("lines", len(lines)),
		zap.Int("bytes", len(content)),
	)
	return content
}

// csvLine renders the 14 fields of one record.
//
// The 13th field is labelled "total" by the receiving software but carries the
// taxable base, not base plus VAT. It is written exactly as the reference
// files do.
func csvLine(rec types.TransactionRecord) string {
	vat := rec.Parsed.BuyerVAT
	formattedBase := commaDecimal(rec.Base)

	fields := []string{
		countryFromVAT(vat),
		csvTransportCode,
		csvIncoterm,
		csvNatureCode,
		csvTransportMode,
		"",
		csvCommodityCode,
		rec.Parsed.Country,
		csvQuantity,
		rec.Base.Value.Truncate(0).String(),
		rec.VAT.Value.Truncate(0).String(),
		formattedBase,
		formattedBase,
		vat,
	}
	return strings.Join(fields, csvSeparator)
}

// countryFromVAT returns the first two characters of a VAT number.
func countryFromVAT(vat string) string {
	r := []rune(vat)
	if len(r) > 2 {
		r = r[:2]
	}
	return string(r)
}

// commaDecimal formats with two decimals, comma separator, no grouping.
func commaDecimal(a types.Amount) string {
	return strings.Replace(a.Value.StringFixed(2), ".", ",", 1)
}
