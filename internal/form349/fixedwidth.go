package form349

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/spanish-tax-forms/internal/fixedwidth"
	"github.com/ginjaninja78/spanish-tax-forms/internal/period"
	"github.com/ginjaninja78/spanish-tax-forms/internal/types"
	"go.uber.org/zap"
)

// FixedWidthEncoder writes the official Modelo 349 fixed-width file.
type FixedWidthEncoder struct {
	opts options
}

// NewFixedWidthEncoder creates an encoder.
func NewFixedWidthEncoder(opts ...Option) *FixedWidthEncoder {
	return &FixedWidthEncoder{opts: buildOptions(opts)}
}

// Generate encodes records into the ISO-8859-1 fixed-width file.
//
// PARAMETERS:
//   - records: the aggregated intra-community sales, in filing order.
//   - cfg: the declarant and period configuration.
//
// RETURNS:
//   - nil when records is empty (nothing to file).
//   - otherwise one header record and at most cfg.MaxRecordsPerPage operator
//     records, CRLF joined. Records beyond the page limit are dropped: this
//     encoder does not produce complementary pages.
func (e *FixedWidthEncoder) Generate(records []types.TransactionRecord, cfg types.FormConfig) []byte {
	log := e.opts.logger.With(zap.String("form", "349"))
	cfg = cfg.WithDefaults()

	log.Info("Starting Form 349 generation", zap.Int("records", len(records)))
	if len(records) == 0 {
		log.Warn("No intracomunitarias data found for Form 349")
		return nil
	}

	included := selectForPage(records, cfg.MaxRecordsPerPage, log)

	lines := make([]string, 0, len(included)+1)
	lines = append(lines, e.headerRecord(included, cfg, log))
	for _, rec := range included {
		lines = append(lines, e.operatorRecord(rec, cfg, log))
	}

	content := fixedwidth.EncodeLatin1(strings.Join(lines, lineSeparator))
	log.Info("Form 349 generation completed",
		zap.Int("lines", len(lines)),
		zap.Int("bytes", len(content)),
	)
	return content
}

// selectForPage keeps the records that fit the first page, skipping records
// whose key did not parse.
func selectForPage(records []types.TransactionRecord, limit int, log *zap.Logger) []types.TransactionRecord {
	included := make([]types.TransactionRecord, 0, min(len(records), limit))
	for i, rec := range records {
		if rec.KeyErr != nil {
			log.Warn("Skipping record with unparseable key", zap.String("key", rec.Key), zap.Error(rec.KeyErr))
			continue
		}
		if len(included) >= limit {
			log.Warn("Reached maximum records per page for Form 349",
				zap.Int("max_records_per_page", limit),
				zap.Int("dropped", len(records)-i),
			)
			break
		}
		included = append(included, rec)
	}
	return included
}

// headerRecord builds TIPO DE REGISTRO 1.
func (e *FixedWidthEncoder) headerRecord(included []types.TransactionRecord, cfg types.FormConfig, log *zap.Logger) string {
	// The total is summed in euros and rounded once, not per record.
	total := decimal.Zero
	for _, rec := range included {
		total = total.Add(rec.Base.Value)
	}
	totalCents := types.NewAmount(total).Cents()

	w := fixedwidth.NewWriter()

	// 1-17: record type, model, year, declarant NIF.
	w.Text("1").Text(FormCode)
	writeDeclarant(w, cfg)

	// 18-107: declarant name, blank, phone, contact person.
	w.Alpha("company_name", cfg.CompanyName, 40).
		Blank(1).
		Field("contact_phone", cfg.ContactPhone, 9, fixedwidth.Right, '0').
		Alpha("contact_name", cfg.ContactName, 40)

	// 108-135: declaration number, complementary/substitutive flag, previous declaration.
	w.Text(FormCode).
		Number("declaration_sequence", int64(cfg.DeclarationSequence), 10).
		Blank(2).
		Zeros(13)

	// 136-161: period, operator count, total amount (13 euros + 2 cents).
	w.Alpha("period", period.Form349Code(cfg.Period), 2).
		Number("operator_count", int64(len(included)), 9).
		Number("total_euros", totalCents/100, 13).
		Number("total_cents", totalCents%100, 2)

	// 162-186: corrections (none), periodicity change indicator.
	w.Zeros(9).Zeros(15).Blank(1)

	// 187-500: blanks, legal representative NIF (blank), blanks.
	w.Blank(204).Blank(9).Blank(101)

	logOverflows(log, "header", w)
	return w.Fixed(RecordLength)
}

// operatorRecord builds TIPO DE REGISTRO 2 for one buyer.
func (e *FixedWidthEncoder) operatorRecord(rec types.TransactionRecord, cfg types.FormConfig, log *zap.Logger) string {
	w := fixedwidth.NewWriter()

	// 1-17: record type, model, year, declarant NIF.
	w.Text("2").Text(FormCode)
	writeDeclarant(w, cfg)

	// 18-75: blanks.
	w.Blank(58)

	// 76-133: operator VAT, operator name, operation key.
	w.Alpha("operator_vat", rec.Parsed.BuyerVAT, 17).
		Alpha("operator_name", fixedwidth.CleanName(rec.Parsed.BuyerName), 40).
		Text(OperationKey)

	// 134-146: taxable base in cents.
	w.Number("base_amount", rec.Base.Cents(), 13)

	// 147-500: blanks, final destination VAT (only for key C), blanks.
	w.Blank(32).Blank(17).Blank(305)

	logOverflows(log, rec.Key, w)
	return w.Fixed(RecordLength)
}

func writeDeclarant(w *fixedwidth.Writer, cfg types.FormConfig) {
	w.Field("year", cfg.Year, 4, fixedwidth.Right, '0').
		Field("declarant_nif", cfg.DeclarantNIF, 9, fixedwidth.Right, '0')
}

func logOverflows(log *zap.Logger, record string, w *fixedwidth.Writer) {
	for _, o := range w.Overflows() {
		log.Warn("Field truncated to its width",
			zap.String("record", record),
			zap.String("field", o.Field),
			zap.String("value", o.Value),
			zap.Int("width", o.Width),
		)
	}
}
