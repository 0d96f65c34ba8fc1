package form369

import (
	"github.com/ginjaninja78/spanish-tax-forms/internal/fixedwidth"
	"github.com/ginjaninja78/spanish-tax-forms/internal/period"
	"github.com/ginjaninja78/spanish-tax-forms/internal/types"
	"github.com/ginjaninja78/spanish-tax-forms/internal/xmlwriter"
	"go.uber.org/zap"
)

// Header and section offsets, counted from the start of their opening tag.
const (
	headerNIFOffset     = 84
	headerSectionOffset = 204
	complementaryOffset = 41
)

// dataSource selects which collection feeds the main section.
type dataSource int

const (
	fromOSS dataSource = iota
	fromIOSS
)

// layout describes the sections emitted for one regime.
type layout struct {
	main    string
	label   string
	fillers []string
	source  dataSource
}

var layouts = map[types.Regime]layout{
	types.RegimeMOSS: {
		main:    "T36904",
		label:   "MOSS DO",
		fillers: []string{"T36905", "T36906", "T36907", "T36908", "T36909"},
		source:  fromOSS,
	},
	types.RegimeVOES: {
		main:    "T36901",
		label:   "VOES DO",
		fillers: []string{"T36902", "T36903"},
		source:  fromOSS,
	},
	types.RegimeIMPO: {
		main:    "T36910",
		label:   "IMPO DO",
		fillers: []string{"T36911", "T36912"},
		source:  fromIOSS,
	},
}

// Encoder writes Modelo 369 files. It holds no per-call state.
type Encoder struct {
	logger *zap.Logger
}

// NewEncoder creates an encoder.
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate encodes the OSS and IOSS aggregates for the configured regime.
//
// PARAMETERS:
//   - oss: Union and non-Union OSS entries, used by MOSS and VOES.
//   - ioss: import OSS entries, used by IMPO.
//   - cfg: declarant, period and regime.
//
// RETURNS:
//   - an empty buffer and no error when both collections are empty.
//   - a *GenerationError wrapping ErrUnsupportedRegime, and no buffer, when
//     cfg.Regime is unknown.
//   - otherwise the ISO-8859-1 encoded document.
func (e *Encoder) Generate(oss, ioss []types.OssEntry, cfg types.FormConfig) ([]byte, error) {
	log := e.logger.With(zap.String("form", "369"), zap.String("regime", string(cfg.Regime)))
	cfg = cfg.WithDefaults()

	log.Info("Starting Form 369 generation", zap.Int("oss", len(oss)), zap.Int("ioss", len(ioss)))
	if len(oss) == 0 && len(ioss) == 0 {
		log.Warn("No OSS/IOSS data found for Form 369")
		return []byte{}, nil
	}

	l, ok := layouts[cfg.Regime]
	if !ok {
		return nil, &GenerationError{Regime: string(cfg.Regime), Err: ErrUnsupportedRegime}
	}

	entries := oss
	if l.source == fromIOSS {
		entries = ioss
	}
	complementary := len(oss)+len(ioss) > MaxRecordsPerSection
	year := period.ExtractYear(cfg.Period, cfg.Year)

	doc := xmlwriter.NewDocument(documentTag(cfg, year))
	doc.Header().
		PadTo(headerNIFOffset).
		Alpha("declarant_nif", cfg.DeclarantNIF, 9).
		PadTo(headerSectionOffset).
		Text(xmlwriter.Empty(HeaderSectionTag))

	doc.Add(e.mainSection(l, cfg, entries, year, complementary, log))
	for _, tag := range l.fillers {
		doc.Add(xmlwriter.NewSection(tag, SectionLength))
	}

	for _, o := range doc.Overflows() {
		log.Warn("Field truncated to its width",
			zap.String("field", o.Field),
			zap.String("value", o.Value),
			zap.Int("width", o.Width),
		)
	}

	content := fixedwidth.EncodeLatin1(doc.String())
	log.Info("Form 369 generation completed",
		zap.Int("sections", len(doc.Sections())),
		zap.Int("bytes", len(content)),
	)
	return content, nil
}

// documentTag is the root element name, e.g. "T36920251T0000".
func documentTag(cfg types.FormConfig, year string) string {
	return "T369" + year + period.HeaderCode(cfg.Period, cfg.IsQuarterly) + "0000"
}

// mainSection writes the declarant block followed by the VAT entries.
func (e *Encoder) mainSection(l layout, cfg types.FormConfig, entries []types.OssEntry, year string, complementary bool, log *zap.Logger) *xmlwriter.Section {
	s := xmlwriter.NewSection(l.main, SectionLength)
	w := s.Body()

	flag := " "
	if complementary {
		flag = "C"
	}
	w.Text(l.label).PadTo(complementaryOffset).Text(flag)

	w.Text(" ES").Alpha("declarant_nif", cfg.DeclarantNIF, 9)
	switch cfg.Regime {
	case types.RegimeVOES:
		w.Blank(6).Alpha("ioss_number", cfg.IOSSNumber, 12)
	case types.RegimeIMPO:
		ioss := cfg.IOSSNumber
		if ioss == "" {
			log.Warn("IOSS number missing for IMPO regime, using placeholder",
				zap.String("placeholder", PlaceholderIOSSNumber))
			ioss = PlaceholderIOSSNumber
		}
		w.Blank(3).Alpha("ioss_number", ioss, 12)
	default:
		w.Blank(6)
	}

	w.Alpha("company_name", xmlwriter.Sanitize(cfg.CompanyName), 80).
		Text(period.DataPeriod(cfg.Period, cfg.IsQuarterly, year)).
		Blank(15).
		Text(noActivityFlag(entries))

	written := 0
	for i, entry := range entries {
		if entry.KeyErr != nil {
			log.Warn("Could not parse OSS key", zap.String("key", entry.Key), zap.Error(entry.KeyErr))
			continue
		}
		if written >= MaxRecordsPerSection {
			log.Warn("Reached maximum VAT entries for Form 369 section",
				zap.String("section", l.main),
				zap.Int("max_records_per_section", MaxRecordsPerSection),
				zap.Int("dropped", len(entries)-i),
			)
			break
		}
		writeVatEntry(w, entry)
		written++
	}

	return s
}

// writeVatEntry writes one 51-character entry:
// destination (2), blank, rate code and type padded to 17, base cents (10),
// 13 blanks, VAT cents (8).
func writeVatEntry(w *fixedwidth.Writer, entry types.OssEntry) {
	w.Field("destination", entry.Parsed.Destination, 2, fixedwidth.Right, ' ').
		Blank(1).
		Alpha("vat_rate", entry.Parsed.RateCodeString()+entry.Parsed.RateType(), 17).
		Number("base_amount", entry.Base.Cents(), 10).
		Blank(13).
		Number("vat_amount", entry.VAT.Cents(), 8)
}

// noActivityFlag is "1" when the declaration has no activity.
func noActivityFlag(entries []types.OssEntry) string {
	for _, entry := range entries {
		if entry.HasActivity() {
			return "0"
		}
	}
	return "1"
}
