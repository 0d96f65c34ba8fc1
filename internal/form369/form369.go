// =============================================================================
// Spanish Tax Forms - Modelo 369 (OSS / IOSS)
// =============================================================================
//
// This package produces the Modelo 369 presentation file, a tagged document
// of fixed-size sections:
//
//   <T369{year}{period}0000>   header, NIF at offset 84, <T36900> at 204
//   <T369NN>...</T369NN>       one main section and its fillers per regime
//   </T369{year}{period}0000>  footer
//
// REGIMES:
//   MOSS  Union scheme      main T36904, fillers T36905..T36909, OSS data
//   VOES  non-Union scheme  main T36901, fillers T36902..T36903, OSS data
//   IMPO  import scheme     main T36910, fillers T36911..T36912, IOSS data
//
// Every section is SectionLength characters from its opening tag to its
// closing tag. A main section holds at most MaxRecordsPerSection VAT entries;
// the complementary flag is raised when the filing has more entries than
// that, but no continuation pages are produced.
//
// =============================================================================

package form369

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	// SectionLength is the length of every section, tags included.
	SectionLength = 2100

	// MaxRecordsPerSection bounds the VAT entries of a main section.
	MaxRecordsPerSection = 28

	// PlaceholderIOSSNumber is written for IMPO filings without an IOSS number.
	PlaceholderIOSSNumber = "IM1234567890"

	// HeaderSectionTag is the mandatory empty section closing the header.
	HeaderSectionTag = "T36900"
)

// ErrUnsupportedRegime is returned, wrapped in a GenerationError, when the
// configured regime is not MOSS, VOES or IMPO.
var ErrUnsupportedRegime = errors.New("unsupported regime")

// GenerationError reports a configuration problem that prevents generation.
type GenerationError struct {
	Regime string
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("form 369 generation failed for regime %q: %v", e.Regime, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithLogger routes diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Encoder) {
		if logger != nil {
			e.logger = logger
		}
	}
}
