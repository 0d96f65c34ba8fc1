// =============================================================================
// Spanish Tax Forms - Modelo 349 (Intracomunitarias)
// =============================================================================
//
// This package produces the two Modelo 349 outputs:
//   - the official fixed-width file: one header record (tipo 1) followed by
//     operator records (tipo 2), every record exactly 500 characters
//   - a semicolon-delimited alternative accepted by some tax software
//
// Both encoders are stateless. They never fail on an individual record:
// records whose key cannot be parsed are skipped and logged. Validation is a
// separate step (see Validate) that callers run before trusting a file.
//
// =============================================================================

package form349

import (
	"go.uber.org/zap"
)

const (
	// RecordLength is the length of every fixed-width record.
	RecordLength = 500

	// FormCode is the model number written into each record.
	FormCode = "349"

	// OperationKey E: exempt intra-community supply of goods.
	OperationKey = "E"

	lineSeparator = "\r\n"
)

// Option configures an encoder.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger routes diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
