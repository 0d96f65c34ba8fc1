package types

import "fmt"

// Regime selects the Form 369 scheme being declared.
type Regime string

const (
	// RegimeMOSS is the EU (Union) OSS scheme.
	RegimeMOSS Regime = "MOSS"

	// RegimeVOES is the non-Union OSS scheme.
	RegimeVOES Regime = "VOES"

	// RegimeIMPO is the import OSS (IOSS) scheme.
	RegimeIMPO Regime = "IMPO"
)

// ParseRegime accepts exactly MOSS, VOES or IMPO.
func ParseRegime(s string) (Regime, error) {
	switch r := Regime(s); r {
	case RegimeMOSS, RegimeVOES, RegimeIMPO:
		return r, nil
	}
	return "", fmt.Errorf("unsupported regime %q", s)
}

// Defaults used when the corresponding FormConfig field is empty.
const (
	DefaultContactName       = "ADMINISTRACION"
	DefaultContactPhone      = "000000000"
	DefaultMaxRecordsPerPage = 28
	DefaultPaymentType       = "I"
)

// FormConfig is the immutable per-filing configuration handed to an encoder.
type FormConfig struct {
	// DeclarantNIF is the Spanish tax ID of the filer.
	DeclarantNIF string

	CompanyName  string
	ContactName  string
	ContactPhone string

	// Year is the fiscal year, four digits.
	Year string

	// Period is free text such as "T 1", "2025 T 1" or "M 3".
	Period      string
	IsQuarterly bool

	// MaxRecordsPerPage bounds the Form 349 operator records.
	MaxRecordsPerPage int

	// DeclarationSequence feeds the 13-digit declaration number.
	DeclarationSequence int

	// Form 369 only.
	Regime      Regime
	IOSSNumber  string
	PaymentType string
}

// WithDefaults returns a copy with empty optional fields filled in.
func (c FormConfig) WithDefaults() FormConfig {
	if c.ContactName == "" {
		c.ContactName = DefaultContactName
	}
	if c.ContactPhone == "" {
		c.ContactPhone = DefaultContactPhone
	}
	if c.MaxRecordsPerPage <= 0 {
		c.MaxRecordsPerPage = DefaultMaxRecordsPerPage
	}
	if c.DeclarationSequence <= 0 {
		c.DeclarationSequence = 1
	}
	if c.PaymentType == "" {
		c.PaymentType = DefaultPaymentType
	}
	return c
}
