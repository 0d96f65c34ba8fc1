// =============================================================================
// Spanish Tax Forms - Configuration Module
// =============================================================================
//
// This module is responsible for loading the main configuration file, applying
// environment overrides and validating the declarant data before any form is
// generated.
//
// CONFIGURATION SOURCES (later sources win):
//   1. Main Config (config.yaml): directories, logging, processing switches
//      and the declarant block
//   2. Environment file (.env, optional): loaded into the process environment
//   3. Environment variables: TAXFORMS_DECLARANT_NIF, TAXFORMS_COMPANY_NAME,
//      TAXFORMS_IOSS_NUMBER, TAXFORMS_LOG_LEVEL
//
// Validation failures are reported as *FieldError values that wrap
// ErrInvalidConfig, joined so that every problem is reported at once.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/spanish-tax-forms/internal/types"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for .csv and .xlsx files when no input is given.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the generated presentation files.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives input files after successful processing.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// ErrorDir receives the validation error logs.
	// Default: "./errors"
	ErrorDir string `yaml:"error_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path to the application log file. The run summary is
	// written to the same directory.
	// Default: "./logs/taxforms.log"
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "console" or "json".
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputFormat defines the output file names.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {form}      - Form identifier (349, 349_csv, 369)
	//   {year}      - Fiscal year
	//   {period}    - Period without spaces (T3, M12)
	// Default: "modelo_{form}_{year}_{period}.txt"
	OutputFormat string `yaml:"output_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files processed concurrently.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps processing other files when one fails.
	ContinueOnError bool `yaml:"continue_on_error"`

	// DryRun runs ingestion, validation and generation but writes nothing.
	DryRun bool `yaml:"dry_run"`

	// StrictValidation aborts a file when any validator reports a finding.
	StrictValidation bool `yaml:"strict_validation"`

	// Forms lists the outputs to generate: "349", "349csv", "369".
	// Default: all three.
	Forms []string `yaml:"forms"`

	// CSVSettings controls parsing of aggregated CSV input.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// Declarant is the filer's identity and the filing defaults.
	Declarant DeclarantConfig `yaml:"declarant"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV input.
type CSVSettings struct {
	// Delimiter separates fields. Default: ";"
	Delimiter string `yaml:"delimiter"`

	// Encoding is "UTF-8" or "ISO-8859-1". Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// HasHeader skips the first row. Default: true
	HasHeader bool `yaml:"has_header"`
}

// =============================================================================
// DECLARANT STRUCTURE
// =============================================================================

// DeclarantConfig identifies the filer.
type DeclarantConfig struct {
	NIF          string `yaml:"nif"`
	CompanyName  string `yaml:"company_name"`
	ContactName  string `yaml:"contact_name"`
	ContactPhone string `yaml:"contact_phone"`

	AddressLine1 string `yaml:"address_line1"`
	AddressLine2 string `yaml:"address_line2"`
	PostalCode   string `yaml:"postal_code"`
	City         string `yaml:"city"`
	Province     string `yaml:"province"`

	// IOSSNumber is required for the IMPO regime.
	IOSSNumber string `yaml:"ioss_number"`

	// Year and Period override what is derived from the input data.
	Year   string `yaml:"year"`
	Period string `yaml:"period"`

	// PeriodType is "quarterly" or "monthly". Default: "quarterly"
	PeriodType string `yaml:"period_type"`

	// Regime is MOSS, VOES or IMPO. Empty selects it from the data.
	Regime string `yaml:"regime"`

	// PaymentType is one of O, S, I, N, T. Default: "I"
	PaymentType string `yaml:"payment_type"`

	MaxRecordsPerPage   int `yaml:"max_records_per_page"`
	DeclarationSequence int `yaml:"declaration_sequence"`
}

// Quarterly reports whether the declarant files quarterly.
func (d DeclarantConfig) Quarterly() bool {
	return d.PeriodType != periodMonthly
}

// ToFormConfig converts the declarant block into the encoder configuration.
// Period resolution and regime selection are left to the caller.
func (d DeclarantConfig) ToFormConfig() types.FormConfig {
	return types.FormConfig{
		DeclarantNIF:        d.NIF,
		CompanyName:         d.CompanyName,
		ContactName:         d.ContactName,
		ContactPhone:        d.ContactPhone,
		Year:                d.Year,
		Period:              d.Period,
		IsQuarterly:         d.Quarterly(),
		MaxRecordsPerPage:   d.MaxRecordsPerPage,
		DeclarationSequence: d.DeclarationSequence,
		Regime:              types.Regime(d.Regime),
		IOSSNumber:          d.IOSSNumber,
		PaymentType:         d.PaymentType,
	}.WithDefaults()
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// Environment variables that override the YAML file.
const (
	EnvDeclarantNIF = "TAXFORMS_DECLARANT_NIF"
	EnvCompanyName  = "TAXFORMS_COMPANY_NAME"
	EnvIOSSNumber   = "TAXFORMS_IOSS_NUMBER"
	EnvLogLevel     = "TAXFORMS_LOG_LEVEL"
)

const (
	periodQuarterly = "quarterly"
	periodMonthly   = "monthly"
)

// LoadEnvFile loads path into the process environment. A missing file is
// not an error; variables already set are not overwritten.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides copies the TAXFORMS_* variables into config.
func applyEnvOverrides(config *MainConfig) {
	overrides := map[string]*string{
		EnvDeclarantNIF: &config.Declarant.NIF,
		EnvCompanyName:  &config.Declarant.CompanyName,
		EnvIOSSNumber:   &config.Declarant.IOSSNumber,
		EnvLogLevel:     &config.LogLevel,
	}
	for name, field := range overrides {
		if value, ok := os.LookupEnv(name); ok && value != "" {
			*field = value
		}
	}
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct, defaults applied and environment
//     overrides merged.
//   - An error if the file cannot be read or parsed, or if validation fails.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseMainConfig(data)
}

// ParseMainConfig is LoadMainConfig for in-memory YAML.
func ParseMainConfig(data []byte) (*MainConfig, error) {
	// Booleans that default to true are preset; yaml leaves absent keys alone.
	config := MainConfig{CSVSettings: CSVSettings{HasHeader: true}}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)
	applyMainConfigDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.ErrorDir == "" {
		config.ErrorDir = "./errors"
	}
	if config.LogFile == "" {
		config.LogFile = "./logs/taxforms.log"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
	if config.OutputFormat == "" {
		config.OutputFormat = "modelo_{form}_{year}_{period}.txt"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if len(config.Forms) == 0 {
		config.Forms = []string{FormModel349, FormModel349CSV, FormModel369}
	}
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ";"
	}
	if config.CSVSettings.Encoding == "" {
		config.CSVSettings.Encoding = "UTF-8"
	}
	if config.Declarant.PeriodType == "" {
		config.Declarant.PeriodType = periodQuarterly
	}
	if config.Declarant.PaymentType == "" {
		config.Declarant.PaymentType = types.DefaultPaymentType
	}
}

// Form identifiers accepted in MainConfig.Forms.
const (
	FormModel349    = "349"
	FormModel349CSV = "349csv"
	FormModel369    = "369"
)

// WantsForm reports whether form is enabled.
func (c *MainConfig) WantsForm(form string) bool {
	for _, f := range c.Forms {
		if f == form {
			return true
		}
	}
	return false
}

// =============================================================================
// VALIDATION
// =============================================================================

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// FieldError names the offending configuration field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidConfig
}

var (
	nifPattern  = regexp.MustCompile(`^[ABCDEFGHJNPQRSUVW]\d{8}$|^\d{8}[TRWAGMYFPDXBNJZSQVHLCKE]$`)
	iossPattern = regexp.MustCompile(`^IM\d{10}$`)
	yearPattern = regexp.MustCompile(`^\d{4}$`)
)

var paymentTypes = map[string]bool{"O": true, "S": true, "I": true, "N": true, "T": true}

// delimiterNames are the spelled-out delimiters understood by the CSV parser.
var delimiterNames = map[string]bool{"\\t": true, "tab": true, "TAB": true, "pipe": true, "PIPE": true, "comma": true}

// Validate checks the configuration and returns all problems joined.
func (c *MainConfig) Validate() error {
	var errs []error
	fail := func(field, format string, args ...interface{}) {
		errs = append(errs, &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	d := c.Declarant
	if !nifPattern.MatchString(d.NIF) {
		fail("declarant.nif", "invalid Spanish NIF format: %q", d.NIF)
	}
	if strings.TrimSpace(d.CompanyName) == "" {
		fail("declarant.company_name", "company name is required")
	}
	for _, r := range []struct{ field, value string }{
		{"declarant.address_line1", d.AddressLine1},
		{"declarant.postal_code", d.PostalCode},
		{"declarant.city", d.City},
		{"declarant.province", d.Province},
	} {
		if strings.TrimSpace(r.value) == "" {
			fail(r.field, "value is required")
		}
	}
	if d.Year != "" && !yearPattern.MatchString(d.Year) {
		fail("declarant.year", "year must have 4 digits: %q", d.Year)
	}
	if d.PeriodType != periodQuarterly && d.PeriodType != periodMonthly {
		fail("declarant.period_type", "invalid period type: %q", d.PeriodType)
	}
	if d.IOSSNumber != "" && !iossPattern.MatchString(d.IOSSNumber) {
		fail("declarant.ioss_number", "invalid IOSS number format: %q", d.IOSSNumber)
	}
	if d.Regime != "" {
		regime, err := types.ParseRegime(d.Regime)
		if err != nil {
			fail("declarant.regime", "%v", err)
		} else if regime == types.RegimeIMPO && d.IOSSNumber == "" {
			fail("declarant.ioss_number", "IOSS number required for IMPO regime")
		}
	}
	if !paymentTypes[d.PaymentType] {
		fail("declarant.payment_type", "invalid payment type: %q", d.PaymentType)
	}

	for _, form := range c.Forms {
		switch form {
		case FormModel349, FormModel349CSV, FormModel369:
		default:
			fail("forms", "unknown form %q", form)
		}
	}
	switch strings.ToUpper(c.CSVSettings.Encoding) {
	case "UTF-8", "UTF8", "ISO-8859-1", "LATIN1":
	default:
		fail("csv_settings.encoding", "unsupported encoding %q", c.CSVSettings.Encoding)
	}
	if !delimiterNames[c.CSVSettings.Delimiter] && len([]rune(c.CSVSettings.Delimiter)) != 1 {
		fail("csv_settings.delimiter", "delimiter must be a single character")
	}

	return errors.Join(errs...)
}

// ValidateRegime checks a regime chosen at run time (flag or auto-selection)
// against the declarant data.
func (c *MainConfig) ValidateRegime(regime types.Regime) error {
	if _, err := types.ParseRegime(string(regime)); err != nil {
		return &FieldError{Field: "regime", Reason: err.Error()}
	}
	if regime == types.RegimeIMPO && c.Declarant.IOSSNumber == "" {
		return &FieldError{Field: "declarant.ioss_number", Reason: "IOSS number required for IMPO regime"}
	}
	return nil
}
