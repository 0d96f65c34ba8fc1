// =============================================================================
// Spanish Tax Forms - Converter Module
// =============================================================================
//
// This module contains the per-file pipeline. It takes one aggregated input
// file from ingestion to the written presentation files.
//
// CONVERSION PIPELINE:
//   1. Ingest the input file (.csv or .xlsx)
//   2. Resolve the reporting period
//   3. Form 349: validate, drop unusable records, generate both formats
//   4. Form 369: select the regime, validate, generate
//   5. Abort on findings when strict validation is enabled
//   6. Write the outputs and the error log
//   7. Archive the input file
//
// CONCURRENCY:
//   A Converter handles a single file and shares nothing with other
//   converters, so the CLI runs one per goroutine.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ginjaninja78/spanish-tax-forms/internal/config"
	"github.com/ginjaninja78/spanish-tax-forms/internal/form349"
	"github.com/ginjaninja78/spanish-tax-forms/internal/form369"
	"github.com/ginjaninja78/spanish-tax-forms/internal/types"
	"github.com/ginjaninja78/spanish-tax-forms/internal/validation"
	"github.com/ginjaninja78/spanish-tax-forms/pkg/utils"
)

// Output file identifiers used in file names.
const (
	OutputForm349    = "349"
	OutputForm349CSV = "349_csv"
	OutputForm369    = "369"
)

var (
	// ErrNoFormData is returned when the file holds no data for any requested form.
	ErrNoFormData = errors.New("no data for the requested forms")

	// ErrNoValidForm349Data is returned when every intracommunity record was filtered out.
	ErrNoValidForm349Data = errors.New("no valid data for Form 349 after filtering")

	// ErrStrictValidation is returned when strict validation finds problems.
	ErrStrictValidation = errors.New("validation failed")
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// RunID identifies this run in logs and the error log.
	RunID string

	// Outputs lists the generated files. Path is empty on a dry run.
	Outputs []Output

	// Findings holds one report per validated form, plus rejected input rows.
	Findings []validation.Report

	// ArchivePath is where the input file was moved, if it was.
	ArchivePath string

	// ErrorLog is the path of the written error log, if any.
	ErrorLog string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// Output describes one generated presentation file.
type Output struct {
	Form    string
	Name    string
	Path    string
	Bytes   int
	Records int
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsIngested is the number of aggregate rows read from the input.
	RowsIngested int

	// RowErrors is the number of rows the parser rejected.
	RowErrors int

	// RecordsSkipped is the number of Form 349 records dropped before generation.
	RecordsSkipped int

	// ValidationFindings is the number of validator findings.
	ValidationFindings int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter handles the generation of tax forms from a single input file.
type Converter struct {
	inputPath string
	cfg       *config.MainConfig
	files     *utils.FileManager
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a new Converter instance.
//
// PARAMETERS:
//   - inputPath: The path to the input file.
//   - cfg: The main configuration, already validated.
//   - logger: The logger; nil disables logging.
func New(inputPath string, cfg *config.MainConfig, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		inputPath: inputPath,
		cfg:       cfg,
		files:     utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.ErrorDir),
		logger:    logger,
		now:       time.Now,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for the file.
func (c *Converter) Run() Result {
	startTime := c.now()
	result := Result{
		FilePath: c.inputPath,
		RunID:    uuid.New().String(),
	}
	log := c.logger.With(zap.String("file", c.inputPath), zap.String("run_id", result.RunID))

	err := c.run(&result, log)
	result.Stats.ProcessingTime = c.now().Sub(startTime)
	if err != nil {
		result.Error = err
		log.Error("Processing failed", zap.Error(err))
		return result
	}

	result.Success = true
	log.Info("Processing complete",
		zap.Int("outputs", len(result.Outputs)),
		zap.Int("findings", result.Stats.ValidationFindings),
		zap.Duration("elapsed", result.Stats.ProcessingTime))
	return result
}

func (c *Converter) run(result *Result, log *zap.Logger) error {
	log.Info("Processing file")

	// =========================================================================
	// STEP 1: INGEST
	// =========================================================================

	dataset, rowErrors, err := Ingest(c.inputPath, c.cfg.CSVSettings)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	result.Stats.RowsIngested = len(dataset.Intracom) + len(dataset.OSS) + len(dataset.IOSS)
	result.Stats.RowErrors = len(rowErrors)
	for _, re := range rowErrors {
		log.Warn("Rejected input row", zap.String("source", re.Source), zap.Int("row", re.Row), zap.Error(re.Err))
	}
	if len(rowErrors) > 0 {
		result.Findings = append(result.Findings, validation.RowErrorReport(rowErrors))
	}

	// =========================================================================
	// STEP 2: PERIOD
	// =========================================================================

	info := ResolvePeriod(c.cfg.Declarant, dataset, c.now())
	formCfg := c.cfg.Declarant.ToFormConfig()
	formCfg.Year = info.Year
	formCfg.Period = info.Period
	formCfg.IsQuarterly = info.Quarterly
	log.Debug("Resolved reporting period", zap.String("period", info.Label()), zap.Bool("quarterly", info.Quarterly))

	// =========================================================================
	// STEP 3-4: GENERATE
	// =========================================================================

	var pending []pendingOutput
	want349 := c.cfg.WantsForm(config.FormModel349) || c.cfg.WantsForm(config.FormModel349CSV)
	want369 := c.cfg.WantsForm(config.FormModel369)

	if want349 && len(dataset.Intracom) > 0 {
		outputs, err := c.generate349(dataset, formCfg, result, log)
		if err != nil {
			return err
		}
		pending = append(pending, outputs...)
	}

	if want369 && (len(dataset.OSS) > 0 || len(dataset.IOSS) > 0) {
		output, err := c.generate369(dataset, formCfg, result, log)
		if err != nil {
			return err
		}
		pending = append(pending, output)
	}

	if len(pending) == 0 {
		return ErrNoFormData
	}

	result.Stats.ValidationFindings = validation.Count(result.Findings)

	// =========================================================================
	// STEP 5: STRICT VALIDATION
	// =========================================================================

	if result.Stats.ValidationFindings > 0 {
		log.Warn("Validation reported findings", zap.Int("count", result.Stats.ValidationFindings))
		if !c.cfg.DryRun {
			result.ErrorLog = c.files.ErrorLogPath(c.inputPath)
			if err := validation.WriteErrorLog(result.Findings, c.inputPath, result.ErrorLog); err != nil {
				log.Warn("Failed to write error log", zap.Error(err))
				result.ErrorLog = ""
			}
		}
		if c.cfg.StrictValidation {
			return fmt.Errorf("%w with %d finding(s)", ErrStrictValidation, result.Stats.ValidationFindings)
		}
	}

	// =========================================================================
	// STEP 6: WRITE OUTPUTS
	// =========================================================================

	params := map[string]string{"year": info.Year, "period": info.Period}
	for _, p := range pending {
		params["form"] = p.Form
		out := Output{
			Form:    p.Form,
			Name:    utils.GenerateOutputFileName(c.cfg.OutputFormat, params),
			Bytes:   len(p.Content),
			Records: p.Records,
		}
		if !c.cfg.DryRun {
			path, err := c.files.WriteOutput(out.Name, p.Content)
			if err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			out.Path = path
			log.Info("Wrote output", zap.String("form", out.Form), zap.String("path", path), zap.Int("bytes", out.Bytes))
		}
		result.Outputs = append(result.Outputs, out)
	}

	if c.cfg.DryRun {
		log.Info("Dry run, nothing written")
		return nil
	}

	// =========================================================================
	// STEP 7: ARCHIVE
	// =========================================================================

	archivePath, err := c.files.ArchiveInputFile(c.inputPath)
	if err != nil {
		// The outputs exist already, so archival problems are not fatal.
		log.Warn("Failed to archive input file", zap.Error(err))
		return nil
	}
	result.ArchivePath = archivePath
	return nil
}

// pendingOutput is generated content waiting to be named and written.
type pendingOutput struct {
	Form    string
	Content []byte
	Records int
}

// generate349 validates the intracommunity records, drops those the encoders
// cannot use and renders the requested Form 349 formats.
func (c *Converter) generate349(dataset *types.Dataset, cfg types.FormConfig, result *Result, log *zap.Logger) ([]pendingOutput, error) {
	var forms []string
	if c.cfg.WantsForm(config.FormModel349) {
		forms = append(forms, config.FormModel349)
	}
	if c.cfg.WantsForm(config.FormModel349CSV) {
		forms = append(forms, config.FormModel349CSV)
	}
	result.Findings = append(result.Findings, validation.Run(dataset, forms)...)

	records := filter349(dataset.Intracom)
	skipped := len(dataset.Intracom) - len(records)
	result.Stats.RecordsSkipped = skipped
	log.Info("Filtered Form 349 data", zap.Int("valid", len(records)), zap.Int("skipped", skipped))
	if len(records) == 0 {
		return nil, ErrNoValidForm349Data
	}

	var outputs []pendingOutput
	if c.cfg.WantsForm(config.FormModel349) {
		content := form349.NewFixedWidthEncoder(form349.WithLogger(log)).Generate(records, cfg)
		// The fixed-width file holds a single page of operators.
		written := min(len(records), cfg.WithDefaults().MaxRecordsPerPage)
		outputs = append(outputs, pendingOutput{Form: OutputForm349, Content: content, Records: written})
	}
	if c.cfg.WantsForm(config.FormModel349CSV) {
		content := form349.NewCsvEncoder(form349.WithLogger(log)).Generate(records, cfg)
		outputs = append(outputs, pendingOutput{Form: OutputForm349CSV, Content: content, Records: len(records)})
	}
	return outputs, nil
}

// filter349 keeps the records with a positive base and a well-formed key.
func filter349(records []types.TransactionRecord) []types.TransactionRecord {
	kept := make([]types.TransactionRecord, 0, len(records))
	for _, rec := range records {
		if rec.KeyErr != nil || rec.Base.Value.Sign() <= 0 {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

func (c *Converter) generate369(dataset *types.Dataset, cfg types.FormConfig, result *Result, log *zap.Logger) (pendingOutput, error) {
	regime := SelectRegime(c.cfg.Declarant.Regime, dataset)
	if err := c.cfg.ValidateRegime(regime); err != nil {
		return pendingOutput{}, fmt.Errorf("invalid regime: %w", err)
	}
	cfg.Regime = regime
	log.Debug("Selected Form 369 regime", zap.String("regime", string(regime)))

	result.Findings = append(result.Findings, validation.Run(dataset, []string{config.FormModel369})...)

	content, err := form369.NewEncoder(form369.WithLogger(log)).Generate(dataset.OSS, dataset.IOSS, cfg)
	if err != nil {
		return pendingOutput{}, err
	}
	return pendingOutput{
		Form:    OutputForm369,
		Content: content,
		Records: len(dataset.OSS) + len(dataset.IOSS),
	}, nil
}
