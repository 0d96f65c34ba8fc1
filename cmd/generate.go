// =============================================================================
// Spanish Tax Forms - Generate Command
// =============================================================================
//
// This file defines the 'generate' command, the main command of the tool. It
// runs the per-file pipeline over one input file or the whole input directory.
//
// COMMAND USAGE:
//   taxforms generate [flags]
//
// FLAGS:
//   --form      : Forms to generate: 349, 349csv, 369 or all (repeatable)
//   --input     : Process a single file instead of the input directory
//   --dry-run   : Generate and validate without writing anything
//   --strict    : Abort a file when validation reports findings
//   --regime    : Form 369 regime (MOSS, VOES, IMPO); default is automatic
//   --period    : Reporting period, e.g. "T 3", "2025 T 3" or "M 7"
//
// PROCESSING PIPELINE:
//   1. Load configuration and apply flag overrides
//   2. Discover input files
//   3. Run one converter per file, at most max_concurrency at a time
//   4. Collect the results and write the summary report
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/spanish-tax-forms/internal/config"
	"github.com/ginjaninja78/spanish-tax-forms/internal/converter"
	"github.com/ginjaninja78/spanish-tax-forms/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// generateOptions holds the flag values that override the configuration.
type generateOptions struct {
	forms  []string
	input  string
	dryRun bool
	strict bool
	regime string
	period string
}

var generateOpts generateOptions

// =============================================================================
// GENERATE COMMAND DEFINITION
// =============================================================================

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate Modelo 349 and Modelo 369 files",
	Long: `The generate command reads every .csv and .xlsx file in the input directory
(or the single file given with --input) and writes the requested forms to the
output directory.

Files are processed concurrently, bounded by max_concurrency. Each file is
processed independently.

On successful processing:
  - The generated files are placed in the output directory
  - The input file is moved to the input archive
  - A summary report is written next to the log file

On error:
  - Validation findings are written to the error directory
  - The input file remains in the input directory`,

	RunE: func(cmd *cobra.Command, args []string) error {
		mainConfig, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer log.Sync()

		if err := applyGenerateOptions(mainConfig, generateOpts); err != nil {
			return err
		}
		return runGenerate(cmd.Context(), mainConfig, generateOpts.input, log)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	flags := generateCmd.Flags()
	flags.StringSliceVar(&generateOpts.forms, "form", nil, "Forms to generate: 349, 349csv, 369 or all")
	flags.StringVar(&generateOpts.input, "input", "", "Path to a single input file")
	flags.BoolVar(&generateOpts.dryRun, "dry-run", false, "Generate and validate without writing any file")
	flags.BoolVar(&generateOpts.strict, "strict", false, "Abort a file when validation reports findings")
	flags.StringVar(&generateOpts.regime, "regime", "", "Form 369 regime: MOSS, VOES or IMPO (default automatic)")
	flags.StringVar(&generateOpts.period, "period", "", `Reporting period, e.g. "T 3" or "2025 M 7"`)
}

// applyGenerateOptions copies the flag overrides into the configuration and
// validates the result again.
func applyGenerateOptions(mainConfig *config.MainConfig, opts generateOptions) error {
	if len(opts.forms) > 0 {
		var forms []string
		for _, f := range opts.forms {
			if f == "all" {
				forms = []string{config.FormModel349, config.FormModel349CSV, config.FormModel369}
				break
			}
			forms = append(forms, f)
		}
		mainConfig.Forms = forms
	}
	if opts.dryRun {
		mainConfig.DryRun = true
	}
	if opts.strict {
		mainConfig.StrictValidation = true
	}
	if opts.regime != "" {
		mainConfig.Declarant.Regime = opts.regime
	}
	if opts.period != "" {
		mainConfig.Declarant.Period = opts.period
	}

	if err := mainConfig.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runGenerate discovers the input files, processes them and reports.
func runGenerate(ctx context.Context, mainConfig *config.MainConfig, input string, log *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	files := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir, mainConfig.ErrorDir)

	var inputFiles []string
	if input != "" {
		inputFiles = []string{input}
	} else {
		if err := files.EnsureDirectories(); err != nil {
			return err
		}
		discovered, err := files.DiscoverInputFiles()
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
		inputFiles = discovered
	}

	if len(inputFiles) == 0 {
		log.Info("No input files found", zap.String("dir", mainConfig.InputDir))
		return nil
	}
	log.Info("Processing files", zap.Int("count", len(inputFiles)), zap.Bool("dry_run", mainConfig.DryRun))

	summary := utils.ProcessingSummary{
		RunID:      uuid.New().String(),
		StartTime:  time.Now(),
		TotalFiles: len(inputFiles),
		DryRun:     mainConfig.DryRun,
	}

	for _, result := range processFiles(ctx, inputFiles, mainConfig, log) {
		summary.ValidationErrors += result.Stats.ValidationFindings
		if !result.Success {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    result.FilePath,
				ErrorMessage: result.Error.Error(),
			})
			continue
		}

		summary.SuccessfulFiles++
		info := utils.ProcessedFileInfo{
			InputFile:   result.FilePath,
			ArchivePath: result.ArchivePath,
			Findings:    result.Stats.ValidationFindings,
			ProcessTime: result.Stats.ProcessingTime,
		}
		for _, out := range result.Outputs {
			name := out.Path
			if name == "" {
				name = out.Name
			}
			info.OutputFiles = append(info.OutputFiles, name)
		}
		summary.ProcessedFiles = append(summary.ProcessedFiles, info)
	}
	summary.EndTime = time.Now()

	log.Info("Processing complete",
		zap.Int("total", summary.TotalFiles),
		zap.Int("successful", summary.SuccessfulFiles),
		zap.Int("failed", summary.FailedFiles),
		zap.Int("validation_errors", summary.ValidationErrors),
		zap.Duration("elapsed", summary.EndTime.Sub(summary.StartTime)))

	if !mainConfig.DryRun {
		path, err := utils.WriteSummaryLog(summary, filepath.Dir(mainConfig.LogFile))
		if err != nil {
			log.Warn("Failed to write summary", zap.Error(err))
		} else {
			log.Info("Wrote summary", zap.String("path", path))
		}
	}

	if summary.FailedFiles > 0 && !mainConfig.ContinueOnError {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// processFiles runs one converter per file, at most MaxConcurrency at a
// time. Without continue_on_error, files not yet started when one fails are
// reported as skipped. Results come back in input order.
func processFiles(ctx context.Context, inputFiles []string, mainConfig *config.MainConfig, log *zap.Logger) []converter.Result {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limit := mainConfig.MaxConcurrency
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	type indexed struct {
		index  int
		result converter.Result
	}
	results := make(chan indexed, len(inputFiles))

	var wg sync.WaitGroup
	for i, file := range inputFiles {
		wg.Add(1)
		go func(index int, filePath string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				results <- indexed{index, converter.Result{
					FilePath: filePath,
					Error:    fmt.Errorf("skipped after an earlier failure: %w", err),
				}}
				return
			}

			result := converter.New(filePath, mainConfig, log).Run()
			if !result.Success && !mainConfig.ContinueOnError {
				cancel()
			}
			results <- indexed{index, result}
		}(i, file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]converter.Result, len(inputFiles))
	for r := range results {
		ordered[r.index] = r.result
	}
	return ordered
}
