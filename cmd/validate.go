package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/spanish-tax-forms/internal/config"
	"github.com/ginjaninja78/spanish-tax-forms/internal/converter"
	"github.com/ginjaninja78/spanish-tax-forms/internal/validation"
	"github.com/ginjaninja78/spanish-tax-forms/pkg/utils"
)

var validateInput string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Summarize and validate input files without generating forms",
	Long: `The validate command reads the input files, prints what they contain
(activity periods, record counts, applicable forms) and runs the validators of
every configured form. Nothing is written or archived.

The command fails when any file has findings.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		mainConfig, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer log.Sync()

		inputFiles := []string{validateInput}
		if validateInput == "" {
			fm := utils.NewFileManager(mainConfig.InputDir, "", "", "")
			if inputFiles, err = fm.DiscoverInputFiles(); err != nil {
				return fmt.Errorf("failed to discover input files: %w", err)
			}
		}

		return runValidate(cmd.OutOrStdout(), mainConfig, inputFiles, log)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateInput, "input", "", "Path to a single input file")
}

// runValidate prints a summary and the findings of each file.
func runValidate(out io.Writer, mainConfig *config.MainConfig, inputFiles []string, log *zap.Logger) error {
	if len(inputFiles) == 0 {
		fmt.Fprintln(out, "No input files found.")
		return nil
	}

	failed := 0
	for _, file := range inputFiles {
		fmt.Fprintf(out, "=== %s ===\n", file)

		dataset, rowErrors, err := converter.Ingest(file, mainConfig.CSVSettings)
		if err != nil {
			log.Error("Failed to read input", zap.String("file", file), zap.Error(err))
			fmt.Fprintf(out, "Error: %v\n\n", err)
			failed++
			continue
		}

		fmt.Fprint(out, converter.Summarize(dataset, rowErrors, mainConfig.Declarant, time.Now()).String())

		var reports []validation.Report
		if len(rowErrors) > 0 {
			reports = append(reports, validation.RowErrorReport(rowErrors))
		}
		reports = append(reports, validation.Run(dataset, mainConfig.Forms)...)

		fmt.Fprintf(out, "\n%s\n\n", validation.FormatReports(reports))
		if !validation.IsValid(reports) {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) did not pass validation", failed, len(inputFiles))
	}
	return nil
}
