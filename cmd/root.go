// =============================================================================
// Spanish Tax Forms - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (taxforms)
//   ├── generateCmd (taxforms generate)
//   ├── validateCmd (taxforms validate)
//   └── versionCmd (taxforms version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --env-file, --verbose)
//   2. Loading the .env file and the YAML configuration
//   3. Building the logger
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/spanish-tax-forms/internal/config"
	"github.com/ginjaninja78/spanish-tax-forms/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile holds the path to an optional .env file loaded before the config.
var envFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "taxforms",
	Short: "Spanish tax forms - Generate Modelo 349 and Modelo 369 presentation files",
	Long: `taxforms turns aggregated sales data into the presentation files of the
Spanish tax agency:

  - Modelo 349 (intra-community operations), fixed width and CSV
  - Modelo 369 (OSS and IOSS returns), tagged sections

Input files are aggregated CSV or XLSX exports with one row per buyer or per
destination and rate. Every file is validated before generation; findings are
written to an error log next to the outputs.

Example Usage:
  taxforms generate                        # Process every file in the input directory
  taxforms generate --input sales.csv      # Process a single file
  taxforms generate --form 369 --regime VOES
  taxforms validate --input sales.xlsx     # Summarize and validate without generating`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Path to an optional .env file with TAXFORMS_* overrides",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// loadRuntime loads the environment file, the configuration and the logger
// shared by the processing commands. The caller must Sync the logger.
func loadRuntime() (*config.MainConfig, *zap.Logger, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}

	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load main config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:   mainConfig.LogLevel,
		File:    mainConfig.LogFile,
		Verbose: verbose,
		JSON:    mainConfig.LogFormat == "json",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Debug("Configuration loaded", zap.String("config", cfgFile), zap.Strings("forms", mainConfig.Forms))
	return mainConfig, log, nil
}
