// =============================================================================
// Spanish Tax Forms - Main Entry Point
// =============================================================================
//
// USAGE:
//   taxforms generate       - Generate the forms for every input file
//   taxforms validate       - Summarize and validate input files
//   taxforms version        - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Ingestion, encoders, validation, the per-file pipeline
//   - pkg/           : Shared file management utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/spanish-tax-forms/cmd"
)

func main() {
	cmd.Execute()
}
