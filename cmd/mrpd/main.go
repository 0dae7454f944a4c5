package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/quartzerp/mrp/pkg/interfaces/cli/commands"
)

func main() {
	// Command line flags
	var (
		scenarioDir = flag.String(
			"scenario",
			"",
			"Path to scenario directory containing CSV files",
		)
		companyID   = flag.String("company", "", "Company to plan for")
		horizonDays = flag.Int("horizon", 90, "Planning horizon in days")
		products    = flag.String("products", "", "Comma-separated product filter")
		safetyStock = flag.Bool("safety-stock", false, "Include safety stock in gross requirements")
		leadTimes   = flag.Bool("lead-times", false, "Offset suggested dates by product lead times")
		considerWIP = flag.Bool("wip", false, "Count open supply orders as scheduled receipts")
		chunkSize   = flag.Int("chunk-size", 0, "Products per work chunk")
		workers     = flag.Int("workers", 0, "Parallel chunk workers")
		outputDir   = flag.String("output", "", "Output directory for results (optional)")
		format      = flag.String("format", "text", "Output format: text, json, csv")
		verbose     = flag.Bool("verbose", false, "Enable verbose output")
		help        = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	// Create command configuration
	config := commands.Config{
		ScenarioDir: *scenarioDir,
		CompanyID:   *companyID,
		HorizonDays: *horizonDays,
		Products:    *products,
		SafetyStock: *safetyStock,
		LeadTimes:   *leadTimes,
		ConsiderWIP: *considerWIP,
		ChunkSize:   *chunkSize,
		Workers:     *workers,
		OutputDir:   *outputDir,
		Format:      *format,
		Verbose:     *verbose,
		Help:        *help,
	}

	// Create and execute command
	cmd := commands.NewRunCommand(config)
	ctx := context.Background()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
