package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/quartzerp/mrp/pkg/domain/entities"
)

// Config holds output generation settings
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	RunTime   time.Duration
}

// Generate writes the run result in the configured format
func Generate(run *entities.MrpRun, recs []*entities.MrpRecommendation, config Config) error {
	switch config.Format {
	case "text":
		return generateTextOutput(run, recs, config)
	case "json":
		return generateJSONOutput(run, recs, config)
	case "csv":
		return generateCSVOutput(run, recs, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput generates human-readable text output
func generateTextOutput(run *entities.MrpRun, recs []*entities.MrpRecommendation, config Config) error {
	var output string

	output += "═══════════════════════════════════════════════════════════════\n"
	output += "                    MRP RUN RESULTS\n"
	output += "═══════════════════════════════════════════════════════════════\n\n"

	output += "SUMMARY\n"
	output += fmt.Sprintf("  Run Number: %s\n", run.RunNumber)
	output += fmt.Sprintf("  Status: %s\n", run.Status)
	output += fmt.Sprintf("  Horizon: %s .. %s\n",
		run.HorizonStart.Format("2006-01-02"), run.HorizonEnd.Format("2006-01-02"))
	output += fmt.Sprintf("  Run Time: %v\n", config.RunTime)
	output += fmt.Sprintf("  Products Processed: %d\n", run.ProductsProcessed)
	output += fmt.Sprintf("  Recommendations: %d\n", run.RecommendationsGenerated)
	output += fmt.Sprintf("  Warnings: %d\n", run.WarningsCount)
	output += "\n"

	if len(recs) > 0 {
		output += "RECOMMENDATIONS\n"
		output += "────────────────────────────────────────────────────────────────\n"

		// Sort by suggested date, urgent first
		sorted := make([]*entities.MrpRecommendation, len(recs))
		copy(sorted, recs)
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].IsUrgent != sorted[j].IsUrgent {
				return sorted[i].IsUrgent
			}
			return sorted[i].SuggestedDate.Before(sorted[j].SuggestedDate)
		})

		for _, rec := range sorted {
			urgent := ""
			if rec.IsUrgent {
				urgent = "  [URGENT]"
			}
			output += fmt.Sprintf("Product: %-20s %s%s\n", rec.ProductID, rec.Type, urgent)
			output += fmt.Sprintf("  Qty: %8s  Suggested: %s  Required: %s  Priority: %d\n",
				rec.SuggestedQuantity.String(),
				rec.SuggestedDate.Format("2006-01-02"),
				rec.RequiredDate.Format("2006-01-02"),
				rec.Priority)
			if rec.Details.SourceOrderRef != "" {
				output += fmt.Sprintf("  Order: %s\n", rec.Details.SourceOrderRef)
			}
			output += "\n"
		}
	}

	output += "═══════════════════════════════════════════════════════════════\n"

	if config.OutputDir != "" {
		if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		filename := filepath.Join(config.OutputDir, "mrp_results.txt")
		if err := os.WriteFile(filename, []byte(output), 0644); err != nil {
			return fmt.Errorf("failed to write text output: %w", err)
		}
		if config.Verbose {
			fmt.Printf("Text output written to: %s\n", filename)
		}
	} else {
		fmt.Print(output)
	}

	return nil
}

// generateJSONOutput generates JSON output
func generateJSONOutput(run *entities.MrpRun, recs []*entities.MrpRecommendation, config Config) error {
	jsonResult := struct {
		Metadata struct {
			RunNumber   string `json:"run_number"`
			Status      string `json:"status"`
			RunTime     string `json:"run_time"`
			GeneratedAt string `json:"generated_at"`
		} `json:"metadata"`
		Summary struct {
			ProductsProcessed        int64 `json:"products_processed"`
			RecommendationsGenerated int64 `json:"recommendations_generated"`
			WarningsCount            int64 `json:"warnings_count"`
		} `json:"summary"`
		Recommendations []recommendationJSON `json:"recommendations"`
	}{}

	jsonResult.Metadata.RunNumber = run.RunNumber
	jsonResult.Metadata.Status = run.Status.String()
	jsonResult.Metadata.RunTime = config.RunTime.String()
	jsonResult.Metadata.GeneratedAt = time.Now().Format(time.RFC3339)
	jsonResult.Summary.ProductsProcessed = run.ProductsProcessed
	jsonResult.Summary.RecommendationsGenerated = run.RecommendationsGenerated
	jsonResult.Summary.WarningsCount = run.WarningsCount

	for _, rec := range recs {
		jsonResult.Recommendations = append(jsonResult.Recommendations, toJSON(rec))
	}

	jsonBytes, err := json.MarshalIndent(jsonResult, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir != "" {
		if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		filename := filepath.Join(config.OutputDir, "mrp_results.json")
		if err := os.WriteFile(filename, jsonBytes, 0644); err != nil {
			return fmt.Errorf("failed to write JSON output: %w", err)
		}
		if config.Verbose {
			fmt.Printf("JSON output written to: %s\n", filename)
		}
	} else {
		fmt.Printf("%s\n", jsonBytes)
	}

	return nil
}

type recommendationJSON struct {
	ProductID         string                      `json:"product_id"`
	Type              string                      `json:"type"`
	RequiredDate      string                      `json:"required_date"`
	SuggestedDate     string                      `json:"suggested_date"`
	GrossQuantity     string                      `json:"gross_quantity"`
	NetQuantity       string                      `json:"net_quantity"`
	SuggestedQuantity string                      `json:"suggested_quantity"`
	Priority          int                         `json:"priority"`
	IsUrgent          bool                        `json:"is_urgent"`
	Details           entities.CalculationDetails `json:"details"`
}

func toJSON(rec *entities.MrpRecommendation) recommendationJSON {
	return recommendationJSON{
		ProductID:         string(rec.ProductID),
		Type:              rec.Type.String(),
		RequiredDate:      rec.RequiredDate.Format("2006-01-02"),
		SuggestedDate:     rec.SuggestedDate.Format("2006-01-02"),
		GrossQuantity:     rec.GrossQuantity.String(),
		NetQuantity:       rec.NetQuantity.String(),
		SuggestedQuantity: rec.SuggestedQuantity.String(),
		Priority:          rec.Priority,
		IsUrgent:          rec.IsUrgent,
		Details:           rec.Details,
	}
}

// generateCSVOutput generates a recommendations CSV file
func generateCSVOutput(run *entities.MrpRun, recs []*entities.MrpRecommendation, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("CSV output requires an output directory (-output)")
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, "recommendations.csv")
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"run_number", "product_id", "type", "required_date", "suggested_date", "gross_quantity", "net_quantity", "suggested_quantity", "priority", "is_urgent"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range recs {
		record := []string{
			run.RunNumber,
			string(rec.ProductID),
			rec.Type.String(),
			rec.RequiredDate.Format("2006-01-02"),
			rec.SuggestedDate.Format("2006-01-02"),
			rec.GrossQuantity.String(),
			rec.NetQuantity.String(),
			rec.SuggestedQuantity.String(),
			fmt.Sprintf("%d", rec.Priority),
			fmt.Sprintf("%t", rec.IsUrgent),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	if config.Verbose {
		fmt.Printf("Recommendations CSV written to: %s\n", filename)
	}

	return nil
}
