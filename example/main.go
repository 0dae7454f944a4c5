package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	mrptesting "github.com/quartzerp/mrp/pkg/infrastructure/testing"
	"github.com/quartzerp/mrp/pkg/planning/cache"
	"github.com/quartzerp/mrp/pkg/planning/calendar"
	"github.com/quartzerp/mrp/pkg/planning/explosion"
	"github.com/quartzerp/mrp/pkg/planning/llc"
	"github.com/quartzerp/mrp/pkg/planning/netting"
	"github.com/quartzerp/mrp/pkg/planning/orchestration"
)

// Plans a small bicycle factory end to end: one sales order for finished
// bikes turns into work orders for subassemblies and purchase orders for
// bought parts, with phantom kits exploded in place and scrap applied.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fixture := mrptesting.BuildBicycleTestData("DEMO")

	dueDate := time.Now().UTC().AddDate(0, 0, 30)
	fixture.AddDemand("SO-0001", "BIKE", 25, dueDate)
	fixture.AddStock("SPOKE", "MAIN", 1000, 0)

	store := cache.NewMemoryStore()
	calculator := llc.NewCalculator(fixture.Products, fixture.Boms)
	cacheMgr := cache.NewManager(store, calculator)
	exploder := explosion.NewExploder(fixture.Boms, store)
	lookup := calendar.NewLookup(fixture.Calendar)
	engine := netting.NewEngine(fixture.Boms, fixture.Stock, fixture.Orders,
		fixture.Recommendations, fixture.DependentDemand, exploder, lookup)
	orchestrator := orchestration.NewOrchestrator(fixture.Products, fixture.Boms,
		fixture.Runs, cacheMgr, engine)

	horizonStart := time.Now().UTC()
	mrpRun, err := orchestrator.SubmitRun("DEMO", horizonStart, horizonStart.AddDate(0, 0, 90),
		entities.RunFlags{IncludeSafetyStock: true, RespectLeadTimes: true}, nil)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	fmt.Printf("Planning run %s: 25 bikes due %s\n\n", mrpRun.RunNumber, dueDate.Format("2006-01-02"))

	if err := orchestrator.Execute(context.Background(), mrpRun.ID); err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	mrpRun, err = orchestrator.GetRunStatus(mrpRun.ID)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	fmt.Printf("Status: %s, %d products planned, %d recommendations\n\n",
		mrpRun.Status, mrpRun.ProductsProcessed, mrpRun.RecommendationsGenerated)

	recs, err := fixture.Recommendations.GetByRun(mrpRun.ID)
	if err != nil {
		return fmt.Errorf("recommendations: %w", err)
	}
	for _, rec := range recs {
		urgency := ""
		if rec.IsUrgent {
			urgency = " URGENT"
		}
		fmt.Printf("  %-12s %-14s qty %8s  order by %s%s\n",
			rec.ProductID, rec.Type, rec.SuggestedQuantity.StringFixed(0),
			rec.SuggestedDate.Format("2006-01-02"), urgency)
	}
	return nil
}
