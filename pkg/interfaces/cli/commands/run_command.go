package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	"github.com/quartzerp/mrp/pkg/infrastructure/repositories/csv"
	"github.com/quartzerp/mrp/pkg/infrastructure/repositories/memory"
	"github.com/quartzerp/mrp/pkg/interfaces/cli/output"
	"github.com/quartzerp/mrp/pkg/planning/cache"
	planningcalendar "github.com/quartzerp/mrp/pkg/planning/calendar"
	"github.com/quartzerp/mrp/pkg/planning/explosion"
	"github.com/quartzerp/mrp/pkg/planning/llc"
	"github.com/quartzerp/mrp/pkg/planning/netting"
	"github.com/quartzerp/mrp/pkg/planning/orchestration"
)

// Config holds configuration for the run command
type Config struct {
	ScenarioDir string
	CompanyID   string
	HorizonDays int
	Products    string // comma-separated product filter
	SafetyStock bool
	LeadTimes   bool
	ConsiderWIP bool
	ChunkSize   int
	Workers     int
	OutputDir   string
	Format      string
	Verbose     bool
	Help        bool
}

// RunCommand loads a scenario from CSV files and executes one MRP run
type RunCommand struct {
	config Config
}

// NewRunCommand creates a run command with the given configuration
func NewRunCommand(config Config) *RunCommand {
	return &RunCommand{config: config}
}

// Execute runs the command
func (c *RunCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	companyID := entities.CompanyID(c.config.CompanyID)

	if c.config.Verbose {
		fmt.Printf("MRP Planning Engine\n")
		fmt.Printf("Scenario: %s\n", c.config.ScenarioDir)
		fmt.Printf("Company: %s\n\n", companyID)
	}

	// Load master data from CSV files
	if c.config.Verbose {
		fmt.Println("Loading master data...")
	}

	loader, err := csv.NewLoader(companyID)
	if err != nil {
		return err
	}

	products, err := loader.LoadProducts(c.scenarioFile("products.csv"))
	if err != nil {
		return fmt.Errorf("error loading products: %w", err)
	}
	boms, err := loader.LoadBoms(c.scenarioFile("boms.csv"))
	if err != nil {
		return fmt.Errorf("error loading boms: %w", err)
	}
	stock, err := loader.LoadStock(c.scenarioFile("stock.csv"))
	if err != nil {
		return fmt.Errorf("error loading stock: %w", err)
	}
	demands, err := loader.LoadDemands(c.scenarioFile("demands.csv"))
	if err != nil {
		return fmt.Errorf("error loading demands: %w", err)
	}

	// Supplies and calendar exceptions are optional scenario files
	var supplies []*entities.OpenSupply
	if c.scenarioFileExists("supplies.csv") {
		supplies, err = loader.LoadSupplies(c.scenarioFile("supplies.csv"))
		if err != nil {
			return fmt.Errorf("error loading supplies: %w", err)
		}
	}
	var exceptions []*entities.CalendarException
	if c.scenarioFileExists("calendar.csv") {
		exceptions, err = loader.LoadCalendarExceptions(c.scenarioFile("calendar.csv"))
		if err != nil {
			return fmt.Errorf("error loading calendar: %w", err)
		}
	}

	if c.config.Verbose {
		fmt.Printf("Loaded: %d products, %d BOMs, %d stock rows, %d demands, %d supplies\n\n",
			len(products), len(boms), len(stock), len(demands), len(supplies))
	}

	// Build repositories
	productRepo := memory.NewProductRepository()
	if err := productRepo.LoadProducts(products); err != nil {
		return fmt.Errorf("failed to load products into repository: %w", err)
	}

	bomRepo := memory.NewBomRepository()
	if err := bomRepo.LoadBoms(boms); err != nil {
		return fmt.Errorf("failed to load boms into repository: %w", err)
	}

	stockRepo := memory.NewStockRepository()
	snapshots := make([]entities.StockSnapshot, len(stock))
	for i, s := range stock {
		snapshots[i] = *s
	}
	if err := stockRepo.LoadStock(snapshots); err != nil {
		return fmt.Errorf("failed to load stock into repository: %w", err)
	}

	orderRepo := memory.NewOrderRepository()
	demandRows := make([]entities.OpenDemand, len(demands))
	for i, d := range demands {
		demandRows[i] = *d
	}
	if err := orderRepo.LoadOpenDemand(demandRows); err != nil {
		return fmt.Errorf("failed to load demands into repository: %w", err)
	}
	supplyRows := make([]entities.OpenSupply, len(supplies))
	for i, s := range supplies {
		supplyRows[i] = *s
	}
	if err := orderRepo.LoadOpenSupply(supplyRows); err != nil {
		return fmt.Errorf("failed to load supplies into repository: %w", err)
	}

	calendarRepo := memory.NewCalendarRepository()
	exceptionRows := make([]entities.CalendarException, len(exceptions))
	for i, e := range exceptions {
		exceptionRows[i] = *e
	}
	if err := calendarRepo.LoadExceptions(exceptionRows); err != nil {
		return fmt.Errorf("failed to load calendar exceptions into repository: %w", err)
	}

	runRepo := memory.NewRunRepository()
	recRepo := memory.NewRecommendationRepository()
	depDemandRepo := memory.NewDependentDemandRepository()

	// Wire the planning core
	store := cache.NewMemoryStore()
	calculator := llc.NewCalculator(productRepo, bomRepo)
	cacheMgr := cache.NewManager(store, calculator)
	exploder := explosion.NewExploder(bomRepo, store)
	calendarLookup := planningcalendar.NewLookup(calendarRepo)
	engine := netting.NewEngine(bomRepo, stockRepo, orderRepo, recRepo, depDemandRepo, exploder, calendarLookup)

	opts := orchestration.DefaultOptions()
	if c.config.ChunkSize > 0 {
		opts.ChunkSize = c.config.ChunkSize
	}
	if c.config.Workers > 0 {
		opts.Workers = c.config.Workers
	}
	orchestrator := orchestration.NewOrchestratorWithOptions(productRepo, bomRepo, runRepo, cacheMgr, engine, opts)

	// Submit and execute the run
	horizonStart := time.Now().UTC().Truncate(24 * time.Hour)
	horizonEnd := horizonStart.AddDate(0, 0, c.config.HorizonDays)
	flags := entities.RunFlags{
		IncludeSafetyStock: c.config.SafetyStock,
		RespectLeadTimes:   c.config.LeadTimes,
		ConsiderWIP:        c.config.ConsiderWIP,
	}

	var filter []entities.ProductID
	if c.config.Products != "" {
		for _, p := range strings.Split(c.config.Products, ",") {
			filter = append(filter, entities.ProductID(strings.TrimSpace(p)))
		}
	}

	run, err := orchestrator.SubmitRun(companyID, horizonStart, horizonEnd, flags, filter)
	if err != nil {
		return fmt.Errorf("failed to submit run: %w", err)
	}

	if c.config.Verbose {
		fmt.Printf("Executing run %s...\n", run.RunNumber)
	}

	startTime := time.Now()
	if err := orchestrator.Execute(ctx, run.ID); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	runTime := time.Since(startTime)

	run, err = orchestrator.GetRunStatus(run.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch run status: %w", err)
	}
	recs, err := recRepo.GetByRun(run.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch recommendations: %w", err)
	}

	if c.config.Verbose {
		fmt.Printf("Run completed in %v\n\n", runTime)
	}

	return output.Generate(run, recs, output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		RunTime:   runTime,
	})
}

// validateInputs validates the command configuration
func (c *RunCommand) validateInputs() error {
	if c.config.ScenarioDir == "" {
		return fmt.Errorf("must specify a -scenario directory")
	}
	if c.config.CompanyID == "" {
		return fmt.Errorf("must specify a -company")
	}
	if c.config.HorizonDays <= 0 {
		return fmt.Errorf("-horizon must be positive, got %d", c.config.HorizonDays)
	}
	for _, name := range []string{"products.csv", "boms.csv", "stock.csv", "demands.csv"} {
		if !c.scenarioFileExists(name) {
			return fmt.Errorf("%s not found in scenario directory %s", name, c.config.ScenarioDir)
		}
	}
	return nil
}

func (c *RunCommand) scenarioFile(name string) string {
	return filepath.Join(c.config.ScenarioDir, name)
}

func (c *RunCommand) scenarioFileExists(name string) bool {
	_, err := os.Stat(c.scenarioFile(name))
	return err == nil
}

// showHelp displays the help message
func (c *RunCommand) showHelp() {
	fmt.Printf(`MRP Planning Engine - Material Requirements Planning

USAGE:
    mrpd -scenario <directory> -company <id> [options]

OPTIONS:
    -scenario <dir>     Path to scenario directory containing CSV files
    -company <id>       Company to plan for
    -horizon <days>     Planning horizon in days (default: 90)
    -products <list>    Comma-separated product filter (default: all active)
    -safety-stock       Include safety stock in gross requirements
    -lead-times         Offset suggested dates by product lead times
    -wip                Count open supply orders as scheduled receipts
    -chunk-size <n>     Products per work chunk (default: 50)
    -workers <n>        Parallel chunk workers (default: 4)
    -output <dir>       Output directory for results (optional)
    -format <fmt>       Output format: text, json, csv (default: text)
    -verbose            Enable verbose output
    -help               Show this help message

SCENARIO DIRECTORY STRUCTURE:
    scenario_name/
    ├── products.csv    # Product master data
    ├── boms.csv        # BOM headers and component lines
    ├── stock.csv       # Stock snapshots per warehouse
    ├── demands.csv     # Independent demand (sales orders, forecasts)
    ├── supplies.csv    # Open purchase and work orders (optional)
    └── calendar.csv    # Calendar exceptions (optional)

CSV FILE FORMATS:

products.csv:
    product_id,description,make_or_buy,lead_time_days,safety_stock,reorder_point,min_order_qty,order_multiple,maximum_stock
    BIKE,City bicycle,Make,5,10,0,50,25,0

boms.csv:
    bom_id,product_id,version,status,is_default,component_id,quantity,scrap_percentage,is_phantom,is_optional
    BOM-BIKE,BIKE,1,Active,true,WHEEL,2,10,false,false

stock.csv:
    product_id,warehouse_id,on_hand,reserved
    BIKE,WH1,30,0

demands.csv:
    reference,product_id,source,quantity,due_date
    SO-1001,BIKE,SalesOrder,100,2026-04-10

supplies.csv:
    reference,product_id,type,quantity,due_date
    PO-2001,FRAME,PurchaseOrder,200,2026-03-20

calendar.csv:
    work_center_id,date,is_working,description
    ,2026-04-06,false,Easter Monday

EXAMPLES:
    # Plan a full scenario
    mrpd -scenario examples/bicycle -company ACME -verbose

    # Net only two products with safety stock and lead times
    mrpd -scenario examples/bicycle -company ACME -products BIKE,WHEEL -safety-stock -lead-times

    # Generate JSON output
    mrpd -scenario examples/bicycle -company ACME -format json -output results/
`)
}
