package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	"github.com/quartzerp/mrp/pkg/domain/repositories"
	"github.com/quartzerp/mrp/pkg/planning/cache"
	"github.com/quartzerp/mrp/pkg/planning/netting"
	"github.com/quartzerp/mrp/pkg/planning/shared"
)

// Options holds execution tunables for the orchestrator
type Options struct {
	// ChunkSize is the number of products per chunk unit.
	ChunkSize int
	// Workers bounds the number of chunks processed concurrently within a tier.
	Workers int
	// ChunkTimeout bounds one attempt at one chunk.
	ChunkTimeout time.Duration
	// ChunkRetries is the number of additional attempts after a chunk failure.
	ChunkRetries int
	// RetryBackoff is the base delay between chunk attempts, doubled per retry.
	RetryBackoff time.Duration
	// RunTimeout bounds the whole run.
	RunTimeout time.Duration
}

// DefaultOptions returns the standard execution tunables
func DefaultOptions() Options {
	return Options{
		ChunkSize:    50,
		Workers:      4,
		ChunkTimeout: 2 * time.Minute,
		ChunkRetries: 2,
		RetryBackoff: 500 * time.Millisecond,
		RunTimeout:   30 * time.Minute,
	}
}

// errRunCancelled signals cooperative cancellation; a clean terminal state,
// not a failure.
var errRunCancelled = errors.New("run cancelled")

// Orchestrator owns the MRP-run state machine: it validates and creates
// runs, partitions the product set into low-level-code tiers and chunks,
// schedules chunk execution with a strict barrier between tiers, aggregates
// statistics and enforces cancellation and timeouts. All chunk coordination
// goes through the run store; workers share no state.
type Orchestrator struct {
	productRepo repositories.ProductRepository
	bomRepo     repositories.BomRepository
	runRepo     repositories.RunRepository
	cacheMgr    *cache.Manager
	engine      *netting.Engine
	opts        Options
}

// NewOrchestrator creates a run orchestrator with default options
func NewOrchestrator(
	productRepo repositories.ProductRepository,
	bomRepo repositories.BomRepository,
	runRepo repositories.RunRepository,
	cacheMgr *cache.Manager,
	engine *netting.Engine,
) *Orchestrator {
	return NewOrchestratorWithOptions(productRepo, bomRepo, runRepo, cacheMgr, engine, DefaultOptions())
}

// NewOrchestratorWithOptions creates a run orchestrator with custom options
func NewOrchestratorWithOptions(
	productRepo repositories.ProductRepository,
	bomRepo repositories.BomRepository,
	runRepo repositories.RunRepository,
	cacheMgr *cache.Manager,
	engine *netting.Engine,
	opts Options,
) *Orchestrator {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultOptions().Workers
	}
	return &Orchestrator{
		productRepo: productRepo,
		bomRepo:     bomRepo,
		runRepo:     runRepo,
		cacheMgr:    cacheMgr,
		engine:      engine,
		opts:        opts,
	}
}

// SubmitRun validates parameters and creates a pending run. Validation
// failures reject the request before any run record exists.
func (o *Orchestrator) SubmitRun(
	companyID entities.CompanyID,
	horizonStart, horizonEnd time.Time,
	flags entities.RunFlags,
	filter []entities.ProductID,
) (*entities.MrpRun, error) {
	if companyID == "" {
		return nil, shared.NewValidationError("company_id", "cannot be empty")
	}
	if !horizonEnd.After(horizonStart) {
		return nil, shared.NewValidationError("horizon", "end must be after start")
	}
	if filter != nil && len(filter) == 0 {
		return nil, shared.NewValidationError("filter", "product filter cannot be empty")
	}

	run, err := entities.NewMrpRun(companyID, horizonStart, horizonEnd, flags)
	if err != nil {
		return nil, err
	}
	run.Filter = filter

	if err := o.runRepo.CreateRun(run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CancelRun requests cooperative cancellation. In-flight chunks observe the
// terminal status and stop without writing further recommendations.
func (o *Orchestrator) CancelRun(runID uuid.UUID) error {
	run, err := o.runRepo.GetRun(runID)
	if err != nil {
		return err
	}
	if err := o.runRepo.TransitionStatus(runID, run.Status, entities.RunCancelled); err != nil {
		return fmt.Errorf("failed to cancel run %s: %w", runID, err)
	}
	return nil
}

// GetRunStatus returns the current run record
func (o *Orchestrator) GetRunStatus(runID uuid.UUID) (*entities.MrpRun, error) {
	return o.runRepo.GetRun(runID)
}

// Execute dispatches a pending run and drives it to a terminal state. The
// returned error reflects infrastructure problems only; planning failures
// are recorded on the run record.
func (o *Orchestrator) Execute(ctx context.Context, runID uuid.UUID) error {
	run, err := o.runRepo.GetRun(runID)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	if err := o.runRepo.TransitionStatus(runID, entities.RunPending, entities.RunRunning); err != nil {
		return fmt.Errorf("failed to dispatch run %s: %w", runID, err)
	}

	if o.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.RunTimeout)
		defer cancel()
	}

	planned, err := o.execute(ctx, run)
	switch {
	case err == nil:
		if err := o.runRepo.TransitionStatus(runID, entities.RunRunning, entities.RunCompleted); err != nil {
			return fmt.Errorf("failed to complete run %s: %w", runID, err)
		}
		if run.Flags.NetChange {
			o.cacheMgr.ClearDirty(run.CompanyID, planned)
		}
		return nil
	case errors.Is(err, errRunCancelled):
		// CancelRun already moved the record to its terminal state.
		return nil
	default:
		return o.failRun(runID, err)
	}
}

// failRun records the error message and moves the run to failed
func (o *Orchestrator) failRun(runID uuid.UUID, cause error) error {
	if err := o.runRepo.SetErrorMessage(runID, cause.Error()); err != nil {
		log.Printf("orchestrator: failed to record error on run %s: %v", runID, err)
	}
	if err := o.runRepo.TransitionStatus(runID, entities.RunRunning, entities.RunFailed); err != nil {
		return fmt.Errorf("failed to mark run %s failed: %w", runID, err)
	}
	return nil
}

// execute performs planning for a running run and returns the planned
// product IDs.
func (o *Orchestrator) execute(ctx context.Context, run *entities.MrpRun) ([]entities.ProductID, error) {
	// A cycle during whole-company LLC computation fails the run; the edge
	// set is global and nothing downstream can be ordered soundly.
	codes, err := o.cacheMgr.LowLevelCodes(ctx, run.CompanyID)
	if err != nil {
		return nil, err
	}

	products, err := o.selectProducts(run)
	if err != nil {
		return nil, err
	}

	tiers := buildTiers(products, codes, o.opts.ChunkSize)

	var plannedIDs []entities.ProductID
	for _, product := range products {
		plannedIDs = append(plannedIDs, product.ID)
	}

	// Strict barrier per tier: chunks of one low-level-code tier run
	// concurrently, the next tier starts only when all of them are done.
	for _, tier := range tiers {
		if err := o.runTier(ctx, run, tier); err != nil {
			return nil, err
		}
	}

	return plannedIDs, nil
}

// selectProducts resolves the product set: the submitted filter, the whole
// active set, or (for net-change) the dirty products plus their BOM-graph
// descendants.
func (o *Orchestrator) selectProducts(run *entities.MrpRun) ([]*entities.Product, error) {
	active, err := o.productRepo.GetActiveProducts(run.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active products: %w", err)
	}

	byID := make(map[entities.ProductID]*entities.Product, len(active))
	for _, product := range active {
		byID[product.ID] = product
	}

	wanted := make(map[entities.ProductID]bool)
	switch {
	case run.Flags.NetChange:
		dirty := o.cacheMgr.DirtyProducts(run.CompanyID)
		descendants, err := o.withDescendants(run.CompanyID, dirty)
		if err != nil {
			return nil, err
		}
		for _, id := range descendants {
			wanted[id] = true
		}
	case len(run.Filter) > 0:
		for _, id := range run.Filter {
			wanted[id] = true
		}
	default:
		for id := range byID {
			wanted[id] = true
		}
	}

	var products []*entities.Product
	for id := range wanted {
		if product, exists := byID[id]; exists {
			products = append(products, product)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// withDescendants expands a product set downward through the active BOM
// graph: a parent's change affects every component's dependent demand.
func (o *Orchestrator) withDescendants(companyID entities.CompanyID, roots []entities.ProductID) ([]entities.ProductID, error) {
	boms, err := o.bomRepo.GetActiveBoms(companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active boms: %w", err)
	}

	children := make(map[entities.ProductID][]entities.ProductID)
	for _, bom := range boms {
		for _, item := range bom.Items {
			children[bom.ProductID] = append(children[bom.ProductID], item.ComponentID)
		}
	}

	visited := make(map[entities.ProductID]bool)
	queue := append([]entities.ProductID(nil), roots...)
	var result []entities.ProductID
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		result = append(result, current)
		queue = append(queue, children[current]...)
	}
	return result, nil
}

// chunk is one schedulable unit of work: a slice of products within a tier
type chunk struct {
	tier     int
	index    int
	products []*entities.Product
}

// buildTiers orders products by ascending low-level code, groups them into
// tiers sharing a code, and partitions each tier into fixed-size chunks.
func buildTiers(products []*entities.Product, codes map[entities.ProductID]int, chunkSize int) [][]chunk {
	byCode := make(map[int][]*entities.Product)
	var levels []int
	for _, product := range products {
		code := codes[product.ID]
		if _, seen := byCode[code]; !seen {
			levels = append(levels, code)
		}
		byCode[code] = append(byCode[code], product)
	}
	sort.Ints(levels)

	var tiers [][]chunk
	for _, level := range levels {
		tierProducts := byCode[level]
		var chunks []chunk
		for start := 0; start < len(tierProducts); start += chunkSize {
			end := start + chunkSize
			if end > len(tierProducts) {
				end = len(tierProducts)
			}
			chunks = append(chunks, chunk{
				tier:     level,
				index:    len(chunks),
				products: tierProducts[start:end],
			})
		}
		tiers = append(tiers, chunks)
	}
	return tiers
}
