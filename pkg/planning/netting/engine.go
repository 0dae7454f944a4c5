package netting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	"github.com/quartzerp/mrp/pkg/domain/repositories"
	"github.com/quartzerp/mrp/pkg/planning/calendar"
	"github.com/quartzerp/mrp/pkg/planning/explosion"
	"github.com/quartzerp/mrp/pkg/planning/shared"
)

// Result is the outcome of netting one product
type Result struct {
	Recommendation *entities.MrpRecommendation // nil when supply and demand balance
	Warnings       []string
}

// Engine turns gross demand into net requirements and recommendations, one
// product at a time. Products must be processed in ascending low-level-code
// order: a product's dependent demand is complete only once every parent at
// a lower code has been netted and registered its component demand.
type Engine struct {
	bomRepo       repositories.BomRepository
	stockRepo     repositories.StockRepository
	orderRepo     repositories.OrderRepository
	recRepo       repositories.RecommendationRepository
	depDemandRepo repositories.DependentDemandRepository
	exploder      *explosion.Exploder
	calendar      *calendar.Lookup

	// Injectable clock for deterministic urgency tests.
	now func() time.Time
}

// NewEngine creates a netting engine
func NewEngine(
	bomRepo repositories.BomRepository,
	stockRepo repositories.StockRepository,
	orderRepo repositories.OrderRepository,
	recRepo repositories.RecommendationRepository,
	depDemandRepo repositories.DependentDemandRepository,
	exploder *explosion.Exploder,
	calendarLookup *calendar.Lookup,
) *Engine {
	return &Engine{
		bomRepo:       bomRepo,
		stockRepo:     stockRepo,
		orderRepo:     orderRepo,
		recRepo:       recRepo,
		depDemandRepo: depDemandRepo,
		exploder:      exploder,
		calendar:      calendarLookup,
		now:           time.Now,
	}
}

// SetClock overrides the engine's notion of today
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// PlanProduct nets one product within a run and persists at most one
// recommendation. Dependent demand for the product's components is
// registered as a side effect so children at higher low-level codes see it.
func (e *Engine) PlanProduct(ctx context.Context, run *entities.MrpRun, product *entities.Product) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Step 1: gross requirement = independent demand within the horizon
	// plus dependent demand registered by parents earlier in this run.
	independent, requiredDate, err := e.independentDemand(run, product)
	if err != nil {
		return nil, err
	}

	dependent, depDate, err := e.dependentDemand(run, product)
	if err != nil {
		return nil, err
	}
	if !depDate.IsZero() && (requiredDate.IsZero() || depDate.Before(requiredDate)) {
		requiredDate = depDate
	}

	gross := independent.Add(dependent)

	// Step 2: available supply.
	stock, planningWarehouse, otherWarehouses, err := e.stockPosition(product)
	if err != nil {
		return nil, err
	}

	available := stock
	if run.Flags.IncludeSafetyStock {
		available = available.Sub(product.SafetyStock)
	}

	openSupply, err := e.orderRepo.GetOpenSupply(product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get open supply for %s: %w", product.ID, err)
	}
	sort.Slice(openSupply, func(i, j int) bool { return openSupply[i].DueDate.Before(openSupply[j].DueDate) })

	receipts := decimal.Zero
	if run.Flags.ConsiderWIP {
		for _, supply := range openSupply {
			if run.WithinHorizon(supply.DueDate) {
				receipts = receipts.Add(supply.Quantity)
			}
		}
		available = available.Add(receipts)
	}

	// Step 3: net requirement, never negative.
	net := gross.Sub(available)
	if net.IsNegative() {
		net = decimal.Zero
	}

	if requiredDate.IsZero() {
		// No dated demand; a pure safety-stock replenishment is needed at
		// the start of the horizon.
		requiredDate = run.HorizonStart
	}

	scope := entities.CalendarScope{CompanyID: product.CompanyID}

	if net.IsZero() {
		rec, err := e.reviewOpenOrders(run, product, scope, gross, openSupply, requiredDate)
		if err != nil {
			return nil, err
		}
		result.Recommendation = rec
		if rec != nil {
			e.fillAuditDetails(rec, product, independent, dependent, stock, receipts, net)
			if err := e.recRepo.Upsert(rec); err != nil {
				return nil, fmt.Errorf("failed to persist recommendation for %s: %w", product.ID, err)
			}
		}
		return result, nil
	}

	// Step 4: lot sizing.
	suggested := applyLotSizing(net, product)
	suggested = capAtMaximumStock(suggested, net, gross, available, product)

	// Step 5: dates.
	suggestedDate, err := e.suggestedDate(run, scope, requiredDate, product.LeadTimeDays)
	if err != nil {
		return nil, err
	}

	// Step 6: recommendation type.
	recType, sourceRef, sourceDue, sourceQty, sourceWarehouse := e.chooseType(
		product, net, openSupply, otherWarehouses, planningWarehouse, requiredDate,
	)

	rec, err := entities.NewMrpRecommendation(run.ID, product.ID, recType)
	if err != nil {
		return nil, err
	}
	rec.RequiredDate = requiredDate
	rec.SuggestedDate = suggestedDate
	rec.DueDate = requiredDate
	rec.GrossQuantity = gross
	rec.NetQuantity = net
	rec.SuggestedQuantity = suggested
	rec.CurrentQuantity = sourceQty
	rec.ProjectedStock = available.Add(suggested).Sub(gross)

	// Step 7: urgency and priority.
	today := truncateToDay(e.now())
	rec.IsUrgent = !suggestedDate.After(today) ||
		rec.DueDate.Sub(today) <= time.Duration(product.LeadTimeDays)*24*time.Hour
	rec.Priority = derivePriority(suggestedDate, rec.DueDate, today, product.LeadTimeDays)

	// Step 8: audit payload, persistence, dependent-demand registration.
	e.fillAuditDetails(rec, product, independent, dependent, stock, receipts, net)
	rec.Details.SourceOrderRef = sourceRef
	if sourceDue != nil {
		due := *sourceDue
		rec.Details.SourceOrderDueDate = &due
	}
	rec.Details.SourceWarehouseID = sourceWarehouse

	if err := e.recRepo.Upsert(rec); err != nil {
		return nil, fmt.Errorf("failed to persist recommendation for %s: %w", product.ID, err)
	}
	result.Recommendation = rec

	if recType == entities.RecommendWorkOrder {
		warnings, err := e.registerDependentDemand(ctx, run, product, suggested, suggestedDate)
		if err != nil {
			return nil, err
		}
		result.Warnings = append(result.Warnings, warnings...)
	}

	return result, nil
}

// independentDemand sums open demand due within the horizon and returns the
// earliest due date seen.
func (e *Engine) independentDemand(run *entities.MrpRun, product *entities.Product) (decimal.Decimal, time.Time, error) {
	demands, err := e.orderRepo.GetOpenDemand(product.ID)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("failed to get open demand for %s: %w", product.ID, err)
	}

	total := decimal.Zero
	var earliest time.Time
	for _, demand := range demands {
		if !run.WithinHorizon(demand.DueDate) {
			continue
		}
		total = total.Add(demand.Quantity)
		if earliest.IsZero() || demand.DueDate.Before(earliest) {
			earliest = demand.DueDate
		}
	}
	return total, earliest, nil
}

// dependentDemand sums demand registered by parents in this run
func (e *Engine) dependentDemand(run *entities.MrpRun, product *entities.Product) (decimal.Decimal, time.Time, error) {
	rows, err := e.depDemandRepo.GetForProduct(run.ID, product.ID)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("failed to get dependent demand for %s: %w", product.ID, err)
	}

	total := decimal.Zero
	var earliest time.Time
	for _, row := range rows {
		total = total.Add(row.Quantity)
		if earliest.IsZero() || row.RequiredDate.Before(earliest) {
			earliest = row.RequiredDate
		}
	}
	return total, earliest, nil
}

// stockPosition returns free stock at the planning warehouse plus the other
// warehouses' snapshots for transfer sourcing. The planning warehouse is
// the lowest warehouse ID holding a snapshot.
func (e *Engine) stockPosition(product *entities.Product) (decimal.Decimal, entities.WarehouseID, []entities.StockSnapshot, error) {
	snapshots, err := e.stockRepo.GetStock(product.ID)
	if err != nil {
		return decimal.Zero, "", nil, fmt.Errorf("failed to get stock for %s: %w", product.ID, err)
	}
	if len(snapshots) == 0 {
		return decimal.Zero, "", nil, nil
	}

	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].WarehouseID < snapshots[j].WarehouseID })
	return snapshots[0].Free(), snapshots[0].WarehouseID, snapshots[1:], nil
}

// reviewOpenOrders handles the net-requirement-zero cases: an open order
// that is no longer needed at all is cancelled; one whose due date no
// longer matches the revised required date is rescheduled.
func (e *Engine) reviewOpenOrders(
	run *entities.MrpRun,
	product *entities.Product,
	scope entities.CalendarScope,
	gross decimal.Decimal,
	openSupply []entities.OpenSupply,
	requiredDate time.Time,
) (*entities.MrpRecommendation, error) {
	if len(openSupply) == 0 {
		return nil, nil
	}
	order := openSupply[0]

	var recType entities.RecommendationType
	switch {
	case gross.IsZero():
		recType = entities.RecommendCancel
	case sameDay(order.DueDate, requiredDate):
		return nil, nil
	case order.DueDate.After(requiredDate):
		recType = entities.RecommendRescheduleIn
	default:
		recType = entities.RecommendRescheduleOut
	}

	rec, err := entities.NewMrpRecommendation(run.ID, product.ID, recType)
	if err != nil {
		return nil, err
	}
	rec.RequiredDate = requiredDate
	rec.DueDate = requiredDate
	rec.SuggestedDate, err = e.calendar.ShiftToWorkingDay(scope, requiredDate, calendar.ShiftBackward)
	if err != nil {
		return nil, err
	}
	rec.GrossQuantity = gross
	rec.NetQuantity = decimal.Zero
	rec.SuggestedQuantity = order.Quantity
	rec.CurrentQuantity = order.Quantity
	rec.Details.SourceOrderRef = order.Reference
	due := order.DueDate
	rec.Details.SourceOrderDueDate = &due

	today := truncateToDay(e.now())
	rec.Priority = derivePriority(rec.SuggestedDate, rec.DueDate, today, product.LeadTimeDays)
	return rec, nil
}

// chooseType picks the recommendation type for a positive net requirement
func (e *Engine) chooseType(
	product *entities.Product,
	net decimal.Decimal,
	openSupply []entities.OpenSupply,
	otherWarehouses []entities.StockSnapshot,
	planningWarehouse entities.WarehouseID,
	requiredDate time.Time,
) (entities.RecommendationType, string, *time.Time, decimal.Decimal, entities.WarehouseID) {
	// An open order arriving too late covers the shortage if expedited.
	for _, order := range openSupply {
		if order.DueDate.After(requiredDate) && order.Quantity.GreaterThanOrEqual(net) {
			due := order.DueDate
			return entities.RecommendExpedite, order.Reference, &due, order.Quantity, ""
		}
	}

	// Another warehouse with enough free stock satisfies the shortage by
	// transfer instead of a new order.
	for _, snapshot := range otherWarehouses {
		if snapshot.WarehouseID != planningWarehouse && snapshot.Free().GreaterThanOrEqual(net) {
			return entities.RecommendTransfer, "", nil, snapshot.Free(), snapshot.WarehouseID
		}
	}

	if product.MakeOrBuy == entities.Make {
		return entities.RecommendWorkOrder, "", nil, decimal.Zero, ""
	}
	return entities.RecommendPurchaseOrder, "", nil, decimal.Zero, ""
}

// suggestedDate offsets the required date by the product's lead time in
// working days when the run respects lead times, otherwise only shifts a
// non-working required date backward.
func (e *Engine) suggestedDate(run *entities.MrpRun, scope entities.CalendarScope, requiredDate time.Time, leadTimeDays int) (time.Time, error) {
	if !run.Flags.RespectLeadTimes {
		return e.calendar.ShiftToWorkingDay(scope, requiredDate, calendar.ShiftBackward)
	}
	return e.calendar.WorkingDaysBefore(scope, requiredDate, leadTimeDays)
}

// registerDependentDemand explodes the product's default BOM at the
// suggested quantity and records component demand for lower tiers. A
// missing or cyclic BOM downgrades to warnings; the run continues.
func (e *Engine) registerDependentDemand(
	ctx context.Context,
	run *entities.MrpRun,
	product *entities.Product,
	quantity decimal.Decimal,
	neededBy time.Time,
) ([]string, error) {
	bom, err := e.bomRepo.GetDefaultBom(product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get default bom for %s: %w", product.ID, err)
	}
	if bom == nil || !bom.IsExplodable() {
		missing := &shared.MissingBomError{ProductID: product.ID}
		return []string{missing.Error()}, nil
	}

	requirements, err := e.exploder.Explode(ctx, bom.ID, quantity)
	if err != nil {
		var cycle *shared.CycleError
		if errors.As(err, &cycle) {
			return []string{fmt.Sprintf("skipping component demand for %s: %v", product.ID, cycle)}, nil
		}
		return nil, err
	}

	for _, req := range requirements {
		if req.IsOptional {
			continue
		}
		demand := entities.DependentDemand{
			RunID:           run.ID,
			ProductID:       req.ComponentID,
			ParentProductID: product.ID,
			Quantity:        req.Quantity,
			RequiredDate:    neededBy,
		}
		if err := e.depDemandRepo.Register(demand); err != nil {
			return nil, fmt.Errorf("failed to register dependent demand for %s: %w", req.ComponentID, err)
		}
	}
	return nil, nil
}

func (e *Engine) fillAuditDetails(
	rec *entities.MrpRecommendation,
	product *entities.Product,
	independent, dependent, stock, receipts, net decimal.Decimal,
) {
	rec.Details.Version = 1
	rec.Details.RecommendationType = rec.Type
	rec.Details.IndependentDemand = independent
	rec.Details.DependentDemand = dependent
	rec.Details.FreeStock = stock
	rec.Details.SafetyStock = product.SafetyStock
	rec.Details.ScheduledReceipts = receipts
	rec.Details.NetRequirement = net
	rec.Details.MinimumOrderQty = product.MinimumOrderQty
	rec.Details.OrderMultiple = product.OrderMultiple
	rec.Details.MaximumStock = product.MaximumStock
	rec.Details.LeadTimeDays = product.LeadTimeDays
}

// applyLotSizing rounds the net requirement up to the order multiple after
// raising it to the minimum order quantity.
func applyLotSizing(net decimal.Decimal, product *entities.Product) decimal.Decimal {
	suggested := net
	if product.MinimumOrderQty.IsPositive() && suggested.LessThan(product.MinimumOrderQty) {
		suggested = product.MinimumOrderQty
	}
	if product.OrderMultiple.IsPositive() {
		multiples := suggested.Div(product.OrderMultiple).Ceil()
		suggested = multiples.Mul(product.OrderMultiple)
	}
	return suggested
}

// capAtMaximumStock trims the suggested quantity so projected stock does
// not exceed the configured maximum, without dropping below the net
// requirement itself.
func capAtMaximumStock(suggested, net, gross, available decimal.Decimal, product *entities.Product) decimal.Decimal {
	if !product.HasMaximumStock() {
		return suggested
	}
	// projected = available + suggested - gross <= maximumStock
	ceiling := product.MaximumStock.Add(gross).Sub(available)
	if suggested.GreaterThan(ceiling) {
		suggested = ceiling
	}
	if suggested.LessThan(net) {
		suggested = net
	}
	return suggested
}

// derivePriority maps lateness relative to lead time onto 1 (overdue) to 5
func derivePriority(suggestedDate, dueDate, today time.Time, leadTimeDays int) int {
	leadTime := time.Duration(leadTimeDays) * 24 * time.Hour
	switch {
	case suggestedDate.Before(today):
		return 1
	case !suggestedDate.After(today) || dueDate.Sub(today) <= leadTime:
		return 2
	case dueDate.Sub(today) <= 2*leadTime:
		return 3
	default:
		return 4
	}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
