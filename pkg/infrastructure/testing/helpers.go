package testing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	"github.com/quartzerp/mrp/pkg/infrastructure/repositories/memory"
)

// Fixture bundles the in-memory repositories a planning test needs
type Fixture struct {
	CompanyID entities.CompanyID

	Products        *memory.ProductRepository
	Boms            *memory.BomRepository
	Stock           *memory.StockRepository
	Orders          *memory.OrderRepository
	Calendar        *memory.CalendarRepository
	Runs            *memory.RunRepository
	Recommendations *memory.RecommendationRepository
	DependentDemand *memory.DependentDemandRepository
}

// NewFixture creates an empty fixture for a company
func NewFixture(companyID entities.CompanyID) *Fixture {
	return &Fixture{
		CompanyID:       companyID,
		Products:        memory.NewProductRepository(),
		Boms:            memory.NewBomRepository(),
		Stock:           memory.NewStockRepository(),
		Orders:          memory.NewOrderRepository(),
		Calendar:        memory.NewCalendarRepository(),
		Runs:            memory.NewRunRepository(),
		Recommendations: memory.NewRecommendationRepository(),
		DependentDemand: memory.NewDependentDemandRepository(),
	}
}

// AddProduct creates and stores a product with the given planning fields
func (f *Fixture) AddProduct(id entities.ProductID, makeOrBuy entities.MakeOrBuy, leadTimeDays int, mutate func(*entities.Product)) *entities.Product {
	product, err := entities.NewProduct(id, f.CompanyID, makeOrBuy, leadTimeDays)
	if err != nil {
		panic(err)
	}
	if mutate != nil {
		mutate(product)
	}
	if err := f.Products.LoadProducts([]*entities.Product{product}); err != nil {
		panic(err)
	}
	return product
}

// BomLine describes one component line for AddBom
type BomLine struct {
	ComponentID entities.ProductID
	Quantity    int64
	Scrap       int64 // percent
	Phantom     bool
	Optional    bool
}

// AddBom creates and stores an active default BOM for a product
func (f *Fixture) AddBom(id entities.BomID, productID entities.ProductID, lines []BomLine) *entities.Bom {
	bom, err := entities.NewBom(id, productID, f.CompanyID, 1)
	if err != nil {
		panic(err)
	}
	bom.Status = entities.BomActive
	bom.IsDefault = true

	for i, line := range lines {
		item, err := entities.NewBomItem(id, line.ComponentID,
			decimal.NewFromInt(line.Quantity), decimal.NewFromInt(line.Scrap))
		if err != nil {
			panic(err)
		}
		item.IsPhantom = line.Phantom
		item.IsOptional = line.Optional
		item.Sequence = i + 1
		bom.Items = append(bom.Items, *item)
	}

	if err := f.Boms.LoadBoms([]*entities.Bom{bom}); err != nil {
		panic(err)
	}
	return bom
}

// AddStock stores a stock snapshot
func (f *Fixture) AddStock(productID entities.ProductID, warehouseID entities.WarehouseID, onHand, reserved int64) {
	err := f.Stock.LoadStock([]entities.StockSnapshot{{
		ProductID:   productID,
		WarehouseID: warehouseID,
		OnHand:      decimal.NewFromInt(onHand),
		Reserved:    decimal.NewFromInt(reserved),
	}})
	if err != nil {
		panic(err)
	}
}

// AddDemand stores an open sales order demand line
func (f *Fixture) AddDemand(reference string, productID entities.ProductID, quantity int64, dueDate time.Time) {
	err := f.Orders.LoadOpenDemand([]entities.OpenDemand{{
		Reference: reference,
		ProductID: productID,
		Source:    entities.SalesOrderDemand,
		Quantity:  decimal.NewFromInt(quantity),
		DueDate:   dueDate,
	}})
	if err != nil {
		panic(err)
	}
}

// AddSupply stores an open supply order line
func (f *Fixture) AddSupply(reference string, productID entities.ProductID, supplyType entities.SupplyType, quantity int64, dueDate time.Time) {
	err := f.Orders.LoadOpenSupply([]entities.OpenSupply{{
		Reference: reference,
		ProductID: productID,
		Type:      supplyType,
		Quantity:  decimal.NewFromInt(quantity),
		DueDate:   dueDate,
	}})
	if err != nil {
		panic(err)
	}
}

// AddHoliday stores a company-wide non-working calendar exception
func (f *Fixture) AddHoliday(date time.Time, description string) {
	scope, err := entities.NewCompanyScope(f.CompanyID)
	if err != nil {
		panic(err)
	}
	err = f.Calendar.LoadExceptions([]entities.CalendarException{{
		Scope:       scope,
		Date:        date,
		IsWorking:   false,
		Description: description,
	}})
	if err != nil {
		panic(err)
	}
}

// NewRun creates and persists a pending run over the given horizon
func (f *Fixture) NewRun(horizonStart, horizonEnd time.Time, flags entities.RunFlags) *entities.MrpRun {
	run, err := entities.NewMrpRun(f.CompanyID, horizonStart, horizonEnd, flags)
	if err != nil {
		panic(err)
	}
	if err := f.Runs.CreateRun(run); err != nil {
		panic(err)
	}
	return run
}

// BuildBicycleTestData builds a three-level bicycle scenario:
//
//	BIKE (make, LLC 0)
//	  2x FRAME-KIT (phantom, LLC 1)
//	    1x FRAME (buy, LLC 2)
//	    1x FORK  (buy, LLC 2)
//	  2x WHEEL (make, LLC 1, 10% scrap)
//	    36x SPOKE (buy, LLC 2)
//	  1x BELL (buy, optional, LLC 1)
func BuildBicycleTestData(companyID entities.CompanyID) *Fixture {
	f := NewFixture(companyID)

	f.AddProduct("BIKE", entities.Make, 5, func(p *entities.Product) {
		p.Description = "City bicycle"
		p.SafetyStock = decimal.NewFromInt(10)
		p.MinimumOrderQty = decimal.NewFromInt(50)
		p.OrderMultiple = decimal.NewFromInt(25)
	})
	f.AddProduct("FRAME-KIT", entities.Make, 0, func(p *entities.Product) {
		p.Description = "Frame kit (phantom assembly)"
	})
	f.AddProduct("WHEEL", entities.Make, 3, nil)
	f.AddProduct("FRAME", entities.Buy, 10, nil)
	f.AddProduct("FORK", entities.Buy, 10, nil)
	f.AddProduct("SPOKE", entities.Buy, 7, func(p *entities.Product) {
		p.MinimumOrderQty = decimal.NewFromInt(500)
	})
	f.AddProduct("BELL", entities.Buy, 2, nil)

	f.AddBom("BOM-BIKE", "BIKE", []BomLine{
		{ComponentID: "FRAME-KIT", Quantity: 2, Phantom: true},
		{ComponentID: "WHEEL", Quantity: 2, Scrap: 10},
		{ComponentID: "BELL", Quantity: 1, Optional: true},
	})
	f.AddBom("BOM-FRAME-KIT", "FRAME-KIT", []BomLine{
		{ComponentID: "FRAME", Quantity: 1},
		{ComponentID: "FORK", Quantity: 1},
	})
	f.AddBom("BOM-WHEEL", "WHEEL", []BomLine{
		{ComponentID: "SPOKE", Quantity: 36},
	})

	return f
}
