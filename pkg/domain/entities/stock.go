package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockSnapshot represents on-hand inventory for a product at a warehouse.
// Read-only input to netting; never mutated by the planning core.
type StockSnapshot struct {
	ProductID   ProductID
	WarehouseID WarehouseID
	OnHand      decimal.Decimal
	Reserved    decimal.Decimal
}

// Free returns the unreserved on-hand quantity
func (s StockSnapshot) Free() decimal.Decimal {
	free := s.OnHand.Sub(s.Reserved)
	if free.IsNegative() {
		return decimal.Zero
	}
	return free
}

// SupplyType represents the kind of an open supply order
type SupplyType int

const (
	PurchaseSupply SupplyType = iota
	WorkOrderSupply
)

// String method for SupplyType enum
func (t SupplyType) String() string {
	switch t {
	case PurchaseSupply:
		return "PurchaseOrder"
	case WorkOrderSupply:
		return "WorkOrder"
	default:
		return "Unknown"
	}
}

// OpenSupply represents an existing purchase or work order scheduled to arrive
type OpenSupply struct {
	Reference string
	ProductID ProductID
	Type      SupplyType
	Quantity  decimal.Decimal
	DueDate   time.Time
}

// DemandSource represents the origin of independent demand
type DemandSource int

const (
	SalesOrderDemand DemandSource = iota
	ForecastDemand
)

// String method for DemandSource enum
func (s DemandSource) String() string {
	switch s {
	case SalesOrderDemand:
		return "SalesOrder"
	case ForecastDemand:
		return "Forecast"
	default:
		return "Unknown"
	}
}

// OpenDemand represents independent demand for a product (sales order, forecast)
type OpenDemand struct {
	Reference string
	ProductID ProductID
	Source    DemandSource
	Quantity  decimal.Decimal
	DueDate   time.Time
}
