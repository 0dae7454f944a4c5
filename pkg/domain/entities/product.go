package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ProductID represents a unique product identifier
type ProductID string

// CompanyID identifies the company a planning run belongs to
type CompanyID string

// WarehouseID identifies a stock-keeping location
type WarehouseID string

// MakeOrBuy represents the sourcing policy of a product
type MakeOrBuy int

const (
	Buy MakeOrBuy = iota
	Make
)

// String method for MakeOrBuy enum
func (m MakeOrBuy) String() string {
	switch m {
	case Buy:
		return "Buy"
	case Make:
		return "Make"
	default:
		return "Unknown"
	}
}

// Product represents product master data with its MRP planning fields
type Product struct {
	ID              ProductID
	CompanyID       CompanyID
	Description     string
	LeadTimeDays    int
	SafetyStock     decimal.Decimal
	ReorderPoint    decimal.Decimal
	MakeOrBuy       MakeOrBuy
	MinimumOrderQty decimal.Decimal
	OrderMultiple   decimal.Decimal
	MaximumStock    decimal.Decimal // zero = no cap
	LowLevelCode    int             // derived, maintained by the LLC calculator
	Active          bool
}

// NewProduct creates a validated Product
func NewProduct(id ProductID, companyID CompanyID, makeOrBuy MakeOrBuy, leadTimeDays int) (*Product, error) {
	if id == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if companyID == "" {
		return nil, fmt.Errorf("company id cannot be empty")
	}
	if leadTimeDays < 0 {
		return nil, fmt.Errorf("lead time cannot be negative, got %d", leadTimeDays)
	}

	return &Product{
		ID:           id,
		CompanyID:    companyID,
		MakeOrBuy:    makeOrBuy,
		LeadTimeDays: leadTimeDays,
		Active:       true,
	}, nil
}

// HasMaximumStock reports whether a maximum stock cap is configured
func (p *Product) HasMaximumStock() bool {
	return p.MaximumStock.IsPositive()
}
