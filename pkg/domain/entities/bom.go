package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BomID represents a unique BOM header identifier
type BomID string

// BomStatus represents the lifecycle status of a BOM header
type BomStatus int

const (
	BomDraft BomStatus = iota
	BomActive
	BomObsolete
)

// String method for BomStatus enum
func (s BomStatus) String() string {
	switch s {
	case BomDraft:
		return "Draft"
	case BomActive:
		return "Active"
	case BomObsolete:
		return "Obsolete"
	default:
		return "Unknown"
	}
}

// Bom is a versioned BOM header owning an ordered list of BomItems.
// At most one BOM per product may be the default active BOM.
type Bom struct {
	ID        BomID
	ProductID ProductID
	CompanyID CompanyID
	Version   int
	Status    BomStatus
	IsDefault bool
	Items     []BomItem
}

// NewBom creates a validated Bom header
func NewBom(id BomID, productID ProductID, companyID CompanyID, version int) (*Bom, error) {
	if id == "" {
		return nil, fmt.Errorf("bom id cannot be empty")
	}
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if version <= 0 {
		return nil, fmt.Errorf("version must be positive, got %d", version)
	}

	return &Bom{
		ID:        id,
		ProductID: productID,
		CompanyID: companyID,
		Version:   version,
		Status:    BomDraft,
	}, nil
}

// IsExplodable reports whether this BOM may be used for explosion
func (b *Bom) IsExplodable() bool {
	return b.Status == BomActive
}

// BomItem represents a single component line on a BOM
type BomItem struct {
	BomID           BomID
	ComponentID     ProductID
	Quantity        decimal.Decimal // quantity per unit of the parent
	ScrapPercentage decimal.Decimal // [0, 100]
	IsPhantom       bool
	IsOptional      bool
	Sequence        int
}

// NewBomItem creates a validated BomItem
func NewBomItem(bomID BomID, componentID ProductID, quantity, scrapPercentage decimal.Decimal) (*BomItem, error) {
	if bomID == "" {
		return nil, fmt.Errorf("bom id cannot be empty")
	}
	if componentID == "" {
		return nil, fmt.Errorf("component id cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s", quantity)
	}
	if scrapPercentage.IsNegative() || scrapPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("scrap percentage must be within [0,100], got %s", scrapPercentage)
	}

	return &BomItem{
		BomID:           bomID,
		ComponentID:     componentID,
		Quantity:        quantity,
		ScrapPercentage: scrapPercentage,
	}, nil
}

// ScrapFactor returns the quantity multiplier 1 + scrap/100
func (i *BomItem) ScrapFactor() decimal.Decimal {
	return decimal.NewFromInt(1).Add(i.ScrapPercentage.Div(decimal.NewFromInt(100)))
}
