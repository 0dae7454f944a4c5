package repositories

import (
	"time"

	"github.com/quartzerp/mrp/pkg/domain/entities"
)

// ProductRepository provides access to product master data
type ProductRepository interface {
	GetProduct(id entities.ProductID) (*entities.Product, error)
	GetActiveProducts(companyID entities.CompanyID) ([]*entities.Product, error)
	LoadProducts(products []*entities.Product) error

	// UpdateLowLevelCodes persists derived low-level codes. Called only by
	// the LLC calculator.
	UpdateLowLevelCodes(companyID entities.CompanyID, codes map[entities.ProductID]int) error
}

// BomRepository provides access to BOM headers and items
type BomRepository interface {
	GetBom(id entities.BomID) (*entities.Bom, error)

	// GetDefaultBom returns the default active BOM for a product, or nil
	// when the product has none.
	GetDefaultBom(productID entities.ProductID) (*entities.Bom, error)

	// GetActiveBoms returns every active BOM header (with items) for a
	// company. The LLC calculator derives the global edge set from this.
	GetActiveBoms(companyID entities.CompanyID) ([]*entities.Bom, error)

	LoadBoms(boms []*entities.Bom) error
}

// StockRepository provides read-only stock snapshots
type StockRepository interface {
	// GetStock returns all warehouse snapshots for a product.
	GetStock(productID entities.ProductID) ([]entities.StockSnapshot, error)
	LoadStock(snapshots []entities.StockSnapshot) error
}

// OrderRepository provides read-only open supply and independent demand
type OrderRepository interface {
	GetOpenSupply(productID entities.ProductID) ([]entities.OpenSupply, error)
	GetOpenDemand(productID entities.ProductID) ([]entities.OpenDemand, error)
	LoadOpenSupply(supply []entities.OpenSupply) error
	LoadOpenDemand(demand []entities.OpenDemand) error
}

// CalendarRepository provides calendar exception lookups keyed by scope and date
type CalendarRepository interface {
	// GetException returns the exception for a scope and date, or nil when
	// none exists. Work-center scopes fall back to the company scope.
	GetException(scope entities.CalendarScope, date time.Time) (*entities.CalendarException, error)
	LoadExceptions(exceptions []entities.CalendarException) error
}
