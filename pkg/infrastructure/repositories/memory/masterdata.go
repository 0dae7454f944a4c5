package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	"github.com/quartzerp/mrp/pkg/domain/repositories"
)

// ProductRepository is an in-memory product master store
type ProductRepository struct {
	mutex    sync.RWMutex
	products map[entities.ProductID]*entities.Product
}

// NewProductRepository creates an empty in-memory product repository
func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[entities.ProductID]*entities.Product)}
}

// Verify interface compliance
var _ repositories.ProductRepository = (*ProductRepository)(nil)

// LoadProducts loads products into the repository
func (r *ProductRepository) LoadProducts(products []*entities.Product) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, product := range products {
		copied := *product
		r.products[product.ID] = &copied
	}
	return nil
}

// GetProduct returns one product by ID
func (r *ProductRepository) GetProduct(id entities.ProductID) (*entities.Product, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	product, exists := r.products[id]
	if !exists {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	copied := *product
	return &copied, nil
}

// GetActiveProducts returns all active products of a company, ordered by ID
func (r *ProductRepository) GetActiveProducts(companyID entities.CompanyID) ([]*entities.Product, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var products []*entities.Product
	for _, product := range r.products {
		if product.CompanyID == companyID && product.Active {
			copied := *product
			products = append(products, &copied)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// UpdateLowLevelCodes persists derived low-level codes
func (r *ProductRepository) UpdateLowLevelCodes(companyID entities.CompanyID, codes map[entities.ProductID]int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for id, code := range codes {
		if product, exists := r.products[id]; exists && product.CompanyID == companyID {
			product.LowLevelCode = code
		}
	}
	return nil
}

// BomRepository is an in-memory BOM store
type BomRepository struct {
	mutex    sync.RWMutex
	boms     map[entities.BomID]*entities.Bom
	defaults map[entities.ProductID]entities.BomID
}

// NewBomRepository creates an empty in-memory BOM repository
func NewBomRepository() *BomRepository {
	return &BomRepository{
		boms:     make(map[entities.BomID]*entities.Bom),
		defaults: make(map[entities.ProductID]entities.BomID),
	}
}

// Verify interface compliance
var _ repositories.BomRepository = (*BomRepository)(nil)

// LoadBoms loads BOM headers (with items) into the repository
func (r *BomRepository) LoadBoms(boms []*entities.Bom) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, bom := range boms {
		copied := *bom
		copied.Items = append([]entities.BomItem(nil), bom.Items...)
		r.boms[bom.ID] = &copied
		if bom.IsDefault && bom.Status == entities.BomActive {
			r.defaults[bom.ProductID] = bom.ID
		}
	}
	return nil
}

// GetBom returns one BOM header by ID
func (r *BomRepository) GetBom(id entities.BomID) (*entities.Bom, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	bom, exists := r.boms[id]
	if !exists {
		return nil, fmt.Errorf("bom not found: %s", id)
	}
	return copyBom(bom), nil
}

// GetDefaultBom returns the default active BOM for a product, or nil
func (r *BomRepository) GetDefaultBom(productID entities.ProductID) (*entities.Bom, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	bomID, exists := r.defaults[productID]
	if !exists {
		return nil, nil
	}
	bom, exists := r.boms[bomID]
	if !exists || bom.Status != entities.BomActive {
		return nil, nil
	}
	return copyBom(bom), nil
}

// GetActiveBoms returns every active BOM of a company, ordered by ID
func (r *BomRepository) GetActiveBoms(companyID entities.CompanyID) ([]*entities.Bom, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var boms []*entities.Bom
	for _, bom := range r.boms {
		if bom.CompanyID == companyID && bom.Status == entities.BomActive {
			boms = append(boms, copyBom(bom))
		}
	}
	sort.Slice(boms, func(i, j int) bool { return boms[i].ID < boms[j].ID })
	return boms, nil
}

func copyBom(bom *entities.Bom) *entities.Bom {
	copied := *bom
	copied.Items = append([]entities.BomItem(nil), bom.Items...)
	return &copied
}

// StockRepository is an in-memory stock snapshot store
type StockRepository struct {
	mutex     sync.RWMutex
	snapshots map[entities.ProductID][]entities.StockSnapshot
}

// NewStockRepository creates an empty in-memory stock repository
func NewStockRepository() *StockRepository {
	return &StockRepository{snapshots: make(map[entities.ProductID][]entities.StockSnapshot)}
}

// Verify interface compliance
var _ repositories.StockRepository = (*StockRepository)(nil)

// LoadStock loads stock snapshots into the repository
func (r *StockRepository) LoadStock(snapshots []entities.StockSnapshot) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, snapshot := range snapshots {
		r.snapshots[snapshot.ProductID] = append(r.snapshots[snapshot.ProductID], snapshot)
	}
	return nil
}

// GetStock returns all warehouse snapshots for a product
func (r *StockRepository) GetStock(productID entities.ProductID) ([]entities.StockSnapshot, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]entities.StockSnapshot(nil), r.snapshots[productID]...), nil
}

// OrderRepository is an in-memory open supply and demand store
type OrderRepository struct {
	mutex  sync.RWMutex
	supply map[entities.ProductID][]entities.OpenSupply
	demand map[entities.ProductID][]entities.OpenDemand
}

// NewOrderRepository creates an empty in-memory order repository
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		supply: make(map[entities.ProductID][]entities.OpenSupply),
		demand: make(map[entities.ProductID][]entities.OpenDemand),
	}
}

// Verify interface compliance
var _ repositories.OrderRepository = (*OrderRepository)(nil)

// LoadOpenSupply loads open supply orders
func (r *OrderRepository) LoadOpenSupply(supply []entities.OpenSupply) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, order := range supply {
		r.supply[order.ProductID] = append(r.supply[order.ProductID], order)
	}
	return nil
}

// LoadOpenDemand loads independent demand
func (r *OrderRepository) LoadOpenDemand(demand []entities.OpenDemand) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, order := range demand {
		r.demand[order.ProductID] = append(r.demand[order.ProductID], order)
	}
	return nil
}

// GetOpenSupply returns open supply orders for a product
func (r *OrderRepository) GetOpenSupply(productID entities.ProductID) ([]entities.OpenSupply, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]entities.OpenSupply(nil), r.supply[productID]...), nil
}

// GetOpenDemand returns independent demand for a product
func (r *OrderRepository) GetOpenDemand(productID entities.ProductID) ([]entities.OpenDemand, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]entities.OpenDemand(nil), r.demand[productID]...), nil
}

// CalendarRepository is an in-memory calendar exception store
type CalendarRepository struct {
	mutex      sync.RWMutex
	exceptions map[string]entities.CalendarException
}

// NewCalendarRepository creates an empty in-memory calendar repository
func NewCalendarRepository() *CalendarRepository {
	return &CalendarRepository{exceptions: make(map[string]entities.CalendarException)}
}

// Verify interface compliance
var _ repositories.CalendarRepository = (*CalendarRepository)(nil)

// LoadExceptions loads calendar exceptions
func (r *CalendarRepository) LoadExceptions(exceptions []entities.CalendarException) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, exception := range exceptions {
		r.exceptions[exceptionKey(exception.Scope, exception.Date)] = exception
	}
	return nil
}

// GetException returns the exception for a scope and date, or nil.
// Work-center scopes fall back to the company-wide exception.
func (r *CalendarRepository) GetException(scope entities.CalendarScope, date time.Time) (*entities.CalendarException, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if exception, exists := r.exceptions[exceptionKey(scope, date)]; exists {
		return &exception, nil
	}
	if scope.WorkCenterID != "" {
		companyScope := entities.CalendarScope{CompanyID: scope.CompanyID}
		if exception, exists := r.exceptions[exceptionKey(companyScope, date)]; exists {
			return &exception, nil
		}
	}
	return nil, nil
}

func exceptionKey(scope entities.CalendarScope, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", scope.CompanyID, scope.WorkCenterID, date.Format("2006-01-02"))
}
