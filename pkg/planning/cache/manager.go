package cache

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/quartzerp/mrp/pkg/domain/entities"
)

// LLCSource recomputes low-level codes when the cached copy is stale
type LLCSource interface {
	ComputeLowLevelCodes(ctx context.Context, companyID entities.CompanyID) (map[entities.ProductID]int, error)
}

// Manager owns the planning cache key scheme and the per-company dirty
// product set. Master-data mutation code calls the *Changed methods;
// invalidation failures are logged and never block the triggering write.
type Manager struct {
	store  Store
	llcSrc LLCSource

	// Serializes read-modify-write of the dirty set value in the store.
	dirtyMutex sync.Mutex
}

// NewManager creates a cache manager over a store and an LLC source
func NewManager(store Store, llcSrc LLCSource) *Manager {
	return &Manager{store: store, llcSrc: llcSrc}
}

// LowLevelCodes returns the company's low-level codes, recomputing through
// the calculator on a cache miss.
func (m *Manager) LowLevelCodes(ctx context.Context, companyID entities.CompanyID) (map[entities.ProductID]int, error) {
	key := LLCKey(companyID)
	if cached, exists := m.store.Get(key); exists {
		if codes, ok := cached.(map[entities.ProductID]int); ok {
			return codes, nil
		}
	}

	codes, err := m.llcSrc.ComputeLowLevelCodes(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute low-level codes: %w", err)
	}

	m.store.Put(key, codes)
	return codes, nil
}

// Store exposes the underlying cache store for components that manage
// their own entries (the exploder caches per-BOM explosions).
func (m *Manager) Store() Store {
	return m.store
}

// DirtyProducts returns a snapshot of the company's dirty-product set
func (m *Manager) DirtyProducts(companyID entities.CompanyID) []entities.ProductID {
	m.dirtyMutex.Lock()
	defer m.dirtyMutex.Unlock()

	set := m.dirtySet(companyID)
	products := make([]entities.ProductID, 0, len(set))
	for id := range set {
		products = append(products, id)
	}
	return products
}

// MarkDirty adds a product to the company's dirty set
func (m *Manager) MarkDirty(companyID entities.CompanyID, productID entities.ProductID) {
	m.dirtyMutex.Lock()
	defer m.dirtyMutex.Unlock()

	set := m.dirtySet(companyID)
	updated := make(map[entities.ProductID]bool, len(set)+1)
	for id := range set {
		updated[id] = true
	}
	updated[productID] = true
	m.store.Put(DirtySetKey(companyID), updated)
}

// ClearDirty removes the given products from the company's dirty set.
// Called only after a net-change run completes successfully, and only for
// the products that run actually planned.
func (m *Manager) ClearDirty(companyID entities.CompanyID, products []entities.ProductID) {
	m.dirtyMutex.Lock()
	defer m.dirtyMutex.Unlock()

	set := m.dirtySet(companyID)
	updated := make(map[entities.ProductID]bool, len(set))
	for id := range set {
		updated[id] = true
	}
	for _, id := range products {
		delete(updated, id)
	}
	m.store.Put(DirtySetKey(companyID), updated)
}

func (m *Manager) dirtySet(companyID entities.CompanyID) map[entities.ProductID]bool {
	if cached, exists := m.store.Get(DirtySetKey(companyID)); exists {
		if set, ok := cached.(map[entities.ProductID]bool); ok {
			return set
		}
	}
	return map[entities.ProductID]bool{}
}

// BomChanged invalidates after a BOM header is created, updated or deleted.
// The edge set is global, so the company LLC entry goes along with every
// other company entry; the owning product is marked dirty.
func (m *Manager) BomChanged(companyID entities.CompanyID, productID entities.ProductID, bomID entities.BomID) {
	m.sweepCompany(companyID, productID)
	log.Printf("cache: invalidated company %s after bom %s change", companyID, bomID)
}

// BomItemChanged invalidates after a BOM line is created, updated or
// deleted: that BOM's explosion entry is dropped and the owning product is
// marked dirty. Quantity-only edits do not move low-level codes, but
// component changes do, so the LLC entry is dropped too.
func (m *Manager) BomItemChanged(companyID entities.CompanyID, productID entities.ProductID, bomID entities.BomID) {
	m.store.Invalidate(ExplosionKey(companyID, bomID))
	m.store.Invalidate(LLCKey(companyID))
	m.MarkDirty(companyID, productID)
}

// ProductChanged invalidates after a product's MRP fields change
func (m *Manager) ProductChanged(companyID entities.CompanyID, productID entities.ProductID) {
	m.sweepCompany(companyID, productID)
}

// CalendarChanged invalidates the entire company cache; date math affects
// every product. Dirty marks survive so a pending net-change run still
// knows what to replan.
func (m *Manager) CalendarChanged(companyID entities.CompanyID) {
	m.sweepCompany(companyID)
	log.Printf("cache: invalidated company %s after calendar change", companyID)
}

// sweepCompany drops every cache entry for the company while preserving the
// dirty set, with the given products added to it. The mutex is held across
// the whole sweep so a concurrent MarkDirty cannot land between the
// invalidation and the rewrite and be lost.
func (m *Manager) sweepCompany(companyID entities.CompanyID, alsoDirty ...entities.ProductID) {
	m.dirtyMutex.Lock()
	defer m.dirtyMutex.Unlock()

	set := m.dirtySet(companyID)
	updated := make(map[entities.ProductID]bool, len(set)+len(alsoDirty))
	for id := range set {
		updated[id] = true
	}
	for _, id := range alsoDirty {
		updated[id] = true
	}

	m.store.InvalidatePrefix(CompanyPrefix(companyID))
	if len(updated) > 0 {
		m.store.Put(DirtySetKey(companyID), updated)
	}
}
