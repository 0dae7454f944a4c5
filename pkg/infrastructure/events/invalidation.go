package events

import (
	"fmt"

	"github.com/quartzerp/mrp/pkg/planning/cache"
)

// CacheInvalidator bridges master-data change events to the planning cache:
// BOM and product changes drop the company's derived entries and mark the
// affected product dirty, calendar changes sweep the whole company.
type CacheInvalidator struct {
	cacheMgr *cache.Manager
}

// NewCacheInvalidator creates the invalidation handler
func NewCacheInvalidator(cacheMgr *cache.Manager) *CacheInvalidator {
	return &CacheInvalidator{cacheMgr: cacheMgr}
}

// Verify interface compliance
var _ EventHandler = (*CacheInvalidator)(nil)

// RegisterCacheInvalidator subscribes the handler to every master-data
// change event type.
func RegisterCacheInvalidator(bus EventBus, cacheMgr *cache.Manager) (*CacheInvalidator, error) {
	handler := NewCacheInvalidator(cacheMgr)
	types := []string{
		BomCreatedEvent, BomUpdatedEvent, BomDeletedEvent,
		BomItemCreatedEvent, BomItemUpdatedEvent, BomItemDeletedEvent,
		ProductUpdatedEvent,
		CalendarExceptionChangedEvent,
	}
	if err := bus.Subscribe(types, handler); err != nil {
		return nil, fmt.Errorf("failed to subscribe cache invalidator: %w", err)
	}
	return handler, nil
}

func (h *CacheInvalidator) CanHandle(eventType string) bool {
	switch eventType {
	case BomCreatedEvent, BomUpdatedEvent, BomDeletedEvent,
		BomItemCreatedEvent, BomItemUpdatedEvent, BomItemDeletedEvent,
		ProductUpdatedEvent,
		CalendarExceptionChangedEvent:
		return true
	default:
		return false
	}
}

func (h *CacheInvalidator) Handle(event Event) error {
	switch event.Type() {
	case BomCreatedEvent, BomUpdatedEvent, BomDeletedEvent:
		data, ok := event.Data().(BomChanged)
		if !ok {
			return fmt.Errorf("invalid event data for %s", event.Type())
		}
		h.cacheMgr.BomChanged(data.CompanyID, data.ProductID, data.BomID)

	case BomItemCreatedEvent, BomItemUpdatedEvent, BomItemDeletedEvent:
		data, ok := event.Data().(BomItemChanged)
		if !ok {
			return fmt.Errorf("invalid event data for %s", event.Type())
		}
		h.cacheMgr.BomItemChanged(data.CompanyID, data.ProductID, data.BomID)

	case ProductUpdatedEvent:
		data, ok := event.Data().(ProductChanged)
		if !ok {
			return fmt.Errorf("invalid event data for %s", event.Type())
		}
		h.cacheMgr.ProductChanged(data.CompanyID, data.ProductID)

	case CalendarExceptionChangedEvent:
		data, ok := event.Data().(CalendarExceptionChanged)
		if !ok {
			return fmt.Errorf("invalid event data for %s", event.Type())
		}
		h.cacheMgr.CalendarChanged(data.CompanyID)
	}
	return nil
}
