package events

import (
	"github.com/quartzerp/mrp/pkg/domain/entities"
)

// Master-data change events published by mutation code outside the planning
// core. The cache invalidator subscribes to all of them.
const (
	BomCreatedEvent = "bom.created"
	BomUpdatedEvent = "bom.updated"
	BomDeletedEvent = "bom.deleted"

	BomItemCreatedEvent = "bom.item.created"
	BomItemUpdatedEvent = "bom.item.updated"
	BomItemDeletedEvent = "bom.item.deleted"

	ProductUpdatedEvent = "product.updated"

	CalendarExceptionChangedEvent = "calendar.exception.changed"
)

type BomChanged struct {
	CompanyID entities.CompanyID `json:"company_id"`
	ProductID entities.ProductID `json:"product_id"`
	BomID     entities.BomID     `json:"bom_id"`
}

type BomItemChanged struct {
	CompanyID entities.CompanyID `json:"company_id"`
	ProductID entities.ProductID `json:"product_id"` // product owning the BOM
	BomID     entities.BomID     `json:"bom_id"`
}

type ProductChanged struct {
	CompanyID entities.CompanyID `json:"company_id"`
	ProductID entities.ProductID `json:"product_id"`
}

type CalendarExceptionChanged struct {
	CompanyID entities.CompanyID `json:"company_id"`
}
