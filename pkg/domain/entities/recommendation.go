package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecommendationType represents the action an MRP recommendation proposes
type RecommendationType int

const (
	RecommendPurchaseOrder RecommendationType = iota
	RecommendWorkOrder
	RecommendTransfer
	RecommendRescheduleIn
	RecommendRescheduleOut
	RecommendCancel
	RecommendExpedite
)

// String method for RecommendationType enum
func (t RecommendationType) String() string {
	switch t {
	case RecommendPurchaseOrder:
		return "PurchaseOrder"
	case RecommendWorkOrder:
		return "WorkOrder"
	case RecommendTransfer:
		return "Transfer"
	case RecommendRescheduleIn:
		return "RescheduleIn"
	case RecommendRescheduleOut:
		return "RescheduleOut"
	case RecommendCancel:
		return "Cancel"
	case RecommendExpedite:
		return "Expedite"
	default:
		return "Unknown"
	}
}

// RecommendationStatus represents the workflow state of a recommendation.
// Mutated by external workflow code, never by the planning core after creation.
type RecommendationStatus int

const (
	RecommendationPending RecommendationStatus = iota
	RecommendationApproved
	RecommendationRejected
	RecommendationActioned
	RecommendationExpired
)

// String method for RecommendationStatus enum
func (s RecommendationStatus) String() string {
	switch s {
	case RecommendationPending:
		return "Pending"
	case RecommendationApproved:
		return "Approved"
	case RecommendationRejected:
		return "Rejected"
	case RecommendationActioned:
		return "Actioned"
	case RecommendationExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// CalculationDetails is the typed audit payload attached to every
// recommendation. Version identifies the payload layout so stored details
// remain inspectable after the netting logic evolves.
type CalculationDetails struct {
	Version            int                `json:"version"`
	RecommendationType RecommendationType `json:"recommendation_type"`

	IndependentDemand decimal.Decimal `json:"independent_demand"`
	DependentDemand   decimal.Decimal `json:"dependent_demand"`
	FreeStock         decimal.Decimal `json:"free_stock"`
	SafetyStock       decimal.Decimal `json:"safety_stock"`
	ScheduledReceipts decimal.Decimal `json:"scheduled_receipts"`
	NetRequirement    decimal.Decimal `json:"net_requirement"`

	MinimumOrderQty decimal.Decimal `json:"minimum_order_qty"`
	OrderMultiple   decimal.Decimal `json:"order_multiple"`
	MaximumStock    decimal.Decimal `json:"maximum_stock"`
	LeadTimeDays    int             `json:"lead_time_days"`

	// Set when the recommendation targets an existing open order
	// (reschedule, cancel, expedite).
	SourceOrderRef     string     `json:"source_order_ref,omitempty"`
	SourceOrderDueDate *time.Time `json:"source_order_due_date,omitempty"`

	// Set for transfer recommendations.
	SourceWarehouseID WarehouseID `json:"source_warehouse_id,omitempty"`
}

// MrpRecommendation is one planning decision for one product in one run
type MrpRecommendation struct {
	ID        uuid.UUID
	RunID     uuid.UUID
	ProductID ProductID
	Type      RecommendationType
	Status    RecommendationStatus

	RequiredDate  time.Time
	SuggestedDate time.Time
	DueDate       time.Time

	GrossQuantity     decimal.Decimal
	NetQuantity       decimal.Decimal
	SuggestedQuantity decimal.Decimal
	CurrentQuantity   decimal.Decimal // quantity on the open order being acted on
	ProjectedStock    decimal.Decimal

	Priority int // 1 (highest) .. 5 (lowest)
	IsUrgent bool

	Details   CalculationDetails
	CreatedAt time.Time
}

// NewMrpRecommendation creates a validated MrpRecommendation
func NewMrpRecommendation(runID uuid.UUID, productID ProductID, recType RecommendationType) (*MrpRecommendation, error) {
	if runID == uuid.Nil {
		return nil, fmt.Errorf("run id cannot be empty")
	}
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}

	return &MrpRecommendation{
		ID:        uuid.New(),
		RunID:     runID,
		ProductID: productID,
		Type:      recType,
		Status:    RecommendationPending,
		Priority:  5,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// DependentDemand is dependent component demand registered by a parent
// product's netting decision, visible to products at higher low-level codes
// within the same run.
type DependentDemand struct {
	RunID           uuid.UUID
	ProductID       ProductID // the component the demand is for
	ParentProductID ProductID
	Quantity        decimal.Decimal
	RequiredDate    time.Time
}
