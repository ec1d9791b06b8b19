package procurement

import (
	"time"

	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypePurchaseOrder is the aggregate type of purchase order events
const AggregateTypePurchaseOrder = "PurchaseOrder"

// Event type constants
const (
	EventTypePurchaseOrderCreated   = "PurchaseOrderCreated"
	EventTypePurchaseOrderSubmitted = "PurchaseOrderSubmitted"
	EventTypePurchaseOrderApproved  = "PurchaseOrderApproved"
	EventTypePurchaseOrderRejected  = "PurchaseOrderRejected"
	EventTypePurchaseOrderReady     = "PurchaseOrderReady"
	EventTypePurchaseOrderDelivered = "PurchaseOrderDelivered"
)

// PurchaseOrderCreatedEvent is raised when a draft order is opened
type PurchaseOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string    `json:"order_number"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
}

// NewPurchaseOrderCreatedEvent creates a new PurchaseOrderCreatedEvent
func NewPurchaseOrderCreatedEvent(order *PurchaseOrder) *PurchaseOrderCreatedEvent {
	return &PurchaseOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderCreated, AggregateTypePurchaseOrder, order.ID, order.FranchiseeID),
		OrderNumber:     order.OrderNumber,
		WarehouseID:     order.WarehouseID,
	}
}

// PurchaseOrderSubmittedEvent carries the compliance snapshot taken at submit
type PurchaseOrderSubmittedEvent struct {
	shared.BaseDomainEvent
	OrderNumber  string          `json:"order_number"`
	CorePct      decimal.Decimal `json:"core_pct"`
	TotalExclTax decimal.Decimal `json:"total_excl_tax"`
	LineCount    int             `json:"line_count"`
}

// NewPurchaseOrderSubmittedEvent creates a new PurchaseOrderSubmittedEvent
func NewPurchaseOrderSubmittedEvent(order *PurchaseOrder) *PurchaseOrderSubmittedEvent {
	e := &PurchaseOrderSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderSubmitted, AggregateTypePurchaseOrder, order.ID, order.FranchiseeID),
		OrderNumber:     order.OrderNumber,
		TotalExclTax:    order.TotalExclTax,
		LineCount:       len(order.Lines),
	}
	if order.SubmittedCorePct != nil {
		e.CorePct = *order.SubmittedCorePct
	}
	return e
}

// PurchaseOrderApprovedEvent is raised when an approver accepts the order
type PurchaseOrderApprovedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string    `json:"order_number"`
	ApprovedBy  uuid.UUID `json:"approved_by"`
}

// NewPurchaseOrderApprovedEvent creates a new PurchaseOrderApprovedEvent
func NewPurchaseOrderApprovedEvent(order *PurchaseOrder) *PurchaseOrderApprovedEvent {
	e := &PurchaseOrderApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderApproved, AggregateTypePurchaseOrder, order.ID, order.FranchiseeID),
		OrderNumber:     order.OrderNumber,
	}
	if order.ApprovedBy != nil {
		e.ApprovedBy = *order.ApprovedBy
	}
	return e
}

// PurchaseOrderRejectedEvent is raised when a submitted order is cancelled
type PurchaseOrderRejectedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason"`
}

// NewPurchaseOrderRejectedEvent creates a new PurchaseOrderRejectedEvent
func NewPurchaseOrderRejectedEvent(order *PurchaseOrder) *PurchaseOrderRejectedEvent {
	return &PurchaseOrderRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderRejected, AggregateTypePurchaseOrder, order.ID, order.FranchiseeID),
		OrderNumber:     order.OrderNumber,
		Reason:          order.RejectionReason,
	}
}

// PurchaseOrderReadyEvent is raised when preparation completes
type PurchaseOrderReadyEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
}

// NewPurchaseOrderReadyEvent creates a new PurchaseOrderReadyEvent
func NewPurchaseOrderReadyEvent(order *PurchaseOrder) *PurchaseOrderReadyEvent {
	return &PurchaseOrderReadyEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderReady, AggregateTypePurchaseOrder, order.ID, order.FranchiseeID),
		OrderNumber:     order.OrderNumber,
	}
}

// PurchaseOrderDeliveredEvent marks the order as counted toward gross sales
type PurchaseOrderDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderNumber  string          `json:"order_number"`
	TotalExclTax decimal.Decimal `json:"total_excl_tax"`
	DeliveredAt  time.Time       `json:"delivered_at"`
}

// NewPurchaseOrderDeliveredEvent creates a new PurchaseOrderDeliveredEvent
func NewPurchaseOrderDeliveredEvent(order *PurchaseOrder) *PurchaseOrderDeliveredEvent {
	e := &PurchaseOrderDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderDelivered, AggregateTypePurchaseOrder, order.ID, order.FranchiseeID),
		OrderNumber:     order.OrderNumber,
		TotalExclTax:    order.GrossSalesAmount(),
	}
	if order.DeliveredAt != nil {
		e.DeliveredAt = *order.DeliveredAt
	}
	return e
}
