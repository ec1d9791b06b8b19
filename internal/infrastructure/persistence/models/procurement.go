package models

import (
	"time"

	"github.com/foodtruck/backend/internal/domain/procurement"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate root.
type PurchaseOrderModel struct {
	AggregateModel
	OrderNumber           string                   `gorm:"type:varchar(50);not null;uniqueIndex"`
	FranchiseeID          uuid.UUID                `gorm:"type:uuid;not null;index"`
	WarehouseID           uuid.UUID                `gorm:"type:uuid;not null"`
	Currency              string                   `gorm:"type:varchar(3);not null"`
	Lines                 []PurchaseOrderLineModel `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
	Status                procurement.OrderStatus  `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	CorePct               decimal.NullDecimal      `gorm:"type:decimal(9,4)"`
	TotalExclTax          decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	TaxAmount             decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	SubmittedCorePct      decimal.NullDecimal      `gorm:"type:decimal(9,4)"`
	SubmittedTotalExclTax decimal.NullDecimal      `gorm:"type:decimal(18,4)"`
	CreatedBy             uuid.UUID                `gorm:"type:uuid;not null"`
	ApprovedBy            *uuid.UUID               `gorm:"type:uuid"`
	RejectedBy            *uuid.UUID               `gorm:"type:uuid"`
	RejectionReason       string                   `gorm:"type:varchar(500)"`
	SubmittedAt           *time.Time
	ApprovedAt            *time.Time
	ReadyAt               *time.Time
	DeliveredAt           *time.Time `gorm:"index"`
	CancelledAt           *time.Time
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder entity.
func (m *PurchaseOrderModel) ToDomain() *procurement.PurchaseOrder {
	order := &procurement.PurchaseOrder{
		BaseAggregateRoot:     m.ToAggregateRoot(),
		OrderNumber:           m.OrderNumber,
		FranchiseeID:          m.FranchiseeID,
		WarehouseID:           m.WarehouseID,
		Currency:              valueobject.Currency(m.Currency),
		Status:                m.Status,
		CorePct:               fromNullDecimal(m.CorePct),
		TotalExclTax:          m.TotalExclTax,
		TaxAmount:             m.TaxAmount,
		SubmittedCorePct:      fromNullDecimal(m.SubmittedCorePct),
		SubmittedTotalExclTax: fromNullDecimal(m.SubmittedTotalExclTax),
		CreatedBy:             m.CreatedBy,
		ApprovedBy:            m.ApprovedBy,
		RejectedBy:            m.RejectedBy,
		RejectionReason:       m.RejectionReason,
		SubmittedAt:           m.SubmittedAt,
		ApprovedAt:            m.ApprovedAt,
		ReadyAt:               m.ReadyAt,
		DeliveredAt:           m.DeliveredAt,
		CancelledAt:           m.CancelledAt,
		Lines:                 make([]procurement.PurchaseOrderLine, len(m.Lines)),
	}
	for i, line := range m.Lines {
		order.Lines[i] = *line.ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain PurchaseOrder entity.
func (m *PurchaseOrderModel) FromDomain(o *procurement.PurchaseOrder) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.FranchiseeID = o.FranchiseeID
	m.WarehouseID = o.WarehouseID
	m.Currency = string(o.Currency)
	m.Status = o.Status
	m.CorePct = toNullDecimal(o.CorePct)
	m.TotalExclTax = o.TotalExclTax
	m.TaxAmount = o.TaxAmount
	m.SubmittedCorePct = toNullDecimal(o.SubmittedCorePct)
	m.SubmittedTotalExclTax = toNullDecimal(o.SubmittedTotalExclTax)
	m.CreatedBy = o.CreatedBy
	m.ApprovedBy = o.ApprovedBy
	m.RejectedBy = o.RejectedBy
	m.RejectionReason = o.RejectionReason
	m.SubmittedAt = utcPtr(o.SubmittedAt)
	m.ApprovedAt = utcPtr(o.ApprovedAt)
	m.ReadyAt = utcPtr(o.ReadyAt)
	m.DeliveredAt = utcPtr(o.DeliveredAt)
	m.CancelledAt = utcPtr(o.CancelledAt)
	m.Lines = make([]PurchaseOrderLineModel, len(o.Lines))
	for i := range o.Lines {
		m.Lines[i] = *PurchaseOrderLineModelFromDomain(&o.Lines[i])
	}
}

// PurchaseOrderModelFromDomain creates a new persistence model from a domain PurchaseOrder entity.
func PurchaseOrderModelFromDomain(o *procurement.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{}
	m.FromDomain(o)
	return m
}

// PurchaseOrderLineModel is the persistence model for the PurchaseOrderLine entity.
type PurchaseOrderLineModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position         int             `gorm:"not null"`
	ProductID        string          `gorm:"type:varchar(64);not null"`
	ProductName      string          `gorm:"type:varchar(200)"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPriceExclTax decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxRatePct       decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	IsCoreItem       bool            `gorm:"not null;default:false"`
	AmountExclTax    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseOrderLineModel) TableName() string {
	return "purchase_order_lines"
}

// ToDomain converts the persistence model to a domain PurchaseOrderLine entity.
func (m *PurchaseOrderLineModel) ToDomain() *procurement.PurchaseOrderLine {
	return &procurement.PurchaseOrderLine{
		ID:               m.ID,
		OrderID:          m.OrderID,
		Position:         m.Position,
		ProductID:        m.ProductID,
		ProductName:      m.ProductName,
		Quantity:         m.Quantity,
		UnitPriceExclTax: m.UnitPriceExclTax,
		TaxRatePct:       m.TaxRatePct,
		IsCoreItem:       m.IsCoreItem,
		AmountExclTax:    m.AmountExclTax,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain PurchaseOrderLine entity.
func (m *PurchaseOrderLineModel) FromDomain(l *procurement.PurchaseOrderLine) {
	m.ID = l.ID
	m.OrderID = l.OrderID
	m.Position = l.Position
	m.ProductID = l.ProductID
	m.ProductName = l.ProductName
	m.Quantity = l.Quantity
	m.UnitPriceExclTax = l.UnitPriceExclTax
	m.TaxRatePct = l.TaxRatePct
	m.IsCoreItem = l.IsCoreItem
	m.AmountExclTax = l.AmountExclTax
	m.CreatedAt = l.CreatedAt
	m.UpdatedAt = l.UpdatedAt
}

// PurchaseOrderLineModelFromDomain creates a new persistence model from a domain PurchaseOrderLine entity.
func PurchaseOrderLineModelFromDomain(l *procurement.PurchaseOrderLine) *PurchaseOrderLineModel {
	m := &PurchaseOrderLineModel{}
	m.FromDomain(l)
	return m
}
