package procurement

import (
	"time"

	"github.com/foodtruck/backend/internal/domain/procurement"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Ratio DTOs ====================

// LineInputRequest is a line as sent by the order-entry client.
// Decimals are accepted as JSON strings ("12.50") to avoid float drift.
type LineInputRequest struct {
	ProductID        string          `json:"product_id" binding:"required,min=1,max=64"`
	ProductName      string          `json:"product_name" binding:"max=200"`
	Quantity         decimal.Decimal `json:"quantity" binding:"required"`
	UnitPriceExclTax decimal.Decimal `json:"unit_price_excl_tax"`
	TaxRatePct       decimal.Decimal `json:"tax_rate_pct"`
	IsCoreItem       bool            `json:"is_core_item"`
}

func (r LineInputRequest) toDomain() procurement.LineInput {
	return procurement.LineInput{
		ProductID:        r.ProductID,
		Quantity:         r.Quantity,
		UnitPriceExclTax: r.UnitPriceExclTax,
		TaxRatePct:       r.TaxRatePct,
		IsCoreItem:       r.IsCoreItem,
	}
}

// RatioPreviewRequest asks for the ratio of a line set without persisting anything
type RatioPreviewRequest struct {
	Lines []LineInputRequest `json:"lines" binding:"dive"`
}

// RatioResponse is the core/free split. Percentages are null when the total is zero.
type RatioResponse struct {
	CoreAmount      string  `json:"core_amount"`
	FreeAmount      string  `json:"free_amount"`
	TotalAmount     string  `json:"total_amount"`
	TaxAmount       string  `json:"tax_amount"`
	CorePct         *string `json:"core_pct"`
	FreePct         *string `json:"free_pct"`
	CorePctExact    *string `json:"core_pct_exact"`
	RequiredCorePct string  `json:"required_core_pct"`
	Compliant       bool    `json:"compliant"`
}

// ToRatioResponse converts a RatioResult to its wire form
func ToRatioResponse(r procurement.RatioResult) RatioResponse {
	resp := RatioResponse{
		CoreAmount:      money(r.CoreAmount),
		FreeAmount:      money(r.FreeAmount),
		TotalAmount:     money(r.TotalAmount),
		TaxAmount:       money(r.TaxAmount),
		RequiredCorePct: procurement.CoreThresholdPct.StringFixed(procurement.PercentDisplayScale),
		Compliant:       r.IsCompliant(),
	}
	if r.CorePct != nil {
		core := r.DisplayCorePct()
		free := r.DisplayFreePct()
		exact := r.CorePct.StringFixed(procurement.PercentScale)
		resp.CorePct = &core
		resp.FreePct = &free
		resp.CorePctExact = &exact
	}
	return resp
}

// ==================== Purchase Order DTOs ====================

// CreatePurchaseOrderRequest represents a request to open a draft order
type CreatePurchaseOrderRequest struct {
	FranchiseeID uuid.UUID          `json:"franchisee_id" binding:"required"`
	WarehouseID  uuid.UUID          `json:"warehouse_id" binding:"required"`
	Currency     string             `json:"currency" binding:"omitempty,len=3"`
	Lines        []LineInputRequest `json:"lines" binding:"dive"`
}

// AddLineRequest represents a request to add a line to a draft order
type AddLineRequest struct {
	LineInputRequest
}

// UpdateLineRequest represents a partial line update
type UpdateLineRequest struct {
	ProductName      *string          `json:"product_name" binding:"omitempty,max=200"`
	Quantity         *decimal.Decimal `json:"quantity"`
	UnitPriceExclTax *decimal.Decimal `json:"unit_price_excl_tax"`
	TaxRatePct       *decimal.Decimal `json:"tax_rate_pct"`
	IsCoreItem       *bool            `json:"is_core_item"`
}

func (r UpdateLineRequest) toDomain() procurement.LineUpdate {
	return procurement.LineUpdate{
		Quantity:         r.Quantity,
		UnitPriceExclTax: r.UnitPriceExclTax,
		TaxRatePct:       r.TaxRatePct,
		IsCoreItem:       r.IsCoreItem,
		ProductName:      r.ProductName,
	}
}

// TransitionRequest asks for a lifecycle event to be applied
type TransitionRequest struct {
	Event       string     `json:"event" binding:"required"`
	Reason      string     `json:"reason" binding:"max=500"`
	DeliveredAt *time.Time `json:"delivered_at"`
}

// PurchaseOrderListFilter represents filter options for the order list
type PurchaseOrderListFilter struct {
	FranchiseeID string `form:"franchisee_id" binding:"omitempty,uuid"`
	Status       string `form:"status" binding:"omitempty,oneof=DRAFT SUBMITTED PREPARING READY DELIVERED CANCELLED"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy      string `form:"order_by" binding:"omitempty,oneof=created_at updated_at order_number total_excl_tax"`
	OrderDir     string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PurchaseOrderLineResponse represents a line in API responses
type PurchaseOrderLineResponse struct {
	ID               uuid.UUID `json:"id"`
	Position         int       `json:"position"`
	ProductID        string    `json:"product_id"`
	ProductName      string    `json:"product_name,omitempty"`
	Quantity         string    `json:"quantity"`
	UnitPriceExclTax string    `json:"unit_price_excl_tax"`
	TaxRatePct       string    `json:"tax_rate_pct"`
	IsCoreItem       bool      `json:"is_core_item"`
	AmountExclTax    string    `json:"amount_excl_tax"`
}

// PurchaseOrderResponse represents a purchase order in API responses
type PurchaseOrderResponse struct {
	ID                    uuid.UUID                   `json:"id"`
	OrderNumber           string                      `json:"order_number"`
	FranchiseeID          uuid.UUID                   `json:"franchisee_id"`
	WarehouseID           uuid.UUID                   `json:"warehouse_id"`
	Currency              string                      `json:"currency"`
	Status                string                      `json:"status"`
	LegalEvents           []string                    `json:"legal_events"`
	Lines                 []PurchaseOrderLineResponse `json:"lines"`
	CorePct               *string                     `json:"core_pct"`
	TotalExclTax          string                      `json:"total_excl_tax"`
	TaxAmount             string                      `json:"tax_amount"`
	TotalInclTax          string                      `json:"total_incl_tax"`
	SubmittedCorePct      *string                     `json:"submitted_core_pct,omitempty"`
	SubmittedTotalExclTax *string                     `json:"submitted_total_excl_tax,omitempty"`
	CreatedBy             uuid.UUID                   `json:"created_by"`
	ApprovedBy            *uuid.UUID                  `json:"approved_by,omitempty"`
	RejectionReason       string                      `json:"rejection_reason,omitempty"`
	SubmittedAt           *time.Time                  `json:"submitted_at,omitempty"`
	ApprovedAt            *time.Time                  `json:"approved_at,omitempty"`
	ReadyAt               *time.Time                  `json:"ready_at,omitempty"`
	DeliveredAt           *time.Time                  `json:"delivered_at,omitempty"`
	CancelledAt           *time.Time                  `json:"cancelled_at,omitempty"`
	CreatedAt             time.Time                   `json:"created_at"`
	UpdatedAt             time.Time                   `json:"updated_at"`
	Version               int                         `json:"version"`
}

// PurchaseOrderListItemResponse represents an order in list responses (no lines)
type PurchaseOrderListItemResponse struct {
	ID           uuid.UUID  `json:"id"`
	OrderNumber  string     `json:"order_number"`
	FranchiseeID uuid.UUID  `json:"franchisee_id"`
	WarehouseID  uuid.UUID  `json:"warehouse_id"`
	Status       string     `json:"status"`
	CorePct      *string    `json:"core_pct"`
	TotalExclTax string     `json:"total_excl_tax"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ToPurchaseOrderResponse converts domain PurchaseOrder to response DTO
func ToPurchaseOrderResponse(order *procurement.PurchaseOrder) PurchaseOrderResponse {
	lines := make([]PurchaseOrderLineResponse, len(order.Lines))
	for i := range order.Lines {
		lines[i] = ToPurchaseOrderLineResponse(&order.Lines[i])
	}

	legal := order.LegalEvents()
	legalNames := make([]string, len(legal))
	for i, e := range legal {
		legalNames[i] = string(e)
	}

	resp := PurchaseOrderResponse{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		FranchiseeID:    order.FranchiseeID,
		WarehouseID:     order.WarehouseID,
		Currency:        string(order.Currency),
		Status:          string(order.Status),
		LegalEvents:     legalNames,
		Lines:           lines,
		CorePct:         pct(order.CorePct),
		TotalExclTax:    money(order.TotalExclTax),
		TaxAmount:       money(order.TaxAmount),
		TotalInclTax:    money(order.TotalInclTax()),
		CreatedBy:       order.CreatedBy,
		ApprovedBy:      order.ApprovedBy,
		RejectionReason: order.RejectionReason,
		SubmittedAt:     order.SubmittedAt,
		ApprovedAt:      order.ApprovedAt,
		ReadyAt:         order.ReadyAt,
		DeliveredAt:     order.DeliveredAt,
		CancelledAt:     order.CancelledAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
		Version:         order.Version,
	}
	resp.SubmittedCorePct = pct(order.SubmittedCorePct)
	if order.SubmittedTotalExclTax != nil {
		total := money(*order.SubmittedTotalExclTax)
		resp.SubmittedTotalExclTax = &total
	}
	return resp
}

// ToPurchaseOrderLineResponse converts a domain line to response DTO
func ToPurchaseOrderLineResponse(l *procurement.PurchaseOrderLine) PurchaseOrderLineResponse {
	return PurchaseOrderLineResponse{
		ID:               l.ID,
		Position:         l.Position,
		ProductID:        l.ProductID,
		ProductName:      l.ProductName,
		Quantity:         l.Quantity.String(),
		UnitPriceExclTax: l.UnitPriceExclTax.String(),
		TaxRatePct:       l.TaxRatePct.String(),
		IsCoreItem:       l.IsCoreItem,
		AmountExclTax:    money(l.AmountExclTax),
	}
}

// ToPurchaseOrderListItemResponses converts a slice of domain orders to list responses
func ToPurchaseOrderListItemResponses(orders []procurement.PurchaseOrder) []PurchaseOrderListItemResponse {
	responses := make([]PurchaseOrderListItemResponse, len(orders))
	for i := range orders {
		o := &orders[i]
		responses[i] = PurchaseOrderListItemResponse{
			ID:           o.ID,
			OrderNumber:  o.OrderNumber,
			FranchiseeID: o.FranchiseeID,
			WarehouseID:  o.WarehouseID,
			Status:       string(o.Status),
			CorePct:      pct(o.CorePct),
			TotalExclTax: money(o.TotalExclTax),
			SubmittedAt:  o.SubmittedAt,
			DeliveredAt:  o.DeliveredAt,
			CreatedAt:    o.CreatedAt,
			UpdatedAt:    o.UpdatedAt,
		}
	}
	return responses
}

func money(d decimal.Decimal) string {
	return d.StringFixed(valueobject.MoneyScale)
}

func pct(p *decimal.Decimal) *string {
	if p == nil {
		return nil
	}
	s := p.StringFixed(procurement.PercentDisplayScale)
	return &s
}
