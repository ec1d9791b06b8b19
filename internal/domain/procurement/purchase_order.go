package procurement

import (
	"fmt"
	"strings"
	"time"

	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderLine is a single supply line of a purchase order
type PurchaseOrderLine struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	Position         int
	ProductID        string
	ProductName      string
	Quantity         decimal.Decimal
	UnitPriceExclTax decimal.Decimal
	TaxRatePct       decimal.Decimal
	IsCoreItem       bool
	AmountExclTax    decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Quantities, prices and line amounts are stored as DECIMAL(18,4), tax
// rates as DECIMAL(9,4). Input that the columns would round or overflow is
// rejected instead.
const (
	LineScale           int32 = 4
	AmountIntegerDigits int32 = 14
	RateIntegerDigits   int32 = 5
)

// fitsColumn reports whether d is stored exactly with at most scale decimals
// and intDigits integer digits.
func fitsColumn(d decimal.Decimal, scale, intDigits int32) bool {
	if !d.Equal(d.Truncate(scale)) {
		return false
	}
	return d.Abs().LessThan(decimal.New(1, intDigits))
}

func precisionError(code, field string, d decimal.Decimal, intDigits int32) *shared.DomainError {
	return shared.NewValidationError(code,
		fmt.Sprintf("%s allows at most %d integer digits and %d decimals", field, intDigits, LineScale)).
		WithDetail(field, d.String())
}

// ValidateLine rejects malformed line input
func ValidateLine(in LineInput) error {
	if strings.TrimSpace(in.ProductID) == "" {
		return shared.NewValidationError(shared.CodeInvalidProduct, "Product ID cannot be empty")
	}
	if len(in.ProductID) > 64 {
		return shared.NewValidationError(shared.CodeInvalidProduct, "Product ID cannot exceed 64 characters")
	}
	if !in.Quantity.IsPositive() {
		return shared.NewValidationError(shared.CodeInvalidQuantity, "Quantity must be positive").
			WithDetail("quantity", in.Quantity.String())
	}
	if in.UnitPriceExclTax.IsNegative() {
		return shared.NewValidationError(shared.CodeInvalidPrice, "Unit price cannot be negative").
			WithDetail("unit_price_excl_tax", in.UnitPriceExclTax.String())
	}
	if in.TaxRatePct.IsNegative() {
		return shared.NewValidationError(shared.CodeInvalidTaxRate, "Tax rate cannot be negative").
			WithDetail("tax_rate_pct", in.TaxRatePct.String())
	}
	if !fitsColumn(in.Quantity, LineScale, AmountIntegerDigits) {
		return precisionError(shared.CodeInvalidQuantity, "quantity", in.Quantity, AmountIntegerDigits)
	}
	if !fitsColumn(in.UnitPriceExclTax, LineScale, AmountIntegerDigits) {
		return precisionError(shared.CodeInvalidPrice, "unit_price_excl_tax", in.UnitPriceExclTax, AmountIntegerDigits)
	}
	if !fitsColumn(in.TaxRatePct, LineScale, RateIntegerDigits) {
		return precisionError(shared.CodeInvalidTaxRate, "tax_rate_pct", in.TaxRatePct, RateIntegerDigits)
	}
	if amount := in.AmountExclTax(); !fitsColumn(amount, LineScale, AmountIntegerDigits) {
		return precisionError(shared.CodeInvalidInput, "amount_excl_tax", amount, AmountIntegerDigits)
	}
	return nil
}

// NewPurchaseOrderLine creates a validated line
func NewPurchaseOrderLine(orderID uuid.UUID, position int, in LineInput, productName string) (*PurchaseOrderLine, error) {
	if err := ValidateLine(in); err != nil {
		return nil, err
	}
	now := time.Now()
	return &PurchaseOrderLine{
		ID:               uuid.New(),
		OrderID:          orderID,
		Position:         position,
		ProductID:        strings.TrimSpace(in.ProductID),
		ProductName:      productName,
		Quantity:         in.Quantity,
		UnitPriceExclTax: in.UnitPriceExclTax,
		TaxRatePct:       in.TaxRatePct,
		IsCoreItem:       in.IsCoreItem,
		AmountExclTax:    in.AmountExclTax(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Input returns the calculator view of the line
func (l *PurchaseOrderLine) Input() LineInput {
	return LineInput{
		ProductID:        l.ProductID,
		Quantity:         l.Quantity,
		UnitPriceExclTax: l.UnitPriceExclTax,
		TaxRatePct:       l.TaxRatePct,
		IsCoreItem:       l.IsCoreItem,
	}
}

// LineUpdate carries the fields of a line that may change. Nil means unchanged.
type LineUpdate struct {
	Quantity         *decimal.Decimal
	UnitPriceExclTax *decimal.Decimal
	TaxRatePct       *decimal.Decimal
	IsCoreItem       *bool
	ProductName      *string
}

func (l *PurchaseOrderLine) apply(u LineUpdate) error {
	next := l.Input()
	if u.Quantity != nil {
		next.Quantity = *u.Quantity
	}
	if u.UnitPriceExclTax != nil {
		next.UnitPriceExclTax = *u.UnitPriceExclTax
	}
	if u.TaxRatePct != nil {
		next.TaxRatePct = *u.TaxRatePct
	}
	if u.IsCoreItem != nil {
		next.IsCoreItem = *u.IsCoreItem
	}
	if err := ValidateLine(next); err != nil {
		return err
	}

	l.Quantity = next.Quantity
	l.UnitPriceExclTax = next.UnitPriceExclTax
	l.TaxRatePct = next.TaxRatePct
	l.IsCoreItem = next.IsCoreItem
	if u.ProductName != nil {
		l.ProductName = *u.ProductName
	}
	l.AmountExclTax = next.AmountExclTax()
	l.UpdatedAt = time.Now()
	return nil
}

// PurchaseOrder is a franchisee's supply order and the aggregate root of the
// procurement lifecycle.
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	OrderNumber  string
	FranchiseeID uuid.UUID
	WarehouseID  uuid.UUID
	Currency     valueobject.Currency
	Lines        []PurchaseOrderLine
	Status       OrderStatus

	// Live values while DRAFT, frozen snapshot afterwards
	CorePct      *decimal.Decimal
	TotalExclTax decimal.Decimal
	TaxAmount    decimal.Decimal

	// Compliance evidence captured at submit
	SubmittedCorePct      *decimal.Decimal
	SubmittedTotalExclTax *decimal.Decimal

	CreatedBy       uuid.UUID
	ApprovedBy      *uuid.UUID
	RejectedBy      *uuid.UUID
	RejectionReason string
	SubmittedAt     *time.Time
	ApprovedAt      *time.Time
	ReadyAt         *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
}

// GenerateOrderNumber builds a human readable order number such as PO-20250801-1A2B3C4D
func GenerateOrderNumber(now time.Time, id uuid.UUID) string {
	return fmt.Sprintf("PO-%s-%s", now.Format("20060102"), strings.ToUpper(id.String()[:8]))
}

// NewPurchaseOrder creates a DRAFT order for a franchisee
func NewPurchaseOrder(franchiseeID, warehouseID, createdBy uuid.UUID, currency valueobject.Currency) (*PurchaseOrder, error) {
	if franchiseeID == uuid.Nil {
		return nil, shared.NewValidationError(shared.CodeInvalidInput, "Franchisee ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewValidationError(shared.CodeInvalidInput, "Warehouse ID cannot be empty")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	order := &PurchaseOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FranchiseeID:      franchiseeID,
		WarehouseID:       warehouseID,
		Currency:          currency,
		Lines:             make([]PurchaseOrderLine, 0),
		Status:            OrderStatusDraft,
		TotalExclTax:      decimal.Zero,
		TaxAmount:         decimal.Zero,
		CreatedBy:         createdBy,
	}
	order.OrderNumber = GenerateOrderNumber(order.CreatedAt, order.ID)

	order.AddDomainEvent(NewPurchaseOrderCreatedEvent(order))

	return order, nil
}

// IsDraft returns true while lines can still change
func (o *PurchaseOrder) IsDraft() bool {
	return o.Status == OrderStatusDraft
}

func (o *PurchaseOrder) ensureEditable() error {
	if !o.IsDraft() {
		return NewOrderNotEditableError(o.Status)
	}
	return nil
}

// AddLine appends a line. Only allowed in DRAFT.
func (o *PurchaseOrder) AddLine(in LineInput, productName string) (*PurchaseOrderLine, error) {
	if err := o.ensureEditable(); err != nil {
		return nil, err
	}
	line, err := NewPurchaseOrderLine(o.ID, o.nextPosition(), in, productName)
	if err != nil {
		return nil, err
	}
	o.Lines = append(o.Lines, *line)
	o.recalculate()
	o.Touch()
	return &o.Lines[len(o.Lines)-1], nil
}

// UpdateLine changes a line in place. Only allowed in DRAFT.
func (o *PurchaseOrder) UpdateLine(lineID uuid.UUID, update LineUpdate) (*PurchaseOrderLine, error) {
	if err := o.ensureEditable(); err != nil {
		return nil, err
	}
	idx := o.lineIndex(lineID)
	if idx < 0 {
		return nil, shared.NewNotFoundError("order line", lineID)
	}
	if err := o.Lines[idx].apply(update); err != nil {
		return nil, err
	}
	o.recalculate()
	o.Touch()
	return &o.Lines[idx], nil
}

// RemoveLine deletes a line. Only allowed in DRAFT.
func (o *PurchaseOrder) RemoveLine(lineID uuid.UUID) error {
	if err := o.ensureEditable(); err != nil {
		return err
	}
	idx := o.lineIndex(lineID)
	if idx < 0 {
		return shared.NewNotFoundError("order line", lineID)
	}
	o.Lines = append(o.Lines[:idx], o.Lines[idx+1:]...)
	o.recalculate()
	o.Touch()
	return nil
}

// Ratios recomputes the core/free split from the current lines
func (o *PurchaseOrder) Ratios() RatioResult {
	inputs := make([]LineInput, len(o.Lines))
	for i := range o.Lines {
		inputs[i] = o.Lines[i].Input()
	}
	return ComputeRatios(inputs)
}

// Submit moves a DRAFT order to SUBMITTED after checking the core ratio on
// the lines as they are now, then freezes the ratio and total as evidence.
func (o *PurchaseOrder) Submit() error {
	if !o.IsDraft() {
		return NewOrderNotEditableError(o.Status)
	}
	if len(o.Lines) == 0 {
		return shared.NewStateError(shared.CodeEmptyOrder, "Cannot submit an order without lines",
			map[string]any{"current_state": string(o.Status)})
	}

	ratios := o.Ratios()
	if !ratios.IsCompliant() {
		return NewInsufficientCoreRatioError(ratios)
	}

	now := time.Now()
	total := ratios.TotalAmount
	corePct := *ratios.CorePct
	o.CorePct = &corePct
	o.TotalExclTax = total
	o.TaxAmount = ratios.TaxAmount
	o.SubmittedCorePct = &corePct
	o.SubmittedTotalExclTax = &total
	o.Status = OrderStatusSubmitted
	o.SubmittedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewPurchaseOrderSubmittedEvent(o))
	return nil
}

// Approve moves a SUBMITTED order into preparation
func (o *PurchaseOrder) Approve(actor Actor) error {
	if err := o.guard(EventApprove); err != nil {
		return err
	}
	if !actor.Can(CapabilityApproveOrders) {
		return shared.NewDomainError(shared.CodeCapabilityRequired,
			fmt.Sprintf("approving an order requires the %s capability", CapabilityApproveOrders)).
			WithDetail("capability", string(CapabilityApproveOrders))
	}

	now := time.Now()
	approver := actor.ID
	o.Status = OrderStatusPreparing
	o.ApprovedBy = &approver
	o.ApprovedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewPurchaseOrderApprovedEvent(o))
	return nil
}

// Reject cancels a SUBMITTED order
func (o *PurchaseOrder) Reject(actor Actor, reason string) error {
	if err := o.guard(EventReject); err != nil {
		return err
	}
	if len(reason) > 500 {
		return shared.NewValidationError(shared.CodeInvalidInput, "Rejection reason cannot exceed 500 characters")
	}

	now := time.Now()
	rejecter := actor.ID
	o.Status = OrderStatusCancelled
	o.RejectedBy = &rejecter
	o.RejectionReason = reason
	o.CancelledAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewPurchaseOrderRejectedEvent(o))
	return nil
}

// MarkReady records that the warehouse finished preparing the order
func (o *PurchaseOrder) MarkReady() error {
	if err := o.guard(EventMarkReady); err != nil {
		return err
	}
	now := time.Now()
	o.Status = OrderStatusReady
	o.ReadyAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewPurchaseOrderReadyEvent(o))
	return nil
}

// DeliveryClockSkew is how far ahead of our clock a reported delivery time may be
const DeliveryClockSkew = 5 * time.Minute

// MarkDelivered records fulfillment. at is the fulfillment timestamp used by
// sales aggregation; zero means now. It may be backdated but never before
// submission nor in the future.
func (o *PurchaseOrder) MarkDelivered(at time.Time) error {
	if err := o.guard(EventMarkDelivered); err != nil {
		return err
	}
	now := time.Now()
	if at.IsZero() {
		at = now
	}
	if at.After(now.Add(DeliveryClockSkew)) {
		return shared.NewValidationError(shared.CodeInvalidInput, "Delivery time cannot be in the future").
			WithDetail("delivered_at", at.Format(time.RFC3339))
	}
	if o.SubmittedAt != nil && at.Before(*o.SubmittedAt) {
		return shared.NewValidationError(shared.CodeInvalidInput, "Delivery time cannot precede submission").
			WithDetail("delivered_at", at.Format(time.RFC3339)).
			WithDetail("submitted_at", o.SubmittedAt.Format(time.RFC3339))
	}
	o.Status = OrderStatusDelivered
	o.DeliveredAt = &at
	o.UpdatedAt = now

	o.AddDomainEvent(NewPurchaseOrderDeliveredEvent(o))
	return nil
}

// TransitionOptions carries event specific arguments for Apply
type TransitionOptions struct {
	Reason      string
	DeliveredAt time.Time
}

// Apply dispatches event through the transition table. Events absent from the
// table for the current state fail with INVALID_TRANSITION.
func (o *PurchaseOrder) Apply(event OrderEvent, actor Actor, opts TransitionOptions) error {
	if err := o.guard(event); err != nil {
		return err
	}
	switch event {
	case EventSubmit:
		return o.Submit()
	case EventApprove:
		return o.Approve(actor)
	case EventReject:
		return o.Reject(actor, opts.Reason)
	case EventMarkReady:
		return o.MarkReady()
	case EventMarkDelivered:
		return o.MarkDelivered(opts.DeliveredAt)
	}
	return NewInvalidTransitionError(o.Status, event)
}

// LegalEvents returns the events accepted in the current state
func (o *PurchaseOrder) LegalEvents() []OrderEvent {
	return LegalEvents(o.Status)
}

// GrossSalesAmount is the amount this order contributes to royalty gross sales
func (o *PurchaseOrder) GrossSalesAmount() decimal.Decimal {
	if o.SubmittedTotalExclTax != nil {
		return *o.SubmittedTotalExclTax
	}
	return o.TotalExclTax
}

// TotalInclTax returns the order total including tax
func (o *PurchaseOrder) TotalInclTax() decimal.Decimal {
	return o.TotalExclTax.Add(o.TaxAmount)
}

func (o *PurchaseOrder) guard(event OrderEvent) error {
	if _, ok := NextStatus(o.Status, event); !ok {
		return NewInvalidTransitionError(o.Status, event)
	}
	return nil
}

// recalculate refreshes the live ratio and totals. Never called after submit.
func (o *PurchaseOrder) recalculate() {
	ratios := o.Ratios()
	o.CorePct = ratios.CorePct
	o.TotalExclTax = ratios.TotalAmount
	o.TaxAmount = ratios.TaxAmount
}

func (o *PurchaseOrder) lineIndex(lineID uuid.UUID) int {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

func (o *PurchaseOrder) nextPosition() int {
	highest := 0
	for _, l := range o.Lines {
		if l.Position > highest {
			highest = l.Position
		}
	}
	return highest + 1
}

// NewInsufficientCoreRatioError reports the measured ratio against the requirement
func NewInsufficientCoreRatioError(r RatioResult) *shared.DomainError {
	details := map[string]any{
		"required_pct": CoreThresholdPct.StringFixed(PercentDisplayScale),
		"core_amount":  r.CoreAmount.StringFixed(valueobject.MoneyScale),
		"total_amount": r.TotalAmount.StringFixed(valueobject.MoneyScale),
		"core_pct":     nil,
	}
	msg := fmt.Sprintf("core items must make up at least %s%% of the order value; ratio is undefined for a zero total",
		CoreThresholdPct.StringFixed(PercentDisplayScale))
	if r.CorePct != nil {
		details["core_pct"] = r.DisplayCorePct()
		details["core_pct_exact"] = r.CorePct.StringFixed(PercentScale)
		msg = fmt.Sprintf("core items make up %s%% of the order value; at least %s%% is required",
			r.DisplayCorePct(), CoreThresholdPct.StringFixed(PercentDisplayScale))
	}
	return shared.NewComplianceError(shared.CodeInsufficientCoreRatio, msg, details)
}
