package procurement

import (
	"context"
	"errors"

	"github.com/foodtruck/backend/internal/domain/procurement"
	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/foodtruck/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PurchaseOrderService handles purchase order business operations
type PurchaseOrderService struct {
	orderRepo       procurement.PurchaseOrderRepository
	eventPublisher  shared.EventPublisher
	metrics         *telemetry.EngineMetrics
	defaultCurrency valueobject.Currency
	logger          *zap.Logger
}

// NewPurchaseOrderService creates a new PurchaseOrderService
func NewPurchaseOrderService(orderRepo procurement.PurchaseOrderRepository, logger *zap.Logger) *PurchaseOrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseOrderService{
		orderRepo:       orderRepo,
		defaultCurrency: valueobject.DefaultCurrency,
		logger:          logger,
	}
}

// SetDefaultCurrency sets the currency of orders created without one
func (s *PurchaseOrderService) SetDefaultCurrency(c valueobject.Currency) {
	if c != "" {
		s.defaultCurrency = c
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *PurchaseOrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the engine metrics collector
func (s *PurchaseOrderService) SetMetrics(m *telemetry.EngineMetrics) {
	s.metrics = m
}

// PreviewRatios computes the core/free split of an arbitrary line set.
// Nothing is persisted and no threshold error is raised.
func (s *PurchaseOrderService) PreviewRatios(ctx context.Context, req RatioPreviewRequest) (*RatioResponse, error) {
	lines := make([]procurement.LineInput, len(req.Lines))
	for i, l := range req.Lines {
		in := l.toDomain()
		if err := procurement.ValidateLine(in); err != nil {
			return nil, err
		}
		lines[i] = in
	}
	resp := ToRatioResponse(procurement.ComputeRatios(lines))
	return &resp, nil
}

// Create creates a draft purchase order with optional initial lines
func (s *PurchaseOrderService) Create(ctx context.Context, actor procurement.Actor, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	currency := s.defaultCurrency
	if req.Currency != "" {
		parsed, err := valueobject.ParseCurrency(req.Currency)
		if err != nil {
			return nil, err
		}
		currency = parsed
	}

	order, err := procurement.NewPurchaseOrder(req.FranchiseeID, req.WarehouseID, actor.ID, currency)
	if err != nil {
		return nil, err
	}
	for _, l := range req.Lines {
		if _, err := order.AddLine(l.toDomain(), l.ProductName); err != nil {
			return nil, err
		}
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.publish(ctx, order)
	if s.metrics != nil {
		s.metrics.RecordOrderCreated(ctx, order.FranchiseeID)
	}

	s.logger.Info("purchase order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("franchisee_id", order.FranchiseeID.String()),
		zap.Int("lines", len(order.Lines)),
	)

	resp := ToPurchaseOrderResponse(order)
	return &resp, nil
}

// GetByID retrieves a purchase order by ID
func (s *PurchaseOrderService) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseOrderResponse(order)
	return &resp, nil
}

// List retrieves a paginated list of purchase orders
func (s *PurchaseOrderService) List(ctx context.Context, filter PurchaseOrderListFilter) ([]PurchaseOrderListItemResponse, int64, error) {
	domainFilter := procurement.OrderFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
		}.Normalize(),
	}
	if filter.FranchiseeID != "" {
		franchiseeID, err := uuid.Parse(filter.FranchiseeID)
		if err != nil {
			return nil, 0, shared.NewValidationError(shared.CodeInvalidInput, "invalid franchisee ID").
				WithDetail("franchisee_id", filter.FranchiseeID)
		}
		domainFilter.FranchiseeID = &franchiseeID
	}
	if domainFilter.OrderBy == "" || domainFilter.OrderBy == "id" {
		domainFilter.OrderBy = "created_at"
		domainFilter.OrderDir = "desc"
	}
	if filter.Status != "" {
		status := procurement.OrderStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewValidationError(shared.CodeInvalidInput, "unknown order status").
				WithDetail("status", filter.Status)
		}
		domainFilter.Status = &status
	}

	orders, total, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToPurchaseOrderListItemResponses(orders), total, nil
}

// AddLine appends a line to a draft order
func (s *PurchaseOrderService) AddLine(ctx context.Context, orderID uuid.UUID, req AddLineRequest) (*PurchaseOrderResponse, error) {
	return s.mutate(ctx, orderID, "add_line", func(order *procurement.PurchaseOrder) error {
		_, err := order.AddLine(req.toDomain(), req.ProductName)
		return err
	})
}

// UpdateLine changes a line of a draft order
func (s *PurchaseOrderService) UpdateLine(ctx context.Context, orderID, lineID uuid.UUID, req UpdateLineRequest) (*PurchaseOrderResponse, error) {
	return s.mutate(ctx, orderID, "update_line", func(order *procurement.PurchaseOrder) error {
		_, err := order.UpdateLine(lineID, req.toDomain())
		return err
	})
}

// RemoveLine deletes a line from a draft order
func (s *PurchaseOrderService) RemoveLine(ctx context.Context, orderID, lineID uuid.UUID) (*PurchaseOrderResponse, error) {
	return s.mutate(ctx, orderID, "remove_line", func(order *procurement.PurchaseOrder) error {
		return order.RemoveLine(lineID)
	})
}

// Submit moves a draft order to SUBMITTED when it meets the core item ratio.
// A non-draft order fails with ORDER_NOT_EDITABLE.
func (s *PurchaseOrderService) Submit(ctx context.Context, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	resp, err := s.mutate(ctx, orderID, "submit", func(order *procurement.PurchaseOrder) error {
		return order.Submit()
	})
	if s.metrics != nil {
		s.metrics.RecordSubmission(ctx, submissionOutcome(err))
	}
	return resp, err
}

// Transition applies a lifecycle event by name. Unknown names are a validation
// error; events illegal in the current state are INVALID_TRANSITION.
func (s *PurchaseOrderService) Transition(ctx context.Context, orderID uuid.UUID, actor procurement.Actor, req TransitionRequest) (*PurchaseOrderResponse, error) {
	event, err := procurement.ParseOrderEvent(req.Event)
	if err != nil {
		return nil, err
	}

	opts := procurement.TransitionOptions{Reason: req.Reason}
	if req.DeliveredAt != nil {
		opts.DeliveredAt = *req.DeliveredAt
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "procurement", "transition",
		attribute.String("order_id", orderID.String()),
		attribute.String("event", event.String()),
	)
	var from procurement.OrderStatus
	resp, err := s.mutate(ctx, orderID, event.String(), func(order *procurement.PurchaseOrder) error {
		from = order.Status
		return order.Apply(event, actor, opts)
	})
	telemetry.EndSpan(span, err)
	if event == procurement.EventSubmit && s.metrics != nil {
		s.metrics.RecordSubmission(ctx, submissionOutcome(err))
	}
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordTransition(ctx, event.String(), from.String(), resp.Status)
	}
	s.logger.Info("purchase order transitioned",
		zap.String("order_id", orderID.String()),
		zap.String("event", event.String()),
		zap.String("from", from.String()),
		zap.String("to", resp.Status),
		zap.String("actor_id", actor.ID.String()),
	)
	return resp, nil
}

// mutate runs the load, change, save-with-lock cycle shared by every order mutation
func (s *PurchaseOrderService) mutate(ctx context.Context, orderID uuid.UUID, op string, change func(*procurement.PurchaseOrder) error) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := change(order); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.logger.Warn("purchase order concurrency conflict",
				zap.String("order_id", orderID.String()),
				zap.String("operation", op),
				zap.Int("version", order.Version),
			)
			if s.metrics != nil {
				s.metrics.RecordConflict(ctx, op)
			}
		}
		return nil, err
	}

	s.publish(ctx, order)

	resp := ToPurchaseOrderResponse(order)
	return &resp, nil
}

func (s *PurchaseOrderService) publish(ctx context.Context, order *procurement.PurchaseOrder) {
	events := order.GetDomainEvents()
	order.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		// The state change is already committed
		s.logger.Error("failed to publish purchase order events",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

func submissionOutcome(err error) telemetry.SubmissionOutcome {
	switch {
	case err == nil:
		return telemetry.SubmissionAccepted
	case errors.Is(err, shared.ErrEmptyOrder):
		return telemetry.SubmissionEmpty
	case shared.KindOf(err) == shared.KindCompliance:
		return telemetry.SubmissionBelowThreshold
	case errors.Is(err, shared.ErrConcurrencyConflict):
		return telemetry.SubmissionConflict
	default:
		return telemetry.SubmissionFailed
	}
}
