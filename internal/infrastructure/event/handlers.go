package event

import (
	"context"

	"github.com/foodtruck/backend/internal/domain/procurement"
	"github.com/foodtruck/backend/internal/domain/royalty"
	"github.com/foodtruck/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// EventRecorder counts observed events. telemetry.EngineMetrics implements it.
type EventRecorder interface {
	RecordEvent(ctx context.Context, eventType string)
}

// MetricsHandler counts every event published on the bus
type MetricsHandler struct {
	recorder EventRecorder
}

// NewMetricsHandler creates a wildcard handler feeding recorder
func NewMetricsHandler(recorder EventRecorder) *MetricsHandler {
	return &MetricsHandler{recorder: recorder}
}

// Handle records the event type
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.recorder.RecordEvent(ctx, event.EventType())
	return nil
}

// EventTypes returns nil: the handler receives all events
func (h *MetricsHandler) EventTypes() []string {
	return nil
}

// LifecycleLogHandler writes one structured line per lifecycle event so
// order and report history can be followed in the logs.
type LifecycleLogHandler struct {
	logger *zap.Logger
}

// NewLifecycleLogHandler creates a new LifecycleLogHandler
func NewLifecycleLogHandler(logger *zap.Logger) *LifecycleLogHandler {
	return &LifecycleLogHandler{logger: logger}
}

// Handle logs the event with its type specific fields
func (h *LifecycleLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("franchisee_id", event.FranchiseeID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *procurement.PurchaseOrderSubmittedEvent:
		fields = append(fields,
			zap.String("order_number", e.OrderNumber),
			zap.String("core_pct", e.CorePct.String()),
			zap.String("total_excl_tax", e.TotalExclTax.String()))
	case *procurement.PurchaseOrderRejectedEvent:
		fields = append(fields, zap.String("reason", e.Reason))
	case *procurement.PurchaseOrderDeliveredEvent:
		fields = append(fields, zap.Time("delivered_at", e.DeliveredAt))
	case *royalty.RoyaltyReportGeneratedEvent:
		fields = append(fields,
			zap.String("period", e.Period),
			zap.String("gross_sales", e.GrossSales.String()),
			zap.String("amount_due", e.AmountDue.String()))
	}

	h.logger.Info("Domain event", fields...)
	return nil
}

// EventTypes returns the lifecycle events worth a log line
func (h *LifecycleLogHandler) EventTypes() []string {
	return []string{
		procurement.EventTypePurchaseOrderSubmitted,
		procurement.EventTypePurchaseOrderApproved,
		procurement.EventTypePurchaseOrderRejected,
		procurement.EventTypePurchaseOrderReady,
		procurement.EventTypePurchaseOrderDelivered,
		royalty.EventTypeRoyaltyReportGenerated,
	}
}
