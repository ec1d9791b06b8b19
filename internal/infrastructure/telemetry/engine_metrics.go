package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when an EngineMetrics is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// SubmissionOutcome labels the result of an order submission
type SubmissionOutcome string

const (
	SubmissionAccepted       SubmissionOutcome = "accepted"
	SubmissionBelowThreshold SubmissionOutcome = "below_threshold"
	SubmissionEmpty          SubmissionOutcome = "empty"
	SubmissionConflict       SubmissionOutcome = "conflict"
	SubmissionFailed         SubmissionOutcome = "failed"
)

// EngineMetrics holds the procurement and royalty instruments
type EngineMetrics struct {
	logger *zap.Logger

	ordersCreated      *Counter
	submissions        *Counter
	transitions        *Counter
	conflicts          *Counter
	reportsGenerated   *Counter
	reportsReused      *Counter
	reportFailures     *Counter
	amountDue          *FloatCounter
	generationDuration *Histogram
	eventsObserved     *Counter
}

// NewEngineMetrics registers every engine instrument on meter
func NewEngineMetrics(meter metric.Meter, logger *zap.Logger) (*EngineMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &EngineMetrics{logger: logger}
	var err error

	if m.ordersCreated, err = NewCounter(meter, "foodtruck_purchase_orders_created_total",
		"Purchase orders opened", "{orders}"); err != nil {
		return nil, err
	}
	if m.submissions, err = NewCounter(meter, "foodtruck_purchase_order_submissions_total",
		"Submission attempts by outcome", "{submissions}"); err != nil {
		return nil, err
	}
	if m.transitions, err = NewCounter(meter, "foodtruck_purchase_order_transitions_total",
		"Applied lifecycle transitions", "{transitions}"); err != nil {
		return nil, err
	}
	if m.conflicts, err = NewCounter(meter, "foodtruck_concurrency_conflicts_total",
		"Optimistic lock conflicts", "{conflicts}"); err != nil {
		return nil, err
	}
	if m.reportsGenerated, err = NewCounter(meter, "foodtruck_royalty_reports_generated_total",
		"Royalty reports computed and stored", "{reports}"); err != nil {
		return nil, err
	}
	if m.reportsReused, err = NewCounter(meter, "foodtruck_royalty_reports_reused_total",
		"Generation requests served from a stored report", "{reports}"); err != nil {
		return nil, err
	}
	if m.reportFailures, err = NewCounter(meter, "foodtruck_royalty_report_failures_total",
		"Failed generation requests by reason", "{failures}"); err != nil {
		return nil, err
	}
	if m.amountDue, err = NewFloatCounter(meter, "foodtruck_royalty_amount_due_total",
		"Sum of royalty amounts due in generated reports", "{currency}"); err != nil {
		return nil, err
	}
	if m.generationDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "foodtruck_royalty_generation_duration_seconds",
		Description: "Royalty report generation latency",
		Unit:        "s",
		Boundaries:  GenerationDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.eventsObserved, err = NewCounter(meter, "foodtruck_domain_events_total",
		"Domain events seen on the event bus", "{events}"); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordOrderCreated counts a new draft order
func (m *EngineMetrics) RecordOrderCreated(ctx context.Context, franchiseeID uuid.UUID) {
	m.ordersCreated.Inc(ctx)
	m.logger.Debug("order created metric recorded", zap.String("franchisee_id", franchiseeID.String()))
}

// RecordSubmission counts a submission attempt
func (m *EngineMetrics) RecordSubmission(ctx context.Context, outcome SubmissionOutcome) {
	m.submissions.Inc(ctx, AttrOutcome.String(string(outcome)))
}

// RecordTransition counts an applied lifecycle event
func (m *EngineMetrics) RecordTransition(ctx context.Context, event, from, to string) {
	m.transitions.Inc(ctx,
		AttrEvent.String(event),
		AttrFromState.String(from),
		AttrToState.String(to),
	)
}

// RecordConflict counts an optimistic lock failure
func (m *EngineMetrics) RecordConflict(ctx context.Context, operation string) {
	m.conflicts.Inc(ctx, AttrOperation.String(operation))
}

// RecordReportGenerated counts a stored report and adds its amount due
func (m *EngineMetrics) RecordReportGenerated(ctx context.Context, amountDue decimal.Decimal, currency string) {
	m.reportsGenerated.Inc(ctx, AttrCurrency.String(currency))
	m.amountDue.Add(ctx, amountDue.InexactFloat64(), AttrCurrency.String(currency))
}

// RecordReportReused counts a request answered with an existing report
func (m *EngineMetrics) RecordReportReused(ctx context.Context) {
	m.reportsReused.Inc(ctx)
}

// RecordGenerationFailure counts a failed generation request
func (m *EngineMetrics) RecordGenerationFailure(ctx context.Context, reason string) {
	m.reportFailures.Inc(ctx, AttrReason.String(reason))
}

// RecordGenerationDuration records how long a generation request took
func (m *EngineMetrics) RecordGenerationDuration(ctx context.Context, d time.Duration, success bool) {
	m.generationDuration.RecordDuration(ctx, d, AttrSuccess.Bool(success))
}

// RecordEvent counts a domain event observed on the bus
func (m *EngineMetrics) RecordEvent(ctx context.Context, eventType string) {
	m.eventsObserved.Inc(ctx, AttrEventType.String(eventType))
}
