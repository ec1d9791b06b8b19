package royalty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foodtruck/backend/internal/domain/franchise"
	"github.com/foodtruck/backend/internal/domain/royalty"
	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/foodtruck/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RoyaltyService generates and serves monthly royalty reports
type RoyaltyService struct {
	reportRepo     royalty.ReportRepository
	agreementRepo  franchise.AgreementRepository
	sales          royalty.SalesSource
	lock           royalty.GenerationLock
	exporter       royalty.Exporter
	eventPublisher shared.EventPublisher
	metrics        *telemetry.EngineMetrics
	defaultZone    *time.Location
	timeout        time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewRoyaltyService creates a new RoyaltyService. lock may be nil when a single
// process serves the engine; the unique (franchisee, period) index still holds.
func NewRoyaltyService(
	reportRepo royalty.ReportRepository,
	agreementRepo franchise.AgreementRepository,
	sales royalty.SalesSource,
	lock royalty.GenerationLock,
	logger *zap.Logger,
) *RoyaltyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoyaltyService{
		reportRepo:    reportRepo,
		agreementRepo: agreementRepo,
		sales:         sales,
		lock:          lock,
		defaultZone:   time.UTC,
		logger:        logger,
		now:           time.Now,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *RoyaltyService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the engine metrics collector
func (s *RoyaltyService) SetMetrics(m *telemetry.EngineMetrics) {
	s.metrics = m
}

// SetExporter sets the downstream report exporter
func (s *RoyaltyService) SetExporter(exporter royalty.Exporter) {
	s.exporter = exporter
}

// SetDefaultTimeZone sets the zone used for period bounds when a franchisee has no agreement
func (s *RoyaltyService) SetDefaultTimeZone(loc *time.Location) {
	if loc != nil {
		s.defaultZone = loc
	}
}

// SetGenerationTimeout bounds one generation including the lock wait; zero disables it
func (s *RoyaltyService) SetGenerationTimeout(d time.Duration) {
	s.timeout = d
}

// Generate returns the royalty report of (franchisee, period), computing and
// storing it on first request. Later calls return the stored report unchanged.
func (s *RoyaltyService) Generate(ctx context.Context, req GenerateReportRequest) (*GenerateReportResult, error) {
	if req.FranchiseeID == uuid.Nil {
		return nil, shared.NewValidationError(shared.CodeInvalidInput, "Franchisee ID cannot be empty")
	}
	period, err := valueobject.ParsePeriod(req.Period)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "royalty", "generate",
		attribute.String("franchisee_id", req.FranchiseeID.String()),
		attribute.String("period", period.String()),
	)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	started := time.Now()
	result, err := s.generate(ctx, req.FranchiseeID, period)
	telemetry.EndSpan(span, err)
	if s.metrics != nil {
		s.metrics.RecordGenerationDuration(ctx, time.Since(started), err == nil)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordGenerationFailure(ctx, failureReason(err))
		}
		s.logger.Warn("royalty report generation failed",
			zap.String("franchisee_id", req.FranchiseeID.String()),
			zap.String("period", period.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return result, nil
}

func (s *RoyaltyService) generate(ctx context.Context, franchiseeID uuid.UUID, period valueobject.Period) (*GenerateReportResult, error) {
	if existing, err := s.findExisting(ctx, franchiseeID, period); err != nil || existing != nil {
		return existing, err
	}

	if s.lock != nil {
		release, err := s.lock.Acquire(ctx, royalty.ReportKey(franchiseeID, period))
		if err != nil {
			return nil, fmt.Errorf("acquire generation lock: %w", err)
		}
		defer release()

		// Another holder may have finished while we waited
		if existing, err := s.findExisting(ctx, franchiseeID, period); err != nil || existing != nil {
			return existing, err
		}
	}

	agreements, err := s.agreementRepo.FindByFranchisee(ctx, franchiseeID)
	if err != nil {
		return nil, err
	}
	agreement, err := franchise.ResolveForPeriod(agreements, period)
	if err != nil {
		return nil, err
	}

	from, to := period.Bounds(agreement.Location())
	totals, err := s.sales.SumFulfilledSales(ctx, franchiseeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate fulfilled sales: %w", err)
	}

	report, err := royalty.Generate(franchiseeID, period, agreement, totals, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.reportRepo.Create(ctx, report); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			s.logger.Info("royalty report created concurrently, returning stored report",
				zap.String("key", report.Key()),
			)
			return s.findExisting(ctx, franchiseeID, period)
		}
		return nil, err
	}

	s.logger.Info("royalty report generated",
		zap.String("report_id", report.ID.String()),
		zap.String("key", report.Key()),
		zap.String("gross_sales", report.GrossSales.StringFixed(valueobject.MoneyScale)),
		zap.String("amount_due", report.AmountDue.StringFixed(valueobject.MoneyScale)),
		zap.Int("order_count", report.OrderCount),
	)

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, royalty.NewRoyaltyReportGeneratedEvent(report)); err != nil {
			s.logger.Error("failed to publish royalty report event",
				zap.String("report_id", report.ID.String()),
				zap.Error(err),
			)
		}
	}
	if s.metrics != nil {
		s.metrics.RecordReportGenerated(ctx, report.AmountDue, string(report.Currency))
	}

	return &GenerateReportResult{
		Report:   ToRoyaltyReportResponse(report),
		Created:  true,
		Exported: s.export(ctx, report),
	}, nil
}

func (s *RoyaltyService) findExisting(ctx context.Context, franchiseeID uuid.UUID, period valueobject.Period) (*GenerateReportResult, error) {
	report, err := s.reportRepo.FindByKey(ctx, franchiseeID, period)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordReportReused(ctx)
	}
	return &GenerateReportResult{Report: ToRoyaltyReportResponse(report)}, nil
}

// export hands the report to the renderer pipeline. Failures leave the stored
// report intact and are only logged.
func (s *RoyaltyService) export(ctx context.Context, report *royalty.RoyaltyReport) bool {
	if s.exporter == nil {
		return false
	}
	if err := s.exporter.Export(ctx, report); err != nil {
		s.logger.Error("royalty report export failed",
			zap.String("report_id", report.ID.String()),
			zap.Error(err),
		)
		return false
	}
	return true
}

// GetByID retrieves a report by ID
func (s *RoyaltyService) GetByID(ctx context.Context, id uuid.UUID) (*RoyaltyReportResponse, error) {
	report, err := s.reportRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToRoyaltyReportResponse(report)
	return &resp, nil
}

// GetByKey retrieves the report of (franchisee, period)
func (s *RoyaltyService) GetByKey(ctx context.Context, franchiseeID uuid.UUID, periodStr string) (*RoyaltyReportResponse, error) {
	period, err := valueobject.ParsePeriod(periodStr)
	if err != nil {
		return nil, err
	}
	report, err := s.reportRepo.FindByKey(ctx, franchiseeID, period)
	if err != nil {
		return nil, err
	}
	resp := ToRoyaltyReportResponse(report)
	return &resp, nil
}

// ListByFranchisee retrieves a franchisee's reports, newest period first
func (s *RoyaltyService) ListByFranchisee(ctx context.Context, franchiseeID uuid.UUID, filter ReportListFilter) ([]RoyaltyReportResponse, int64, error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "period",
		OrderDir: "desc",
	}.Normalize()

	reports, total, err := s.reportRepo.FindByFranchisee(ctx, franchiseeID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToRoyaltyReportResponses(reports), total, nil
}

// SalesSummary aggregates fulfilled sales of a period without storing anything.
// Without an agreement the default zone bounds the period and no projection is given.
func (s *RoyaltyService) SalesSummary(ctx context.Context, franchiseeID uuid.UUID, periodStr string) (*SalesSummaryResponse, error) {
	period, err := valueobject.ParsePeriod(periodStr)
	if err != nil {
		return nil, err
	}

	agreements, err := s.agreementRepo.FindByFranchisee(ctx, franchiseeID)
	if err != nil {
		return nil, err
	}
	agreement, err := franchise.ResolveForPeriod(agreements, period)
	if err != nil && !errors.Is(err, shared.ErrNoActiveAgreement) {
		return nil, err
	}

	loc := s.defaultZone
	if agreement != nil {
		loc = agreement.Location()
	}
	from, to := period.Bounds(loc)
	totals, err := s.sales.SumFulfilledSales(ctx, franchiseeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate fulfilled sales: %w", err)
	}

	gross := totals.GrossSales.Round(valueobject.MoneyScale)
	resp := &SalesSummaryResponse{
		FranchiseeID: franchiseeID,
		Period:       period.String(),
		GrossSales:   gross.StringFixed(valueobject.MoneyScale),
		OrderCount:   totals.OrderCount,
		TimeZone:     loc.String(),
		PeriodStart:  from,
		PeriodEnd:    to,
	}
	if agreement != nil {
		id := agreement.ID
		share := agreement.RevenueSharePct.StringFixed(4)
		projected := gross.Mul(agreement.RevenueSharePct).Round(valueobject.MoneyScale).StringFixed(valueobject.MoneyScale)
		resp.AgreementID = &id
		resp.SharePct = &share
		resp.ProjectedAmountDue = &projected
	}
	return resp, nil
}

// BillableFranchisees returns every franchisee holding at least one agreement
func (s *RoyaltyService) BillableFranchisees(ctx context.Context) ([]uuid.UUID, error) {
	return s.agreementRepo.FindFranchiseesWithAgreements(ctx)
}

// GenerateForPeriod generates the period's report for every franchisee with an
// agreement, one after another. Franchisees whose agreement does not cover the
// period are skipped; other failures are counted and do not stop the batch.
func (s *RoyaltyService) GenerateForPeriod(ctx context.Context, periodStr string) (*BatchResult, error) {
	period, err := valueobject.ParsePeriod(periodStr)
	if err != nil {
		return nil, err
	}
	franchisees, err := s.BillableFranchisees(ctx)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Period: period.String()}
	for _, franchiseeID := range franchisees {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		res, err := s.Generate(ctx, GenerateReportRequest{FranchiseeID: franchiseeID, Period: period.String()})
		switch {
		case errors.Is(err, shared.ErrNoActiveAgreement):
			result.Skipped++
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", franchiseeID, err))
		case res.Created:
			result.Generated++
		default:
			result.Existing++
		}
	}

	s.logger.Info("royalty batch finished",
		zap.String("period", result.Period),
		zap.Int("generated", result.Generated),
		zap.Int("existing", result.Existing),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, shared.ErrNoActiveAgreement):
		return "no_agreement"
	case errors.Is(err, shared.ErrPersistenceTimeout):
		return "timeout"
	case shared.KindOf(err) == shared.KindValidation:
		return "invalid_input"
	default:
		return "error"
	}
}
