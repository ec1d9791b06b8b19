package royalty

import (
	"time"

	"github.com/foodtruck/backend/internal/domain/franchise"
	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeRoyaltyReport is the aggregate type of report events
const AggregateTypeRoyaltyReport = "RoyaltyReport"

// EventTypeRoyaltyReportGenerated is raised once per (franchisee, period)
const EventTypeRoyaltyReportGenerated = "RoyaltyReportGenerated"

// SalesTotals is the aggregated fulfilled revenue of a franchisee over a period
type SalesTotals struct {
	GrossSales decimal.Decimal
	OrderCount int
}

// RoyaltyReport is the immutable royalty statement of one franchisee for one month.
// Fields are exported for mapping only; nothing mutates a report after Generate.
type RoyaltyReport struct {
	ID           uuid.UUID
	FranchiseeID uuid.UUID
	Period       valueobject.Period
	AgreementID  uuid.UUID
	GrossSales   decimal.Decimal
	SharePct     decimal.Decimal
	AmountDue    decimal.Decimal
	OrderCount   int
	Currency     valueobject.Currency
	TimeZone     string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	GeneratedAt  time.Time
}

// Key returns the natural key of the report
func (r *RoyaltyReport) Key() string {
	return ReportKey(r.FranchiseeID, r.Period)
}

// ReportKey builds the (franchisee, period) key
func ReportKey(franchiseeID uuid.UUID, period valueobject.Period) string {
	return franchiseeID.String() + ":" + period.String()
}

// AmountDueMoney returns the amount due as money
func (r *RoyaltyReport) AmountDueMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(r.AmountDue, r.Currency)
	return m
}

// SameFigures reports whether two reports carry identical results
func (r *RoyaltyReport) SameFigures(other *RoyaltyReport) bool {
	return r.GrossSales.Equal(other.GrossSales) &&
		r.AmountDue.Equal(other.AmountDue) &&
		r.SharePct.Equal(other.SharePct) &&
		r.OrderCount == other.OrderCount
}

// Generate builds the report for period from the agreement in force and the
// aggregated sales. Gross sales are rounded to cents first so the stored
// figures reproduce: amountDue = grossSales × sharePct, rounded half up to cents.
func Generate(franchiseeID uuid.UUID, period valueobject.Period, agreement *franchise.Agreement, totals SalesTotals, now time.Time) (*RoyaltyReport, error) {
	if franchiseeID == uuid.Nil {
		return nil, shared.NewValidationError(shared.CodeInvalidInput, "Franchisee ID cannot be empty")
	}
	if period.IsZero() {
		return nil, shared.NewValidationError(shared.CodeInvalidPeriod, "Period is required")
	}
	if agreement == nil {
		return nil, shared.ErrNoActiveAgreement
	}
	if totals.GrossSales.IsNegative() {
		return nil, shared.NewValidationError(shared.CodeInvalidInput, "Gross sales cannot be negative")
	}

	loc := agreement.Location()
	start, end := period.Bounds(loc)
	sales, err := valueobject.NewMoney(totals.GrossSales, agreement.Currency)
	if err != nil {
		return nil, err
	}
	gross := sales.Cents()
	due := gross.Share(agreement.RevenueSharePct)

	return &RoyaltyReport{
		ID:           uuid.New(),
		FranchiseeID: franchiseeID,
		Period:       period,
		AgreementID:  agreement.ID,
		GrossSales:   gross.Amount(),
		SharePct:     agreement.RevenueSharePct,
		AmountDue:    due.Amount(),
		OrderCount:   totals.OrderCount,
		Currency:     agreement.Currency,
		TimeZone:     agreement.TimeZone,
		PeriodStart:  start,
		PeriodEnd:    end,
		GeneratedAt:  now,
	}, nil
}

// RoyaltyReportGeneratedEvent is raised after a new report is stored
type RoyaltyReportGeneratedEvent struct {
	shared.BaseDomainEvent
	Period     string          `json:"period"`
	GrossSales decimal.Decimal `json:"gross_sales"`
	AmountDue  decimal.Decimal `json:"amount_due"`
	Currency   string          `json:"currency"`
}

// NewRoyaltyReportGeneratedEvent creates a new RoyaltyReportGeneratedEvent
func NewRoyaltyReportGeneratedEvent(r *RoyaltyReport) *RoyaltyReportGeneratedEvent {
	return &RoyaltyReportGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRoyaltyReportGenerated, AggregateTypeRoyaltyReport, r.ID, r.FranchiseeID),
		Period:          r.Period.String(),
		GrossSales:      r.GrossSales,
		AmountDue:       r.AmountDue,
		Currency:        string(r.Currency),
	}
}
