package franchise

import (
	"fmt"
	"sort"
	"time"

	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format of agreement dates
const DateLayout = "2006-01-02"

// Network-wide defaults observed for new agreements
var (
	DefaultEntryFeeAmount  = decimal.RequireFromString("50000.00")
	DefaultRevenueSharePct = decimal.RequireFromString("0.0400")
)

// Agreement holds the commercial terms of a franchise for a date range.
// RevenueSharePct is a fraction: 0.0400 means four percent.
type Agreement struct {
	shared.BaseAggregateRoot
	FranchiseeID    uuid.UUID
	EntryFeeAmount  decimal.Decimal
	RevenueSharePct decimal.Decimal
	Currency        valueobject.Currency
	TimeZone        string
	StartDate       time.Time
	EndDate         *time.Time
}

// AgreementTerms are the inputs of a new agreement
type AgreementTerms struct {
	FranchiseeID    uuid.UUID
	EntryFeeAmount  decimal.Decimal
	RevenueSharePct decimal.Decimal
	Currency        valueobject.Currency
	TimeZone        string
	StartDate       time.Time
	EndDate         *time.Time
}

// NewAgreement validates terms and creates an agreement
func NewAgreement(terms AgreementTerms) (*Agreement, error) {
	if terms.FranchiseeID == uuid.Nil {
		return nil, shared.NewValidationError(shared.CodeInvalidAgreement, "Franchisee ID cannot be empty")
	}
	if terms.EntryFeeAmount.IsNegative() {
		return nil, shared.NewValidationError(shared.CodeInvalidAgreement, "Entry fee cannot be negative")
	}
	if terms.RevenueSharePct.IsNegative() || terms.RevenueSharePct.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.NewValidationError(shared.CodeInvalidAgreement,
			"Revenue share must be a fraction between 0 and 1").
			WithDetail("revenue_share_pct", terms.RevenueSharePct.String())
	}
	if terms.StartDate.IsZero() {
		return nil, shared.NewValidationError(shared.CodeInvalidAgreement, "Start date is required")
	}
	if terms.TimeZone == "" {
		terms.TimeZone = "UTC"
	}
	if _, err := time.LoadLocation(terms.TimeZone); err != nil {
		return nil, shared.NewValidationError(shared.CodeInvalidAgreement,
			fmt.Sprintf("Unknown time zone %q", terms.TimeZone))
	}
	if terms.Currency == "" {
		terms.Currency = valueobject.DefaultCurrency
	}

	start := truncateDate(terms.StartDate)
	var end *time.Time
	if terms.EndDate != nil {
		e := truncateDate(*terms.EndDate)
		if e.Before(start) {
			return nil, shared.NewValidationError(shared.CodeInvalidAgreement, "End date cannot be before start date").
				WithDetail("start_date", start.Format(DateLayout)).
				WithDetail("end_date", e.Format(DateLayout))
		}
		end = &e
	}

	return &Agreement{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FranchiseeID:      terms.FranchiseeID,
		EntryFeeAmount:    terms.EntryFeeAmount,
		RevenueSharePct:   terms.RevenueSharePct,
		Currency:          terms.Currency,
		TimeZone:          terms.TimeZone,
		StartDate:         start,
		EndDate:           end,
	}, nil
}

// Location returns the agreement's reference time zone
func (a *Agreement) Location() *time.Location {
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EntryFee returns the one-time entry fee as money
func (a *Agreement) EntryFee() valueobject.Money {
	m, _ := valueobject.NewMoney(a.EntryFeeAmount, a.Currency)
	return m
}

// Covers reports whether t falls in [StartDate, EndDate). Dates are calendar
// days in the agreement's time zone; a nil end date is open ended.
func (a *Agreement) Covers(t time.Time) bool {
	loc := a.Location()
	local := t.In(loc)
	start := time.Date(a.StartDate.Year(), a.StartDate.Month(), a.StartDate.Day(), 0, 0, 0, 0, loc)
	if local.Before(start) {
		return false
	}
	if a.EndDate == nil {
		return true
	}
	end := time.Date(a.EndDate.Year(), a.EndDate.Month(), a.EndDate.Day(), 0, 0, 0, 0, loc)
	return local.Before(end)
}

// Overlaps reports whether two agreements share at least one day
func (a *Agreement) Overlaps(other *Agreement) bool {
	if a.EndDate != nil && !other.StartDate.Before(*a.EndDate) {
		return false
	}
	if other.EndDate != nil && !a.StartDate.Before(*other.EndDate) {
		return false
	}
	return true
}

// Close sets the exclusive end date
func (a *Agreement) Close(endDate time.Time) error {
	if a.EndDate != nil {
		return shared.NewStateError(shared.CodeInvalidAgreement, "Agreement is already closed",
			map[string]any{"end_date": a.EndDate.Format(DateLayout)})
	}
	end := truncateDate(endDate)
	if end.Before(a.StartDate) {
		return shared.NewValidationError(shared.CodeInvalidAgreement, "End date cannot be before start date").
			WithDetail("start_date", a.StartDate.Format(DateLayout))
	}
	a.EndDate = &end
	a.Touch()
	return nil
}

// ResolveActive returns the agreement covering at. When several cover it the
// one with the latest start wins.
func ResolveActive(agreements []Agreement, at time.Time) (*Agreement, error) {
	candidates := make([]*Agreement, 0, len(agreements))
	for i := range agreements {
		if agreements[i].Covers(at) {
			candidates = append(candidates, &agreements[i])
		}
	}
	if len(candidates) == 0 {
		return nil, shared.NewPolicyError(shared.CodeNoActiveAgreement,
			fmt.Sprintf("no franchise agreement is in force on %s", at.Format(DateLayout)),
			map[string]any{"date": at.Format(DateLayout)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].StartDate.After(candidates[j].StartDate)
	})
	return candidates[0], nil
}

// ResolveForPeriod returns the agreement in force at the start of period. The
// instant is the first day of the month, midnight, in each candidate's own zone.
func ResolveForPeriod(agreements []Agreement, period valueobject.Period) (*Agreement, error) {
	var found *Agreement
	for i := range agreements {
		a := &agreements[i]
		if !a.Covers(period.Start(a.Location())) {
			continue
		}
		if found == nil || a.StartDate.After(found.StartDate) {
			found = a
		}
	}
	if found == nil {
		return nil, shared.NewPolicyError(shared.CodeNoActiveAgreement,
			fmt.Sprintf("no franchise agreement is in force for period %s", period),
			map[string]any{"period": period.String()})
	}
	return found, nil
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, shared.NewValidationError(shared.CodeInvalidAgreement,
			fmt.Sprintf("date %q must be formatted as YYYY-MM-DD", s))
	}
	return t, nil
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
