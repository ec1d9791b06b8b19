package models

import (
	"time"

	"github.com/foodtruck/backend/internal/domain/royalty"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoyaltyReportModel is the persistence model for a RoyaltyReport.
// Rows are insert-only; the (franchisee_id, period) index enforces one report per key.
type RoyaltyReportModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	FranchiseeID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_royalty_reports_franchisee_period,priority:1"`
	Period       string          `gorm:"type:char(7);not null;uniqueIndex:idx_royalty_reports_franchisee_period,priority:2"`
	AgreementID  uuid.UUID       `gorm:"type:uuid;not null"`
	GrossSales   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SharePct     decimal.Decimal `gorm:"type:decimal(9,6);not null"`
	AmountDue    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OrderCount   int             `gorm:"not null;default:0"`
	Currency     string          `gorm:"type:varchar(3);not null"`
	TimeZone     string          `gorm:"type:varchar(64);not null"`
	PeriodStart  time.Time       `gorm:"not null"`
	PeriodEnd    time.Time       `gorm:"not null"`
	GeneratedAt  time.Time       `gorm:"not null"`
	CreatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RoyaltyReportModel) TableName() string {
	return "royalty_reports"
}

// ToDomain converts the persistence model to a domain RoyaltyReport.
// A period that fails to parse yields a zero period; the column is constrained on write.
func (m *RoyaltyReportModel) ToDomain() *royalty.RoyaltyReport {
	period, _ := valueobject.ParsePeriod(m.Period)
	loc := time.UTC
	if l, err := time.LoadLocation(m.TimeZone); err == nil {
		loc = l
	}
	return &royalty.RoyaltyReport{
		ID:           m.ID,
		FranchiseeID: m.FranchiseeID,
		Period:       period,
		AgreementID:  m.AgreementID,
		GrossSales:   m.GrossSales,
		SharePct:     m.SharePct,
		AmountDue:    m.AmountDue,
		OrderCount:   m.OrderCount,
		Currency:     valueobject.Currency(m.Currency),
		TimeZone:     m.TimeZone,
		PeriodStart:  m.PeriodStart.In(loc),
		PeriodEnd:    m.PeriodEnd.In(loc),
		GeneratedAt:  m.GeneratedAt,
	}
}

// RoyaltyReportModelFromDomain creates a new persistence model from a domain RoyaltyReport.
func RoyaltyReportModelFromDomain(r *royalty.RoyaltyReport) *RoyaltyReportModel {
	return &RoyaltyReportModel{
		ID:           r.ID,
		FranchiseeID: r.FranchiseeID,
		Period:       r.Period.String(),
		AgreementID:  r.AgreementID,
		GrossSales:   r.GrossSales,
		SharePct:     r.SharePct,
		AmountDue:    r.AmountDue,
		OrderCount:   r.OrderCount,
		Currency:     string(r.Currency),
		TimeZone:     r.TimeZone,
		PeriodStart:  r.PeriodStart.UTC(),
		PeriodEnd:    r.PeriodEnd.UTC(),
		GeneratedAt:  r.GeneratedAt.UTC(),
		CreatedAt:    time.Now().UTC(),
	}
}
