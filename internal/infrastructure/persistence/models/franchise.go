package models

import (
	"time"

	"github.com/foodtruck/backend/internal/domain/franchise"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FranchiseAgreementModel is the persistence model for the Agreement aggregate root.
type FranchiseAgreementModel struct {
	AggregateModel
	FranchiseeID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	EntryFeeAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RevenueSharePct decimal.Decimal `gorm:"type:decimal(9,6);not null"`
	Currency        string          `gorm:"type:varchar(3);not null"`
	TimeZone        string          `gorm:"type:varchar(64);not null;default:'UTC'"`
	StartDate       time.Time       `gorm:"type:date;not null"`
	EndDate         *time.Time      `gorm:"type:date"`
}

// TableName returns the table name for GORM
func (FranchiseAgreementModel) TableName() string {
	return "franchise_agreements"
}

// ToDomain converts the persistence model to a domain Agreement.
func (m *FranchiseAgreementModel) ToDomain() *franchise.Agreement {
	a := &franchise.Agreement{
		BaseAggregateRoot: m.ToAggregateRoot(),
		FranchiseeID:      m.FranchiseeID,
		EntryFeeAmount:    m.EntryFeeAmount,
		RevenueSharePct:   m.RevenueSharePct,
		Currency:          valueobject.Currency(m.Currency),
		TimeZone:          m.TimeZone,
		StartDate:         dateOnly(m.StartDate),
	}
	if m.EndDate != nil {
		end := dateOnly(*m.EndDate)
		a.EndDate = &end
	}
	return a
}

// FromDomain populates the persistence model from a domain Agreement.
func (m *FranchiseAgreementModel) FromDomain(a *franchise.Agreement) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.FranchiseeID = a.FranchiseeID
	m.EntryFeeAmount = a.EntryFeeAmount
	m.RevenueSharePct = a.RevenueSharePct
	m.Currency = string(a.Currency)
	m.TimeZone = a.TimeZone
	m.StartDate = dateOnly(a.StartDate)
	m.EndDate = nil
	if a.EndDate != nil {
		end := dateOnly(*a.EndDate)
		m.EndDate = &end
	}
}

// FranchiseAgreementModelFromDomain creates a new persistence model from a domain Agreement.
func FranchiseAgreementModelFromDomain(a *franchise.Agreement) *FranchiseAgreementModel {
	m := &FranchiseAgreementModel{}
	m.FromDomain(a)
	return m
}

// dateOnly keeps the calendar day and drops any zone a driver attached
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
