package royalty

import (
	"time"

	"github.com/foodtruck/backend/internal/domain/royalty"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// GenerateReportRequest asks for the royalty report of one franchisee and month
type GenerateReportRequest struct {
	FranchiseeID uuid.UUID `json:"franchisee_id" binding:"required"`
	Period       string    `json:"period" binding:"required,len=7"`
}

// GeneratePeriodRequest asks for the reports of every billable franchisee for one month
type GeneratePeriodRequest struct {
	Period string `json:"period" binding:"required,len=7"`
}

// ReportListFilter represents pagination for a franchisee's reports
type ReportListFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// RoyaltyReportResponse represents a royalty report in API responses
type RoyaltyReportResponse struct {
	ID           uuid.UUID `json:"id"`
	FranchiseeID uuid.UUID `json:"franchisee_id"`
	Period       string    `json:"period"`
	AgreementID  uuid.UUID `json:"agreement_id"`
	GrossSales   string    `json:"gross_sales"`
	SharePct     string    `json:"share_pct"`
	AmountDue    string    `json:"amount_due"`
	OrderCount   int       `json:"order_count"`
	Currency     string    `json:"currency"`
	TimeZone     string    `json:"time_zone"`
	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// GenerateReportResult wraps the report with how the call was served
type GenerateReportResult struct {
	Report RoyaltyReportResponse `json:"report"`
	// Created is false when an existing report for the key was returned
	Created  bool `json:"created"`
	Exported bool `json:"exported"`
}

// SalesSummaryResponse is the fulfilled revenue of a period without a stored report
type SalesSummaryResponse struct {
	FranchiseeID       uuid.UUID  `json:"franchisee_id"`
	Period             string     `json:"period"`
	GrossSales         string     `json:"gross_sales"`
	OrderCount         int        `json:"order_count"`
	TimeZone           string     `json:"time_zone"`
	PeriodStart        time.Time  `json:"period_start"`
	PeriodEnd          time.Time  `json:"period_end"`
	AgreementID        *uuid.UUID `json:"agreement_id,omitempty"`
	SharePct           *string    `json:"share_pct,omitempty"`
	ProjectedAmountDue *string    `json:"projected_amount_due,omitempty"`
}

// BatchResult summarizes a GenerateForPeriod run
type BatchResult struct {
	Period    string   `json:"period"`
	Generated int      `json:"generated"`
	Existing  int      `json:"existing"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// ToRoyaltyReportResponse converts a domain report to response DTO
func ToRoyaltyReportResponse(r *royalty.RoyaltyReport) RoyaltyReportResponse {
	return RoyaltyReportResponse{
		ID:           r.ID,
		FranchiseeID: r.FranchiseeID,
		Period:       r.Period.String(),
		AgreementID:  r.AgreementID,
		GrossSales:   r.GrossSales.StringFixed(valueobject.MoneyScale),
		SharePct:     r.SharePct.StringFixed(4),
		AmountDue:    r.AmountDue.StringFixed(valueobject.MoneyScale),
		OrderCount:   r.OrderCount,
		Currency:     string(r.Currency),
		TimeZone:     r.TimeZone,
		PeriodStart:  r.PeriodStart,
		PeriodEnd:    r.PeriodEnd,
		GeneratedAt:  r.GeneratedAt,
	}
}

// ToRoyaltyReportResponses converts a slice of domain reports
func ToRoyaltyReportResponses(reports []royalty.RoyaltyReport) []RoyaltyReportResponse {
	responses := make([]RoyaltyReportResponse, len(reports))
	for i := range reports {
		responses[i] = ToRoyaltyReportResponse(&reports[i])
	}
	return responses
}
