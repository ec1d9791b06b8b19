package franchise

import (
	"time"

	"github.com/foodtruck/backend/internal/domain/franchise"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateAgreementRequest represents a request to register franchise terms.
// Omitted fee and share fall back to the network defaults.
type CreateAgreementRequest struct {
	FranchiseeID    uuid.UUID        `json:"franchisee_id" binding:"required"`
	EntryFeeAmount  *decimal.Decimal `json:"entry_fee_amount"`
	RevenueSharePct *decimal.Decimal `json:"revenue_share_pct"`
	Currency        string           `json:"currency" binding:"omitempty,len=3"`
	TimeZone        string           `json:"time_zone" binding:"omitempty,max=64"`
	StartDate       string           `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate         string           `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

// CloseAgreementRequest sets the exclusive end date of an open agreement
type CloseAgreementRequest struct {
	EndDate string `json:"end_date" binding:"required,datetime=2006-01-02"`
}

// AgreementResponse represents an agreement in API responses
type AgreementResponse struct {
	ID              uuid.UUID `json:"id"`
	FranchiseeID    uuid.UUID `json:"franchisee_id"`
	EntryFeeAmount  string    `json:"entry_fee_amount"`
	RevenueSharePct string    `json:"revenue_share_pct"`
	Currency        string    `json:"currency"`
	TimeZone        string    `json:"time_zone"`
	StartDate       string    `json:"start_date"`
	EndDate         *string   `json:"end_date"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int       `json:"version"`
}

// ToAgreementResponse converts a domain agreement to response DTO
func ToAgreementResponse(a *franchise.Agreement) AgreementResponse {
	resp := AgreementResponse{
		ID:              a.ID,
		FranchiseeID:    a.FranchiseeID,
		EntryFeeAmount:  a.EntryFee().StringFixed(2),
		RevenueSharePct: a.RevenueSharePct.StringFixed(4),
		Currency:        string(a.Currency),
		TimeZone:        a.TimeZone,
		StartDate:       a.StartDate.Format(franchise.DateLayout),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		Version:         a.Version,
	}
	if a.EndDate != nil {
		end := a.EndDate.Format(franchise.DateLayout)
		resp.EndDate = &end
	}
	return resp
}

// ToAgreementResponses converts a slice of agreements
func ToAgreementResponses(agreements []franchise.Agreement) []AgreementResponse {
	responses := make([]AgreementResponse, len(agreements))
	for i := range agreements {
		responses[i] = ToAgreementResponse(&agreements[i])
	}
	return responses
}
