package franchise

import (
	"context"
	"sync"
	"time"

	"github.com/foodtruck/backend/internal/domain/franchise"
	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AgreementService manages franchise agreements
type AgreementService struct {
	repo            franchise.AgreementRepository
	lock            franchise.WriteLock
	localMu         sync.Mutex
	defaultTimeZone string
	defaultCurrency valueobject.Currency
	logger          *zap.Logger
}

// NewAgreementService creates a new AgreementService. defaultTimeZone applies
// to agreements created without an explicit zone.
func NewAgreementService(repo franchise.AgreementRepository, defaultTimeZone string, logger *zap.Logger) *AgreementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTimeZone == "" {
		defaultTimeZone = "UTC"
	}
	return &AgreementService{
		repo:            repo,
		defaultTimeZone: defaultTimeZone,
		defaultCurrency: valueobject.DefaultCurrency,
		logger:          logger,
	}
}

// SetDefaultCurrency sets the currency of agreements created without one
func (s *AgreementService) SetDefaultCurrency(c valueobject.Currency) {
	if c != "" {
		s.defaultCurrency = c
	}
}

// SetWriteLock shares agreement writes with other instances. Without one,
// writes are serialized inside this process only.
func (s *AgreementService) SetWriteLock(lock franchise.WriteLock) {
	s.lock = lock
}

// acquire holds the write lock of franchiseeID until release is called
func (s *AgreementService) acquire(ctx context.Context, franchiseeID uuid.UUID) (func(), error) {
	if s.lock == nil {
		s.localMu.Lock()
		return s.localMu.Unlock, nil
	}
	return s.lock.Acquire(ctx, franchise.LockKey(franchiseeID))
}

// Create registers a new agreement. Date ranges of one franchisee may not overlap.
func (s *AgreementService) Create(ctx context.Context, req CreateAgreementRequest) (*AgreementResponse, error) {
	terms := franchise.AgreementTerms{
		FranchiseeID:    req.FranchiseeID,
		EntryFeeAmount:  franchise.DefaultEntryFeeAmount,
		RevenueSharePct: franchise.DefaultRevenueSharePct,
		Currency:        s.defaultCurrency,
		TimeZone:        req.TimeZone,
	}
	if req.EntryFeeAmount != nil {
		terms.EntryFeeAmount = *req.EntryFeeAmount
	}
	if req.RevenueSharePct != nil {
		terms.RevenueSharePct = *req.RevenueSharePct
	}
	if terms.TimeZone == "" {
		terms.TimeZone = s.defaultTimeZone
	}
	if req.Currency != "" {
		currency, err := valueobject.ParseCurrency(req.Currency)
		if err != nil {
			return nil, err
		}
		terms.Currency = currency
	}

	start, err := franchise.ParseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	terms.StartDate = start
	if req.EndDate != "" {
		end, err := franchise.ParseDate(req.EndDate)
		if err != nil {
			return nil, err
		}
		terms.EndDate = &end
	}

	agreement, err := franchise.NewAgreement(terms)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, req.FranchiseeID)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := s.repo.FindByFranchisee(ctx, req.FranchiseeID)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if agreement.Overlaps(&existing[i]) {
			return nil, shared.NewDomainError(shared.CodeAgreementOverlap,
				"Agreement dates overlap an existing agreement of this franchisee").
				WithDetail("conflicting_agreement_id", existing[i].ID.String())
		}
	}

	if err := s.repo.Create(ctx, agreement); err != nil {
		return nil, err
	}

	s.logger.Info("franchise agreement created",
		zap.String("agreement_id", agreement.ID.String()),
		zap.String("franchisee_id", agreement.FranchiseeID.String()),
		zap.String("revenue_share_pct", agreement.RevenueSharePct.String()),
		zap.String("start_date", agreement.StartDate.Format(franchise.DateLayout)),
	)

	resp := ToAgreementResponse(agreement)
	return &resp, nil
}

// GetByID retrieves an agreement by ID
func (s *AgreementService) GetByID(ctx context.Context, id uuid.UUID) (*AgreementResponse, error) {
	agreement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToAgreementResponse(agreement)
	return &resp, nil
}

// ListByFranchisee returns every agreement of a franchisee ordered by start date
func (s *AgreementService) ListByFranchisee(ctx context.Context, franchiseeID uuid.UUID) ([]AgreementResponse, error) {
	agreements, err := s.repo.FindByFranchisee(ctx, franchiseeID)
	if err != nil {
		return nil, err
	}
	return ToAgreementResponses(agreements), nil
}

// Close ends an open agreement on the given (exclusive) date
func (s *AgreementService) Close(ctx context.Context, id uuid.UUID, req CloseAgreementRequest) (*AgreementResponse, error) {
	end, err := franchise.ParseDate(req.EndDate)
	if err != nil {
		return nil, err
	}

	agreement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx, agreement.FranchiseeID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := agreement.Close(end); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, agreement); err != nil {
		return nil, err
	}

	s.logger.Info("franchise agreement closed",
		zap.String("agreement_id", agreement.ID.String()),
		zap.String("end_date", req.EndDate),
	)

	resp := ToAgreementResponse(agreement)
	return &resp, nil
}

// ActiveAt returns the agreement of a franchisee in force at the given instant
func (s *AgreementService) ActiveAt(ctx context.Context, franchiseeID uuid.UUID, at time.Time) (*AgreementResponse, error) {
	agreements, err := s.repo.FindByFranchisee(ctx, franchiseeID)
	if err != nil {
		return nil, err
	}
	agreement, err := franchise.ResolveActive(agreements, at)
	if err != nil {
		return nil, err
	}
	resp := ToAgreementResponse(agreement)
	return &resp, nil
}
