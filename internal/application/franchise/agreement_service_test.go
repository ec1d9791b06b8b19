package franchise

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/foodtruck/backend/internal/domain/franchise"
	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAgreementRepository is a mock implementation of AgreementRepository
type MockAgreementRepository struct {
	mock.Mock
}

func (m *MockAgreementRepository) FindByID(ctx context.Context, id uuid.UUID) (*franchise.Agreement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*franchise.Agreement), args.Error(1)
}

func (m *MockAgreementRepository) FindByFranchisee(ctx context.Context, franchiseeID uuid.UUID) ([]franchise.Agreement, error) {
	args := m.Called(ctx, franchiseeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]franchise.Agreement), args.Error(1)
}

func (m *MockAgreementRepository) FindFranchiseesWithAgreements(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockAgreementRepository) Create(ctx context.Context, agreement *franchise.Agreement) error {
	return m.Called(ctx, agreement).Error(0)
}

func (m *MockAgreementRepository) SaveWithLock(ctx context.Context, agreement *franchise.Agreement) error {
	return m.Called(ctx, agreement).Error(0)
}

func existingAgreement(t *testing.T, franchiseeID uuid.UUID, start string, end *string) franchise.Agreement {
	t.Helper()
	terms := franchise.AgreementTerms{
		FranchiseeID:    franchiseeID,
		EntryFeeAmount:  franchise.DefaultEntryFeeAmount,
		RevenueSharePct: franchise.DefaultRevenueSharePct,
		TimeZone:        "Europe/Paris",
	}
	terms.StartDate, _ = franchise.ParseDate(start)
	if end != nil {
		e, _ := franchise.ParseDate(*end)
		terms.EndDate = &e
	}
	a, err := franchise.NewAgreement(terms)
	require.NoError(t, err)
	return *a
}

func strPtr(s string) *string { return &s }

func TestAgreementService_Create(t *testing.T) {
	t.Run("applies network defaults", func(t *testing.T) {
		repo := new(MockAgreementRepository)
		svc := NewAgreementService(repo, "Europe/Paris", nil)
		franchiseeID := uuid.New()

		repo.On("FindByFranchisee", mock.Anything, franchiseeID).Return([]franchise.Agreement{}, nil)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*franchise.Agreement")).Return(nil)

		resp, err := svc.Create(context.Background(), CreateAgreementRequest{
			FranchiseeID: franchiseeID,
			StartDate:    "2025-01-01",
		})
		require.NoError(t, err)
		assert.Equal(t, "50000.00", resp.EntryFeeAmount)
		assert.Equal(t, "0.0400", resp.RevenueSharePct)
		assert.Equal(t, "Europe/Paris", resp.TimeZone)
		assert.Equal(t, "EUR", resp.Currency)
		assert.Equal(t, "2025-01-01", resp.StartDate)
		assert.Nil(t, resp.EndDate)
		repo.AssertExpectations(t)
	})

	t.Run("explicit terms", func(t *testing.T) {
		repo := new(MockAgreementRepository)
		svc := NewAgreementService(repo, "", nil)
		franchiseeID := uuid.New()
		share := decimal.RequireFromString("0.055")

		repo.On("FindByFranchisee", mock.Anything, franchiseeID).Return([]franchise.Agreement{}, nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		resp, err := svc.Create(context.Background(), CreateAgreementRequest{
			FranchiseeID:    franchiseeID,
			RevenueSharePct: &share,
			Currency:        "USD",
			TimeZone:        "America/New_York",
			StartDate:       "2025-01-01",
			EndDate:         "2026-01-01",
		})
		require.NoError(t, err)
		assert.Equal(t, "0.0550", resp.RevenueSharePct)
		assert.Equal(t, "USD", resp.Currency)
		require.NotNil(t, resp.EndDate)
		assert.Equal(t, "2026-01-01", *resp.EndDate)
	})

	t.Run("overlap is rejected", func(t *testing.T) {
		repo := new(MockAgreementRepository)
		svc := NewAgreementService(repo, "UTC", nil)
		franchiseeID := uuid.New()
		current := existingAgreement(t, franchiseeID, "2024-01-01", nil)

		repo.On("FindByFranchisee", mock.Anything, franchiseeID).Return([]franchise.Agreement{current}, nil)

		_, err := svc.Create(context.Background(), CreateAgreementRequest{
			FranchiseeID: franchiseeID,
			StartDate:    "2025-01-01",
		})
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, shared.CodeAgreementOverlap, de.Code)
		assert.Equal(t, current.ID.String(), de.Details["conflicting_agreement_id"])
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("adjacent agreement is accepted", func(t *testing.T) {
		repo := new(MockAgreementRepository)
		svc := NewAgreementService(repo, "UTC", nil)
		franchiseeID := uuid.New()
		old := existingAgreement(t, franchiseeID, "2024-01-01", strPtr("2025-01-01"))

		repo.On("FindByFranchisee", mock.Anything, franchiseeID).Return([]franchise.Agreement{old}, nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := svc.Create(context.Background(), CreateAgreementRequest{
			FranchiseeID: franchiseeID,
			StartDate:    "2025-01-01",
		})
		require.NoError(t, err)
	})

	t.Run("share outside 0..1 is invalid", func(t *testing.T) {
		repo := new(MockAgreementRepository)
		svc := NewAgreementService(repo, "UTC", nil)
		share := decimal.NewFromInt(4)

		_, err := svc.Create(context.Background(), CreateAgreementRequest{
			FranchiseeID:    uuid.New(),
			RevenueSharePct: &share,
			StartDate:       "2025-01-01",
		})
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, shared.CodeInvalidAgreement, de.Code)
	})
}

func TestAgreementService_Close(t *testing.T) {
	repo := new(MockAgreementRepository)
	svc := NewAgreementService(repo, "UTC", nil)
	agreement := existingAgreement(t, uuid.New(), "2024-01-01", nil)

	repo.On("FindByID", mock.Anything, agreement.ID).Return(&agreement, nil)
	repo.On("SaveWithLock", mock.Anything, &agreement).Return(nil).Once()

	resp, err := svc.Close(context.Background(), agreement.ID, CloseAgreementRequest{EndDate: "2025-07-01"})
	require.NoError(t, err)
	require.NotNil(t, resp.EndDate)
	assert.Equal(t, "2025-07-01", *resp.EndDate)

	_, err = svc.Close(context.Background(), agreement.ID, CloseAgreementRequest{EndDate: "2025-08-01"})
	assert.Equal(t, shared.KindState, shared.KindOf(err))
	repo.AssertExpectations(t)
}

func TestAgreementService_ActiveAt(t *testing.T) {
	repo := new(MockAgreementRepository)
	svc := NewAgreementService(repo, "UTC", nil)
	franchiseeID := uuid.New()
	agreement := existingAgreement(t, franchiseeID, "2025-01-01", nil)
	repo.On("FindByFranchisee", mock.Anything, franchiseeID).Return([]franchise.Agreement{agreement}, nil)

	resp, err := svc.ActiveAt(context.Background(), franchiseeID, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, agreement.ID, resp.ID)

	_, err = svc.ActiveAt(context.Background(), franchiseeID, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, shared.ErrNoActiveAgreement)
}

// memoryAgreementRepository keeps agreements in a map. Reads pause briefly so
// unsynchronized writers would interleave between check and insert.
type memoryAgreementRepository struct {
	mu         sync.Mutex
	agreements []franchise.Agreement
}

func (r *memoryAgreementRepository) FindByID(ctx context.Context, id uuid.UUID) (*franchise.Agreement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.agreements {
		if r.agreements[i].ID == id {
			a := r.agreements[i]
			return &a, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryAgreementRepository) FindByFranchisee(ctx context.Context, franchiseeID uuid.UUID) ([]franchise.Agreement, error) {
	r.mu.Lock()
	var out []franchise.Agreement
	for _, a := range r.agreements {
		if a.FranchiseeID == franchiseeID {
			out = append(out, a)
		}
	}
	r.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	return out, nil
}

func (r *memoryAgreementRepository) FindFranchiseesWithAgreements(ctx context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

func (r *memoryAgreementRepository) Create(ctx context.Context, agreement *franchise.Agreement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agreements = append(r.agreements, *agreement)
	return nil
}

func (r *memoryAgreementRepository) SaveWithLock(ctx context.Context, agreement *franchise.Agreement) error {
	return nil
}

func (r *memoryAgreementRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.agreements)
}

type keyRecordingLock struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (l *keyRecordingLock) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	return l.mu.Unlock, nil
}

func TestAgreementService_ConcurrentCreate(t *testing.T) {
	repo := &memoryAgreementRepository{}
	svc := NewAgreementService(repo, "Europe/Paris", nil)
	franchiseeID := uuid.New()

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), CreateAgreementRequest{
				FranchiseeID: franchiseeID,
				StartDate:    "2025-01-01",
			})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		var de *shared.DomainError
		require.True(t, errors.As(err, &de), "got %v", err)
		assert.Equal(t, shared.CodeAgreementOverlap, de.Code)
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, repo.count())
}

func TestAgreementService_WriteLock(t *testing.T) {
	franchiseeID := uuid.New()

	t.Run("locks the franchisee key", func(t *testing.T) {
		lock := &keyRecordingLock{}
		svc := NewAgreementService(&memoryAgreementRepository{}, "UTC", nil)
		svc.SetWriteLock(lock)

		_, err := svc.Create(context.Background(), CreateAgreementRequest{FranchiseeID: franchiseeID, StartDate: "2025-01-01"})
		require.NoError(t, err)
		assert.Equal(t, []string{franchise.LockKey(franchiseeID)}, lock.keys)
	})

	t.Run("lock failure aborts the write", func(t *testing.T) {
		repo := &memoryAgreementRepository{}
		lock := &keyRecordingLock{err: shared.NewUnavailableError(shared.CodeLockUnavailable, "redis down")}
		svc := NewAgreementService(repo, "UTC", nil)
		svc.SetWriteLock(lock)

		_, err := svc.Create(context.Background(), CreateAgreementRequest{FranchiseeID: franchiseeID, StartDate: "2025-01-01"})
		assert.True(t, shared.IsRetryable(err))
		assert.Zero(t, repo.count())
	})
}
