package procurement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foodtruck/backend/internal/domain/procurement"
	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPurchaseOrderRepository is a mock implementation of PurchaseOrderRepository
type MockPurchaseOrderRepository struct {
	mock.Mock
}

func (m *MockPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindAll(ctx context.Context, filter procurement.OrderFilter) ([]procurement.PurchaseOrder, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]procurement.PurchaseOrder), args.Get(1).(int64), args.Error(2)
}

func (m *MockPurchaseOrderRepository) Create(ctx context.Context, order *procurement.PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) SaveWithLock(ctx context.Context, order *procurement.PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// Test helpers

func newTestService() (*PurchaseOrderService, *MockPurchaseOrderRepository) {
	repo := new(MockPurchaseOrderRepository)
	return NewPurchaseOrderService(repo, nil), repo
}

func lineReq(productID, qty, price string, core bool) LineInputRequest {
	return LineInputRequest{
		ProductID:        productID,
		Quantity:         decimal.RequireFromString(qty),
		UnitPriceExclTax: decimal.RequireFromString(price),
		TaxRatePct:       decimal.RequireFromString("5.5"),
		IsCoreItem:       core,
	}
}

func draftOrder(t *testing.T, lines ...LineInputRequest) *procurement.PurchaseOrder {
	t.Helper()
	order, err := procurement.NewPurchaseOrder(uuid.New(), uuid.New(), uuid.New(), "EUR")
	require.NoError(t, err)
	for _, l := range lines {
		_, err := order.AddLine(l.toDomain(), l.ProductName)
		require.NoError(t, err)
	}
	order.ClearDomainEvents()
	return order
}

func compliantOrder(t *testing.T) *procurement.PurchaseOrder {
	return draftOrder(t,
		lineReq("CORE-1", "8", "10.00", true),
		lineReq("FREE-1", "2", "10.00", false),
	)
}

func approver() procurement.Actor {
	return procurement.NewActor(uuid.New(), "orders:approve")
}

func assertCode(t *testing.T, err error, code string) *shared.DomainError {
	t.Helper()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %T", err)
	assert.Equal(t, code, domainErr.Code)
	return domainErr
}

// ==================== PreviewRatios ====================

func TestPurchaseOrderService_PreviewRatios(t *testing.T) {
	svc, _ := newTestService()

	t.Run("computes split", func(t *testing.T) {
		resp, err := svc.PreviewRatios(context.Background(), RatioPreviewRequest{Lines: []LineInputRequest{
			lineReq("CORE-1", "79", "1.00", true),
			lineReq("FREE-1", "21", "1.00", false),
		}})
		require.NoError(t, err)
		assert.Equal(t, "79.00", resp.CoreAmount)
		assert.Equal(t, "21.00", resp.FreeAmount)
		assert.Equal(t, "100.00", resp.TotalAmount)
		require.NotNil(t, resp.CorePct)
		assert.Equal(t, "79.0", *resp.CorePct)
		assert.Equal(t, "21.0", *resp.FreePct)
		assert.Equal(t, "80.0", resp.RequiredCorePct)
		assert.False(t, resp.Compliant)
	})

	t.Run("empty set has undefined ratio", func(t *testing.T) {
		resp, err := svc.PreviewRatios(context.Background(), RatioPreviewRequest{})
		require.NoError(t, err)
		assert.Nil(t, resp.CorePct)
		assert.Nil(t, resp.FreePct)
		assert.Equal(t, "0.00", resp.TotalAmount)
		assert.False(t, resp.Compliant)
	})

	t.Run("rejects invalid quantity", func(t *testing.T) {
		_, err := svc.PreviewRatios(context.Background(), RatioPreviewRequest{Lines: []LineInputRequest{
			lineReq("CORE-1", "0", "1.00", true),
		}})
		assertCode(t, err, shared.CodeInvalidQuantity)
	})
}

// ==================== Create ====================

func TestPurchaseOrderService_Create(t *testing.T) {
	t.Run("creates draft with lines", func(t *testing.T) {
		svc, repo := newTestService()
		publisher := new(MockEventPublisher)
		svc.SetEventPublisher(publisher)

		repo.On("Create", mock.Anything, mock.AnythingOfType("*procurement.PurchaseOrder")).Return(nil)
		publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		actor := procurement.NewActor(uuid.New(), "")
		resp, err := svc.Create(context.Background(), actor, CreatePurchaseOrderRequest{
			FranchiseeID: uuid.New(),
			WarehouseID:  uuid.New(),
			Lines:        []LineInputRequest{lineReq("CORE-1", "3", "2.50", true)},
		})
		require.NoError(t, err)
		assert.Equal(t, "DRAFT", resp.Status)
		assert.Equal(t, "EUR", resp.Currency)
		assert.Equal(t, actor.ID, resp.CreatedBy)
		require.Len(t, resp.Lines, 1)
		assert.Equal(t, "7.50", resp.Lines[0].AmountExclTax)
		assert.Equal(t, "7.50", resp.TotalExclTax)
		assert.Equal(t, []string{"submit"}, resp.LegalEvents)
		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("rejects unknown currency", func(t *testing.T) {
		svc, repo := newTestService()
		_, err := svc.Create(context.Background(), procurement.Actor{}, CreatePurchaseOrderRequest{
			FranchiseeID: uuid.New(),
			WarehouseID:  uuid.New(),
			Currency:     "EURO",
		})
		require.Error(t, err)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("repository error is returned", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("Create", mock.Anything, mock.Anything).Return(shared.ErrPersistenceTimeout)

		_, err := svc.Create(context.Background(), procurement.Actor{}, CreatePurchaseOrderRequest{
			FranchiseeID: uuid.New(),
			WarehouseID:  uuid.New(),
		})
		assert.ErrorIs(t, err, shared.ErrPersistenceTimeout)
		assert.True(t, shared.IsRetryable(err))
	})
}

// ==================== List ====================

func TestPurchaseOrderService_List(t *testing.T) {
	t.Run("applies defaults and status filter", func(t *testing.T) {
		svc, repo := newTestService()
		order := compliantOrder(t)

		repo.On("FindAll", mock.Anything, mock.MatchedBy(func(f procurement.OrderFilter) bool {
			return f.Page == 1 && f.PageSize == 20 && f.OrderBy == "created_at" &&
				f.Status != nil && *f.Status == procurement.OrderStatusDraft
		})).Return([]procurement.PurchaseOrder{*order}, int64(1), nil)

		items, total, err := svc.List(context.Background(), PurchaseOrderListFilter{Status: "DRAFT"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, order.OrderNumber, items[0].OrderNumber)
		assert.Equal(t, "100.00", items[0].TotalExclTax)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		svc, _ := newTestService()
		_, _, err := svc.List(context.Background(), PurchaseOrderListFilter{Status: "LOST"})
		assertCode(t, err, shared.CodeInvalidInput)
	})

	t.Run("filters by franchisee", func(t *testing.T) {
		svc, repo := newTestService()
		franchiseeID := uuid.New()
		repo.On("FindAll", mock.Anything, mock.MatchedBy(func(f procurement.OrderFilter) bool {
			return f.FranchiseeID != nil && *f.FranchiseeID == franchiseeID && f.Status == nil
		})).Return([]procurement.PurchaseOrder{}, int64(0), nil)

		_, total, err := svc.List(context.Background(), PurchaseOrderListFilter{FranchiseeID: franchiseeID.String()})
		require.NoError(t, err)
		assert.Zero(t, total)
		repo.AssertExpectations(t)
	})

	t.Run("rejects malformed franchisee id", func(t *testing.T) {
		svc, _ := newTestService()
		_, _, err := svc.List(context.Background(), PurchaseOrderListFilter{FranchiseeID: "truck-7"})
		assertCode(t, err, shared.CodeInvalidInput)
	})
}

// ==================== Lines ====================

func TestPurchaseOrderService_Lines(t *testing.T) {
	t.Run("add line recomputes ratio", func(t *testing.T) {
		svc, repo := newTestService()
		order := draftOrder(t, lineReq("CORE-1", "8", "10.00", true))
		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		repo.On("SaveWithLock", mock.Anything, order).Return(nil)

		resp, err := svc.AddLine(context.Background(), order.ID, AddLineRequest{lineReq("FREE-1", "2", "10.00", false)})
		require.NoError(t, err)
		require.Len(t, resp.Lines, 2)
		require.NotNil(t, resp.CorePct)
		assert.Equal(t, "80.0", *resp.CorePct)
	})

	t.Run("update line on submitted order is not editable", func(t *testing.T) {
		svc, repo := newTestService()
		order := compliantOrder(t)
		require.NoError(t, order.Submit())
		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		qty := decimal.NewFromInt(1)
		_, err := svc.UpdateLine(context.Background(), order.ID, order.Lines[0].ID, UpdateLineRequest{Quantity: &qty})
		assertCode(t, err, shared.CodeOrderNotEditable)
		repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("remove unknown line is not found", func(t *testing.T) {
		svc, repo := newTestService()
		order := compliantOrder(t)
		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := svc.RemoveLine(context.Background(), order.ID, uuid.New())
		assertCode(t, err, shared.CodeNotFound)
	})
}

// ==================== Submit ====================

func TestPurchaseOrderService_Submit(t *testing.T) {
	t.Run("compliant order is submitted", func(t *testing.T) {
		svc, repo := newTestService()
		publisher := new(MockEventPublisher)
		svc.SetEventPublisher(publisher)
		order := compliantOrder(t)

		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		repo.On("SaveWithLock", mock.Anything, order).Return(nil)
		publisher.On("Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			return len(events) == 1 && events[0].EventType() == procurement.EventTypePurchaseOrderSubmitted
		})).Return(nil)

		resp, err := svc.Submit(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, "SUBMITTED", resp.Status)
		require.NotNil(t, resp.SubmittedCorePct)
		assert.Equal(t, "80.0", *resp.SubmittedCorePct)
		assert.Equal(t, []string{"approve", "reject"}, resp.LegalEvents)
		assert.Empty(t, order.GetDomainEvents())
		publisher.AssertExpectations(t)
	})

	t.Run("below threshold is rejected with figures", func(t *testing.T) {
		svc, repo := newTestService()
		order := draftOrder(t,
			lineReq("CORE-1", "79", "1.00", true),
			lineReq("FREE-1", "21", "1.00", false),
		)
		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := svc.Submit(context.Background(), order.ID)
		domainErr := assertCode(t, err, shared.CodeInsufficientCoreRatio)
		assert.Equal(t, shared.KindCompliance, domainErr.Kind)
		assert.Equal(t, procurement.OrderStatusDraft, order.Status)
		repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("empty order", func(t *testing.T) {
		svc, repo := newTestService()
		order := draftOrder(t)
		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := svc.Submit(context.Background(), order.ID)
		assertCode(t, err, shared.CodeEmptyOrder)
	})

	t.Run("already submitted is not editable", func(t *testing.T) {
		svc, repo := newTestService()
		order := compliantOrder(t)
		require.NoError(t, order.Submit())
		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := svc.Submit(context.Background(), order.ID)
		assertCode(t, err, shared.CodeOrderNotEditable)
	})

	t.Run("concurrent submit loses with retryable conflict", func(t *testing.T) {
		svc, repo := newTestService()
		order := compliantOrder(t)
		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		repo.On("SaveWithLock", mock.Anything, order).Return(shared.ErrConcurrencyConflict)

		_, err := svc.Submit(context.Background(), order.ID)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.True(t, shared.IsRetryable(err))
	})

	t.Run("order not found", func(t *testing.T) {
		svc, repo := newTestService()
		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, shared.NewNotFoundError("purchase order", id))

		_, err := svc.Submit(context.Background(), id)
		assertCode(t, err, shared.CodeNotFound)
	})
}

// ==================== Transition ====================

func TestPurchaseOrderService_Transition(t *testing.T) {
	submitted := func(t *testing.T) *procurement.PurchaseOrder {
		order := compliantOrder(t)
		require.NoError(t, order.Submit())
		order.ClearDomainEvents()
		return order
	}

	t.Run("approve then deliver", func(t *testing.T) {
		svc, repo := newTestService()
		order := submitted(t)
		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		repo.On("SaveWithLock", mock.Anything, order).Return(nil)

		resp, err := svc.Transition(context.Background(), order.ID, approver(), TransitionRequest{Event: "approve"})
		require.NoError(t, err)
		assert.Equal(t, "PREPARING", resp.Status)

		resp, err = svc.Transition(context.Background(), order.ID, approver(), TransitionRequest{Event: "mark-ready"})
		require.NoError(t, err)
		assert.Equal(t, "READY", resp.Status)

		at := time.Date(2025, 8, 31, 22, 30, 0, 0, time.UTC)
		submittedAt := at.Add(-48 * time.Hour)
		order.SubmittedAt = &submittedAt
		resp, err = svc.Transition(context.Background(), order.ID, approver(), TransitionRequest{Event: "mark-delivered", DeliveredAt: &at})
		require.NoError(t, err)
		assert.Equal(t, "DELIVERED", resp.Status)
		require.NotNil(t, resp.DeliveredAt)
		assert.True(t, at.Equal(*resp.DeliveredAt))
		assert.Empty(t, resp.LegalEvents)
	})

	t.Run("approve requires capability", func(t *testing.T) {
		svc, repo := newTestService()
		order := submitted(t)
		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := svc.Transition(context.Background(), order.ID, procurement.NewActor(uuid.New(), "orders:manage"), TransitionRequest{Event: "approve"})
		domainErr := assertCode(t, err, shared.CodeCapabilityRequired)
		assert.Equal(t, shared.KindForbidden, domainErr.Kind)
		assert.Equal(t, procurement.OrderStatusSubmitted, order.Status)
	})

	t.Run("illegal event lists legal events", func(t *testing.T) {
		svc, repo := newTestService()
		order := compliantOrder(t)
		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := svc.Transition(context.Background(), order.ID, approver(), TransitionRequest{Event: "mark-delivered"})
		domainErr := assertCode(t, err, shared.CodeInvalidTransition)
		assert.Equal(t, "DRAFT", domainErr.Details["current_state"])
		assert.Equal(t, []string{"submit"}, domainErr.Details["legal_events"])
	})

	t.Run("unknown event is a validation error", func(t *testing.T) {
		svc, repo := newTestService()
		_, err := svc.Transition(context.Background(), uuid.New(), approver(), TransitionRequest{Event: "teleport"})
		domainErr := assertCode(t, err, shared.CodeInvalidInput)
		assert.Contains(t, domainErr.Details, "known_events")
		repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("publish failure does not fail the transition", func(t *testing.T) {
		svc, repo := newTestService()
		publisher := new(MockEventPublisher)
		svc.SetEventPublisher(publisher)
		order := submitted(t)
		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		repo.On("SaveWithLock", mock.Anything, order).Return(nil)
		publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))

		resp, err := svc.Transition(context.Background(), order.ID, approver(), TransitionRequest{Event: "reject", Reason: "late"})
		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", resp.Status)
		assert.Equal(t, "late", resp.RejectionReason)
	})
}
